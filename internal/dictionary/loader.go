package dictionary

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat 无法识别的词典文件格式
var ErrUnsupportedFormat = errors.New("unsupported dictionary format")

// Format 词典文件格式
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath 根据扩展名推断格式
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// File 词典文件内容。translations 是简单的 英文->简体 表，entries 带繁体；两者可同时存在，
// entries 在前。
type File struct {
	SourceLang   string            `toml:"source_lang" yaml:"source_lang" json:"source_lang"`
	TargetLang   string            `toml:"target_lang" yaml:"target_lang" json:"target_lang"`
	Translations map[string]string `toml:"translations,omitempty" yaml:"translations,omitempty" json:"translations,omitempty"`
	Entries      []Entry           `toml:"entries,omitempty" yaml:"entries,omitempty" json:"entries,omitempty"`
}

// NewFile 创建英语到简体中文的词典文件
func NewFile(entries []Entry) *File {
	return &File{
		SourceLang: "en",
		TargetLang: "zh-Hans",
		Entries:    entries,
	}
}

// AllEntries 返回 entries 后接按键排序的 translations
func (f *File) AllEntries() []Entry {
	all := make([]Entry, 0, len(f.Entries)+len(f.Translations))
	all = append(all, f.Entries...)
	all = append(all, mapEntries(f.Translations)...)
	return all
}

// Dictionary 构建词典
func (f *File) Dictionary(opts ...Option) *Dictionary {
	return New(f.AllEntries(), opts...)
}

// Validate 检查语言对。只支持英语到中文。
func (f *File) Validate() error {
	if f.SourceLang != "" && !isLanguage(f.SourceLang, "en", "english") {
		return fmt.Errorf("unsupported source language %q: only English is supported", f.SourceLang)
	}
	if f.TargetLang != "" && !isLanguage(f.TargetLang, "zh", "chinese") {
		return fmt.Errorf("unsupported target language %q: only Chinese is supported", f.TargetLang)
	}
	return nil
}

// LoadFile 读取词典文件
func LoadFile(path string) (*File, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("dictionary file not found: %s", path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dictionary file: %w", err)
	}
	return Decode(bytes.NewReader(content), format)
}

// Load 读取词典文件并构建词典
func Load(path string, opts ...Option) (*Dictionary, error) {
	f, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return f.Dictionary(opts...), nil
}

// Decode 按格式解码词典
func Decode(r io.Reader, format Format) (*File, error) {
	f := &File{}
	switch format {
	case FormatTOML:
		if _, err := toml.NewDecoder(r).Decode(f); err != nil {
			return nil, fmt.Errorf("failed to unmarshal toml dictionary: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(f); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to unmarshal yaml dictionary: %w", err)
		}
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(f); err != nil {
			return nil, fmt.Errorf("failed to unmarshal json dictionary: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Encode 按格式编码词典
func Encode(w io.Writer, f *File, format Format) error {
	switch format {
	case FormatTOML:
		return toml.NewEncoder(w).Encode(f)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(f); err != nil {
			return err
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(f)
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
}

// Save 将词典写入文件，格式由扩展名决定
func Save(path string, f *File) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := Encode(&buf, f, format); err != nil {
		return fmt.Errorf("failed to encode dictionary: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func isLanguage(value, base, name string) bool {
	if strings.EqualFold(strings.TrimSpace(value), name) {
		return true
	}
	tag, err := language.Parse(value)
	if err != nil {
		return false
	}
	b, _ := tag.Base()
	return b.String() == base
}
