// Package dictionary 提供英语到简体中文的静态词典及查询。
package dictionary

import (
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Entry 词条：英语、简体中文、繁体中文三语。页面只使用 English→Simplified。
type Entry struct {
	English     string `json:"english" yaml:"english" toml:"english"`
	Simplified  string `json:"simplified" yaml:"simplified" toml:"simplified"`
	Traditional string `json:"traditional,omitempty" yaml:"traditional,omitempty" toml:"traditional,omitempty"`
}

// Lookuper 按词典翻译文本
type Lookuper interface {
	Lookup(text string) string
}

// Option 词典构建选项
type Option func(*options)

type options struct {
	normalize bool
	logger    *zap.Logger
}

// WithNormalize 丢弃与更早的键仅大小写不同的键，使大小写回退查询与键顺序无关
func WithNormalize() Option {
	return func(o *options) { o.normalize = true }
}

// WithLogger 设置日志记录器
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Dictionary 不可变词典，可并发使用
type Dictionary struct {
	entries []Entry
	exact   map[string]string
	folded  map[string]string // 小写形式 -> 第一个出现的原始键
}

// New 按给定顺序构建词典。English 或 Simplified 为空的词条被丢弃；
// 同一英文键重复出现时保留首次出现的位置，译文以最后一次为准。
func New(entries []Entry, opts ...Option) *Dictionary {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	d := &Dictionary{
		exact:  make(map[string]string, len(entries)),
		folded: make(map[string]string, len(entries)),
	}
	index := make(map[string]int, len(entries))

	for _, e := range entries {
		if e.English == "" || e.Simplified == "" {
			continue
		}
		if e.Traditional == "" {
			e.Traditional = e.Simplified
		}

		if i, ok := index[e.English]; ok {
			d.entries[i] = e
			d.exact[e.English] = e.Simplified
			continue
		}

		key := fold(e.English)
		if first, collides := d.folded[key]; collides && o.normalize {
			o.logger.Debug("dropping case-colliding dictionary key",
				zap.String("key", e.English),
				zap.String("kept", first))
			continue
		}

		index[e.English] = len(d.entries)
		d.entries = append(d.entries, e)
		d.exact[e.English] = e.Simplified
		if _, ok := d.folded[key]; !ok {
			d.folded[key] = e.English
		}
	}
	return d
}

// FromMap 从 英文->简体 映射构建词典。映射无序，键按字典序排列以保证结果可复现。
func FromMap(m map[string]string, opts ...Option) *Dictionary {
	return New(mapEntries(m), opts...)
}

// Lookup 翻译文本：先按去除首尾空白后的文本精确匹配，再大小写不敏感匹配，
// 都失败时原样返回未去空白的输入，调用方据此比较判断是否发生了翻译。
func (d *Dictionary) Lookup(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return text
	}
	if translated, ok := d.exact[trimmed]; ok {
		return translated
	}
	if key, ok := d.folded[fold(trimmed)]; ok {
		return d.exact[key]
	}
	return text
}

// Len 词条数
func (d *Dictionary) Len() int {
	return len(d.entries)
}

// Entries 返回按顺序排列的词条副本
func (d *Dictionary) Entries() []Entry {
	out := make([]Entry, len(d.entries))
	copy(out, d.entries)
	return out
}

// fold 使用 Unicode 小写规则。cases.Caser 有状态，不能在 goroutine 间共享。
func fold(s string) string {
	return cases.Lower(language.Und).String(s)
}

func mapEntries(m map[string]string) []Entry {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, Entry{English: k, Simplified: m[k]})
	}
	return entries
}
