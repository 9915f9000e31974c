// Package settings 持久化翻译开关。引擎只读取，写入由设置界面（CLI 或 HTTP）完成。
package settings

import (
	"context"
	"fmt"
	"strings"
)

// KeyTranslationEnabled 开关在存储中的键名
const KeyTranslationEnabled = "translationEnabled"

// Settings 设置内容。TranslationEnabled 为 nil 表示从未设置过。
type Settings struct {
	TranslationEnabled *bool `json:"translationEnabled,omitempty" yaml:"translationEnabled,omitempty"`
}

// Reader 读取设置
type Reader interface {
	Load(ctx context.Context) (Settings, error)
}

// Store 读写设置
type Store interface {
	Reader
	Save(ctx context.Context, s Settings) error
	Close() error
}

// Enabled 解析开关：只有显式存储的 false 才关闭；键缺失或读取失败都视为开启
func Enabled(s Settings, err error) bool {
	if err != nil || s.TranslationEnabled == nil {
		return true
	}
	return *s.TranslationEnabled
}

// Bool 返回 b 的指针
func Bool(b bool) *bool {
	return &b
}

// Driver 存储后端
type Driver string

const (
	DriverMemory Driver = "memory"
	DriverFile   Driver = "file"
	DriverSQLite Driver = "sqlite"
)

// Open 按后端打开存储
func Open(driver, path string) (Store, error) {
	switch Driver(strings.ToLower(driver)) {
	case DriverMemory:
		return NewMemory(), nil
	case DriverFile:
		return NewFile(path)
	case DriverSQLite:
		return OpenSQLite(path)
	}
	return nil, fmt.Errorf("unknown settings driver %q", driver)
}
