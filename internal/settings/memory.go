package settings

import (
	"context"
	"sync"
)

// Memory 进程内存储
type Memory struct {
	mu       sync.RWMutex
	settings Settings
}

// NewMemory 创建空的内存存储
func NewMemory() *Memory {
	return &Memory{}
}

// NewMemoryWith 创建带初始值的内存存储
func NewMemoryWith(s Settings) *Memory {
	m := &Memory{}
	m.settings = copySettings(s)
	return m
}

func (m *Memory) Load(ctx context.Context) (Settings, error) {
	if err := ctx.Err(); err != nil {
		return Settings{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copySettings(m.settings), nil
}

func (m *Memory) Save(ctx context.Context, s Settings) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = copySettings(s)
	return nil
}

func (m *Memory) Close() error { return nil }

func copySettings(s Settings) Settings {
	if s.TranslationEnabled == nil {
		return Settings{}
	}
	return Settings{TranslationEnabled: Bool(*s.TranslationEnabled)}
}
