package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/nerdneilsfield/go-page-overlay/internal/dictionary"
	"github.com/nerdneilsfield/go-page-overlay/internal/dom"
	"github.com/nerdneilsfield/go-page-overlay/internal/ledger"
	"github.com/nerdneilsfield/go-page-overlay/internal/settings"
	"go.uber.org/zap"
)

// Config 控制器依赖
type Config struct {
	Loop       *dom.EventLoop
	Dictionary dictionary.Lookuper
	Settings   settings.Reader
	Logger     *zap.Logger
}

// Controller 持有开关状态，把遍历器和插入观察器连接起来。
// 除 Enabled 外，所有状态只在事件循环上读写。
type Controller struct {
	loop       *dom.EventLoop
	doc        *dom.Document
	settings   settings.Reader
	ledger     *ledger.Ledger
	translator *Translator
	walker     *Walker
	observer   *ChangeObserver
	logger     *zap.Logger

	enabled  atomic.Bool
	resolved bool // 设置已读取或已收到过开关命令
	session  string

	ready     chan struct{}
	readyOnce sync.Once

	walks    atomic.Int64
	restored atomic.Int64
}

// NewController 创建控制器，初始状态为开启，直到设置读取完成
func NewController(cfg Config) (*Controller, error) {
	if cfg.Loop == nil || cfg.Loop.Document() == nil {
		return nil, errors.New("engine: event loop with a document is required")
	}
	if cfg.Dictionary == nil {
		return nil, errors.New("engine: dictionary is required")
	}
	if cfg.Settings == nil {
		cfg.Settings = settings.NewMemory()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	c := &Controller{
		loop:     cfg.Loop,
		doc:      cfg.Loop.Document(),
		settings: cfg.Settings,
		ledger:   ledger.New(),
		logger:   cfg.Logger,
		ready:    make(chan struct{}),
	}
	c.enabled.Store(true)
	c.translator = NewTranslator(cfg.Dictionary, c.ledger, c.enabled.Load, cfg.Logger.Named("translator"))
	c.walker = NewWalker(c.translator, cfg.Logger.Named("walker"))
	c.observer = NewChangeObserver(c.doc, c.walker, c.enabled.Load, c.sweep, cfg.Logger.Named("observer"))
	return c, nil
}

// Start 注册文档加载钩子并异步读取设置。事件循环必须已在运行或随后运行。
func (c *Controller) Start(ctx context.Context) error {
	if err := c.loop.Call(ctx, func() {
		if c.doc.OnContentLoaded(c.onContentLoaded) {
			c.logger.Debug("document still loading, deferring initial pass")
		}
	}); err != nil {
		return err
	}

	go func() {
		s, err := c.settings.Load(ctx)
		if err != nil {
			c.logger.Warn("failed to read settings, defaulting to enabled", zap.Error(err))
		}
		enabled := settings.Enabled(s, err)
		if err := c.loop.Post(ctx, func() { c.applySettings(enabled) }); err != nil {
			c.logger.Debug("settings result dropped", zap.Error(err))
		}
	}()
	return nil
}

// Ready 在初始状态确定（设置读取完成或收到开关命令）后关闭
func (c *Controller) Ready() <-chan struct{} {
	return c.ready
}

// Enabled 当前开关状态，可在任意 goroutine 调用
func (c *Controller) Enabled() bool {
	return c.enabled.Load()
}

// Toggle 在事件循环上执行状态切换，切换完成后返回
func (c *Controller) Toggle(ctx context.Context, enabled bool) error {
	return c.loop.Call(ctx, func() { c.setEnabled(enabled) })
}

// Stats 控制器状态快照
type Stats struct {
	Enabled       bool   `json:"enabled"`
	Observing     bool   `json:"observing"`
	Session       string `json:"session,omitempty"`
	LedgerEntries int    `json:"ledger_entries"`
	Walks         int64  `json:"walks"`
	Visited       int64  `json:"visited"`
	Translated    int64  `json:"translated"`
	Restored      int64  `json:"restored"`
	Batches       int    `json:"batches"`
}

// Stats 在事件循环上读取状态
func (c *Controller) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := c.loop.Call(ctx, func() {
		ts := c.translator.Stats()
		st = Stats{
			Enabled:       c.enabled.Load(),
			Observing:     c.observer.Armed(),
			Session:       c.session,
			LedgerEntries: c.ledger.Len(),
			Walks:         c.walks.Load(),
			Visited:       ts.Visited,
			Translated:    ts.Translated,
			Restored:      c.restored.Load(),
			Batches:       c.observer.Batches(),
		}
	})
	return st, err
}

// applySettings 设置读取结果。已收到过开关命令时命令优先。
func (c *Controller) applySettings(enabled bool) {
	if c.resolved {
		c.logger.Debug("toggle command already received, ignoring stored setting",
			zap.Bool("stored", enabled))
		return
	}
	c.resolved = true
	c.enabled.Store(enabled)
	c.markReady()

	c.logger.Info("translation state loaded", zap.Bool("enabled", enabled))
	if enabled {
		c.activate()
	}
}

func (c *Controller) setEnabled(enabled bool) {
	c.resolved = true
	c.enabled.Store(enabled)
	c.markReady()

	c.logger.Info("translation toggled", zap.Bool("enabled", enabled))
	if enabled {
		c.activate()
	} else {
		c.deactivate()
	}
}

func (c *Controller) onContentLoaded() {
	if !c.resolved {
		// 设置读取完成时会执行首遍
		return
	}
	if c.enabled.Load() {
		c.activate()
	}
}

// activate 整页首遍，然后在同一任务内开始观察插入
func (c *Controller) activate() {
	body := c.doc.Body()
	if body == nil {
		c.logger.Debug("body not available, waiting for document load")
		return
	}
	if !c.observer.Armed() {
		c.session = uuid.NewString()
	}

	result := c.walker.Walk(body)
	c.walks.Add(1)
	if err := c.observer.Arm(); err != nil {
		c.logger.Warn("failed to arm change observer", zap.Error(err))
	}

	c.logger.Info("page translated",
		zap.String("session", c.session),
		zap.Int("translated", result.Translated),
		zap.Duration("duration", result.Duration))
}

// deactivate 停止观察并从账本恢复所有被改写的节点。账本随后清空，
// 下一次开启会重新记录原值。
func (c *Controller) deactivate() {
	c.observer.Disarm()
	restored := c.ledger.RestoreAll()
	c.ledger.Clear()
	c.restored.Add(int64(restored))

	c.logger.Info("page restored",
		zap.String("session", c.session),
		zap.Int("nodes", restored))
	c.session = ""
}

func (c *Controller) sweep() {
	if pruned := c.ledger.Sweep(); pruned > 0 {
		c.logger.Debug("pruned collected ledger entries", zap.Int("pruned", pruned))
	}
}

func (c *Controller) markReady() {
	c.readyOnce.Do(func() { close(c.ready) })
}
