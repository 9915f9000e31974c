package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/nerdneilsfield/go-page-overlay/internal/config"
	"github.com/nerdneilsfield/go-page-overlay/internal/dictionary"
	"github.com/nerdneilsfield/go-page-overlay/internal/dom"
	"github.com/nerdneilsfield/go-page-overlay/internal/engine"
	"github.com/nerdneilsfield/go-page-overlay/internal/settings"
	"go.uber.org/zap"
)

// page 一个加载中的文档、它的事件循环和控制器
type page struct {
	doc        *dom.Document
	loop       *dom.EventLoop
	controller *engine.Controller
}

func newPage(cfg *config.Config, dict *dictionary.Dictionary, store settings.Reader, log *zap.Logger) (*page, error) {
	doc := dom.NewDocument(dom.WithLogger(log.Named("dom")))
	loop := dom.NewEventLoop(doc,
		dom.WithQueueSize(cfg.Loop.QueueSize),
		dom.WithMaxDeliveryRounds(cfg.Loop.MaxDeliveryRounds),
		dom.WithLoopLogger(log.Named("loop")))

	controller, err := engine.NewController(engine.Config{
		Loop:       loop,
		Dictionary: dict,
		Settings:   store,
		Logger:     log.Named("engine"),
	})
	if err != nil {
		return nil, err
	}
	return &page{doc: doc, loop: loop, controller: controller}, nil
}

// load 在事件循环上解析文档，完成后触发加载钩子
func (p *page) load(ctx context.Context, r io.Reader) error {
	var loadErr error
	if err := p.loop.Call(ctx, func() { loadErr = p.doc.Load(r) }); err != nil {
		return err
	}
	if loadErr != nil {
		return fmt.Errorf("解析文档失败: %w", loadErr)
	}
	return nil
}

// render 在事件循环上渲染当前文档
func (p *page) render(ctx context.Context) (string, error) {
	var out string
	err := p.loop.Call(ctx, func() { out = p.doc.String() })
	return out, err
}

// waitReady 等待初始开关状态确定
func (p *page) waitReady(ctx context.Context) error {
	select {
	case <-p.controller.Ready():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
