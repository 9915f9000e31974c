package engine

import (
	"errors"

	"github.com/nerdneilsfield/go-page-overlay/internal/dom"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// ErrNoBody 文档还没有 body
var ErrNoBody = errors.New("engine: document has no body")

// ChangeObserver 监听 body 子树的节点插入，把新插入的元素和文本节点交给 Walker。
// 只观察插入，已有节点上的文本或属性修改不会被重新翻译。
type ChangeObserver struct {
	doc        *dom.Document
	walker     *Walker
	enabled    func() bool
	afterBatch func()
	logger     *zap.Logger

	mo      *dom.MutationObserver
	batches int
}

// NewChangeObserver 创建观察器。afterBatch 在每批记录处理完后调用，可为 nil。
func NewChangeObserver(doc *dom.Document, walker *Walker, enabled func() bool, afterBatch func(), logger *zap.Logger) *ChangeObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChangeObserver{
		doc:        doc,
		walker:     walker,
		enabled:    enabled,
		afterBatch: afterBatch,
		logger:     logger,
	}
}

// Arm 断开已有观察并重新开始观察 body
func (o *ChangeObserver) Arm() error {
	o.Disarm()

	body := o.doc.Body()
	if body == nil {
		return ErrNoBody
	}
	mo := dom.NewMutationObserver(o.handle)
	if err := mo.Observe(o.doc, body, dom.ObserverOptions{ChildList: true, Subtree: true}); err != nil {
		return err
	}
	o.mo = mo
	o.logger.Debug("change observer armed")
	return nil
}

// Disarm 停止观察，未投递的记录被丢弃
func (o *ChangeObserver) Disarm() {
	if o.mo == nil {
		return
	}
	o.mo.Disconnect()
	o.mo = nil
	o.logger.Debug("change observer disarmed")
}

// Armed 是否正在观察
func (o *ChangeObserver) Armed() bool {
	return o.mo != nil && o.mo.Observing()
}

// Batches 已处理的批次数
func (o *ChangeObserver) Batches() int {
	return o.batches
}

func (o *ChangeObserver) handle(records []dom.MutationRecord, _ *dom.MutationObserver) {
	if !o.enabled() {
		return
	}
	o.batches++

	roots, translated := 0, 0
	for _, rec := range records {
		for _, n := range rec.AddedNodes {
			if n.Type != html.ElementNode && n.Type != html.TextNode {
				continue
			}
			// 插入到 script/style/noscript 内部的节点同样跳过
			if dom.InsideSkipped(n) {
				continue
			}
			roots++
			translated += o.walker.Walk(n).Translated
		}
	}

	o.logger.Debug("processed inserted nodes",
		zap.Int("records", len(records)),
		zap.Int("roots", roots),
		zap.Int("translated", translated))

	if o.afterBatch != nil {
		o.afterBatch()
	}
}
