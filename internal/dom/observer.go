package dom

import (
	"errors"

	"golang.org/x/net/html"
)

// ErrInvalidOptions 观察选项未请求任何受支持的变更类型
var ErrInvalidOptions = errors.New("dom: observer options must request childList")

// MutationType 变更记录类型。只有 childList 会被记录。
type MutationType string

const MutationChildList MutationType = "childList"

// MutationRecord 一次结构变更
type MutationRecord struct {
	Type         MutationType
	Target       *html.Node   // 子节点发生变化的父节点
	AddedNodes   []*html.Node // 按插入顺序
	RemovedNodes []*html.Node
}

// ObserverOptions 观察选项
type ObserverOptions struct {
	ChildList bool
	Subtree   bool
}

// MutationCallback 在检查点批量收到记录
type MutationCallback func(records []MutationRecord, observer *MutationObserver)

type registration struct {
	target  *html.Node
	options ObserverOptions
}

// MutationObserver 监听文档子树的结构变化，记录排队并在事件循环的检查点批量投递。
type MutationObserver struct {
	callback MutationCallback
	doc      *Document
	regs     []registration
	queue    []MutationRecord
}

// NewMutationObserver 创建观察器
func NewMutationObserver(callback MutationCallback) *MutationObserver {
	return &MutationObserver{callback: callback}
}

// Observe 开始观察 target。对同一 target 重复调用会替换选项。
// 一个观察器只能绑定一个文档，换文档前需 Disconnect。
func (o *MutationObserver) Observe(doc *Document, target *html.Node, opts ObserverOptions) error {
	if !opts.ChildList {
		return ErrInvalidOptions
	}
	if doc == nil || target == nil {
		return errors.New("dom: observe requires a document and a target node")
	}
	if o.doc != nil && o.doc != doc {
		return errors.New("dom: observer is bound to another document")
	}

	for i := range o.regs {
		if o.regs[i].target == target {
			o.regs[i].options = opts
			return nil
		}
	}
	o.regs = append(o.regs, registration{target: target, options: opts})
	if o.doc == nil {
		o.doc = doc
		doc.register(o)
	}
	return nil
}

// Disconnect 停止观察并丢弃尚未投递的记录
func (o *MutationObserver) Disconnect() {
	if o.doc != nil {
		o.doc.unregister(o)
		o.doc = nil
	}
	o.regs = nil
	o.queue = nil
}

// TakeRecords 取走排队中的记录
func (o *MutationObserver) TakeRecords() []MutationRecord {
	records := o.queue
	o.queue = nil
	return records
}

// Observing 报告观察器是否仍有注册
func (o *MutationObserver) Observing() bool {
	return len(o.regs) > 0
}

func (o *MutationObserver) interested(parent *html.Node) bool {
	for _, reg := range o.regs {
		if !reg.options.ChildList {
			continue
		}
		if reg.target == parent {
			return true
		}
		if reg.options.Subtree && Contains(reg.target, parent) {
			return true
		}
	}
	return false
}

func (o *MutationObserver) enqueue(rec MutationRecord) {
	o.queue = append(o.queue, rec)
}
