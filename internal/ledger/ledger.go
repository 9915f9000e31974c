// Package ledger 记录引擎改写过的节点属性的原始值，用于恢复页面。
//
// 账本以节点身份为键，使用弱指针，不会阻止已从文档中移除的节点被回收；
// 被回收节点的条目在 Sweep 或 RestoreAll 时清理。
package ledger

import (
	"weak"

	"github.com/nerdneilsfield/go-page-overlay/internal/dom"
	"golang.org/x/net/html"
)

// Ledger 原始内容账本。不是并发安全的，只在事件循环上使用。
type Ledger struct {
	entries map[weak.Pointer[html.Node]]map[dom.Property]string
}

// New 创建空账本
func New() *Ledger {
	return &Ledger{
		entries: make(map[weak.Pointer[html.Node]]map[dom.Property]string),
	}
}

// Record 记录 (node, kind) 的原始值。已有记录时保持不变，
// 因此重复翻译不会把译文当作原文保存。返回是否写入了新记录。
func (l *Ledger) Record(n *html.Node, kind dom.Property, original string) bool {
	if n == nil {
		return false
	}
	key := weak.Make(n)
	originals, ok := l.entries[key]
	if !ok {
		originals = make(map[dom.Property]string, 1)
		l.entries[key] = originals
	}
	if _, exists := originals[kind]; exists {
		return false
	}
	originals[kind] = original
	return true
}

// Restore 把记录的原始值写回节点。无记录时什么也不做。
// 返回是否找到记录。
func (l *Ledger) Restore(n *html.Node) bool {
	if n == nil {
		return false
	}
	originals, ok := l.entries[weak.Make(n)]
	if !ok {
		return false
	}
	restore(n, originals)
	return true
}

// RestoreAll 恢复账本中所有仍存活的节点，包括已脱离文档的节点；
// 已被回收的节点条目会被删除。返回恢复的节点数。
func (l *Ledger) RestoreAll() int {
	restored := 0
	for key, originals := range l.entries {
		n := key.Value()
		if n == nil {
			delete(l.entries, key)
			continue
		}
		restore(n, originals)
		restored++
	}
	return restored
}

// Originals 返回节点记录的副本
func (l *Ledger) Originals(n *html.Node) (map[dom.Property]string, bool) {
	if n == nil {
		return nil, false
	}
	originals, ok := l.entries[weak.Make(n)]
	if !ok {
		return nil, false
	}
	out := make(map[dom.Property]string, len(originals))
	for k, v := range originals {
		out[k] = v
	}
	return out, true
}

// Has 报告是否记录了 (node, kind)
func (l *Ledger) Has(n *html.Node, kind dom.Property) bool {
	if n == nil {
		return false
	}
	_, ok := l.entries[weak.Make(n)][kind]
	return ok
}

// Sweep 删除节点已被回收的条目，返回删除数
func (l *Ledger) Sweep() int {
	pruned := 0
	for key := range l.entries {
		if key.Value() == nil {
			delete(l.entries, key)
			pruned++
		}
	}
	return pruned
}

// Clear 清空账本
func (l *Ledger) Clear() {
	clear(l.entries)
}

// Len 条目数（按节点计），可能包含尚未清理的已回收节点
func (l *Ledger) Len() int {
	return len(l.entries)
}

func restore(n *html.Node, originals map[dom.Property]string) {
	for kind, value := range originals {
		dom.SetProperty(n, kind, value)
	}
}
