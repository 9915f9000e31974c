// Package engine 实现页面翻译引擎：节点翻译、树遍历、插入观察与开关控制。
package engine

import (
	"strings"
	"sync/atomic"

	"github.com/nerdneilsfield/go-page-overlay/internal/dictionary"
	"github.com/nerdneilsfield/go-page-overlay/internal/dom"
	"github.com/nerdneilsfield/go-page-overlay/internal/ledger"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Translator 节点翻译器：对节点及其后代查词典，改写前先把原值记入账本
type Translator struct {
	dict    dictionary.Lookuper
	ledger  *ledger.Ledger
	enabled func() bool
	logger  *zap.Logger

	visited    atomic.Int64
	translated atomic.Int64
}

// NewTranslator 创建节点翻译器。enabled 在每个节点访问时都会被调用。
func NewTranslator(dict dictionary.Lookuper, l *ledger.Ledger, enabled func() bool, logger *zap.Logger) *Translator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if enabled == nil {
		enabled = func() bool { return true }
	}
	return &Translator{
		dict:    dict,
		ledger:  l,
		enabled: enabled,
		logger:  logger,
	}
}

// Translate 翻译节点本身，然后按文档顺序深度优先递归所有子节点。
// script/style/noscript 元素整体跳过。返回改写的属性数。
func (t *Translator) Translate(n *html.Node) int {
	if n == nil || !t.enabled() {
		return 0
	}
	if dom.IsSkipped(n) {
		return 0
	}
	t.visited.Add(1)

	count := 0
	switch n.Type {
	case html.TextNode:
		if strings.TrimSpace(n.Data) != "" && t.apply(n, dom.PropText, n.Data) {
			count++
		}
	case html.ElementNode:
		for _, prop := range dom.ElementProperties {
			value, ok := dom.GetProperty(n, prop)
			if !ok || value == "" {
				continue
			}
			if t.apply(n, prop, value) {
				count++
			}
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		count += t.Translate(c)
	}
	return count
}

// apply 查词典，译文不同则先记录再改写
func (t *Translator) apply(n *html.Node, prop dom.Property, current string) bool {
	translated := t.dict.Lookup(current)
	if translated == current {
		return false
	}

	t.ledger.Record(n, prop, current)
	dom.SetProperty(n, prop, translated)
	t.translated.Add(1)

	if ce := t.logger.Check(zap.DebugLevel, "translated node property"); ce != nil {
		ce.Write(
			zap.String("property", prop.String()),
			zap.String("original", current),
			zap.String("translated", translated))
	}
	return true
}

// TranslatorStats 累计计数
type TranslatorStats struct {
	Visited    int64 `json:"visited"`
	Translated int64 `json:"translated"`
}

// Stats 返回累计计数
func (t *Translator) Stats() TranslatorStats {
	return TranslatorStats{
		Visited:    t.visited.Load(),
		Translated: t.translated.Load(),
	}
}
