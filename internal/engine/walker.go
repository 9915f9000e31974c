package engine

import (
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// WalkResult 单次遍历结果
type WalkResult struct {
	Translated int
	Duration   time.Duration
}

// Walker 对子树整体应用 Translator，用于整页首遍和新插入子树
type Walker struct {
	translator *Translator
	logger     *zap.Logger
}

// NewWalker 创建遍历器
func NewWalker(translator *Translator, logger *zap.Logger) *Walker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Walker{translator: translator, logger: logger}
}

// Walk 按文档顺序翻译 root 及其所有后代
func (w *Walker) Walk(root *html.Node) WalkResult {
	start := time.Now()
	translated := w.translator.Translate(root)
	result := WalkResult{Translated: translated, Duration: time.Since(start)}

	if root != nil {
		w.logger.Debug("walked subtree",
			zap.String("root", nodeName(root)),
			zap.Int("translated", result.Translated),
			zap.Duration("duration", result.Duration))
	}
	return result
}

func nodeName(n *html.Node) string {
	switch n.Type {
	case html.ElementNode:
		return n.Data
	case html.TextNode:
		return "#text"
	case html.DocumentNode:
		return "#document"
	case html.CommentNode:
		return "#comment"
	}
	return "#node"
}
