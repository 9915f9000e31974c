package engine

import (
	"testing"

	"github.com/nerdneilsfield/go-page-overlay/internal/dom"
	"github.com/nerdneilsfield/go-page-overlay/internal/ledger"
	"github.com/nerdneilsfield/go-page-overlay/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func TestChangeObserver(t *testing.T) {
	enabled := true
	tr := NewTranslator(testutils.SampleDictionary(), ledger.New(), func() bool { return enabled }, nil)
	w := NewWalker(tr, nil)

	t.Run("requires a body", func(t *testing.T) {
		o := NewChangeObserver(dom.NewDocument(), w, func() bool { return true }, nil, nil)
		assert.ErrorIs(t, o.Arm(), ErrNoBody)
		assert.False(t, o.Armed())
	})

	doc, err := dom.ParseString(`<body><div id="box"></div></body>`)
	require.NoError(t, err)
	box := find(t, doc, "#box")

	afterBatch := 0
	o := NewChangeObserver(doc, w, func() bool { return enabled }, func() { afterBatch++ }, nil)
	require.NoError(t, o.Arm())
	require.NoError(t, o.Arm(), "re-arming replaces the registration")
	assert.True(t, o.Armed())

	t.Run("added subtrees are walked", func(t *testing.T) {
		_, err := doc.AppendHTML(box, `<p>Hello</p><!-- Hello -->`)
		require.NoError(t, err)
		require.NoError(t, doc.AppendChild(box, &html.Node{Type: html.TextNode, Data: "Cancel"}))
		doc.DeliverMutations()

		assert.Equal(t, "你好取消", dom.TextContent(box))
		assert.Equal(t, 1, o.Batches())
		assert.Equal(t, 1, afterBatch)
	})

	t.Run("removals are ignored", func(t *testing.T) {
		require.NoError(t, doc.RemoveChild(box, box.FirstChild))
		doc.DeliverMutations()
		assert.Equal(t, 2, o.Batches())
	})

	t.Run("disabled batches are skipped", func(t *testing.T) {
		enabled = false
		defer func() { enabled = true }()

		require.NoError(t, doc.AppendChild(box, &html.Node{Type: html.TextNode, Data: "Home"}))
		doc.DeliverMutations()
		assert.Equal(t, 2, o.Batches())
		assert.Contains(t, dom.TextContent(box), "Home")
	})

	t.Run("disarm drops pending records", func(t *testing.T) {
		require.NoError(t, doc.AppendChild(box, &html.Node{Type: html.TextNode, Data: "Search"}))
		o.Disarm()
		o.Disarm()
		doc.DeliverMutations()
		assert.False(t, o.Armed())
		assert.Contains(t, dom.TextContent(box), "Search")
	})
}

func TestChangeObserverSkipsInsideScripts(t *testing.T) {
	l := ledger.New()
	tr := NewTranslator(testutils.SampleDictionary(), l, nil, nil)

	doc, err := dom.ParseString(`<body><script>var a;</script><style></style><div><noscript></noscript></div></body>`)
	require.NoError(t, err)
	o := NewChangeObserver(doc, NewWalker(tr, nil), func() bool { return true }, nil, nil)
	require.NoError(t, o.Arm())

	script, style, noscript := find(t, doc, "script"), find(t, doc, "style"), find(t, doc, "noscript")
	doc.SetTextContent(script, "Submit")
	require.NoError(t, doc.AppendChild(style, &html.Node{Type: html.TextNode, Data: "Cancel"}))
	require.NoError(t, doc.AppendChild(noscript, &html.Node{Type: html.TextNode, Data: "Hello"}))
	doc.DeliverMutations()

	assert.Equal(t, "Submit", dom.TextContent(script))
	assert.Equal(t, "Cancel", dom.TextContent(style))
	assert.Equal(t, "Hello", dom.TextContent(noscript))
	assert.Zero(t, l.Len())
	assert.Zero(t, tr.Stats().Translated)
}
