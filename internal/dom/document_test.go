package dom

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func TestDocumentLoad(t *testing.T) {
	doc := NewDocument()
	assert.Equal(t, StateLoading, doc.ReadyState())
	assert.Nil(t, doc.Body())

	var calls []string
	assert.True(t, doc.OnContentLoaded(func() { calls = append(calls, "first") }))
	assert.True(t, doc.OnContentLoaded(func() {
		calls = append(calls, "second")
		assert.NotNil(t, doc.Body(), "body is available inside hooks")
	}))

	var records []MutationRecord
	mo := NewMutationObserver(func(recs []MutationRecord, _ *MutationObserver) {
		records = append(records, recs...)
	})
	require.NoError(t, mo.Observe(doc, doc.Root(), ObserverOptions{ChildList: true, Subtree: true}))

	require.NoError(t, doc.Load(strings.NewReader(`<p>Hello</p>`)))
	assert.Equal(t, StateComplete, doc.ReadyState())
	assert.Equal(t, "complete", doc.ReadyState().String())
	assert.Equal(t, []string{"first", "second"}, calls)
	require.NotNil(t, doc.Body())

	doc.DeliverMutations()
	assert.Empty(t, records, "parser insertions are not observed")

	assert.False(t, doc.OnContentLoaded(func() {}), "hooks are refused after load")
	assert.ErrorIs(t, doc.Load(strings.NewReader("")), ErrAlreadyLoaded)
}

func TestDocumentStructure(t *testing.T) {
	doc, err := ParseString(`<body><div id="a"></div><div id="b"><span>x</span></div></body>`)
	require.NoError(t, err)

	a := mustFind(t, doc, "#a")
	b := mustFind(t, doc, "#b")
	span := mustFind(t, doc, "span")

	t.Run("append", func(t *testing.T) {
		text := &html.Node{Type: html.TextNode, Data: "Submit"}
		require.NoError(t, doc.AppendChild(a, text))
		assert.Equal(t, a, text.Parent)
	})

	t.Run("move detaches from old parent", func(t *testing.T) {
		require.NoError(t, doc.AppendChild(a, span))
		assert.Equal(t, a, span.Parent)
		assert.Nil(t, b.FirstChild)
	})

	t.Run("insert before", func(t *testing.T) {
		p := &html.Node{Type: html.ElementNode, Data: "p"}
		require.NoError(t, doc.InsertBefore(a, p, a.FirstChild))
		assert.Equal(t, p, a.FirstChild)

		stray := &html.Node{Type: html.ElementNode, Data: "p"}
		assert.ErrorIs(t, doc.InsertBefore(a, stray, b), ErrNotFound)
	})

	t.Run("hierarchy errors", func(t *testing.T) {
		assert.ErrorIs(t, doc.AppendChild(span, a), ErrHierarchy, "ancestor into descendant")
		assert.ErrorIs(t, doc.AppendChild(a, a), ErrHierarchy)
		text := &html.Node{Type: html.TextNode, Data: "x"}
		assert.ErrorIs(t, doc.AppendChild(text, &html.Node{Type: html.TextNode}), ErrHierarchy)
		assert.ErrorIs(t, doc.AppendChild(nil, text), ErrHierarchy)
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, doc.RemoveChild(a, span))
		assert.Nil(t, span.Parent)
		assert.False(t, doc.Connected(span))
		assert.ErrorIs(t, doc.RemoveChild(a, span), ErrNotFound)
	})

	t.Run("append html", func(t *testing.T) {
		nodes, err := doc.AppendHTML(b, `<em>one</em> two <!-- c -->`)
		require.NoError(t, err)
		require.Len(t, nodes, 3)
		assert.Equal(t, "em", nodes[0].Data)
		assert.Equal(t, html.TextNode, nodes[1].Type)
		assert.Equal(t, html.CommentNode, nodes[2].Type)

		_, err = doc.AppendHTML(nodes[1], "<b>x</b>")
		assert.ErrorIs(t, err, ErrHierarchy)
	})

	t.Run("render", func(t *testing.T) {
		out := doc.String()
		assert.Contains(t, out, `<em>one</em> two <!-- c -->`)
		assert.Contains(t, out, `<p></p>Submit`)
	})
}

func TestSetTextContent(t *testing.T) {
	doc, err := ParseString(`<body><p>Hello <b>world</b></p></body>`)
	require.NoError(t, err)
	p := mustFind(t, doc, "p")

	var records []MutationRecord
	mo := NewMutationObserver(func(recs []MutationRecord, _ *MutationObserver) {
		records = append(records, recs...)
	})
	require.NoError(t, mo.Observe(doc, doc.Body(), ObserverOptions{ChildList: true, Subtree: true}))

	doc.SetTextContent(p, "Submit")
	doc.DeliverMutations()
	require.Len(t, records, 1)
	assert.Equal(t, p, records[0].Target)
	assert.Len(t, records[0].RemovedNodes, 2)
	require.Len(t, records[0].AddedNodes, 1)
	assert.Equal(t, "Submit", records[0].AddedNodes[0].Data)

	records = nil
	doc.SetTextContent(p.FirstChild, "Cancel")
	doc.DeliverMutations()
	assert.Empty(t, records, "character data changes are not observed")
	assert.Equal(t, "Cancel", TextContent(p))

	records = nil
	doc.SetAttribute(p, "title", "Home")
	doc.DeliverMutations()
	assert.Empty(t, records, "attribute changes are not observed")
	v, _ := Attr(p, "title")
	assert.Equal(t, "Home", v)
}
