// Package dom 提供一个可变的 HTML 文档模型：基于 golang.org/x/net/html 的节点树，
// 宿主通过 Document 的方法修改结构，MutationObserver 在事件循环的检查点批量收到插入/删除记录。
package dom

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	// ErrHierarchy 插入会形成环，或父节点不能拥有子节点
	ErrHierarchy = errors.New("dom: hierarchy request error")
	// ErrNotFound 节点不是给定父节点的子节点
	ErrNotFound = errors.New("dom: node not found")
	// ErrAlreadyLoaded 文档已加载
	ErrAlreadyLoaded = errors.New("dom: document already loaded")
)

// ReadyState 文档加载状态
type ReadyState int

const (
	StateLoading ReadyState = iota
	StateComplete
)

func (s ReadyState) String() string {
	if s == StateLoading {
		return "loading"
	}
	return "complete"
}

// Option 文档选项
type Option func(*Document)

// WithLogger 设置日志记录器
func WithLogger(logger *zap.Logger) Option {
	return func(d *Document) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// Document 实时文档。不是并发安全的，所有调用都应在同一个事件循环上进行。
type Document struct {
	root      *html.Node
	state     ReadyState
	hooks     []func()
	observers []*MutationObserver
	logger    *zap.Logger
}

// NewDocument 创建一个尚在加载中的空文档，Body 为 nil 直到 Load 完成
func NewDocument(opts ...Option) *Document {
	d := &Document{
		root:   &html.Node{Type: html.DocumentNode},
		state:  StateLoading,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Parse 解析 HTML 并返回已加载完成的文档
func Parse(r io.Reader, opts ...Option) (*Document, error) {
	d := NewDocument(opts...)
	if err := d.Load(r); err != nil {
		return nil, err
	}
	return d, nil
}

// ParseString 是 Parse 的字符串版本
func ParseString(s string, opts ...Option) (*Document, error) {
	return Parse(strings.NewReader(s), opts...)
}

// Load 解析 HTML 填充文档，然后触发内容加载钩子。
// 解析器的插入不会产生变更记录。
func (d *Document) Load(r io.Reader) error {
	if d.state != StateLoading {
		return ErrAlreadyLoaded
	}
	parsed, err := html.Parse(r)
	if err != nil {
		return fmt.Errorf("failed to parse HTML: %w", err)
	}

	for c := parsed.FirstChild; c != nil; {
		next := c.NextSibling
		parsed.RemoveChild(c)
		d.root.AppendChild(c)
		c = next
	}
	d.state = StateComplete

	hooks := d.hooks
	d.hooks = nil
	d.logger.Debug("document loaded", zap.Int("hooks", len(hooks)))
	for _, hook := range hooks {
		hook()
	}
	return nil
}

// OnContentLoaded 注册加载完成钩子。文档已加载时返回 false 且不注册。
func (d *Document) OnContentLoaded(hook func()) bool {
	if d.state != StateLoading {
		return false
	}
	d.hooks = append(d.hooks, hook)
	return true
}

// ReadyState 当前加载状态
func (d *Document) ReadyState() ReadyState {
	return d.state
}

// Root 文档根节点
func (d *Document) Root() *html.Node {
	return d.root
}

// Body 返回 body 元素，未加载或不存在时返回 nil
func (d *Document) Body() *html.Node {
	if d.state == StateLoading {
		return nil
	}
	return findElement(d.root, atom.Body)
}

// Connected 报告节点是否仍在文档树中
func (d *Document) Connected(n *html.Node) bool {
	return Contains(d.root, n)
}

// AppendChild 将 child 追加到 parent 末尾；child 已有父节点时先移出
func (d *Document) AppendChild(parent, child *html.Node) error {
	return d.InsertBefore(parent, child, nil)
}

// InsertBefore 将 child 插到 ref 之前，ref 为 nil 时等价于 AppendChild
func (d *Document) InsertBefore(parent, child, ref *html.Node) error {
	if err := checkInsert(parent, child); err != nil {
		return err
	}
	if ref != nil && ref.Parent != parent {
		return fmt.Errorf("insertBefore: reference is not a child of parent: %w", ErrNotFound)
	}
	if ref == child {
		return nil
	}
	if old := child.Parent; old != nil {
		old.RemoveChild(child)
		d.queue(MutationRecord{Type: MutationChildList, Target: old, RemovedNodes: []*html.Node{child}})
	}
	parent.InsertBefore(child, ref)
	d.queue(MutationRecord{Type: MutationChildList, Target: parent, AddedNodes: []*html.Node{child}})
	return nil
}

// RemoveChild 从 parent 中移除 child
func (d *Document) RemoveChild(parent, child *html.Node) error {
	if parent == nil || child == nil || child.Parent != parent {
		return fmt.Errorf("removeChild: %w", ErrNotFound)
	}
	parent.RemoveChild(child)
	d.queue(MutationRecord{Type: MutationChildList, Target: parent, RemovedNodes: []*html.Node{child}})
	return nil
}

// AppendHTML 以 parent 为上下文解析片段并追加，返回插入的节点。
// 一次调用只产生一条记录。
func (d *Document) AppendHTML(parent *html.Node, fragment string) ([]*html.Node, error) {
	if parent == nil || (parent.Type != html.ElementNode && parent.Type != html.DocumentNode) {
		return nil, ErrHierarchy
	}
	context := parent
	if parent.Type == html.DocumentNode {
		context = &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), context)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fragment: %w", err)
	}
	for _, n := range nodes {
		parent.AppendChild(n)
	}
	if len(nodes) > 0 {
		d.queue(MutationRecord{Type: MutationChildList, Target: parent, AddedNodes: nodes})
	}
	return nodes, nil
}

// SetTextContent 设置文本内容。对元素会替换全部子节点（产生 childList 记录）；
// 对文本节点只修改数据，不产生记录。
func (d *Document) SetTextContent(n *html.Node, text string) {
	if n == nil {
		return
	}
	if n.Type == html.TextNode || n.Type == html.CommentNode {
		n.Data = text
		return
	}

	var removed []*html.Node
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		removed = append(removed, c)
		c = next
	}
	var added []*html.Node
	if text != "" {
		t := &html.Node{Type: html.TextNode, Data: text}
		n.AppendChild(t)
		added = append(added, t)
	}
	if len(removed) > 0 || len(added) > 0 {
		d.queue(MutationRecord{Type: MutationChildList, Target: n, AddedNodes: added, RemovedNodes: removed})
	}
}

// SetAttribute 设置元素属性。属性变化不被观察。
func (d *Document) SetAttribute(n *html.Node, key, value string) {
	if n == nil || n.Type != html.ElementNode {
		return
	}
	SetAttr(n, key, value)
}

// Render 输出整个文档
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// String 渲染为字符串，渲染失败时返回空串
func (d *Document) String() string {
	var sb strings.Builder
	if err := d.Render(&sb); err != nil {
		d.logger.Warn("failed to render document", zap.Error(err))
		return ""
	}
	return sb.String()
}

// HasPendingMutations 是否有尚未投递的记录
func (d *Document) HasPendingMutations() bool {
	for _, o := range d.observers {
		if len(o.queue) > 0 {
			return true
		}
	}
	return false
}

// DeliverMutations 执行一轮检查点：按注册顺序把每个观察器排队的记录交给其回调。
// 回调中产生的新记录留到下一轮。返回投递的记录数。
func (d *Document) DeliverMutations() int {
	observers := make([]*MutationObserver, len(d.observers))
	copy(observers, d.observers)

	delivered := 0
	for _, o := range observers {
		records := o.TakeRecords()
		if len(records) == 0 || o.callback == nil {
			continue
		}
		delivered += len(records)
		d.invoke(o, records)
	}
	return delivered
}

func (d *Document) invoke(o *MutationObserver, records []MutationRecord) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("mutation callback panicked", zap.Any("panic", r))
		}
	}()
	o.callback(records, o)
}

func (d *Document) queue(rec MutationRecord) {
	for _, o := range d.observers {
		if o.interested(rec.Target) {
			o.enqueue(rec)
		}
	}
}

func (d *Document) register(o *MutationObserver) {
	d.observers = append(d.observers, o)
}

func (d *Document) unregister(o *MutationObserver) {
	for i, cur := range d.observers {
		if cur == o {
			d.observers = append(d.observers[:i], d.observers[i+1:]...)
			return
		}
	}
}

func checkInsert(parent, child *html.Node) error {
	if parent == nil || child == nil {
		return ErrHierarchy
	}
	if parent.Type != html.ElementNode && parent.Type != html.DocumentNode {
		return ErrHierarchy
	}
	if child.Type == html.DocumentNode || Contains(child, parent) {
		return ErrHierarchy
	}
	return nil
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}
