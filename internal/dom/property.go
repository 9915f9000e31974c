package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Property 可翻译的节点属性种类。集合是封闭的，新增种类需要显式设计。
type Property int

const (
	PropText Property = iota
	PropTitle
	PropPlaceholder
	PropAlt
	PropValue
)

// ElementProperties 元素上按检查顺序排列的可翻译属性
var ElementProperties = []Property{PropTitle, PropPlaceholder, PropAlt, PropValue}

func (p Property) String() string {
	switch p {
	case PropText:
		return "text"
	case PropTitle:
		return "title"
	case PropPlaceholder:
		return "placeholder"
	case PropAlt:
		return "alt"
	case PropValue:
		return "value"
	default:
		return fmt.Sprintf("Property(%d)", int(p))
	}
}

// HasProperty 报告节点是否暴露该属性。
// 与浏览器 IDL 属性一致：title 属于所有 HTML 元素，placeholder 只在 input/textarea 上，
// alt 只在 img/input/area 上，value 只在按钮类 input 上。
func HasProperty(n *html.Node, p Property) bool {
	if n == nil {
		return false
	}
	if p == PropText {
		return n.Type == html.TextNode
	}
	if n.Type != html.ElementNode || n.Namespace != "" {
		return false
	}

	switch p {
	case PropTitle:
		return true
	case PropPlaceholder:
		return n.DataAtom == atom.Input || n.DataAtom == atom.Textarea
	case PropAlt:
		return n.DataAtom == atom.Img || n.DataAtom == atom.Input || n.DataAtom == atom.Area
	case PropValue:
		return IsButtonInput(n)
	}
	return false
}

// IsButtonInput 检查是否为 type=button/submit/reset 的 input
func IsButtonInput(n *html.Node) bool {
	if n.Type != html.ElementNode || n.DataAtom != atom.Input {
		return false
	}
	typ, _ := Attr(n, "type")
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "button", "submit", "reset":
		return true
	}
	return false
}

// GetProperty 读取属性值。属性不存在时 ok 为 false，空字符串和缺失由调用者区分。
func GetProperty(n *html.Node, p Property) (value string, ok bool) {
	if !HasProperty(n, p) {
		return "", false
	}
	if p == PropText {
		return n.Data, true
	}
	return Attr(n, p.String())
}

// SetProperty 写入属性值。text 只写文本节点，其余只写元素；
// 写入不检查标签，以便恢复类型已被宿主改动过的元素。对已脱离文档的节点写入同样是安全的。
func SetProperty(n *html.Node, p Property, value string) {
	if n == nil {
		return
	}
	switch {
	case p == PropText && n.Type == html.TextNode:
		n.Data = value
	case p != PropText && n.Type == html.ElementNode:
		SetAttr(n, p.String(), value)
	}
}

// Attr 读取元素属性
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr 设置元素属性，不存在时追加
func SetAttr(n *html.Node, key, value string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: value})
}

// IsSkipped 报告元素是否属于从不可见的脚本/样式类标签
func IsSkipped(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Noscript:
		return true
	}
	return false
}

// InsideSkipped 报告 n 的某个祖先是否为 script/style/noscript
func InsideSkipped(n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if IsSkipped(p) {
			return true
		}
	}
	return false
}

// Contains 报告 n 是否是 ancestor 本身或其后代
func Contains(ancestor, n *html.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur == ancestor {
			return true
		}
	}
	return false
}

// TextContent 返回节点的文本内容
func TextContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
		for ch := c.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(n)
	return sb.String()
}
