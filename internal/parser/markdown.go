package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/dgallion1/jobtrail/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown files using goldmark.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	tree := &doctree.DocTree{
		Title: strings.TrimSuffix(strings.TrimSuffix(filename, ".md"), ".markdown"),
	}

	type stackEntry struct {
		node  *doctree.DocNode
		level int
	}

	// Root is level 0; all h1+ nest under it.
	root := &doctree.DocNode{Title: tree.Title}
	stack := []stackEntry{{node: root, level: 0}}

	var currentText bytes.Buffer

	flushText := func() {
		t := strings.TrimSpace(currentText.String())
		if t != "" {
			top := stack[len(stack)-1].node
			if top.Text != "" {
				top.Text += "\n\n" + t
			} else {
				top.Text = t
			}
		}
		currentText.Reset()
	}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			flushText()
			newNode := &doctree.DocNode{Title: extractText(node, src)}

			for len(stack) > 1 && stack[len(stack)-1].level >= node.Level {
				stack = stack[:len(stack)-1]
			}

			parent := stack[len(stack)-1].node
			parent.Children = append(parent.Children, newNode)
			stack = append(stack, stackEntry{node: newNode, level: node.Level})

		case *ast.HTMLBlock:
			continue

		case *ast.List:
			flushText()
			top := stack[len(stack)-1].node
			top.Children = append(top.Children, listNodes(node, src)...)

		default:
			t := extractText(n, src)
			if t != "" {
				if currentText.Len() > 0 {
					currentText.WriteString("\n\n")
				}
				currentText.WriteString(t)
			}
		}
	}
	flushText()

	tree.Children = root.Children
	if root.Text != "" {
		// Text before the first heading stays first.
		tree.Children = append([]*doctree.DocNode{{Text: root.Text}}, tree.Children...)
	}

	return tree, nil
}

// listNodes turns a list into one node per item, with nested lists as children.
func listNodes(list *ast.List, src []byte) []*doctree.DocNode {
	var nodes []*doctree.DocNode
	for li := list.FirstChild(); li != nil; li = li.NextSibling() {
		node := &doctree.DocNode{}
		var parts []string
		for c := li.FirstChild(); c != nil; c = c.NextSibling() {
			if sub, ok := c.(*ast.List); ok {
				node.Children = append(node.Children, listNodes(sub, src)...)
				continue
			}
			if t := extractText(c, src); t != "" {
				parts = append(parts, t)
			}
		}
		node.Text = strings.Join(parts, " ")
		nodes = append(nodes, node)
	}
	return nodes
}

// extractText gets the text content of a goldmark AST node. Blocks with
// inline children are walked; leaf blocks (code) contribute their raw lines.
func extractText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if n.Type() == ast.TypeBlock && !n.HasChildren() {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
		return strings.TrimSpace(buf.String())
	}

	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(src))
			if t.HardLineBreak() {
				buf.WriteByte('\n')
			} else if t.SoftLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(t.Value)
		default:
			if c.Type() == ast.TypeBlock {
				if buf.Len() > 0 {
					buf.WriteString("\n\n")
				}
			}
			buf.WriteString(extractText(c, src))
		}
	}
	return strings.TrimSpace(buf.String())
}
