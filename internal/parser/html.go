package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/jobtrail/internal/doctree"
	"golang.org/x/net/html"
)

// HTMLParser handles saved job posting pages and scraped profile HTML.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	tree := &doctree.DocTree{
		Title: strings.TrimSuffix(strings.TrimSuffix(filename, ".html"), ".htm"),
	}
	if title := findTitle(doc); title != "" {
		tree.Title = title
	}

	type stackEntry struct {
		node  *doctree.DocNode
		level int
	}
	root := &doctree.DocNode{Title: tree.Title}
	stack := []stackEntry{{node: root, level: 0}}
	var currentText strings.Builder

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

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			level := headingLevel(n.Data)
			if level > 0 {
				flushText()
				newNode := &doctree.DocNode{Title: textContent(n)}
				for len(stack) > 1 && stack[len(stack)-1].level >= level {
					stack = stack[:len(stack)-1]
				}
				parent := stack[len(stack)-1].node
				parent.Children = append(parent.Children, newNode)
				stack = append(stack, stackEntry{node: newNode, level: level})
				return
			}

			switch n.Data {
			case "script", "style", "noscript", "nav", "footer", "header", "svg", "form":
				return
			case "ul", "ol":
				flushText()
				top := stack[len(stack)-1].node
				top.Children = append(top.Children, htmlListNodes(n)...)
				return
			case "p", "td", "blockquote", "dd", "dt":
				if t := textContent(n); t != "" {
					if currentText.Len() > 0 {
						currentText.WriteString("\n\n")
					}
					currentText.WriteString(t)
				}
				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	if body := findBody(doc); body != nil {
		walk(body)
	} else {
		walk(doc)
	}
	flushText()

	tree.Children = root.Children
	if root.Text != "" {
		tree.Children = append([]*doctree.DocNode{{Text: root.Text}}, tree.Children...)
	}

	return tree, nil
}

// htmlListNodes converts the <li> children of a list into nodes. Nested
// lists inside an item become that item's children.
func htmlListNodes(list *html.Node) []*doctree.DocNode {
	var nodes []*doctree.DocNode
	for li := list.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.Data != "li" {
			continue
		}
		node := &doctree.DocNode{}
		var own strings.Builder
		for c := li.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.Data == "ul" || c.Data == "ol") {
				node.Children = append(node.Children, htmlListNodes(c)...)
				continue
			}
			own.WriteString(rawText(c))
		}
		node.Text = collapseSpace(own.String())
		if node.Text == "" && len(node.Children) == 0 {
			continue
		}
		nodes = append(nodes, node)
	}
	return nodes
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}

func textContent(n *html.Node) string {
	return collapseSpace(rawText(n))
}

func rawText(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			case "br":
				buf.WriteString(" ")
			}
		}
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return buf.String()
}

// collapseSpace folds runs of whitespace, including newlines from source
// formatting, into single spaces.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
