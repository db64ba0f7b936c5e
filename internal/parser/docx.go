package parser

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dgallion1/jobtrail/internal/doctree"
	"github.com/fumiama/go-docx"
)

// DOCXParser handles .docx resumes. Heading styles nest sections and
// list-style paragraphs become list items under the current section.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	// go-docx needs a ReadSeeker+size, so write to temp file.
	tmp, err := os.CreateTemp("", "jobtrail-docx-*.docx")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("seek temp file: %w", err)
	}

	doc, err := docx.Parse(tmp, int64(size))
	tmp.Close()
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	tree := &doctree.DocTree{
		Title: strings.TrimSuffix(filename, ".docx"),
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

	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}

		// Check if paragraph has a heading style.
		level := docxHeadingLevel(para)
		text := docxParagraphText(para)

		if level > 0 && text != "" {
			flushText()
			newNode := &doctree.DocNode{Title: text}
			for len(stack) > 1 && stack[len(stack)-1].level >= level {
				stack = stack[:len(stack)-1]
			}
			parent := stack[len(stack)-1].node
			parent.Children = append(parent.Children, newNode)
			stack = append(stack, stackEntry{node: newNode, level: level})
		} else if text != "" && docxIsListItem(para) {
			flushText()
			top := stack[len(stack)-1].node
			top.Children = append(top.Children, &doctree.DocNode{Text: text})
		} else if text != "" {
			if currentText.Len() > 0 {
				currentText.WriteString("\n\n")
			}
			currentText.WriteString(text)
		}
	}
	flushText()

	tree.Children = root.Children
	if root.Text != "" {
		tree.Children = append([]*doctree.DocNode{{Text: root.Text}}, tree.Children...)
	}

	return tree, nil
}

func docxStyle(para *docx.Paragraph) string {
	if para.Properties == nil || para.Properties.Style == nil {
		return ""
	}
	return strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
}

func docxHeadingLevel(para *docx.Paragraph) int {
	style := docxStyle(para)
	if !strings.HasPrefix(style, "heading") {
		return 0
	}
	switch strings.TrimPrefix(style, "heading") {
	case "1":
		return 1
	case "2":
		return 2
	case "3":
		return 3
	case "4":
		return 4
	case "5":
		return 5
	case "6":
		return 6
	}
	return 0
}

func docxIsListItem(para *docx.Paragraph) bool {
	style := docxStyle(para)
	return strings.HasPrefix(style, "listparagraph") || strings.HasPrefix(style, "listbullet")
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
