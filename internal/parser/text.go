package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/jobtrail/internal/doctree"
)

// TextParser handles plain text postings and resumes. Paragraphs are split
// on blank lines; a paragraph whose first line ends in ":" becomes a titled
// section ("Requirements:" followed by its lines).
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var paragraphs []string
	var current strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
		} else {
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			current.WriteString(line)
		}
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	tree := &doctree.DocTree{
		Title: strings.TrimSuffix(filename, ".txt"),
	}

	for _, para := range paragraphs {
		tree.Children = append(tree.Children, paragraphNode(para))
	}

	return tree, nil
}

func paragraphNode(para string) *doctree.DocNode {
	first, rest, found := strings.Cut(para, "\n")
	first = strings.TrimSpace(first)
	if found && strings.HasSuffix(first, ":") && len(first) > 1 {
		return &doctree.DocNode{
			Title: strings.TrimSpace(strings.TrimSuffix(first, ":")),
			Text:  rest,
		}
	}
	return &doctree.DocNode{Text: para}
}
