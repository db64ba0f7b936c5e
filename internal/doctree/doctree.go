package doctree

import (
	"strings"

	"github.com/dgallion1/jobtrail/internal/bullets"
)

// DocTree is the root of a parsed job posting or resume.
type DocTree struct {
	Title    string     // Document title (from metadata or filename)
	Children []*DocNode // Top-level sections
}

// DocNode is a section heading, a text block, or a list item.
type DocNode struct {
	Title    string     // Section heading (empty for text blocks and list items)
	Text     string     // Text content; one bullet per non-blank line
	Page     int        // Source page (0 if N/A)
	Children []*DocNode // Subsections or nested list items
}

// Forest converts the tree into bullet items. A titled node becomes a bullet
// with its text lines and subsections nested under it. An untitled node
// contributes its text lines at the current depth and its children one level
// below the last of those lines.
func (t *DocTree) Forest() []*bullets.Item {
	return nodesToItems(t.Children, 0)
}

// BulletText renders the tree as indented "•" text.
func (t *DocTree) BulletText() string {
	return bullets.Format(t.Forest())
}

// PlainText joins every title and text block, one per line, for hashing and
// prompting.
func (t *DocTree) PlainText() string {
	var sb strings.Builder
	var walk func(nodes []*DocNode)
	walk = func(nodes []*DocNode) {
		for _, n := range nodes {
			for _, s := range []string{n.Title, n.Text} {
				if s == "" {
					continue
				}
				if sb.Len() > 0 {
					sb.WriteString("\n")
				}
				sb.WriteString(s)
			}
			walk(n.Children)
		}
	}
	walk(t.Children)
	return sb.String()
}

func nodesToItems(nodes []*DocNode, level int) []*bullets.Item {
	var items []*bullets.Item
	for _, n := range nodes {
		lines := textLines(n.Text)

		if n.Title != "" {
			item := &bullets.Item{Text: n.Title, Level: level}
			for _, l := range lines {
				item.Children = append(item.Children, &bullets.Item{Text: l, Level: level + 1})
			}
			item.Children = append(item.Children, nodesToItems(n.Children, level+1)...)
			items = append(items, item)
			continue
		}

		var last *bullets.Item
		for _, l := range lines {
			last = &bullets.Item{Text: l, Level: level}
			items = append(items, last)
		}
		if last != nil {
			last.Children = append(last.Children, nodesToItems(n.Children, level+1)...)
		} else {
			items = append(items, nodesToItems(n.Children, level)...)
		}
	}
	return items
}

// textLines splits a text block into trimmed, non-blank lines with common
// list markers removed.
func textLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		for _, marker := range []string{bullets.Marker, "- ", "* ", "+ "} {
			line = strings.TrimSpace(strings.TrimPrefix(line, marker))
		}
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
