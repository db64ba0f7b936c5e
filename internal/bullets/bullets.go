// Package bullets converts plain text with "•"-marked lines into nested HTML
// lists. Indentation expresses nesting: every two leading spaces add one
// level.
package bullets

import (
	"regexp"
	"strings"
)

// Marker is the bullet character recognised in plain text.
const Marker = "•"

// Item is one bullet line and the bullets nested beneath it.
type Item struct {
	Text     string  // Bullet text with marker and surrounding whitespace stripped
	Level    int     // Nesting depth derived from indentation
	Children []*Item // Nested bullets in source order
}

var bulletLine = regexp.MustCompile(`^(\s*)•\s*(.*)$`)

// ToHTML renders text as a nested <ul> list. Empty input and input that
// already contains markup are returned unchanged; text without bullets is
// wrapped in a single paragraph.
func ToHTML(input string) string {
	if input == "" || strings.Contains(input, "<") {
		return input
	}

	lines := Normalize(input)
	hasBullets := false
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimLeft(line, " "), Marker) {
			hasBullets = true
			break
		}
	}
	if !hasBullets {
		return "<p>" + input + "</p>"
	}

	return Render(Parse(lines))
}

// Normalize splits input into lines and gives every "•"-delimited fragment
// its own line. Fragments keep the leading spaces of the line they came from,
// so inline bullets share a level. Lines without a marker are trimmed and
// dropped when blank.
func Normalize(input string) []string {
	var out []string
	for _, line := range strings.Split(input, "\n") {
		if !strings.Contains(line, Marker) {
			if t := strings.TrimSpace(line); t != "" {
				out = append(out, t)
			}
			continue
		}

		indent := strings.Repeat(" ", leadingSpaces(line))
		for _, frag := range strings.Split(line, Marker) {
			frag = strings.TrimSpace(frag)
			if frag == "" {
				continue
			}
			out = append(out, indent+Marker+" "+frag)
		}
	}
	return out
}

// Parse builds a forest from bullet lines. Each item becomes a child of the
// nearest preceding item with a strictly lower level; items without one are
// roots. Lines that are not bullets are skipped.
func Parse(lines []string) []*Item {
	var roots []*Item
	var stack []*Item

	for _, line := range lines {
		m := bulletLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		item := &Item{
			Text:  strings.TrimSpace(m[2]),
			Level: strings.Count(m[1], " ") / 2,
		}

		for len(stack) > 0 && stack[len(stack)-1].Level >= item.Level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			roots = append(roots, item)
		} else {
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, item)
		}
		stack = append(stack, item)
	}

	return roots
}

// Render writes a forest as nested <ul>/<li> markup. Text is not escaped.
func Render(forest []*Item) string {
	var sb strings.Builder
	renderList(&sb, forest)
	return sb.String()
}

func renderList(sb *strings.Builder, items []*Item) {
	if len(items) == 0 {
		return
	}
	sb.WriteString("<ul>")
	for _, item := range items {
		sb.WriteString("<li>")
		sb.WriteString(item.Text)
		renderList(sb, item.Children)
		sb.WriteString("</li>")
	}
	sb.WriteString("</ul>")
}

// Format writes a forest back to bullet text, two spaces of indentation per
// depth. Depth comes from tree position, not from Item.Level, so hand-built
// forests round-trip through Parse. Whitespace runs in item text, newlines
// included, fold to single spaces so each item stays on its own line.
func Format(forest []*Item) string {
	var sb strings.Builder
	var walk func(items []*Item, depth int)
	walk = func(items []*Item, depth int) {
		for _, item := range items {
			text := strings.Join(strings.Fields(strings.ReplaceAll(item.Text, Marker, " ")), " ")
			if text == "" {
				// A blank bullet would vanish on Normalize; lift its children.
				walk(item.Children, depth)
				continue
			}
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(strings.Repeat("  ", depth))
			sb.WriteString(Marker + " ")
			sb.WriteString(text)
			walk(item.Children, depth+1)
		}
	}
	walk(forest, 0)
	return sb.String()
}

// leadingSpaces counts literal spaces in the line's leading whitespace.
// Tabs are skipped and never count as indentation.
func leadingSpaces(line string) int {
	n := 0
	for _, r := range line {
		switch r {
		case ' ':
			n++
		case '\t', '\r', '\f', '\v':
		default:
			return n
		}
	}
	return n
}
