// Package render formats answers and their sources for terminal output.
package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const (
	// MaxSources is the number of source titles shown under an answer.
	MaxSources = 3
	// MaxTitleLength is the rune limit for a displayed title.
	MaxTitleLength = 150
)

const untitled = "Untitled"

var md = goldmark.New()

// PlainText strips markdown formatting from an answer, keeping paragraphs,
// list items and code blocks on their own lines.
func PlainText(source string) string {
	src := []byte(source)
	doc := md.Parser().Parse(text.NewReader(src))

	var buf bytes.Buffer
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Paragraph, *ast.Heading, *ast.TextBlock:
			if !entering {
				endBlock(&buf, n)
			}
		case *ast.ListItem:
			if entering {
				buf.WriteString(listMarker(node))
			}
		case *ast.ThematicBreak:
			if entering {
				buf.WriteString("---\n\n")
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if entering {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					buf.Write(seg.Value(src))
				}
				buf.WriteString("\n")
				return ast.WalkSkipChildren, nil
			}
		case *ast.AutoLink:
			if entering {
				buf.Write(node.Label(src))
			}
		case *ast.Text:
			if entering {
				buf.Write(node.Segment.Value(src))
				if (node.HardLineBreak() || node.SoftLineBreak()) && node.NextSibling() != nil {
					buf.WriteByte('\n')
				}
			}
		case *ast.RawHTML, *ast.HTMLBlock:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(buf.String())
}

// endBlock closes a text block. Blocks inside list items are separated by a
// single newline, others by a blank line.
func endBlock(buf *bytes.Buffer, n ast.Node) {
	if _, inList := n.Parent().(*ast.ListItem); inList {
		buf.WriteString("\n")
		return
	}
	buf.WriteString("\n\n")
}

func listMarker(item *ast.ListItem) string {
	list, ok := item.Parent().(*ast.List)
	if !ok || !list.IsOrdered() {
		return "- "
	}
	pos := list.Start
	for sib := item.PreviousSibling(); sib != nil; sib = sib.PreviousSibling() {
		pos++
	}
	return fmt.Sprintf("%d. ", pos)
}

// Title shortens a source title to MaxTitleLength runes, marking a cut with
// an ellipsis. A blank title renders as "Untitled".
func Title(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return untitled
	}
	runes := []rune(title)
	if len(runes) <= MaxTitleLength {
		return title
	}
	return string(runes[:MaxTitleLength]) + "..."
}

// Sources formats at most MaxSources titles for display, in retrieval order.
func Sources(titles []string) []string {
	n := min(len(titles), MaxSources)
	out := make([]string, n)
	for i := range n {
		out[i] = Title(titles[i])
	}
	return out
}

// Answer renders an answer followed by its numbered sources.
func Answer(answer string, titles []string) string {
	var b strings.Builder
	b.WriteString(PlainText(answer))

	sources := Sources(titles)
	if len(sources) > 0 {
		b.WriteString("\n\nSources:\n")
		for i, s := range sources {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, s)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
