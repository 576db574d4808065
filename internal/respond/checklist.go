// ABOUTME: Markdown list-item extraction for the checklist output flag

package respond

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

var checklistParser = goldmark.New(goldmark.WithExtensions(extension.TaskList))

// checklistItems extracts the markdown list items from AI output. Task-list
// markers are stripped by the parser. When the model ignored the formatting
// instruction and produced no list at all, every non-empty line becomes an
// item so the artifact is never blank.
func checklistItems(content string) []string {
	source := []byte(content)
	doc := checklistParser.Parser().Parse(text.NewReader(source))

	var items []string
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if _, ok := n.(*ast.ListItem); !ok {
			return ast.WalkContinue, nil
		}
		item := strings.TrimSpace(string(nodeText(n, source)))
		if item != "" {
			items = append(items, item)
		}
		return ast.WalkSkipChildren, nil
	})

	if len(items) > 0 {
		return items
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			items = append(items, line)
		}
	}
	return items
}

// nodeText concatenates the text segments beneath a node.
func nodeText(n ast.Node, source []byte) []byte {
	var out []byte
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			out = append(out, t.Segment.Value(source)...)
			continue
		}
		out = append(out, nodeText(c, source)...)
	}
	return out
}
