package report

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Render serializes the report as YAML. Multiline strings (failure messages,
// diff payloads, traced stderr) render as literal blocks so reports stay
// readable in a pager.
func Render(r *Report) ([]byte, error) {
	var node yaml.Node
	if err := node.Encode(r); err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	literalizeMultiline(&node)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return buf.Bytes(), nil
}

// literalizeMultiline walks the node tree and switches multiline string
// scalars to literal block style. Strings with trailing spaces on a line
// cannot round-trip through literal style, so those keep their default style.
func literalizeMultiline(n *yaml.Node) {
	if n.Kind == yaml.ScalarNode && n.Tag == "!!str" &&
		strings.Contains(n.Value, "\n") && literalSafe(n.Value) {
		n.Style = yaml.LiteralStyle
	}
	for _, child := range n.Content {
		literalizeMultiline(child)
	}
}

func literalSafe(s string) bool {
	for _, line := range strings.Split(s, "\n") {
		if strings.HasSuffix(line, " ") || strings.HasSuffix(line, "\t") {
			return false
		}
	}
	return true
}
