// Package host talks to the wallet host: it renders confirmation content
// and waits for the user's decision.
package host

import "strings"

// NodeType names a display node kind the host knows how to render.
type NodeType string

const (
	NodeHeading   NodeType = "heading"
	NodeText      NodeType = "text"
	NodeDivider   NodeType = "divider"
	NodeCopyable  NodeType = "copyable"
	NodeSensitive NodeType = "sensitive"
)

// Node is one display element. Label is only used by copyable and
// sensitive nodes.
type Node struct {
	Type  NodeType `json:"type"`
	Label string   `json:"label,omitempty"`
	Value string   `json:"value,omitempty"`
}

// Content is an ordered list of nodes shown top to bottom.
type Content []Node

func Heading(text string) Node { return Node{Type: NodeHeading, Value: text} }

func Text(text string) Node { return Node{Type: NodeText, Value: text} }

func Divider() Node { return Node{Type: NodeDivider} }

// Copyable renders a value the user may copy, such as an account id.
func Copyable(label, value string) Node {
	return Node{Type: NodeCopyable, Label: label, Value: value}
}

// Sensitive renders a value hidden until the user reveals it.
func Sensitive(label, value string) Node {
	return Node{Type: NodeSensitive, Label: label, Value: value}
}

// Row renders a labeled line as text.
func Row(label, value string) Node {
	return Text(label + ": " + value)
}

// String flattens content for logs and plain-text hosts. Sensitive values
// are masked.
func (c Content) String() string {
	lines := make([]string, 0, len(c))
	for _, n := range c {
		switch n.Type {
		case NodeDivider:
			lines = append(lines, "---")
		case NodeSensitive:
			lines = append(lines, n.Label+": ********")
		case NodeCopyable:
			lines = append(lines, n.Label+": "+n.Value)
		default:
			lines = append(lines, n.Value)
		}
	}
	return strings.Join(lines, "\n")
}
