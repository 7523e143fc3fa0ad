package graph

// MaxLabelLength is the number of characters shown before a label is truncated.
const MaxLabelLength = 15

// Node radii by type.
const (
	RadiusPaper   = 8
	RadiusAuthor  = 6
	RadiusJournal = 10
	RadiusDefault = 5
)

// DisplayName returns the node's name, falling back to its title, then its id.
func (n *Node) DisplayName() string {
	if n.Name != "" {
		return n.Name
	}
	if n.Title != "" {
		return n.Title
	}
	return n.ID
}

// Label returns the display name truncated to MaxLabelLength characters,
// with "..." appended when truncated.
func (n *Node) Label() string {
	return Truncate(n.DisplayName(), MaxLabelLength)
}

// Radius returns the rendered circle radius for the node's type.
func (n *Node) Radius() float64 {
	switch n.Type {
	case NodeTypePaper:
		return RadiusPaper
	case NodeTypeAuthor:
		return RadiusAuthor
	case NodeTypeJournal:
		return RadiusJournal
	default:
		return RadiusDefault
	}
}

// Truncate shortens s to maxLen runes and appends "..." if anything was cut.
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
