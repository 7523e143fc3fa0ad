package viz

import (
	"encoding/json"
	"fmt"

	"github.com/matsen/citegraph/internal/graph"
)

// Elements is the graph as embedded in the page for client-side hover
// and highlighting.
type Elements struct {
	Nodes []ElementNode `json:"nodes"`
	Links []ElementLink `json:"links"`
}

// ElementNode carries the fields a tooltip shows.
type ElementNode struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Label   string `json:"label"`
	Year    string `json:"year,omitempty"`
	Journal string `json:"journal,omitempty"`
	Authors string `json:"authors,omitempty"`
}

// ElementLink is a link by endpoint ids.
type ElementLink struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// ToElementsJSON converts graph data to the page's element JSON.
func ToElementsJSON(data *graph.Data) (string, error) {
	elements := Elements{
		Nodes: make([]ElementNode, 0),
		Links: make([]ElementLink, 0),
	}
	if data != nil {
		for _, n := range data.Nodes {
			elements.Nodes = append(elements.Nodes, ElementNode{
				ID:      n.ID,
				Type:    string(n.Type),
				Label:   n.DisplayName(),
				Year:    n.Year.String(),
				Journal: n.Journal,
				Authors: n.Authors.Join(),
			})
		}
		for i, l := range data.Links {
			elements.Links = append(elements.Links, ElementLink{
				ID:     linkID(l, i),
				Source: l.Source.ID,
				Target: l.Target.ID,
				Type:   string(l.Type),
			})
		}
	}

	jsonBytes, err := json.Marshal(elements)
	if err != nil {
		return "", fmt.Errorf("marshaling page elements to JSON: %w", err)
	}
	return string(jsonBytes), nil
}

// linkID is unique within one rendering only.
func linkID(l *graph.Link, index int) string {
	return fmt.Sprintf("%s-%s-%s-%d", l.Source.ID, l.Target.ID, l.Type, index)
}
