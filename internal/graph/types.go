// Package graph defines the node/link data model of the citation graph viewer.
package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// NodeType identifies the kind of entity a node represents.
type NodeType string

// Known node types. The backend may send others; they are kept verbatim.
const (
	NodeTypePaper   NodeType = "paper"
	NodeTypeAuthor  NodeType = "author"
	NodeTypeJournal NodeType = "journal"
)

// LinkType identifies the relationship a link represents.
type LinkType string

// Known link types.
const (
	LinkCites       LinkType = "cites"
	LinkWrote       LinkType = "wrote"
	LinkAuthored    LinkType = "authored"
	LinkPublishedIn LinkType = "published_in"
)

// Data is the body of a /api/graph response.
type Data struct {
	Nodes []*Node `json:"nodes"`
	Links []*Link `json:"links"`
}

// Node is a paper, author or journal in the graph.
type Node struct {
	ID      string     `json:"id"`
	Type    NodeType   `json:"type"`
	Name    string     `json:"name,omitempty"`
	Title   string     `json:"title,omitempty"`
	Year    FlexString `json:"year,omitempty"`
	Journal string     `json:"journal,omitempty"`
	Authors StringList `json:"authors,omitempty"`

	// Simulation state. FX/FY are non-nil only while the node is pinned.
	Index int      `json:"-"`
	X     float64  `json:"x,omitempty"`
	Y     float64  `json:"y,omitempty"`
	VX    float64  `json:"-"`
	VY    float64  `json:"-"`
	FX    *float64 `json:"fx,omitempty"`
	FY    *float64 `json:"fy,omitempty"`
}

// Pin fixes the node at (x, y).
func (n *Node) Pin(x, y float64) {
	n.FX = &x
	n.FY = &y
}

// Unpin releases a fixed position.
func (n *Node) Unpin() {
	n.FX = nil
	n.FY = nil
}

// Pinned reports whether the node has a fixed position.
func (n *Node) Pinned() bool {
	return n.FX != nil && n.FY != nil
}

// Link is a directed relationship between two nodes.
type Link struct {
	Source NodeRef  `json:"source"`
	Target NodeRef  `json:"target"`
	Type   LinkType `json:"type"`
}

// Touches reports whether either endpoint of the link is the node with the given id.
func (l *Link) Touches(id string) bool {
	return l.Source.ID == id || l.Target.ID == id
}

// NodeRef refers to a node by id. After Bind, Node points at the live node.
type NodeRef struct {
	ID   string
	Node *Node
}

// UnmarshalJSON accepts a string id, a numeric id, or an object with an "id" field.
func (r *NodeRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return fmt.Errorf("node reference is empty")
	}

	switch data[0] {
	case '"':
		return json.Unmarshal(data, &r.ID)
	case '{':
		var obj struct {
			ID FlexString `json:"id"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		r.ID = obj.ID.String()
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("cannot unmarshal %s into NodeRef", string(data))
		}
		r.ID = n.String()
		return nil
	}
}

// MarshalJSON writes the reference as its id.
func (r NodeRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.ID)
}

// FlexString can unmarshal from either string or number JSON values.
// The backend sends years as "", "2020" or 2020.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexString(n.String())
		return nil
	}

	return fmt.Errorf("cannot unmarshal %s into FlexString", string(data))
}

func (f FlexString) String() string {
	return string(f)
}

// Int returns the numeric value, or 0 if the string is not an integer.
func (f FlexString) Int() int {
	n, err := strconv.Atoi(strings.TrimSpace(string(f)))
	if err != nil {
		return 0
	}
	return n
}

// StringList unmarshals from a JSON array of strings or from a single
// comma-separated string, which the backend stores for hand-entered papers.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*l = nil
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("cannot unmarshal %s into StringList", string(data))
	}
	*l = SplitList(s)
	return nil
}

// Join returns the entries joined by ", ".
func (l StringList) Join() string {
	return strings.Join(l, ", ")
}

// SplitList splits a comma-separated string, trimming entries and dropping empty ones.
func SplitList(s string) StringList {
	var out StringList
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
