package graph

import (
	"errors"
	"fmt"
)

// Binding errors.
var (
	ErrNodeNotFound  = errors.New("node not found")
	ErrDuplicateNode = errors.New("duplicate node id")
)

// Bind resolves every link endpoint to the live node with that id and
// assigns each node its array index. It must be redone whenever the node
// set changes. On error no link is modified.
func Bind(nodes []*Node, links []*Link) error {
	byID := make(map[string]*Node, len(nodes))
	for _, n := range nodes {
		if n == nil {
			return fmt.Errorf("%w: nil node", ErrNodeNotFound)
		}
		if _, dup := byID[n.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID)
		}
		byID[n.ID] = n
	}

	for _, l := range links {
		if l == nil {
			return fmt.Errorf("%w: nil link", ErrNodeNotFound)
		}
		if _, ok := byID[l.Source.ID]; !ok {
			return fmt.Errorf("%w: %s", ErrNodeNotFound, l.Source.ID)
		}
		if _, ok := byID[l.Target.ID]; !ok {
			return fmt.Errorf("%w: %s", ErrNodeNotFound, l.Target.ID)
		}
	}

	for i, n := range nodes {
		n.Index = i
	}
	for _, l := range links {
		l.Source.Node = byID[l.Source.ID]
		l.Target.Node = byID[l.Target.ID]
	}
	return nil
}

// Clone returns a deep copy of the data with links bound to the copied nodes.
// Links whose endpoints are missing keep a nil Node. Nil entries stay nil.
func (d *Data) Clone() *Data {
	out := &Data{
		Nodes: make([]*Node, 0, len(d.Nodes)),
		Links: make([]*Link, 0, len(d.Links)),
	}

	byID := make(map[string]*Node, len(d.Nodes))
	for _, n := range d.Nodes {
		if n == nil {
			out.Nodes = append(out.Nodes, nil)
			continue
		}
		c := *n
		c.Authors = append(StringList(nil), n.Authors...)
		if n.FX != nil {
			fx := *n.FX
			c.FX = &fx
		}
		if n.FY != nil {
			fy := *n.FY
			c.FY = &fy
		}
		out.Nodes = append(out.Nodes, &c)
		byID[c.ID] = &c
	}

	for _, l := range d.Links {
		if l == nil {
			out.Links = append(out.Links, nil)
			continue
		}
		out.Links = append(out.Links, &Link{
			Source: NodeRef{ID: l.Source.ID, Node: byID[l.Source.ID]},
			Target: NodeRef{ID: l.Target.ID, Node: byID[l.Target.ID]},
			Type:   l.Type,
		})
	}
	return out
}
