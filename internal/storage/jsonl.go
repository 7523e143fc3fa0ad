// Package storage caches fetched graphs: snapshots in SQLite, and a JSONL
// export format for moving a graph between machines.
package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matsen/citegraph/internal/graph"
)

// MaxJSONLLineCapacity is the maximum buffer size for reading JSONL lines (1MB per line).
const MaxJSONLLineCapacity = 1024 * 1024

// Record kinds in a graph JSONL file.
const (
	KindNode = "node"
	KindLink = "link"
)

// record is one line of a graph JSONL file.
type record struct {
	Kind string      `json:"kind"`
	Node *graph.Node `json:"node,omitempty"`
	Link *graph.Link `json:"link,omitempty"`
}

// WriteGraph writes every node, then every link, one JSON object per line.
func WriteGraph(w io.Writer, data *graph.Data) error {
	enc := json.NewEncoder(w)
	for i, n := range data.Nodes {
		if err := enc.Encode(record{Kind: KindNode, Node: n}); err != nil {
			return fmt.Errorf("encoding node %d: %w", i, err)
		}
	}
	for i, l := range data.Links {
		if err := enc.Encode(record{Kind: KindLink, Link: l}); err != nil {
			return fmt.Errorf("encoding link %d: %w", i, err)
		}
	}
	return nil
}

// ReadGraph reads a graph written by WriteGraph and binds its links.
func ReadGraph(r io.Reader) (*graph.Data, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, MaxJSONLLineCapacity)
	scanner.Buffer(buf, MaxJSONLLineCapacity)

	data := &graph.Data{}
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue // Skip empty lines
		}

		var rec record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("parsing line %d: %w", lineNum, err)
		}
		switch {
		case rec.Kind == KindNode && rec.Node != nil:
			data.Nodes = append(data.Nodes, rec.Node)
		case rec.Kind == KindLink && rec.Link != nil:
			data.Links = append(data.Links, rec.Link)
		default:
			return nil, fmt.Errorf("line %d: unknown record kind %q", lineNum, rec.Kind)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading graph file: %w", err)
	}

	if err := graph.Bind(data.Nodes, data.Links); err != nil {
		return nil, err
	}
	return data, nil
}

// WriteGraphFile writes a graph to a JSONL file, replacing existing content.
func WriteGraphFile(path string, data *graph.Data) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating graph file: %w", err)
	}
	if err := WriteGraph(f, data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadGraphFile reads a graph from a JSONL file.
func ReadGraphFile(path string) (*graph.Data, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening graph file: %w", err)
	}
	defer f.Close()
	return ReadGraph(f)
}
