package storage

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matsen/citegraph/internal/graph"
)

func TestGraphFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.jsonl")
	if err := WriteGraphFile(path, testGraph()); err != nil {
		t.Fatalf("WriteGraphFile() error = %v", err)
	}

	data, err := ReadGraphFile(path)
	if err != nil {
		t.Fatalf("ReadGraphFile() error = %v", err)
	}
	if len(data.Nodes) != 3 || len(data.Links) != 2 {
		t.Fatalf("got %d nodes, %d links", len(data.Nodes), len(data.Links))
	}
	if data.Nodes[0].X != 12.5 || data.Nodes[0].Authors.Join() != "LeCun, Bengio, Hinton" {
		t.Errorf("p1 = %+v", data.Nodes[0])
	}
	if data.Links[0].Source.Node != data.Nodes[0] {
		t.Error("links not bound")
	}
}

func TestWriteGraph_OneRecordPerLine(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteGraph(&buf, testGraph()); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want 5", len(lines))
	}
	if !strings.HasPrefix(lines[0], `{"kind":"node"`) || !strings.HasPrefix(lines[4], `{"kind":"link"`) {
		t.Errorf("unexpected record order:\n%s", buf.String())
	}
	if !strings.Contains(lines[3], `"source":"p1","target":"p2"`) {
		t.Errorf("link written as %s", lines[3])
	}
}

func TestReadGraph_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"bad json", "{not json}\n", nil},
		{"unknown kind", `{"kind":"edge"}` + "\n", nil},
		{"dangling link", `{"kind":"node","node":{"id":"a","type":"paper"}}` + "\n" +
			`{"kind":"link","link":{"source":"a","target":"b","type":"cites"}}` + "\n", graph.ErrNodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadGraph(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("ReadGraph() succeeded")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestReadGraph_SkipsBlankLines(t *testing.T) {
	input := "\n" + `{"kind":"node","node":{"id":"a","type":"author","name":"A"}}` + "\n\n"
	data, err := ReadGraph(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if len(data.Nodes) != 1 || data.Nodes[0].Name != "A" {
		t.Errorf("nodes = %+v", data.Nodes)
	}
}
