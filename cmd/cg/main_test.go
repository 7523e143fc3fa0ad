package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/matsen/citegraph/internal/api"
	"github.com/matsen/citegraph/internal/forms"
	"github.com/matsen/citegraph/internal/graph"
	"github.com/matsen/citegraph/internal/storage"
)

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"not found", &api.APIError{StatusCode: 404, Message: "Author not found"}, ExitNotFound},
		{"no snapshot", fmt.Errorf("loading: %w", storage.ErrNoSnapshot), ExitNotFound},
		{"server error", &api.APIError{StatusCode: 500}, ExitAPIError},
		{"network", fmt.Errorf("%w: connection refused", api.ErrNetwork), ExitNetworkError},
		{"bad body", fmt.Errorf("%w: unexpected EOF", api.ErrInvalidResponse), ExitNetworkError},
		{"timeout", context.DeadlineExceeded, ExitNetworkError},
		{"validation", forms.ErrValidation, ExitDataError},
		{"other", errors.New("boom"), ExitDataError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCodeFor(tt.err); got != tt.want {
				t.Errorf("exitCodeFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestPaperMeta(t *testing.T) {
	tests := []struct {
		name    string
		year    graph.FlexString
		journal string
		authors graph.StringList
		want    string
	}{
		{"all fields", "2015", "Nature", graph.StringList{"LeCun", "Hinton"}, "2015 | Nature | LeCun, Hinton"},
		{"year only", "1986", "", nil, "1986"},
		{"nothing", "", "", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := paperMeta(tt.year, tt.journal, tt.authors); got != tt.want {
				t.Errorf("paperMeta() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := [][]string{
		{"render"}, {"viz"}, {"stats"}, {"add"}, {"upload"}, {"serve"},
		{"query", "author"}, {"query", "citations"}, {"query", "influential"},
		{"snapshot", "list"}, {"snapshot", "export"}, {"snapshot", "import"}, {"snapshot", "prune"},
		{"config", "show"}, {"config", "init"},
	}
	for _, path := range want {
		cmd, rest, err := rootCmd.Find(path)
		if err != nil || len(rest) != 0 || cmd.Name() != path[len(path)-1] {
			t.Errorf("command %v not registered", path)
		}
	}
}
