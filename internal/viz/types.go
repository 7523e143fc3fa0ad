// Package viz renders the viewer as a self-contained HTML page.
package viz

import (
	"html/template"

	"github.com/matsen/citegraph/internal/forms"
	"github.com/matsen/citegraph/internal/graph"
	"github.com/matsen/citegraph/internal/notify"
	"github.com/matsen/citegraph/internal/query"
)

// Tab ids of the two tab groups.
const (
	TabAddPaper   = "add-paper"
	TabUploadData = "upload-data"

	QueryTabAuthor      = "author-query"
	QueryTabCitation    = "citation-query"
	QueryTabInfluential = "influential-query"
)

// Tabs lists the main tab group in display order.
var Tabs = []string{TabAddPaper, TabUploadData}

// QueryTabs lists the query tab group in display order.
var QueryTabs = []string{QueryTabAuthor, QueryTabCitation, QueryTabInfluential}

// Page is everything the viewer page shows.
type Page struct {
	Title string

	// SVG is the serialized scene; empty when the graph has no nodes.
	SVG   template.HTML
	Graph *graph.Data
	Stats graph.Stats

	Layout        string
	LabelsVisible bool
	Scale         float64

	ActiveTab      string
	ActiveQueryTab string

	Notification notify.Notification
	Loading      bool
	Upload       forms.UploadState
	Paper        forms.PaperForm
	Results      map[query.Kind]query.Result

	TooltipHTML    string
	TooltipLeft    float64
	TooltipTop     float64
	TooltipOpacity float64

	Details *graph.Node

	// Interactive pages post UI events back to the server that rendered them.
	Interactive bool
}

// IsEmpty returns true if the graph has no nodes.
func (p *Page) IsEmpty() bool {
	return p.Graph == nil || len(p.Graph.Nodes) == 0
}

// LabelsButtonText is the label toggle's caption for the current state.
func LabelsButtonText(visible bool) string {
	if visible {
		return "Hide Labels"
	}
	return "Show Labels"
}
