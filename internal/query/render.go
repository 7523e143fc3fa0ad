package query

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/matsen/citegraph/internal/api"
)

var templates = template.Must(template.New("query").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(queryTemplates))

// RenderAuthor renders an author lookup result.
func RenderAuthor(res *api.AuthorResult) (template.HTML, error) {
	return render("author", res)
}

// RenderCitations renders a citation analysis result.
func RenderCitations(res *api.CitationResult) (template.HTML, error) {
	return render("citations", res)
}

// RenderInfluential renders the influence ranking, numbered from 1 in the
// order given.
func RenderInfluential(papers []api.InfluentialPaper) (template.HTML, error) {
	return render("influential", papers)
}

// RenderError renders an inline query failure.
func RenderError(message string) (template.HTML, error) {
	return render("error", message)
}

func render(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("rendering %s results: %w", name, err)
	}
	return template.HTML(buf.String()), nil
}

const queryTemplates = `
{{- define "paper"}}
    {{- if .Year.String}}
    <p><strong>Year:</strong> {{.Year.String}}</p>
    {{- end}}
    {{- if .Journal}}
    <p><strong>Journal:</strong> {{.Journal}}</p>
    {{- end}}
    {{- if .Authors}}
    <p><strong>Authors:</strong> {{.Authors.Join}}</p>
    {{- end}}
{{- end}}

{{- define "author" -}}
<h3>Papers by {{.Author}} ({{.Count}} found)</h3>
{{- if not .Papers}}
<p>No papers found for this author.</p>
{{- else}}
{{- range .Papers}}
<div class="result-item">
    <h4>{{.Title}}</h4>
    {{- template "paper" .}}
</div>
{{- end}}
{{- end}}
{{end}}

{{- define "citations" -}}
<h3>Citation Analysis for "{{.Paper}}"</h3>
<div class="result-item">
    <h4>Citations Statistics</h4>
    <p><strong>Papers this paper cites:</strong> {{.CitationsCount}}</p>
    <p><strong>Papers that cite this paper:</strong> {{.CitedByCount}}</p>
</div>
{{- if .Cites}}
<div class="result-item"><h4>This paper cites:</h4>
{{- range .Cites}}
    <p>• {{.}}</p>
{{- end}}
</div>
{{- end}}
{{- if .CitedBy}}
<div class="result-item"><h4>This paper is cited by:</h4>
{{- range .CitedBy}}
    <p>• {{.}}</p>
{{- end}}
</div>
{{- end}}
{{- if and (not .Cites) (not .CitedBy)}}
<p>No citation relationships found for this paper.</p>
{{- end}}
{{end}}

{{- define "influential" -}}
<h3>Most Influential Papers (by citation count)</h3>
{{- if not .}}
<p>No papers found.</p>
{{- else}}
{{- range $i, $p := .}}
<div class="result-item">
    <h4>#{{inc $i}} {{$p.Title}}</h4>
    <p><strong>Citation Count:</strong> {{$p.CitationCount}}</p>
    {{- template "paper" $p}}
</div>
{{- end}}
{{- end}}
{{end}}

{{- define "error" -}}
<p style="color: red;">{{.}}</p>
{{end}}
`
