package viz

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/matsen/citegraph/internal/query"
)

// compiledTemplate is parsed at init time to fail fast on template errors.
var compiledTemplate *template.Template

func init() {
	compiledTemplate = template.Must(template.New("viz").Funcs(template.FuncMap{
		"labelsText": LabelsButtonText,
		"active": func(current, id string) string {
			if current == id {
				return " active"
			}
			return ""
		},
		"pct": func(f float64) string {
			return fmt.Sprintf("%.0f%%", f*100)
		},
	}).Parse(htmlTemplate))
}

// templateData holds data for the HTML template.
type templateData struct {
	*Page
	Elements          template.JS
	TooltipSafe       template.HTML
	AuthorResult      query.Result
	CitationResult    query.Result
	InfluentialResult query.Result
	Tabs              []string
	QueryTabs         []string
}

// GenerateHTML renders the viewer page. A static page for an empty graph
// gets the empty-state page instead.
func GenerateHTML(page *Page) (string, error) {
	if page == nil {
		return "", fmt.Errorf("page cannot be nil")
	}
	if page.IsEmpty() && !page.Interactive {
		return generateEmptyHTML(), nil
	}

	p := *page
	if p.Title == "" {
		p.Title = "Citation Graph"
	}
	if p.ActiveTab == "" {
		p.ActiveTab = TabAddPaper
	}
	if p.ActiveQueryTab == "" {
		p.ActiveQueryTab = QueryTabAuthor
	}

	elementsJSON, err := ToElementsJSON(p.Graph)
	if err != nil {
		return "", err
	}

	data := templateData{
		Page:              &p,
		Elements:          template.JS(elementsJSON),
		TooltipSafe:       template.HTML(p.TooltipHTML), // escaped by interact.TooltipHTML
		AuthorResult:      p.Results[query.KindAuthor],
		CitationResult:    p.Results[query.KindCitations],
		InfluentialResult: p.Results[query.KindInfluential],
		Tabs:              Tabs,
		QueryTabs:         QueryTabs,
	}

	var buf bytes.Buffer
	if err := compiledTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering page: %w", err)
	}
	return buf.String(), nil
}

// generateEmptyHTML returns HTML for an empty graph state.
func generateEmptyHTML() string {
	return `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>Citation Graph - Empty</title>
  <style>
    body {
      font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif;
      display: flex;
      justify-content: center;
      align-items: center;
      height: 100vh;
      margin: 0;
      background: #f5f5f5;
    }
    .empty-state {
      text-align: center;
      color: #666;
    }
    .empty-state h2 {
      margin-bottom: 0.5em;
      color: #333;
    }
    .empty-state code {
      background: #e0e0e0;
      padding: 2px 6px;
      border-radius: 3px;
    }
  </style>
</head>
<body>
  <div class="empty-state">
    <h2>No graph data</h2>
    <p>The backend returned no papers, authors or journals.</p>
    <p>Add papers using <code>cg add</code></p>
    <p>Upload a CSV or JSON file using <code>cg upload</code></p>
  </div>
</body>
</html>`
}

const htmlTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <style>
    * { box-sizing: border-box; }
    body {
      font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif;
      margin: 0;
      background: #f5f5f5;
      color: #333;
    }
    .container { display: flex; gap: 16px; padding: 16px; }
    .graph-panel { flex: 3; background: white; border-radius: 6px; padding: 12px; }
    .side-panel { flex: 2; display: flex; flex-direction: column; gap: 16px; }
    .card { background: white; border-radius: 6px; padding: 12px; }
    #graph { width: 100%; height: 550px; border: 1px solid #eee; position: relative; }
    .controls button { margin-right: 4px; }
    .controls button.active { background: #4A90D9; color: white; }
    .stats { display: flex; gap: 12px; margin-top: 8px; }
    .stat { text-align: center; }
    .stat span { display: block; font-size: 20px; font-weight: bold; }
    .link { stroke: #999; stroke-opacity: 0.6; }
    .link.cites { stroke: #4A90D9; }
    .link.wrote, .link.authored { stroke: #5CB85C; }
    .link.published_in { stroke: #E8923A; }
    .link.highlighted { stroke: #ff6b6b; stroke-opacity: 1; }
    .node { stroke: #fff; stroke-width: 1.5px; cursor: pointer; }
    .node.paper { fill: #4A90D9; }
    .node.author { fill: #5CB85C; }
    .node.journal { fill: #E8923A; }
    .node.selected { stroke: #ff6b6b; stroke-width: 3px; }
    .label { font-size: 10px; pointer-events: none; text-anchor: middle; }
    .tab { cursor: pointer; padding: 6px 10px; border: none; background: #eee; }
    .tab.active { background: #4A90D9; color: white; }
    .tab-content, .query-content { display: none; }
    .tab-content.active, .query-content.active { display: block; }
    #file-upload { border: 2px dashed #ccc; padding: 20px; text-align: center; }
    #file-upload.dragover { border-color: #4A90D9; background: #eef5fc; }
    .query-result { border-bottom: 1px solid #eee; padding: 6px 0; }
    .notification { position: fixed; top: 16px; right: 16px; padding: 10px 16px; border-radius: 4px; color: white; display: none; }
    .notification.show { display: block; }
    .notification.success { background: #5CB85C; }
    .notification.error { background: #d9534f; }
    #loading { display: none; position: fixed; inset: 0; background: rgba(255,255,255,0.6); text-align: center; padding-top: 40vh; }
    #loading.show { display: block; }
    #tooltip {
      position: absolute;
      background: white;
      border: 1px solid #ccc;
      border-radius: 4px;
      padding: 8px 12px;
      font-size: 13px;
      pointer-events: none;
      max-width: 300px;
    }
    .empty-graph { color: #666; text-align: center; padding-top: 200px; }
  </style>
</head>
<body>
  <div id="notification" class="notification {{.Notification.Kind}}{{if .Notification.Visible}} show{{end}}">{{.Notification.Message}}</div>
  <div id="loading" class="{{if .Loading}}show{{end}}">Loading...</div>
  <div id="tooltip" style="left: {{.TooltipLeft}}px; top: {{.TooltipTop}}px; opacity: {{.TooltipOpacity}};">{{.TooltipSafe}}</div>

  <div class="container">
    <div class="graph-panel">
      <div class="controls">
        <button id="zoom-in" data-event="zoom-in">+</button>
        <button id="zoom-out" data-event="zoom-out">-</button>
        <button id="reset-view" data-event="reset-view">Reset</button>
        <button id="toggle-labels" data-event="toggle-labels">{{labelsText .LabelsVisible}}</button>
        <button id="layout-force" class="{{active .Layout "force"}}" data-event="layout-force">Force</button>
        <button id="layout-circular" class="{{active .Layout "circular"}}" data-event="layout-circular">Circular</button>
        <button id="reload" data-event="reload">Reload</button>
        <span class="zoom">{{pct .Scale}}</span>
      </div>
      <div id="graph">
        {{if .IsEmpty}}<p class="empty-graph">No graph data</p>{{else}}{{.SVG}}{{end}}
      </div>
      <div class="stats">
        <div class="stat"><span id="papers-count">{{.Stats.Papers}}</span>Papers</div>
        <div class="stat"><span id="authors-count">{{.Stats.Authors}}</span>Authors</div>
        <div class="stat"><span id="journals-count">{{.Stats.Journals}}</span>Journals</div>
        <div class="stat"><span id="citations-count">{{.Stats.Citations}}</span>Citations</div>
      </div>
      {{with .Details}}
      <div id="node-details" class="card">
        <strong>{{.DisplayName}}</strong> ({{.Type}})
        {{if .Year}}<div>Year: {{.Year}}</div>{{end}}
        {{if .Journal}}<div>Journal: {{.Journal}}</div>{{end}}
        {{if .Authors}}<div>Authors: {{.Authors.Join}}</div>{{end}}
      </div>
      {{end}}
    </div>

    <div class="side-panel">
      <div class="card">
        {{$tab := .ActiveTab}}
        <div class="tabs">
          <button class="tab{{active $tab "add-paper"}}" data-event="tab" data-target="add-paper">Add Paper</button>
          <button class="tab{{active $tab "upload-data"}}" data-event="tab" data-target="upload-data">Upload Data</button>
        </div>
        <div id="add-paper" class="tab-content{{active $tab "add-paper"}}">
          <form id="paper-form" method="post" action="/papers">
            <p><input name="title" placeholder="Title" value="{{.Paper.Title}}"></p>
            <p><input name="authors" placeholder="Authors (comma separated)" value="{{.Paper.Authors}}"></p>
            <p><input name="journal" placeholder="Journal" value="{{.Paper.Journal}}"></p>
            <p><input name="year" placeholder="Year" value="{{.Paper.Year}}"></p>
            <p><input name="cited_papers" placeholder="Cited paper ids (comma separated)" value="{{.Paper.CitedPapers}}"></p>
            <button type="submit">Add Paper</button>
          </form>
        </div>
        <div id="upload-data" class="tab-content{{active $tab "upload-data"}}">
          <form id="upload-form" method="post" action="/upload" enctype="multipart/form-data">
            <div id="file-upload" class="{{if .Upload.DragOver}}dragover{{end}}">
              <p>{{.Upload.Prompt}}</p>
              <input id="file-input" type="file" name="file" accept=".csv,.json">
            </div>
            <button id="upload-btn" type="submit" style="display: {{if .Upload.ButtonVisible}}block{{else}}none{{end}};">Upload</button>
          </form>
        </div>
      </div>

      <div class="card query-section">
        {{$qtab := .ActiveQueryTab}}
        <div class="tabs">
          <button class="tab{{active $qtab "author-query"}}" data-event="query-tab" data-target="author-query">By Author</button>
          <button class="tab{{active $qtab "citation-query"}}" data-event="query-tab" data-target="citation-query">Citations</button>
          <button class="tab{{active $qtab "influential-query"}}" data-event="query-tab" data-target="influential-query">Influential</button>
        </div>
        <div id="author-query" class="query-content{{active $qtab "author-query"}}">
          <form class="query-form" data-kind="author"><input id="author-name" name="q" placeholder="Author name"><button type="submit">Search</button></form>
          <div id="author-results" style="display: {{if .AuthorResult.Visible}}block{{else}}none{{end}};">{{.AuthorResult.HTML}}</div>
        </div>
        <div id="citation-query" class="query-content{{active $qtab "citation-query"}}">
          <form class="query-form" data-kind="citations"><input id="paper-title-query" name="q" placeholder="Paper title"><button type="submit">Analyze</button></form>
          <div id="citation-results" style="display: {{if .CitationResult.Visible}}block{{else}}none{{end}};">{{.CitationResult.HTML}}</div>
        </div>
        <div id="influential-query" class="query-content{{active $qtab "influential-query"}}">
          <form class="query-form" data-kind="influential"><button type="submit">Show Most Influential</button></form>
          <div id="influential-results" style="display: {{if .InfluentialResult.Visible}}block{{else}}none{{end}};">{{.InfluentialResult.HTML}}</div>
        </div>
      </div>
    </div>
  </div>

  <script>
    (function() {
      const elements = {{.Elements}};
      const interactive = {{.Interactive}};
      const byId = new Map(elements.nodes.map(n => [n.id, n]));
      const tooltip = document.getElementById('tooltip');

      function escapeHtml(str) {
        if (!str) return '';
        return String(str).replace(/&/g, '&amp;')
                  .replace(/</g, '&lt;')
                  .replace(/>/g, '&gt;')
                  .replace(/"/g, '&quot;');
      }

      function tooltipHTML(n) {
        let html = '<strong>' + escapeHtml(n.label) + '</strong><br/>Type: ' + escapeHtml(n.type) + '<br/>';
        if (n.type === 'paper') {
          if (n.year) html += 'Year: ' + escapeHtml(n.year) + '<br/>';
          if (n.journal) html += 'Journal: ' + escapeHtml(n.journal) + '<br/>';
          if (n.authors) html += 'Authors: ' + escapeHtml(n.authors) + '<br/>';
        }
        return html;
      }

      function post(name, body) {
        return fetch('/events/' + name, {
          method: 'POST',
          headers: {'Content-Type': 'application/json'},
          body: JSON.stringify(body || {})
        }).then(() => window.location.reload());
      }

      document.querySelectorAll('circle.node').forEach(el => {
        const n = byId.get(el.dataset.id);
        if (!n) return;
        el.addEventListener('mouseover', evt => {
          tooltip.innerHTML = tooltipHTML(n);
          tooltip.style.left = (evt.pageX + 10) + 'px';
          tooltip.style.top = (evt.pageY - 28) + 'px';
          tooltip.style.transition = 'opacity 200ms';
          tooltip.style.opacity = 0.9;
        });
        el.addEventListener('mouseout', () => {
          tooltip.style.transition = 'opacity 500ms';
          tooltip.style.opacity = 0;
        });
        if (interactive) {
          el.addEventListener('click', () => post('node-click', {nodeId: n.id}));
        }
      });

      if (!interactive) return;

      document.querySelectorAll('[data-event]').forEach(el => {
        el.addEventListener('click', evt => {
          evt.preventDefault();
          post(el.dataset.event, {target: el.dataset.target || ''});
        });
      });

      document.querySelectorAll('.query-form').forEach(form => {
        form.addEventListener('submit', evt => {
          evt.preventDefault();
          const kind = form.dataset.kind;
          const input = form.querySelector('input');
          const q = input ? input.value : '';
          fetch('/query/' + kind + '?q=' + encodeURIComponent(q))
            .then(() => window.location.reload());
        });
      });

      const drop = document.getElementById('file-upload');
      drop.addEventListener('dragover', evt => { evt.preventDefault(); drop.classList.add('dragover'); });
      drop.addEventListener('dragleave', () => drop.classList.remove('dragover'));
      drop.addEventListener('drop', evt => {
        evt.preventDefault();
        drop.classList.remove('dragover');
        document.getElementById('file-input').files = evt.dataTransfer.files;
        document.getElementById('upload-form').requestSubmit();
      });
    })();
  </script>
</body>
</html>`
