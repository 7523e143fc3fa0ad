package scene

import (
	"fmt"
	"html/template"
	"io"
	"strconv"
)

// compiledSVG is parsed at init time to fail fast on template errors.
var compiledSVG *template.Template

func init() {
	compiledSVG = template.Must(template.New("svg").Funcs(template.FuncMap{
		"num": formatNum,
	}).Parse(svgTemplate))
}

// SVGOptions sets the canvas size and the zoom/pan transform of the
// element group.
type SVGOptions struct {
	Width      float64
	Height     float64
	TranslateX float64
	TranslateY float64
	Scale      float64
}

// DefaultSVGOptions returns an 800x550 canvas with the identity transform.
func DefaultSVGOptions() SVGOptions {
	return SVGOptions{Width: 800, Height: 550, Scale: 1}
}

type svgData struct {
	Opts   SVGOptions
	Links  []*LinkElement
	Nodes  []*NodeElement
	Labels []*LabelElement
}

// WriteSVG serializes the scene as a standalone SVG document.
func (s *Scene) WriteSVG(w io.Writer, opts SVGOptions) error {
	if opts.Scale == 0 {
		opts.Scale = 1
	}
	data := svgData{Opts: opts, Links: s.Links, Nodes: s.Nodes, Labels: s.Labels}
	if err := compiledSVG.Execute(w, data); err != nil {
		return fmt.Errorf("rendering svg: %w", err)
	}
	return nil
}

func formatNum(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

const svgTemplate = `<svg xmlns="http://www.w3.org/2000/svg" width="100%" height="100%" viewBox="0 0 {{num .Opts.Width}} {{num .Opts.Height}}" preserveAspectRatio="xMidYMid meet">
  <defs>
    <marker id="arrowhead" viewBox="-0 -5 10 10" refX="25" refY="0" orient="auto" markerWidth="5" markerHeight="5">
      <path d="M 0,-5 L 10 ,0 L 0,5" fill="#999" style="stroke: none;"></path>
    </marker>
  </defs>
  <g class="scene" transform="translate({{num .Opts.TranslateX}},{{num .Opts.TranslateY}}) scale({{num .Opts.Scale}})">
    <g class="links">
{{- range .Links}}
      <line class="{{.Class}}{{if .Highlighted}} highlighted{{end}}" x1="{{num .X1}}" y1="{{num .Y1}}" x2="{{num .X2}}" y2="{{num .Y2}}" stroke-width="{{num .StrokeWidth}}" marker-end="url(#arrowhead)"></line>
{{- end}}
    </g>
    <g class="nodes">
{{- range .Nodes}}
      <circle class="{{.Class}}{{if .Selected}} selected{{end}}" data-id="{{.Node.ID}}" cx="{{num .CX}}" cy="{{num .CY}}" r="{{num .R}}"></circle>
{{- end}}
    </g>
    <g class="labels">
{{- range .Labels}}
      <text class="label" x="{{num .X}}" y="{{num .Y}}" font-size="10px" font-family="Arial, sans-serif" fill="#333" text-anchor="middle" style="display: {{.Display}}">{{.Text}}</text>
{{- end}}
    </g>
  </g>
</svg>
`
