package explain

import (
	"bytes"
	"fmt"
	"reflect"
	"text/template"

	"github.com/awesome-flow/eventgen/pkg/resolver"
)

const PipelineDotTmpl = `digraph Eventgen{
  "generator queue" -> "generator workers"
  "generator workers" -> "output queue"
  "output queue" -> "output workers"
{{range . -}}
  {{- if .FilePath}}
  "timer {{.Name}}" -> "generator queue"
  "output workers" -> "{{.OutputMode}} ({{.Name}})"
  {{- end}}
{{- end}}
}
`

// Pipeline renders the dispatch pipeline of a resolved configuration as a
// GraphViz digraph.
type Pipeline struct{}

var _ Explainer = (*Pipeline)(nil)

func (p *Pipeline) Explain(in interface{}) ([]byte, error) {
	cfg, ok := in.(*resolver.Config)
	if !ok {
		return nil, fmt.Errorf("unexpected input type: %s", reflect.TypeOf(in))
	}
	tmpl, err := template.New("pipeline-dot").Parse(PipelineDotTmpl)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %s", err.Error())
	}
	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, cfg.Samples); err != nil {
		return nil, fmt.Errorf("failed to render data: %s", err.Error())
	}

	return buf.Bytes(), nil
}
