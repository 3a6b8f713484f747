package render

import (
	"html/template"
	"io"
)

var snapshotTemplate = template.Must(template.New("snapshot").Parse(`<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.Card.Title}} · {{.Character}}</title></head>
<body>
<section id="results" data-run-id="{{.RunID}}">
  <div id="summary-cards">
    <div class="card"><div class="k">Character</div><div class="v">{{.Character}}</div></div>
    <div class="card"><div class="k">Known Value</div><div class="v">{{.KnownValue}}</div></div>
    <div class="card"><div class="k">Coverage</div><div class="v">{{.Coverage}}</div></div>
  </div>
  <ul id="holdings-list">{{range .Holdings}}<li>{{.}}</li>{{end}}</ul>
  <pre id="posts-view">{{.Posts}}</pre>
  <div id="card-view">
    <h3>{{.Card.Title}}</h3>
    <p>{{.Card.Description}}</p>
    {{range .Card.Fields}}<section><strong>{{.Name}}</strong><p>{{.Value}}</p></section>{{end}}
  </div>
</section>
</body>
</html>
`))

// HTML writes a standalone page for p. Every backend string goes through
// html/template escaping.
func HTML(w io.Writer, p Panels) error {
	return snapshotTemplate.Execute(w, p)
}
