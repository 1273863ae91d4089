package web

import "html/template"

type pageData struct {
	Title     string
	State     string
	Stale     bool
	JustBuilt bool
	Question  string
	Error     string
	Report    *reportView
	Answer    *answerView
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; max-width: 52rem; margin: 2rem auto; padding: 0 1rem; }
.error { background: #fde8e8; border: 1px solid #e0a0a0; padding: .5rem 1rem; }
.notice { background: #fff6d6; border: 1px solid #e6cf7a; padding: .5rem 1rem; }
.ok { color: #1d7a35; }
.meta { color: #666; font-size: .9rem; }
input[type=text] { width: 100%; padding: .4rem; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{if .Stale}}<p class="notice">Source documents changed since the index was built. Start a new session to re-index.</p>{{end}}
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
{{with .Report}}<p class="ok">{{if $.JustBuilt}}Vector store is ready: {{else}}Vector store: {{end}}{{.Documents}} documents, {{.Pages}} pages, {{.Chunks}} chunks ({{printf "%.2f" .Seconds}}s).</p>
{{if .Summary}}<p class="meta">{{.Summary}}</p>{{end}}{{end}}
<form method="post" action="/">
<input type="text" name="question" value="{{.Question}}" placeholder="Enter your question from Documents" autofocus>
<p>
<button type="submit" name="action" value="build">Documents Embedding</button>
<button type="submit" name="action" value="ask">Embed the docs &amp; Fetch Answer</button>
</p>
</form>
{{with .Answer}}
<p class="meta">Response time: {{printf "%.2f" .Seconds}} seconds</p>
<div class="answer">{{.Answer}}</div>
<details>
<summary>Document Similarity Search</summary>
{{range .Passages}}
<p class="meta">{{.Source}}{{if .Page}} p.{{.Page}}{{end}} score={{printf "%.3f" .Score}}</p>
<p>{{.Text}}</p>
<hr>
{{end}}
</details>
{{end}}
</body>
</html>
`))
