package web

import (
	"html/template"
	"sync"

	"github.com/okian/atscheck/internal/domain/analysis"
)

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>ATS Resume Check</title>
  <style>
    body { font-family: system-ui, sans-serif; max-width: 48rem; margin: 2rem auto; }
    textarea { width: 100%; min-height: 10rem; }
    #alert { color: #b00020; white-space: pre-wrap; }
    #debugTexts { white-space: pre-wrap; background: #f4f4f4; padding: 1rem; }
  </style>
</head>
<body>
  <h1>ATS Resume Check</h1>
  <form id="analyzeForm" method="post" action="/analyze" enctype="multipart/form-data">
    <input type="hidden" name="token" value="{{.Token}}">
    <p><label for="resume">Resume</label><br><input type="file" id="resume" name="resume"></p>
    <p><label for="jd">Job description</label><br><textarea id="jd" name="jd">{{.JobDescription}}</textarea></p>
    <button type="submit" id="submitBtn" data-busy-label="{{.BusyLabel}}"{{if not .SubmitEnabled}} disabled{{end}}>{{.SubmitLabel}}</button>
  </form>
  {{- if .Alert}}
  <div id="alert" role="alert">{{.Alert}}</div>
  <script>window.alert({{.Alert}});</script>
  {{- end}}
  <div id="result"{{if not .ShowResult}} hidden{{end}}>
    {{- if .Warning}}
    <p id="warning" role="status">{{.Warning}}</p>
    {{- end}}
    <h2>ATS Score: <span id="atsScore">{{.Score}}</span></h2>
    <h3>Section Scores</h3>
    <ul id="sectionScores">{{range .Sections}}<li>{{.}}</li>{{end}}</ul>
    <h3>Missing Keywords</h3>
    <ul id="missingKeywords">{{range .Keywords}}<li>{{.}}</li>{{end}}</ul>
    <h3>Suggestions</h3>
    <ul id="suggestions">{{range .Suggestions}}<li>{{.}}</li>{{end}}</ul>
    <h3>Debug</h3>
    <pre id="debugTexts">{{.Debug}}</pre>
  </div>
  <script>
    document.getElementById("analyzeForm").addEventListener("submit", function () {
      var btn = document.getElementById("submitBtn");
      btn.disabled = true;
      btn.textContent = btn.dataset.busyLabel;
    });
  </script>
</body>
</html>
`

var pageTemplate = template.Must(template.New("index").Parse(indexHTML))

// pageData is what the template renders.
type pageData struct {
	Token          string
	JobDescription string
	SubmitLabel    string
	BusyLabel      string
	SubmitEnabled  bool

	Alert string

	ShowResult  bool
	Score       string
	Sections    []string
	Keywords    []string
	Suggestions []string
	Debug       string
	Warning     string
}

// pageView is the per-request view a controller drives. The posted form is
// its input and pageData its output.
type pageView struct {
	mu     sync.Mutex
	resume *analysis.ResumeFile
	data   pageData
}

func newPageView(resume *analysis.ResumeFile, jd, submitLabel, busyLabel string) *pageView {
	return &pageView{
		resume: resume,
		data: pageData{
			JobDescription: jd,
			SubmitLabel:    submitLabel,
			BusyLabel:      busyLabel,
			SubmitEnabled:  true,
		},
	}
}

func (v *pageView) ResumeFile() *analysis.ResumeFile { return v.resume }
func (v *pageView) JobDescription() string           { return v.data.JobDescription }

func (v *pageView) SetSubmitEnabled(enabled bool) { v.update(func(d *pageData) { d.SubmitEnabled = enabled }) }
func (v *pageView) SetSubmitLabel(label string)   { v.update(func(d *pageData) { d.SubmitLabel = label }) }

func (v *pageView) SubmitLabel() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.data.SubmitLabel
}

func (v *pageView) Alert(message string) { v.update(func(d *pageData) { d.Alert = message }) }

func (v *pageView) ShowResult()          { v.update(func(d *pageData) { d.ShowResult = true }) }
func (v *pageView) SetScore(text string) { v.update(func(d *pageData) { d.Score = text }) }
func (v *pageView) SetSectionScores(lines []string) {
	v.update(func(d *pageData) { d.Sections = lines })
}
func (v *pageView) SetMissingKeywords(lines []string) {
	v.update(func(d *pageData) { d.Keywords = lines })
}
func (v *pageView) SetSuggestions(lines []string) {
	v.update(func(d *pageData) { d.Suggestions = lines })
}
func (v *pageView) SetDebugText(text string) { v.update(func(d *pageData) { d.Debug = text }) }
func (v *pageView) SetWarning(text string)   { v.update(func(d *pageData) { d.Warning = text }) }

func (v *pageView) update(fn func(*pageData)) {
	v.mu.Lock()
	fn(&v.data)
	v.mu.Unlock()
}

func (v *pageView) snapshot() pageData {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.data
}
