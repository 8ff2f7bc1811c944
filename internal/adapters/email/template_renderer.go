package email

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"attendanceingest/internal/domain"
)

//go:embed templates/*
var templateFS embed.FS

// Each message is three files: <name>_subject.txt, <name>.txt and <name>.html.
const (
	subjectSuffix = "_subject.txt"
	textSuffix    = ".txt"
	htmlSuffix    = ".html"
)

var funcs = map[string]any{
	"duration": func(d time.Duration) string { return d.Round(time.Millisecond).String() },
	"datetime": func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04 MST") },
}

// templateRenderer holds every embedded template, parsed once. Text and subject files share
// the text set; html files are escaped by html/template.
type templateRenderer struct {
	text *texttemplate.Template
	html *htmltemplate.Template
}

// NewTemplateRenderer parses the embedded templates folder. It panics if a template does not
// parse, since the files are compiled into the binary.
func NewTemplateRenderer() domain.EmailTemplateRenderer {
	return &templateRenderer{
		text: texttemplate.Must(texttemplate.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.txt")),
		html: htmltemplate.Must(htmltemplate.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")),
	}
}

// Render executes the subject, html and text templates registered under templateName.
func (r *templateRenderer) Render(templateName string, data any) (subject, htmlBody, textBody string, err error) {
	if subject, err = r.execText(templateName+subjectSuffix, data); err != nil {
		return "", "", "", fmt.Errorf("render subject: %w", err)
	}
	if htmlBody, err = r.execHTML(templateName+htmlSuffix, data); err != nil {
		return "", "", "", fmt.Errorf("render html: %w", err)
	}
	if textBody, err = r.execText(templateName+textSuffix, data); err != nil {
		return "", "", "", fmt.Errorf("render text: %w", err)
	}
	return strings.TrimSpace(subject), htmlBody, textBody, nil
}

func (r *templateRenderer) execText(name string, data any) (string, error) {
	t := r.text.Lookup(name)
	if t == nil {
		return "", fmt.Errorf("template %q not found", name)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (r *templateRenderer) execHTML(name string, data any) (string, error) {
	t := r.html.Lookup(name)
	if t == nil {
		return "", fmt.Errorf("template %q not found", name)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
