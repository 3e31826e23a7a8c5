package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	texttemplate "text/template"

	"guestcheckin/internal/domain"
)

//go:embed templates/*
var templateFS embed.FS

var htmlFuncs = template.FuncMap{
	// safeURL marks an image source built by the application (hosted URL or cid: reference).
	"safeURL": func(s string) template.URL { return template.URL(s) },
}

// templateRenderer implements domain.EmailTemplateRenderer using embedded template files.
// Each template name has <name>_subject.txt, <name>.html and <name>.txt files.
type templateRenderer struct {
	html *template.Template
	text *texttemplate.Template
}

// NewTemplateRenderer returns an EmailTemplateRenderer over the embedded templates folder.
func NewTemplateRenderer() domain.EmailTemplateRenderer {
	return &templateRenderer{
		html: template.Must(template.New("").Funcs(htmlFuncs).ParseFS(templateFS, "templates/*.html")),
		text: texttemplate.Must(texttemplate.New("").ParseFS(templateFS, "templates/*.txt")),
	}
}

// Render executes the named template (e.g. "invitation") with data and returns subject, html, and text bodies.
func (r *templateRenderer) Render(templateName string, data any) (subject, htmlBody, textBody string, err error) {
	if r.html.Lookup(templateName+".html") == nil {
		return "", "", "", fmt.Errorf("unknown email template %q", templateName)
	}
	subject, err = r.execText(templateName+"_subject.txt", data)
	if err != nil {
		return "", "", "", fmt.Errorf("render subject: %w", err)
	}
	var buf bytes.Buffer
	if err := r.html.ExecuteTemplate(&buf, templateName+".html", data); err != nil {
		return "", "", "", fmt.Errorf("render html: %w", err)
	}
	textBody, err = r.execText(templateName+".txt", data)
	if err != nil {
		return "", "", "", fmt.Errorf("render text: %w", err)
	}
	return strings.TrimSpace(subject), buf.String(), textBody, nil
}

func (r *templateRenderer) execText(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.text.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
