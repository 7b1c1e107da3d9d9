package view

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"sync"

	"github.com/odyssey-erp/odyssey-school/internal/rbac"
	"github.com/odyssey-erp/odyssey-school/internal/shared"
	"github.com/odyssey-erp/odyssey-school/web"
)

// Template sets parsed into one namespace. Pages are addressed by their
// {{define}} name, e.g. "pages/login.html".
var templateGlobs = []string{
	"templates/layouts/*.html",
	"templates/partials/*.html",
	"templates/pages/*.html",
}

// TemplateData is the root value of every page.
type TemplateData struct {
	Title       string
	CSRFToken   string
	Flash       *shared.FlashMessage
	CurrentPath string
	Identity    rbac.Identity
	Data        any
}

// Engine renders the embedded page templates.
type Engine struct {
	templates *template.Template
	buffers   sync.Pool
}

// NewEngine parses every embedded template.
func NewEngine() (*Engine, error) {
	tpl, err := template.New("odyssey").Funcs(FuncMap()).ParseFS(web.Templates, templateGlobs...)
	if err != nil {
		return nil, fmt.Errorf("view: parse templates: %w", err)
	}
	return &Engine{
		templates: tpl,
		buffers:   sync.Pool{New: func() any { return new(bytes.Buffer) }},
	}, nil
}

// Render writes page name with status 200.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	return e.RenderStatus(w, http.StatusOK, name, data)
}

// RenderStatus executes name into a buffer and only then writes the status
// and body, so a failing template never leaves a half-written page.
func (e *Engine) RenderStatus(w http.ResponseWriter, status int, name string, data TemplateData) error {
	if e == nil || e.templates == nil {
		return errors.New("view: engine not initialised")
	}
	buf := e.buffers.Get().(*bytes.Buffer)
	buf.Reset()
	defer e.buffers.Put(buf)

	if err := e.templates.ExecuteTemplate(buf, name, data); err != nil {
		return fmt.Errorf("view: render %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
