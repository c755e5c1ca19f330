package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/jimmcbubbles/usertags/internal/errors"
	"github.com/jimmcbubbles/usertags/internal/ops"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
	Nav     string // active nav item: "users", "tags", "help"
}

// UsersPageData is the template data for the user grid.
type UsersPageData struct {
	PageData
	Filter   string
	Previous string
	Mode     string
	Modes    []string
	Result   *ops.SearchOutput
	// Return is where row actions redirect back to.
	Return string
	// Error is the message shown above the grid when the filter was
	// rejected or a fallback was applied.
	Error string
}

// TagsPageData is the template data for the tag list.
type TagsPageData struct {
	PageData
	Items      []ops.TagSummary
	Pagination ops.Pagination
	Sort       string
}

// HelpPageData is the template data for the help page.
type HelpPageData struct {
	PageData
	Body template.HTML
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	help      template.HTML
	version   string
	log       *slog.Logger
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, version string, log *slog.Logger) (*Renderer, error) {
	funcMap := template.FuncMap{
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
		"has": slices.Contains[[]string, string],
	}

	layout, err := template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	pages := map[string]string{
		"users": "users.html",
		"tags":  "tags.html",
		"help":  "help.html",
		"error": "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t, err := layout.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone layout: %w", err)
		}
		if _, err := t.ParseFS(templateFS, file); err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		templates[name] = t
	}

	helpMD, err := fs.ReadFile(templateFS, "help.md")
	if err != nil {
		return nil, fmt.Errorf("read help: %w", err)
	}

	return &Renderer{
		templates: templates,
		help:      renderMarkdown(string(helpMD)),
		version:   version,
		log:       log,
	}, nil
}

// page returns PageData for a page with the given title and nav item.
func (r *Renderer) page(title, nav string) PageData {
	return PageData{Title: title, Version: r.version, Nav: nav}
}

// renderPage renders a named page template with the given data and HTTP 200 status.
func (r *Renderer) renderPage(w http.ResponseWriter, req *http.Request, name string, data any) {
	r.renderPageStatus(w, req, http.StatusOK, name, data)
}

// renderPageStatus renders a named page template with the given data and HTTP status code.
// For HTMX requests, only the "content" block is rendered to avoid duplicating the layout.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, req *http.Request, status int, name string, data any) {
	block := "layout"
	if req != nil && req.Header.Get("HX-Request") == "true" {
		block = "content"
	}
	r.renderBlock(w, status, name, block, data)
}

// renderBlock renders a specific named block from a page template.
// Used for htmx partial swaps that target a sub-section of the page.
func (r *Renderer) renderBlock(w http.ResponseWriter, status int, page, block string, data any) {
	t, ok := r.templates[page]
	if !ok {
		r.log.Error("template not found", "template", page)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, block, data); err != nil {
		r.log.Error("template execution failed", "template", page, "block", block, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders an error response with content negotiation.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	var tagErr *errors.TagError
	if !errors.As(err, &tagErr) {
		tagErr = errors.NewInternal(err)
	}

	status := tagErr.Status
	message := tagErr.Message
	if tagErr.Code == errors.ErrInternal {
		r.log.Error("request failed", "path", req.URL.Path, "error", err)
		message = "internal error"
	}
	// Cancelled is not a real HTTP status.
	if status == 499 {
		status = http.StatusServiceUnavailable
	}

	if req.Header.Get("HX-Request") == "true" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		fmt.Fprintf(w, `<div class="error-message">%s</div>`, template.HTMLEscapeString(message))
		return
	}

	if wantsJSON(req) {
		payload := map[string]any{
			"code":    string(tagErr.Code),
			"message": message,
			"status":  status,
		}
		if tagErr.Code != errors.ErrInternal && tagErr.Details != nil {
			payload["details"] = tagErr.Details
		}
		renderJSON(w, status, map[string]any{"error": payload})
		return
	}

	r.renderPageStatus(w, req, status, "error", ErrorPageData{
		PageData:   r.page(fmt.Sprintf("Error %d", status), ""),
		StatusCode: status,
		Message:    message,
	})
}

// wantsJSON reports whether the client asked for a JSON response.
func wantsJSON(req *http.Request) bool {
	return strings.Contains(req.Header.Get("Accept"), "application/json")
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table))

// renderMarkdown converts markdown text to HTML using goldmark.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}
