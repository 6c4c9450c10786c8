package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
	"time"

	commonhttp "github.com/microblog-go/microblog/internal/common/http"
	"github.com/microblog-go/microblog/internal/common/logger"
	"github.com/microblog-go/microblog/internal/common/validation"
	postdomain "github.com/microblog-go/microblog/internal/post/domain"
	userdomain "github.com/microblog-go/microblog/internal/user/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutFile = "templates/base.html"

// Page is what every template receives.
type Page struct {
	Title       string
	CurrentUser *userdomain.User
	Flashes     []string
	Form        map[string]string
	Errors      validation.FieldErrors
	Data        any
}

// Avatars derives an avatar URL for an email; the credential store
// implements it.
type Avatars interface {
	AvatarURL(email string, size int) string
}

type Renderer struct {
	pages map[string]*template.Template
	log   *logger.Logger
}

func NewRenderer(log *logger.Logger, avatars Avatars) (*Renderer, error) {
	funcs := template.FuncMap{
		"avatar": func(email string, size int) string {
			if avatars == nil {
				return ""
			}
			return avatars.AvatarURL(email, size)
		},
		"pathSegment": url.PathEscape,
		"fieldError": func(errs validation.FieldErrors, field string) []string {
			return errs[field]
		},
		"formatTime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.UTC().Format("2006-01-02 15:04 MST")
		},
	}

	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	pages := make(map[string]*template.Template, len(files))
	for _, file := range files {
		if file == layoutFile {
			continue
		}
		name := strings.TrimSuffix(strings.TrimPrefix(file, "templates/"), ".html")
		tmpl, err := template.New("base.html").Funcs(funcs).ParseFS(templateFS, layoutFile, file)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		pages[name] = tmpl
	}

	return &Renderer{pages: pages, log: log}, nil
}

// Render executes page into a buffer first so a template failure can
// still produce a clean 500.
func (rn *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, name string, page Page) {
	tmpl, ok := rn.pages[name]
	if !ok {
		rn.log.WithFields(r.Context(), logger.Fields{
			"template": name,
			"action":   "template_missing",
		}).Error("template not found")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if page.Flashes == nil {
		page.Flashes = commonhttp.PopFlashes(w, r)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", page); err != nil {
		rn.log.WithFields(r.Context(), logger.Fields{
			"template": name,
			"action":   "template_render_failed",
		}).Errorf("render failed: %v", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// ErrorPage adapts Render to commonhttp.ErrorPage. The request's identity
// is not known here, so the page renders with the anonymous nav.
func (rn *Renderer) ErrorPage(w http.ResponseWriter, r *http.Request, status int, message string) {
	rn.Render(w, r, status, "error", Page{
		Title:   http.StatusText(status),
		Flashes: []string{},
		Data: struct {
			Status  int
			Message string
		}{Status: status, Message: message},
	})
}

// UserPage is the Data of the "user" template.
type UserPage struct {
	User   userdomain.User
	Posts  []postdomain.Post
	IsSelf bool
}
