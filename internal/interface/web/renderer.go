// Package web renders the server-side HTML pages from embedded templates.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/gin-gonic/gin/render"

	"github.com/oksasatya/go-task-manager/internal/domain/entity"
)

//go:embed templates/*.html
var templateFS embed.FS

const layout = "layout.html"

// Page names accepted by Renderer.Instance.
const (
	PageList          = "list"
	PageForm          = "form"
	PageConfirmDelete = "confirm_delete"
	PageLogin         = "login"
	PageSignup        = "signup"
	PageNotFound      = "not_found"
)

var pages = []string{PageList, PageForm, PageConfirmDelete, PageLogin, PageSignup, PageNotFound}

var funcs = template.FuncMap{
	"priorities": func() []entity.Priority { return entity.Priorities },
	"categories": func() []entity.Category { return entity.Categories },
	"str": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
	"date": func(t time.Time) string { return t.Local().Format("Jan 2, 2006 15:04") },
}

// Renderer implements gin's render.HTMLRender with one template set per page,
// each combining the shared layout with the page body.
type Renderer struct {
	pages map[string]*template.Template
}

func NewRenderer() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template, len(pages))}
	for _, name := range pages {
		t, err := template.New(layout).Funcs(funcs).ParseFS(templateFS, "templates/"+layout, "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse page %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

func (r *Renderer) Instance(name string, data any) render.Render {
	t, ok := r.pages[name]
	if !ok {
		t = r.pages[PageNotFound]
	}
	return render.HTML{Template: t, Name: layout, Data: data}
}
