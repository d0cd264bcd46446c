package echoapi

import (
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/edudesk/core"
	"github.com/trezcool/edudesk/core/school"
	"github.com/trezcool/edudesk/core/user"
)

const (
	layoutTemplate = "_layout.html"
	csrfField      = "csrf"
)

type (
	// templateRenderer renders the pages found in the web templates dir.
	// Every page is parsed on top of the layout and defines its "content" block.
	templateRenderer struct {
		pages map[string]*template.Template
	}

	// page is the data every template is executed with.
	page struct {
		Title  string
		Form   interface{}
		Errors map[string]string
		Data   interface{}

		// set by handler.render
		AppName string
		User    *user.User
		Flashes []flash
		CSRF    string
		Path    string
	}
)

var templateFuncs = template.FuncMap{
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format(school.DateLayout)
	},
	"hasID": func(ids []int, id int) bool {
		for _, i := range ids {
			if i == id {
				return true
			}
		}
		return false
	},
	"join": strings.Join,
}

func newTemplateRenderer(fsys fs.FS, dir string, conf *core.Config) (*templateRenderer, error) {
	r := &templateRenderer{pages: make(map[string]*template.Template)}

	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, errors.Wrap(err, "reading web templates dir")
	}
	for _, e := range entries {
		fname := e.Name()
		if e.IsDir() || strings.HasPrefix(fname, "_") || path.Ext(fname) != ".html" {
			continue
		}
		tmpl, err := template.New(fname).Funcs(templateFuncs).ParseFS(fsys, path.Join(dir, layoutTemplate), path.Join(dir, fname))
		if err != nil {
			return nil, errors.Wrapf(err, "parsing %s", fname)
		}
		if conf.Debug || conf.TestMode {
			tmpl = tmpl.Option("missingkey=error")
		}
		r.pages[strings.TrimSuffix(fname, ".html")] = tmpl
	}
	return r, nil
}

func (r *templateRenderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return errors.Errorf("template %q not found", name)
	}
	return errors.Wrapf(tmpl.ExecuteTemplate(w, layoutTemplate, data), "rendering %s", name)
}

// render fills the common page data and renders the page name.
func (h *handler) render(ctx echo.Context, code int, name string, p page) error {
	p.AppName = h.conf.AppName
	if usr, ok := contextUser(ctx); ok {
		p.User = &usr
	}
	p.Flashes = popFlashes(ctx)
	p.CSRF, _ = ctx.Get(csrfField).(string)
	p.Path = ctx.Request().URL.Path
	if p.Errors == nil {
		p.Errors = map[string]string{}
	}
	return ctx.Render(code, name, p)
}

func (h *handler) renderOK(ctx echo.Context, name string, p page) error {
	return h.render(ctx, http.StatusOK, name, p)
}
