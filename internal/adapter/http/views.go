package adapthttp

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"strings"
)

//go:embed web
var webFS embed.FS

var viewNames = []string{
	"home", "about", "terms", "privacy", "not_found", "loading",
	"login", "register", "verify_email", "forgot_password", "reset_password",
	"dashboard", "profile", "avatar", "security", "admin_users",
}

var viewFuncs = template.FuncMap{
	"initial": func(s string) string {
		for _, r := range s {
			return strings.ToUpper(string(r))
		}
		return "?"
	},
}

// views holds one template set per screen, each sharing the layout.
type views struct {
	set map[string]*template.Template
}

func loadViews() (*views, error) {
	v := &views{set: make(map[string]*template.Template, len(viewNames))}
	for _, name := range viewNames {
		t, err := template.New(name).Funcs(viewFuncs).ParseFS(webFS,
			"web/templates/layout.html",
			"web/templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("parse view %s: %w", name, err)
		}
		v.set[name] = t
	}
	return v, nil
}

func (v *views) execute(w io.Writer, name string, data pageData) error {
	t, ok := v.set[name]
	if !ok {
		return fmt.Errorf("unknown view %q", name)
	}
	return t.ExecuteTemplate(w, "layout", data)
}

func staticHandler() http.Handler {
	sub, err := fs.Sub(webFS, "web")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
