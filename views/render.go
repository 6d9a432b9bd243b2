package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strconv"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	PageHome         = "home"
	PageProducts     = "products"
	PageProduct      = "product"
	PageCart         = "cart"
	PageCheckout     = "checkout"
	PageConfirmation = "confirmation"
	PageAdmin        = "admin"
	PageError        = "error"
)

var pageNames = []string{
	PageHome, PageProducts, PageProduct, PageCart,
	PageCheckout, PageConfirmation, PageAdmin, PageError,
}

var funcs = template.FuncMap{
	// sized asks the image CDN for a cropped square of the given width.
	"sized": func(url string, w int) string {
		n := strconv.Itoa(w)
		return url + "?auto=format&fit=crop&w=" + n + "&h=" + n
	},
}

// ErrorPage is rendered for HTML requests that fail.
type ErrorPage struct {
	Layout
	Status  int
	Message string
}

// Renderer executes a page template inside the shared layout.
type Renderer struct {
	pages map[string]*template.Template
}

func NewRenderer() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS,
			"templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("views: parse %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render writes page to w. Nothing is written if execution fails.
func (r *Renderer) Render(w io.Writer, page string, data any) error {
	t, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("views: unknown page %q", page)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		return fmt.Errorf("views: render %s: %w", page, err)
	}
	_, err := buf.WriteTo(w)
	return err
}
