// Package views embeds the HTML templates and static assets served by the
// web front end.
package views

import (
	"embed"
	"html/template"
	"io/fs"
	"time"

	"github.com/tbourn/daily-verse/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Page is the data handed to every template. Pages read only the fields
// they need.
type Page struct {
	Title string

	// Visitor input, echoed back into forms.
	Name   string
	Phone  string
	Prayer string

	Verse   domain.Verse
	Message string
	RetryAt time.Time

	Status    string
	RequestID string
}

// Funcs are the helpers available to every template.
var Funcs = template.FuncMap{
	"timestamp": domain.Stamp,
	"clock": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Local().Format("02/01/2006 15:04")
	},
}

// Templates parses every page. Template names are the file base names
// ("index.html", "verse.html", ...).
func Templates() *template.Template {
	return template.Must(template.New("").Funcs(Funcs).ParseFS(templateFS, "templates/*.html"))
}

// Static returns the asset tree rooted at static/.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
