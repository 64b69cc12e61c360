// Package web serves the browser dashboard. Conversions are posted by the
// page straight to the relay's /api/convert with the user's bearer token;
// credits and theme live in the browser's localStorage.
package web

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/ProTeamWorkforce/ImageAi-APp/internal/contract"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// MaxClientUpload is the size cap the page enforces before uploading.
const MaxClientUpload = 5 << 20

type Options struct {
	// ProjectID is handed to the page for identity provider sign-in.
	ProjectID string
	// AuthMode tells the page whether to expect a pasted dev token.
	AuthMode string
}

type Web struct {
	tpl    *template.Template
	static http.Handler
	opts   Options
}

type kindButton struct {
	Kind  string
	Label string
}

type pageData struct {
	ProjectID      string
	AuthMode       string
	MaxUploadBytes int
	MaxUploadMB    int
	Kinds          []kindButton
	DefaultCredits int
}

func New(opts Options) *Web {
	tpl := template.Must(template.ParseFS(templateFS, "templates/*.html"))
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return &Web{
		tpl:    tpl,
		static: http.StripPrefix("/static/", http.FileServer(http.FS(sub))),
		opts:   opts,
	}
}

func (w *Web) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/static/", w.static)
	mux.HandleFunc("/dashboard", w.handleDashboard)
	mux.HandleFunc("/", w.handleIndex)
}

func (w *Web) render(wr http.ResponseWriter, name string, data any) {
	wr.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := w.tpl.ExecuteTemplate(wr, name, data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("render failed")
	}
}

func (w *Web) handleIndex(wr http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(wr, r)
		return
	}
	w.handleDashboard(wr, r)
}

func (w *Web) handleDashboard(wr http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		wr.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.render(wr, "dashboard.html", pageData{
		ProjectID:      w.opts.ProjectID,
		AuthMode:       w.opts.AuthMode,
		MaxUploadBytes: MaxClientUpload,
		MaxUploadMB:    MaxClientUpload >> 20,
		Kinds: []kindButton{
			{Kind: contract.KindText.String(), Label: "Extract Text"},
			{Kind: contract.KindExcel.String(), Label: "Convert to Excel"},
			{Kind: contract.KindSearch.String(), Label: "Image Search"},
			{Kind: contract.KindJSON.String(), Label: "Full JSON"},
		},
		DefaultCredits: 10,
	})
}
