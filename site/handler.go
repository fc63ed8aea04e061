package site

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"path"

	"go.uber.org/zap"

	"github.com/foomo/teamdirectory/service"
	"github.com/foomo/teamdirectory/service/vo"
	"github.com/foomo/teamdirectory/view"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

type Settings struct {
	Company      string
	CareersEmail string
	// ListingPath serves the member cards.
	ListingPath string
	// ProfilePath prefixes profile routes and, when Assets is set, the raw
	// manifest and documents.
	ProfilePath string
	Assets      fs.FS
}

type Handler struct {
	logger   *zap.Logger
	service  service.Service
	settings Settings
	mux      *http.ServeMux
}

type page struct {
	Title        string
	Company      string
	CareersEmail string
	ListingPath  string
	ProfilePath  string
	Members      []vo.Member
	Profile      *vo.Profile
	Body         template.HTML
}

func NewHandler(logger *zap.Logger, serviceInstance service.Service, settings Settings) *Handler {
	h := &Handler{
		logger:   logger,
		service:  serviceInstance,
		settings: settings,
		mux:      http.NewServeMux(),
	}

	h.mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, settings.ListingPath, http.StatusFound)
	})
	h.mux.HandleFunc("GET "+settings.ListingPath, h.handleListing)
	h.mux.HandleFunc("GET "+settings.ProfilePath+"{name...}", h.handleMember)
	return h
}

// ServeHTTP implements http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) page(title string) page {
	return page{
		Title:        title,
		Company:      h.settings.Company,
		CareersEmail: h.settings.CareersEmail,
		ListingPath:  h.settings.ListingPath,
		ProfilePath:  h.settings.ProfilePath,
	}
}

func (h *Handler) handleListing(w http.ResponseWriter, r *http.Request) {
	listing := view.NewListingView()
	defer listing.Close()

	snapshot := listing.Load(r.Context(), h.service.ListMembers)
	if snapshot.Loading {
		// the client went away before the listing settled
		return
	}

	data := h.page("Our Team")
	data.Members = snapshot.Members
	h.render(w, http.StatusOK, "listing", data)
}

func (h *Handler) handleMember(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if h.isAsset(name) {
		http.ServeFileFS(w, r, h.settings.Assets, name)
		return
	}

	profileView := view.NewProfileView()
	defer profileView.Close()

	snapshot := profileView.Load(r.Context(), name, h.service.GetProfile)
	switch snapshot.State {
	case vo.ProfileStateLoading:
		return
	case vo.ProfileStateNotFound:
		data := h.page("Profile not found")
		data.Profile = snapshot.Profile
		data.Body = template.HTML(snapshot.Profile.HTML)
		h.render(w, http.StatusNotFound, "notfound", data)
	default:
		data := h.page(snapshot.Profile.DisplayName())
		data.Profile = snapshot.Profile
		data.Body = template.HTML(snapshot.Profile.HTML) // rendered by markdown.Renderer
		h.render(w, http.StatusOK, "profile", data)
	}
}

// isAsset reports whether name is a raw file to serve as is. Member
// documents always render as profiles, even when addressed by file name.
func (h *Handler) isAsset(name string) bool {
	if h.settings.Assets == nil || path.Ext(name) == "" || service.IsDocument(name) {
		return false
	}
	_, err := fs.Stat(h.settings.Assets, name)
	return err == nil
}

func (h *Handler) render(w http.ResponseWriter, status int, name string, data page) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		h.logger.Error("failed to render page", zap.String("template", name), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
