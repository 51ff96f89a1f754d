// Package preview serves rendered bundle operations over HTTP so that
// translators can check their templates against real arguments.
//
// Routes:
//
//	GET /bundles                          declared bundles and their operations
//	GET /bundles/{bundle}                 effective templates for the locale
//	GET /bundles/{bundle}/{operation}     operation rendered with ?arg=...
//
// The locale is taken from ?locale= when present, otherwise from the request
// context (see srv.Locale), otherwise from the service fallback. Failures are
// answered as JSON carrying the error kind and a message localized for the
// Accept-Language header.
package preview

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/nicksnyder/go-i18n/v2/i18n"

	"github.com/c3p0-box/translations/bundle"
	"github.com/c3p0-box/translations/erm"
	"github.com/c3p0-box/translations/locale"
)

// BundleInfo describes one declared bundle.
type BundleInfo struct {
	Bundle     string   `json:"bundle"`
	Operations []string `json:"operations"`
}

// Template is the effective template of one operation.
type Template struct {
	Signature string `json:"signature"`
	Template  string `json:"template"`
}

// BundleView lists the effective templates of a bundle for a locale.
type BundleView struct {
	Bundle    string     `json:"bundle"`
	Locale    string     `json:"locale"`
	Templates []Template `json:"templates"`
}

// Rendering is the result of rendering one operation.
type Rendering struct {
	Bundle    string `json:"bundle"`
	Operation string `json:"operation"`
	Locale    string `json:"locale"`
	Text      string `json:"text"`
}

// Problem is the body of an error response.
type Problem struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type handler struct {
	svc    *bundle.Service
	sets   map[string]*bundle.OperationSet
	ids    []string
	logger *slog.Logger
}

// Handler returns the preview routes for sets, loading bundles through svc.
func Handler(svc *bundle.Service, sets ...*bundle.OperationSet) http.Handler {
	h := &handler{
		svc:    svc,
		sets:   make(map[string]*bundle.OperationSet, len(sets)),
		logger: slog.With(slog.String("name", "preview.Handler")),
	}
	for _, s := range sets {
		h.sets[s.BundleID()] = s
		h.ids = append(h.ids, s.BundleID())
	}
	sort.Strings(h.ids)

	r := chi.NewRouter()
	r.Get("/bundles", h.list)
	r.Route("/bundles/{bundle}", func(r chi.Router) {
		r.Get("/", h.show)
		r.Get("/{operation}", h.render)
	})
	return r
}

func (h *handler) list(w http.ResponseWriter, r *http.Request) {
	infos := make([]BundleInfo, 0, len(h.ids))
	for _, id := range h.ids {
		info := BundleInfo{Bundle: id}
		for _, spec := range h.sets[id].Specs() {
			info.Operations = append(info.Operations, spec.Signature())
		}
		infos = append(infos, info)
	}
	h.writeJSON(w, http.StatusOK, infos)
}

func (h *handler) show(w http.ResponseWriter, r *http.Request) {
	b, err := h.load(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	view := BundleView{Bundle: b.Set().BundleID(), Locale: b.Locale().String()}
	for _, spec := range b.Set().Specs() {
		tmpl, _ := b.Template(spec.Name, spec.Arity())
		view.Templates = append(view.Templates, Template{Signature: spec.Signature(), Template: tmpl})
	}
	h.writeJSON(w, http.StatusOK, view)
}

func (h *handler) render(w http.ResponseWriter, r *http.Request) {
	b, err := h.load(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	name := chi.URLParam(r, "operation")
	spec, args, err := bundle.ParseArgs(b.Set(), name, r.URL.Query()["arg"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	fn, _ := b.Lookup(spec.Signature())
	text, err := fn(args...)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, Rendering{
		Bundle:    b.Set().BundleID(),
		Operation: spec.Signature(),
		Locale:    b.Locale().String(),
		Text:      text,
	})
}

func (h *handler) load(r *http.Request) (*bundle.Bundle, error) {
	id := chi.URLParam(r, "bundle")
	set, ok := h.sets[id]
	if !ok {
		return nil, erm.ResourceNotFound(id, "")
	}

	if s := r.URL.Query().Get("locale"); s != "" {
		loc, err := locale.Parse(s)
		if err != nil {
			return nil, erm.Invalid(fmt.Sprintf("locale %q", s), err)
		}
		return h.svc.GetFor(r.Context(), set, loc)
	}
	return h.svc.Get(r.Context(), set)
}

func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	e := erm.Wrap(err)
	status := erm.Status(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "preview failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	h.writeJSON(w, status, Problem{
		Kind:    e.Kind().String(),
		Message: e.LocalizedError(errorLocalizer(r)),
	})
}

// errorLocalizer returns the localizer of the error catalogue language best
// matching the request.
func errorLocalizer(r *http.Request) *i18n.Localizer {
	tags := erm.Languages()
	supported := make([]locale.Locale, len(tags))
	for i, t := range tags {
		supported[i] = locale.FromTag(t)
	}
	l := locale.Negotiate(r.Header.Get("Accept-Language"), locale.New("en", "", ""), supported...)
	return erm.Localizer(l.Tag().String())
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encoding response", slog.String("error", err.Error()))
	}
}
