// Package api implements the Atom publishing HTTP surface using chi.
package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/awick/atompress/internal/index"
	"github.com/awick/atompress/internal/service"
)

// NewRouter creates a chi router with the collection routes mounted.
// pageSize is the default feed page length; title names the collection in
// feeds and the service document.
func NewRouter(svc *service.Service, idx index.Index, pageSize int, title string) chi.Router {
	h := NewHandler(svc, idx, pageSize, title)

	r := chi.NewRouter()

	// Collection.
	r.Get("/", h.Feed)
	r.Post("/", h.Create)

	// Introspection.
	r.Get("/service", h.ServiceDoc)

	// Structured queries (GData-style category path).
	r.Get("/-/*", h.Feed)

	// Media resources.
	r.Get("/media/{slug}", h.GetMedia)
	r.Put("/media/{slug}", h.PutMedia)
	r.Delete("/media/{slug}", h.DeleteMedia)

	// Entry resources. Mounted last so fixed routes win.
	r.Get("/{slug}", h.GetEntry)
	r.Put("/{slug}", h.PutEntry)
	r.Delete("/{slug}", h.DeleteEntry)

	return r
}
