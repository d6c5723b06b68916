package api

import (
	"net/http"

	"github.com/dmitrijs2005/vutto/internal/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handler returns the routing tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(middleware.Recoverer)
	r.Use(s.accessLog)

	r.Get("/healthz", s.healthz)

	r.Post(common.RegisterPath, s.register)
	r.Post(common.LoginPath, s.login)

	r.Group(func(r chi.Router) {
		r.Use(s.bearerAuth)
		r.Post(common.LogoutPath, s.logout)
		r.Get(common.ProfilePath, s.profile)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return r
}
