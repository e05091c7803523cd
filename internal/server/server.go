// Package server exposes the console's save actions over HTTP.
//
// Routes, all under /api:
//
//	GET    /health
//	POST   /posts                     - create post
//	GET    /posts?slug=               - list posts
//	GET    /posts/{id}                - get post
//	PUT    /posts/{id}                - update post
//	DELETE /posts/{id}                - delete post
//	GET    /posts/by-slug/{slug}      - get post by slug
//	POST   /clients                   - create client
//	GET    /clients?email=            - list clients
//	GET    /clients/{id}              - get client
//	PUT    /clients/{id}              - update client
//	DELETE /clients/{id}              - delete client
//	GET    /clients/by-email/{email}  - get client by email
//	GET    /identifiers/{collection}  - preview identifier (?seed=&exclude=)
//
// The caller is identified by the X-User-ID and X-User-Role headers set by
// the upstream auth proxy.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/geoffreymagana/Tiny-Tasks-VA-sub000/pkg/console"
)

const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

type Server struct {
	console *console.Console
	router  *mux.Router
}

func New(c *console.Console) *Server {
	s := &Server{console: c, router: mux.NewRouter()}
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(withPrincipal)

	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api.HandleFunc("/posts", s.handleCreatePost).Methods(http.MethodPost)
	api.HandleFunc("/posts", s.handleListPosts).Methods(http.MethodGet)
	api.HandleFunc("/posts/by-slug/{slug}", s.handleGetPostBySlug).Methods(http.MethodGet)
	api.HandleFunc("/posts/{id}", s.handleGetPost).Methods(http.MethodGet)
	api.HandleFunc("/posts/{id}", s.handleUpdatePost).Methods(http.MethodPut)
	api.HandleFunc("/posts/{id}", s.handleDeletePost).Methods(http.MethodDelete)

	api.HandleFunc("/clients", s.handleCreateClient).Methods(http.MethodPost)
	api.HandleFunc("/clients", s.handleListClients).Methods(http.MethodGet)
	api.HandleFunc("/clients/by-email/{email}", s.handleGetClientByEmail).Methods(http.MethodGet)
	api.HandleFunc("/clients/{id}", s.handleGetClient).Methods(http.MethodGet)
	api.HandleFunc("/clients/{id}", s.handleUpdateClient).Methods(http.MethodPut)
	api.HandleFunc("/clients/{id}", s.handleDeleteClient).Methods(http.MethodDelete)

	api.HandleFunc("/identifiers/{collection}", s.handlePreviewIdentifier).Methods(http.MethodGet)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves on addr until ctx is cancelled, then gives in-flight requests
// up to shutdownTimeout to finish. Request contexts derive from ctx, so they
// carry its logger.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()
	tflog.Info(ctx, fmt.Sprintf("listening on %s", addr))

	select {
	case <-ctx.Done():
		tflog.Info(ctx, "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-serverErr:
		return err
	}
}

func withPrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		who := console.Principal{UserID: r.Header.Get(HeaderUserID)}
		if role, ok := console.ParseRole(r.Header.Get(HeaderUserRole)); ok {
			who.Role = role
		}
		ctx := tflog.SetField(r.Context(), "user_id", who.UserID)
		ctx = tflog.SetField(ctx, "path", r.URL.Path)
		ctx = context.WithValue(ctx, principalKey{}, who)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type principalKey struct{}

func principal(r *http.Request) console.Principal {
	who, _ := r.Context().Value(principalKey{}).(console.Principal)
	return who
}
