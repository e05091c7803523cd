package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/geoffreymagana/Tiny-Tasks-VA-sub000/pkg/console"
	"github.com/geoffreymagana/Tiny-Tasks-VA-sub000/pkg/identifier"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, actionResult{Success: true, Message: "ok"})
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var in console.PostInput
	if err := decode(w, r, &in); err != nil {
		respondFailure(r.Context(), w, err)
		return
	}
	post, err := s.console.CreatePost(r.Context(), principal(r), in)
	if err != nil {
		respondFailure(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusCreated, actionResult{
		Success:    true,
		Message:    "post created",
		ID:         post.ID,
		Identifier: post.Slug,
		Data:       post,
	})
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.console.ListPosts(r.Context(), principal(r), r.URL.Query().Get("slug"))
	if err != nil {
		respondFailure(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, actionResult{Success: true, Data: posts})
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	post, err := s.console.GetPost(r.Context(), principal(r), mux.Vars(r)["id"])
	if err != nil {
		respondFailure(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, actionResult{Success: true, ID: post.ID, Identifier: post.Slug, Data: post})
}

func (s *Server) handleGetPostBySlug(w http.ResponseWriter, r *http.Request) {
	post, err := s.console.GetPostBySlug(r.Context(), principal(r), mux.Vars(r)["slug"])
	if err != nil {
		respondFailure(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, actionResult{Success: true, ID: post.ID, Identifier: post.Slug, Data: post})
}

func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	var in console.PostInput
	if err := decode(w, r, &in); err != nil {
		respondFailure(r.Context(), w, err)
		return
	}
	post, err := s.console.UpdatePost(r.Context(), principal(r), mux.Vars(r)["id"], in)
	if err != nil {
		respondFailure(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, actionResult{
		Success:    true,
		Message:    "post updated",
		ID:         post.ID,
		Identifier: post.Slug,
		Data:       post,
	})
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.console.DeletePost(r.Context(), principal(r), id); err != nil {
		respondFailure(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, actionResult{Success: true, Message: "post deleted", ID: id})
}

func (s *Server) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	var in console.ClientInput
	if err := decode(w, r, &in); err != nil {
		respondFailure(r.Context(), w, err)
		return
	}
	cl, err := s.console.CreateClient(r.Context(), principal(r), in)
	if err != nil {
		respondFailure(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusCreated, actionResult{
		Success:    true,
		Message:    "client created",
		ID:         cl.ID,
		Identifier: cl.Email,
		Data:       cl,
	})
}

func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := s.console.ListClients(r.Context(), principal(r), r.URL.Query().Get("email"))
	if err != nil {
		respondFailure(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, actionResult{Success: true, Data: clients})
}

func (s *Server) handleGetClient(w http.ResponseWriter, r *http.Request) {
	cl, err := s.console.GetClient(r.Context(), principal(r), mux.Vars(r)["id"])
	if err != nil {
		respondFailure(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, actionResult{Success: true, ID: cl.ID, Identifier: cl.Email, Data: cl})
}

func (s *Server) handleGetClientByEmail(w http.ResponseWriter, r *http.Request) {
	cl, err := s.console.GetClientByEmail(r.Context(), principal(r), mux.Vars(r)["email"])
	if err != nil {
		respondFailure(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, actionResult{Success: true, ID: cl.ID, Identifier: cl.Email, Data: cl})
}

func (s *Server) handleUpdateClient(w http.ResponseWriter, r *http.Request) {
	var in console.ClientInput
	if err := decode(w, r, &in); err != nil {
		respondFailure(r.Context(), w, err)
		return
	}
	cl, err := s.console.UpdateClient(r.Context(), principal(r), mux.Vars(r)["id"], in)
	if err != nil {
		respondFailure(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, actionResult{
		Success:    true,
		Message:    "client updated",
		ID:         cl.ID,
		Identifier: cl.Email,
		Data:       cl,
	})
}

func (s *Server) handleDeleteClient(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.console.DeleteClient(r.Context(), principal(r), id); err != nil {
		respondFailure(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, actionResult{Success: true, Message: "client deleted", ID: id})
}

func (s *Server) handlePreviewIdentifier(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["collection"]
	coll, ok := identifier.Lookup(name)
	if !ok {
		respondError(w, http.StatusNotFound, "unknown collection "+name)
		return
	}
	query := r.URL.Query()
	ident, err := s.console.PreviewIdentifier(r.Context(), principal(r), coll, query.Get("seed"), query.Get("exclude"))
	if err != nil {
		respondFailure(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, actionResult{Success: true, Identifier: ident})
}
