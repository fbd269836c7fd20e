package http

import (
	"net/http"

	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

var categoryFields = []string{"name", "type", "emoji"}

func (s *Server) handleCreateDefaultCategories(w http.ResponseWriter, r *http.Request) {
	n, err := s.categories.CreateDefaults(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}

	s.logger.WithComponent(applog.ComponentCategory).InfoContext(r.Context(), "Default categories seeded",
		"count", n)
	writeMessage(w, http.StatusCreated, "Default categories created successfully")
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.categories.List(r.Context(), currentUser(r))
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": cats})
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var in services.CategoryInput
	if err := decodeBody(r, &in, categoryFields...); err != nil {
		writeServiceError(w, r, err, "")
		return
	}

	owner := currentUser(r)
	c, err := s.categories.Create(r.Context(), owner, in)
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}

	s.invalidateDashboards(r, owner)
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":  "Category created successfully",
		"category": c,
	})
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var in services.CategoryInput
	if err := decodeBody(r, &in, categoryFields...); err != nil {
		writeServiceError(w, r, err, "")
		return
	}

	owner := currentUser(r)
	c, err := s.categories.Update(r.Context(), owner, r.PathValue("id"), in)
	if err != nil {
		writeServiceError(w, r, err, "Category not found")
		return
	}

	s.invalidateDashboards(r, owner)
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Category updated successfully",
		"category": c,
	})
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	owner := currentUser(r)
	if err := s.categories.Delete(r.Context(), owner, r.PathValue("id")); err != nil {
		writeServiceError(w, r, err, "Category not found")
		return
	}

	s.invalidateDashboards(r, owner)
	writeMessage(w, http.StatusOK, "Category deleted successfully")
}
