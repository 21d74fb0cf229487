package web

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"telegram-prediction-backend/internal/domain"
	"telegram-prediction-backend/internal/domain/model"
)

// productRequest is the write shape for catalog entries. Price nil means
// dynamic pricing resolved per buyer at invoice time.
type productRequest struct {
	Slug        string         `json:"slug"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Type        string         `json:"type"`
	Price       *int64         `json:"price"`
	Prev        *string        `json:"prev"`
	Next        *string        `json:"next"`
	Effects     []model.Effect `json:"effects"`
}

func (req *productRequest) toModel(id string) *model.Product {
	return &model.Product{
		ID:          id,
		Slug:        req.Slug,
		Name:        req.Name,
		Description: req.Description,
		Type:        model.ProductType(req.Type),
		Price:       req.Price,
		Prev:        req.Prev,
		Next:        req.Next,
		Effects:     req.Effects,
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	products, err := s.catalog.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, struct {
		Data []*model.Product `json:"data"`
	}{Data: products})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	p, err := s.catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	p, err := s.catalog.Create(r.Context(), req.toModel(""))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	p, err := s.catalog.Update(r.Context(), req.toModel(chi.URLParam(r, "id")))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		http.Error(w, err.Error(), http.StatusBadRequest)
	case domain.KindNotFound:
		http.Error(w, err.Error(), http.StatusNotFound)
	case domain.KindConflict:
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		s.log.Error().Err(err).Msg("admin request failed")
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}
