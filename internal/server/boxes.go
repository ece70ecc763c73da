package server

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/lockbox"
)

type messageResponse struct {
	Message string `json:"message"`
	BoxID   string `json:"boxId,omitempty"`
}

type guardiansResponse struct {
	Guardians []lockbox.Guardian `json:"guardians"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

type documentsResponse struct {
	Documents []lockbox.Document `json:"documents"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

func (s *Server) handleListOwnedBoxes(w http.ResponseWriter, r *http.Request) {
	boxes, err := s.boxes.ListOwnedBoxes(r.Context(), principalFrom(r.Context()))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	if boxes == nil {
		boxes = []*lockbox.Box{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"boxes": boxes})
}

func (s *Server) handleCreateBox(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	b, err := s.boxes.CreateBox(r.Context(), principalFrom(r.Context()), req.Name, req.Description)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, b)
}

func (s *Server) handleGetOwnedBox(w http.ResponseWriter, r *http.Request) {
	s.getBox(w, r, lockbox.RoleOwner)
}

func (s *Server) handleGetGuardianBox(w http.ResponseWriter, r *http.Request) {
	s.getBox(w, r, lockbox.RoleGuardian)
}

func (s *Server) getBox(w http.ResponseWriter, r *http.Request, role lockbox.Role) {
	view, err := s.boxes.GetBox(r.Context(), mux.Vars(r)["id"], principalFrom(r.Context()), role)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleUpdateBox(w http.ResponseWriter, r *http.Request) {
	var patch lockbox.OwnerPatch
	if err := decodeBody(r, &patch); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	b, err := s.boxes.UpdateBoxOwnerFields(r.Context(), mux.Vars(r)["id"], principalFrom(r.Context()), patch)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, b)
}

func (s *Server) handleDeleteBox(w http.ResponseWriter, r *http.Request) {
	boxID := mux.Vars(r)["id"]
	if err := s.boxes.DeleteBox(r.Context(), boxID, principalFrom(r.Context())); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, messageResponse{Message: "Box deleted", BoxID: boxID})
}

func (s *Server) handleUpsertGuardian(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Guardian *lockbox.Guardian `json:"guardian"`
	}
	if err := decodeBody(r, &req); err != nil || req.Guardian == nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	b, err := s.boxes.UpsertGuardian(r.Context(), mux.Vars(r)["id"], principalFrom(r.Context()), *req.Guardian)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, guardiansResponse{Guardians: b.Guardians, UpdatedAt: b.UpdatedAt})
}

func (s *Server) handleDeleteGuardian(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	b, err := s.boxes.DeleteGuardian(r.Context(), vars["id"], principalFrom(r.Context()), vars["guardianId"])
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, guardiansResponse{Guardians: b.Guardians, UpdatedAt: b.UpdatedAt})
}

func (s *Server) handleUpsertDocument(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Document *lockbox.Document `json:"document"`
	}
	if err := decodeBody(r, &req); err != nil || req.Document == nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	b, err := s.boxes.UpsertDocument(r.Context(), mux.Vars(r)["id"], principalFrom(r.Context()), *req.Document)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, documentsResponse{Documents: b.Documents, UpdatedAt: b.UpdatedAt})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	b, err := s.boxes.DeleteDocument(r.Context(), vars["id"], principalFrom(r.Context()), vars["documentId"])
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, documentsResponse{Documents: b.Documents, UpdatedAt: b.UpdatedAt})
}

func (s *Server) handleListGuardianBoxes(w http.ResponseWriter, r *http.Request) {
	views, err := s.boxes.ListGuardianBoxes(r.Context(), principalFrom(r.Context()))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	if views == nil {
		views = []*lockbox.GuardianBoxView{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"boxes": views})
}

func (s *Server) handleRequestUnlock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	view, err := s.boxes.RequestUnlock(r.Context(), mux.Vars(r)["id"], principalFrom(r.Context()), req.Message)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleRespondToUnlock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Approve *bool `json:"approve"`
		Reject  *bool `json:"reject"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	approve := req.Approve != nil && *req.Approve
	reject := req.Reject != nil && *req.Reject
	if approve == reject {
		respondError(w, http.StatusBadRequest, "Exactly one of approve or reject must be true")
		return
	}

	view, err := s.boxes.RespondToUnlock(r.Context(), mux.Vars(r)["id"], principalFrom(r.Context()), approve)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleRespondToInvitation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Accept *bool `json:"accept"`
	}
	if err := decodeBody(r, &req); err != nil || req.Accept == nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	boxID := mux.Vars(r)["id"]
	view, err := s.boxes.RespondToGuardianInvitation(r.Context(), boxID, principalFrom(r.Context()), *req.Accept)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	if view == nil {
		respondJSON(w, http.StatusOK, messageResponse{Message: "Guardian invitation rejected", BoxID: boxID})
		return
	}
	respondJSON(w, http.StatusOK, view)
}
