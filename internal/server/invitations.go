package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/lockbox"
)

func (s *Server) handleCreateInvitation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InvitedName string `json:"invitedName"`
		BoxID       string `json:"boxId"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	inv, err := s.invitations.CreateInvitation(r.Context(), principalFrom(r.Context()), req.BoxID, req.InvitedName)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, inv)
}

func (s *Server) handleRedeemInvitation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InviteCode string `json:"inviteCode"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	inv, err := s.invitations.RedeemInvitation(r.Context(), req.InviteCode, principalFrom(r.Context()))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, messageResponse{
		Message: fmt.Sprintf("User successfully bound to invitation for box %s", inv.BoxID),
		BoxID:   inv.BoxID,
	})
}

func (s *Server) handleRefreshInvitation(w http.ResponseWriter, r *http.Request) {
	inv, err := s.invitations.RefreshInvitation(r.Context(), mux.Vars(r)["inviteId"], principalFrom(r.Context()))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, inv)
}

func (s *Server) handleListMyInvitations(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		var err error
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			respondError(w, http.StatusBadRequest, "Invalid value for 'limit' parameter")
			return
		}
	}

	page, err := s.invitations.ListMyInvitations(r.Context(), principalFrom(r.Context()), r.URL.Query().Get("pageToken"), limit)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	if page.Invitations == nil {
		page.Invitations = []*lockbox.Invitation{}
	}
	respondJSON(w, http.StatusOK, page)
}

func (s *Server) handleListBoxInvitations(w http.ResponseWriter, r *http.Request) {
	found, err := s.invitations.ListBoxInvitations(r.Context(), mux.Vars(r)["id"], principalFrom(r.Context()))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	if found == nil {
		found = []*lockbox.Invitation{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"invitations": found})
}
