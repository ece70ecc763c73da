//go:generate mockgen -source ./server.go -destination=./mocks/server.go -package=mock_server
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/invitations"
	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/lockbox"
)

type BoxService interface {
	CreateBox(ctx context.Context, ownerID, name, description string) (*lockbox.Box, error)
	GetBox(ctx context.Context, boxID, requesterID string, role lockbox.Role) (lockbox.BoxView, error)
	ListOwnedBoxes(ctx context.Context, ownerID string) ([]*lockbox.Box, error)
	ListGuardianBoxes(ctx context.Context, userID string) ([]*lockbox.GuardianBoxView, error)
	UpdateBoxOwnerFields(ctx context.Context, boxID, ownerID string, patch lockbox.OwnerPatch) (*lockbox.Box, error)
	DeleteBox(ctx context.Context, boxID, ownerID string) error
	UpsertGuardian(ctx context.Context, boxID, ownerID string, g lockbox.Guardian) (*lockbox.Box, error)
	DeleteGuardian(ctx context.Context, boxID, ownerID, guardianID string) (*lockbox.Box, error)
	UpsertDocument(ctx context.Context, boxID, ownerID string, doc lockbox.Document) (*lockbox.Box, error)
	DeleteDocument(ctx context.Context, boxID, ownerID, documentID string) (*lockbox.Box, error)
	RequestUnlock(ctx context.Context, boxID, requesterID, message string) (*lockbox.GuardianBoxView, error)
	RespondToUnlock(ctx context.Context, boxID, requesterID string, approve bool) (*lockbox.GuardianBoxView, error)
	RespondToGuardianInvitation(ctx context.Context, boxID, requesterID string, accept bool) (*lockbox.GuardianBoxView, error)
}

type InvitationService interface {
	CreateInvitation(ctx context.Context, creatorID, boxID, invitedName string) (*lockbox.Invitation, error)
	RedeemInvitation(ctx context.Context, code, userID string) (*lockbox.Invitation, error)
	RefreshInvitation(ctx context.Context, invitationID, requesterID string) (*lockbox.Invitation, error)
	ListMyInvitations(ctx context.Context, creatorID, pageToken string, limit int) (invitations.Page, error)
	ListBoxInvitations(ctx context.Context, boxID, requesterID string) ([]*lockbox.Invitation, error)
}

// AdminValidator checks basic-auth credentials for the operational
// endpoints.
type AdminValidator interface {
	ValidateAdmin(ctx context.Context, username, password string) (bool, error)
}

type Config struct {
	// TrustUserHeader accepts X-User-Id when no bearer token is sent.
	TrustUserHeader bool
	// RedeemRate limits invitation redemptions per principal. Zero disables
	// the limit.
	RedeemRate  rate.Limit
	RedeemBurst int
	// Ready backs /healthz when set.
	Ready func(ctx context.Context) error
}

type Server struct {
	boxes        BoxService
	invitations  InvitationService
	admin        AdminValidator
	cfg          Config
	logger       *zap.Logger
	limiter      *redeemLimiter
	server       *http.Server
	AuditManager *AuditManager
}

// New wires the HTTP surface. admin may be nil, leaving /metrics and
// /healthz open.
func New(boxes BoxService, invitations InvitationService, admin AdminValidator, cfg Config, logger *zap.Logger) *Server {
	return &Server{
		boxes:        boxes,
		invitations:  invitations,
		admin:        admin,
		cfg:          cfg,
		logger:       logger,
		limiter:      newRedeemLimiter(cfg.RedeemRate, cfg.RedeemBurst),
		AuditManager: NewAuditManager(2, 5, 500*time.Millisecond, logger.Named("audit")),
	}
}

// Handler returns the routed API without starting a listener.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

func (s *Server) Run(ctx context.Context, port string) error {
	s.server = &http.Server{
		Addr:         ":" + port,
		Handler:      s.setupRoutes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.AuditManager.Start(ctx)
	go s.limiter.run(ctx)

	s.logger.Info("Server starting", zap.String("port", port))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server")

	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return err
		}
	}
	s.logger.Info("HTTP server shutdown completed")

	s.AuditManager.Shutdown(ctx)
	s.logger.Info("Server shutdown completed successfully")
	return nil
}

func (s *Server) setupRoutes() http.Handler {
	router := mux.NewRouter()
	router.Use(s.auditLogMiddleware)

	ops := router.NewRoute().Subrouter()
	ops.Use(s.basicAuthMiddleware)
	ops.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet).Name("metrics")
	ops.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet).Name("healthz")

	api := router.NewRoute().Subrouter()
	api.Use(s.identityMiddleware)

	api.HandleFunc("/boxes/owned", s.handleListOwnedBoxes).Methods(http.MethodGet).Name("listOwnedBoxes")
	api.HandleFunc("/boxes/owned", s.handleCreateBox).Methods(http.MethodPost).Name("createBox")
	api.HandleFunc("/boxes/owned/{id}", s.handleGetOwnedBox).Methods(http.MethodGet).Name("getOwnedBox")
	api.HandleFunc("/boxes/owned/{id}", s.handleUpdateBox).Methods(http.MethodPatch).Name("updateBox")
	api.HandleFunc("/boxes/owned/{id}", s.handleDeleteBox).Methods(http.MethodDelete).Name("deleteBox")
	api.HandleFunc("/boxes/owned/{id}/guardian", s.handleUpsertGuardian).Methods(http.MethodPatch).Name("upsertGuardian")
	api.HandleFunc("/boxes/owned/{id}/guardian/{guardianId}", s.handleDeleteGuardian).Methods(http.MethodDelete).Name("deleteGuardian")
	api.HandleFunc("/boxes/owned/{id}/document", s.handleUpsertDocument).Methods(http.MethodPatch).Name("upsertDocument")
	api.HandleFunc("/boxes/owned/{id}/document/{documentId}", s.handleDeleteDocument).Methods(http.MethodDelete).Name("deleteDocument")
	api.HandleFunc("/boxes/owned/{id}/invitations", s.handleListBoxInvitations).Methods(http.MethodGet).Name("listBoxInvitations")

	api.HandleFunc("/boxes/guardian", s.handleListGuardianBoxes).Methods(http.MethodGet).Name("listGuardianBoxes")
	api.HandleFunc("/boxes/guardian/{id}", s.handleGetGuardianBox).Methods(http.MethodGet).Name("getGuardianBox")
	api.HandleFunc("/boxes/guardian/{id}/request", s.handleRequestUnlock).Methods(http.MethodPatch).Name("requestUnlock")
	api.HandleFunc("/boxes/guardian/{id}/respond", s.handleRespondToUnlock).Methods(http.MethodPatch).Name("respondToUnlock")
	api.HandleFunc("/boxes/guardian/{id}/invitation", s.handleRespondToInvitation).Methods(http.MethodPatch).Name("respondToInvitation")

	api.HandleFunc("/invitations", s.handleCreateInvitation).Methods(http.MethodPost).Name("createInvitation")
	api.Handle("/invitations/handle", s.rateLimitMiddleware(http.HandlerFunc(s.handleRedeemInvitation))).Methods(http.MethodPut).Name("redeemInvitation")
	api.HandleFunc("/invitations/me", s.handleListMyInvitations).Methods(http.MethodGet).Name("listMyInvitations")
	api.HandleFunc("/invitations/{inviteId}/refresh", s.handleRefreshInvitation).Methods(http.MethodPatch).Name("refreshInvitation")

	return router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Ready != nil {
		if err := s.cfg.Ready(r.Context()); err != nil {
			s.logger.Warn("Readiness check failed", zap.Error(err))
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	return json.NewDecoder(r.Body).Decode(v)
}
