package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/partynight/internal/consolidate"
	"github.com/playperu/partynight/internal/game"
	"github.com/playperu/partynight/internal/party"
)

type PasswordGameRequest struct {
	Title     string   `json:"title"`
	Passwords []string `json:"passwords"`
	Active    bool     `json:"active"`
}

type StatementPackRequest struct {
	Title      string   `json:"title"`
	Statements []string `json:"statements"`
	Active     bool     `json:"active"`
}

type ReconcileResponse struct {
	Kind    consolidate.Kind `json:"kind"`
	Changed bool             `json:"changed"`
}

// PasswordGameView is the password-game config as guests see it. Passwords
// are only filled in for admins.
type PasswordGameView struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Active        bool       `json:"active"`
	PasswordCount int        `json:"passwordCount"`
	Passwords     []string   `json:"passwords,omitempty"`
	StartedAt     *time.Time `json:"startedAt,omitempty"`
	EndedAt       *time.Time `json:"endedAt,omitempty"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty"`
}

func newPasswordGameView(cfg party.PasswordGameConfig, admin bool) PasswordGameView {
	v := PasswordGameView{
		ID:            cfg.ID,
		Title:         cfg.Title,
		Active:        cfg.Active,
		PasswordCount: len(cfg.Passwords),
		StartedAt:     cfg.StartedAt,
		EndedAt:       cfg.EndedAt,
		UpdatedAt:     cfg.UpdatedAt,
	}
	if admin {
		v.Passwords = cfg.Passwords
	}
	return v
}

func handleGetPasswordGame(svc *game.Service, admins *Admins, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg, err := svc.PasswordGame(r.Context())
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, newPasswordGameView(cfg, admins.Valid(bearerToken(r))))
	}
}

func handlePutPasswordGame(svc *game.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PasswordGameRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		cfg, err := svc.PutPasswordGame(r.Context(), game.ConfigInput{
			Title:  req.Title,
			Items:  req.Passwords,
			Active: req.Active,
		})
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, cfg)
	}
}

func handleGetStatementPack(svc *game.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg, err := svc.StatementPack(r.Context())
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, cfg)
	}
}

func handlePutStatementPack(svc *game.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StatementPackRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		cfg, err := svc.PutStatementPack(r.Context(), game.ConfigInput{
			Title:  req.Title,
			Items:  req.Statements,
			Active: req.Active,
		})
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, cfg)
	}
}

func handleReconcile(svc *game.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind, err := consolidate.ParseKind(chi.URLParam(r, "kind"))
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}

		changed, err := svc.Reconcile(r.Context(), kind)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, ReconcileResponse{Kind: kind, Changed: changed})
	}
}
