package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/playperu/partynight/internal/game"
	"github.com/playperu/partynight/internal/party"
)

func handleGameState(svc *game.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gs, err := svc.GameState(r.Context())
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, gs)
	}
}

// handleGameAction serves the admin start, unlock-clues and reset actions,
// which all take no body and answer with the new game state.
func handleGameAction(action func(context.Context) (party.GameState, error), logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gs, err := action(r.Context())
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, gs)
	}
}

func handleScoreboard(svc *game.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := svc.Standings(r.Context())
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, s)
	}
}
