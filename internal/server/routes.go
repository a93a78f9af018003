package server

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/playperu/partynight/internal/realtime"
)

func addRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	svc := deps.Game

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Party Night API", "/openapi.json", "/docs"))

	r.Get("/ws", realtime.HandleWebSocket(deps.Hub, logger, deps.WS))

	r.Route("/api", func(r chi.Router) {
		r.Get("/events", realtime.HandleEvents(deps.Hub, logger))

		r.Post("/admin/login", handleAdminLogin(deps.Admins))
		r.Post("/admin/logout", handleAdminLogout(deps.Admins))

		r.Get("/game", handleGameState(svc, logger))
		r.Get("/scoreboard", handleScoreboard(svc, logger))

		r.Get("/guests", handleListGuests(svc, logger))
		r.Post("/guests", handleCreateGuest(svc, logger))
		r.Delete("/guests/{id}", handleDeleteGuest(svc, logger))

		r.Get("/groups", handleListGroups(svc, logger))
		r.Post("/groups", handleCreateGroup(svc, logger))
		r.Route("/groups/{id}", func(r chi.Router) {
			r.Delete("/", handleDeleteGroup(svc, logger))
			r.Post("/members", handleAddMember(svc, logger))
			r.Put("/members/{slot}", handleAssignMember(svc, logger))
			r.Delete("/members/{guestID}", handleRemoveMember(svc, logger))
			r.Post("/start", handleStartGroup(svc, logger))
			r.Post("/finish", handleFinishGroup(svc, logger))
			r.Post("/penalties", handleApplyPenalty(svc, logger))
			r.Post("/games/{gameID}/complete", handleCompleteGame(svc, logger))
			r.Post("/password", handleSubmitPassword(svc, logger))
		})

		r.Get("/configs/password-game", handleGetPasswordGame(svc, deps.Admins, logger))
		r.Get("/configs/statement-pack", handleGetStatementPack(svc, logger))

		// Admin actions.
		r.Group(func(r chi.Router) {
			r.Use(requireAdmin(deps.Admins))
			r.Post("/game/start", handleGameAction(svc.StartGame, logger))
			r.Post("/game/unlock-clues", handleGameAction(svc.UnlockClues, logger))
			r.Post("/game/reset", handleGameAction(svc.ResetGame, logger))
			r.Put("/configs/password-game", handlePutPasswordGame(svc, logger))
			r.Put("/configs/statement-pack", handlePutStatementPack(svc, logger))
			r.Post("/configs/{kind}/reconcile", handleReconcile(svc, logger))
		})
	})

	if spaDirOK(deps.SPADir) {
		logger.Info("serving SPA", "dir", deps.SPADir)
		r.NotFound(handleSPA(deps.SPADir))
	}
}
