package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/playperu/partynight/internal/game"
	"github.com/playperu/partynight/internal/party"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthStatus is one entry of the /healthz response.
type HealthStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type operation struct {
	method, path  string
	summary, desc string
	req           any
	resp          any
	status        int
	errors        []int
	contentType   string
}

func operations() []operation {
	return []operation{
		{method: http.MethodGet, path: "/healthz", summary: "Health check",
			desc: "Reports byte store reachability and the outcome of the latest state flush.",
			resp: map[string]HealthStatus{}, status: http.StatusOK, errors: []int{http.StatusServiceUnavailable}},

		{method: http.MethodGet, path: "/ws", summary: "Realtime WebSocket",
			desc: "Upgrades to a WebSocket. The server sends connected, game-state and scoreboard-update, then every later snapshot.",
			status: http.StatusSwitchingProtocols, contentType: "text/plain"},
		{method: http.MethodGet, path: "/api/events", summary: "Realtime event stream",
			desc: "Server-Sent Events carrying the same messages as the WebSocket.",
			status: http.StatusOK, contentType: "text/event-stream"},

		{method: http.MethodPost, path: "/api/admin/login", summary: "Admin login",
			desc: "Checks the admin password and returns a bearer token.",
			req: AdminLoginRequest{}, resp: AdminLoginResponse{}, status: http.StatusOK, errors: []int{http.StatusUnauthorized}},
		{method: http.MethodPost, path: "/api/admin/logout", summary: "Admin logout",
			desc: "Revokes the bearer token.", status: http.StatusNoContent},

		{method: http.MethodGet, path: "/api/game", summary: "Game state",
			resp: party.GameState{}, status: http.StatusOK},
		{method: http.MethodPost, path: "/api/game/start", summary: "Start the game",
			desc: "Marks the game started. The first start time is kept. Requires admin token.",
			resp: party.GameState{}, status: http.StatusOK, errors: []int{http.StatusUnauthorized}},
		{method: http.MethodPost, path: "/api/game/unlock-clues", summary: "Unlock clues",
			desc: "Unlocks guest clues once the game has started. Requires admin token.",
			resp: party.GameState{}, status: http.StatusOK, errors: []int{http.StatusUnauthorized, http.StatusConflict}},
		{method: http.MethodPost, path: "/api/game/reset", summary: "Reset the game",
			desc: "Clears the game flag and every group's timers and progress. Requires admin token.",
			resp: party.GameState{}, status: http.StatusOK, errors: []int{http.StatusUnauthorized}},
		{method: http.MethodGet, path: "/api/scoreboard", summary: "Scoreboard",
			desc: "Ranked finished groups plus the groups still in progress.",
			resp: game.Standings{}, status: http.StatusOK},

		{method: http.MethodGet, path: "/api/guests", summary: "List guests",
			resp: []party.Guest{}, status: http.StatusOK},
		{method: http.MethodPost, path: "/api/guests", summary: "Create guest",
			req: game.GuestInput{}, resp: party.Guest{}, status: http.StatusCreated, errors: []int{http.StatusBadRequest}},
		{method: http.MethodDelete, path: "/api/guests/{id}", summary: "Delete guest",
			desc: "Deletes a guest and removes it from its group.",
			status: http.StatusNoContent, errors: []int{http.StatusNotFound}},

		{method: http.MethodGet, path: "/api/groups", summary: "List groups",
			resp: []party.Group{}, status: http.StatusOK},
		{method: http.MethodPost, path: "/api/groups", summary: "Create group",
			req: GroupRequest{}, resp: party.Group{}, status: http.StatusCreated, errors: []int{http.StatusBadRequest}},
		{method: http.MethodDelete, path: "/api/groups/{id}", summary: "Delete group",
			status: http.StatusNoContent, errors: []int{http.StatusNotFound}},
		{method: http.MethodPost, path: "/api/groups/{id}/members", summary: "Add member",
			desc: "Adds a guest to the first free slot. Fails when the group already has two members.",
			req: MemberRequest{}, resp: party.Group{}, status: http.StatusOK, errors: []int{http.StatusBadRequest, http.StatusNotFound}},
		{method: http.MethodPut, path: "/api/groups/{id}/members/{slot}", summary: "Assign member slot",
			desc: "Moves a guest into slot 0 or 1, detaching it from any other group first.",
			req: MemberRequest{}, resp: party.Group{}, status: http.StatusOK, errors: []int{http.StatusBadRequest, http.StatusNotFound}},
		{method: http.MethodDelete, path: "/api/groups/{id}/members/{guestID}", summary: "Remove member",
			resp: party.Group{}, status: http.StatusOK, errors: []int{http.StatusNotFound}},
		{method: http.MethodPost, path: "/api/groups/{id}/start", summary: "Start group timer",
			resp: party.Group{}, status: http.StatusOK, errors: []int{http.StatusNotFound}},
		{method: http.MethodPost, path: "/api/groups/{id}/finish", summary: "Finish group timer",
			desc: "Stops the group's timer. Needs the group or the game to have started.",
			resp: party.Group{}, status: http.StatusOK, errors: []int{http.StatusNotFound, http.StatusConflict}},
		{method: http.MethodPost, path: "/api/groups/{id}/penalties", summary: "Apply penalty",
			req: game.PenaltyInput{}, resp: party.Group{}, status: http.StatusOK, errors: []int{http.StatusBadRequest, http.StatusNotFound}},
		{method: http.MethodPost, path: "/api/groups/{id}/games/{gameID}/complete", summary: "Complete mini-game",
			resp: party.Group{}, status: http.StatusOK, errors: []int{http.StatusBadRequest, http.StatusNotFound}},
		{method: http.MethodPost, path: "/api/groups/{id}/password", summary: "Submit password",
			desc: "Checks a guess against the consolidated password list.",
			req: PasswordRequest{}, resp: PasswordResponse{}, status: http.StatusOK, errors: []int{http.StatusNotFound, http.StatusConflict}},

		{method: http.MethodGet, path: "/api/configs/password-game", summary: "Password game config",
			desc: "Returns the canonical record, merging stored duplicates first. Passwords are only included for an admin token.",
			resp: PasswordGameView{}, status: http.StatusOK},
		{method: http.MethodPut, path: "/api/configs/password-game", summary: "Replace password game config",
			desc: "Requires admin token.",
			req: PasswordGameRequest{}, resp: party.PasswordGameConfig{}, status: http.StatusOK, errors: []int{http.StatusBadRequest, http.StatusUnauthorized}},
		{method: http.MethodGet, path: "/api/configs/statement-pack", summary: "Statement pack config",
			desc: "Returns the canonical record, merging stored duplicates first.",
			resp: party.StatementPackConfig{}, status: http.StatusOK},
		{method: http.MethodPut, path: "/api/configs/statement-pack", summary: "Replace statement pack config",
			desc: "Requires admin token.",
			req: StatementPackRequest{}, resp: party.StatementPackConfig{}, status: http.StatusOK, errors: []int{http.StatusBadRequest, http.StatusUnauthorized}},
		{method: http.MethodPost, path: "/api/configs/{kind}/reconcile", summary: "Reconcile config",
			desc: "Runs a consolidation pass for password-game or statement-pack. Requires admin token.",
			resp: ReconcileResponse{}, status: http.StatusOK, errors: []int{http.StatusUnauthorized, http.StatusNotFound}},
	}
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Party Night API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Shared game state, scoreboard and realtime updates for party night.")

	for _, op := range operations() {
		oc, err := r.NewOperationContext(op.method, op.path)
		if err != nil {
			continue
		}
		oc.SetSummary(op.summary)
		if op.desc != "" {
			oc.SetDescription(op.desc)
		}
		if op.req != nil {
			oc.AddReqStructure(op.req)
		}

		opts := []openapi.ContentOption{openapi.WithHTTPStatus(op.status)}
		if op.contentType != "" {
			opts = append(opts, openapi.WithContentType(op.contentType))
		}
		oc.AddRespStructure(op.resp, opts...)

		for _, status := range op.errors {
			if op.path == "/healthz" {
				oc.AddRespStructure(map[string]HealthStatus{}, openapi.WithHTTPStatus(status))
				continue
			}
			oc.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(status))
		}
		_ = r.AddOperation(oc)
	}

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
