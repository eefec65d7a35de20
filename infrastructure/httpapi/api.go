// Package httpapi serves the read-only inspection endpoints of the relay.
package httpapi

import (
	"chat-relay/domain/chat"
	"chat-relay/errors"
	"chat-relay/observability"
	"chat-relay/projection"
	"chat-relay/runtime"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/samber/lo"
)

// Snapshots is the read side of the router.
type Snapshots interface {
	RoomHistory(id chat.RoomID) ([]chat.Message, error)
	Identities() []chat.Identity
	Rooms() []chat.RoomID
	Stats() runtime.Stats
}

type User struct {
	ID          chat.ConnectionID `json:"id"`
	DisplayName string            `json:"displayName"`
	Rooms       []chat.RoomID     `json:"rooms"`
}

type StatsResponse struct {
	runtime.Stats
	RoomIDs    []chat.RoomID                  `json:"roomIds"`
	Activity   projection.ActivitySnapshot    `json:"activity"`
	Monitoring *observability.MonitoringStats `json:"monitoring,omitempty"`
	Uptime     string                         `json:"uptime"`
}

type API struct {
	log        *slog.Logger
	snapshots  Snapshots
	activity   *projection.Activity
	monitoring *observability.MonitoringManager
	startedAt  time.Time
}

// NewAPI builds the inspection API. activity and monitoring may be nil.
func NewAPI(log *slog.Logger, snapshots Snapshots, activity *projection.Activity,
	monitoring *observability.MonitoringManager) *API {
	return &API{
		log:        log,
		snapshots:  snapshots,
		activity:   activity,
		monitoring: monitoring,
		startedAt:  time.Now(),
	}
}

// Register mounts every endpoint on mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/messages", a.messages)
	mux.HandleFunc("GET /api/users", a.users)
	mux.HandleFunc("GET /api/stats", a.stats)
	mux.HandleFunc("GET /health", a.health)
}

// messages returns the live history of ?roomId=, an empty array for an unknown room.
func (a *API) messages(w http.ResponseWriter, r *http.Request) {
	roomID := chat.RoomID(chat.Normalize(r.URL.Query().Get("roomId")))
	if roomID == "" {
		a.writeError(w, http.StatusBadRequest, "roomId is required")
		return
	}
	history, err := a.snapshots.RoomHistory(roomID)
	switch {
	case errors.Is(err, errors.ErrNotFound):
		history = []chat.Message{}
	case err != nil:
		a.log.Error("Room history failed", "room_id", roomID, "error", err)
		a.writeError(w, http.StatusInternalServerError, "history unavailable")
		return
	}
	a.writeJSON(w, history)
}

func (a *API) users(w http.ResponseWriter, _ *http.Request) {
	users := lo.Map(a.snapshots.Identities(), func(i chat.Identity, _ int) User {
		return User{ID: i.ConnectionID, DisplayName: i.DisplayName, Rooms: i.JoinedRooms()}
	})
	a.writeJSON(w, users)
}

func (a *API) stats(w http.ResponseWriter, _ *http.Request) {
	response := StatsResponse{
		Stats:   a.snapshots.Stats(),
		RoomIDs: a.snapshots.Rooms(),
		Uptime:  time.Since(a.startedAt).Round(time.Second).String(),
	}
	if a.activity != nil {
		response.Activity = a.activity.Snapshot()
	}
	if a.monitoring != nil {
		response.Monitoring = lo.ToPtr(a.monitoring.GetLatest())
	}
	a.writeJSON(w, response)
}

func (a *API) health(w http.ResponseWriter, _ *http.Request) {
	a.writeJSON(w, map[string]string{"status": "ok"})
}

func (a *API) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Debug("Response not written", "error", err)
	}
}

func (a *API) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
