package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"blade-arena/internal/game"
	"blade-arena/internal/lobby"

	"github.com/go-chi/chi/v5"
)

// maxNameLength bounds display names accepted on join.
const maxNameLength = 32

type createRoomRequest struct {
	RobotCount  int `json:"robotCount"`
	RewardCount int `json:"rewardCount"`
	CreatorID   int `json:"creatorId"`
}

type joinRequest struct {
	UserID int    `json:"userId"`
	Name   string `json:"name"`
}

type destinationRequest struct {
	UserID int      `json:"userId"`
	X      *float64 `json:"x"`
	Y      *float64 `json:"y"`
}

func (h *routerHandlers) handleListRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.rooms.Rooms())
}

func (h *routerHandlers) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, "invalid request", http.StatusBadRequest)
		return
	}

	id, err := h.rooms.CreateRoom(lobby.CreateOptions{
		RobotCount:  req.RobotCount,
		RewardCount: req.RewardCount,
		CreatorID:   req.CreatorID,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		writeLobbyError(w, err)
		return
	}

	w.Header().Set("Location", "/api/rooms/"+id)
	writeJSONStatus(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *routerHandlers) handleTerminateRoom(w http.ResponseWriter, r *http.Request) {
	if err := h.rooms.TerminateRoom(chi.URLParam(r, "roomID")); err != nil {
		writeLobbyError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	format, err := ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	state, err := h.rooms.GetLatestState(chi.URLParam(r, "roomID"))
	if err != nil {
		writeLobbyError(w, err)
		return
	}

	data, err := EncodeState(format, state)
	if err != nil {
		writeError(w, "encoding failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Write(data)
}

func (h *routerHandlers) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	state, err := h.rooms.GetLatestState(chi.URLParam(r, "roomID"))
	if err != nil {
		writeLobbyError(w, err)
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	writeJSON(w, game.Leaderboard(state, limit))
}

func (h *routerHandlers) handleGetPreview(w http.ResponseWriter, r *http.Request) {
	state, err := h.rooms.GetLatestState(chi.URLParam(r, "roomID"))
	if err != nil {
		writeLobbyError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := h.preview.EncodePNG(w, state); err != nil {
		writeError(w, "render failed", http.StatusInternalServerError)
	}
}

func (h *routerHandlers) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, "invalid request", http.StatusBadRequest)
		return
	}
	name, err := validateJoin(req.UserID, req.Name)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.rooms.JoinRoom(chi.URLParam(r, "roomID"), req.UserID, name); err != nil {
		writeLobbyError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusAccepted, map[string]bool{"success": true})
}

func (h *routerHandlers) handleSetDestination(w http.ResponseWriter, r *http.Request) {
	var req destinationRequest
	if err := decodeBody(w, r, &req); err != nil || req.X == nil || req.Y == nil {
		writeError(w, "invalid request", http.StatusBadRequest)
		return
	}

	if err := h.rooms.SetDestination(chi.URLParam(r, "roomID"), req.UserID, *req.X, *req.Y); err != nil {
		writeLobbyError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusAccepted, map[string]bool{"success": true})
}

// validateJoin checks a human join and returns the display name to use.
// Negative ids are reserved for robots.
func validateJoin(userID int, name string) (string, error) {
	if userID <= 0 {
		return "", errors.New("userId must be positive")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("player-%d", userID)
	}
	if len([]rune(name)) > maxNameLength {
		return "", fmt.Errorf("name longer than %d characters", maxNameLength)
	}
	return name, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// statusFor maps room errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, lobby.ErrRoomNotFound):
		return http.StatusNotFound
	case errors.Is(err, lobby.ErrRoomTerminated):
		return http.StatusGone
	case errors.Is(err, lobby.ErrInvalidOptions), errors.Is(err, lobby.ErrInvalidDestination):
		return http.StatusBadRequest
	case errors.Is(err, lobby.ErrInboxFull):
		return http.StatusTooManyRequests
	case errors.Is(err, lobby.ErrRoomLimit):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeLobbyError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeError(w, msg, code)
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data any) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	writeJSONStatus(w, code, map[string]string{"error": message})
}
