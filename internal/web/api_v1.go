package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gorilla/websocket"
	"github.com/quadify/quadify/internal/playback"
	"github.com/quadify/quadify/internal/screens"
	"go.uber.org/zap"
)

const (
	maxRequestBody = 4 << 10
	wsWriteWait    = 5 * time.Second
	wsBacklog      = 8
)

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

type modeResponse struct {
	Mode  string   `json:"mode"`
	Modes []string `json:"modes"`
}

type modeRequest struct {
	Mode string `json:"mode"`
}

type volumeRequest struct {
	Delta *int `json:"delta"`
}

type stateMessage struct {
	Sender string         `json:"sender,omitempty"`
	State  map[string]any `json:"state"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

func apiV1Router(deps APIV1Deps) http.Handler {
	deps = deps.withDefaults()
	mux := http.NewServeMux()
	mux.HandleFunc("/state", func(w http.ResponseWriter, r *http.Request) { handleState(w, r, deps) })
	mux.HandleFunc("/mode", func(w http.ResponseWriter, r *http.Request) { handleMode(w, r, deps) })
	mux.HandleFunc("/volume", func(w http.ResponseWriter, r *http.Request) { handleVolume(w, r, deps) })
	mux.HandleFunc("/toggle", func(w http.ResponseWriter, r *http.Request) { handleToggle(w, r, deps) })
	mux.HandleFunc("/clock", func(w http.ResponseWriter, r *http.Request) { handleClock(w, r, deps) })
	mux.HandleFunc("/frame.png", func(w http.ResponseWriter, r *http.Request) { handleFrame(w, r, deps) })
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) { handleWS(w, r, deps) })
	return mux
}

func handleState(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if r.Method != http.MethodGet {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if deps.State == nil {
		writeAPIError(w, http.StatusNotImplemented, "not_implemented", "playback source not configured")
		return
	}
	st, ok := deps.State.CurrentState()
	if !ok {
		writeAPIError(w, http.StatusNotFound, "no_state", "no playback state received yet")
		return
	}
	writeJSON(w, http.StatusOK, st.ToMap())
}

func handleMode(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if deps.Modes == nil {
		writeAPIError(w, http.StatusNotImplemented, "not_implemented", "mode controller not configured")
		return
	}
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, modeResponse{Mode: deps.Modes.Mode(), Modes: deps.Modes.Modes()})
	case http.MethodPost:
		var req modeRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeAPIError(w, http.StatusBadRequest, "invalid_body", err.Error())
			return
		}
		modes := deps.Modes.Modes()
		if !slices.Contains(modes, req.Mode) {
			writeAPIError(w, http.StatusNotFound, "unknown_mode", fmt.Sprintf("unknown mode %q", req.Mode))
			return
		}
		deps.Modes.RequestMode(req.Mode)
		deps.Logger.Info("mode requested over http", zap.String("mode", req.Mode))
		writeJSON(w, http.StatusAccepted, modeResponse{Mode: req.Mode, Modes: modes})
	default:
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

func handleVolume(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if r.Method != http.MethodPost {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if deps.Commands == nil {
		writeAPIError(w, http.StatusNotImplemented, "not_implemented", "commands not configured")
		return
	}
	var req volumeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if req.Delta == nil {
		writeAPIError(w, http.StatusBadRequest, "invalid_body", "delta is required")
		return
	}
	if !deps.Commands.AdjustVolume(*req.Delta) {
		writeAPIError(w, http.StatusConflict, "not_supported", "active screen does not accept volume commands")
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func handleToggle(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if r.Method != http.MethodPost {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if deps.Commands == nil {
		writeAPIError(w, http.StatusNotImplemented, "not_implemented", "commands not configured")
		return
	}
	if !deps.Commands.TogglePlayPause() {
		writeAPIError(w, http.StatusConflict, "not_supported", "active screen does not accept play/pause")
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func handleClock(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if deps.Clock == nil {
		writeAPIError(w, http.StatusNotImplemented, "not_implemented", "clock not configured")
		return
	}
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, deps.Clock.Settings())
	case http.MethodPost:
		// Start from the current settings so partial bodies only touch what they name.
		settings := deps.Clock.Settings()
		if err := decodeJSON(w, r, &settings); err != nil {
			writeAPIError(w, http.StatusBadRequest, "invalid_body", err.Error())
			return
		}
		if settings.FontKey == "" {
			settings.FontKey = screens.DefaultClockFont
		}
		deps.Clock.Configure(settings)
		writeJSON(w, http.StatusOK, deps.Clock.Settings())
	default:
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

func handleFrame(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if r.Method != http.MethodGet {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if deps.Frames == nil {
		writeAPIError(w, http.StatusNotImplemented, "not_implemented", "frame preview not configured")
		return
	}
	img, ok := deps.Frames.Snapshot()
	if !ok {
		writeAPIError(w, http.StatusNotFound, "no_frame", "nothing has been drawn yet")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := imaging.Encode(w, img, imaging.PNG); err != nil {
		deps.Logger.Debug("frame encode failed", zap.Error(err))
	}
}

// handleWS pushes every state notification to the client as JSON. Slow
// clients miss intermediate states rather than stalling the source.
func handleWS(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if deps.State == nil {
		writeAPIError(w, http.StatusNotImplemented, "not_implemented", "playback source not configured")
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		deps.Logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	updates := make(chan stateMessage, wsBacklog)
	offer := func(msg stateMessage) {
		select {
		case updates <- msg:
		default:
		}
	}
	cancel := deps.State.Subscribe(func(sender string, st playback.State) {
		offer(stateMessage{Sender: sender, State: st.ToMap()})
	})
	defer cancel()
	if st, ok := deps.State.CurrentState(); ok {
		offer(stateMessage{State: st.ToMap()})
	}

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case msg := <-updates:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(msg); err != nil {
				deps.Logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		}
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiError{Error: code, Message: message})
}
