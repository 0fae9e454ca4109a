package main

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/quadify/quadify/internal/playback"
)

type SimFaults struct {
	Disconnected bool `json:"disconnected"`
	CommandFail  bool `json:"commandFail"`
}

type SimControl struct {
	source          *SimSource
	startupScenario string
}

func NewSimControl(source *SimSource, startupScenario string) *SimControl {
	startupScenario = strings.TrimSpace(startupScenario)
	if startupScenario == "" {
		startupScenario = "airplay"
	}
	return &SimControl{source: source, startupScenario: startupScenario}
}

func (c *SimControl) ApplyScenario(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		name = c.startupScenario
	}
	return c.source.Load(name)
}

func (c *SimControl) Reset() error {
	c.source.SetFaults(SimFaults{})
	return c.ApplyScenario(c.startupScenario)
}

// Register mounts the simulator controls under /sim/.
func (c *SimControl) Register(mux *http.ServeMux) {
	mux.HandleFunc("/sim/reset", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeSimError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if err := c.Reset(); err != nil {
			writeSimError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeSimJSON(w, http.StatusOK, map[string]any{"ok": true, "scenario": c.source.Scenario()})
	})

	mux.HandleFunc("/sim/scenario/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeSimError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		name := strings.Trim(strings.TrimPrefix(r.URL.Path, "/sim/scenario/"), "/")
		if err := c.ApplyScenario(name); err != nil {
			writeSimError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeSimJSON(w, http.StatusOK, map[string]any{"ok": true, "scenario": c.source.Scenario()})
	})

	mux.HandleFunc("/sim/next", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeSimError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		c.source.Next()
		writeSimJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	// /sim/state publishes an arbitrary Volumio-style state object.
	mux.HandleFunc("/sim/state", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeSimError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		var m map[string]any
		if err := dec.Decode(&m); err != nil {
			writeSimError(w, http.StatusBadRequest, "invalid json")
			return
		}
		st := playback.FromMap(m)
		c.source.Publish(Sender, st)
		writeSimJSON(w, http.StatusOK, st.ToMap())
	})

	mux.HandleFunc("/sim/faults", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeSimJSON(w, http.StatusOK, c.source.Faults())
		case http.MethodPost:
			var patch struct {
				Disconnected *bool `json:"disconnected"`
				CommandFail  *bool `json:"commandFail"`
			}
			if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
				writeSimError(w, http.StatusBadRequest, "invalid json")
				return
			}
			current := c.source.Faults()
			if patch.Disconnected != nil {
				current.Disconnected = *patch.Disconnected
			}
			if patch.CommandFail != nil {
				current.CommandFail = *patch.CommandFail
			}
			c.source.SetFaults(current)
			writeSimJSON(w, http.StatusOK, current)
		default:
			writeSimError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	})
}

func writeSimJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSimError(w http.ResponseWriter, status int, message string) {
	writeSimJSON(w, status, map[string]any{"error": message})
}
