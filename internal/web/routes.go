package web

import (
	"net/http"

	"github.com/quadify/quadify/internal/version"
)

type healthResponse struct {
	OK      bool   `json:"ok"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
}

// NewDefaultMux is the mux shared by the daemon and the simulator: the API
// under /api/v1/, a liveness check at /healthz and the preview page at /.
func NewDefaultMux(staticDir string, deps APIV1Deps) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/api/v1/", http.StripPrefix("/api/v1", apiV1Router(deps)))
	mux.HandleFunc("/healthz", handleHealth)
	mux.Handle("/", StaticUIHandler(staticDir))
	return mux
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{OK: true, Version: version.Version, Commit: version.Commit})
}
