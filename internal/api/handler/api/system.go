package api

import (
	"net/http"
	"time"

	"github.com/newthinker/risklab/internal/api/response"
	"github.com/newthinker/risklab/internal/editor"
)

// Health reports liveness.
func Health(version string, started time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, http.StatusOK, map[string]any{
			"status":  "ok",
			"version": version,
			"uptime":  time.Since(started).Round(time.Second).String(),
		})
	}
}

// EditorConfig serves the code editor setup used by the UI.
func EditorConfig(cfg editor.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, http.StatusOK, cfg)
	}
}
