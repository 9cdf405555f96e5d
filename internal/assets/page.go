package assets

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// bootstrapToken is the placeholder in the engine page template that gets
// replaced with the serialized Bootstrap before serving.
const bootstrapToken = "__CHART_BOOTSTRAP__"

const indexAsset = "index.html"

// Bootstrap is the initial state injected into the engine page so it can
// render before its WebSocket channel to the host comes up.
type Bootstrap struct {
	Instance string `json:"instance"`
	Symbol   string `json:"symbol"`
	Theme    string `json:"theme"`
	FastLoad bool   `json:"fastLoad"`
}

// BootstrapFunc produces the bootstrap for one page load.
type BootstrapFunc func(instance string) Bootstrap

// PageHandler serves the engine page with the bootstrap token substituted.
// The instance name comes from ?instance=, defaulting to "small".
func PageHandler(cache *Cache, bootstrap BootstrapFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		instance := r.URL.Query().Get("instance")
		if instance == "" {
			instance = "small"
		}

		page, err := cache.Get(r.Context(), indexAsset)
		if err != nil {
			slog.Error("engine page unavailable", "error", err)
			http.Error(w, "engine page unavailable", http.StatusBadGateway)
			return
		}

		boot, err := json.Marshal(bootstrap(instance))
		if err != nil {
			http.Error(w, "bootstrap marshal failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		w.Write(bytes.Replace(page, []byte(bootstrapToken), boot, 1))
	}
}

// AssetHandler serves raw bundle assets (scripts, styles) from the cache,
// keyed by the path remainder after the mount point.
func AssetHandler(cache *Cache, prefix string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, prefix), "/")
		if name == "" || strings.Contains(name, "..") {
			http.NotFound(w, r)
			return
		}

		data, err := cache.Get(r.Context(), name)
		if err != nil {
			http.Error(w, "asset unavailable", http.StatusBadGateway)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		w.Write(data)
	}
}
