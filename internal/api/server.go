package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgnsrekt/chartbridge/internal/engine"
	"github.com/dgnsrekt/chartbridge/internal/host"
	"github.com/dgnsrekt/chartbridge/internal/layout"
	"github.com/dgnsrekt/chartbridge/internal/relay"
	"github.com/dgnsrekt/chartbridge/internal/trendline"
)

// Service is the control surface the API exposes over the chart host.
type Service interface {
	State(ctx context.Context) (host.Snapshot, error)
	SetSymbol(ctx context.Context, sym string) (string, error)
	SetTheme(ctx context.Context, mode string) (string, error)
	OpenFullscreen(ctx context.Context) (host.Snapshot, error)
	CloseFullscreen(ctx context.Context) (host.Snapshot, error)
	GetLayout(ctx context.Context) (layout.Layout, error)
	RequestLayout(ctx context.Context) error
	Trendlines(ctx context.Context) ([]trendline.Report, error)
}

// EngineMounts carries the non-REST handlers mounted next to the control
// API: the engine page, its bundle assets, and the message gateway.
type EngineMounts struct {
	Page    http.HandlerFunc
	Assets  http.HandlerFunc
	Gateway http.HandlerFunc
}

// NewServer wires the control API, SSE event stream, and engine mounts onto
// one router.
func NewServer(svc Service, broker *relay.Broker, mounts EngineMounts) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("Chart Bridge API", "1.0.0")
	cfg.DocsPath = ""
	api := humachi.New(router, cfg)

	router.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(docsHTML)); err != nil {
			slog.Debug("docs response write failed", "error", err)
		}
	})

	router.Get("/events", relay.SSEHandler(broker))
	if mounts.Page != nil {
		router.Get("/engine", mounts.Page)
	}
	if mounts.Assets != nil {
		router.Get("/engine/assets/*", mounts.Assets)
	}
	if mounts.Gateway != nil {
		router.Get("/engine/ws", mounts.Gateway)
	}

	registerBridgeHandlers(api, svc)

	return router
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var coded *engine.CodedError
	if errors.As(err, &coded) {
		switch coded.Code {
		case engine.CodeValidation:
			return huma.Error400BadRequest(coded.Message)
		case engine.CodeNotFound:
			return huma.Error404NotFound(coded.Message)
		case engine.CodeEngineUnavailable, engine.CodeAssetUnavailable:
			return huma.Error502BadGateway(coded.Message)
		default:
			return huma.Error500InternalServerError(fmt.Sprintf("%s: %s", coded.Code, coded.Message))
		}
	}
	return huma.Error500InternalServerError(err.Error())
}
