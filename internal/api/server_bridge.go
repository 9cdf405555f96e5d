package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dgnsrekt/chartbridge/internal/host"
	"github.com/dgnsrekt/chartbridge/internal/trendline"
)

func registerBridgeHandlers(api huma.API, svc Service) {
	type stateOutput struct {
		Body host.Snapshot
	}
	huma.Register(api, huma.Operation{OperationID: "get-bridge-state", Method: http.MethodGet, Path: "/api/v1/bridge/state", Summary: "Get current bridge state", Tags: []string{"Bridge"}},
		func(ctx context.Context, input *struct{}) (*stateOutput, error) {
			snap, err := svc.State(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &stateOutput{}
			out.Body = snap
			return out, nil
		})

	type symbolOutput struct {
		Body struct {
			Symbol string `json:"symbol"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "set-symbol", Method: http.MethodPut, Path: "/api/v1/bridge/symbol", Summary: "Switch the active symbol on both chart instances", Tags: []string{"Bridge"}},
		func(ctx context.Context, input *struct {
			Body struct {
				Symbol string `json:"symbol" required:"true" doc:"Symbol to chart; a HOSE: prefix is stripped"`
			}
		}) (*symbolOutput, error) {
			sym, err := svc.SetSymbol(ctx, input.Body.Symbol)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &symbolOutput{}
			out.Body.Symbol = sym
			return out, nil
		})

	type themeOutput struct {
		Body struct {
			Theme string `json:"theme"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "set-theme", Method: http.MethodPut, Path: "/api/v1/bridge/theme", Summary: "Switch the chart color theme", Tags: []string{"Bridge"}},
		func(ctx context.Context, input *struct {
			Body struct {
				Theme string `json:"theme" required:"true" enum:"light,dark"`
			}
		}) (*themeOutput, error) {
			mode, err := svc.SetTheme(ctx, input.Body.Theme)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &themeOutput{}
			out.Body.Theme = mode
			return out, nil
		})

	huma.Register(api, huma.Operation{OperationID: "open-fullscreen", Method: http.MethodPost, Path: "/api/v1/bridge/fullscreen/open", Summary: "Open the fullscreen chart modal", Tags: []string{"Fullscreen"}},
		func(ctx context.Context, input *struct{}) (*stateOutput, error) {
			snap, err := svc.OpenFullscreen(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &stateOutput{}
			out.Body = snap
			return out, nil
		})

	huma.Register(api, huma.Operation{OperationID: "close-fullscreen", Method: http.MethodPost, Path: "/api/v1/bridge/fullscreen/close", Summary: "Close the fullscreen chart modal and sync its layout back", Tags: []string{"Fullscreen"}},
		func(ctx context.Context, input *struct{}) (*stateOutput, error) {
			snap, err := svc.CloseFullscreen(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &stateOutput{}
			out.Body = snap
			return out, nil
		})

	type layoutOutput struct {
		Body json.RawMessage
	}
	huma.Register(api, huma.Operation{OperationID: "get-layout", Method: http.MethodGet, Path: "/api/v1/bridge/layout", Summary: "Get the last captured chart layout", Tags: []string{"Layout"}},
		func(ctx context.Context, input *struct{}) (*layoutOutput, error) {
			doc, err := svc.GetLayout(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &layoutOutput{}
			out.Body = json.RawMessage(doc)
			return out, nil
		})

	huma.Register(api, huma.Operation{OperationID: "request-layout", Method: http.MethodPost, Path: "/api/v1/bridge/layout/request", Summary: "Ask an attached engine instance for a fresh layout export", Tags: []string{"Layout"}},
		func(ctx context.Context, input *struct{}) (*struct{}, error) {
			if err := svc.RequestLayout(ctx); err != nil {
				return nil, mapErr(err)
			}
			return nil, nil
		})

	type trendlinesOutput struct {
		Body struct {
			Lines []trendline.Report `json:"lines"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "get-trendlines", Method: http.MethodGet, Path: "/api/v1/bridge/trendlines", Summary: "Classify drawn trendlines against the live price", Tags: []string{"Trendlines"}},
		func(ctx context.Context, input *struct{}) (*trendlinesOutput, error) {
			lines, err := svc.Trendlines(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &trendlinesOutput{}
			out.Body.Lines = lines
			return out, nil
		})

	type healthOutput struct {
		Body struct {
			Status string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "health", Method: http.MethodGet, Path: "/api/v1/health", Summary: "Service liveness", Tags: []string{"Misc"}},
		func(ctx context.Context, input *struct{}) (*healthOutput, error) {
			out := &healthOutput{}
			out.Body.Status = "ok"
			return out, nil
		})
}
