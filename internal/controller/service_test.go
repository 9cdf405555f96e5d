package controller

import (
	"context"
	"errors"
	"testing"

	"github.com/dgnsrekt/chartbridge/internal/engine"
	"github.com/dgnsrekt/chartbridge/internal/host"
	"github.com/dgnsrekt/chartbridge/internal/pricefeed"
	"github.com/dgnsrekt/chartbridge/internal/relay"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	h := host.New(nil, pricefeed.NewTracker(), relay.NewBroker(), nil, "VNINDEX", host.ThemeLight, host.DefaultDelays())
	t.Cleanup(h.Close)
	return NewService(h)
}

func TestSetSymbolRejectsBlank(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.SetSymbol(context.Background(), "   ")
	var coded *engine.CodedError
	if !errors.As(err, &coded) || coded.Code != engine.CodeValidation {
		t.Fatalf("SetSymbol blank error = %v; want validation CodedError", err)
	}
}

func TestSetSymbolNormalizes(t *testing.T) {
	svc := newTestService(t)
	got, err := svc.SetSymbol(context.Background(), "hose:vnm")
	if err != nil {
		t.Fatalf("SetSymbol failed: %v", err)
	}
	if got != "VNM" {
		t.Fatalf("SetSymbol returned %q; want VNM", got)
	}
}

func TestSetThemeLowercases(t *testing.T) {
	svc := newTestService(t)
	got, err := svc.SetTheme(context.Background(), " Dark ")
	if err != nil {
		t.Fatalf("SetTheme failed: %v", err)
	}
	if got != "dark" {
		t.Fatalf("SetTheme returned %q; want dark", got)
	}
}

func TestGetLayoutNotFoundBeforeCapture(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.GetLayout(context.Background())
	var coded *engine.CodedError
	if !errors.As(err, &coded) || coded.Code != engine.CodeNotFound {
		t.Fatalf("GetLayout error = %v; want NOT_FOUND CodedError", err)
	}
}

func TestRequestLayoutWithoutInstances(t *testing.T) {
	svc := newTestService(t)
	err := svc.RequestLayout(context.Background())
	var coded *engine.CodedError
	if !errors.As(err, &coded) || coded.Code != engine.CodeEngineUnavailable {
		t.Fatalf("RequestLayout error = %v; want ENGINE_UNAVAILABLE CodedError", err)
	}
}
