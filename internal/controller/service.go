package controller

import (
	"context"
	"strings"

	"github.com/dgnsrekt/chartbridge/internal/engine"
	"github.com/dgnsrekt/chartbridge/internal/host"
	"github.com/dgnsrekt/chartbridge/internal/layout"
	"github.com/dgnsrekt/chartbridge/internal/symbol"
	"github.com/dgnsrekt/chartbridge/internal/trendline"
)

// Service wraps the chart host behind validated control operations.
type Service struct {
	host *host.Host
}

func NewService(h *host.Host) *Service {
	return &Service{host: h}
}

func (s *Service) requireNonEmpty(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return &engine.CodedError{Code: engine.CodeValidation, Message: fieldName + " is required"}
	}
	return nil
}

func (s *Service) State(ctx context.Context) (host.Snapshot, error) {
	return s.host.State(), nil
}

// SetSymbol switches the active symbol and returns the normalized form.
func (s *Service) SetSymbol(ctx context.Context, sym string) (string, error) {
	if err := s.requireNonEmpty(sym, "symbol"); err != nil {
		return "", err
	}
	if err := s.host.SetSymbol(sym); err != nil {
		return "", err
	}
	return symbol.Normalize(sym), nil
}

func (s *Service) SetTheme(ctx context.Context, mode string) (string, error) {
	if err := s.requireNonEmpty(mode, "theme"); err != nil {
		return "", err
	}
	mode = strings.ToLower(strings.TrimSpace(mode))
	if err := s.host.SetTheme(mode); err != nil {
		return "", err
	}
	return mode, nil
}

func (s *Service) OpenFullscreen(ctx context.Context) (host.Snapshot, error) {
	if err := s.host.OpenFullscreen(); err != nil {
		return host.Snapshot{}, err
	}
	return s.host.State(), nil
}

func (s *Service) CloseFullscreen(ctx context.Context) (host.Snapshot, error) {
	if err := s.host.CloseFullscreen(); err != nil {
		return host.Snapshot{}, err
	}
	return s.host.State(), nil
}

// GetLayout returns the last captured layout document.
func (s *Service) GetLayout(ctx context.Context) (layout.Layout, error) {
	doc := s.host.Layout()
	if len(doc) == 0 {
		return nil, &engine.CodedError{Code: engine.CodeNotFound, Message: "no layout captured yet"}
	}
	return doc, nil
}

// RequestLayout asks an attached engine instance for a fresh layout export.
func (s *Service) RequestLayout(ctx context.Context) error {
	return s.host.RequestLayout()
}

func (s *Service) Trendlines(ctx context.Context) ([]trendline.Report, error) {
	return s.host.Trendlines()
}
