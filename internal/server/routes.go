// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Scribe Contributors

package server

import (
	"context"
	"net/http"
	"sort"

	"github.com/danielgtaylor/huma/v2"

	scribeerr "github.com/scribe-dev/scribe/pkg/errors"
	"github.com/scribe-dev/scribe/pkg/health"
)

// HealthBody is the JSON body of the liveness endpoint.
type HealthBody struct {
	Status string `json:"status" example:"ok" doc:"Process liveness"`
	Ready  bool   `json:"ready" doc:"Whether the messaging session is ready"`
}

type HealthResponse struct {
	Body HealthBody
}

// ProviderStatus is one transcription backend's health.
type ProviderStatus struct {
	Name string `json:"name" example:"openai"`
	health.Metrics
}

// StatusBody is the full status document.
type StatusBody struct {
	Version       string           `json:"version"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Session       health.Snapshot  `json:"session"`
	Providers     []ProviderStatus `json:"providers,omitempty"`
}

type StatusResponse struct {
	Body StatusBody
}

type ProviderHealthInput struct {
	Name string `path:"name" doc:"Transcription provider name" example:"openai"`
}

type ProviderHealthResponse struct {
	Body ProviderStatus
}

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Tags:        []string{"system"},
	}, s.handleHealth)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-status",
		Method:      http.MethodGet,
		Path:        "/api/v1/status",
		Summary:     "Session supervisor and provider status",
		Tags:        []string{"status"},
	}, s.handleStatus)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-provider-health",
		Method:      http.MethodGet,
		Path:        "/api/v1/providers/{name}/health",
		Summary:     "Transcription provider health",
		Tags:        []string{"status"},
	}, s.handleProviderHealth)
}

func (s *Server) handleHealth(_ context.Context, _ *struct{}) (*HealthResponse, error) {
	snap := s.cfg.Status.Snapshot()
	return &HealthResponse{Body: HealthBody{Status: "ok", Ready: snap.Ready}}, nil
}

func (s *Server) handleStatus(_ context.Context, _ *struct{}) (*StatusResponse, error) {
	body := StatusBody{
		Version:       s.cfg.Version,
		UptimeSeconds: int64(s.cfg.Clock.Since(s.startedAt).Seconds()),
		Session:       s.cfg.Status.Snapshot(),
		Providers:     s.providers(),
	}
	return &StatusResponse{Body: body}, nil
}

func (s *Server) handleProviderHealth(_ context.Context, input *ProviderHealthInput) (*ProviderHealthResponse, error) {
	if s.cfg.Providers == nil {
		return nil, apiError(scribeerr.New(scribeerr.CodeServerStatusUnavailable, "provider health not available"))
	}
	m, ok := s.cfg.Providers.Health()[input.Name]
	if !ok {
		return nil, apiError(scribeerr.New(scribeerr.CodeTranscriptionNotFound,
			"provider "+input.Name+" not found", scribeerr.FieldProvider(input.Name)))
	}
	return &ProviderHealthResponse{Body: ProviderStatus{Name: input.Name, Metrics: m}}, nil
}

func (s *Server) providers() []ProviderStatus {
	if s.cfg.Providers == nil {
		return nil
	}
	all := s.cfg.Providers.Health()
	out := make([]ProviderStatus, 0, len(all))
	for name, m := range all {
		out = append(out, ProviderStatus{Name: name, Metrics: m})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// apiError renders a coded error as a problem response with its mapped status.
func apiError(err error) error {
	return huma.NewError(scribeerr.HTTPStatus(err), err.Error())
}
