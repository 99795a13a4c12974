// Package api exposes the agent's control surface: health, runtime status,
// the capture policy view, custom-event submission, and the live envelope
// tail. The capture pipeline itself never depends on this package.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/dgnsrekt/pagepulse/internal/agent"
	"github.com/dgnsrekt/pagepulse/internal/config"
	"github.com/dgnsrekt/pagepulse/internal/types"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Service is the slice of agent behavior the control API needs.
type Service interface {
	Status() agent.Status
	Config() config.Autocapture
	Track(category string, payload map[string]any) error
}

// NewServer builds the control API handler. tail may be nil when the live
// tail is disabled.
func NewServer(svc Service, tail http.Handler) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("PagePulse Agent API", "1.0.0")
	api := humachi.New(router, cfg)

	registerHandlers(api, svc)

	if tail != nil {
		router.Handle("/api/v1/events/tail", tail)
	}

	return router
}

func registerHandlers(api huma.API, svc Service) {
	type healthOutput struct {
		Body struct {
			Status string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "health", Method: http.MethodGet, Path: "/health", Summary: "Health check", Tags: []string{"Health"}},
		func(ctx context.Context, input *struct{}) (*healthOutput, error) {
			out := &healthOutput{}
			out.Body.Status = "ok"
			return out, nil
		})

	type statusOutput struct {
		Body agent.Status
	}
	huma.Register(api, huma.Operation{OperationID: "status", Method: http.MethodGet, Path: "/api/v1/status", Summary: "Agent runtime status", Tags: []string{"Agent"}},
		func(ctx context.Context, input *struct{}) (*statusOutput, error) {
			out := &statusOutput{}
			out.Body = svc.Status()
			return out, nil
		})

	type configOutput struct {
		Body struct {
			Clicks              bool    `json:"clicks"`
			PageViews           bool    `json:"page_views"`
			DebugLog            bool    `json:"debug_log"`
			SamplingRate        float64 `json:"sampling_rate"`
			MaxEventsPerSession int     `json:"max_events_per_session"`
			FlushDwellOnStop    bool    `json:"flush_dwell_on_stop"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "get-config", Method: http.MethodGet, Path: "/api/v1/config", Summary: "Capture policy in effect", Tags: []string{"Agent"}},
		func(ctx context.Context, input *struct{}) (*configOutput, error) {
			cfg := svc.Config()
			out := &configOutput{}
			out.Body.Clicks = cfg.Clicks
			out.Body.PageViews = cfg.PageViews
			out.Body.DebugLog = cfg.DebugLog
			out.Body.SamplingRate = cfg.SamplingRate
			out.Body.MaxEventsPerSession = cfg.MaxEventsPerSession
			out.Body.FlushDwellOnStop = cfg.FlushDwellOnStop
			return out, nil
		})

	type trackInput struct {
		Body struct {
			Category string         `json:"category" doc:"Custom event category, non-empty"`
			Payload  map[string]any `json:"payload,omitempty" doc:"Arbitrary event payload fields"`
		}
	}
	type trackOutput struct {
		Body struct {
			Accepted bool `json:"accepted"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "track-custom-event", Method: http.MethodPost, Path: "/api/v1/events/custom", Summary: "Submit a custom event", Tags: []string{"Events"}},
		func(ctx context.Context, input *trackInput) (*trackOutput, error) {
			if err := svc.Track(input.Body.Category, input.Body.Payload); err != nil {
				return nil, mapErr(err)
			}
			out := &trackOutput{}
			out.Body.Accepted = true
			return out, nil
		})
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var coded *types.CodedError
	if errors.As(err, &coded) {
		switch coded.Code {
		case types.CodeValidation:
			return huma.Error400BadRequest(coded.Message)
		case types.CodeBrowserRequired, types.CodeCDPUnavailable:
			return huma.Error503ServiceUnavailable(coded.Message)
		case types.CodeTransport:
			return huma.Error502BadGateway(coded.Message)
		default:
			return huma.Error500InternalServerError(fmt.Sprintf("%s: %s", coded.Code, coded.Message))
		}
	}
	return huma.Error500InternalServerError(err.Error())
}
