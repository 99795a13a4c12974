package sink

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dgnsrekt/pagepulse/internal/types"
)

func TestSchemaFor(t *testing.T) {
	cases := []struct {
		kind types.EventKind
		want string
	}{
		{types.EventClick, "iglu:com.pagepulse/button_click/jsonschema/1-0-0"},
		{types.EventPageView, "iglu:com.pagepulse/page_view/jsonschema/1-0-0"},
		{types.EventCustom, "iglu:com.pagepulse/custom_event/jsonschema/1-0-0"},
	}
	for _, tc := range cases {
		if got := SchemaFor(tc.kind); got != tc.want {
			t.Fatalf("SchemaFor(%s) = %q, want %q", tc.kind, got, tc.want)
		}
	}
}

func TestBuildEnvelope(t *testing.T) {
	rec := types.EventRecord{
		Kind:        types.EventPageView,
		TimestampMS: 1_700_000_000_000,
		ID:          "20231114T221320.000-abcd1234",
		RouteInfo:   &types.RouteInfo{FromURL: "https://a", ToURL: "https://b", NavigationTime: 1_700_000_000_000},
		Data:        map[string]any{"page_info": map[string]any{"url": "https://b"}},
	}

	env := BuildEnvelope(rec, Tags{AppID: "shop", UserID: "u-1"})

	if env.Schema != "iglu:com.pagepulse/page_view/jsonschema/1-0-0" {
		t.Fatalf("schema = %q", env.Schema)
	}
	if env.Data["event_id"] != rec.ID {
		t.Fatalf("event_id = %v", env.Data["event_id"])
	}
	capturedAt, _ := env.Data["captured_at"].(string)
	if !strings.HasPrefix(capturedAt, "2023-11-14T22:13:20") {
		t.Fatalf("captured_at = %q", capturedAt)
	}
	if env.Data["app_id"] != "shop" || env.Data["user_id"] != "u-1" {
		t.Fatalf("tags = %v / %v", env.Data["app_id"], env.Data["user_id"])
	}
	if env.Data["route_info"] == nil {
		t.Fatalf("route_info missing")
	}
	// The original record's bag must stay untouched.
	if _, mutated := rec.Data["event_id"]; mutated {
		t.Fatalf("BuildEnvelope mutated the record data")
	}
}

func TestCollectorSend(t *testing.T) {
	t.Run("posts_json_envelope", func(t *testing.T) {
		var got Envelope
		var contentType string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			contentType = r.Header.Get("Content-Type")
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, &got)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		env := BuildEnvelope(types.EventRecord{
			Kind: types.EventCustom, ID: "x", TimestampMS: 1000,
			Data: map[string]any{"amount": 9.99, "event_category": "purchase"},
		}, Tags{})

		if err := NewCollector(server.URL, server.Client()).Send(context.Background(), env); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
		if contentType != "application/json" {
			t.Fatalf("content type = %q", contentType)
		}
		if got.Schema != "iglu:com.pagepulse/custom_event/jsonschema/1-0-0" {
			t.Fatalf("schema = %q", got.Schema)
		}
		if got.Data["amount"] != 9.99 {
			t.Fatalf("amount = %v", got.Data["amount"])
		}
	})

	t.Run("non_2xx_is_transport_error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		err := NewCollector(server.URL, server.Client()).Send(context.Background(), Envelope{Schema: "s", Data: map[string]any{}})
		var coded *types.CodedError
		if !errors.As(err, &coded) || coded.Code != types.CodeTransport {
			t.Fatalf("expected TRANSPORT error, got %v", err)
		}
	})
}

type fakeTransport struct {
	sent []Envelope
	err  error
}

func (f *fakeTransport) Send(_ context.Context, env Envelope) error {
	f.sent = append(f.sent, env)
	return f.err
}

func TestAdapterFanout(t *testing.T) {
	t.Run("delivers_to_all_channels", func(t *testing.T) {
		primary := &fakeTransport{}
		side := &fakeTransport{}
		adapter := NewAdapter(Tags{AppID: "app"}, primary, side)

		err := adapter.Deliver(context.Background(), types.EventRecord{Kind: types.EventClick, ID: "1", Data: map[string]any{}})
		if err != nil {
			t.Fatalf("Deliver() error = %v", err)
		}
		if len(primary.sent) != 1 || len(side.sent) != 1 {
			t.Fatalf("sends = %d/%d, want 1/1", len(primary.sent), len(side.sent))
		}
	})

	t.Run("side_channel_failure_hidden_from_gate", func(t *testing.T) {
		primary := &fakeTransport{}
		side := &fakeTransport{err: errors.New("ws closed")}
		adapter := NewAdapter(Tags{}, primary, side)

		if err := adapter.Deliver(context.Background(), types.EventRecord{Kind: types.EventClick}); err != nil {
			t.Fatalf("side failure must not surface, got %v", err)
		}
	})

	t.Run("primary_failure_surfaces", func(t *testing.T) {
		primary := &fakeTransport{err: errors.New("down")}
		adapter := NewAdapter(Tags{}, primary)
		if err := adapter.Deliver(context.Background(), types.EventRecord{Kind: types.EventClick}); err == nil {
			t.Fatalf("expected primary transport error")
		}
	})
}
