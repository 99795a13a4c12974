// Package sink serializes gated event records into the collector's
// self-describing envelope and transmits them. The collector itself is an
// external black box; only the envelope contract lives here.
package sink

import (
	"fmt"
	"time"

	"github.com/dgnsrekt/pagepulse/internal/types"
)

const (
	schemaVendor  = "com.pagepulse"
	schemaVersion = "1-0-0"
)

// Envelope is the wire-level unit accepted by the collector.
type Envelope struct {
	Schema string         `json:"schema"`
	Data   map[string]any `json:"data"`
}

// Tags carries the application/user identifiers stamped on every envelope.
// They are never interpreted by the pipeline.
type Tags struct {
	AppID  string
	UserID string
}

// SchemaFor maps an event kind to its collector schema identifier.
func SchemaFor(kind types.EventKind) string {
	var name string
	switch kind {
	case types.EventClick:
		name = "button_click"
	case types.EventPageView:
		name = "page_view"
	case types.EventCustom:
		name = "custom_event"
	default:
		name = "unknown_event"
	}
	return fmt.Sprintf("iglu:%s/%s/jsonschema/%s", schemaVendor, name, schemaVersion)
}

// BuildEnvelope flattens a record into the envelope contract. Data always
// carries captured_at (ISO-8601) and event_id alongside the enrichment
// fields and the kind-specific element/route info.
func BuildEnvelope(rec types.EventRecord, tags Tags) Envelope {
	data := make(map[string]any, len(rec.Data)+6)
	for k, v := range rec.Data {
		data[k] = v
	}
	if rec.ElementInfo != nil {
		data["element_info"] = rec.ElementInfo
	}
	if rec.RouteInfo != nil {
		data["route_info"] = rec.RouteInfo
	}
	data["captured_at"] = time.UnixMilli(rec.TimestampMS).UTC().Format(time.RFC3339Nano)
	data["event_id"] = rec.ID
	if tags.AppID != "" {
		data["app_id"] = tags.AppID
	}
	if tags.UserID != "" {
		data["user_id"] = tags.UserID
	}

	return Envelope{Schema: SchemaFor(rec.Kind), Data: data}
}
