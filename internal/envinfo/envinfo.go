// Package envinfo captures ambient page context from the attached browser
// session: viewport geometry, navigator properties, navigation timing, meta
// tags, connection hints, document properties, and timezone. Every accessor
// requires a ready browser session and fails fast otherwise; there is no
// off-browser fallback.
package envinfo

import (
	"context"

	"github.com/dgnsrekt/pagepulse/internal/types"
)

// Evaluator runs a JS expression in the inspected page and decodes the JSON
// result into out.
type Evaluator interface {
	Eval(ctx context.Context, expression string, out any) error
	Ready() bool
}

// Snapshot exposes the environment accessor family over one session.
type Snapshot struct {
	eval Evaluator
}

func New(eval Evaluator) *Snapshot {
	return &Snapshot{eval: eval}
}

// PageInfo is the current page identity bundle.
type PageInfo struct {
	URL      string `json:"url"`
	Title    string `json:"title,omitempty"`
	Host     string `json:"host,omitempty"`
	Protocol string `json:"protocol,omitempty"`
	Referrer string `json:"referrer,omitempty"`
}

// BrowserInfo carries navigator properties.
type BrowserInfo struct {
	UserAgent     string `json:"user_agent,omitempty"`
	Language      string `json:"language,omitempty"`
	Platform      string `json:"platform,omitempty"`
	Vendor        string `json:"vendor,omitempty"`
	CookieEnabled bool   `json:"cookie_enabled"`
	OnLine        bool   `json:"online"`
}

// DeviceInfo carries viewport and screen geometry.
type DeviceInfo struct {
	ViewportWidth    int     `json:"viewport_width"`
	ViewportHeight   int     `json:"viewport_height"`
	ScreenWidth      int     `json:"screen_width"`
	ScreenHeight     int     `json:"screen_height"`
	AvailWidth       int     `json:"avail_width"`
	AvailHeight      int     `json:"avail_height"`
	ColorDepth       int     `json:"color_depth"`
	DevicePixelRatio float64 `json:"device_pixel_ratio"`
}

// TimingRaw is the raw navigation-timing slice needed for derivations.
type TimingRaw struct {
	NavigationStart        int64 `json:"navigation_start"`
	RequestStart           int64 `json:"request_start"`
	ResponseEnd            int64 `json:"response_end"`
	DOMContentLoadedEnd    int64 `json:"dom_content_loaded_event_end"`
	LoadEventEnd           int64 `json:"load_event_end"`
	DOMInteractive         int64 `json:"dom_interactive,omitempty"`
	DomainLookupStart      int64 `json:"domain_lookup_start,omitempty"`
	DomainLookupEnd        int64 `json:"domain_lookup_end,omitempty"`
	ConnectStart           int64 `json:"connect_start,omitempty"`
	ConnectEnd             int64 `json:"connect_end,omitempty"`
	SecureConnectionStart  int64 `json:"secure_connection_start,omitempty"`
	RedirectCount          int64 `json:"redirect_count,omitempty"`
	TransferSize           int64 `json:"transfer_size,omitempty"`
	EncodedBodySize        int64 `json:"encoded_body_size,omitempty"`
	DecodedBodySize        int64 `json:"decoded_body_size,omitempty"`
	UnloadEventStartOffset int64 `json:"unload_event_start,omitempty"`
	UnloadEventEndOffset   int64 `json:"unload_event_end,omitempty"`
}

// PerformanceInfo bundles the raw timing with derived summary metrics.
type PerformanceInfo struct {
	Raw             TimingRaw `json:"raw"`
	TotalLoadTimeMS int64     `json:"total_load_time_ms"`
	DOMReadyTimeMS  int64     `json:"dom_ready_time_ms"`
	ResponseTimeMS  int64     `json:"response_time_ms"`
}

// ConnectionInfo carries network-connection hints; all fields are optional
// since the API is not universally available.
type ConnectionInfo struct {
	EffectiveType string  `json:"effective_type,omitempty"`
	DownlinkMbps  float64 `json:"downlink_mbps,omitempty"`
	RTTMillis     float64 `json:"rtt_ms,omitempty"`
	SaveData      bool    `json:"save_data,omitempty"`
}

// DocumentInfo carries document-level properties.
type DocumentInfo struct {
	CharacterSet string `json:"character_set,omitempty"`
	ContentType  string `json:"content_type,omitempty"`
	LastModified string `json:"last_modified,omitempty"`
	ReadyState   string `json:"ready_state,omitempty"`
}

// TimezoneInfo carries the page's timezone name and UTC offset.
type TimezoneInfo struct {
	Timezone      string `json:"timezone,omitempty"`
	OffsetMinutes int    `json:"offset_minutes"`
}

// Bundle is the full environment snapshot merged into page-view enrichment.
type Bundle struct {
	Page        PageInfo          `json:"page"`
	Browser     BrowserInfo       `json:"browser"`
	Device      DeviceInfo        `json:"device"`
	Performance PerformanceInfo   `json:"performance"`
	Meta        map[string]string `json:"meta,omitempty"`
	Connection  ConnectionInfo    `json:"connection"`
	Document    DocumentInfo      `json:"document"`
	Timezone    TimezoneInfo      `json:"timezone"`
}

func (s *Snapshot) require(what string) error {
	if s == nil || s.eval == nil || !s.eval.Ready() {
		return types.ErrBrowserRequired(what)
	}
	return nil
}

func (s *Snapshot) Page(ctx context.Context) (PageInfo, error) {
	var out PageInfo
	if err := s.require("page info"); err != nil {
		return out, err
	}
	err := s.eval.Eval(ctx, jsPageInfo, &out)
	return out, err
}

func (s *Snapshot) Browser(ctx context.Context) (BrowserInfo, error) {
	var out BrowserInfo
	if err := s.require("browser info"); err != nil {
		return out, err
	}
	err := s.eval.Eval(ctx, jsBrowserInfo, &out)
	return out, err
}

func (s *Snapshot) Device(ctx context.Context) (DeviceInfo, error) {
	var out DeviceInfo
	if err := s.require("device info"); err != nil {
		return out, err
	}
	err := s.eval.Eval(ctx, jsDeviceInfo, &out)
	return out, err
}

func (s *Snapshot) Performance(ctx context.Context) (PerformanceInfo, error) {
	var out PerformanceInfo
	if err := s.require("performance timing"); err != nil {
		return out, err
	}
	if err := s.eval.Eval(ctx, jsTimingRaw, &out.Raw); err != nil {
		return out, err
	}
	derive(&out)
	return out, nil
}

func (s *Snapshot) MetaTags(ctx context.Context) (map[string]string, error) {
	if err := s.require("meta tags"); err != nil {
		return nil, err
	}
	out := map[string]string{}
	err := s.eval.Eval(ctx, jsMetaTags, &out)
	return out, err
}

func (s *Snapshot) Connection(ctx context.Context) (ConnectionInfo, error) {
	var out ConnectionInfo
	if err := s.require("connection info"); err != nil {
		return out, err
	}
	err := s.eval.Eval(ctx, jsConnectionInfo, &out)
	return out, err
}

func (s *Snapshot) Document(ctx context.Context) (DocumentInfo, error) {
	var out DocumentInfo
	if err := s.require("document info"); err != nil {
		return out, err
	}
	err := s.eval.Eval(ctx, jsDocumentInfo, &out)
	return out, err
}

func (s *Snapshot) Timezone(ctx context.Context) (TimezoneInfo, error) {
	var out TimezoneInfo
	if err := s.require("timezone info"); err != nil {
		return out, err
	}
	err := s.eval.Eval(ctx, jsTimezoneInfo, &out)
	return out, err
}

// Collect gathers the full bundle for page-view enrichment. Individual
// accessor failures abort the collection; callers treat that as an
// enrichment failure for the event being built.
func (s *Snapshot) Collect(ctx context.Context) (Bundle, error) {
	var b Bundle
	var err error
	if b.Page, err = s.Page(ctx); err != nil {
		return b, err
	}
	if b.Browser, err = s.Browser(ctx); err != nil {
		return b, err
	}
	if b.Device, err = s.Device(ctx); err != nil {
		return b, err
	}
	if b.Performance, err = s.Performance(ctx); err != nil {
		return b, err
	}
	if b.Meta, err = s.MetaTags(ctx); err != nil {
		return b, err
	}
	if b.Connection, err = s.Connection(ctx); err != nil {
		return b, err
	}
	if b.Document, err = s.Document(ctx); err != nil {
		return b, err
	}
	if b.Timezone, err = s.Timezone(ctx); err != nil {
		return b, err
	}
	return b, nil
}

// derive fills the summary metrics from raw navigation timing. Zero raw
// fields yield zero metrics rather than nonsense negatives.
func derive(p *PerformanceInfo) {
	r := p.Raw
	if r.NavigationStart > 0 {
		if r.LoadEventEnd >= r.NavigationStart {
			p.TotalLoadTimeMS = r.LoadEventEnd - r.NavigationStart
		}
		if r.DOMContentLoadedEnd >= r.NavigationStart {
			p.DOMReadyTimeMS = r.DOMContentLoadedEnd - r.NavigationStart
		}
	}
	if r.RequestStart > 0 && r.ResponseEnd >= r.RequestStart {
		p.ResponseTimeMS = r.ResponseEnd - r.RequestStart
	}
}
