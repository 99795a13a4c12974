// Package observe holds the event observers: components that watch a class
// of browser activity on the attached page and produce event records. Each
// observer owns its runtime state and depends only on small injected source
// interfaces, never on the CDP session directly.
package observe

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/dgnsrekt/pagepulse/internal/config"
	"github.com/dgnsrekt/pagepulse/internal/inspect"
	"github.com/dgnsrekt/pagepulse/internal/types"
)

// Dispatcher receives finished event records from an observer.
type Dispatcher func(types.EventRecord)

// ClickSource delivers capture-phase clicks already serialized by the page.
// Capture phase matters: a page handler calling stopPropagation cannot hide
// the click from the source.
type ClickSource interface {
	OnClick(fn func(types.RawClick)) (unsubscribe func(), err error)
}

// ClickObserver filters clicks to button-like elements and produces CLICK
// records.
type ClickObserver struct {
	source ClickSource

	mu          sync.Mutex
	active      bool
	dispatcher  Dispatcher
	unsubscribe func()
}

func NewClickObserver(source ClickSource) *ClickObserver {
	return &ClickObserver{source: source}
}

// SetDispatcher wires the downstream record consumer. Safe to call before
// or after Start.
func (o *ClickObserver) SetDispatcher(d Dispatcher) {
	o.mu.Lock()
	o.dispatcher = d
	o.mu.Unlock()
}

// Start subscribes to the click source. No-op when already active or when
// clicks are disabled in the config.
func (o *ClickObserver) Start(cfg config.Autocapture) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.active || !cfg.Clicks {
		return nil
	}
	if o.source == nil {
		return types.ErrBrowserRequired("click observation")
	}

	unsub, err := o.source.OnClick(o.handleClick)
	if err != nil {
		return types.NewError(types.CodeCDPUnavailable, "subscribe to clicks", err)
	}
	o.unsubscribe = unsub
	o.active = true
	slog.Debug("click observer started")
	return nil
}

// Stop removes the click subscription and clears the dispatcher. Idempotent.
func (o *ClickObserver) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.active {
		return
	}
	if o.unsubscribe != nil {
		o.unsubscribe()
		o.unsubscribe = nil
	}
	o.dispatcher = nil
	o.active = false
	slog.Debug("click observer stopped")
}

// Active reports whether the observer is running.
func (o *ClickObserver) Active() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}

func (o *ClickObserver) handleClick(raw types.RawClick) {
	// Enrichment failures must never escape into the session's event loop.
	defer func() {
		if r := recover(); r != nil {
			slog.Error("click enrichment panic, event dropped", "panic", r)
		}
	}()

	o.mu.Lock()
	active, dispatch := o.active, o.dispatcher
	o.mu.Unlock()
	if !active || dispatch == nil {
		return
	}

	target := raw.Target()
	if target == nil || !isButtonElement(target) {
		return
	}

	dispatch(buildClickRecord(raw))
}

// isButtonElement matches <button>, button-like <input>, or any element with
// an explicit ARIA button role. Everything else is ignored entirely.
func isButtonElement(n *types.RawNode) bool {
	tag := strings.ToLower(n.Tag)
	if tag == "button" {
		return true
	}
	if tag == "input" {
		switch strings.ToLower(n.Type) {
		case "button", "submit", "reset":
			return true
		}
	}
	return strings.ToLower(n.Role) == "button"
}

func buildClickRecord(raw types.RawClick) types.EventRecord {
	target := raw.Target()
	info := inspect.Inspect(raw.Chain)

	text := strings.TrimSpace(target.Text)
	if strings.EqualFold(target.Tag, "input") {
		text = strings.TrimSpace(target.Value)
	}

	data := map[string]any{
		"button_id":           target.ID,
		"button_name":         target.Name,
		"button_type":         target.Type,
		"button_text":         inspect.Truncate(text, 100),
		"aria_label":          target.AriaLabel,
		"title":               target.Title,
		"disabled":            target.Disabled,
		"class_list":          target.ClassList,
		"visible":             info.Visible,
		"has_nested_children": target.ChildCount > 0,
		"data_attributes":     target.DataAttrs,

		"element_rect": target.Rect,
		"client_x":     raw.ClientX,
		"client_y":     raw.ClientY,
		"page_x":       raw.PageX,
		"page_y":       raw.PageY,
		"screen_x":     raw.ScreenX,
		"screen_y":     raw.ScreenY,
		"offset_x":     raw.OffsetX,
		"offset_y":     raw.OffsetY,

		"mouse_button": raw.Button,
		"alt_key":      raw.AltKey,
		"ctrl_key":     raw.CtrlKey,
		"shift_key":    raw.ShiftKey,
		"meta_key":     raw.MetaKey,

		"parent_tag":    raw.ParentTag,
		"selector_path": info.SelectorPath,

		"page_url":      raw.Page.URL,
		"page_title":    raw.Page.Title,
		"page_host":     raw.Page.Host,
		"page_protocol": raw.Page.Protocol,
		"page_referrer": raw.Page.Referrer,
	}
	if info.InputValue != "" {
		data["button_value"] = info.InputValue
	}
	if raw.Form != nil {
		data["form_id"] = raw.Form.ID
		data["form_name"] = raw.Form.Name
		data["form_method"] = raw.Form.Method
		data["form_action"] = raw.Form.Action
		data["form_enctype"] = raw.Form.Enctype
		data["form_element_count"] = raw.Form.ElementCount
	}

	return types.EventRecord{
		Kind:        types.EventClick,
		TimestampMS: raw.TimestampMS,
		ElementInfo: &info,
		Data:        data,
	}
}
