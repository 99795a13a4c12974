// Package cdp manages the connection to the inspected browser tab. The
// session is the single concrete implementation of the abstractions the
// observers and the environment snapshot depend on: it evaluates JS, fans
// out navigation signals, and decodes capture-phase clicks emitted by the
// injected page script.
package cdp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/dgnsrekt/pagepulse/internal/config"
	"github.com/dgnsrekt/pagepulse/internal/types"
)

const bindingName = "__pagepulseEmit"

// Session is an attached CDP connection to one browser tab.
type Session struct {
	cfg *config.Config

	allocCtx    context.Context
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc

	mu        sync.Mutex
	ready     bool
	targetID  target.ID
	url       string
	nextSub   int64
	navSubs   map[int64]func()
	clickSubs map[int64]func(types.RawClick)
}

func NewSession(cfg *config.Config) *Session {
	return &Session{
		cfg:       cfg,
		navSubs:   make(map[int64]func()),
		clickSubs: make(map[int64]func(types.RawClick)),
	}
}

// Connect dials the browser, attaches to the first page target matching the
// URL filter, enables the page/runtime domains, and installs the capture
// script and binding.
func (s *Session) Connect(ctx context.Context) error {
	_ = ctx
	cdpURL := s.cfg.GetCDPURL()
	slog.Info("Connecting to Chromium", "url", cdpURL)

	s.allocCtx, s.allocCancel = chromedp.NewRemoteAllocator(context.Background(), cdpURL)

	tempCtx, tempCancel := chromedp.NewContext(s.allocCtx)
	defer tempCancel()

	if err := chromedp.Run(tempCtx); err != nil {
		return types.NewError(types.CodeCDPUnavailable, "connect to browser", err)
	}

	targets, err := chromedp.Targets(tempCtx)
	if err != nil {
		return types.NewError(types.CodeCDPUnavailable, "enumerate targets", err)
	}

	var picked *target.Info
	for _, t := range targets {
		if t.Type != "page" {
			continue
		}
		if !s.matchesTabURL(t.URL) {
			slog.Debug("Skipping tab (url filter)", "url", t.URL)
			continue
		}
		picked = t
		break
	}
	if picked == nil {
		return types.NewError(types.CodeCDPUnavailable,
			fmt.Sprintf("no tabs found matching PAGEPULSE_TAB_URL_FILTER=%q", s.cfg.TabURLFilter), nil)
	}

	s.tabCtx, s.tabCancel = chromedp.NewContext(s.allocCtx, chromedp.WithTargetID(picked.TargetID))

	err = chromedp.Run(s.tabCtx,
		page.Enable(),
		runtime.Enable(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			return runtime.AddBinding(bindingName).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(captureScript).Do(ctx)
			return err
		}),
		// The current document never gets the new-document script, so
		// install it directly as well.
		chromedp.Evaluate(captureScript, nil),
	)
	if err != nil {
		s.tabCancel()
		return types.NewError(types.CodeCDPUnavailable, "enable page/runtime domains", err)
	}

	chromedp.ListenTarget(s.tabCtx, s.handleEvent)

	s.mu.Lock()
	s.targetID = picked.TargetID
	s.url = picked.URL
	s.ready = true
	s.mu.Unlock()

	slog.Info("Attached to tab", "target_id", picked.TargetID, "url", truncateURL(picked.URL))
	return nil
}

func (s *Session) handleEvent(ev interface{}) {
	switch e := ev.(type) {
	case *runtime.EventBindingCalled:
		if e.Name != bindingName {
			return
		}
		var raw types.RawClick
		if err := json.Unmarshal([]byte(e.Payload), &raw); err != nil {
			slog.Debug("click payload decode failed", "error", err)
			return
		}
		s.fanClick(raw)
	case *page.EventFrameNavigated:
		if e.Frame.ParentID == "" {
			s.mu.Lock()
			s.url = e.Frame.URL
			s.mu.Unlock()
			slog.Debug("Tab navigated (full)", "url", truncateURL(e.Frame.URL))
			s.fanNavigate()
		}
	case *page.EventNavigatedWithinDocument:
		s.mu.Lock()
		s.url = e.URL
		s.mu.Unlock()
		slog.Debug("Tab navigated (SPA)", "url", truncateURL(e.URL))
		s.fanNavigate()
	case *page.EventLoadEventFired:
		s.fanNavigate()
	}
}

func (s *Session) fanNavigate() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.navSubs))
	for _, fn := range s.navSubs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (s *Session) fanClick(raw types.RawClick) {
	s.mu.Lock()
	fns := make([]func(types.RawClick), 0, len(s.clickSubs))
	for _, fn := range s.clickSubs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(raw)
	}
}

// OnNavigate registers a navigation-signal callback and returns its
// unsubscribe func. Implements observe.NavigationSource.
func (s *Session) OnNavigate(fn func()) (func(), error) {
	if fn == nil {
		return nil, fmt.Errorf("nil navigation callback")
	}
	s.mu.Lock()
	s.nextSub++
	id := s.nextSub
	s.navSubs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.navSubs, id)
		s.mu.Unlock()
	}, nil
}

// OnClick registers a raw-click callback. Implements observe.ClickSource.
func (s *Session) OnClick(fn func(types.RawClick)) (func(), error) {
	if fn == nil {
		return nil, fmt.Errorf("nil click callback")
	}
	s.mu.Lock()
	s.nextSub++
	id := s.nextSub
	s.clickSubs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.clickSubs, id)
		s.mu.Unlock()
	}, nil
}

// Eval runs a JS expression in the tab and decodes the result into out.
// Implements envinfo.Evaluator.
func (s *Session) Eval(ctx context.Context, expression string, out any) error {
	s.mu.Lock()
	ready := s.ready
	tabCtx := s.tabCtx
	s.mu.Unlock()
	if !ready || tabCtx == nil {
		return types.ErrBrowserRequired("script evaluation")
	}

	evalCtx := tabCtx
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		evalCtx, cancel = context.WithDeadline(tabCtx, deadline)
		defer cancel()
	}
	return chromedp.Run(evalCtx, chromedp.Evaluate(expression, out))
}

// Ready reports whether the session is attached.
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// CurrentURL reads the tab's live location.
func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := s.Eval(ctx, "location.href", &url); err != nil {
		return "", err
	}
	return url, nil
}

// DocumentReady reports whether the document has finished loading.
func (s *Session) DocumentReady(ctx context.Context) (bool, error) {
	var ready bool
	if err := s.Eval(ctx, `document.readyState === "complete"`, &ready); err != nil {
		return false, err
	}
	return ready, nil
}

// TabURL returns the last URL seen for the attached tab.
func (s *Session) TabURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

// Close detaches from the browser.
func (s *Session) Close() error {
	s.mu.Lock()
	s.ready = false
	s.mu.Unlock()

	if s.tabCancel != nil {
		s.tabCancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
	slog.Info("CDP session closed")
	return nil
}

func (s *Session) matchesTabURL(url string) bool {
	if s.cfg.TabURLFilter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(url), strings.ToLower(s.cfg.TabURLFilter))
}

func truncateURL(url string) string {
	if len(url) > 120 {
		return url[:120] + "..."
	}
	return url
}
