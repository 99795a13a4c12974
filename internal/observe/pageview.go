package observe

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dgnsrekt/pagepulse/internal/config"
	"github.com/dgnsrekt/pagepulse/internal/envinfo"
	"github.com/dgnsrekt/pagepulse/internal/types"
)

// NavigationSource abstracts the browser's navigation surface so the
// observer never touches shared platform state directly. The CDP session
// implements it for real pages; tests use fakes.
type NavigationSource interface {
	CurrentURL(ctx context.Context) (string, error)
	DocumentReady(ctx context.Context) (bool, error)
	// OnNavigate registers a callback fired on any navigation signal. The
	// URL is not guaranteed to be updated yet when the callback fires.
	OnNavigate(fn func()) (unsubscribe func(), err error)
}

// Timing knobs for the observer's deferred work. Zero values fall back to
// the production defaults.
type PageViewTiming struct {
	Debounce     time.Duration // navigation signal -> route check
	Settle       time.Duration // document ready -> initial capture
	GuardRelease time.Duration // dispatch -> in-flight guard clear
	ReadyPoll    time.Duration // readiness re-check interval
}

func (t *PageViewTiming) applyDefaults() {
	if t.Debounce <= 0 {
		t.Debounce = 100 * time.Millisecond
	}
	if t.Settle <= 0 {
		t.Settle = 300 * time.Millisecond
	}
	if t.GuardRelease <= 0 {
		t.GuardRelease = 500 * time.Millisecond
	}
	if t.ReadyPoll <= 0 {
		t.ReadyPoll = 100 * time.Millisecond
	}
}

// PageViewObserver tracks the current location, detects the initial load and
// client-side route changes, computes dwell time for the page being left,
// and produces PAGE_VIEW records.
type PageViewObserver struct {
	nav    NavigationSource
	env    *envinfo.Snapshot
	timing PageViewTiming
	now    func() time.Time

	mu          sync.Mutex
	active      bool
	processing  bool
	dispatcher  Dispatcher
	cfg         config.Autocapture
	timers      *timerSet
	unsubscribe func()

	currentURL       string
	currentPageStart int64
	previousPage     *previousPage
	lastProcessedURL string
	everCaptured     bool
}

func NewPageViewObserver(nav NavigationSource, env *envinfo.Snapshot) *PageViewObserver {
	return &PageViewObserver{
		nav:    nav,
		env:    env,
		now:    time.Now,
		timers: newTimerSet(),
	}
}

// NewPageViewObserverWithTiming builds an observer with custom delays.
func NewPageViewObserverWithTiming(nav NavigationSource, env *envinfo.Snapshot, timing PageViewTiming) *PageViewObserver {
	o := NewPageViewObserver(nav, env)
	o.timing = timing
	return o
}

// SetDispatcher wires the downstream record consumer.
func (o *PageViewObserver) SetDispatcher(d Dispatcher) {
	o.mu.Lock()
	o.dispatcher = d
	o.mu.Unlock()
}

// Start captures the current location, schedules the initial page-view
// capture, and installs navigation hooks. No-op when already active or when
// page views are disabled.
func (o *PageViewObserver) Start(cfg config.Autocapture) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.active || !cfg.PageViews {
		return nil
	}
	if o.nav == nil || o.env == nil {
		return types.ErrBrowserRequired("page view observation")
	}
	o.timing.applyDefaults()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	url, err := o.nav.CurrentURL(ctx)
	cancel()
	if err != nil {
		return types.NewError(types.CodeCDPUnavailable, "read current url", err)
	}

	unsub, err := o.nav.OnNavigate(o.onNavigationSignal)
	if err != nil {
		return types.NewError(types.CodeCDPUnavailable, "subscribe to navigation", err)
	}

	o.cfg = cfg
	o.currentURL = url
	o.currentPageStart = o.now().UnixMilli()
	o.previousPage = nil
	o.lastProcessedURL = ""
	o.everCaptured = false
	o.processing = false
	o.unsubscribe = unsub
	o.timers.reset()
	o.active = true

	o.scheduleInitialCapture()
	slog.Debug("page view observer started", "url", url)
	return nil
}

// Stop flushes dwell bookkeeping for the current page, tears down navigation
// hooks and pending timers, and deactivates. When FlushDwellOnStop is set, a
// final PAGE_VIEW record carrying the closing dwell summary is dispatched
// before teardown.
func (o *PageViewObserver) Stop() {
	o.mu.Lock()
	if !o.active {
		o.mu.Unlock()
		return
	}

	now := o.now().UnixMilli()
	prev := previousPage{
		URL:         o.currentURL,
		TimeSpentMS: now - o.currentPageStart,
		ExitTime:    now,
	}
	o.previousPage = &prev

	dispatch := o.dispatcher
	flush := o.cfg.FlushDwellOnStop && o.everCaptured && dispatch != nil
	entry := o.currentPageStart
	url := o.currentURL

	if o.unsubscribe != nil {
		o.unsubscribe()
		o.unsubscribe = nil
	}
	o.timers.StopAll()
	o.dispatcher = nil
	o.active = false
	o.mu.Unlock()

	if flush {
		rec := o.assembleRecord(types.RouteInfo{FromURL: url, ToURL: url, NavigationTime: now}, summarizeDwell(prev, entry))
		if rec != nil {
			dispatch(*rec)
		}
	}
	slog.Debug("page view observer stopped", "final_dwell_ms", prev.TimeSpentMS)
}

// Active reports whether the observer is running.
func (o *PageViewObserver) Active() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}

// scheduleInitialCapture waits for the document to finish loading, then lets
// performance timing settle before capturing. Caller holds the lock.
func (o *PageViewObserver) scheduleInitialCapture() {
	o.timers.After(o.timing.ReadyPoll, o.initialCaptureCheck)
}

func (o *PageViewObserver) initialCaptureCheck() {
	o.mu.Lock()
	if !o.active {
		o.mu.Unlock()
		return
	}
	o.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	ready, err := o.nav.DocumentReady(ctx)
	cancel()
	if err != nil {
		slog.Debug("document readiness check failed", "error", err)
		ready = false
	}

	o.mu.Lock()
	if !o.active {
		o.mu.Unlock()
		return
	}
	if !ready {
		o.timers.After(o.timing.ReadyPoll, o.initialCaptureCheck)
		o.mu.Unlock()
		return
	}
	o.timers.After(o.timing.Settle, func() { o.routeCheck(true) })
	o.mu.Unlock()
}

// onNavigationSignal debounces bursts of navigation hooks before reading the
// URL, which may not have updated yet when the signal fires.
func (o *PageViewObserver) onNavigationSignal() {
	o.mu.Lock()
	if !o.active {
		o.mu.Unlock()
		return
	}
	o.timers.After(o.timing.Debounce, func() { o.routeCheck(false) })
	o.mu.Unlock()
}

// routeCheck reads the live URL and triggers a capture when it moved away
// from the tracked one. The initial capture passes initial=true so the
// unchanged URL still captures once.
func (o *PageViewObserver) routeCheck(initial bool) {
	o.mu.Lock()
	if !o.active || o.processing {
		o.mu.Unlock()
		return
	}
	current := o.currentURL
	o.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	url, err := o.nav.CurrentURL(ctx)
	cancel()
	if err != nil {
		slog.Debug("route check url read failed", "error", err)
		return
	}

	if !initial && url == current {
		return
	}
	o.capturePageView(url)
}

// capturePageView is the core transition, shared by the initial load and
// route changes.
func (o *PageViewObserver) capturePageView(newURL string) {
	o.mu.Lock()
	if !o.active || o.processing || newURL == o.lastProcessedURL {
		o.mu.Unlock()
		return
	}
	o.processing = true

	now := o.now().UnixMilli()
	route := types.RouteInfo{FromURL: o.currentURL, ToURL: newURL, NavigationTime: now}

	prev := previousPage{
		URL:         o.currentURL,
		TimeSpentMS: now - o.currentPageStart,
		ExitTime:    now,
	}
	entry := o.currentPageStart
	o.previousPage = &prev

	var dwell *types.DwellSummary
	if o.everCaptured {
		dwell = summarizeDwell(prev, entry)
	}

	o.currentURL = newURL
	o.currentPageStart = now
	o.everCaptured = true
	dispatch := o.dispatcher

	// Guard release is deferred so near-simultaneous duplicate navigation
	// signals for the same logical transition stay suppressed.
	o.timers.After(o.timing.GuardRelease, func() {
		o.mu.Lock()
		o.processing = false
		o.mu.Unlock()
	})
	o.mu.Unlock()

	rec := o.assembleRecord(route, dwell)
	if rec == nil {
		return
	}

	// Only a successfully assembled record marks the URL processed, so an
	// enrichment failure leaves it eligible for a later capture attempt.
	o.mu.Lock()
	o.lastProcessedURL = newURL
	o.mu.Unlock()

	if dispatch == nil {
		return
	}
	dispatch(*rec)
}

// assembleRecord merges the environment snapshot bundle with the route and
// dwell context. Enrichment failures drop the record.
func (o *PageViewObserver) assembleRecord(route types.RouteInfo, dwell *types.DwellSummary) *types.EventRecord {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	bundle, err := o.env.Collect(ctx)
	if err != nil {
		slog.Warn("page view enrichment failed, event dropped", "to_url", route.ToURL, "error", err)
		return nil
	}

	data := map[string]any{
		"page_info":     bundle.Page,
		"browser_info":  bundle.Browser,
		"device_info":   bundle.Device,
		"performance":   bundle.Performance,
		"meta_tags":     bundle.Meta,
		"connection":    bundle.Connection,
		"document_info": bundle.Document,
		"timezone":      bundle.Timezone,
	}
	if dwell != nil {
		data["previous_page_time_spent"] = dwell
	}

	return &types.EventRecord{
		Kind:        types.EventPageView,
		TimestampMS: route.NavigationTime,
		RouteInfo:   &route,
		Data:        data,
	}
}
