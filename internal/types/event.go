package types

// EventKind tags the variant of an EventRecord.
type EventKind string

const (
	EventClick    EventKind = "CLICK"
	EventPageView EventKind = "PAGE_VIEW"
	EventCustom   EventKind = "CUSTOM"
)

// EventRecord is the canonical unit flowing through the capture pipeline.
// ID is assigned by the dispatch gate at send time, never by an observer.
type EventRecord struct {
	Kind        EventKind      `json:"type"`
	TimestampMS int64          `json:"timestamp"`
	ID          string         `json:"id,omitempty"`
	ElementInfo *ElementInfo   `json:"element_info,omitempty"`
	RouteInfo   *RouteInfo     `json:"route_info,omitempty"`
	Data        map[string]any `json:"event_data,omitempty"`
}

// ElementInfo describes the DOM element an event was bound to.
type ElementInfo struct {
	TagName      string            `json:"tag_name"`
	ID           string            `json:"id,omitempty"`
	ClassName    string            `json:"class_name,omitempty"`
	ClassList    []string          `json:"class_list,omitempty"`
	Text         string            `json:"text,omitempty"`
	AriaLabel    string            `json:"aria_label,omitempty"`
	Title        string            `json:"title,omitempty"`
	DataAttrs    map[string]string `json:"data_attributes,omitempty"`
	BoundingRect Rect              `json:"bounding_rect"`
	SelectorPath string            `json:"selector_path"`
	Visible      bool              `json:"visible"`
	InputValue   string            `json:"input_value,omitempty"`
}

// Rect is a DOM bounding rectangle in CSS pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RouteInfo describes one navigation transition.
type RouteInfo struct {
	FromURL        string `json:"from_url"`
	ToURL          string `json:"to_url"`
	NavigationTime int64  `json:"navigation_time"`
}

// DwellSummary describes how long the user stayed on the previous page.
type DwellSummary struct {
	PreviousURL        string `json:"previous_url"`
	TimeSpentMS        int64  `json:"time_spent_ms"`
	TimeSpentSeconds   int64  `json:"time_spent_seconds"`
	TimeSpentFormatted string `json:"time_spent_formatted"`
	TimePeriod         string `json:"time_period"`
	EntryTime          int64  `json:"entry_time"`
	ExitTime           int64  `json:"exit_time"`
}
