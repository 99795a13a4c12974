package types

// RawNode is one serialized DOM node as captured by the injected page script.
// Nodes arrive in a chain ordered from the click target up to the document
// body, carrying everything the inspector needs so it can stay a pure
// function on the Go side.
type RawNode struct {
	Tag             string            `json:"tag"`
	ID              string            `json:"id,omitempty"`
	ClassName       string            `json:"class_name,omitempty"`
	ClassList       []string          `json:"class_list,omitempty"`
	Role            string            `json:"role,omitempty"`
	Type            string            `json:"type,omitempty"`
	Name            string            `json:"name,omitempty"`
	Value           string            `json:"value,omitempty"`
	AriaLabel       string            `json:"aria_label,omitempty"`
	Title           string            `json:"title,omitempty"`
	Text            string            `json:"text,omitempty"`
	Disabled        bool              `json:"disabled,omitempty"`
	ChildCount      int               `json:"child_count,omitempty"`
	DataAttrs       map[string]string `json:"data_attributes,omitempty"`
	Rect            Rect              `json:"rect"`
	Display         string            `json:"display,omitempty"`
	Visibility      string            `json:"visibility,omitempty"`
	Opacity         string            `json:"opacity,omitempty"`
	HasOffsetParent bool              `json:"has_offset_parent,omitempty"`
	NthChild        int               `json:"nth_child,omitempty"`
	SiblingTagCount int               `json:"sibling_tag_count,omitempty"`
}

// RawForm describes the nearest enclosing form of a click target.
type RawForm struct {
	ID           string `json:"id,omitempty"`
	Name         string `json:"name,omitempty"`
	Method       string `json:"method,omitempty"`
	Action       string `json:"action,omitempty"`
	Enctype      string `json:"enctype,omitempty"`
	ElementCount int    `json:"element_count,omitempty"`
}

// RawPage carries page context sampled at capture time in the page itself.
type RawPage struct {
	URL      string `json:"url"`
	Title    string `json:"title,omitempty"`
	Host     string `json:"host,omitempty"`
	Protocol string `json:"protocol,omitempty"`
	Referrer string `json:"referrer,omitempty"`
}

// RawClick is the full payload the injected capture script emits for one
// capture-phase click.
type RawClick struct {
	TimestampMS int64     `json:"timestamp"`
	Chain       []RawNode `json:"chain"`
	ParentTag   string    `json:"parent_tag,omitempty"`
	Form        *RawForm  `json:"form,omitempty"`
	Page        RawPage   `json:"page"`

	ClientX float64 `json:"client_x"`
	ClientY float64 `json:"client_y"`
	PageX   float64 `json:"page_x"`
	PageY   float64 `json:"page_y"`
	ScreenX float64 `json:"screen_x"`
	ScreenY float64 `json:"screen_y"`
	OffsetX float64 `json:"offset_x"`
	OffsetY float64 `json:"offset_y"`

	Button   int  `json:"button"`
	AltKey   bool `json:"alt_key,omitempty"`
	CtrlKey  bool `json:"ctrl_key,omitempty"`
	ShiftKey bool `json:"shift_key,omitempty"`
	MetaKey  bool `json:"meta_key,omitempty"`
}

// Target returns the click target node, or nil for an empty chain.
func (c *RawClick) Target() *RawNode {
	if len(c.Chain) == 0 {
		return nil
	}
	return &c.Chain[0]
}
