package inspect

import (
	"fmt"
	"strings"

	"github.com/dgnsrekt/pagepulse/internal/types"
)

const (
	maxTextLen       = 100
	maxInputValueLen = 50
)

// sensitiveTerms blocks input values from ever leaving the page when the
// input's type, name, or id suggests credentials or payment data.
var sensitiveTerms = []string{
	"password", "email", "phone", "tel", "ssn", "credit", "card", "cvv", "cvc",
}

// Inspect builds an ElementInfo from a serialized ancestor chain. The chain
// is ordered target-first; it is total over any chain, including an empty one.
func Inspect(chain []types.RawNode) types.ElementInfo {
	if len(chain) == 0 {
		return types.ElementInfo{}
	}
	target := chain[0]

	info := types.ElementInfo{
		TagName:      strings.ToLower(target.Tag),
		ID:           target.ID,
		ClassName:    target.ClassName,
		ClassList:    target.ClassList,
		Text:         Truncate(strings.TrimSpace(target.Text), maxTextLen),
		AriaLabel:    target.AriaLabel,
		Title:        target.Title,
		DataAttrs:    target.DataAttrs,
		BoundingRect: target.Rect,
		SelectorPath: SelectorPath(chain),
		Visible:      IsVisible(target),
	}

	if strings.EqualFold(target.Tag, "input") && !IsSensitiveInput(target) {
		info.InputValue = Truncate(target.Value, maxInputValueLen)
	}

	return info
}

// SelectorPath walks the chain from the target upward, emitting one segment
// per ancestor. An id terminates the walk since ids are assumed unique.
func SelectorPath(chain []types.RawNode) string {
	var segments []string
	for i := range chain {
		node := &chain[i]
		tag := strings.ToLower(node.Tag)
		if tag == "" {
			continue
		}

		if node.ID != "" {
			segments = append([]string{tag + "#" + node.ID}, segments...)
			break
		}

		seg := tag
		if len(node.ClassList) > 0 {
			seg += "." + strings.Join(node.ClassList, ".")
		}
		if node.SiblingTagCount > 1 && node.NthChild > 0 {
			seg += fmt.Sprintf(":nth-child(%d)", node.NthChild)
		}
		segments = append([]string{seg}, segments...)
	}
	return strings.Join(segments, " > ")
}

// IsVisible reports whether the node participates in layout and is not
// hidden by computed style.
func IsVisible(node types.RawNode) bool {
	if node.Display == "none" || node.Visibility == "hidden" || node.Opacity == "0" {
		return false
	}
	return node.HasOffsetParent
}

// IsSensitiveInput reports whether an input's value must be redacted.
func IsSensitiveInput(node types.RawNode) bool {
	for _, field := range []string{node.Type, node.Name, node.ID} {
		lower := strings.ToLower(field)
		if lower == "" {
			continue
		}
		for _, term := range sensitiveTerms {
			if strings.Contains(lower, term) {
				return true
			}
		}
	}
	return false
}

// Truncate cuts s to at most max runes.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
