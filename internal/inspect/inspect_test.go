package inspect

import (
	"strings"
	"testing"

	"github.com/dgnsrekt/pagepulse/internal/types"
)

func TestSelectorPath(t *testing.T) {
	t.Run("bare_tags_join_with_separator", func(t *testing.T) {
		chain := []types.RawNode{
			{Tag: "BUTTON", SiblingTagCount: 1, NthChild: 1},
			{Tag: "DIV", SiblingTagCount: 1, NthChild: 1},
			{Tag: "BODY"},
		}
		got := SelectorPath(chain)
		if got != "body > div > button" {
			t.Fatalf("SelectorPath() = %q, want %q", got, "body > div > button")
		}
	})

	t.Run("id_terminates_walk", func(t *testing.T) {
		chain := []types.RawNode{
			{Tag: "span"},
			{Tag: "div", ID: "content"},
			{Tag: "main"},
			{Tag: "body"},
		}
		got := SelectorPath(chain)
		if got != "div#content > span" {
			t.Fatalf("SelectorPath() = %q, want %q", got, "div#content > span")
		}
	})

	t.Run("classes_appended", func(t *testing.T) {
		chain := []types.RawNode{
			{Tag: "button", ClassList: []string{"btn", "btn-primary"}},
			{Tag: "body"},
		}
		got := SelectorPath(chain)
		if got != "body > button.btn.btn-primary" {
			t.Fatalf("SelectorPath() = %q", got)
		}
	})

	t.Run("nth_child_only_on_sibling_tag_collision", func(t *testing.T) {
		chain := []types.RawNode{
			{Tag: "li", SiblingTagCount: 3, NthChild: 2},
			{Tag: "ul", SiblingTagCount: 1, NthChild: 1},
			{Tag: "body"},
		}
		got := SelectorPath(chain)
		if got != "body > ul > li:nth-child(2)" {
			t.Fatalf("SelectorPath() = %q", got)
		}
	})

	t.Run("empty_chain", func(t *testing.T) {
		if got := SelectorPath(nil); got != "" {
			t.Fatalf("SelectorPath(nil) = %q, want empty", got)
		}
	})
}

func TestIsVisible(t *testing.T) {
	base := types.RawNode{Display: "block", Visibility: "visible", Opacity: "1", HasOffsetParent: true}

	t.Run("visible", func(t *testing.T) {
		if !IsVisible(base) {
			t.Fatalf("expected visible")
		}
	})

	cases := []struct {
		name   string
		mutate func(*types.RawNode)
	}{
		{"display_none", func(n *types.RawNode) { n.Display = "none" }},
		{"visibility_hidden", func(n *types.RawNode) { n.Visibility = "hidden" }},
		{"opacity_zero", func(n *types.RawNode) { n.Opacity = "0" }},
		{"no_offset_parent", func(n *types.RawNode) { n.HasOffsetParent = false }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n := base
			tc.mutate(&n)
			if IsVisible(n) {
				t.Fatalf("expected hidden for %s", tc.name)
			}
		})
	}
}

func TestSensitiveInputRedaction(t *testing.T) {
	t.Run("password_type_never_yields_value", func(t *testing.T) {
		chain := []types.RawNode{{Tag: "input", Type: "password", Value: "hunter2"}, {Tag: "body"}}
		info := Inspect(chain)
		if info.InputValue != "" {
			t.Fatalf("expected redacted value, got %q", info.InputValue)
		}
	})

	t.Run("sensitive_name_redacted", func(t *testing.T) {
		for _, name := range []string{"cc-card-number", "user_email", "phone", "ssn_field", "cvv"} {
			chain := []types.RawNode{{Tag: "input", Type: "text", Name: name, Value: "secret"}}
			if got := Inspect(chain).InputValue; got != "" {
				t.Fatalf("name %q: expected redacted value, got %q", name, got)
			}
		}
	})

	t.Run("plain_text_input_value_kept_and_truncated", func(t *testing.T) {
		long := strings.Repeat("x", 80)
		chain := []types.RawNode{{Tag: "input", Type: "text", Name: "search", Value: long}}
		got := Inspect(chain).InputValue
		if len(got) != 50 {
			t.Fatalf("expected 50-char value, got %d chars", len(got))
		}
	})
}

func TestInspect(t *testing.T) {
	t.Run("text_truncated_to_100", func(t *testing.T) {
		chain := []types.RawNode{{Tag: "BUTTON", Text: "  " + strings.Repeat("a", 150) + "  "}}
		info := Inspect(chain)
		if len(info.Text) != 100 {
			t.Fatalf("expected 100-char text, got %d", len(info.Text))
		}
		if info.TagName != "button" {
			t.Fatalf("expected lowercased tag, got %q", info.TagName)
		}
	})

	t.Run("empty_chain_total", func(t *testing.T) {
		info := Inspect(nil)
		if info.TagName != "" || info.SelectorPath != "" {
			t.Fatalf("expected zero info for empty chain, got %+v", info)
		}
	})
}
