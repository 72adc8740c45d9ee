package dom

import "strings"

// StyleDecl is one inline style declaration. Order is preserved so a
// snapshot/restore of the style attribute is byte-exact.
type StyleDecl struct {
	Property string
	Value    string
}

// ParseStyle splits an inline style attribute into ordered declarations.
// Malformed segments are dropped.
func ParseStyle(s string) []StyleDecl {
	var out []StyleDecl
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		prop, val, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		prop = strings.TrimSpace(prop)
		val = strings.TrimSpace(val)
		if prop == "" || val == "" {
			continue
		}
		out = append(out, StyleDecl{Property: prop, Value: val})
	}
	return out
}

// FormatStyle serialises declarations back to an attribute string.
func FormatStyle(decls []StyleDecl) string {
	parts := make([]string, 0, len(decls))
	for _, d := range decls {
		parts = append(parts, d.Property+": "+d.Value)
	}
	return strings.Join(parts, "; ")
}

// StyleAttr returns the raw inline style attribute string.
func (e *Element) StyleAttr() string { return e.AttrOr("style", "") }

// SetStyleAttr replaces the whole style attribute. An empty string removes
// the attribute so restore round-trips exactly.
func (e *Element) SetStyleAttr(s string) {
	if s == "" {
		e.RemoveAttr("style")
		return
	}
	e.SetAttr("style", s)
}

// StyleProperty returns the inline value of one CSS property, or "".
func (e *Element) StyleProperty(prop string) string {
	for _, d := range ParseStyle(e.StyleAttr()) {
		if d.Property == prop {
			return d.Value
		}
	}
	return ""
}

// SetStyleProperty sets one inline CSS property, preserving the order of
// the remaining declarations.
func (e *Element) SetStyleProperty(prop, value string) {
	decls := ParseStyle(e.StyleAttr())
	for i, d := range decls {
		if d.Property == prop {
			decls[i].Value = value
			e.SetStyleAttr(FormatStyle(decls))
			return
		}
	}
	decls = append(decls, StyleDecl{Property: prop, Value: value})
	e.SetStyleAttr(FormatStyle(decls))
}

// RemoveStyleProperty drops one inline CSS property.
func (e *Element) RemoveStyleProperty(prop string) {
	decls := ParseStyle(e.StyleAttr())
	out := decls[:0]
	for _, d := range decls {
		if d.Property != prop {
			out = append(out, d)
		}
	}
	e.SetStyleAttr(FormatStyle(out))
}

var headingSizes = map[string]string{
	"h1": "32px", "h2": "24px", "h3": "19px",
	"h4": "16px", "h5": "13px", "h6": "11px",
}

// ComputedStyle returns the subset of resolved style the editors care about
// (typography, layout mode, colors). Without a real layout engine this is
// tag defaults overlaid with inline declarations; enough for overlay
// styling and metadata snapshots.
func (e *Element) ComputedStyle() map[string]string {
	tag := e.Tag()
	out := map[string]string{
		"display":          "block",
		"position":         "static",
		"font-family":      "system-ui, sans-serif",
		"font-size":        "16px",
		"font-weight":      "400",
		"line-height":      "1.5",
		"text-align":       "left",
		"color":            "rgb(0, 0, 0)",
		"background-color": "rgba(0, 0, 0, 0)",
		"padding":          "0px",
		"margin":           "0px",
		"border":           "0px none",
		"border-radius":    "0px",
		"cursor":           "auto",
		"pointer-events":   "auto",
	}
	if isInlineTag(tag) {
		out["display"] = "inline"
	}
	if size, ok := headingSizes[tag]; ok {
		out["font-size"] = size
	}
	switch tag {
	case "h1", "h2", "h3", "h4", "h5", "h6", "b", "strong", "th":
		out["font-weight"] = "700"
	case "a", "button":
		out["cursor"] = "pointer"
	}
	for _, d := range ParseStyle(e.StyleAttr()) {
		out[d.Property] = d.Value
	}
	return out
}
