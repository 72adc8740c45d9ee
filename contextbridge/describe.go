package contextbridge

import (
	"fmt"
	"strings"

	"github.com/hazyhaar/phoenix/dom"
)

// Display heuristics are deterministic pure functions over the element; the
// host shows their output verbatim, so they aim for short human labels, not
// precision.

var tagLabels = map[string]string{
	"button": "Button", "a": "Link", "input": "Input", "select": "Select",
	"textarea": "Text Area", "img": "Image", "nav": "Navigation",
	"header": "Header", "footer": "Footer", "form": "Form",
	"ul": "List", "ol": "List", "li": "List Item", "table": "Table",
	"h1": "Heading", "h2": "Heading", "h3": "Heading", "h4": "Heading",
	"h5": "Heading", "h6": "Heading", "p": "Paragraph",
}

// GenerateDisplayName derives a short human label: a tag label plus a text
// preview when the element has text, else a class hint, else the bare tag.
func GenerateDisplayName(e *dom.Element) string {
	label := tagLabels[e.Tag()]
	if label == "" {
		tag := e.Tag()
		label = strings.ToUpper(tag[:1]) + tag[1:]
	}
	if text := e.TextPreview(30); text != "" {
		return label + ": " + text
	}
	if cls := e.Classes(); len(cls) > 0 {
		return label + " (" + cls[0] + ")"
	}
	return label
}

// GenerateDescription summarises the element's structure for the host.
func GenerateDescription(e *dom.Element) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<%s> element", e.Tag())
	if n := len(e.Children()); n > 0 {
		fmt.Fprintf(&sb, " with %d child elements", n)
	}
	if cls := e.Classes(); len(cls) > 0 {
		shown := cls
		if len(shown) > 3 {
			shown = shown[:3]
		}
		fmt.Fprintf(&sb, ", classes: %s", strings.Join(shown, ", "))
	}
	return sb.String()
}

var formTags = map[string]bool{
	"form": true, "input": true, "textarea": true, "select": true,
}

var layoutTags = map[string]bool{
	"header": true, "footer": true, "aside": true, "main": true,
}

// Categorize buckets the element for host-side grouping: form controls,
// then navigation (the nav tag or a "nav" class hint), then page layout,
// then interactive ui, then other.
func Categorize(e *dom.Element) string {
	tag := e.Tag()
	switch {
	case formTags[tag]:
		return "form"
	case tag == "nav" || strings.Contains(strings.ToLower(e.ClassName()), "nav"):
		return "navigation"
	case layoutTags[tag]:
		return "layout"
	case tag == "button" || tag == "a" || isInteractive(e):
		return "ui"
	}
	return "other"
}

func isInteractive(e *dom.Element) bool {
	if role, ok := e.Attr("role"); ok {
		switch role {
		case "button", "link", "tab", "menuitem", "checkbox", "switch":
			return true
		}
	}
	_, ok := e.Attr("onclick")
	return ok
}
