package tracker

import (
	"regexp"
	"strings"

	"github.com/hazyhaar/phoenix/dom"
)

// maxEditableTextLength excludes whole-page text blocks from inline editing.
const maxEditableTextLength = 1000

var textDenylist = map[string]bool{
	"input": true, "textarea": true, "select": true, "option": true,
	"img": true, "video": true, "audio": true, "canvas": true, "svg": true,
	"script": true, "style": true, "code": true, "pre": true,
}

var proseTags = map[string]bool{
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"p": true, "span": true, "div": true, "a": true, "li": true,
	"td": true, "th": true, "label": true,
}

var chromeClassHints = []string{"button", "btn", "icon", "badge"}

// EditableText reports whether an element's text can be edited inline:
// a prose tag outside the denylist, with non-empty trimmed text of bounded
// length that does not read as code, and not flagged as interactive chrome
// via role or class naming.
func EditableText(e *dom.Element) bool {
	tag := e.Tag()
	if textDenylist[tag] {
		return false
	}
	if !proseTags[tag] {
		return false
	}
	text := strings.TrimSpace(e.Text())
	if text == "" || len(text) > maxEditableTextLength {
		return false
	}
	if LooksLikeCode(text) {
		return false
	}
	if role, ok := e.Attr("role"); ok && role == "button" {
		return false
	}
	lower := strings.ToLower(e.ClassName())
	for _, hint := range chromeClassHints {
		if strings.Contains(lower, hint) {
			return false
		}
	}
	return true
}

var (
	camelRe = regexp.MustCompile(`\b[a-z]+[A-Z][A-Za-z]*\b`)
	snakeRe = regexp.MustCompile(`^[A-Za-z0-9]+(_[A-Za-z0-9]+)+$`)
	callRe  = regexp.MustCompile(`\w+\s*\([^)]*\)`)
)

// LooksLikeCode reports whether text reads as an identifier or expression
// rather than prose: a lone camelCase or snake_case token, a call pattern,
// or several camelCase words in sequence.
func LooksLikeCode(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	words := strings.Fields(text)
	if len(words) == 1 {
		w := words[0]
		if snakeRe.MatchString(w) && strings.Contains(w, "_") {
			return true
		}
		if camelRe.MatchString(w) {
			return true
		}
		if callRe.MatchString(w) {
			return true
		}
		return false
	}
	if callRe.MatchString(text) {
		return true
	}
	return len(camelRe.FindAllString(text, 2)) >= 2
}
