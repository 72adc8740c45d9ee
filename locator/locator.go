// Package locator maps document elements back to the source file, line, and
// column that produced them. Resolution is a fixed cascade from exact build
// stamps down to structural guesswork; it always returns a Location, with a
// confidence score reporting how much the answer can be trusted.
package locator

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/hazyhaar/phoenix/dom"
)

// Schema creates the source index tables. Pass it to dbopen.Open via
// dbopen.WithSchema when opening the index database.
const Schema = `
CREATE TABLE IF NOT EXISTS source_index (
	kind TEXT NOT NULL CHECK(kind IN ('node','path','fingerprint')),
	key TEXT NOT NULL,
	file_path TEXT NOT NULL,
	line INTEGER NOT NULL,
	col INTEGER NOT NULL,
	PRIMARY KEY (kind, key)
);

CREATE TABLE IF NOT EXISTS class_index (
	class TEXT NOT NULL,
	file_path TEXT NOT NULL,
	line INTEGER NOT NULL,
	col INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS class_index_class ON class_index(class);
`

// Resolution strategies, strongest first.
const (
	StrategyStamped     = "stamped-attributes"
	StrategyIndexNode   = "index-node"
	StrategyIndexPath   = "index-path"
	StrategyFingerprint = "index-fingerprint"
	StrategyUniqueClass = "index-class"
	StrategyDebugMeta   = "debug-metadata"
	StrategyRenderTrace = "render-trace"
	StrategyStructural  = "structural"
	StrategyFallback    = "fallback"
)

// FallbackPath is returned when nothing else resolves. Locate never fails.
const FallbackPath = "./src/app/page.tsx"

// Location is one resolved source position.
type Location struct {
	FilePath   string  `json:"filePath"`
	Line       int     `json:"lineNumber"`
	Column     int     `json:"columnNumber"`
	Confidence float64 `json:"confidence"`
	Strategy   string  `json:"strategy"`
}

// FileRef formats the location as "path:line" for display payloads.
func (l Location) FileRef() string {
	return fmt.Sprintf("%s:%d", l.FilePath, l.Line)
}

// Locator resolves elements to source locations. The SQLite index is
// optional; without it the cascade skips straight from stamps to attribute
// and structural heuristics.
type Locator struct {
	db  *sql.DB
	log *slog.Logger
}

// Option customises a Locator.
type Option func(*Locator)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option { return func(lc *Locator) { lc.log = l } }

// New returns a Locator over an optional source index database.
func New(db *sql.DB, opts ...Option) *Locator {
	lc := &Locator{db: db, log: slog.Default()}
	for _, o := range opts {
		o(lc)
	}
	if lc.log == nil {
		lc.log = slog.Default()
	}
	return lc
}

// Locate resolves the element's source position. It walks the cascade in
// order and returns the first hit; the fallback guarantees a result.
func (lc *Locator) Locate(e *dom.Element) Location {
	if loc, ok := lc.fromStamps(e); ok {
		return loc
	}
	if loc, ok := lc.fromIndex(e); ok {
		return loc
	}
	if loc, ok := lc.fromDebugMeta(e); ok {
		return loc
	}
	if loc, ok := lc.fromRenderTrace(e); ok {
		return loc
	}
	if loc, ok := lc.fromStructure(e); ok {
		return loc
	}
	lc.log.Debug("locator: fallback", "selector", e.ShortSelector())
	return Location{
		FilePath:   FallbackPath,
		Line:       1,
		Column:     1,
		Confidence: 0.3,
		Strategy:   StrategyFallback,
	}
}

// fromStamps reads build-time source stamps off the element itself.
func (lc *Locator) fromStamps(e *dom.Element) (Location, bool) {
	file, ok := e.Attr(dom.AttrSource)
	if !ok || file == "" {
		return Location{}, false
	}
	line, _ := strconv.Atoi(e.AttrOr(dom.AttrLine, "1"))
	col, _ := strconv.Atoi(e.AttrOr(dom.AttrCol, "1"))
	if line < 1 {
		line = 1
	}
	if col < 1 {
		col = 1
	}
	return Location{
		FilePath:   file,
		Line:       line,
		Column:     col,
		Confidence: 1.0,
		Strategy:   StrategyStamped,
	}, true
}

// fromIndex consults the SQLite source index: node id, then selector path,
// then content fingerprint, then unique class. An ambiguous class (mapping
// to more than one distinct location) is skipped rather than guessed.
func (lc *Locator) fromIndex(e *dom.Element) (Location, bool) {
	if lc.db == nil {
		return Location{}, false
	}
	if id, ok := e.Attr(dom.AttrID); ok && id != "" {
		if loc, ok := lc.queryKind("node", id, 0.9, StrategyIndexNode); ok {
			return loc, true
		}
	}
	if loc, ok := lc.queryKind("path", e.SelectorPath(), 0.85, StrategyIndexPath); ok {
		return loc, true
	}
	if loc, ok := lc.queryKind("fingerprint", Fingerprint(e), 0.85, StrategyFingerprint); ok {
		return loc, true
	}
	for _, class := range e.Classes() {
		if loc, ok := lc.queryUniqueClass(class); ok {
			return loc, true
		}
	}
	return Location{}, false
}

func (lc *Locator) queryKind(kind, key string, confidence float64, strategy string) (Location, bool) {
	var loc Location
	err := lc.db.QueryRow(
		"SELECT file_path, line, col FROM source_index WHERE kind = ? AND key = ?",
		kind, key,
	).Scan(&loc.FilePath, &loc.Line, &loc.Column)
	if errors.Is(err, sql.ErrNoRows) {
		return Location{}, false
	}
	if err != nil {
		lc.log.Warn("locator: index query failed", "kind", kind, "error", err)
		return Location{}, false
	}
	loc.Confidence = confidence
	loc.Strategy = strategy
	return loc, true
}

func (lc *Locator) queryUniqueClass(class string) (Location, bool) {
	rows, err := lc.db.Query(
		"SELECT DISTINCT file_path, line, col FROM class_index WHERE class = ? LIMIT 2",
		class,
	)
	if err != nil {
		lc.log.Warn("locator: class query failed", "class", class, "error", err)
		return Location{}, false
	}
	defer rows.Close()

	var found []Location
	for rows.Next() {
		var loc Location
		if err := rows.Scan(&loc.FilePath, &loc.Line, &loc.Column); err != nil {
			return Location{}, false
		}
		found = append(found, loc)
	}
	if len(found) != 1 {
		return Location{}, false
	}
	loc := found[0]
	loc.Confidence = 0.8
	loc.Strategy = StrategyUniqueClass
	return loc, true
}

// debugMeta mirrors the shape build tools emit into data-debug-source.
type debugMeta struct {
	FileName     string `json:"fileName"`
	LineNumber   int    `json:"lineNumber"`
	ColumnNumber int    `json:"columnNumber"`
}

func (lc *Locator) fromDebugMeta(e *dom.Element) (Location, bool) {
	raw, ok := e.Attr("data-debug-source")
	if !ok || raw == "" {
		return Location{}, false
	}
	var meta debugMeta
	if err := json.Unmarshal([]byte(raw), &meta); err != nil || meta.FileName == "" {
		return Location{}, false
	}
	if meta.LineNumber < 1 {
		meta.LineNumber = 1
	}
	if meta.ColumnNumber < 1 {
		meta.ColumnNumber = 1
	}
	return Location{
		FilePath:   meta.FileName,
		Line:       meta.LineNumber,
		Column:     meta.ColumnNumber,
		Confidence: 0.8,
		Strategy:   StrategyDebugMeta,
	}, true
}

// renderTraceRe matches "path/to/file.ext:line" with an optional ":column".
var renderTraceRe = regexp.MustCompile(`^(.+?\.[a-z]{1,4}):(\d+)(?::(\d+))?$`)

// fromRenderTrace walks self then ancestors looking for a render trace
// attribute. The nearest stamped ancestor wins, so nested components resolve
// to the innermost frame that rendered them.
func (lc *Locator) fromRenderTrace(e *dom.Element) (Location, bool) {
	hit := e.Closest(func(cur *dom.Element) bool {
		v, ok := cur.Attr("data-render-trace")
		return ok && v != ""
	})
	if hit == nil {
		return Location{}, false
	}
	m := renderTraceRe.FindStringSubmatch(hit.AttrOr("data-render-trace", ""))
	if m == nil {
		return Location{}, false
	}
	line, _ := strconv.Atoi(m[2])
	col := 1
	if m[3] != "" {
		col, _ = strconv.Atoi(m[3])
	}
	return Location{
		FilePath:   m[1],
		Line:       line,
		Column:     col,
		Confidence: 0.6,
		Strategy:   StrategyRenderTrace,
	}, true
}

// cssModuleRe matches hashed CSS module classes like "Button_root__a1b2c".
var cssModuleRe = regexp.MustCompile(`^([A-Z][A-Za-z0-9]*)_[A-Za-z0-9-]+__[A-Za-z0-9]+$`)

// pascalRe matches a bare PascalCase class name.
var pascalRe = regexp.MustCompile(`^[A-Z][a-z]+[A-Za-z0-9]*$`)

// fromStructure guesses a component file from naming conventions: CSS module
// class hashes, PascalCase classes, or an ancestor's data-component marker.
func (lc *Locator) fromStructure(e *dom.Element) (Location, bool) {
	for _, class := range e.Classes() {
		if m := cssModuleRe.FindStringSubmatch(class); m != nil {
			return structuralGuess(m[1]), true
		}
	}
	for _, class := range e.Classes() {
		if pascalRe.MatchString(class) {
			return structuralGuess(class), true
		}
	}
	hit := e.Closest(func(cur *dom.Element) bool {
		v, ok := cur.Attr("data-component")
		return ok && v != ""
	})
	if hit != nil {
		return structuralGuess(hit.AttrOr("data-component", "")), true
	}
	return Location{}, false
}

func structuralGuess(component string) Location {
	return Location{
		FilePath:   "./src/components/" + component + ".tsx",
		Line:       1,
		Column:     1,
		Confidence: 0.3,
		Strategy:   StrategyStructural,
	}
}

// Fingerprint derives a stable content key for an element: tag, sorted
// classes, and a short text prefix, hashed so the index key stays compact.
func Fingerprint(e *dom.Element) string {
	classes := e.Classes()
	sort.Strings(classes)
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%s", e.Tag(), strings.Join(classes, "."), e.TextPreview(32))
	return strconv.FormatUint(h.Sum64(), 16)
}

// IndexNode records a node-id mapping in the source index.
func (lc *Locator) IndexNode(nodeID string, loc Location) error {
	return lc.upsert("node", nodeID, loc)
}

// IndexPath records a selector-path mapping in the source index.
func (lc *Locator) IndexPath(selector string, loc Location) error {
	return lc.upsert("path", selector, loc)
}

// IndexFingerprint records a content-fingerprint mapping in the source index.
func (lc *Locator) IndexFingerprint(fp string, loc Location) error {
	return lc.upsert("fingerprint", fp, loc)
}

func (lc *Locator) upsert(kind, key string, loc Location) error {
	if lc.db == nil {
		return fmt.Errorf("locator: no index database")
	}
	_, err := lc.db.Exec(`
		INSERT INTO source_index (kind, key, file_path, line, col)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(kind, key) DO UPDATE SET
			file_path = excluded.file_path,
			line = excluded.line,
			col = excluded.col`,
		kind, key, loc.FilePath, loc.Line, loc.Column,
	)
	if err != nil {
		return fmt.Errorf("locator: index %s: %w", kind, err)
	}
	return nil
}

// IndexClass records a class mapping. Classes may map to several locations;
// lookup only trusts a class that resolves to exactly one.
func (lc *Locator) IndexClass(class string, loc Location) error {
	if lc.db == nil {
		return fmt.Errorf("locator: no index database")
	}
	_, err := lc.db.Exec(
		"INSERT INTO class_index (class, file_path, line, col) VALUES (?, ?, ?, ?)",
		class, loc.FilePath, loc.Line, loc.Column,
	)
	if err != nil {
		return fmt.Errorf("locator: index class: %w", err)
	}
	return nil
}
