package dom

// Marker attributes are the on-page persistence format shared with the
// build-time stamping step and the editor's CSS. Identity markers may be
// pre-stamped at build time; state markers are transient and owned by the
// engine.
const (
	// Identity and provenance (may be build-time stamped).
	AttrID     = "data-phoenix-id"
	AttrSource = "data-phoenix-source"
	AttrLine   = "data-phoenix-line"
	AttrCol    = "data-phoenix-col"

	// Transient visual state, kept on the DOM only so host CSS can select
	// on it. All other bookkeeping lives in side-tables.
	AttrHover         = "data-phoenix-hover"
	AttrSelected      = "data-phoenix-selected"
	AttrEditing       = "data-phoenix-editing"
	AttrContextAdding = "data-context-adding"
	AttrContextAdded  = "data-context-added"

	// Marks UI injected by the editor itself, so scans skip it.
	AttrEditorUI = "data-editor-element"
)
