// Package idgen provides pluggable ID generation for the phoenix engine.
//
// Constructors across the module accept a Generator, making the ID strategy
// a startup-time decision rather than a compile-time one. Two strategies are
// used in practice: UUIDv7 for correlation/request ids, and the element
// strategy for DOM tracking ids (stable for the document session, readable
// in markup).
package idgen

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a Generator producing RFC 9562 UUID v7 strings.
// Time-sortable and globally unique; the module default.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed wraps a Generator and prepends a fixed prefix to every ID.
// Used for type-scoped identifiers (e.g. "req-", "ctx-").
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Element returns a Generator for DOM tracking ids: a shared epoch-millis
// stamp plus a monotonic counter, e.g. "phoenix-1708700000000-17". Unique
// within a document session and cheap enough for full-document scans.
func Element() Generator {
	epoch := time.Now().UnixMilli()
	var counter atomic.Int64
	return func() string {
		return fmt.Sprintf("phoenix-%d-%d", epoch, counter.Add(1))
	}
}

// Default is the module default: UUIDv7.
var Default Generator = UUIDv7()

// New produces an ID using the Default generator.
func New() string {
	return Default()
}

// Request produces a correlation id for cross-frame requests.
var Request Generator = Prefixed("req-", UUIDv7())
