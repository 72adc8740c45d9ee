package frame

// Policy is the origin allowlist for outbound and inbound frames. The zero
// value allows nothing: sending through an empty policy fails, and the
// wildcard only takes effect when "*" is configured explicitly.
type Policy struct {
	AllowedOrigins []string
}

// Allow reports whether the given origin may exchange messages.
func (p Policy) Allow(origin string) bool {
	for _, o := range p.AllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// Open reports whether the policy has any origin configured at all.
func (p Policy) Open() bool {
	return len(p.AllowedOrigins) > 0
}
