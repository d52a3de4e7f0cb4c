package mode

// Mode is the strategy tier that answered a search.
type Mode string

// Search mode constants, best first.
const (
	// Managed is the managed full-text engine with fuzzy matching.
	Managed Mode = "managed"
	// Weighted is the store's native weighted text index.
	Weighted Mode = "weighted"
	// Substring is the degraded case-insensitive match on the display field.
	Substring Mode = "substring"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Managed || m == Weighted || m == Substring
}

// Degraded reports whether the tier gives up relevance ranking.
func (m Mode) Degraded() bool {
	return m == Substring
}
