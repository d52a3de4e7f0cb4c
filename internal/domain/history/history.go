// Package history holds per-user search history rows and their normalization.
package history

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Entry is one (user, normalized query) history row.
type Entry struct {
	UserID    string
	Query     string
	Count     int
	LastUsed  time.Time
	CreatedAt time.Time
}

// Popular is a query with its count summed over every user.
type Popular struct {
	Query string
	Count int
}

// Event is a history record in transit through the event stream.
type Event struct {
	UserID string    `json:"userId"`
	Query  string    `json:"query"`
	At     time.Time `json:"at"`
}

// Normalize lower-cases and trims the query and collapses inner whitespace.
func Normalize(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

// Key is the storage id of the (user, normalized query) row. Equal inputs map
// to the same id, so an upsert never creates a second row for the pair.
func Key(userID, normalized string) string {
	sum := sha256.Sum256([]byte(userID + "\x00" + normalized))
	return hex.EncodeToString(sum[:16])
}
