package history

import (
	"time"

	"github.com/kailas-cloud/unisearch/internal/db"
	domhistory "github.com/kailas-cloud/unisearch/internal/domain/history"
)

func entryFromFields(f map[string]any) domhistory.Entry {
	e := domhistory.Entry{}
	e.UserID, _ = f[fieldUserID].(string)
	e.Query, _ = f[fieldQuery].(string)
	if n, ok := db.NumberOf(f[fieldCount]); ok {
		e.Count = int(n)
	}
	e.LastUsed = millis(f[fieldLastUsed])
	e.CreatedAt = millis(f[fieldCreatedAt])
	return e
}

func millis(v any) time.Time {
	n, ok := db.NumberOf(v)
	if !ok {
		return time.Time{}
	}
	return time.UnixMilli(int64(n))
}
