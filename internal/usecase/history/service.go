// Package history records per-user searches and serves the recent and
// popular lists built from them.
package history

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	domhistory "github.com/kailas-cloud/unisearch/internal/domain/history"
	"github.com/kailas-cloud/unisearch/internal/domain/search/query"
)

// Service records and reads search history.
type Service struct {
	repo      Repository
	minLength int
	now       func() time.Time
}

// New creates a Service. minLength below 1 uses the query default.
func New(repo Repository, minLength int) *Service {
	if minLength < 1 {
		minLength = query.DefaultMinLength
	}
	return &Service{repo: repo, minLength: minLength, now: time.Now}
}

// Record counts one use of q by the user. Anonymous users and queries shorter
// than the minimum length are ignored without error.
func (s *Service) Record(ctx context.Context, userID, q string) error {
	return s.record(ctx, userID, q, s.now())
}

// Handle applies a history event. It implements Handler.
func (s *Service) Handle(ctx context.Context, e domhistory.Event) error {
	at := e.At
	if at.IsZero() {
		at = s.now()
	}
	return s.record(ctx, e.UserID, e.Query, at)
}

func (s *Service) record(ctx context.Context, userID, q string, at time.Time) error {
	normalized := domhistory.Normalize(q)
	if userID == "" || utf8.RuneCountInString(normalized) < s.minLength {
		return nil
	}
	if err := s.repo.Upsert(ctx, userID, normalized, at); err != nil {
		return fmt.Errorf("record history: %w", err)
	}
	return nil
}

// Recent returns the user's last n queries, most recent first.
func (s *Service) Recent(ctx context.Context, userID string, n int) ([]domhistory.Entry, error) {
	entries, err := s.repo.Recent(ctx, userID, n)
	if err != nil {
		return nil, fmt.Errorf("recent history: %w", err)
	}
	return entries, nil
}

// Popular returns the n most used queries over all users.
func (s *Service) Popular(ctx context.Context, n int) ([]domhistory.Popular, error) {
	popular, err := s.repo.Popular(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("popular history: %w", err)
	}
	return popular, nil
}

// Clear deletes the user's history. Clearing an empty history succeeds.
func (s *Service) Clear(ctx context.Context, userID string) error {
	if _, err := s.repo.DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}
