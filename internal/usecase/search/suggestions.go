package search

import (
	"context"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kailas-cloud/unisearch/internal/db"
	"github.com/kailas-cloud/unisearch/internal/domain/entity"
	"github.com/kailas-cloud/unisearch/internal/domain/search/querybuild"
	"github.com/kailas-cloud/unisearch/internal/domain/search/result"
	"github.com/kailas-cloud/unisearch/internal/logger"
)

const (
	subjectField = "subject"
	tagsField    = "tags"
	// recentPostsWindow is how many of the newest posts feed tag suggestions.
	recentPostsWindow = 100
)

type suggestionSource func(ctx context.Context, partial string, limit int) ([]result.Suggestion, error)

// Suggestions returns typeahead entries for partial: university names, note
// subjects and trending tags, deduplicated case-insensitively. A failing or
// slow source contributes nothing.
func (s *Service) Suggestions(ctx context.Context, partial string) ([]result.Suggestion, error) {
	partial = strings.TrimSpace(partial)
	if utf8.RuneCountInString(partial) < s.cfg.MinLength {
		return []result.Suggestion{}, nil
	}

	sources := []struct {
		name string
		fn   suggestionSource
	}{
		{result.SuggestionUniversity, s.suggestUniversities},
		{result.SuggestionSubject, s.suggestSubjects},
		{result.SuggestionTag, s.suggestTags},
	}

	limit := s.cfg.SuggestionLimit
	lists := make([][]result.Suggestion, len(sources))
	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sctx, cancel := context.WithTimeout(ctx, s.cfg.SuggestionTimeout)
			defer cancel()
			list, err := src.fn(sctx, partial, limit)
			if err != nil {
				logger.FromContextOr(ctx, s.logger).Warn("Suggestion source failed",
					zap.String("source", src.name),
					zap.Error(err),
				)
				return
			}
			lists[i] = list
		}()
	}
	wg.Wait()

	out := make([]result.Suggestion, 0, limit)
	seen := make(map[string]bool)
	for _, list := range lists {
		for _, sg := range list {
			key := strings.ToLower(strings.TrimSpace(sg.Text))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, sg)
			if len(out) == limit {
				return out, nil
			}
		}
	}
	return out, nil
}

func (s *Service) suggestUniversities(ctx context.Context, partial string, limit int) ([]result.Suggestion, error) {
	d, _ := entity.Lookup(entity.Universities)

	if names, ok := s.autocomplete(ctx, d, partial, limit); ok {
		return asSuggestions(names, result.SuggestionUniversity), nil
	}

	res, err := s.store.Find(ctx, &db.FindQuery{
		Collection: d.Collection,
		Contains:   &db.Substring{Field: d.DisplayField, Value: partial},
		Projection: []string{d.DisplayField},
		Sort:       []db.SortField{{Field: d.DisplayField}},
		Limit:      limit,
	})
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(res.Documents))
	for _, doc := range res.Documents {
		if v, ok := doc.Fields[d.DisplayField].(string); ok {
			names = append(names, v)
		}
	}
	return asSuggestions(names, result.SuggestionUniversity), nil
}

// autocomplete asks the managed engine when its autocomplete index answered
// the last capability probe.
func (s *Service) autocomplete(ctx context.Context, d *entity.Descriptor, partial string, limit int) ([]string, bool) {
	index := d.Managed.Autocomplete
	if s.managed == nil || s.caps == nil || index == "" {
		return nil, false
	}
	if !s.caps.Check(ctx, d).ManagedAvailable(index) {
		return nil, false
	}
	names, err := s.managed.Autocomplete(ctx, index, d.DisplayField, partial, limit)
	if err != nil {
		logger.FromContextOr(ctx, s.logger).Warn("Managed autocomplete failed, using substring match",
			zap.String("index", index),
			zap.Error(err),
		)
		return nil, false
	}
	return names, true
}

func (s *Service) suggestSubjects(ctx context.Context, partial string, limit int) ([]result.Suggestion, error) {
	d, _ := entity.Lookup(entity.Notes)
	agg := querybuild.TopN(querybuild.GroupCount(d.Collection, subjectField), limit)
	agg.Contains = &db.Substring{Field: subjectField, Value: partial}

	rows, err := s.store.Aggregate(ctx, agg)
	if err != nil {
		return nil, err
	}
	subjects := make([]string, 0, len(rows))
	for _, row := range rows {
		for _, v := range db.StringsOf(row.Fields[subjectField]) {
			if containsFold(v, partial) {
				subjects = append(subjects, v)
			}
		}
	}
	return asSuggestions(subjects, result.SuggestionSubject), nil
}

// suggestTags counts the tags of the newest posts that start with partial,
// most used first.
func (s *Service) suggestTags(ctx context.Context, partial string, limit int) ([]result.Suggestion, error) {
	d, _ := entity.Lookup(entity.Posts)
	res, err := s.store.Find(ctx, &db.FindQuery{
		Collection: d.Collection,
		Projection: []string{tagsField},
		Sort:       querybuild.Newest(),
		Limit:      recentPostsWindow,
	})
	if err != nil {
		return nil, err
	}

	prefix := strings.ToLower(partial)
	counts := make(map[string]int)
	display := make(map[string]string)
	for _, doc := range res.Documents {
		for _, tag := range db.StringsOf(doc.Fields[tagsField]) {
			tag = strings.TrimSpace(tag)
			key := strings.ToLower(tag)
			if !strings.HasPrefix(key, prefix) {
				continue
			}
			if _, ok := display[key]; !ok {
				display[key] = tag
			}
			counts[key]++
		}
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		if counts[a] != counts[b] {
			return counts[b] - counts[a]
		}
		return strings.Compare(a, b)
	})
	if len(keys) > limit {
		keys = keys[:limit]
	}
	tags := make([]string, len(keys))
	for i, k := range keys {
		tags[i] = display[k]
	}
	return asSuggestions(tags, result.SuggestionTag), nil
}

func asSuggestions(texts []string, typ string) []result.Suggestion {
	out := make([]result.Suggestion, 0, len(texts))
	for _, t := range texts {
		out = append(out, result.Suggestion{Text: t, Type: typ})
	}
	return out
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
