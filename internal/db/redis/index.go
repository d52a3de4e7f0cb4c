package redis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/unisearch/internal/db"
)

// CreateIndex creates an FT index over the collection's JSON documents.
// When the name is taken, the existing schema is compared: an identical shape
// returns db.ErrIndexExists, anything else wraps db.ErrIndexConflict.
func (s *Store) CreateIndex(ctx context.Context, collection string, def *db.IndexDefinition) error {
	if err := def.Validate(); err != nil {
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	if def.HasText() && !s.textSearch {
		return &db.Error{Op: db.OpCreateIndex, Err: db.ErrCapabilityUnavailable}
	}

	args := s.buildCreateArgs(collection, def)
	cmd := s.b().Arbitrary("FT.CREATE").Args(args...).Build()
	err := s.do(ctx, cmd).Error()
	if err == nil {
		return nil
	}
	if !isRedisErr(err, "index already exists") {
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}

	existing, infoErr := s.indexInfo(ctx, collection, def.Name)
	if infoErr != nil {
		return db.ErrIndexExists
	}
	if existing.def.SameShape(def) {
		return db.ErrIndexExists
	}
	return fmt.Errorf("%w: index %q exists with options %s", db.ErrIndexConflict, def.Name, existing.def.String())
}

// DropIndex removes an FT index by name. Documents are kept.
func (s *Store) DropIndex(ctx context.Context, collection, name string) error {
	cmd := s.b().Arbitrary("FT.DROPINDEX").Args(s.indexName(collection, name)).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "unknown index name") || isRedisErr(err, "no such index") {
			return db.ErrIndexNotFound
		}
		return &db.Error{Op: db.OpDropIndex, Err: err}
	}
	return nil
}

// ListIndexes returns the collection's indexes, read back from FT._LIST and FT.INFO.
func (s *Store) ListIndexes(ctx context.Context, collection string) ([]db.IndexDefinition, error) {
	names, err := s.listIndexNames(ctx, collection)
	if err != nil {
		return nil, err
	}

	out := make([]db.IndexDefinition, 0, len(names))
	for _, name := range names {
		info, err := s.indexInfo(ctx, collection, name)
		if err != nil {
			if errors.Is(err, db.ErrIndexNotFound) {
				continue // dropped between _LIST and INFO
			}
			return nil, err
		}
		out = append(out, *info.def)
	}
	return out, nil
}

func (s *Store) listIndexNames(ctx context.Context, collection string) ([]string, error) {
	cmd := s.b().Arbitrary("FT._LIST").Build()
	all, err := s.do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, &db.Error{Op: db.OpIndexList, Err: err}
	}
	prefix := s.keyPrefix(collection)
	var names []string
	for _, full := range all {
		if name, ok := strings.CutPrefix(full, prefix); ok && name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

type indexInfo struct {
	def     *db.IndexDefinition
	numDocs int
}

// indexInfo runs FT.INFO and parses the attribute list back into a definition.
func (s *Store) indexInfo(ctx context.Context, collection, name string) (*indexInfo, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(s.indexName(collection, name)).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isRedisErr(err, "unknown index name") || isRedisErr(err, "no such index") {
			return nil, db.ErrIndexNotFound
		}
		return nil, &db.Error{Op: db.OpIndexInfo, Err: err}
	}
	return parseIndexInfo(name, raw)
}

func parseIndexInfo(name string, raw []rueidis.RedisMessage) (*indexInfo, error) {
	info := &indexInfo{def: &db.IndexDefinition{Name: name}}
	for i := 0; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		switch key {
		case "attributes", "fields":
			attrs, err := raw[i+1].ToArray()
			if err != nil {
				return nil, fmt.Errorf("parse attributes: %w", err)
			}
			for j := range attrs {
				tokens, err := attrs[j].ToArray()
				if err != nil {
					continue
				}
				if f, ok := parseAttribute(tokens); ok {
					info.def.Fields = append(info.def.Fields, f)
				}
			}
		case "num_docs":
			info.numDocs = int(messageFloat(&raw[i+1]))
		}
	}
	return info, nil
}

// parseAttribute reads one FT.INFO attribute entry. Values follow their key,
// SORTABLE and CASESENSITIVE are bare flags.
func parseAttribute(tokens []rueidis.RedisMessage) (db.IndexField, bool) {
	var f db.IndexField
	var typ string
	for i := 0; i < len(tokens); i++ {
		tok, err := tokens[i].ToString()
		if err != nil {
			continue
		}
		switch strings.ToUpper(tok) {
		case "ATTRIBUTE":
			if i+1 < len(tokens) {
				f.Name, _ = tokens[i+1].ToString()
				i++
			}
		case "IDENTIFIER":
			if i+1 < len(tokens) {
				path, _ := tokens[i+1].ToString()
				f.Path = strings.TrimPrefix(path, "$.")
				i++
			}
		case "TYPE":
			if i+1 < len(tokens) {
				typ, _ = tokens[i+1].ToString()
				i++
			}
		case "WEIGHT":
			if i+1 < len(tokens) {
				if w := int(math.Round(messageFloat(&tokens[i+1]))); w != 1 {
					f.Weight = w
				}
				i++
			}
		case "SEPARATOR":
			if i+1 < len(tokens) {
				f.TagSeparator, _ = tokens[i+1].ToString()
				if f.TagSeparator == "," {
					f.TagSeparator = ""
				}
				i++
			}
		case "SORTABLE":
			f.Sortable = true
		case "CASESENSITIVE":
			f.TagCaseSensitive = true
		}
	}
	switch strings.ToUpper(typ) {
	case "TEXT":
		f.Type = db.IndexFieldText
	case "TAG":
		f.Type = db.IndexFieldTag
	case "NUMERIC":
		f.Type = db.IndexFieldNumeric
	default:
		return f, false
	}
	if f.Path == f.Name {
		f.Path = ""
	}
	return f, f.Name != ""
}

func messageFloat(m *rueidis.RedisMessage) float64 {
	if v, err := m.AsFloat64(); err == nil {
		return v
	}
	if v, err := m.AsInt64(); err == nil {
		return float64(v)
	}
	return 0
}

func (s *Store) buildCreateArgs(collection string, idx *db.IndexDefinition) []string {
	args := []string{
		s.indexName(collection, idx.Name),
		"ON", "JSON",
		"PREFIX", "1", s.keyPrefix(collection),
		"SCHEMA",
	}
	for i := range idx.Fields {
		args = append(args, buildFieldArgs(&idx.Fields[i])...)
	}
	return args
}

func buildFieldArgs(f *db.IndexField) []string {
	args := []string{"$." + f.SourceField(), "AS", f.Name, f.Type.String()}

	switch f.Type {
	case db.IndexFieldText:
		if f.Weight > 0 && f.Weight != 1 {
			args = append(args, "WEIGHT", strconv.Itoa(f.Weight))
		}
	case db.IndexFieldTag:
		if f.TagSeparator != "" {
			args = append(args, "SEPARATOR", f.TagSeparator)
		}
		if f.TagCaseSensitive {
			args = append(args, "CASESENSITIVE")
		}
	}

	if f.Sortable {
		args = append(args, "SORTABLE")
	}
	return args
}
