package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/unisearch/internal/domain/entity"
)

type documentWriter interface {
	Put(ctx context.Context, collection, id string, fields map[string]any) error
}

type managedWriter interface {
	Put(ctx context.Context, index, id string, doc map[string]any) error
}

// seedSummary counts written documents per collection.
type seedSummary struct {
	Collection string   `json:"collection"`
	Written    int      `json:"written"`
	Mirrored   int      `json:"mirrored"`
	Errors     []string `json:"errors,omitempty"`
}

func newSeedCmd() *cobra.Command {
	var (
		file    string
		managed bool
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load documents from a JSON file",
		Long: `Loads a JSON object keyed by collection name, each holding an array
of documents. Documents without an id get a generated one; createdAt and
updatedAt are stamped when missing. With --managed every searchable
document is mirrored to its Elasticsearch indexes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := readSeedFile(file)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			b, err := connect(ctx, managed)
			if err != nil {
				return err
			}
			defer b.Close()

			var mirror managedWriter
			if managed && b.managed != nil {
				mirror = b.managed
			}
			s := &seeder{store: b.store, managed: mirror, now: time.Now, logger: b.logger}
			return writeSeed(cmd.OutOrStdout(), s.run(ctx, data), jsonOutput)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Seed file (JSON)")
	cmd.Flags().BoolVar(&managed, "managed", false, "Mirror documents to Elasticsearch")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func readSeedFile(path string) (map[string][]map[string]any, error) {
	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var data map[string][]map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return data, nil
}

type seeder struct {
	store   documentWriter
	managed managedWriter // nil skips mirroring
	now     func() time.Time
	logger  *zap.Logger
}

// run writes the collections in provisioning order. Unknown collections are skipped.
func (s *seeder) run(ctx context.Context, data map[string][]map[string]any) []seedSummary {
	known := make(map[string]bool)
	var out []seedSummary
	for _, d := range entity.All() {
		known[d.Collection] = true
		docs, ok := data[d.Collection]
		if !ok {
			continue
		}
		out = append(out, s.seedCollection(ctx, d, docs))
	}

	var unknown []string
	for name := range data {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	slices.Sort(unknown)
	for _, name := range unknown {
		s.logger.Warn("Skipping unknown collection", zap.String("collection", name))
		out = append(out, seedSummary{Collection: name, Errors: []string{"unknown collection"}})
	}
	return out
}

func (s *seeder) seedCollection(ctx context.Context, d *entity.Descriptor, docs []map[string]any) seedSummary {
	sum := seedSummary{Collection: d.Collection}
	stamp := s.now().UnixMilli()

	for _, doc := range docs {
		id, _ := doc["id"].(string)
		if id == "" {
			id = uuid.NewString()
		}
		fields := make(map[string]any, len(doc)+2)
		for k, v := range doc {
			if k != "id" {
				fields[k] = v
			}
		}
		if _, ok := fields["createdAt"]; !ok {
			fields["createdAt"] = stamp
		}
		if _, ok := fields["updatedAt"]; !ok {
			fields["updatedAt"] = stamp
		}

		if err := s.store.Put(ctx, d.Collection, id, fields); err != nil {
			sum.Errors = append(sum.Errors, fmt.Sprintf("%s: %v", id, err))
			continue
		}
		sum.Written++

		if s.managed == nil || d.Managed.Search == "" {
			continue
		}
		if err := s.mirror(ctx, d, id, fields); err != nil {
			sum.Errors = append(sum.Errors, fmt.Sprintf("%s: mirror: %v", id, err))
			continue
		}
		sum.Mirrored++
	}
	return sum
}

func (s *seeder) mirror(ctx context.Context, d *entity.Descriptor, id string, fields map[string]any) error {
	if err := s.managed.Put(ctx, d.Managed.Search, id, fields); err != nil {
		return err
	}
	if d.Managed.Autocomplete == "" {
		return nil
	}
	display, ok := fields[d.DisplayField]
	if !ok {
		return nil
	}
	return s.managed.Put(ctx, d.Managed.Autocomplete, id, map[string]any{d.DisplayField: display})
}

func writeSeed(w io.Writer, summaries []seedSummary, asJSON bool) error {
	if asJSON {
		return encodeJSON(w, summaries)
	}
	for _, s := range summaries {
		fmt.Fprintf(w, "%-16s written=%d mirrored=%d\n", s.Collection, s.Written, s.Mirrored)
		for _, e := range s.Errors {
			fmt.Fprintf(w, "  ! %s\n", e)
		}
	}
	return nil
}
