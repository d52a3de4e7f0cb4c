package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/unisearch/internal/domain/entity"
	"github.com/kailas-cloud/unisearch/internal/usecase/capability"
	"github.com/kailas-cloud/unisearch/internal/usecase/provision"
)

type provisioner interface {
	EnsureAll(ctx context.Context, descriptors []*entity.Descriptor) []provision.Result
	EnsureManaged(ctx context.Context, d *entity.Descriptor) provision.Result
}

func newProvisionCmd() *cobra.Command {
	var managed bool
	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Create missing collection indexes",
		Long: `Creates the text and auxiliary indexes of every collection.
Existing identical indexes are skipped; conflicting ones are reported
as warnings and left for manual cleanup.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			b, err := connect(ctx, managed)
			if err != nil {
				return err
			}
			defer b.Close()

			caps := capability.New(b.store, nil, capability.DefaultTTL)
			var indexer provision.ManagedIndexer
			if b.managed != nil {
				indexer = b.managed
			}
			svc := provision.New(b.store, indexer, caps, b.logger)
			results := runProvision(ctx, svc, managed && b.managed != nil)
			return writeProvision(cmd.OutOrStdout(), results, jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&managed, "managed", false, "Also create the Elasticsearch indexes")
	return cmd
}

func runProvision(ctx context.Context, p provisioner, managed bool) []provision.Result {
	results := p.EnsureAll(ctx, entity.All())
	if managed {
		for _, d := range entity.Searchable() {
			results = append(results, p.EnsureManaged(ctx, d))
		}
	}
	return results
}

func writeProvision(w io.Writer, results []provision.Result, asJSON bool) error {
	if asJSON {
		return encodeJSON(w, results)
	}
	for _, r := range results {
		fmt.Fprintf(w, "%-16s created=%d skipped=%d\n", r.Collection, len(r.Created), len(r.Skipped))
		for _, name := range r.Created {
			fmt.Fprintf(w, "  + %s\n", name)
		}
		for _, e := range r.Errors {
			label := "error"
			if e.Conflict {
				label = "warning: conflict"
			}
			fmt.Fprintf(w, "  ! %s %s: %v\n", label, e.Index, e.Err)
		}
	}
	return nil
}
