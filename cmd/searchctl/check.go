package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/unisearch/internal/db"
	"github.com/kailas-cloud/unisearch/internal/domain/entity"
	"github.com/kailas-cloud/unisearch/internal/domain/search/filter"
	"github.com/kailas-cloud/unisearch/internal/domain/search/querybuild"
	"github.com/kailas-cloud/unisearch/internal/usecase/capability"
)

type capabilityChecker interface {
	Check(ctx context.Context, d *entity.Descriptor) capability.Report
}

// collectionStatus is one line of the check output.
type collectionStatus struct {
	capability.Report
	Documents  int    `json:"documents"`
	CountError string `json:"countError,omitempty"`
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report search capabilities and document counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			b, err := connect(ctx, false)
			if err != nil {
				return err
			}
			defer b.Close()

			var prober capability.ManagedProber
			if b.managed != nil {
				prober = b.managed
			}
			caps := capability.New(b.store, prober, capability.DefaultTTL)
			staleness := time.Duration(b.cfg.Search.ApproxCountStalenessSec) * time.Second
			counter := querybuild.NewStaleCounter(b.store, staleness)

			return writeCheck(cmd.OutOrStdout(), runCheck(ctx, caps, counter), jsonOutput)
		},
	}
}

func runCheck(ctx context.Context, caps capabilityChecker, counter db.Counter) []collectionStatus {
	descriptors := entity.All()
	out := make([]collectionStatus, 0, len(descriptors))
	for _, d := range descriptors {
		st := collectionStatus{Report: caps.Check(ctx, d)}
		n, err := querybuild.CountDocuments(ctx, counter, d.Collection, filter.Expression{})
		if err != nil {
			st.CountError = err.Error()
		}
		st.Documents = n
		out = append(out, st)
	}
	return out
}

func writeCheck(w io.Writer, statuses []collectionStatus, asJSON bool) error {
	if asJSON {
		return encodeJSON(w, statuses)
	}
	for _, s := range statuses {
		fmt.Fprintf(w, "%-16s %-20s docs~%d", s.Collection, s.Capability, s.Documents)
		if s.CountError != "" {
			fmt.Fprintf(w, " (count failed: %s)", s.CountError)
		}
		fmt.Fprintln(w)
		if s.Text.Error != "" {
			fmt.Fprintf(w, "  text: %s\n", s.Text.Error)
		}
		for _, m := range s.Managed {
			state := "available"
			if !m.Available {
				state = "unavailable"
				if m.Error != "" {
					state += ": " + m.Error
				}
			}
			fmt.Fprintf(w, "  managed %s: %s\n", m.Name, state)
		}
	}
	return nil
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
