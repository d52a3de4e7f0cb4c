package enrichment

import (
	"context"

	"github.com/kailas-cloud/unisearch/internal/domain/logo"
)

// URLProber checks that a remote image exists.
type URLProber interface {
	Exists(ctx context.Context, url string) (bool, error)
}

// Target is a logo request reduced to what the sources need.
type Target struct {
	Name      string
	Domain    string
	CachedURL string
}

// Source is one step of the logo chain. Attempt reports false when the source
// has no logo for the target; sources never fail the lookup.
type Source interface {
	Attempt(ctx context.Context, t Target) (logo.Result, bool)
}

// checkedSource is a Source that can fail transiently. An error means the
// source could not tell whether a logo exists; the chain moves on, but the
// outcome is not final.
type checkedSource interface {
	AttemptChecked(ctx context.Context, t Target) (logo.Result, bool, error)
}

// targetOf resolves a request into a Target.
func targetOf(req logo.Request) Target {
	switch r := req.(type) {
	case logo.ByDomain:
		d := logo.NormalizeDomain(r.Domain)
		return Target{Name: d, Domain: d}
	case logo.ByEntity:
		return Target{Name: r.Name, Domain: r.Domain(), CachedURL: r.CachedLogoURL}
	default:
		return Target{}
	}
}
