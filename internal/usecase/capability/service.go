// Package capability decides, per collection, which search tier is usable:
// the managed full-text engine, the store's weighted text index, or neither.
package capability

import (
	"context"
	"sync"
	"time"

	"github.com/kailas-cloud/unisearch/internal/domain/entity"
	"github.com/kailas-cloud/unisearch/internal/metrics"
)

// Capability is the best search tier available for a collection.
type Capability string

const (
	// ManagedFullText is fuzzy, boosted search on the managed engine.
	ManagedFullText Capability = "managed_full_text"
	// BasicWeightedText is term matching with static weights on the store's text index.
	BasicWeightedText Capability = "basic_weighted_text"
	// Unavailable means no text capability; only substring matching remains.
	Unavailable Capability = "unavailable"
)

// DefaultTTL is how long a report is reused before probing again.
const DefaultTTL = 30 * time.Second

const managedDisabled = "managed search disabled"

// IndexStatus is the probe outcome of one managed index.
type IndexStatus struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Error     string `json:"error,omitempty"`
}

// TextStatus is the probe outcome of the store's text index.
type TextStatus struct {
	Available bool   `json:"available"`
	Index     string `json:"index,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Report is the capability of one collection with per-index detail.
type Report struct {
	Collection string        `json:"collection"`
	Capability Capability    `json:"capability"`
	Managed    []IndexStatus `json:"managed"`
	Text       TextStatus    `json:"text"`
	CheckedAt  time.Time     `json:"checkedAt"`
}

// ManagedAvailable reports whether the named managed index answered its probe.
func (r Report) ManagedAvailable(index string) bool {
	for _, s := range r.Managed {
		if s.Name == index {
			return s.Available
		}
	}
	return false
}

type entry struct {
	report  Report
	expires time.Time
}

// Prober checks and caches search capabilities.
type Prober struct {
	store   IndexLister
	managed ManagedProber
	ttl     time.Duration
	now     func() time.Time

	mu    sync.Mutex
	cache map[string]entry
}

// New creates a Prober. managed may be nil when the managed engine is disabled.
// A non-positive ttl uses DefaultTTL.
func New(store IndexLister, managed ManagedProber, ttl time.Duration) *Prober {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Prober{
		store:   store,
		managed: managed,
		ttl:     ttl,
		now:     time.Now,
		cache:   make(map[string]entry),
	}
}

// Check returns the collection's capability report, from cache while fresh.
// Probe failures are recorded in the report; Check never fails.
func (p *Prober) Check(ctx context.Context, d *entity.Descriptor) Report {
	now := p.now()
	p.mu.Lock()
	if e, ok := p.cache[d.Collection]; ok && now.Before(e.expires) {
		p.mu.Unlock()
		return e.report
	}
	p.mu.Unlock()

	r := p.probe(ctx, d)
	r.CheckedAt = now

	// a canceled caller gets its report, but it is not cached
	if ctx.Err() == nil {
		p.mu.Lock()
		p.cache[d.Collection] = entry{report: r, expires: now.Add(p.ttl)}
		p.mu.Unlock()
	}
	setGauge(d.Collection, r.Capability)
	return r
}

// Invalidate drops the cached report of one collection.
func (p *Prober) Invalidate(collection string) {
	p.mu.Lock()
	delete(p.cache, collection)
	p.mu.Unlock()
}

// InvalidateAll drops every cached report.
func (p *Prober) InvalidateAll() {
	p.mu.Lock()
	clear(p.cache)
	p.mu.Unlock()
}

func (p *Prober) probe(ctx context.Context, d *entity.Descriptor) Report {
	r := Report{Collection: d.Collection}

	for _, name := range d.Managed.Names() {
		st := IndexStatus{Name: name}
		switch {
		case p.managed == nil:
			st.Error = managedDisabled
		default:
			if err := p.managed.ProbeIndex(ctx, name); err != nil {
				st.Error = err.Error()
			} else {
				st.Available = true
			}
		}
		r.Managed = append(r.Managed, st)
	}

	r.Text = p.probeText(ctx, d)

	switch {
	case len(r.Managed) > 0 && r.Managed[0].Available:
		r.Capability = ManagedFullText
	case r.Text.Available:
		r.Capability = BasicWeightedText
	default:
		r.Capability = Unavailable
	}
	return r
}

func (p *Prober) probeText(ctx context.Context, d *entity.Descriptor) TextStatus {
	if !p.store.SupportsTextSearch(ctx) {
		return TextStatus{Error: "store has no text search"}
	}
	defs, err := p.store.ListIndexes(ctx, d.Collection)
	if err != nil {
		return TextStatus{Error: err.Error()}
	}
	for i := range defs {
		if defs[i].HasText() {
			return TextStatus{Available: true, Index: defs[i].Name}
		}
	}
	return TextStatus{Error: "no text index"}
}

func setGauge(collection string, current Capability) {
	for _, c := range []Capability{ManagedFullText, BasicWeightedText, Unavailable} {
		v := 0.0
		if c == current {
			v = 1
		}
		metrics.SearchCapability.WithLabelValues(collection, string(c)).Set(v)
	}
}
