package enrichment

import (
	"context"
	"fmt"
	"hash/fnv"
	"net/url"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/kailas-cloud/unisearch/internal/domain/logo"
)

// Remote logo endpoints.
const (
	DefaultLogoDevURL = "https://img.logo.dev"
	DefaultFaviconURL = "https://www.google.com/s2/favicons"
)

// CachedSource returns the logo URL already stored on the entity.
type CachedSource struct{}

// Attempt implements Source.
func (CachedSource) Attempt(_ context.Context, t Target) (logo.Result, bool) {
	u := strings.TrimSpace(t.CachedURL)
	if u == "" {
		return logo.Result{}, false
	}
	return logo.Result{URL: u, Source: logo.SourceCached}, true
}

// remoteSource builds a candidate URL for the domain and keeps it when a
// rate-limited HEAD check confirms it.
type remoteSource struct {
	source  logo.Source
	build   func(domain string) string
	probe   URLProber
	limiter *Limiter
	logger  *zap.Logger
}

func (s *remoteSource) Attempt(ctx context.Context, t Target) (logo.Result, bool) {
	r, ok, _ := s.AttemptChecked(ctx, t)
	return r, ok
}

// AttemptChecked implements checkedSource. A 4xx answer is a definitive miss;
// rate-limit waits cut short and probe errors are returned.
func (s *remoteSource) AttemptChecked(ctx context.Context, t Target) (logo.Result, bool, error) {
	if t.Domain == "" {
		return logo.Result{}, false, nil
	}
	u := s.build(t.Domain)
	if err := s.limiter.Wait(ctx); err != nil {
		return logo.Result{}, false, fmt.Errorf("%s rate limit wait: %w", s.source, err)
	}
	ok, err := s.probe.Exists(ctx, u)
	if err != nil {
		s.logger.Debug("Logo probe failed",
			zap.String("source", string(s.source)),
			zap.String("domain", t.Domain),
			zap.Error(err),
		)
		return logo.Result{}, false, fmt.Errorf("%s probe: %w", s.source, err)
	}
	if !ok {
		return logo.Result{}, false, nil
	}
	return logo.Result{URL: u, Source: s.source}, true, nil
}

// NewLogoDevSource looks the domain up on logo.dev. Without a token the
// source never answers.
func NewLogoDevSource(baseURL, token string, probe URLProber, limiter *Limiter, logger *zap.Logger) Source {
	if token == "" {
		return disabledSource{}
	}
	if baseURL == "" {
		baseURL = DefaultLogoDevURL
	}
	base := strings.TrimRight(baseURL, "/")
	return &remoteSource{
		source: logo.SourceLogoDev,
		build: func(domain string) string {
			return fmt.Sprintf("%s/%s?token=%s", base, url.PathEscape(domain), url.QueryEscape(token))
		},
		probe:   probe,
		limiter: limiter,
		logger:  logger,
	}
}

// NewFaviconSource looks the domain up on a favicon service.
func NewFaviconSource(baseURL string, probe URLProber, limiter *Limiter, logger *zap.Logger) Source {
	if baseURL == "" {
		baseURL = DefaultFaviconURL
	}
	return &remoteSource{
		source: logo.SourceFavicon,
		build: func(domain string) string {
			return fmt.Sprintf("%s?domain=%s&sz=128", baseURL, url.QueryEscape(domain))
		},
		probe:   probe,
		limiter: limiter,
		logger:  logger,
	}
}

type disabledSource struct{}

func (disabledSource) Attempt(context.Context, Target) (logo.Result, bool) {
	return logo.Result{}, false
}

// PlaceholderSource always answers with initials and a colour derived from the name.
type PlaceholderSource struct{}

// Attempt implements Source.
func (PlaceholderSource) Attempt(_ context.Context, t Target) (logo.Result, bool) {
	name := t.Name
	if strings.TrimSpace(name) == "" {
		name = t.Domain
	}
	return logo.Result{
		Source:   logo.SourcePlaceholder,
		Initials: Initials(name),
		Color:    Color(name),
	}, true
}

var palette = []string{
	"#1E88E5", "#43A047", "#E53935", "#8E24AA", "#FB8C00",
	"#00897B", "#3949AB", "#D81B60", "#6D4C41", "#546E7A",
}

// Initials returns up to two upper-case initials of the name's words. For a
// domain only the first label counts. An empty name yields "?".
func Initials(name string) string {
	name = strings.TrimSpace(name)
	if !strings.ContainsRune(name, ' ') && strings.Contains(name, ".") {
		name = name[:strings.Index(name, ".")]
	}
	words := strings.FieldsFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make([]rune, 0, 2)
	for _, w := range words {
		out = append(out, unicode.ToUpper([]rune(w)[0]))
		if len(out) == 2 {
			break
		}
	}
	if len(out) == 0 {
		return "?"
	}
	return string(out)
}

// Color picks a palette colour from a hash of the lower-cased name.
func Color(name string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(name))))
	return palette[h.Sum32()%uint32(len(palette))]
}
