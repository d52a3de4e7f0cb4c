// Package logo describes logo lookups for university results.
package logo

import (
	"net/url"
	"strings"
)

// Request is a logo lookup: ByDomain or ByEntity.
type Request interface {
	// Key is the normalized cache key of the request.
	Key() string
	isRequest()
}

// ByDomain looks a logo up for a bare web domain.
type ByDomain struct {
	Domain string
}

// ByEntity looks a logo up for a named entity with optional hints.
type ByEntity struct {
	Name          string
	Website       string
	EmailDomains  []string
	CachedLogoURL string
}

func (ByDomain) isRequest() {}
func (ByEntity) isRequest() {}

// Key implements Request.
func (r ByDomain) Key() string {
	return "domain:" + NormalizeDomain(r.Domain)
}

// Key implements Request.
func (r ByEntity) Key() string {
	if d := r.Domain(); d != "" {
		return "domain:" + d
	}
	return "name:" + strings.Join(strings.Fields(strings.ToLower(r.Name)), " ")
}

// Domain returns the best domain hint: the website host, then the first email domain.
func (r ByEntity) Domain() string {
	if d := NormalizeDomain(r.Website); d != "" {
		return d
	}
	for _, d := range r.EmailDomains {
		if d = NormalizeDomain(d); d != "" {
			return d
		}
	}
	return ""
}

// Source names the origin of a resolved logo.
type Source string

// Logo sources in chain order.
const (
	SourceCached      Source = "cached"
	SourceLogoDev     Source = "logo.dev"
	SourceFavicon     Source = "favicon"
	SourcePlaceholder Source = "placeholder"
)

// Result is a resolved logo.
type Result struct {
	URL    string `json:"url,omitempty"`
	Source Source `json:"source"`
	// Initials and Color are set for placeholders.
	Initials string `json:"initials,omitempty"`
	Color    string `json:"color,omitempty"`
}

// NormalizeDomain reduces a URL, host or e-mail domain to a lower-case host
// without scheme, port, path or leading "www.". Invalid input yields "".
func NormalizeDomain(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return ""
	}
	if i := strings.LastIndex(s, "@"); i >= 0 {
		s = s[i+1:]
	}
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(u.Hostname(), "www.")
	if !strings.Contains(host, ".") {
		return ""
	}
	return host
}
