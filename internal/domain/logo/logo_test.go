package logo

import "testing"

func TestNormalizeDomain(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://www.Ivy.edu/about", "ivy.edu"},
		{"ivy.edu", "ivy.edu"},
		{"student@mail.ivy.edu", "mail.ivy.edu"},
		{"http://ivy.edu:8080", "ivy.edu"},
		{"localhost", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeDomain(tt.in); got != tt.want {
			t.Errorf("NormalizeDomain(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestByEntity_Key(t *testing.T) {
	tests := []struct {
		name string
		req  ByEntity
		want string
	}{
		{"website wins", ByEntity{Name: "Ivy", Website: "https://ivy.edu", EmailDomains: []string{"x.edu"}}, "domain:ivy.edu"},
		{"email fallback", ByEntity{Name: "Ivy", EmailDomains: []string{"", "ivy.edu"}}, "domain:ivy.edu"},
		{"name only", ByEntity{Name: "  Ivy   State "}, "name:ivy state"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.req.Key(); got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRequestKeysAgree(t *testing.T) {
	var a, b Request = ByDomain{Domain: "WWW.ivy.edu"}, ByEntity{Name: "Ivy", Website: "ivy.edu"}
	if a.Key() != b.Key() {
		t.Errorf("keys differ: %q vs %q", a.Key(), b.Key())
	}
}
