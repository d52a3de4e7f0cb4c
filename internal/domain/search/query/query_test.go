package query

import (
	"strings"
	"testing"

	"github.com/kailas-cloud/unisearch/internal/domain/entity"
)

func TestNew_Defaults(t *testing.T) {
	q, err := New(Params{Text: "  ivy  "}, Limits{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Text() != "ivy" {
		t.Errorf("Text() = %q", q.Text())
	}
	if q.Page() != 1 {
		t.Errorf("Page() = %d", q.Page())
	}
	if q.Limit() != DefaultLimit {
		t.Errorf("Limit() = %d, want %d", q.Limit(), DefaultLimit)
	}
	if _, ok := q.Type(); ok {
		t.Error("Type() should be unset")
	}
	if q.Trivial() {
		t.Error("Trivial() = true for a 3-char query")
	}
}

func TestNew_Clamps(t *testing.T) {
	tests := []struct {
		name      string
		page      int
		limit     int
		wantPage  int
		wantLimit int
	}{
		{"negative page", -3, 10, 1, 10},
		{"zero limit", 2, 0, 2, 20},
		{"limit above max", 1, 500, 1, 50},
		{"negative limit", 1, -1, 1, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := New(Params{Text: "ab", Page: tt.page, Limit: tt.limit}, Limits{})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if q.Page() != tt.wantPage || q.Limit() != tt.wantLimit {
				t.Errorf("page, limit = %d, %d; want %d, %d", q.Page(), q.Limit(), tt.wantPage, tt.wantLimit)
			}
		})
	}
}

func TestNew_CustomLimits(t *testing.T) {
	q, err := New(Params{Text: "abc", Limit: 40}, Limits{MinLength: 4, DefaultLimit: 10, MaxLimit: 30})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Limit() != 30 {
		t.Errorf("Limit() = %d, want 30", q.Limit())
	}
	if !q.Trivial() {
		t.Error("3 runes should be trivial with min length 4")
	}
}

func TestTrivial(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"", true},
		{"a", true},
		{" a ", true},
		{"ab", false},
		{"é", true},
		{"éé", false},
	}
	for _, tt := range tests {
		q, err := New(Params{Text: tt.text}, Limits{})
		if err != nil {
			t.Fatalf("New(%q): %v", tt.text, err)
		}
		if got := q.Trivial(); got != tt.want {
			t.Errorf("Trivial(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestNew_Type(t *testing.T) {
	q, err := New(Params{Text: "ivy", Type: "University"}, Limits{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if typ, ok := q.Type(); !ok || typ != entity.Universities {
		t.Errorf("Type() = %q, %v", typ, ok)
	}

	if _, err := New(Params{Text: "ivy", Type: "campus"}, Limits{}); err == nil {
		t.Fatal("expected error for unknown type")
	}
}

func TestNew_TooLong(t *testing.T) {
	_, err := New(Params{Text: strings.Repeat("a", MaxQueryLength+1)}, Limits{})
	if err == nil {
		t.Fatal("expected error for long query")
	}
}

func TestWithLimit(t *testing.T) {
	q, _ := New(Params{Text: "ivy", Page: 3, Cursor: "123", Filters: map[string]string{"state": "NY"}}, Limits{})
	per := q.WithLimit(5)
	if per.Limit() != 5 || per.Page() != 1 || per.Cursor() != "" {
		t.Errorf("WithLimit: limit=%d page=%d cursor=%q", per.Limit(), per.Page(), per.Cursor())
	}
	if q.Page() != 3 {
		t.Error("WithLimit modified the receiver")
	}
	if per.Filters()["state"] != "NY" {
		t.Error("filters lost")
	}
}
