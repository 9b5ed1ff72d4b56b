package dto

import (
	"testing"

	"github.com/opsguardian/backend/internal/domain"
)

func TestDecodeSuggestionsPayload(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want []string
		ok   bool
	}{
		{"bare array", `["a","b"]`, []string{"a", "b"}, true},
		{"object with suggestions", `{"suggestions":["a"]}`, []string{"a"}, true},
		{"object with single suggestion", `{"suggestion":"a"}`, []string{"a"}, true},
		{"empty array still decodes", `[]`, nil, true},
		{"object without either key", `{"note":"hi"}`, nil, false},
		{"suggestions holding non-strings", `{"suggestions":[1,2]}`, nil, false},
		{"bare number", `42`, nil, false},
		{"not json", `{`, nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := DecodeSuggestionsPayload([]byte(tc.raw))
			if ok != tc.ok {
				t.Fatalf("ok: expected %v, got %v", tc.ok, ok)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
			for i := range tc.want {
				if got[i] != tc.want[i] {
					t.Errorf("index %d: expected %q, got %q", i, tc.want[i], got[i])
				}
			}
		})
	}
}

func TestFromTicket_NeverNilSuggestions(t *testing.T) {
	resp := FromTicket(&domain.Ticket{ID: 1, Title: "bare"})
	if resp.Suggestions == nil {
		t.Error("suggestions must serialize as [] rather than null")
	}
}
