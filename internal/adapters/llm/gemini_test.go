package llm

import (
	"testing"

	"github.com/tkc-cmd/rxvoice/internal/domain"
)

func TestIntentFromLabel(t *testing.T) {
	cases := []struct {
		raw  string
		want domain.Event
	}{
		{"refill_request", domain.EventRefillRequest},
		{"select_prescription", domain.EventSelectPrescription},
		{" Goodbye \n", domain.EventGoodbye},
		{"unclear", domain.EventUnclear},

		// internal dialogue outcomes are not caller intents
		{"patient_verified", domain.EventUnclear},
		{"interaction_clear", domain.EventUnclear},
		{"refill_placed", domain.EventUnclear},
		{"new_request", domain.EventUnclear},
		{"retry", domain.EventUnclear},

		{"something else entirely", domain.EventUnclear},
		{"", domain.EventUnclear},
	}

	for _, c := range cases {
		if got := intentFromLabel(c.raw).Intent; got != c.want {
			t.Errorf("intentFromLabel(%q) = %s, want %s", c.raw, got, c.want)
		}
	}
}
