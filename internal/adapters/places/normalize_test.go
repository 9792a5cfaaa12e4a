package places

import (
	"testing"

	"market_intel/internal/domain"
)

func TestPriceFromLevel(t *testing.T) {
	cases := map[int]domain.PriceRange{
		-1: domain.Price1,
		0:  domain.Price1,
		1:  domain.Price1,
		2:  domain.Price2,
		3:  domain.Price3,
		4:  domain.Price4,
		9:  domain.Price4,
	}
	for in, want := range cases {
		if got := PriceFromLevel(in); got != want {
			t.Errorf("PriceFromLevel(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestParsePrice(t *testing.T) {
	cases := map[string]domain.PriceRange{
		"":      domain.Price1,
		"$":     domain.Price1,
		"$$$":   domain.Price3,
		" $$ ":  domain.Price2,
		"€€€€":  domain.Price4,
		"$$$$$": domain.Price1,
		"$€":    domain.Price1,
		"cheap": domain.Price1,
	}
	for in, want := range cases {
		if got := ParsePrice(in); got != want {
			t.Errorf("ParsePrice(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClock(t *testing.T) {
	if got := clock("0930"); got != "09:30" {
		t.Fatalf("got %q", got)
	}
	if got := clock("+0200"); got != "02:00" {
		t.Fatalf("got %q", got)
	}
	if got := clock("late"); got != "late" {
		t.Fatalf("got %q", got)
	}
}
