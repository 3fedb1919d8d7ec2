package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newLiveEvent() *Event {
	return &Event{
		Status:          StatusLive,
		CurrentYesPrice: ColdStartPrice,
		TotalYesVolume:  decimal.Zero,
		TotalNoVolume:   decimal.Zero,
	}
}

// ── QuoteFor ─────────────────────────────────────────────────────────────────

func TestQuoteFor_ColdStart(t *testing.T) {
	e := newLiveEvent()

	yes, err := e.QuoteFor(SideYes)
	if err != nil {
		t.Fatalf("QuoteFor(yes): %v", err)
	}
	if !yes.Equal(dec("0.5")) {
		t.Errorf("cold-start yes quote = %s, want 0.5", yes)
	}

	no, err := e.QuoteFor(SideNo)
	if err != nil {
		t.Fatalf("QuoteFor(no): %v", err)
	}
	if !no.Equal(dec("0.5")) {
		t.Errorf("cold-start no quote = %s, want 0.5", no)
	}
}

func TestQuoteFor_Complement(t *testing.T) {
	e := newLiveEvent()
	e.CurrentYesPrice = dec("0.7")

	yes, _ := e.QuoteFor(SideYes)
	no, _ := e.QuoteFor(SideNo)

	if !yes.Equal(dec("0.7")) {
		t.Errorf("yes quote = %s, want 0.7", yes)
	}
	if !no.Equal(dec("0.3")) {
		t.Errorf("no quote = %s, want 0.3", no)
	}
	if !yes.Add(no).Equal(decimal.NewFromInt(1)) {
		t.Errorf("yes + no = %s, want 1", yes.Add(no))
	}
}

func TestQuoteFor_DegeneratePriceRejected(t *testing.T) {
	// A stored price of exactly 1 should never exist (the clamp prevents it),
	// but if it does, both sides must refuse to quote.
	e := newLiveEvent()
	e.CurrentYesPrice = decimal.NewFromInt(1)

	if _, err := e.QuoteFor(SideYes); err != ErrInvalidMarketState {
		t.Errorf("QuoteFor(yes) at price 1 = %v, want ErrInvalidMarketState", err)
	}
	if _, err := e.QuoteFor(SideNo); err != ErrInvalidMarketState {
		t.Errorf("QuoteFor(no) at price 1 = %v, want ErrInvalidMarketState", err)
	}

	e.CurrentYesPrice = decimal.Zero
	if _, err := e.QuoteFor(SideYes); err != ErrInvalidMarketState {
		t.Errorf("QuoteFor(yes) at price 0 = %v, want ErrInvalidMarketState", err)
	}
}

// ── ApplyTrade ───────────────────────────────────────────────────────────────

func TestApplyTrade_VolumeWeightedReprice(t *testing.T) {
	e := newLiveEvent()
	e.TotalYesVolume = dec("60")
	e.TotalNoVolume = dec("20")

	e.ApplyTrade(SideNo, dec("20"))

	if !e.TotalNoVolume.Equal(dec("40")) {
		t.Errorf("no volume = %s, want 40", e.TotalNoVolume)
	}
	// 60 / (60 + 40) = 0.6
	if !e.CurrentYesPrice.Equal(dec("0.6")) {
		t.Errorf("yes price = %s, want 0.6", e.CurrentYesPrice)
	}
}

func TestApplyTrade_ClampUpper(t *testing.T) {
	e := newLiveEvent()

	// All volume on one side: raw ratio is 1.0, stored price must clamp to 0.99.
	e.ApplyTrade(SideYes, dec("100"))

	if !e.CurrentYesPrice.Equal(PriceCeiling) {
		t.Errorf("yes price after one-sided volume = %s, want %s", e.CurrentYesPrice, PriceCeiling)
	}
}

func TestApplyTrade_ClampLower(t *testing.T) {
	e := newLiveEvent()

	e.ApplyTrade(SideNo, dec("100"))

	if !e.CurrentYesPrice.Equal(PriceFloor) {
		t.Errorf("yes price after one-sided no volume = %s, want %s", e.CurrentYesPrice, PriceFloor)
	}
}

func TestApplyTrade_PriceAlwaysInBounds(t *testing.T) {
	e := newLiveEvent()
	amounts := []string{"1", "500", "0.01", "9999", "42.42", "1000000"}
	sides := []Side{SideYes, SideNo, SideYes, SideYes, SideNo, SideYes}

	for i, a := range amounts {
		e.ApplyTrade(sides[i], dec(a))
		if e.CurrentYesPrice.LessThan(PriceFloor) || e.CurrentYesPrice.GreaterThan(PriceCeiling) {
			t.Fatalf("after trade %d price %s escaped [%s, %s]",
				i, e.CurrentYesPrice, PriceFloor, PriceCeiling)
		}
	}
}

// TestApplyTrade_Scenario walks the canonical price path: a market at 0.5
// takes 100 on yes (clamps to 0.99), then 50 on no lands the price at
// 100/150 = 0.6667.
func TestApplyTrade_Scenario(t *testing.T) {
	e := newLiveEvent()

	yesQuote, err := e.QuoteFor(SideYes)
	if err != nil {
		t.Fatal(err)
	}
	if !yesQuote.Equal(dec("0.5")) {
		t.Fatalf("initial yes quote = %s, want 0.5", yesQuote)
	}
	e.ApplyTrade(SideYes, dec("100"))

	if !e.CurrentYesPrice.Equal(dec("0.99")) {
		t.Fatalf("yes price after 100 yes = %s, want 0.99", e.CurrentYesPrice)
	}

	noQuote, err := e.QuoteFor(SideNo)
	if err != nil {
		t.Fatal(err)
	}
	if !noQuote.Equal(dec("0.01")) {
		t.Fatalf("no quote = %s, want 0.01", noQuote)
	}
	e.ApplyTrade(SideNo, dec("50"))

	// 100 / 150, not clamped.
	want := dec("100").Div(dec("150"))
	if !e.CurrentYesPrice.Equal(want) {
		t.Errorf("yes price after 50 no = %s, want %s", e.CurrentYesPrice, want)
	}
	if !e.TotalVolume().Equal(dec("150")) {
		t.Errorf("total volume = %s, want 150", e.TotalVolume())
	}
}

// ── Lifecycle transitions ────────────────────────────────────────────────────

func TestCanTransitionTo(t *testing.T) {
	cases := []struct {
		from EventStatus
		to   EventStatus
		want bool
	}{
		{StatusUpcoming, StatusLive, true},
		{StatusUpcoming, StatusResolved, true},
		{StatusLive, StatusResolved, true},
		{StatusLive, StatusUpcoming, false},
		{StatusResolved, StatusLive, false},
		{StatusResolved, StatusUpcoming, false},
		{StatusResolved, StatusResolved, false},
		{StatusUpcoming, StatusUpcoming, false},
	}

	for _, c := range cases {
		e := &Event{Status: c.from}
		if got := e.CanTransitionTo(c.to); got != c.want {
			t.Errorf("CanTransitionTo(%s → %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

// ── Snapshot ─────────────────────────────────────────────────────────────────

func TestSnapshot_NoPriceIsComplement(t *testing.T) {
	e := newLiveEvent()
	e.CurrentYesPrice = dec("0.65")
	e.TotalYesVolume = dec("130")
	e.TotalNoVolume = dec("70")

	snap := e.Snapshot()
	if !snap.CurrentNoPrice.Equal(dec("0.35")) {
		t.Errorf("snapshot no price = %s, want 0.35", snap.CurrentNoPrice)
	}
	if !snap.TotalYesVolume.Equal(e.TotalYesVolume) || !snap.TotalNoVolume.Equal(e.TotalNoVolume) {
		t.Error("snapshot volumes do not match event state")
	}
}
