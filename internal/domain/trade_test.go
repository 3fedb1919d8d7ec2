package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ── PayoutAmount ─────────────────────────────────────────────────────────────

func TestPayoutAmount_StakeOverPrice(t *testing.T) {
	cases := []struct {
		amount string
		price  string
		want   string
	}{
		{"100", "0.5", "200"},
		{"50", "0.01", "5000"},
		{"10", "0.99", "10.1010"},  // 10 / 0.99 = 10.1010…, floored to 4 dp
		{"10", "0.3", "33.3333"},   // non-terminating quotient, floored to 4 dp
		{"33.33", "0.3333", "100"}, // exact: 0.3333 × 100 = 33.33
		{"1", "0.25", "4"},
	}

	for _, c := range cases {
		tr := &Trade{Amount: dec(c.amount), Price: dec(c.price)}
		got := tr.PayoutAmount()
		if !got.Equal(dec(c.want)) {
			t.Errorf("PayoutAmount(%s @ %s) = %s, want %s", c.amount, c.price, got, c.want)
		}
	}
}

func TestPayoutAmount_ZeroPriceGuard(t *testing.T) {
	tr := &Trade{Amount: dec("100"), Price: decimal.Zero}
	if !tr.PayoutAmount().IsZero() {
		t.Errorf("PayoutAmount at zero price = %s, want 0", tr.PayoutAmount())
	}
}

// TestPayoutAmount_NoSideUsesSnapshotPrice pins down that a NO position pays
// stake ÷ its own snapshot price, not stake ÷ (1 − price): the price column
// already stores the NO execution price.
func TestPayoutAmount_NoSideUsesSnapshotPrice(t *testing.T) {
	tr := &Trade{Selection: SideNo, Amount: dec("50"), Price: dec("0.01")}
	if !tr.PayoutAmount().Equal(dec("5000")) {
		t.Errorf("NO payout = %s, want 5000", tr.PayoutAmount())
	}
}

// ── StakeRefunds ─────────────────────────────────────────────────────────────

// TestStakeRefunds pins down the delete-before-resolution refund: every
// pending stake is returned to its owner in full, stakes of the same user
// are summed, and already-settled positions are excluded.  This is what
// keeps balance = initial + credits − stakes when an event is removed.
func TestStakeRefunds(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()

	trades := []*Trade{
		{UserID: alice, Amount: dec("100"), PaidOut: false},
		{UserID: alice, Amount: dec("25.5"), PaidOut: false},
		{UserID: bob, Amount: dec("40"), PaidOut: false},
		{UserID: bob, Amount: dec("999"), PaidOut: true}, // settled, money already moved
	}

	refunds := StakeRefunds(trades)

	if len(refunds) != 2 {
		t.Fatalf("refunds for %d users, want 2", len(refunds))
	}
	if !refunds[alice].Equal(dec("125.5")) {
		t.Errorf("alice refund = %s, want 125.5", refunds[alice])
	}
	if !refunds[bob].Equal(dec("40")) {
		t.Errorf("bob refund = %s, want 40", refunds[bob])
	}
}

func TestStakeRefunds_AllSettled(t *testing.T) {
	trades := []*Trade{
		{UserID: uuid.New(), Amount: dec("10"), PaidOut: true},
	}
	if refunds := StakeRefunds(trades); len(refunds) != 0 {
		t.Errorf("settled-only trades produced %d refunds, want 0", len(refunds))
	}
}

// ── IsWinner / IsSettled ─────────────────────────────────────────────────────

func TestIsWinner(t *testing.T) {
	yes := &Trade{Selection: SideYes}
	no := &Trade{Selection: SideNo}

	if !yes.IsWinner(SideYes) || yes.IsWinner(SideNo) {
		t.Error("yes position should win iff outcome is yes")
	}
	if !no.IsWinner(SideNo) || no.IsWinner(SideYes) {
		t.Error("no position should win iff outcome is no")
	}
}

func TestIsSettled(t *testing.T) {
	tr := &Trade{Status: TradeStatusPending, PaidOut: false}
	if tr.IsSettled() {
		t.Error("pending trade should not be settled")
	}
	tr.PaidOut = true
	if !tr.IsSettled() {
		t.Error("paid-out trade should be settled")
	}
}
