package service_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
)

// TestConcurrentBalanceDeduction simulates 50 goroutines simultaneously
// escrowing a fixed stake from a shared balance — protected by a mutex.
// This test verifies our concurrency guard pattern compiles and passes -race.
//
// In the real TradeService, the DB row-level FOR UPDATE lock provides this
// guarantee.  Here we replicate the same guard with sync primitives so
// the race detector can confirm the pattern is sound.
func TestConcurrentBalanceDeduction(t *testing.T) {
	const workers = 50
	const stakeEach = 10

	balance := decimal.NewFromInt(int64(workers * stakeEach)) // exact total
	var mu sync.Mutex
	var rejected int64 // trades rejected for insufficient balance (zero expected)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			stake := decimal.NewFromInt(stakeEach)

			mu.Lock()
			defer mu.Unlock()

			if balance.LessThan(stake) {
				atomic.AddInt64(&rejected, 1)
				return
			}
			balance = balance.Sub(stake)
		}()
	}
	wg.Wait()

	if rejected > 0 {
		t.Errorf("expected 0 rejected trades, got %d", rejected)
	}
	// Balance should be exactly 0 after exactly 50 × 10 deductions.
	if !balance.IsZero() {
		t.Errorf("final balance should be 0, got %s", balance)
	}
}

// TestConcurrentResolutionGuard verifies the compare-and-swap resolution
// semantics under concurrent access: of N goroutines racing to resolve the
// same event, exactly one flips the status and every other attempt is
// rejected.  In the real EventRepository this guard is the
// `WHERE status IN ('upcoming','live')` clause of the Resolve update.
func TestConcurrentResolutionGuard(t *testing.T) {
	const workers = 20
	type eventState struct {
		mu       sync.Mutex
		resolved bool
	}

	var (
		e      eventState
		wins   int64
		losses int64
		wg     sync.WaitGroup
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			e.mu.Lock()
			defer e.mu.Unlock()

			if e.resolved {
				// Duplicate resolution: must be rejected, never re-settled.
				atomic.AddInt64(&losses, 1)
				return
			}
			e.resolved = true
			atomic.AddInt64(&wins, 1)
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("exactly 1 goroutine should have resolved the event, got %d", wins)
	}
	if losses != workers-1 {
		t.Errorf("expected %d rejections, got %d", workers-1, losses)
	}
}

// TestConcurrentSettlementIdempotency mirrors the paid_out guard: with N
// workers sweeping the same set of positions, each position is paid exactly
// once no matter how many sweeps run.
func TestConcurrentSettlementIdempotency(t *testing.T) {
	const positions = 100
	const sweepers = 8

	paidOut := make([]bool, positions)
	var mu sync.Mutex
	var totalPaid int64

	var wg sync.WaitGroup
	for s := 0; s < sweepers; s++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < positions; i++ {
				mu.Lock()
				if !paidOut[i] {
					paidOut[i] = true
					atomic.AddInt64(&totalPaid, 1)
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if totalPaid != positions {
		t.Errorf("paid %d positions across %d sweeps, want exactly %d",
			totalPaid, sweepers, positions)
	}
}
