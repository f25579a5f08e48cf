package agent

import (
	"math"
	"sync"
	"time"

	"github.com/Shirly8/Sift/core"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func spend(date time.Time, amount float64, merchant, category string) core.Transaction {
	return core.Transaction{Date: date, Amount: -amount, Merchant: merchant, Category: category}
}

// unsigned copies the table with every amount as a positive magnitude,
// the way many bank exports arrive.
func unsigned(txns []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, len(txns))
	copy(out, txns)
	for i := range out {
		out[i].Amount = math.Abs(out[i].Amount)
	}
	return out
}

// yearFixture covers a full year with income, rent, two subscriptions,
// steady groceries, and dining that climbs month over month. Rich
// enough to clear every tool's data gate.
func yearFixture() []core.Transaction {
	var txns []core.Transaction
	for i := 0; i < 12; i++ {
		m := time.Month(1 + i)
		txns = append(txns,
			core.Transaction{Date: day(2024, m, 1), Amount: 3500, Merchant: "Acme Corp", Category: "Income"},
			spend(day(2024, m, 1), 1200, "Maple Apartments", "Rent & Housing"),
			spend(day(2024, m, 15), 15.99, "Netflix", "Subscriptions"),
			spend(day(2024, m, 15), 11.99, "Spotify", "Subscriptions"),
			spend(day(2024, m, 2), 80, "Target", "Shopping"),
			spend(day(2024, m, 4), 40, "DoorDash", "Delivery"),
			spend(day(2024, m, 8), 30+15*float64(i), "Thai Garden", "Dining"),
			spend(day(2024, m, 22), 30, "Canal Bistro", "Dining"),
		)
		for d := 3; d <= 27; d += 3 {
			txns = append(txns, spend(day(2024, m, d), 40, "Whole Foods", "Groceries"))
		}
	}
	return txns
}

// twoMonthFixture is deliberately thin: under 90 days and 100
// transactions, so most tools get gated off.
func twoMonthFixture() []core.Transaction {
	var txns []core.Transaction
	for i := 0; i < 2; i++ {
		m := time.Month(1 + i)
		txns = append(txns,
			core.Transaction{Date: day(2024, m, 1), Amount: 3000, Merchant: "Acme Corp", Category: "Income"},
			spend(day(2024, m, 1), 1200, "Maple Apartments", "Rent & Housing"),
			spend(day(2024, m, 10), 150, "Whole Foods", "Groceries"),
			spend(day(2024, m, 20), 60, "Thai Garden", "Dining"),
		)
	}
	return txns
}

// recordSink captures progress events for assertions.
type recordSink struct {
	mu     sync.Mutex
	events []core.ProgressEvent
}

func (r *recordSink) Publish(ev core.ProgressEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recordSink) stages() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]int{}
	for _, ev := range r.events {
		out[ev.Stage]++
	}
	return out
}
