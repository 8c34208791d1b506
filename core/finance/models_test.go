package finance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSummarizeDues(t *testing.T) {
	records := []DuesRecord{
		{AmountCents: 5000, PaidCents: 5000, Status: DuesPaid},
		{AmountCents: 5000, PaidCents: 2000, Status: DuesPartial},
		{AmountCents: 5000, PaidCents: 1000, Status: DuesWaived},
		{AmountCents: 5000, Status: DuesOverdue},
	}
	got := SummarizeDues("Fall 2026", records)
	assert.Equal(t, DuesSummary{
		Semester:         "Fall 2026",
		Records:          4,
		ExpectedCents:    15000,
		CollectedCents:   8000,
		OutstandingCents: 8000,
		WaivedCents:      4000,
		ByStatus:         map[string]int{DuesPaid: 1, DuesPartial: 1, DuesWaived: 1, DuesOverdue: 1},
	}, got)
}

func TestWithRunningBalance(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2026, time.September, d, 0, 0, 0, 0, time.UTC) }
	entries := []LedgerEntry{
		{ID: "c", EntryDate: day(3), Kind: KindDebit, AmountCents: 700},
		{ID: "b", EntryDate: day(1), Kind: KindCredit, AmountCents: 500, CreatedAt: day(2)},
		{ID: "a", EntryDate: day(1), Kind: KindCredit, AmountCents: 1000, CreatedAt: day(1)},
	}

	got := WithRunningBalance(entries)
	ids := make([]string, len(got))
	balances := make([]int64, len(got))
	for i, e := range got {
		ids[i], balances[i] = e.ID, e.RunningBalanceCents
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
	assert.Equal(t, []int64{1000, 1500, 800}, balances)
}

func TestBudget_Report(t *testing.T) {
	tests := []struct {
		name          string
		budget        Budget
		wantRemaining int64
		wantPct       float64
		wantOver      bool
	}{
		{name: "within budget", budget: Budget{AllocatedCents: 30000, SpentCents: 10000}, wantRemaining: 20000, wantPct: 33.3},
		{name: "over budget", budget: Budget{AllocatedCents: 10000, SpentCents: 12000}, wantRemaining: -2000, wantPct: 120, wantOver: true},
		{name: "nothing allocated", budget: Budget{SpentCents: 100}, wantRemaining: -100, wantPct: 100, wantOver: true},
		{name: "untouched", budget: Budget{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.budget.Report(nil)
			assert.Equal(t, tt.wantRemaining, r.RemainingCents)
			assert.Equal(t, tt.wantPct, r.PercentUsed)
			assert.Equal(t, tt.wantOver, r.OverBudget)
			assert.NotNil(t, r.Expenses)
		})
	}
}
