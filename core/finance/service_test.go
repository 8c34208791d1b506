package finance_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gleeworld/gleeworld/core"
	"github.com/gleeworld/gleeworld/core/finance"
	inmemdb "github.com/gleeworld/gleeworld/storage/database/inmem"
	"github.com/gleeworld/gleeworld/testutil"
)

func newService(t *testing.T) *finance.Service {
	conf := testutil.NewConfig()
	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())
	return finance.NewService(inmemdb.NewFinanceRepository(inmemdb.Open()), validate, conf, testutil.NewLogger(conf))
}

func TestService_MarkOverdue(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	due := time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC)

	ds, err := svc.CreateDues(ctx, finance.NewDues{MemberIDs: []string{"a", "b", "c"}, Semester: "Fall 2026", AmountCents: 5000, DueDate: due})
	require.NoError(t, err)
	require.Len(t, ds, 3)

	_, err = svc.RecordPayment(ctx, "tres", ds[0].ID, finance.Payment{AmountCents: 5000})
	require.NoError(t, err)
	_, err = svc.RecordPayment(ctx, "tres", ds[1].ID, finance.Payment{AmountCents: 1000})
	require.NoError(t, err)

	n, err := svc.MarkOverdue(ctx, due.Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = svc.MarkOverdue(ctx, due.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	overdue, err := svc.QueryDues(ctx, &finance.DuesFilter{Statuses: []string{finance.DuesOverdue}})
	require.NoError(t, err)
	assert.Len(t, overdue, 2)

	// a partial payment keeps the record overdue, settling it clears it
	d, err := svc.RecordPayment(ctx, "tres", ds[1].ID, finance.Payment{AmountCents: 1000})
	require.NoError(t, err)
	assert.Equal(t, finance.DuesOverdue, d.Status)
	d, err = svc.RecordPayment(ctx, "tres", ds[1].ID, finance.Payment{AmountCents: 3000})
	require.NoError(t, err)
	assert.Equal(t, finance.DuesPaid, d.Status)

	n, err = svc.MarkOverdue(ctx, due.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestService_Ledger(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	day := func(d int) time.Time { return time.Date(2026, time.September, d, 0, 0, 0, 0, time.UTC) }

	for _, ne := range []finance.NewLedgerEntry{
		{EntryDate: day(1), Description: "Alumnae gift", Category: "Donation", Kind: "CREDIT", AmountCents: 20000},
		{EntryDate: day(5), Description: "Sheet music", Category: "music", Kind: finance.KindDebit, AmountCents: 4500},
		{EntryDate: day(9), Description: "Bake sale", Category: "fundraising", Kind: finance.KindCredit, AmountCents: 3000},
	} {
		_, err := svc.AddEntry(ctx, "tres", ne)
		require.NoError(t, err)
	}

	_, err := svc.AddEntry(ctx, "tres", finance.NewLedgerEntry{EntryDate: day(2), Description: "x", Category: "misc", Kind: "barter", AmountCents: 1})
	require.Error(t, err)

	_, err = svc.AddEntry(ctx, "tres", finance.NewLedgerEntry{EntryDate: day(2), Description: "x", Category: "scores/parts", Kind: finance.KindDebit, AmountCents: 1})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "category", verrs[0].Field())
	assert.Equal(t, "alphanum_", verrs[0].Tag())

	all, err := svc.Ledger(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "donation", all[0].Category)
	assert.Equal(t, finance.KindCredit, all[0].Kind)
	assert.EqualValues(t, 18500, all[2].RunningBalanceCents)

	window, err := svc.Ledger(ctx, day(3), day(6))
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, "Sheet music", window[0].Description)
	assert.EqualValues(t, 15500, window[0].RunningBalanceCents)
}
