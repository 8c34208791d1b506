package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/gleeworld/gleeworld/core/finance"
)

type financeRepository struct {
	db *financeTable
}

var _ finance.Repository = (*financeRepository)(nil) // interface compliance check

func NewFinanceRepository(db *DB) *financeRepository {
	return &financeRepository{db: db.finance}
}

func (repo *financeRepository) CreateDues(_ context.Context, ds ...finance.DuesRecord) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for i := range ds {
		d := ds[i]
		repo.db.dues[d.ID] = &d
	}
	return nil
}

func (repo *financeRepository) GetDuesByID(_ context.Context, id string) (finance.DuesRecord, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if d, ok := repo.db.dues[id]; ok {
		return *d, nil
	}
	return finance.DuesRecord{}, finance.ErrDuesNotFound
}

// QueryDues returns the matching records by due date, then member.
func (repo *financeRepository) QueryDues(_ context.Context, filter *finance.DuesFilter) ([]finance.DuesRecord, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ds := make([]finance.DuesRecord, 0)
	for _, d := range repo.db.dues {
		if filter.Match(*d) {
			ds = append(ds, *d)
		}
	}
	sort.Slice(ds, func(i, j int) bool {
		if !ds[i].DueDate.Equal(ds[j].DueDate) {
			return ds[i].DueDate.Before(ds[j].DueDate)
		}
		return ds[i].MemberID < ds[j].MemberID
	})
	return ds, nil
}

func (repo *financeRepository) UpdateDues(_ context.Context, d finance.DuesRecord) (finance.DuesRecord, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.dues[d.ID]; !ok {
		return finance.DuesRecord{}, finance.ErrDuesNotFound
	}
	repo.db.dues[d.ID] = &d
	return d, nil
}

func (repo *financeRepository) CreateLedgerEntry(_ context.Context, e finance.LedgerEntry) (finance.LedgerEntry, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.ledger = append(repo.db.ledger, e)
	return e, nil
}

func (repo *financeRepository) QueryLedgerEntries(_ context.Context, to time.Time) ([]finance.LedgerEntry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	entries := make([]finance.LedgerEntry, 0, len(repo.db.ledger))
	for _, e := range repo.db.ledger {
		if to.IsZero() || !e.EntryDate.After(to) {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func (repo *financeRepository) CreateBudget(_ context.Context, b finance.Budget) (finance.Budget, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.budgets[b.ID] = &b
	return b, nil
}

func (repo *financeRepository) GetBudgetByID(_ context.Context, id string) (finance.Budget, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if b, ok := repo.db.budgets[id]; ok {
		return *b, nil
	}
	return finance.Budget{}, finance.ErrBudgetNotFound
}

func (repo *financeRepository) QueryBudgets(_ context.Context, academicYear string) ([]finance.Budget, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	bs := make([]finance.Budget, 0)
	for _, b := range repo.db.budgets {
		if academicYear == "" || b.AcademicYear == academicYear {
			bs = append(bs, *b)
		}
	}
	sort.Slice(bs, func(i, j int) bool { return bs[i].Title < bs[j].Title })
	return bs, nil
}

func (repo *financeRepository) UpdateBudget(_ context.Context, b finance.Budget) (finance.Budget, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.budgets[b.ID]; !ok {
		return finance.Budget{}, finance.ErrBudgetNotFound
	}
	repo.db.budgets[b.ID] = &b
	return b, nil
}

func (repo *financeRepository) CreateExpense(_ context.Context, e finance.Expense) (finance.Expense, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.expenses = append(repo.db.expenses, e)
	return e, nil
}

func (repo *financeRepository) QueryExpenses(_ context.Context, budgetID string) ([]finance.Expense, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	es := make([]finance.Expense, 0)
	for _, e := range repo.db.expenses {
		if e.BudgetID == budgetID {
			es = append(es, e)
		}
	}
	sort.SliceStable(es, func(i, j int) bool { return es[i].SpentOn.Before(es[j].SpentOn) })
	return es, nil
}
