package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/gleeworld/gleeworld/core/finance"
)

type (
	duesRow struct {
		ID          string      `db:"id"`
		MemberID    string      `db:"member_id"`
		Semester    string      `db:"semester"`
		AmountCents int64       `db:"amount_cents"`
		PaidCents   int64       `db:"paid_cents"`
		DueDate     time.Time   `db:"due_date"`
		Status      string      `db:"status"`
		Notes       null.String `db:"notes"`
		CreatedAt   time.Time   `db:"created_at"`
		UpdatedAt   time.Time   `db:"updated_at"`
	}

	ledgerRow struct {
		ID          string      `db:"id"`
		EntryDate   time.Time   `db:"entry_date"`
		Description string      `db:"description"`
		Category    string      `db:"category"`
		Kind        string      `db:"kind"`
		AmountCents int64       `db:"amount_cents"`
		Reference   null.String `db:"reference"`
		CreatedBy   null.String `db:"created_by"`
		CreatedAt   time.Time   `db:"created_at"`
	}

	budgetRow struct {
		ID             string      `db:"id"`
		Title          string      `db:"title"`
		Category       string      `db:"category"`
		AcademicYear   string      `db:"academic_year"`
		AllocatedCents int64       `db:"allocated_cents"`
		SpentCents     int64       `db:"spent_cents"`
		Status         string      `db:"status"`
		CreatedBy      null.String `db:"created_by"`
		CreatedAt      time.Time   `db:"created_at"`
		UpdatedAt      time.Time   `db:"updated_at"`
	}

	expenseRow struct {
		ID          string      `db:"id"`
		BudgetID    string      `db:"budget_id"`
		Description string      `db:"description"`
		AmountCents int64       `db:"amount_cents"`
		SpentOn     time.Time   `db:"spent_on"`
		CreatedBy   null.String `db:"created_by"`
		CreatedAt   time.Time   `db:"created_at"`
	}
)

func toDuesRow(d finance.DuesRecord) duesRow {
	return duesRow{
		ID:          d.ID,
		MemberID:    d.MemberID,
		Semester:    d.Semester,
		AmountCents: d.AmountCents,
		PaidCents:   d.PaidCents,
		DueDate:     d.DueDate.UTC(),
		Status:      d.Status,
		Notes:       nullStr(d.Notes),
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

func (r duesRow) toDues() finance.DuesRecord {
	return finance.DuesRecord{
		ID:          r.ID,
		MemberID:    r.MemberID,
		Semester:    r.Semester,
		AmountCents: r.AmountCents,
		PaidCents:   r.PaidCents,
		DueDate:     r.DueDate,
		Status:      r.Status,
		Notes:       r.Notes.String,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func toBudgetRow(b finance.Budget) budgetRow {
	return budgetRow{
		ID:             b.ID,
		Title:          b.Title,
		Category:       b.Category,
		AcademicYear:   b.AcademicYear,
		AllocatedCents: b.AllocatedCents,
		SpentCents:     b.SpentCents,
		Status:         b.Status,
		CreatedBy:      nullStr(b.CreatedBy),
		CreatedAt:      b.CreatedAt.UTC(),
		UpdatedAt:      b.UpdatedAt.UTC(),
	}
}

func (r budgetRow) toBudget() finance.Budget {
	return finance.Budget{
		ID:             r.ID,
		Title:          r.Title,
		Category:       r.Category,
		AcademicYear:   r.AcademicYear,
		AllocatedCents: r.AllocatedCents,
		SpentCents:     r.SpentCents,
		Status:         r.Status,
		CreatedBy:      r.CreatedBy.String,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

type financeRepository struct {
	db *sqlx.DB
}

var _ finance.Repository = (*financeRepository)(nil) // interface compliance check

func NewFinanceRepository(db *sqlx.DB) *financeRepository {
	return &financeRepository{db: db}
}

const insertDues = `INSERT INTO dues_records
	(id, member_id, semester, amount_cents, paid_cents, due_date, status, notes, created_at, updated_at)
	VALUES (:id, :member_id, :semester, :amount_cents, :paid_cents, :due_date, :status, :notes, :created_at, :updated_at)`

// CreateDues inserts all records in one transaction.
func (repo *financeRepository) CreateDues(ctx context.Context, ds ...finance.DuesRecord) error {
	if len(ds) == 0 {
		return nil
	}
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	for _, d := range ds {
		if _, err = tx.NamedExecContext(ctx, insertDues, toDuesRow(d)); err != nil {
			return errors.Wrap(err, "inserting dues record")
		}
	}
	return errors.Wrap(tx.Commit(), "committing dues records")
}

func (repo *financeRepository) GetDuesByID(ctx context.Context, id string) (finance.DuesRecord, error) {
	var row duesRow
	if err := repo.db.GetContext(ctx, &row, "SELECT * FROM dues_records WHERE id::text = $1", id); err != nil {
		return finance.DuesRecord{}, trapNoRowsErr(err, finance.ErrDuesNotFound, "finding dues record by ID")
	}
	return row.toDues(), nil
}

func (repo *financeRepository) QueryDues(ctx context.Context, filter *finance.DuesFilter) ([]finance.DuesRecord, error) {
	w := &where{}
	if filter != nil {
		if filter.MemberID != "" {
			w.add("member_id::text = ?", filter.MemberID)
		}
		if filter.Semester != "" {
			w.add("semester = ?", filter.Semester)
		}
		if len(filter.Statuses) > 0 {
			w.add("status = ANY(?)", pq.Array(filter.Statuses))
		}
	}
	var rows []duesRow
	if err := selectWhere(ctx, repo.db, &rows, "SELECT * FROM dues_records", w, " ORDER BY due_date, member_id"); err != nil {
		return nil, errors.Wrap(err, "querying dues records")
	}
	ds := make([]finance.DuesRecord, 0, len(rows))
	for _, r := range rows {
		ds = append(ds, r.toDues())
	}
	return ds, nil
}

func (repo *financeRepository) UpdateDues(ctx context.Context, d finance.DuesRecord) (finance.DuesRecord, error) {
	res, err := repo.db.NamedExecContext(ctx, `UPDATE dues_records SET amount_cents = :amount_cents,
		paid_cents = :paid_cents, due_date = :due_date, status = :status, notes = :notes, updated_at = :updated_at
		WHERE id = :id`, toDuesRow(d))
	if err != nil {
		return finance.DuesRecord{}, errors.Wrap(err, "updating dues record")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return finance.DuesRecord{}, finance.ErrDuesNotFound
	}
	return d, nil
}

func (repo *financeRepository) CreateLedgerEntry(ctx context.Context, e finance.LedgerEntry) (finance.LedgerEntry, error) {
	_, err := repo.db.NamedExecContext(ctx, `INSERT INTO ledger_entries
		(id, entry_date, description, category, kind, amount_cents, reference, created_by, created_at)
		VALUES (:id, :entry_date, :description, :category, :kind, :amount_cents, :reference, :created_by, :created_at)`,
		ledgerRow{
			ID:          e.ID,
			EntryDate:   e.EntryDate.UTC(),
			Description: e.Description,
			Category:    e.Category,
			Kind:        e.Kind,
			AmountCents: e.AmountCents,
			Reference:   nullStr(e.Reference),
			CreatedBy:   nullStr(e.CreatedBy),
			CreatedAt:   e.CreatedAt.UTC(),
		})
	if err != nil {
		return finance.LedgerEntry{}, errors.Wrap(err, "inserting ledger entry")
	}
	return e, nil
}

func (repo *financeRepository) QueryLedgerEntries(ctx context.Context, to time.Time) ([]finance.LedgerEntry, error) {
	w := &where{}
	if !to.IsZero() {
		w.add("entry_date <= ?", to.UTC())
	}
	var rows []ledgerRow
	if err := selectWhere(ctx, repo.db, &rows, "SELECT * FROM ledger_entries", w, " ORDER BY entry_date, created_at"); err != nil {
		return nil, errors.Wrap(err, "querying ledger entries")
	}
	entries := make([]finance.LedgerEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, finance.LedgerEntry{
			ID:          r.ID,
			EntryDate:   r.EntryDate,
			Description: r.Description,
			Category:    r.Category,
			Kind:        r.Kind,
			AmountCents: r.AmountCents,
			Reference:   r.Reference.String,
			CreatedBy:   r.CreatedBy.String,
			CreatedAt:   r.CreatedAt,
		})
	}
	return entries, nil
}

func (repo *financeRepository) CreateBudget(ctx context.Context, b finance.Budget) (finance.Budget, error) {
	_, err := repo.db.NamedExecContext(ctx, `INSERT INTO budgets
		(id, title, category, academic_year, allocated_cents, spent_cents, status, created_by, created_at, updated_at)
		VALUES (:id, :title, :category, :academic_year, :allocated_cents, :spent_cents, :status, :created_by, :created_at, :updated_at)`,
		toBudgetRow(b))
	if err != nil {
		return finance.Budget{}, errors.Wrap(err, "inserting budget")
	}
	return b, nil
}

func (repo *financeRepository) GetBudgetByID(ctx context.Context, id string) (finance.Budget, error) {
	var row budgetRow
	if err := repo.db.GetContext(ctx, &row, "SELECT * FROM budgets WHERE id::text = $1", id); err != nil {
		return finance.Budget{}, trapNoRowsErr(err, finance.ErrBudgetNotFound, "finding budget by ID")
	}
	return row.toBudget(), nil
}

func (repo *financeRepository) QueryBudgets(ctx context.Context, academicYear string) ([]finance.Budget, error) {
	w := &where{}
	if academicYear != "" {
		w.add("academic_year = ?", academicYear)
	}
	var rows []budgetRow
	if err := selectWhere(ctx, repo.db, &rows, "SELECT * FROM budgets", w, " ORDER BY title"); err != nil {
		return nil, errors.Wrap(err, "querying budgets")
	}
	bs := make([]finance.Budget, 0, len(rows))
	for _, r := range rows {
		bs = append(bs, r.toBudget())
	}
	return bs, nil
}

func (repo *financeRepository) UpdateBudget(ctx context.Context, b finance.Budget) (finance.Budget, error) {
	res, err := repo.db.NamedExecContext(ctx, `UPDATE budgets SET title = :title, category = :category,
		allocated_cents = :allocated_cents, spent_cents = :spent_cents, status = :status, updated_at = :updated_at
		WHERE id = :id`, toBudgetRow(b))
	if err != nil {
		return finance.Budget{}, errors.Wrap(err, "updating budget")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return finance.Budget{}, finance.ErrBudgetNotFound
	}
	return b, nil
}

func (repo *financeRepository) CreateExpense(ctx context.Context, e finance.Expense) (finance.Expense, error) {
	_, err := repo.db.NamedExecContext(ctx, `INSERT INTO expenses
		(id, budget_id, description, amount_cents, spent_on, created_by, created_at)
		VALUES (:id, :budget_id, :description, :amount_cents, :spent_on, :created_by, :created_at)`, expenseRow{
		ID:          e.ID,
		BudgetID:    e.BudgetID,
		Description: e.Description,
		AmountCents: e.AmountCents,
		SpentOn:     e.SpentOn.UTC(),
		CreatedBy:   nullStr(e.CreatedBy),
		CreatedAt:   e.CreatedAt.UTC(),
	})
	if err != nil {
		return finance.Expense{}, errors.Wrap(err, "inserting expense")
	}
	return e, nil
}

func (repo *financeRepository) QueryExpenses(ctx context.Context, budgetID string) ([]finance.Expense, error) {
	var rows []expenseRow
	err := repo.db.SelectContext(ctx, &rows, "SELECT * FROM expenses WHERE budget_id::text = $1 ORDER BY spent_on, created_at", budgetID)
	if err != nil {
		return nil, errors.Wrap(err, "querying expenses")
	}
	es := make([]finance.Expense, 0, len(rows))
	for _, r := range rows {
		es = append(es, finance.Expense{
			ID:          r.ID,
			BudgetID:    r.BudgetID,
			Description: r.Description,
			AmountCents: r.AmountCents,
			SpentOn:     r.SpentOn,
			CreatedBy:   r.CreatedBy.String,
			CreatedAt:   r.CreatedAt,
		})
	}
	return es, nil
}
