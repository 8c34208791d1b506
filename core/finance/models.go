// Package finance keeps the club's dues, treasurer ledger and budgets. Amounts are in cents.
package finance

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/gleeworld/gleeworld/core"
)

// Dues statuses
const (
	DuesUnpaid  = "unpaid"
	DuesPartial = "partial"
	DuesPaid    = "paid"
	DuesWaived  = "waived"
	DuesOverdue = "overdue"
)

// Ledger entry kinds
const (
	KindCredit = "credit"
	KindDebit  = "debit"
)

// Budget statuses
const (
	BudgetActive = "active"
	BudgetClosed = "closed"
)

const CategoryDues = "dues"

type DuesRecord struct {
	ID          string    `json:"id"`
	MemberID    string    `json:"member_id"`
	Semester    string    `json:"semester"`
	AmountCents int64     `json:"amount_cents"`
	PaidCents   int64     `json:"paid_cents"`
	DueDate     time.Time `json:"due_date"`
	Status      string    `json:"status"`
	Notes       string    `json:"notes"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (d DuesRecord) BalanceCents() int64 {
	return d.AmountCents - d.PaidCents
}

// settled reports whether no more money is expected on the record.
func (d DuesRecord) settled() bool {
	return d.Status == DuesPaid || d.Status == DuesWaived
}

type (
	NewDues struct {
		MemberIDs   []string  `json:"member_ids" validate:"required,min=1,dive,required"`
		Semester    string    `json:"semester" validate:"required,max=32"`
		AmountCents int64     `json:"amount_cents" validate:"required,gt=0"`
		DueDate     time.Time `json:"due_date" validate:"required"`
		Notes       string    `json:"notes"`
	}

	Payment struct {
		AmountCents int64  `json:"amount_cents"`
		Note        string `json:"note"`
	}

	DuesFilter struct {
		MemberID string   `query:"member_id"`
		Semester string   `query:"semester"`
		Statuses []string `query:"status"`
	}

	DuesSummary struct {
		Semester         string         `json:"semester"`
		Records          int            `json:"records"`
		ExpectedCents    int64          `json:"expected_cents"`
		CollectedCents   int64          `json:"collected_cents"`
		OutstandingCents int64          `json:"outstanding_cents"`
		WaivedCents      int64          `json:"waived_cents"`
		ByStatus         map[string]int `json:"by_status"`
	}
)

func (nd *NewDues) Validate(validate *validator.Validate) error {
	nd.Semester = core.CleanString(nd.Semester)
	nd.Notes = core.CleanString(nd.Notes)
	return validate.Struct(nd)
}

func (df *DuesFilter) Match(d DuesRecord) bool {
	if df == nil {
		return true
	}
	if df.MemberID != "" && d.MemberID != df.MemberID {
		return false
	}
	if df.Semester != "" && d.Semester != df.Semester {
		return false
	}
	if len(df.Statuses) > 0 && !core.StringInSlice(d.Status, df.Statuses) {
		return false
	}
	return true
}

// SummarizeDues totals the given records.
func SummarizeDues(semester string, records []DuesRecord) DuesSummary {
	s := DuesSummary{Semester: semester, ByStatus: make(map[string]int)}
	for _, d := range records {
		s.Records++
		s.ByStatus[d.Status]++
		if d.Status == DuesWaived {
			s.WaivedCents += d.BalanceCents()
			s.CollectedCents += d.PaidCents
			continue
		}
		s.ExpectedCents += d.AmountCents
		s.CollectedCents += d.PaidCents
		s.OutstandingCents += d.BalanceCents()
	}
	return s
}

type LedgerEntry struct {
	ID                  string    `json:"id"`
	EntryDate           time.Time `json:"entry_date"`
	Description         string    `json:"description"`
	Category            string    `json:"category"`
	Kind                string    `json:"kind"`
	AmountCents         int64     `json:"amount_cents"`
	RunningBalanceCents int64     `json:"running_balance_cents"`
	Reference           string    `json:"reference"`
	CreatedBy           string    `json:"created_by"`
	CreatedAt           time.Time `json:"created_at"`
}

func (e LedgerEntry) signedCents() int64 {
	if e.Kind == KindDebit {
		return -e.AmountCents
	}
	return e.AmountCents
}

type NewLedgerEntry struct {
	EntryDate   time.Time `json:"entry_date" validate:"required"`
	Description string    `json:"description" validate:"required,max=500"`
	Category    string    `json:"category" validate:"required,max=64,alphanum_"`
	Kind        string    `json:"kind" validate:"required,oneof=credit debit"`
	AmountCents int64     `json:"amount_cents" validate:"required,gt=0"`
}

func (ne *NewLedgerEntry) Validate(validate *validator.Validate) error {
	ne.Description = core.CleanString(ne.Description)
	ne.Category = core.CleanString(ne.Category, true /* lower */)
	ne.Kind = core.CleanString(ne.Kind, true /* lower */)
	return validate.Struct(ne)
}

// WithRunningBalance orders entries by date then creation and fills in the running balance.
func WithRunningBalance(entries []LedgerEntry) []LedgerEntry {
	sortLedger(entries)
	var balance int64
	for i := range entries {
		balance += entries[i].signedCents()
		entries[i].RunningBalanceCents = balance
	}
	return entries
}

type Budget struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Category       string    `json:"category"`
	AcademicYear   string    `json:"academic_year"`
	AllocatedCents int64     `json:"allocated_cents"`
	SpentCents     int64     `json:"spent_cents"`
	Status         string    `json:"status"`
	CreatedBy      string    `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type Expense struct {
	ID          string    `json:"id"`
	BudgetID    string    `json:"budget_id"`
	Description string    `json:"description"`
	AmountCents int64     `json:"amount_cents"`
	SpentOn     time.Time `json:"spent_on"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

type (
	NewBudget struct {
		Title          string `json:"title" validate:"required,max=200"`
		Category       string `json:"category" validate:"required,max=64,alphanum_"`
		AcademicYear   string `json:"academic_year"`
		AllocatedCents int64  `json:"allocated_cents" validate:"gte=0"`
	}

	NewExpense struct {
		Description string    `json:"description" validate:"required,max=500"`
		AmountCents int64     `json:"amount_cents" validate:"required,gt=0"`
		SpentOn     time.Time `json:"spent_on" validate:"required"`
	}

	BudgetReport struct {
		Budget
		RemainingCents int64     `json:"remaining_cents"`
		PercentUsed    float64   `json:"percent_used"`
		OverBudget     bool      `json:"over_budget"`
		Expenses       []Expense `json:"expenses"`
	}
)

func (nb *NewBudget) Validate(validate *validator.Validate) error {
	nb.Title = core.CleanString(nb.Title)
	nb.Category = core.CleanString(nb.Category, true /* lower */)
	nb.AcademicYear = core.CleanString(nb.AcademicYear)
	return validate.Struct(nb)
}

func (ne *NewExpense) Validate(validate *validator.Validate) error {
	ne.Description = core.CleanString(ne.Description)
	return validate.Struct(ne)
}

// Report computes the remaining allocation and usage of the budget.
func (b Budget) Report(expenses []Expense) BudgetReport {
	r := BudgetReport{
		Budget:         b,
		RemainingCents: b.AllocatedCents - b.SpentCents,
		OverBudget:     b.SpentCents > b.AllocatedCents,
		Expenses:       expenses,
	}
	if b.AllocatedCents > 0 {
		r.PercentUsed = core.Round(float64(b.SpentCents)/float64(b.AllocatedCents)*100, 1)
	} else if b.SpentCents > 0 {
		r.PercentUsed = 100
	}
	if r.Expenses == nil {
		r.Expenses = []Expense{}
	}
	return r
}
