package finance

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/gleeworld/gleeworld/core"
)

var (
	ErrDuesNotFound   = errors.New("dues record not found")
	ErrBudgetNotFound = errors.New("budget not found")
	ErrBudgetClosed   = errors.New("budget is closed")

	errAmountNotPositive = errors.New("amount must be greater than 0")
	errOverpayment       = errors.New("payment exceeds the remaining balance")
	errDuesSettled       = errors.New("dues are already settled")
)

type Repository interface {
	CreateDues(ctx context.Context, ds ...DuesRecord) error
	GetDuesByID(ctx context.Context, id string) (DuesRecord, error)
	QueryDues(ctx context.Context, filter *DuesFilter) ([]DuesRecord, error)
	UpdateDues(ctx context.Context, d DuesRecord) (DuesRecord, error)

	CreateLedgerEntry(ctx context.Context, e LedgerEntry) (LedgerEntry, error)
	// QueryLedgerEntries returns the entries dated up to and including `to` (all if zero).
	QueryLedgerEntries(ctx context.Context, to time.Time) ([]LedgerEntry, error)

	CreateBudget(ctx context.Context, b Budget) (Budget, error)
	GetBudgetByID(ctx context.Context, id string) (Budget, error)
	QueryBudgets(ctx context.Context, academicYear string) ([]Budget, error)
	UpdateBudget(ctx context.Context, b Budget) (Budget, error)
	CreateExpense(ctx context.Context, e Expense) (Expense, error)
	QueryExpenses(ctx context.Context, budgetID string) ([]Expense, error)
}

type Service struct {
	repo     Repository
	validate *validator.Validate
	conf     *core.Config
	logger   core.Logger
}

func NewService(repo Repository, validate *validator.Validate, conf *core.Config, logger core.Logger) *Service {
	return &Service{repo: repo, validate: validate, conf: conf, logger: logger}
}

// CreateDues assigns the same dues to every listed member.
func (svc *Service) CreateDues(ctx context.Context, nd NewDues) ([]DuesRecord, error) {
	if err := nd.Validate(svc.validate); err != nil {
		return nil, err
	}
	now := core.NowFunc()
	ds := make([]DuesRecord, 0, len(nd.MemberIDs))
	for _, memberID := range nd.MemberIDs {
		ds = append(ds, DuesRecord{
			ID:          uuid.New().String(),
			MemberID:    memberID,
			Semester:    nd.Semester,
			AmountCents: nd.AmountCents,
			DueDate:     nd.DueDate.UTC(),
			Status:      DuesUnpaid,
			Notes:       nd.Notes,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	if err := svc.repo.CreateDues(ctx, ds...); err != nil {
		return nil, errors.Wrap(err, "creating dues")
	}
	return ds, nil
}

func (svc *Service) GetDues(ctx context.Context, id string) (DuesRecord, error) {
	return svc.repo.GetDuesByID(ctx, id)
}

func (svc *Service) QueryDues(ctx context.Context, filter *DuesFilter) ([]DuesRecord, error) {
	return svc.repo.QueryDues(ctx, filter)
}

// RecordPayment applies a payment to the dues and credits the ledger.
func (svc *Service) RecordPayment(ctx context.Context, by, id string, p Payment) (DuesRecord, error) {
	if p.AmountCents <= 0 {
		return DuesRecord{}, core.NewFieldError("amount_cents", errAmountNotPositive.Error())
	}
	d, err := svc.repo.GetDuesByID(ctx, id)
	if err != nil {
		return DuesRecord{}, err
	}
	if d.settled() {
		return DuesRecord{}, core.NewValidationError(errDuesSettled)
	}
	if p.AmountCents > d.BalanceCents() {
		return DuesRecord{}, core.NewFieldError("amount_cents", errOverpayment.Error())
	}

	now := core.NowFunc()
	d.PaidCents += p.AmountCents
	switch {
	case d.BalanceCents() == 0:
		d.Status = DuesPaid
	case d.Status != DuesOverdue:
		d.Status = DuesPartial
	}
	if note := core.CleanString(p.Note); note != "" {
		d.Notes = note
	}
	d.UpdatedAt = now
	if d, err = svc.repo.UpdateDues(ctx, d); err != nil {
		return DuesRecord{}, errors.Wrap(err, "updating dues")
	}

	_, err = svc.repo.CreateLedgerEntry(ctx, LedgerEntry{
		ID:          uuid.New().String(),
		EntryDate:   now,
		Description: fmt.Sprintf("Dues payment (%s)", d.Semester),
		Category:    CategoryDues,
		Kind:        KindCredit,
		AmountCents: p.AmountCents,
		Reference:   d.ID,
		CreatedBy:   by,
		CreatedAt:   now,
	})
	if err != nil {
		return DuesRecord{}, errors.Wrap(err, "crediting dues payment")
	}
	return d, nil
}

func (svc *Service) Waive(ctx context.Context, id, note string) (DuesRecord, error) {
	d, err := svc.repo.GetDuesByID(ctx, id)
	if err != nil {
		return DuesRecord{}, err
	}
	if d.settled() {
		return DuesRecord{}, core.NewValidationError(errDuesSettled)
	}
	d.Status = DuesWaived
	if note = core.CleanString(note); note != "" {
		d.Notes = note
	}
	d.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateDues(ctx, d)
}

// MarkOverdue flags unpaid and partially paid dues that are past their due date.
func (svc *Service) MarkOverdue(ctx context.Context, now time.Time) (int, error) {
	open, err := svc.repo.QueryDues(ctx, &DuesFilter{Statuses: []string{DuesUnpaid, DuesPartial}})
	if err != nil {
		return 0, errors.Wrap(err, "querying open dues")
	}
	n := 0
	for _, d := range open {
		if !d.DueDate.Before(now) {
			continue
		}
		d.Status = DuesOverdue
		d.UpdatedAt = now
		if _, err = svc.repo.UpdateDues(ctx, d); err != nil {
			return n, errors.Wrap(err, "marking dues overdue")
		}
		n++
	}
	if n > 0 {
		svc.logger.Info(fmt.Sprintf("%d dues record(s) marked overdue", n))
	}
	return n, nil
}

func (svc *Service) DuesSummary(ctx context.Context, semester string) (DuesSummary, error) {
	records, err := svc.repo.QueryDues(ctx, &DuesFilter{Semester: semester})
	if err != nil {
		return DuesSummary{}, errors.Wrap(err, "querying dues")
	}
	return SummarizeDues(semester, records), nil
}

func (svc *Service) AddEntry(ctx context.Context, by string, ne NewLedgerEntry) (LedgerEntry, error) {
	if err := ne.Validate(svc.validate); err != nil {
		return LedgerEntry{}, err
	}
	return svc.repo.CreateLedgerEntry(ctx, LedgerEntry{
		ID:          uuid.New().String(),
		EntryDate:   ne.EntryDate.UTC(),
		Description: ne.Description,
		Category:    ne.Category,
		Kind:        ne.Kind,
		AmountCents: ne.AmountCents,
		CreatedBy:   by,
		CreatedAt:   core.NowFunc(),
	})
}

// Ledger returns the entries dated within [from, to] with running balances that account for
// every earlier entry. Zero bounds are open.
func (svc *Service) Ledger(ctx context.Context, from, to time.Time) ([]LedgerEntry, error) {
	entries, err := svc.repo.QueryLedgerEntries(ctx, to)
	if err != nil {
		return nil, errors.Wrap(err, "querying ledger")
	}
	entries = WithRunningBalance(entries)
	if from.IsZero() {
		return entries, nil
	}
	i := sort.Search(len(entries), func(i int) bool { return !entries[i].EntryDate.Before(from) })
	return entries[i:], nil
}

func (svc *Service) CreateBudget(ctx context.Context, by string, nb NewBudget) (Budget, error) {
	if err := nb.Validate(svc.validate); err != nil {
		return Budget{}, err
	}
	if nb.AcademicYear == "" {
		nb.AcademicYear = svc.conf.Club.CurrentAcademicYear
	}
	now := core.NowFunc()
	return svc.repo.CreateBudget(ctx, Budget{
		ID:             uuid.New().String(),
		Title:          nb.Title,
		Category:       nb.Category,
		AcademicYear:   nb.AcademicYear,
		AllocatedCents: nb.AllocatedCents,
		Status:         BudgetActive,
		CreatedBy:      by,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
}

func (svc *Service) QueryBudgets(ctx context.Context, academicYear string) ([]Budget, error) {
	return svc.repo.QueryBudgets(ctx, academicYear)
}

func (svc *Service) CloseBudget(ctx context.Context, id string) (Budget, error) {
	b, err := svc.repo.GetBudgetByID(ctx, id)
	if err != nil {
		return Budget{}, err
	}
	b.Status = BudgetClosed
	b.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateBudget(ctx, b)
}

// AddExpense records spending against an active budget and debits the ledger.
func (svc *Service) AddExpense(ctx context.Context, by, budgetID string, ne NewExpense) (Expense, error) {
	if err := ne.Validate(svc.validate); err != nil {
		return Expense{}, err
	}
	b, err := svc.repo.GetBudgetByID(ctx, budgetID)
	if err != nil {
		return Expense{}, err
	}
	if b.Status == BudgetClosed {
		return Expense{}, ErrBudgetClosed
	}

	now := core.NowFunc()
	e, err := svc.repo.CreateExpense(ctx, Expense{
		ID:          uuid.New().String(),
		BudgetID:    b.ID,
		Description: ne.Description,
		AmountCents: ne.AmountCents,
		SpentOn:     ne.SpentOn.UTC(),
		CreatedBy:   by,
		CreatedAt:   now,
	})
	if err != nil {
		return Expense{}, errors.Wrap(err, "creating expense")
	}

	b.SpentCents += e.AmountCents
	b.UpdatedAt = now
	if _, err = svc.repo.UpdateBudget(ctx, b); err != nil {
		return Expense{}, errors.Wrap(err, "updating budget")
	}
	_, err = svc.repo.CreateLedgerEntry(ctx, LedgerEntry{
		ID:          uuid.New().String(),
		EntryDate:   e.SpentOn,
		Description: fmt.Sprintf("%s: %s", b.Title, e.Description),
		Category:    b.Category,
		Kind:        KindDebit,
		AmountCents: e.AmountCents,
		Reference:   e.ID,
		CreatedBy:   by,
		CreatedAt:   now,
	})
	if err != nil {
		return Expense{}, errors.Wrap(err, "debiting expense")
	}
	return e, nil
}

func (svc *Service) BudgetReport(ctx context.Context, id string) (BudgetReport, error) {
	b, err := svc.repo.GetBudgetByID(ctx, id)
	if err != nil {
		return BudgetReport{}, err
	}
	expenses, err := svc.repo.QueryExpenses(ctx, id)
	if err != nil {
		return BudgetReport{}, errors.Wrap(err, "querying expenses")
	}
	return b.Report(expenses), nil
}

func sortLedger(entries []LedgerEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].EntryDate.Equal(entries[j].EntryDate) {
			return entries[i].EntryDate.Before(entries[j].EntryDate)
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
}
