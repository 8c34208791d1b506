package inmemdb

import (
	"context"

	"github.com/gleeworld/gleeworld/core/audit"
)

type auditRepository struct {
	db *auditTable
}

var _ audit.Repository = (*auditRepository)(nil) // interface compliance check

func NewAuditRepository(db *DB) *auditRepository {
	return &auditRepository{db: db.audit}
}

func (repo *auditRepository) CreateEntry(_ context.Context, e audit.Entry) (audit.Entry, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.table = append(repo.db.table, e)
	return e, nil
}

// QueryEntries returns the matching entries, newest first.
func (repo *auditRepository) QueryEntries(_ context.Context, filter *audit.QueryFilter) ([]audit.Entry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	entries := make([]audit.Entry, 0)
	for i := len(repo.db.table) - 1; i >= 0; i-- {
		if e := repo.db.table[i]; filter.Match(e) {
			entries = append(entries, e)
		}
	}
	return entries, nil
}
