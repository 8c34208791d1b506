// Package sqlxrepos implements the repositories on PostgreSQL with sqlx.
package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
)

// trapNoRowsErr maps psql "no rows" err to notFound
func trapNoRowsErr(err, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// where collects AND-ed conditions written with `?` placeholders.
type where struct {
	clauses []string
	args    []interface{}
}

func (w *where) add(clause string, args ...interface{}) {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// selectWhere runs `base + WHERE + suffix` against db, rebinding placeholders for the driver.
func selectWhere(ctx context.Context, db *sqlx.DB, dest interface{}, base string, w *where, suffix string) error {
	return db.SelectContext(ctx, dest, db.Rebind(base+w.String()+suffix), w.args...)
}

// jsonText encodes v for a jsonb column. Nil values are stored as JSON null.
func jsonText(v interface{}) (types.JSONText, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encoding json column")
	}
	return types.JSONText(b), nil
}

// unmarshalJSON decodes a jsonb column into v, leaving v untouched for NULL, null and {}.
func unmarshalJSON(txt types.JSONText, v interface{}) error {
	if s := string(txt); s == "" || s == "null" || s == "{}" {
		return nil
	}
	return errors.Wrap(txt.Unmarshal(v), "decoding json column")
}
