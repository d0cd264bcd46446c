package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/edudesk/core"
	"github.com/trezcool/edudesk/storage/database"
)

// getExec returns the executor passed by the service (usually a transaction), or def.
func getExec(def core.DBExecutor, svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return def
}

// trapNoRowsErr maps the "no rows" error to notFound.
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// trapUniqueErr maps a unique constraint violation to the matching error of uniqueErrs.
func trapUniqueErr(err error, uniqueErrs map[string]error, msg string) error {
	if name, ok := database.UniqueViolation(err); ok {
		if uerr, ok := uniqueErrs[name]; ok {
			return uerr
		}
	}
	return errors.Wrap(err, msg)
}

// orderBy builds an ORDER BY clause from the orderings whose field is in columns.
// Unknown fields are ignored; dflt is used when nothing is left.
func orderBy(ordering []core.DBOrdering, columns map[string]string, dflt string) string {
	clauses := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		if col, ok := columns[ord.Field]; ok {
			clauses = append(clauses, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
		}
	}
	if dflt != "" {
		clauses = append(clauses, dflt)
	}
	if len(clauses) == 0 {
		return ""
	}
	return " ORDER BY " + strings.Join(clauses, ", ")
}

// insertReturningID runs an INSERT ... RETURNING id statement.
func insertReturningID(ctx context.Context, exe core.DBExecutor, query string, args ...interface{}) (int, error) {
	var id int
	err := sqlx.GetContext(ctx, exe, &id, exe.Rebind(query+" RETURNING id"), args...)
	return id, err
}

// execAffecting runs a statement and returns notFound if it affected no row.
func execAffecting(ctx context.Context, exe core.DBExecutor, notFound error, query string, args ...interface{}) error {
	res, err := exe.ExecContext(ctx, exe.Rebind(query), args...)
	if err != nil {
		return err
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if cnt == 0 {
		return notFound
	}
	return nil
}

// where joins conditions with AND.
func where(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}
