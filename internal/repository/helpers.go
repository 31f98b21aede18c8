package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-records/internal/models"
	"github.com/noah-isme/sma-records/pkg/database"
)

// columnSet whitelists the columns a partial update may touch.
type columnSet map[string]struct{}

func columns(names ...string) columnSet {
	set := make(columnSet, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// updateByKey applies the allowed subset of fields to the row matched by
// where. It reports whether a row changed; an empty effective field set is a
// no-op returning false.
func updateByKey(ctx context.Context, db sqlx.ExtContext, table string, allowed columnSet, fields models.Fields, where string, whereArgs ...interface{}) (bool, error) {
	sets := make([]string, 0, len(fields))
	args := make([]interface{}, 0, len(fields)+len(whereArgs))
	for _, key := range fields.Keys() {
		if _, ok := allowed[key]; !ok {
			continue
		}
		sets = append(sets, key+" = ?")
		args = append(args, fields[key])
	}
	if len(sets) == 0 {
		return false, nil
	}
	args = append(args, whereArgs...)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s", table, strings.Join(sets, ", "), where)
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, database.Classify(fmt.Errorf("update %s: %w", table, err), "update "+table)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update %s rows affected: %w", table, err)
	}
	return n > 0, nil
}

func deleteByKey(ctx context.Context, db sqlx.ExtContext, table string, where string, args ...interface{}) (int64, error) {
	res, err := db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s", table, where), args...)
	if err != nil {
		return 0, database.Classify(fmt.Errorf("delete %s: %w", table, err), "delete "+table)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete %s rows affected: %w", table, err)
	}
	return n, nil
}

// getOne runs a single-row query and maps a missing row to (nil, nil).
func getOne[T any](ctx context.Context, db sqlx.QueryerContext, what string, query string, args ...interface{}) (*T, error) {
	var out T
	if err := sqlx.GetContext(ctx, db, &out, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get %s: %w", what, err)
	}
	return &out, nil
}

func selectAll[T any](ctx context.Context, db sqlx.QueryerContext, what string, query string, args ...interface{}) ([]T, error) {
	out := make([]T, 0)
	if err := sqlx.SelectContext(ctx, db, &out, query, args...); err != nil {
		return nil, fmt.Errorf("list %s: %w", what, err)
	}
	return out, nil
}

// insertNamed executes a named insert and classifies constraint failures.
func insertNamed(ctx context.Context, db sqlx.ExtContext, what string, query string, arg interface{}) error {
	if _, err := sqlx.NamedExecContext(ctx, db, query, arg); err != nil {
		return database.Classify(fmt.Errorf("create %s: %w", what, err), what+" rejected")
	}
	return nil
}

func count(ctx context.Context, db sqlx.QueryerContext, table string) (int, error) {
	var n int
	if err := sqlx.GetContext(ctx, db, &n, "SELECT COUNT(*) FROM "+table); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
