package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/coursegate/coursegate/internal/query"
)

// Gateway executes compiled operations against the relational store with
// the elevated credential. Callers must have passed the authorization gate
// before anything reaches Execute.
type Gateway struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// QueryError marks a failure reported by the database while running an
// otherwise well-formed operation, such as a constraint violation or a
// type mismatch on an admin write. Handlers surface it with a generic
// client-facing message; the wrapped driver error stays in the logs.
type QueryError struct {
	Err error
}

func (e *QueryError) Error() string { return "query failed: " + e.Err.Error() }

func (e *QueryError) Unwrap() error { return e.Err }

// New creates a Gateway over the given database handle.
func New(db *sqlx.DB, logger *slog.Logger) *Gateway {
	return &Gateway{db: db, logger: logger}
}

// Execute runs the operation and returns the affected rows. Insert and
// update return the written state via RETURNING so callers can reconcile
// derived state without a second round trip; delete returns nil rows.
// Database-reported failures come back as *QueryError, logged in full but
// surfaced generically.
func (g *Gateway) Execute(ctx context.Context, op Operation) ([]map[string]interface{}, error) {
	sqlStr, args, err := buildSQL(op)
	if err != nil {
		return nil, err
	}

	// Expand IN-clause slices, then adapt placeholders to the driver.
	sqlStr, args, err = sqlx.In(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("expand query: %w", err)
	}
	sqlStr = g.db.Rebind(sqlStr)

	if _, ok := op.(DeleteOp); ok {
		res, err := g.db.ExecContext(ctx, sqlStr, args...)
		if err != nil {
			g.logger.Error("gateway delete failed", "table", op.TableName(), "error", err)
			return nil, &QueryError{Err: err}
		}
		affected, _ := res.RowsAffected()
		g.logger.Info("gateway delete", "table", op.TableName(), "rows", affected)
		return nil, nil
	}

	rows, err := g.db.QueryxContext(ctx, sqlStr, args...)
	if err != nil {
		g.logger.Error("gateway query failed", "table", op.TableName(), "error", err)
		return nil, &QueryError{Err: err}
	}
	defer rows.Close()

	out := make([]map[string]interface{}, 0)
	for rows.Next() {
		row := make(map[string]interface{})
		if err := rows.MapScan(row); err != nil {
			return nil, &QueryError{Err: err}
		}
		cleanMapValues(row)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &QueryError{Err: err}
	}
	return out, nil
}

func buildSQL(op Operation) (string, []interface{}, error) {
	switch o := op.(type) {
	case SelectOp:
		return buildSelect(o)
	case InsertOp:
		return buildInsert(o)
	case UpdateOp:
		return buildUpdate(o)
	case DeleteOp:
		where, args := buildWhere(o.Filters)
		return fmt.Sprintf("DELETE FROM %s WHERE %s", query.QuoteIdentifier(o.Table), where), args, nil
	default:
		return "", nil, fmt.Errorf("unsupported operation %T", op)
	}
}

func buildSelect(o SelectOp) (string, []interface{}, error) {
	cols := "*"
	if len(o.Projection) > 0 {
		quoted := make([]string, len(o.Projection))
		for i, c := range o.Projection {
			quoted[i] = query.QuoteIdentifier(c)
		}
		cols = strings.Join(quoted, ", ")
	}

	sqlStr := fmt.Sprintf("SELECT %s FROM %s", cols, query.QuoteIdentifier(o.Table))

	var args []interface{}
	if len(o.Filters) > 0 {
		where, whereArgs := buildWhere(o.Filters)
		sqlStr += " WHERE " + where
		args = whereArgs
	}

	if o.Order != nil {
		dir := "ASC"
		if o.Order.Ascending != nil && !*o.Order.Ascending {
			dir = "DESC"
		}
		sqlStr += " ORDER BY " + query.QuoteIdentifier(o.Order.Column) + " " + dir
	}

	return sqlStr, args, nil
}

func buildInsert(o InsertOp) (string, []interface{}, error) {
	cols := sortedKeys(o.Row)

	quoted := make([]string, len(cols))
	holders := make([]string, len(cols))
	args := make([]interface{}, len(cols))
	for i, c := range cols {
		quoted[i] = query.QuoteIdentifier(c)
		holders[i] = "?"
		args[i] = o.Row[c]
	}

	sqlStr := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		query.QuoteIdentifier(o.Table), strings.Join(quoted, ", "), strings.Join(holders, ", "))
	return sqlStr, args, nil
}

func buildUpdate(o UpdateOp) (string, []interface{}, error) {
	cols := sortedKeys(o.Set)

	sets := make([]string, len(cols))
	args := make([]interface{}, 0, len(cols)+len(o.Filters))
	for i, c := range cols {
		sets[i] = query.QuoteIdentifier(c) + " = ?"
		args = append(args, o.Set[c])
	}

	where, whereArgs := buildWhere(o.Filters)
	args = append(args, whereArgs...)

	sqlStr := fmt.Sprintf("UPDATE %s SET %s WHERE %s RETURNING *",
		query.QuoteIdentifier(o.Table), strings.Join(sets, ", "), where)
	return sqlStr, args, nil
}

// buildWhere renders validated filters as an AND-joined condition list.
// Column names were validated at compile time; values stay as bound
// parameters. The "in" operator leaves a single ? for sqlx.In to expand.
func buildWhere(filters []Filter) (string, []interface{}) {
	conds := make([]string, len(filters))
	args := make([]interface{}, 0, len(filters))

	for i, f := range filters {
		col := query.QuoteIdentifier(f.Column)
		switch f.Op {
		case OpEq:
			conds[i] = col + " = ?"
		case OpNeq:
			conds[i] = col + " <> ?"
		case OpGt:
			conds[i] = col + " > ?"
		case OpLt:
			conds[i] = col + " < ?"
		case OpIn:
			conds[i] = col + " IN (?)"
		}
		args = append(args, f.Value)
	}

	return strings.Join(conds, " AND "), args
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// cleanMapValues converts []byte values from database scans into strings
// for clean JSON serialization.
func cleanMapValues(m map[string]interface{}) {
	for k, v := range m {
		if b, ok := v.([]byte); ok {
			m[k] = string(b)
		}
	}
}
