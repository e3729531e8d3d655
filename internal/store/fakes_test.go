package store

import (
	"context"
	"database/sql"
)

// stubDB answers with the configured hooks; a nil hook succeeds.
type stubDB struct {
	getFn    func(ctx context.Context, dest any, query string, args ...any) error
	selectFn func(ctx context.Context, dest any, query string, args ...any) error
	execFn   func(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s stubDB) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	if s.getFn != nil {
		return s.getFn(ctx, dest, query, args...)
	}
	return nil
}

func (s stubDB) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	if s.selectFn != nil {
		return s.selectFn(ctx, dest, query, args...)
	}
	return nil
}

func (s stubDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if s.execFn != nil {
		return s.execFn(ctx, query, args...)
	}
	return stubResult{}, nil
}

// stubExecer stands in for the *sqlx.Tx handed to ledger writes.
type stubExecer struct {
	execFn func(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s stubExecer) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if s.execFn != nil {
		return s.execFn(ctx, query, args...)
	}
	return stubResult{}, nil
}

type stubResult struct {
	rows int64
}

func (r stubResult) LastInsertId() (int64, error) { return 0, nil }

func (r stubResult) RowsAffected() (int64, error) { return r.rows, nil }
