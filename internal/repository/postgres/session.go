package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"attendanceingest/internal/domain"
)

// Session pins one pooled connection and keeps a transaction open on it at all times.
// Repositories built on a Session keep working across reconnects because every statement goes
// to whatever transaction is current. A Session is not safe for concurrent use.
type Session struct {
	db     *sqlx.DB
	conn   *sqlx.Conn
	tx     *sqlx.Tx
	logger *slog.Logger

	reconnects int
}

var _ domain.StorageSession = (*Session)(nil)

// OpenSession takes a connection from db and begins the first transaction on it.
func OpenSession(ctx context.Context, db *sqlx.DB, logger *slog.Logger) (*Session, error) {
	s := &Session{db: db, logger: logger}
	if err := s.open(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) open(ctx context.Context) error {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("begin transaction: %w", err)
	}
	s.conn = conn
	s.tx = tx
	return nil
}

// discard drops the current transaction and connection, ignoring errors from a connection that
// is already gone.
func (s *Session) discard() {
	if s.tx != nil {
		_ = s.tx.Rollback()
		s.tx = nil
	}
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
}

func (s *Session) reconnect(ctx context.Context, cause error) error {
	s.logger.Warn("storage session lost, reconnecting", "error", cause)
	s.discard()
	if err := s.open(ctx); err != nil {
		return fmt.Errorf("reconnect after %v: %w", cause, err)
	}
	s.reconnects++
	s.logger.Info("storage session reconnected", "reconnects", s.reconnects)
	return nil
}

// EnsureAlive runs a trivial round trip and reopens the session when the connection is gone.
// Failures that are not about connectivity are returned as is.
func (s *Session) EnsureAlive(ctx context.Context) error {
	if s.tx == nil {
		return s.reconnect(ctx, sql.ErrConnDone)
	}
	var one int
	err := s.tx.QueryRowContext(ctx, `SELECT 1`).Scan(&one)
	if err == nil {
		return nil
	}
	if !IsConnectivityError(err) {
		return fmt.Errorf("probe session: %w", err)
	}
	return s.reconnect(ctx, err)
}

// Commit makes pending work durable and begins the next transaction on the same connection.
func (s *Session) Commit(ctx context.Context) error {
	if err := s.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		s.tx = nil
		return fmt.Errorf("begin transaction: %w", err)
	}
	s.tx = tx
	return nil
}

// Refresh commits pending work, gives the connection back and takes a new one. A commit that
// fails because the connection is already gone is treated like a lost session.
func (s *Session) Refresh(ctx context.Context) error {
	s.logger.Debug("refreshing storage session")
	if err := s.tx.Commit(); err != nil {
		s.tx = nil
		if !IsConnectivityError(err) {
			s.discard()
			return fmt.Errorf("commit before refresh: %w", err)
		}
		return s.reconnect(ctx, err)
	}
	s.tx = nil
	s.discard()
	if err := s.open(ctx); err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	return nil
}

// Rollback discards pending work and begins a new transaction.
func (s *Session) Rollback(ctx context.Context) error {
	if s.tx == nil {
		return nil
	}
	err := s.tx.Rollback()
	s.tx = nil
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		if IsConnectivityError(err) {
			return s.reconnect(ctx, err)
		}
		return fmt.Errorf("rollback: %w", err)
	}
	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	s.tx = tx
	return nil
}

// Reconnects is the number of times the session had to be reopened after a connectivity failure.
func (s *Session) Reconnects() int {
	return s.reconnects
}

// Close rolls back anything uncommitted and releases the connection.
func (s *Session) Close() error {
	s.discard()
	return nil
}

func (s *Session) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if s.tx == nil {
		return nil, sql.ErrConnDone
	}
	return s.tx.ExecContext(ctx, query, args...)
}

func (s *Session) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if s.tx == nil {
		return nil, sql.ErrConnDone
	}
	return s.tx.QueryContext(ctx, query, args...)
}

func (s *Session) QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error) {
	if s.tx == nil {
		return nil, sql.ErrConnDone
	}
	return s.tx.QueryxContext(ctx, query, args...)
}

func (s *Session) QueryRowxContext(ctx context.Context, query string, args ...any) *sqlx.Row {
	return s.tx.QueryRowxContext(ctx, query, args...)
}

func (s *Session) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return s.tx.QueryRowContext(ctx, query, args...)
}
