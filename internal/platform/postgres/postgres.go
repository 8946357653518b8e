// Package postgres opens the relational store, applies the schema, and maps
// driver errors onto infrastructure sentinels. Both the pgx stdlib driver and
// lib/pq are registered; DATABASE_DRIVER selects one.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"

	"brokerage/internal/platform/config"
	"brokerage/pkg/platform/sentinel"
)

//go:embed schema.sql
var schema string

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, cfg config.Database) (*sql.DB, error) {
	if cfg.URL == "" {
		return nil, errors.New("database URL is required")
	}
	db, err := sql.Open(cfg.Driver, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Migrate applies the embedded schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range statements(schema) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}

// statements splits the schema on blank lines; statements never contain one.
func statements(src string) []string {
	var out []string
	for _, block := range strings.Split(src, "\n\n") {
		if stmt := strings.TrimSpace(block); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

// SQLSTATE codes the stores care about.
const (
	codeUniqueViolation     = "23505"
	codeNotNullViolation    = "23502"
	codeCheckViolation      = "23514"
	codeForeignKeyViolation = "23503"
	codeInvalidText         = "22P02"
	codeStringTooLong       = "22001"
	codeUndefinedColumn     = "42703"
	codeQueryCanceled       = "57014"
	codeTooManyConnections  = "53300"
)

// Classify wraps err with the sentinel matching its SQLSTATE so services can
// branch with errors.Is without knowing which driver produced it.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %w", sentinel.ErrNotFound, err)
	}
	switch sqlState(err) {
	case codeUniqueViolation:
		return fmt.Errorf("%w: %w", sentinel.ErrConflict, err)
	case codeInvalidText, codeCheckViolation, codeNotNullViolation,
		codeForeignKeyViolation, codeStringTooLong, codeUndefinedColumn:
		return fmt.Errorf("%w: %w", sentinel.ErrRejected, err)
	case codeQueryCanceled, codeTooManyConnections:
		return fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
	}
	return err
}

func sqlState(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
