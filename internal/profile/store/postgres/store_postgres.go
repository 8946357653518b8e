package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"brokerage/internal/platform/postgres"
	"brokerage/internal/profile"
	"brokerage/pkg/domain"
	"brokerage/pkg/platform/sentinel"
)

// columns are the profile fields stored in dedicated TEXT columns. Every other
// key lives in the extra JSONB document. Column names are never taken from
// input directly; only names present here are interpolated into SQL.
var columns = []string{
	"email", "first_name", "middle_name", "last_name", "phone", "date_of_birth",
	"gender", "marital_status", "nationality", "pan_number", "occupation",
	"annual_income", "address_line1", "address_line2", "city", "state",
	"postal_code", "country", "bank_name", "account_holder_name",
	"account_number", "ifsc_code", "account_type", "nominee_name",
	"nominee_relation", "nominee_date_of_birth", "trading_experience",
	"risk_appetite", "segments", "onboarding_status", "completed_at",
}

var isColumn = func() map[string]bool {
	m := make(map[string]bool, len(columns))
	for _, c := range columns {
		m[c] = true
	}
	return m
}()

// PostgresStore persists profiles in PostgreSQL.
// This store is pure I/O; merge and upsert decisions belong to the service.
type PostgresStore struct {
	db *sql.DB
}

func New(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindByIdentity(ctx context.Context, identity domain.Identity) (*profile.Record, error) {
	query := fmt.Sprintf(`SELECT %s, extra, created_at, updated_at FROM profiles WHERE identity = $1`,
		strings.Join(columns, ", "))

	values := make([]sql.NullString, len(columns))
	dest := make([]any, 0, len(columns)+3)
	for i := range values {
		dest = append(dest, &values[i])
	}
	var extra []byte
	record := &profile.Record{Identity: identity}
	dest = append(dest, &extra, &record.CreatedAt, &record.UpdatedAt)

	if err := s.db.QueryRowContext(ctx, query, identity.String()).Scan(dest...); err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find profile: %w", postgres.Classify(err))
	}

	fields := profile.Fields{}
	if len(extra) > 0 {
		if err := json.Unmarshal(extra, &fields); err != nil {
			return nil, fmt.Errorf("unmarshal profile extra: %w", err)
		}
	}
	for i, col := range columns {
		if values[i].Valid {
			fields[col] = values[i].String
		}
	}
	record.Fields = fields
	return record, nil
}

func (s *PostgresStore) Insert(ctx context.Context, record *profile.Record) error {
	known, extra, err := split(record.Fields)
	if err != nil {
		return err
	}
	cols := []string{"identity"}
	args := []any{record.Identity.String()}
	for _, key := range sortedKeys(known) {
		cols = append(cols, key)
		args = append(args, known[key])
	}
	cols = append(cols, "extra", "created_at", "updated_at")
	args = append(args, extra, record.CreatedAt, record.UpdatedAt)

	placeholders := make([]string, len(args))
	for i := range args {
		placeholders[i] = "$" + strconv.Itoa(i+1)
	}
	placeholders[len(cols)-3] += "::jsonb"

	query := fmt.Sprintf(`INSERT INTO profiles (%s) VALUES (%s)`,
		strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert profile: %w", postgres.Classify(err))
	}
	return nil
}

func (s *PostgresStore) UpdateFields(ctx context.Context, identity domain.Identity, fields profile.Fields, updatedAt time.Time) error {
	known, extra, err := split(fields)
	if err != nil {
		return err
	}
	args := []any{identity.String()}
	var sets []string
	for _, key := range sortedKeys(known) {
		args = append(args, known[key])
		sets = append(sets, fmt.Sprintf("%s = $%d", key, len(args)))
	}
	args = append(args, extra)
	sets = append(sets, fmt.Sprintf("extra = extra || $%d::jsonb", len(args)))
	args = append(args, updatedAt)
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))

	query := fmt.Sprintf(`UPDATE profiles SET %s WHERE identity = $1`, strings.Join(sets, ", "))
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update profile: %w", postgres.Classify(err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update profile rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// split separates column-backed fields (rendered as text) from the rest,
// which are returned as a JSON document.
func split(fields profile.Fields) (map[string]sql.NullString, []byte, error) {
	known := make(map[string]sql.NullString)
	rest := make(map[string]any)
	for key, value := range fields {
		if isColumn[key] {
			known[key] = toText(value)
			continue
		}
		rest[key] = value
	}
	extra, err := json.Marshal(rest)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal profile extra: %w", err)
	}
	return known, extra, nil
}

func toText(v any) sql.NullString {
	switch value := v.(type) {
	case nil:
		return sql.NullString{}
	case string:
		return sql.NullString{String: value, Valid: true}
	case time.Time:
		return sql.NullString{String: value.UTC().Format(time.RFC3339), Valid: true}
	default:
		return sql.NullString{String: fmt.Sprint(value), Valid: true}
	}
}

func sortedKeys(m map[string]sql.NullString) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
