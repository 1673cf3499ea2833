package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/FACorreiaa/resto-backoffice/internal/ingest/parser"
)

// ErrFormatNotFound is returned when no descriptor exists for a format code
var ErrFormatNotFound = fmt.Errorf("import format not found")

// Querier is the subset of pgxpool.Pool the format store needs
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// FormatStore reads configured import format descriptors
type FormatStore interface {
	GetByCode(ctx context.Context, code string) (parser.ImportFormatDescriptor, error)
	List(ctx context.Context) ([]parser.ImportFormatDescriptor, error)
}

// PostgresFormatStore implements FormatStore against the import_formats table
type PostgresFormatStore struct {
	db Querier
}

// NewPostgresFormatStore creates a database-backed format store
func NewPostgresFormatStore(db Querier) *PostgresFormatStore {
	return &PostgresFormatStore{db: db}
}

// GetByCode loads one format descriptor and validates its parser selector
func (s *PostgresFormatStore) GetByCode(ctx context.Context, code string) (parser.ImportFormatDescriptor, error) {
	query := `
		SELECT code, display_name, file_kind, delimiter_override, header_skip_count, parser_selector
		FROM import_formats
		WHERE code = $1
	`

	var (
		desc     parser.ImportFormatDescriptor
		kind     string
		selector string
	)
	err := s.db.QueryRow(ctx, query, code).Scan(
		&desc.Code, &desc.DisplayName, &kind,
		&desc.DelimiterOverride, &desc.HeaderSkipCount, &selector,
	)
	if err == pgx.ErrNoRows {
		return desc, fmt.Errorf("%w: %s", ErrFormatNotFound, code)
	}
	if err != nil {
		return desc, fmt.Errorf("failed to load import format: %w", err)
	}

	desc.FileKind = parser.FileKind(kind)
	format, err := parser.ResolveSelector(selector)
	if err != nil {
		return desc, err
	}
	desc.Selector = format
	return desc, nil
}

// List returns every configured import format
func (s *PostgresFormatStore) List(ctx context.Context) ([]parser.ImportFormatDescriptor, error) {
	query := `
		SELECT code, display_name, file_kind, delimiter_override, header_skip_count, parser_selector
		FROM import_formats
		ORDER BY code
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list import formats: %w", err)
	}
	defer rows.Close()

	var descs []parser.ImportFormatDescriptor
	for rows.Next() {
		var (
			desc     parser.ImportFormatDescriptor
			kind     string
			selector string
		)
		if err := rows.Scan(&desc.Code, &desc.DisplayName, &kind,
			&desc.DelimiterOverride, &desc.HeaderSkipCount, &selector); err != nil {
			return nil, fmt.Errorf("failed to scan import format: %w", err)
		}
		desc.FileKind = parser.FileKind(kind)
		format, err := parser.ResolveSelector(selector)
		if err != nil {
			return nil, err
		}
		desc.Selector = format
		descs = append(descs, desc)
	}

	return descs, rows.Err()
}
