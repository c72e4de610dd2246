package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"dashboard/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type ActivityInput struct {
	Email   *string
	Kind    string
	Title   string
	Details string
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) LogActivity(ctx context.Context, input ActivityInput) error {
	kind := strings.TrimSpace(input.Kind)
	title := strings.TrimSpace(input.Title)
	if kind == "" || title == "" {
		return fmt.Errorf("kind and title are required")
	}
	details := input.Details
	if details == "" {
		details = "-"
	}
	if _, err := r.pool.Exec(ctx, `
		INSERT INTO activity (
			email,
			kind,
			title,
			details
		) VALUES ($1, $2, $3, $4)
	`, normalizeNullable(input.Email), kind, title, details); err != nil {
		return fmt.Errorf("log activity: %w", err)
	}
	return nil
}

func (r *Repository) ListActivity(
	ctx context.Context,
	limit, offset int,
	search string,
) ([]domain.ActivityEntry, error) {
	limit = normalizeLimit(limit)
	offset = normalizeOffset(offset)
	search = strings.TrimSpace(search)

	rows, err := r.pool.Query(ctx, `
		SELECT
			id,
			created_at,
			email,
			kind,
			title,
			details
		FROM activity
		WHERE ($1 = '' OR title ILIKE '%' || $1 || '%' OR details ILIKE '%' || $1 || '%' OR COALESCE(email, '') ILIKE '%' || $1 || '%')
		ORDER BY id DESC
		LIMIT $2 OFFSET $3
	`, search, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	items := make([]domain.ActivityEntry, 0, limit)
	for rows.Next() {
		var (
			row   domain.ActivityEntry
			email sql.NullString
		)
		if err := rows.Scan(
			&row.ActivityID,
			&row.CreatedAt,
			&email,
			&row.Kind,
			&row.Title,
			&row.Details,
		); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		if email.Valid {
			value := email.String
			row.Email = &value
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity: %w", err)
	}
	return items, nil
}

func (r *Repository) CountActivity(ctx context.Context, search string) (int, error) {
	search = strings.TrimSpace(search)
	var count int
	if err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)::int
		FROM activity
		WHERE ($1 = '' OR title ILIKE '%' || $1 || '%' OR details ILIKE '%' || $1 || '%' OR COALESCE(email, '') ILIKE '%' || $1 || '%')
	`, search).Scan(&count); err != nil {
		return 0, fmt.Errorf("count activity: %w", err)
	}
	return count, nil
}

func normalizeNullable(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.ToLower(strings.TrimSpace(*value))
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 200
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
