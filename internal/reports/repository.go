package reports

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/hrforms/internal/platform/db"
	"github.com/odyssey-erp/hrforms/internal/shared"
)

// Repository reads report data.
type Repository interface {
	FormHeader(ctx context.Context, formID uuid.UUID) (FormHeader, error)
	Rows(ctx context.Context, filter Filter) ([]Row, int, error)
}

// PGRepository reads reports from PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FormHeader returns the reported form.
func (r *PGRepository) FormHeader(ctx context.Context, formID uuid.UUID) (FormHeader, error) {
	var f FormHeader
	err := r.pool.QueryRow(ctx, `SELECT id, name, description, total, is_deleted FROM forms WHERE id = $1`, formID).
		Scan(&f.ID, &f.Name, &f.Description, &f.Total, &f.IsDeleted)
	if errors.Is(err, pgx.ErrNoRows) {
		return FormHeader{}, shared.ErrNotFound
	}
	return f, err
}

var rowOrderColumns = map[string]string{
	"createdAt": "uf.created_at",
	"updatedAt": "uf.updated_at",
	"filledAt":  "uf.filled_at",
	"status":    "uf.status",
}

// Rows returns one page of the form's user forms with their owners.
func (r *PGRepository) Rows(ctx context.Context, filter Filter) ([]Row, int, error) {
	w := &db.Where{}
	w.Add("uf.form_id = ?", filter.FormID)
	if filter.UserStatus != "" {
		w.Add("u.status = ?", filter.UserStatus)
	}
	if filter.UserFormStatus != "" {
		w.Add("uf.status = ?", filter.UserFormStatus)
	}
	from := ` FROM user_forms uf JOIN users u ON u.id = uf.user_id`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+from+w.SQL(), w.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `
SELECT uf.id, uf.status, uf.is_deleted, uf.filled_at, uf.created_at, uf.updated_at, uf.deleted_at,
	u.id, u.email, u.first_name, u.last_name, u.status, u.employee_id` + from + w.SQL() +
		` ORDER BY ` + shared.OrderClause(filter.Order, rowOrderColumns, "uf.created_at ASC") +
		` LIMIT ` + w.Arg(filter.Page.Limit) + ` OFFSET ` + w.Arg(filter.Page.Offset)
	rows, err := r.pool.Query(ctx, query, w.Args()...)
	if err != nil {
		return nil, 0, err
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Row, error) {
		var it Row
		err := row.Scan(&it.ID, &it.Status, &it.IsDeleted, &it.FilledAt, &it.CreatedAt, &it.UpdatedAt, &it.DeletedAt,
			&it.User.ID, &it.User.Email, &it.User.FirstName, &it.User.LastName, &it.User.Status, &it.User.EmployeeID)
		return it, err
	})
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

var _ Repository = (*PGRepository)(nil)
