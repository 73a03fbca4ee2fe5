package forms

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/hrforms/internal/platform/db"
	"github.com/odyssey-erp/hrforms/internal/shared"
)

// Repository defines data access for forms.
type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (Form, error)
	List(ctx context.Context, filter ListFilter) ([]Form, int, error)
	Undelete(ctx context.Context, id uuid.UUID) error
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	InsertForm(ctx context.Context, form Form) error
	InsertDetail(ctx context.Context, formID uuid.UUID, detail DetailInput) error
	UpdateDetail(ctx context.Context, formID uuid.UUID, detail DetailInput) error
	DetailIDs(ctx context.Context, formID uuid.UUID) ([]uuid.UUID, error)
	DeleteDetails(ctx context.Context, ids []uuid.UUID) error
	UpdateForm(ctx context.Context, id uuid.UUID, req UpdateRequest, actor uuid.UUID) error
	AssignUsers(ctx context.Context, formID uuid.UUID, userIDs []uuid.UUID, actor uuid.UUID) ([]Assignment, error)
	Delete(ctx context.Context, id uuid.UUID, actor uuid.UUID) error
}

// PGRepository provides PostgreSQL backed persistence.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// WithTx wraps callback in repeatable-read transaction.
func (r *PGRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const formColumns = `f.id, f.name, f.description, f.total, f.is_deleted, f.created_at, f.created_by,
f.updated_at, f.updated_by, f.deleted_at, f.deleted_by`

func scanForm(row pgx.Row) (Form, error) {
	var f Form
	err := row.Scan(&f.ID, &f.Name, &f.Description, &f.Total, &f.IsDeleted, &f.CreatedAt, &f.CreatedBy,
		&f.UpdatedAt, &f.UpdatedBy, &f.DeletedAt, &f.DeletedBy)
	return f, err
}

// Get returns a form with its active details.
func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (Form, error) {
	f, err := scanForm(r.pool.QueryRow(ctx, `SELECT `+formColumns+` FROM forms f WHERE f.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Form{}, shared.ErrNotFound
		}
		return Form{}, err
	}
	details, err := r.details(ctx, []uuid.UUID{id})
	if err != nil {
		return Form{}, err
	}
	f.Details = details[id]
	if f.Details == nil {
		f.Details = []Detail{}
	}
	return f, nil
}

func (r *PGRepository) details(ctx context.Context, formIDs []uuid.UUID) (map[uuid.UUID][]Detail, error) {
	rows, err := r.pool.Query(ctx, `
SELECT form_id, id, content, "index"
FROM form_details
WHERE form_id = ANY($1) AND is_deleted = FALSE
ORDER BY "index", created_at`, formIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uuid.UUID][]Detail, len(formIDs))
	for rows.Next() {
		var (
			formID uuid.UUID
			d      Detail
		)
		if err := rows.Scan(&formID, &d.ID, &d.Content, &d.Index); err != nil {
			return nil, err
		}
		out[formID] = append(out[formID], d)
	}
	return out, rows.Err()
}

var formOrderColumns = map[string]string{
	"createdAt": "f.created_at",
	"updatedAt": "f.updated_at",
	"name":      "f.name",
	"total":     "f.total",
}

// List returns one page of forms with their details and the total match count.
func (r *PGRepository) List(ctx context.Context, filter ListFilter) ([]Form, int, error) {
	w := &db.Where{}
	if filter.Name != "" {
		w.Add("f.name ILIKE ?", db.Contains(filter.Name))
	}
	if filter.IsDeleted != nil {
		w.Add("f.is_deleted = ?", *filter.IsDeleted)
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM forms f`+w.SQL(), w.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + formColumns + ` FROM forms f` + w.SQL() +
		` ORDER BY ` + shared.OrderClause(filter.Order, formOrderColumns, "f.created_at ASC") +
		` LIMIT ` + w.Arg(filter.Page.Limit) + ` OFFSET ` + w.Arg(filter.Page.Offset)
	rows, err := r.pool.Query(ctx, query, w.Args()...)
	if err != nil {
		return nil, 0, err
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Form, error) { return scanForm(row) })
	if err != nil {
		return nil, 0, err
	}
	ids := make([]uuid.UUID, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	details, err := r.details(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range items {
		items[i].Details = details[items[i].ID]
		if items[i].Details == nil {
			items[i].Details = []Detail{}
		}
	}
	return items, total, nil
}

// Undelete restores a form. Its user forms stay deleted.
func (r *PGRepository) Undelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE forms SET is_deleted = FALSE, deleted_at = NULL, deleted_by = NULL, updated_at = NOW()
WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

type txRepo struct {
	tx pgx.Tx
}

func (t *txRepo) InsertForm(ctx context.Context, f Form) error {
	_, err := t.tx.Exec(ctx, `
INSERT INTO forms (id, name, description, total, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`, f.ID, f.Name, f.Description, f.Total, f.CreatedBy, f.CreatedAt)
	return err
}

func (t *txRepo) InsertDetail(ctx context.Context, formID uuid.UUID, d DetailInput) error {
	_, err := t.tx.Exec(ctx, `
INSERT INTO form_details (id, form_id, content, "index") VALUES ($1, $2, $3, $4)`,
		d.ID, formID, d.Content, *d.Index)
	if db.IsUniqueViolation(err) {
		return shared.BadRequest("Form detail id already exists", shared.Context{"formDetailId": d.ID.String()})
	}
	return err
}

func (t *txRepo) UpdateDetail(ctx context.Context, formID uuid.UUID, d DetailInput) error {
	tag, err := t.tx.Exec(ctx, `
UPDATE form_details SET content = $3, "index" = $4, is_deleted = FALSE, deleted_at = NULL, updated_at = NOW()
WHERE id = $1 AND form_id = $2`, d.ID, formID, d.Content, *d.Index)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (t *txRepo) DetailIDs(ctx context.Context, formID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := t.tx.Query(ctx, `SELECT id FROM form_details WHERE form_id = $1 AND is_deleted = FALSE`, formID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

// DeleteDetails soft-deletes the details and every answer given to them.
func (t *txRepo) DeleteDetails(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := t.tx.Exec(ctx, `
UPDATE form_details SET is_deleted = TRUE, deleted_at = NOW() WHERE id = ANY($1)`, ids); err != nil {
		return err
	}
	_, err := t.tx.Exec(ctx, `
UPDATE user_form_details SET is_deleted = TRUE, deleted_at = NOW() WHERE form_detail_id = ANY($1)`, ids)
	return err
}

func (t *txRepo) UpdateForm(ctx context.Context, id uuid.UUID, req UpdateRequest, actor uuid.UUID) error {
	tag, err := t.tx.Exec(ctx, `
UPDATE forms SET name = $2, description = $3, total = $4, updated_by = $5, updated_at = NOW()
WHERE id = $1`, id, req.Name, req.Description, *req.Total, actor)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// AssignUsers creates a NEW user form per user. Every user must exist.
func (t *txRepo) AssignUsers(ctx context.Context, formID uuid.UUID, userIDs []uuid.UUID, actor uuid.UUID) ([]Assignment, error) {
	rows, err := t.tx.Query(ctx, `
SELECT id, email, first_name, last_name, employee_id FROM users WHERE id = ANY($1)`, userIDs)
	if err != nil {
		return nil, err
	}
	found := map[uuid.UUID]Assignment{}
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.UserID, &a.Recipient.Email, &a.Recipient.FirstName, &a.Recipient.LastName, &a.Recipient.EmployeeID); err != nil {
			rows.Close()
			return nil, err
		}
		found[a.UserID] = a
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	var missing []string
	for _, id := range userIDs {
		if _, ok := found[id]; !ok {
			missing = append(missing, id.String())
		}
	}
	if len(missing) > 0 {
		return nil, shared.NotFound("One or more users not found. See details in context.", shared.Context{"api": "assignUsers", "result": missing})
	}

	out := make([]Assignment, 0, len(userIDs))
	for _, id := range userIDs {
		a := found[id]
		a.UserFormID = uuid.New()
		if _, err := t.tx.Exec(ctx, `
INSERT INTO user_forms (id, user_id, form_id, status, created_by) VALUES ($1, $2, $3, 'NEW', $4)`,
			a.UserFormID, a.UserID, formID, actor); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// Delete soft-deletes the form and all of its user forms.
func (t *txRepo) Delete(ctx context.Context, id uuid.UUID, actor uuid.UUID) error {
	tag, err := t.tx.Exec(ctx, `
UPDATE forms SET is_deleted = TRUE, deleted_at = NOW(), deleted_by = $2 WHERE id = $1`, id, actor)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	_, err = t.tx.Exec(ctx, `
UPDATE user_forms SET is_deleted = TRUE, deleted_at = NOW(), deleted_by = $2
WHERE form_id = $1 AND is_deleted = FALSE`, id, actor)
	return err
}

var _ Repository = (*PGRepository)(nil)
