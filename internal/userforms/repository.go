package userforms

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/hrforms/internal/platform/db"
	"github.com/odyssey-erp/hrforms/internal/shared"
)

// ErrStaleState is returned when a guarded update finds the row no longer in
// the expected state.
var ErrStaleState = errors.New("userforms: state changed concurrently")

// Repository defines data access for user forms.
type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (UserForm, error)
	GetDetail(ctx context.Context, id uuid.UUID) (Detail, error)
	List(ctx context.Context, filter ListFilter) ([]ListItem, int, error)
	Form(ctx context.Context, formID uuid.UUID) (FormSummary, error)
	Owners(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Owner, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	SetStatus(ctx context.Context, id uuid.UUID, from, to Status, actor uuid.UUID, filled bool) error
	SetDeleted(ctx context.Context, id uuid.UUID, deleted bool, actor uuid.UUID) error
	SaveAnswers(ctx context.Context, id uuid.UUID, answers Answers) error
	Evaluate(ctx context.Context, id uuid.UUID, evaluations Answers) error
	Insert(ctx context.Context, formID, userID, actor uuid.UUID) (uuid.UUID, error)
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

const userFormColumns = `uf.id, uf.user_id, uf.form_id, uf.status, uf.is_deleted, uf.filled_at, uf.filled_by,
uf.created_at, uf.created_by, uf.updated_at, uf.updated_by, uf.deleted_at, uf.deleted_by`

func scanUserForm(row pgx.Row) (UserForm, error) {
	var u UserForm
	err := row.Scan(&u.ID, &u.UserID, &u.FormID, &u.Status, &u.IsDeleted, &u.FilledAt, &u.FilledBy,
		&u.CreatedAt, &u.CreatedBy, &u.UpdatedAt, &u.UpdatedBy, &u.DeletedAt, &u.DeletedBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return UserForm{}, shared.ErrNotFound
	}
	return u, err
}

// Get returns one user form row.
func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (UserForm, error) {
	return scanUserForm(r.pool.QueryRow(ctx, `SELECT `+userFormColumns+` FROM user_forms uf WHERE uf.id = $1`, id))
}

// GetDetail returns the user form with its form, questions and active answers.
func (r *PGRepository) GetDetail(ctx context.Context, id uuid.UUID) (Detail, error) {
	uf, err := r.Get(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	form, err := r.Form(ctx, uf.FormID)
	if err != nil {
		return Detail{}, err
	}
	rows, err := r.pool.Query(ctx, `
SELECT id, form_detail_id, answer, evaluation
FROM user_form_details
WHERE user_form_id = $1 AND is_deleted = FALSE
ORDER BY created_at`, id)
	if err != nil {
		return Detail{}, err
	}
	answers, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Answer, error) {
		var a Answer
		err := row.Scan(&a.ID, &a.FormDetailID, &a.Answer, &a.Evaluation)
		return a, err
	})
	if err != nil {
		return Detail{}, err
	}
	return Detail{UserForm: uf, Form: form, Answers: answers}, nil
}

// Form returns a form with its active questions.
func (r *PGRepository) Form(ctx context.Context, formID uuid.UUID) (FormSummary, error) {
	var f FormSummary
	err := r.pool.QueryRow(ctx, `SELECT id, name, description, total, is_deleted FROM forms WHERE id = $1`, formID).
		Scan(&f.ID, &f.Name, &f.Description, &f.Total, &f.IsDeleted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FormSummary{}, shared.ErrNotFound
		}
		return FormSummary{}, err
	}
	rows, err := r.pool.Query(ctx, `
SELECT id, content, "index" FROM form_details
WHERE form_id = $1 AND is_deleted = FALSE
ORDER BY "index"`, formID)
	if err != nil {
		return FormSummary{}, err
	}
	f.Questions, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (Question, error) {
		var q Question
		err := row.Scan(&q.ID, &q.Content, &q.Index)
		return q, err
	})
	return f, err
}

// Owners loads the users with the given ids. Missing users are absent from the map.
func (r *PGRepository) Owners(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Owner, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, manager_id, is_deleted, email, first_name, last_name, employee_id
FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uuid.UUID]Owner, len(ids))
	for rows.Next() {
		var o Owner
		if err := rows.Scan(&o.ID, &o.ManagerID, &o.IsDeleted, &o.Person.Email, &o.Person.FirstName, &o.Person.LastName, &o.Person.EmployeeID); err != nil {
			return nil, err
		}
		out[o.ID] = o
	}
	return out, rows.Err()
}

var userFormOrderColumns = map[string]string{
	"createdAt": "uf.created_at",
	"updatedAt": "uf.updated_at",
	"filledAt":  "uf.filled_at",
	"status":    "uf.status",
}

func listWhere(filter ListFilter) *db.Where {
	w := &db.Where{}
	switch filter.Scope {
	case ScopeOwn:
		w.Add("uf.user_id = ?", filter.CallerID)
	case ScopeTeam:
		w.Add("(u.manager_id = ? OR u.id = ?)", filter.CallerID, filter.CallerID)
	}
	if filter.Scope == ScopeAll {
		if filter.IsDeleted != nil {
			w.Add("uf.is_deleted = ?", *filter.IsDeleted)
		}
	} else {
		w.Add("uf.is_deleted = FALSE")
		w.Add("f.is_deleted = FALSE")
	}
	if filter.Name != "" {
		w.Add("CONCAT(u.first_name, ' ', u.last_name) ILIKE ?", db.Contains(filter.Name))
	}
	if filter.UserFormStatus != "" {
		w.Add("uf.status = ?", string(filter.UserFormStatus))
	}
	if filter.UserStatus != "" {
		w.Add("u.status = ?", filter.UserStatus)
	}
	if filter.FormID != nil {
		w.Add("uf.form_id = ?", *filter.FormID)
	}
	if filter.UserID != nil {
		w.Add("uf.user_id = ?", *filter.UserID)
	}
	return w
}

const listFrom = ` FROM user_forms uf JOIN users u ON u.id = uf.user_id JOIN forms f ON f.id = uf.form_id`

// List returns one page of user forms within the filter's scope.
func (r *PGRepository) List(ctx context.Context, filter ListFilter) ([]ListItem, int, error) {
	w := listWhere(filter)
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+listFrom+w.SQL(), w.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `
SELECT uf.id, uf.status, uf.is_deleted, uf.filled_at, uf.created_at, uf.updated_at,
	u.id, u.first_name, u.last_name, u.email, u.employee_id, u.status, u.avatar,
	f.id, f.name, f.description, f.total, f.is_deleted` + listFrom + w.SQL() +
		` ORDER BY ` + shared.OrderClause(filter.Order, userFormOrderColumns, "uf.created_at ASC") +
		` LIMIT ` + w.Arg(filter.Page.Limit) + ` OFFSET ` + w.Arg(filter.Page.Offset)
	rows, err := r.pool.Query(ctx, query, w.Args()...)
	if err != nil {
		return nil, 0, err
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ListItem, error) {
		var it ListItem
		err := row.Scan(&it.ID, &it.Status, &it.IsDeleted, &it.FilledAt, &it.CreatedAt, &it.UpdatedAt,
			&it.User.ID, &it.User.FirstName, &it.User.LastName, &it.User.Email, &it.User.EmployeeID, &it.User.Status, &it.User.Avatar,
			&it.Form.ID, &it.Form.Name, &it.Form.Description, &it.Form.Total, &it.Form.IsDeleted)
		return it, err
	})
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

type txRepo struct {
	tx pgx.Tx
}

// SetStatus moves the row from one status to another. It fails with
// ErrStaleState when the row is no longer active in the from status.
func (t *txRepo) SetStatus(ctx context.Context, id uuid.UUID, from, to Status, actor uuid.UUID, filled bool) error {
	tag, err := t.tx.Exec(ctx, `
UPDATE user_forms SET
	status = $3,
	updated_by = $4,
	updated_at = NOW(),
	filled_at = CASE WHEN $5 THEN NOW() ELSE filled_at END,
	filled_by = CASE WHEN $5 THEN $4 ELSE filled_by END
WHERE id = $1 AND status = $2 AND is_deleted = FALSE`, id, string(from), string(to), actor, filled)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleState
	}
	return nil
}

func (t *txRepo) SetDeleted(ctx context.Context, id uuid.UUID, deleted bool, actor uuid.UUID) error {
	tag, err := t.tx.Exec(ctx, `
UPDATE user_forms SET
	is_deleted = $2,
	deleted_at = CASE WHEN $2 THEN NOW() ELSE NULL END,
	deleted_by = CASE WHEN $2 THEN $3 ELSE NULL END,
	updated_at = NOW()
WHERE id = $1 AND is_deleted <> $2`, id, deleted, actor)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleState
	}
	return nil
}

// SaveAnswers upserts one answer per form detail and clears any evaluation
// left from a previous review.
func (t *txRepo) SaveAnswers(ctx context.Context, id uuid.UUID, answers Answers) error {
	for detailID, text := range answers {
		_, err := t.tx.Exec(ctx, `
INSERT INTO user_form_details (id, user_form_id, form_detail_id, answer)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_form_id, form_detail_id) DO UPDATE
SET answer = EXCLUDED.answer, evaluation = NULL, is_deleted = FALSE, deleted_at = NULL, updated_at = NOW()`,
			uuid.New(), id, detailID, text)
		if db.IsForeignKeyViolation(err) {
			return shared.NotFound("Form detail not found", shared.Context{"formDetailId": detailID.String()})
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Evaluate stores the reviewer's evaluation on answered details.
func (t *txRepo) Evaluate(ctx context.Context, id uuid.UUID, evaluations Answers) error {
	for detailID, text := range evaluations {
		tag, err := t.tx.Exec(ctx, `
UPDATE user_form_details SET evaluation = $3, updated_at = NOW()
WHERE user_form_id = $1 AND form_detail_id = $2 AND is_deleted = FALSE`, id, detailID, text)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.NotFound("Answer not found for form detail", shared.Context{"formDetailId": detailID.String()})
		}
	}
	return nil
}

func (t *txRepo) Insert(ctx context.Context, formID, userID, actor uuid.UUID) (uuid.UUID, error) {
	id := uuid.New()
	_, err := t.tx.Exec(ctx, `
INSERT INTO user_forms (id, user_id, form_id, status, created_by) VALUES ($1, $2, $3, $4, $5)`,
		id, userID, formID, string(StatusNew), actor)
	return id, err
}

var _ Repository = (*PGRepository)(nil)
