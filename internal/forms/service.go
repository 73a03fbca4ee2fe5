package forms

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/hrforms/internal/notify"
	"github.com/odyssey-erp/hrforms/internal/shared"
)

// Service handles form business logic.
type Service struct {
	repo     Repository
	notifier notify.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds Service instance. A nil notifier disables notifications.
func NewService(repo Repository, notifier notify.Notifier, logger *slog.Logger) *Service {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, notifier: notifier, logger: logger, now: time.Now}
}

func checkDetails(op string, details []DetailInput) error {
	seen := make(map[uuid.UUID]bool, len(details))
	var duplicated []string
	for _, d := range details {
		if seen[d.ID] {
			duplicated = append(duplicated, d.ID.String())
		}
		seen[d.ID] = true
	}
	if len(duplicated) > 0 {
		return shared.BadRequest("One or more form details are listed twice. See details in context.",
			shared.Context{"api": op, "result": duplicated})
	}
	return nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// Create stores the form with its details and assigns it to the listed users.
// Assigned users are notified once the transaction has committed.
func (s *Service) Create(ctx context.Context, caller shared.Identity, req CreateRequest) (Form, error) {
	if err := checkDetails("addNewForm", req.Details); err != nil {
		return Form{}, err
	}
	actor := caller.UserID
	form := Form{
		ID:          uuid.New(),
		Name:        req.Name,
		Description: req.Description,
		Total:       *req.Total,
		CreatedAt:   s.now().UTC(),
		CreatedBy:   &actor,
		Details:     make([]Detail, 0, len(req.Details)),
	}
	for _, d := range req.Details {
		form.Details = append(form.Details, Detail{ID: d.ID, Content: d.Content, Index: *d.Index})
	}

	var assigned []Assignment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.InsertForm(ctx, form); err != nil {
			return err
		}
		for _, d := range req.Details {
			if err := tx.InsertDetail(ctx, form.ID, d); err != nil {
				return err
			}
		}
		if len(req.Users) == 0 {
			return nil
		}
		var err error
		assigned, err = tx.AssignUsers(ctx, form.ID, uniqueIDs(req.Users), actor)
		return err
	})
	if err != nil {
		return Form{}, shared.Database(err, shared.Context{"api": "addNewForm"})
	}
	for _, a := range assigned {
		s.notifier.Notify(ctx, notify.Event{
			Kind:       notify.KindFormAssigned,
			UserFormID: a.UserFormID,
			FormName:   form.Name,
			Recipient:  a.Recipient,
		})
	}
	return form, nil
}

// Get returns a form with its active details.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Form, error) {
	errCtx := shared.Context{"api": "getForm", "formId": id.String()}
	form, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Form{}, shared.NotFound("Form not found", errCtx)
		}
		return Form{}, shared.Database(err, errCtx)
	}
	return form, nil
}

// List returns one page of forms.
func (s *Service) List(ctx context.Context, filter ListFilter) (shared.ListResult[Form], error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return shared.ListResult[Form]{}, shared.Database(err, shared.Context{"api": "getForms"})
	}
	return shared.NewListResult(items, filter.Page, total), nil
}

// Update rewrites the form and reconciles its details: listed details are
// created or updated, the rest are soft-deleted together with their answers.
func (s *Service) Update(ctx context.Context, caller shared.Identity, id uuid.UUID, req UpdateRequest) (Form, error) {
	errCtx := shared.Context{"api": "updateForm", "formId": id.String()}
	form, err := s.Get(ctx, id)
	if err != nil {
		return Form{}, err
	}
	if form.IsDeleted {
		return Form{}, shared.BadRequest("Form is deleted", errCtx)
	}
	if err := checkDetails("updateForm", req.Details); err != nil {
		return Form{}, err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.DetailIDs(ctx, id)
		if err != nil {
			return err
		}
		current := make(map[uuid.UUID]bool, len(existing))
		for _, detailID := range existing {
			current[detailID] = true
		}
		keep := make(map[uuid.UUID]bool, len(req.Details))
		for _, d := range req.Details {
			keep[d.ID] = true
			if current[d.ID] {
				err = tx.UpdateDetail(ctx, id, d)
			} else {
				err = tx.InsertDetail(ctx, id, d)
			}
			if err != nil {
				return err
			}
		}
		var removed []uuid.UUID
		for _, detailID := range existing {
			if !keep[detailID] {
				removed = append(removed, detailID)
			}
		}
		if err := tx.DeleteDetails(ctx, removed); err != nil {
			return err
		}
		return tx.UpdateForm(ctx, id, req, caller.UserID)
	})
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Form{}, shared.NotFound("Form not found", errCtx)
		}
		return Form{}, shared.Database(err, errCtx)
	}
	return s.Get(ctx, id)
}

// Delete soft-deletes the form and its user forms. It reports false when the
// form was already deleted, in which case nothing changes.
func (s *Service) Delete(ctx context.Context, caller shared.Identity, id uuid.UUID) (bool, error) {
	errCtx := shared.Context{"api": "deleteForm", "formId": id.String()}
	form, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if form.IsDeleted {
		return false, nil
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.Delete(ctx, id, caller.UserID)
	})
	if err != nil {
		return false, shared.Database(err, errCtx)
	}
	return true, nil
}

// Undelete restores a soft-deleted form.
func (s *Service) Undelete(ctx context.Context, id uuid.UUID) error {
	errCtx := shared.Context{"api": "undeleteForm", "formId": id.String()}
	form, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !form.IsDeleted {
		return shared.BadRequest("Form is already undeleted", errCtx)
	}
	return shared.Database(s.repo.Undelete(ctx, id), errCtx)
}
