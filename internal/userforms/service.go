package userforms

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/odyssey-erp/hrforms/internal/notify"
	"github.com/odyssey-erp/hrforms/internal/rbac"
	"github.com/odyssey-erp/hrforms/internal/shared"
)

// Invalidator drops derived views, such as cached reports, after a change.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Service handles user form business logic.
type Service struct {
	repo        Repository
	engine      *rbac.Engine
	notifier    notify.Notifier
	logger      *slog.Logger
	invalidator Invalidator
}

// NewService builds Service instance. A nil notifier disables notifications.
func NewService(repo Repository, engine *rbac.Engine, notifier notify.Notifier, logger *slog.Logger) *Service {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, engine: engine, notifier: notifier, logger: logger}
}

// UseInvalidator registers a hook run after every committed change.
func (s *Service) UseInvalidator(inv Invalidator) {
	s.invalidator = inv
}

func (s *Service) changed(ctx context.Context, subject slog.Attr) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx); err != nil {
		s.logger.Warn("invalidate after user form change", subject, slog.Any("error", err))
	}
}

// ManagerOf resolves the direct manager of a form owner.
func (s *Service) ManagerOf(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	owner, err := s.owner(ctx, userID, shared.Context{"api": "getManager", "userId": userID.String()})
	if err != nil {
		return uuid.Nil, err
	}
	if owner.ManagerID == nil {
		return uuid.Nil, shared.NotFound("User not have manager", shared.Context{"api": "getManager", "userId": userID.String()})
	}
	return *owner.ManagerID, nil
}

func (s *Service) owner(ctx context.Context, userID uuid.UUID, errCtx shared.Context) (Owner, error) {
	owners, err := s.repo.Owners(ctx, []uuid.UUID{userID})
	if err != nil {
		return Owner{}, shared.Database(err, errCtx)
	}
	owner, ok := owners[userID]
	if !ok {
		return Owner{}, shared.NotFound("User not found", errCtx)
	}
	return owner, nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID, errCtx shared.Context) (UserForm, error) {
	uf, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return UserForm{}, shared.NotFound("User form not found", errCtx)
		}
		return UserForm{}, shared.Database(err, errCtx)
	}
	return uf, nil
}

func (s *Service) detail(ctx context.Context, id uuid.UUID, errCtx shared.Context) (Detail, error) {
	detail, err := s.repo.GetDetail(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Detail{}, shared.NotFound("User form not found", errCtx)
		}
		return Detail{}, shared.Database(err, errCtx)
	}
	return detail, nil
}

// above reports whether the caller outranks role.
func (s *Service) above(caller shared.Identity, role rbac.RoleName) (bool, error) {
	highest, err := s.engine.HighestRank(caller)
	if err != nil {
		return false, err
	}
	rank, _ := s.engine.Ranks().Rank(role)
	return highest > rank, nil
}

// List returns one page of user forms. Employees see their own forms,
// Managers add their direct reports and higher ranks see everything.
func (s *Service) List(ctx context.Context, caller shared.Identity, filter ListFilter) (shared.ListResult[ListItem], error) {
	highest, err := s.engine.HighestRank(caller)
	if err != nil {
		return shared.ListResult[ListItem]{}, err
	}
	ranks := s.engine.Ranks()
	filter.CallerID = caller.UserID
	switch {
	case highest <= ranks.MustRank(rbac.Employee):
		filter.Scope = ScopeOwn
	case highest <= ranks.MustRank(rbac.Manager):
		filter.Scope = ScopeTeam
	default:
		filter.Scope = ScopeAll
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return shared.ListResult[ListItem]{}, shared.Database(err, shared.Context{"api": "getUserForms"})
	}
	return shared.NewListResult(items, filter.Page, total), nil
}

// Get returns the user form with its questions and answers. Deleted user
// forms are hidden from callers ranked Manager or below.
func (s *Service) Get(ctx context.Context, caller shared.Identity, id uuid.UUID) (Detail, error) {
	errCtx := shared.Context{"api": "getUserForm", "userFormId": id.String()}
	detail, err := s.detail(ctx, id, errCtx)
	if err != nil {
		return Detail{}, err
	}
	if detail.IsDeleted {
		privileged, err := s.above(caller, rbac.Manager)
		if err != nil {
			return Detail{}, err
		}
		if !privileged {
			return Detail{}, shared.NotFound("User form has been deleted", errCtx)
		}
	}
	if err := s.engine.AuthorizeOwnerOrManager(ctx, caller, detail.UserID, s); err != nil {
		return Detail{}, err
	}
	return detail, nil
}

func (s *Service) authorizeOwner(caller shared.Identity, uf UserForm, errCtx shared.Context) error {
	if caller.UserID == uf.UserID {
		return nil
	}
	roles, err := s.engine.Roles(caller)
	if err != nil {
		return err
	}
	if s.engine.Ranks().IsTop(roles) {
		return nil
	}
	return shared.Authorization("You are not the owner of this user form", errCtx)
}

// checkQuestions rejects answers keyed by details outside the form's active questions.
func checkQuestions(form FormSummary, answers Answers, errCtx shared.Context) error {
	known := make(map[uuid.UUID]bool, len(form.Questions))
	for _, q := range form.Questions {
		known[q.ID] = true
	}
	var unknown []string
	for id := range answers {
		if !known[id] {
			unknown = append(unknown, id.String())
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	slices.Sort(unknown)
	ctx := shared.Context{"result": unknown}
	for k, v := range errCtx {
		ctx[k] = v
	}
	return shared.BadRequest("One or more form details do not belong to this form. See details in context.", ctx)
}

func (s *Service) txError(err error, errCtx shared.Context) error {
	if errors.Is(err, ErrStaleState) {
		return shared.BadRequest("User form was changed by another request", errCtx)
	}
	return shared.Database(err, errCtx)
}

// Submit stores the owner's first answers and sends the form to their manager.
func (s *Service) Submit(ctx context.Context, caller shared.Identity, id uuid.UUID, answers Answers) (Detail, error) {
	errCtx := shared.Context{"api": "userForm.submit", "userFormId": id.String()}
	uf, err := s.load(ctx, id, errCtx)
	if err != nil {
		return Detail{}, err
	}
	if err := s.authorizeOwner(caller, uf, errCtx); err != nil {
		return Detail{}, err
	}
	next, err := Transition(uf.State(), ActionSubmit)
	if err != nil {
		return Detail{}, err
	}
	owner, err := s.owner(ctx, uf.UserID, errCtx)
	if err != nil {
		return Detail{}, err
	}
	if owner.ManagerID == nil {
		return Detail{}, shared.NotFound("User not have manager", errCtx)
	}
	manager, err := s.owner(ctx, *owner.ManagerID, errCtx)
	if err != nil {
		return Detail{}, err
	}
	form, err := s.form(ctx, uf.FormID, errCtx)
	if err != nil {
		return Detail{}, err
	}
	if err := checkQuestions(form, answers, errCtx); err != nil {
		return Detail{}, err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.SetStatus(ctx, id, uf.Status, next.Status, caller.UserID, true); err != nil {
			return err
		}
		return tx.SaveAnswers(ctx, id, answers)
	})
	if err != nil {
		return Detail{}, s.txError(err, errCtx)
	}
	s.changed(ctx, slog.String("user_form_id", id.String()))
	s.notifier.Notify(ctx, notify.Event{
		Kind:       notify.KindUserFormSubmitted,
		UserFormID: id,
		FormName:   form.Name,
		Recipient:  manager.Person,
		Employee:   owner.Person,
	})
	return s.detail(ctx, id, errCtx)
}

func (s *Service) form(ctx context.Context, formID uuid.UUID, errCtx shared.Context) (FormSummary, error) {
	form, err := s.repo.Form(ctx, formID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return FormSummary{}, shared.NotFound("Form not found", errCtx)
		}
		return FormSummary{}, shared.Database(err, errCtx)
	}
	return form, nil
}

// Update replaces the owner's answers and sends the form back for approval.
// Evaluations from an earlier rejection are cleared.
func (s *Service) Update(ctx context.Context, caller shared.Identity, id uuid.UUID, answers Answers) (Detail, error) {
	errCtx := shared.Context{"api": "userForm.update", "userFormId": id.String()}
	uf, err := s.load(ctx, id, errCtx)
	if err != nil {
		return Detail{}, err
	}
	if err := s.authorizeOwner(caller, uf, errCtx); err != nil {
		return Detail{}, err
	}
	next, err := Transition(uf.State(), ActionUpdate)
	if err != nil {
		return Detail{}, err
	}
	form, err := s.form(ctx, uf.FormID, errCtx)
	if err != nil {
		return Detail{}, err
	}
	if err := checkQuestions(form, answers, errCtx); err != nil {
		return Detail{}, err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.SetStatus(ctx, id, uf.Status, next.Status, caller.UserID, true); err != nil {
			return err
		}
		return tx.SaveAnswers(ctx, id, answers)
	})
	if err != nil {
		return Detail{}, s.txError(err, errCtx)
	}
	s.changed(ctx, slog.String("user_form_id", id.String()))
	return s.detail(ctx, id, errCtx)
}

// Approve records the manager's evaluations and approves the form.
func (s *Service) Approve(ctx context.Context, caller shared.Identity, id uuid.UUID, evaluations Answers) (Detail, error) {
	return s.review(ctx, caller, id, ActionApprove, evaluations)
}

// Reject records the manager's evaluations and returns the form to its owner.
func (s *Service) Reject(ctx context.Context, caller shared.Identity, id uuid.UUID, evaluations Answers) (Detail, error) {
	return s.review(ctx, caller, id, ActionReject, evaluations)
}

func (s *Service) review(ctx context.Context, caller shared.Identity, id uuid.UUID, action Action, evaluations Answers) (Detail, error) {
	errCtx := shared.Context{"api": "userForm." + action.String(), "userFormId": id.String()}
	uf, err := s.load(ctx, id, errCtx)
	if err != nil {
		return Detail{}, err
	}
	if err := s.engine.AuthorizeDirectManager(ctx, caller, uf.UserID, s); err != nil {
		return Detail{}, err
	}
	next, err := Transition(uf.State(), action)
	if err != nil {
		return Detail{}, err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.SetStatus(ctx, id, uf.Status, next.Status, caller.UserID, false); err != nil {
			return err
		}
		return tx.Evaluate(ctx, id, evaluations)
	})
	if err != nil {
		return Detail{}, s.txError(err, errCtx)
	}
	s.changed(ctx, slog.String("user_form_id", id.String()))
	if action == ActionReject {
		s.notifyRejected(ctx, uf, errCtx)
	}
	return s.detail(ctx, id, errCtx)
}

// notifyRejected runs after commit, so lookup failures are only logged.
func (s *Service) notifyRejected(ctx context.Context, uf UserForm, errCtx shared.Context) {
	owner, err := s.owner(ctx, uf.UserID, errCtx)
	if err != nil {
		s.logger.Warn("reject notification skipped", slog.String("user_form_id", uf.ID.String()), slog.Any("error", err))
		return
	}
	form, err := s.form(ctx, uf.FormID, errCtx)
	if err != nil {
		s.logger.Warn("reject notification skipped", slog.String("user_form_id", uf.ID.String()), slog.Any("error", err))
		return
	}
	s.notifier.Notify(ctx, notify.Event{
		Kind:       notify.KindUserFormRejected,
		UserFormID: uf.ID,
		FormName:   form.Name,
		Recipient:  owner.Person,
		Employee:   owner.Person,
	})
}

// Close moves an approved form to CLOSED.
func (s *Service) Close(ctx context.Context, caller shared.Identity, id uuid.UUID) (UserForm, error) {
	errCtx := shared.Context{"api": "userForm.close", "userFormId": id.String()}
	uf, err := s.load(ctx, id, errCtx)
	if err != nil {
		return UserForm{}, err
	}
	next, err := Transition(uf.State(), ActionClose)
	if err != nil {
		return UserForm{}, err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.SetStatus(ctx, id, uf.Status, next.Status, caller.UserID, false)
	})
	if err != nil {
		return UserForm{}, s.txError(err, errCtx)
	}
	s.changed(ctx, slog.String("user_form_id", id.String()))
	return s.load(ctx, id, errCtx)
}

// Delete soft-deletes the user form.
func (s *Service) Delete(ctx context.Context, caller shared.Identity, id uuid.UUID) (UserForm, error) {
	return s.toggle(ctx, caller, id, ActionDelete)
}

// Undelete restores a soft-deleted user form.
func (s *Service) Undelete(ctx context.Context, caller shared.Identity, id uuid.UUID) (UserForm, error) {
	return s.toggle(ctx, caller, id, ActionUndelete)
}

func (s *Service) toggle(ctx context.Context, caller shared.Identity, id uuid.UUID, action Action) (UserForm, error) {
	errCtx := shared.Context{"api": "userForm." + action.String(), "userFormId": id.String()}
	uf, err := s.load(ctx, id, errCtx)
	if err != nil {
		return UserForm{}, err
	}
	next, err := Transition(uf.State(), action)
	if err != nil {
		return UserForm{}, err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.SetDeleted(ctx, id, next.Deleted, caller.UserID)
	})
	if err != nil {
		if errors.Is(err, ErrStaleState) {
			return UserForm{}, rejected(action, uf.State(), "User form was changed by another request")
		}
		return UserForm{}, shared.Database(err, errCtx)
	}
	s.changed(ctx, slog.String("user_form_id", id.String()))
	return s.load(ctx, id, errCtx)
}

// Assign creates a NEW user form per listed user and notifies each of them.
func (s *Service) Assign(ctx context.Context, caller shared.Identity, req AssignRequest) ([]UserForm, error) {
	errCtx := shared.Context{"api": "assignUserForms", "formId": req.FormID.String()}
	form, err := s.form(ctx, req.FormID, errCtx)
	if err != nil {
		return nil, err
	}
	if form.IsDeleted {
		return nil, shared.BadRequest("Form is deleted", errCtx)
	}
	userIDs := make([]uuid.UUID, 0, len(req.UserIDs))
	for _, id := range req.UserIDs {
		if !slices.Contains(userIDs, id) {
			userIDs = append(userIDs, id)
		}
	}
	owners, err := s.repo.Owners(ctx, userIDs)
	if err != nil {
		return nil, shared.Database(err, errCtx)
	}
	var missing []string
	for _, id := range userIDs {
		if o, ok := owners[id]; !ok || o.IsDeleted {
			missing = append(missing, id.String())
		}
	}
	if len(missing) > 0 {
		return nil, shared.NotFound("One or more users not found. See details in context.",
			shared.Context{"api": "assignUserForms", "result": missing})
	}

	var created []UserForm
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		batch := make([]UserForm, 0, len(userIDs))
		for _, userID := range userIDs {
			id, err := tx.Insert(ctx, req.FormID, userID, caller.UserID)
			if err != nil {
				return err
			}
			actor := caller.UserID
			batch = append(batch, UserForm{ID: id, UserID: userID, FormID: req.FormID, Status: StatusNew, CreatedBy: &actor})
		}
		// WithTx reruns this on serialization failure; only the committing attempt counts.
		created = batch
		return nil
	})
	if err != nil {
		return nil, shared.Database(err, errCtx)
	}
	s.changed(ctx, slog.String("form_id", req.FormID.String()))
	for _, uf := range created {
		s.notifier.Notify(ctx, notify.Event{
			Kind:       notify.KindFormAssigned,
			UserFormID: uf.ID,
			FormName:   form.Name,
			Recipient:  owners[uf.UserID].Person,
		})
	}
	return created, nil
}

var _ rbac.ManagerResolver = (*Service)(nil)
