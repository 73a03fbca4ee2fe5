package userforms

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/odyssey-erp/hrforms/internal/notify"
	"github.com/odyssey-erp/hrforms/internal/shared"
)

type mockRepository struct {
	mu        sync.Mutex
	forms     map[uuid.UUID]FormSummary
	userForms map[uuid.UUID]*UserForm
	answers   map[uuid.UUID]map[uuid.UUID]*Answer
	owners    map[uuid.UUID]Owner
	failTx    error
	// failDetail fails every GetDetail call.
	failDetail error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		forms:     map[uuid.UUID]FormSummary{},
		userForms: map[uuid.UUID]*UserForm{},
		answers:   map[uuid.UUID]map[uuid.UUID]*Answer{},
		owners:    map[uuid.UUID]Owner{},
	}
}

func (m *mockRepository) addUser(email string, manager *uuid.UUID) uuid.UUID {
	id := uuid.New()
	m.owners[id] = Owner{ID: id, ManagerID: manager, Person: notify.Person{Email: email, FirstName: "first", LastName: "last"}}
	return id
}

func (m *mockRepository) addForm(name string, questions int) FormSummary {
	f := FormSummary{ID: uuid.New(), Name: name, Description: name, Total: questions}
	for i := 0; i < questions; i++ {
		f.Questions = append(f.Questions, Question{ID: uuid.New(), Content: "question", Index: i + 1})
	}
	m.forms[f.ID] = f
	return f
}

func (m *mockRepository) addUserForm(formID, userID uuid.UUID, status Status) uuid.UUID {
	id := uuid.New()
	m.userForms[id] = &UserForm{ID: id, FormID: formID, UserID: userID, Status: status}
	return id
}

func (m *mockRepository) status(id uuid.UUID) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userForms[id].State()
}

func (m *mockRepository) Get(_ context.Context, id uuid.UUID) (UserForm, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	uf, ok := m.userForms[id]
	if !ok {
		return UserForm{}, shared.ErrNotFound
	}
	return *uf, nil
}

func (m *mockRepository) GetDetail(ctx context.Context, id uuid.UUID) (Detail, error) {
	if m.failDetail != nil {
		return Detail{}, m.failDetail
	}
	uf, err := m.Get(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	d := Detail{UserForm: uf, Form: m.forms[uf.FormID], Answers: []Answer{}}
	for _, a := range m.answers[id] {
		d.Answers = append(d.Answers, *a)
	}
	return d, nil
}

func (m *mockRepository) List(_ context.Context, filter ListFilter) ([]ListItem, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ListItem
	for _, uf := range m.userForms {
		owner := m.owners[uf.UserID]
		switch filter.Scope {
		case ScopeOwn:
			if uf.UserID != filter.CallerID || uf.IsDeleted {
				continue
			}
		case ScopeTeam:
			mine := uf.UserID == filter.CallerID
			report := owner.ManagerID != nil && *owner.ManagerID == filter.CallerID
			if !(mine || report) || uf.IsDeleted {
				continue
			}
		case ScopeAll:
			if filter.IsDeleted != nil && uf.IsDeleted != *filter.IsDeleted {
				continue
			}
		}
		out = append(out, ListItem{ID: uf.ID, Status: uf.Status, IsDeleted: uf.IsDeleted,
			User: UserSummary{ID: owner.ID, Email: owner.Person.Email}, Form: m.forms[uf.FormID]})
	}
	return out, len(out), nil
}

func (m *mockRepository) Form(_ context.Context, formID uuid.UUID) (FormSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.forms[formID]
	if !ok {
		return FormSummary{}, shared.ErrNotFound
	}
	return f, nil
}

func (m *mockRepository) Owners(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]Owner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[uuid.UUID]Owner{}
	for _, id := range ids {
		if o, ok := m.owners[id]; ok {
			out[id] = o
		}
	}
	return out, nil
}

// WithTx stages writes and applies them only when the callback succeeds.
func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if m.failTx != nil {
		return m.failTx
	}
	tx := &mockTx{parent: m}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, op := range tx.ops {
		op()
	}
	return nil
}

// retryingRepository runs every transaction callback once against a
// discarded transaction before the attempt that commits, the way a
// serialization failure makes the database layer rerun it.
type retryingRepository struct {
	*mockRepository
}

func (r retryingRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if err := fn(ctx, &mockTx{parent: r.mockRepository}); err != nil {
		return err
	}
	return r.mockRepository.WithTx(ctx, fn)
}

type mockTx struct {
	parent *mockRepository
	ops    []func()
}

func (t *mockTx) SetStatus(_ context.Context, id uuid.UUID, from, to Status, actor uuid.UUID, filled bool) error {
	t.parent.mu.Lock()
	uf, ok := t.parent.userForms[id]
	stale := !ok || uf.Status != from || uf.IsDeleted
	t.parent.mu.Unlock()
	if stale {
		return ErrStaleState
	}
	t.ops = append(t.ops, func() {
		uf.Status = to
		uf.UpdatedBy = &actor
		if filled {
			uf.FilledBy = &actor
		}
	})
	return nil
}

func (t *mockTx) SetDeleted(_ context.Context, id uuid.UUID, deleted bool, actor uuid.UUID) error {
	t.parent.mu.Lock()
	uf, ok := t.parent.userForms[id]
	stale := !ok || uf.IsDeleted == deleted
	t.parent.mu.Unlock()
	if stale {
		return ErrStaleState
	}
	t.ops = append(t.ops, func() {
		uf.IsDeleted = deleted
		if deleted {
			uf.DeletedBy = &actor
		} else {
			uf.DeletedBy = nil
		}
	})
	return nil
}

func (t *mockTx) SaveAnswers(_ context.Context, id uuid.UUID, answers Answers) error {
	t.ops = append(t.ops, func() {
		stored := t.parent.answers[id]
		if stored == nil {
			stored = map[uuid.UUID]*Answer{}
			t.parent.answers[id] = stored
		}
		for detailID, text := range answers {
			if a, ok := stored[detailID]; ok {
				a.Answer = text
				a.Evaluation = nil
				continue
			}
			stored[detailID] = &Answer{ID: uuid.New(), FormDetailID: detailID, Answer: text}
		}
	})
	return nil
}

func (t *mockTx) Evaluate(_ context.Context, id uuid.UUID, evaluations Answers) error {
	t.parent.mu.Lock()
	stored := t.parent.answers[id]
	t.parent.mu.Unlock()
	for detailID := range evaluations {
		if _, ok := stored[detailID]; !ok {
			return shared.NotFound("Answer not found for form detail", shared.Context{"formDetailId": detailID.String()})
		}
	}
	t.ops = append(t.ops, func() {
		for detailID, text := range evaluations {
			stored[detailID].Evaluation = &text
		}
	})
	return nil
}

func (t *mockTx) Insert(_ context.Context, formID, userID, actor uuid.UUID) (uuid.UUID, error) {
	id := uuid.New()
	t.ops = append(t.ops, func() {
		t.parent.userForms[id] = &UserForm{ID: id, FormID: formID, UserID: userID, Status: StatusNew, CreatedBy: &actor}
	})
	return id, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Notify(_ context.Context, e notify.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) kinds() []notify.Kind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notify.Kind, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Kind)
	}
	return out
}
