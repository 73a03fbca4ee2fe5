package forms

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/odyssey-erp/hrforms/internal/notify"
	"github.com/odyssey-erp/hrforms/internal/shared"
)

type storedDetail struct {
	formID  uuid.UUID
	detail  Detail
	deleted bool
}

type userForm struct {
	userID  uuid.UUID
	formID  uuid.UUID
	deleted bool
}

type mockRepository struct {
	mu          sync.Mutex
	forms       map[uuid.UUID]*Form
	details     map[uuid.UUID]*storedDetail
	userForms   map[uuid.UUID]*userForm
	answers     map[uuid.UUID]bool // form detail id -> answer deleted
	users       map[uuid.UUID]notify.Person
	failTx      error
	failOnWrite error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		forms:     map[uuid.UUID]*Form{},
		details:   map[uuid.UUID]*storedDetail{},
		userForms: map[uuid.UUID]*userForm{},
		answers:   map[uuid.UUID]bool{},
		users:     map[uuid.UUID]notify.Person{},
	}
}

func (m *mockRepository) addUser(email string) uuid.UUID {
	id := uuid.New()
	m.users[id] = notify.Person{Email: email, FirstName: "first", LastName: "last"}
	return id
}

func (m *mockRepository) Get(_ context.Context, id uuid.UUID) (Form, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.forms[id]
	if !ok {
		return Form{}, shared.ErrNotFound
	}
	out := *f
	out.Details = []Detail{}
	for _, d := range m.details {
		if d.formID == id && !d.deleted {
			out.Details = append(out.Details, d.detail)
		}
	}
	return out, nil
}

func (m *mockRepository) List(ctx context.Context, filter ListFilter) ([]Form, int, error) {
	var out []Form
	for id, f := range m.forms {
		if filter.IsDeleted != nil && f.IsDeleted != *filter.IsDeleted {
			continue
		}
		form, _ := m.Get(ctx, id)
		out = append(out, form)
	}
	return out, len(out), nil
}

func (m *mockRepository) Undelete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forms[id].IsDeleted = false
	return nil
}

// WithTx applies the callback to a staged copy and commits it only on success.
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

type mockTx struct {
	parent *mockRepository
	ops    []func()
}

func (t *mockTx) InsertForm(_ context.Context, f Form) error {
	t.ops = append(t.ops, func() {
		stored := f
		stored.Details = nil
		t.parent.forms[f.ID] = &stored
	})
	return nil
}

func (t *mockTx) InsertDetail(_ context.Context, formID uuid.UUID, d DetailInput) error {
	if t.parent.failOnWrite != nil {
		return t.parent.failOnWrite
	}
	if _, ok := t.parent.details[d.ID]; ok {
		return shared.BadRequest("Form detail id already exists", nil)
	}
	t.ops = append(t.ops, func() {
		t.parent.details[d.ID] = &storedDetail{formID: formID, detail: Detail{ID: d.ID, Content: d.Content, Index: *d.Index}}
	})
	return nil
}

func (t *mockTx) UpdateDetail(_ context.Context, _ uuid.UUID, d DetailInput) error {
	t.ops = append(t.ops, func() {
		t.parent.details[d.ID].detail = Detail{ID: d.ID, Content: d.Content, Index: *d.Index}
	})
	return nil
}

func (t *mockTx) DetailIDs(_ context.Context, formID uuid.UUID) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for id, d := range t.parent.details {
		if d.formID == formID && !d.deleted {
			out = append(out, id)
		}
	}
	return out, nil
}

func (t *mockTx) DeleteDetails(_ context.Context, ids []uuid.UUID) error {
	t.ops = append(t.ops, func() {
		for _, id := range ids {
			t.parent.details[id].deleted = true
			if _, ok := t.parent.answers[id]; ok {
				t.parent.answers[id] = true
			}
		}
	})
	return nil
}

func (t *mockTx) UpdateForm(_ context.Context, id uuid.UUID, req UpdateRequest, actor uuid.UUID) error {
	t.ops = append(t.ops, func() {
		f := t.parent.forms[id]
		f.Name, f.Description, f.Total = req.Name, req.Description, *req.Total
		f.UpdatedBy = &actor
	})
	return nil
}

func (t *mockTx) AssignUsers(_ context.Context, formID uuid.UUID, userIDs []uuid.UUID, _ uuid.UUID) ([]Assignment, error) {
	var out []Assignment
	for _, id := range userIDs {
		person, ok := t.parent.users[id]
		if !ok {
			return nil, shared.NotFound("One or more users not found. See details in context.", nil)
		}
		a := Assignment{UserFormID: uuid.New(), UserID: id, Recipient: person}
		out = append(out, a)
		t.ops = append(t.ops, func() {
			t.parent.userForms[a.UserFormID] = &userForm{userID: a.UserID, formID: formID}
		})
	}
	return out, nil
}

func (t *mockTx) Delete(_ context.Context, id uuid.UUID, actor uuid.UUID) error {
	t.ops = append(t.ops, func() {
		f := t.parent.forms[id]
		f.IsDeleted = true
		f.DeletedBy = &actor
		for _, uf := range t.parent.userForms {
			if uf.formID == id {
				uf.deleted = true
			}
		}
	})
	return nil
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

func intp(v int) *int { return &v }

func detail(content string, index int) DetailInput {
	return DetailInput{ID: uuid.New(), Content: content, Index: intp(index)}
}
