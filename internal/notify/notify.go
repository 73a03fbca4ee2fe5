// Package notify turns user-form lifecycle events into queued mail.
package notify

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Kind identifies a notification event.
type Kind string

const (
	KindFormAssigned      Kind = "form_assigned"
	KindUserFormSubmitted Kind = "user_form_submitted"
	KindUserFormRejected  Kind = "user_form_rejected"
)

// Person is the addressing data needed to render a mail.
type Person struct {
	Email      string
	FirstName  string
	LastName   string
	EmployeeID string
}

// DisplayName renders "Last First" in title case.
func (p Person) DisplayName() string {
	caser := cases.Title(language.Und)
	return strings.TrimSpace(caser.String(strings.TrimSpace(p.LastName + " " + p.FirstName)))
}

// Event describes one notification. Recipient receives the mail; Employee is
// the form owner when the recipient is their manager.
type Event struct {
	Kind       Kind
	UserFormID uuid.UUID
	FormName   string
	Recipient  Person
	Employee   Person
}

// Notifier accepts events without blocking the caller. Delivery failures are
// never reported back.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// Nop discards every event.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(context.Context, Event) {}
