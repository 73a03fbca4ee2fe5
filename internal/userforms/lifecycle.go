package userforms

import (
	"errors"

	"github.com/odyssey-erp/hrforms/internal/shared"
)

// Status is the lifecycle position of a user form.
type Status string

const (
	StatusNew             Status = "NEW"
	StatusPendingApproval Status = "PENDING_APPROVAL"
	StatusApproved        Status = "APPROVED"
	StatusRejected        Status = "REJECTED"
	StatusClosed          Status = "CLOSED"
)

// Statuses lists every status in lifecycle order.
func Statuses() []Status {
	return []Status{StatusNew, StatusPendingApproval, StatusApproved, StatusRejected, StatusClosed}
}

func statusValues() []string {
	out := make([]string, 0, 5)
	for _, s := range Statuses() {
		out = append(out, string(s))
	}
	return out
}

// Action is a requested lifecycle mutation.
type Action int

const (
	ActionSubmit Action = iota + 1
	ActionUpdate
	ActionApprove
	ActionReject
	ActionClose
	ActionDelete
	ActionUndelete
)

// Actions lists every action.
func Actions() []Action {
	return []Action{ActionSubmit, ActionUpdate, ActionApprove, ActionReject, ActionClose, ActionDelete, ActionUndelete}
}

func (a Action) String() string {
	switch a {
	case ActionSubmit:
		return "submit"
	case ActionUpdate:
		return "update"
	case ActionApprove:
		return "approve"
	case ActionReject:
		return "reject"
	case ActionClose:
		return "close"
	case ActionDelete:
		return "delete"
	case ActionUndelete:
		return "undelete"
	default:
		return "unknown"
	}
}

// State is a status crossed with the soft-delete flag.
type State struct {
	Status  Status
	Deleted bool
}

// ErrInvalidTransition marks every rejected lifecycle transition.
var ErrInvalidTransition = errors.New("userforms: invalid transition")

func rejected(action Action, from State, message string) error {
	e := shared.BadRequest(message, shared.Context{
		"api":     "userForm." + action.String(),
		"status":  string(from.Status),
		"deleted": from.Deleted,
	})
	e.Err = ErrInvalidTransition
	return e
}

// Transition returns the state reached by applying action to from. Illegal
// pairs fail with a bad-request error wrapping ErrInvalidTransition.
func Transition(from State, action Action) (State, error) {
	switch action {
	case ActionDelete:
		if from.Deleted {
			return from, rejected(action, from, "User form is already deleted")
		}
		return State{Status: from.Status, Deleted: true}, nil
	case ActionUndelete:
		if !from.Deleted {
			return from, rejected(action, from, "User form is already undeleted")
		}
		return State{Status: from.Status}, nil
	}
	if from.Deleted {
		return from, rejected(action, from, "User form is deleted")
	}

	switch action {
	case ActionSubmit:
		if from.Status != StatusNew {
			return from, rejected(action, from, "Form is already submitted")
		}
		return State{Status: StatusPendingApproval}, nil
	case ActionUpdate:
		switch from.Status {
		case StatusPendingApproval, StatusRejected:
			return State{Status: StatusPendingApproval}, nil
		case StatusNew:
			return from, rejected(action, from, "User form is not submitted yet")
		default:
			return from, rejected(action, from, "User form is closed or approved")
		}
	case ActionApprove, ActionReject:
		if from.Status != StatusPendingApproval {
			return from, rejected(action, from, "User form is not pending approval")
		}
		if action == ActionApprove {
			return State{Status: StatusApproved}, nil
		}
		return State{Status: StatusRejected}, nil
	case ActionClose:
		if from.Status != StatusApproved {
			return from, rejected(action, from, "User form is not approved")
		}
		return State{Status: StatusClosed}, nil
	}
	return from, rejected(action, from, "Unknown user form action")
}
