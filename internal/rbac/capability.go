package rbac

import "net/http"

// Capability is one of the five permission bits of a grant.
type Capability int

const (
	CapRead Capability = iota + 1
	CapAdd
	CapEdit
	CapDelete
	CapApprove
)

func (c Capability) String() string {
	switch c {
	case CapRead:
		return "read"
	case CapAdd:
		return "add"
	case CapEdit:
		return "edit"
	case CapDelete:
		return "delete"
	case CapApprove:
		return "approve"
	default:
		return "unknown"
	}
}

// Verb is an HTTP method that can be authorised.
type Verb int

const (
	VerbGet Verb = iota
	VerbPost
	VerbPatch
	VerbDelete
	verbCount
)

// verbCapabilities must have an entry for every Verb below verbCount.
var verbCapabilities = [verbCount]Capability{
	VerbGet:    CapRead,
	VerbPost:   CapAdd,
	VerbPatch:  CapEdit,
	VerbDelete: CapDelete,
}

var verbNames = [verbCount]string{
	VerbGet:    http.MethodGet,
	VerbPost:   http.MethodPost,
	VerbPatch:  http.MethodPatch,
	VerbDelete: http.MethodDelete,
}

// Verbs lists every authorisable verb.
func Verbs() []Verb {
	verbs := make([]Verb, 0, verbCount)
	for v := Verb(0); v < verbCount; v++ {
		verbs = append(verbs, v)
	}
	return verbs
}

// ParseVerb maps an HTTP method to a Verb.
func ParseVerb(method string) (Verb, bool) {
	for v, name := range verbNames {
		if name == method {
			return Verb(v), true
		}
	}
	return 0, false
}

// Capability returns the capability a verb requires.
func (v Verb) Capability() Capability {
	if v < 0 || v >= verbCount {
		return 0
	}
	return verbCapabilities[v]
}

func (v Verb) String() string {
	if v < 0 || v >= verbCount {
		return "UNKNOWN"
	}
	return verbNames[v]
}

// Permission is a capability set for one API path. It is used both for a
// single role's grant and for the merged result across roles.
type Permission struct {
	API          string `json:"api"`
	IsCanRead    bool   `json:"isCanRead"`
	IsCanAdd     bool   `json:"isCanAdd"`
	IsCanEdit    bool   `json:"isCanEdit"`
	IsCanDelete  bool   `json:"isCanDelete"`
	IsCanApprove bool   `json:"isCanApprove"`
}

// Allows reports whether the permission grants c.
func (p Permission) Allows(c Capability) bool {
	switch c {
	case CapRead:
		return p.IsCanRead
	case CapAdd:
		return p.IsCanAdd
	case CapEdit:
		return p.IsCanEdit
	case CapDelete:
		return p.IsCanDelete
	case CapApprove:
		return p.IsCanApprove
	default:
		return false
	}
}

func (p Permission) merge(other Permission) Permission {
	p.IsCanRead = p.IsCanRead || other.IsCanRead
	p.IsCanAdd = p.IsCanAdd || other.IsCanAdd
	p.IsCanEdit = p.IsCanEdit || other.IsCanEdit
	p.IsCanDelete = p.IsCanDelete || other.IsCanDelete
	p.IsCanApprove = p.IsCanApprove || other.IsCanApprove
	return p
}
