package rbac

import (
	"errors"
	"fmt"
)

// RoleName identifies one of the fixed organisational roles.
type RoleName string

const (
	Employee RoleName = "Employee"
	Manager  RoleName = "Manager"
	HR       RoleName = "HR"
	Director RoleName = "Director"
	Admin    RoleName = "Admin"
)

var (
	// ErrNoRoles is returned when a rank is requested for an empty role list.
	ErrNoRoles = errors.New("rbac: empty role list")
	// ErrUnknownRole is returned for names outside the rank table.
	ErrUnknownRole = errors.New("rbac: unknown role")
)

// RankTable maps role names to their rank. The zero value is empty; build one
// with NewRankTable or DefaultRanks. A RankTable is never mutated after construction.
type RankTable struct {
	ranks map[RoleName]int
	order []RoleName
}

// NewRankTable ranks roles by position, lowest first, starting at 1.
func NewRankTable(ordered ...RoleName) (RankTable, error) {
	if len(ordered) == 0 {
		return RankTable{}, ErrNoRoles
	}
	ranks := make(map[RoleName]int, len(ordered))
	for i, name := range ordered {
		if _, dup := ranks[name]; dup {
			return RankTable{}, fmt.Errorf("rbac: duplicate role %q", name)
		}
		ranks[name] = i + 1
	}
	order := append([]RoleName(nil), ordered...)
	return RankTable{ranks: ranks, order: order}, nil
}

// DefaultRanks returns Employee=1, Manager=2, HR=3, Director=4, Admin=5.
func DefaultRanks() RankTable {
	table, _ := NewRankTable(Employee, Manager, HR, Director, Admin)
	return table
}

// Rank returns the rank for name.
func (t RankTable) Rank(name RoleName) (int, bool) {
	r, ok := t.ranks[name]
	return r, ok
}

// MustRank returns the rank for a role known to be in the table.
func (t RankTable) MustRank(name RoleName) int {
	r, ok := t.ranks[name]
	if !ok {
		panic(fmt.Sprintf("rbac: role %q not in rank table", name))
	}
	return r
}

// Roles lists the table's roles from lowest to highest rank.
func (t RankTable) Roles() []RoleName {
	return append([]RoleName(nil), t.order...)
}

// Top returns the highest ranked role.
func (t RankTable) Top() RoleName {
	if len(t.order) == 0 {
		return ""
	}
	return t.order[len(t.order)-1]
}

// Highest returns the maximum rank held. An empty list is an error.
func (t RankTable) Highest(names []RoleName) (int, error) {
	if len(names) == 0 {
		return 0, ErrNoRoles
	}
	highest := 0
	for _, name := range names {
		r, ok := t.ranks[name]
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrUnknownRole, name)
		}
		if r > highest {
			highest = r
		}
	}
	return highest, nil
}

// IsTop reports whether names contains the highest ranked role.
func (t RankTable) IsTop(names []RoleName) bool {
	top := t.Top()
	for _, name := range names {
		if name == top {
			return true
		}
	}
	return false
}

// Parse converts raw claim values into role names, rejecting unknown ones.
func (t RankTable) Parse(raw []string) ([]RoleName, error) {
	if len(raw) == 0 {
		return nil, ErrNoRoles
	}
	names := make([]RoleName, 0, len(raw))
	for _, r := range raw {
		name := RoleName(r)
		if _, ok := t.ranks[name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownRole, r)
		}
		names = append(names, name)
	}
	return names, nil
}

// Has reports whether names contains role.
func Has(names []RoleName, role RoleName) bool {
	for _, n := range names {
		if n == role {
			return true
		}
	}
	return false
}
