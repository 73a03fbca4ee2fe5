package rbac

import "sort"

// Combine merges per-role grants into one permission per API path. Each
// capability is the OR across every role granting that path, so the result
// does not depend on role order and never loses a capability when a role is added.
func Combine(byRole map[RoleName][]Permission) []Permission {
	merged := make(map[string]Permission)
	for _, grants := range byRole {
		for _, g := range grants {
			current, ok := merged[g.API]
			if !ok {
				current = Permission{API: g.API}
			}
			merged[g.API] = current.merge(g)
		}
	}
	out := make([]Permission, 0, len(merged))
	for _, p := range merged {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].API < out[j].API })
	return out
}

// Find returns the permission for api.
func Find(perms []Permission, api string) (Permission, bool) {
	for _, p := range perms {
		if p.API == api {
			return p, true
		}
	}
	return Permission{}, false
}
