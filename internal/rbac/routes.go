package rbac

import "strings"

// Mount prefixes of the API resources.
const (
	MountUsers       = "/api/users"
	MountForms       = "/api/forms"
	MountUserForms   = "/api/user-forms"
	MountReports     = "/api/reports"
	MountAuth        = "/api/auth"
	MountRoles       = "/api/roles"
	MountUserRoles   = "/api/user-roles"
	MountRoleModules = "/api/role-modules"
)

// Route identifies a protected endpoint. The same identifier registers the
// chi route and keys the role_modules.api column, so both stay in sync.
type Route int

const (
	RouteUsers Route = iota + 1
	RouteUserChangePassword
	RouteUserMeAvatar
	RouteUserRoles
	RouteUserRolesByUser
	RouteUserDelete
	RouteUserUndelete
	RouteUserUpdateStatus
	RouteUserByID

	RouteForms
	RouteFormByID
	RouteFormDelete
	RouteFormUndelete

	RouteUserForms
	RouteUserFormAssign
	RouteUserFormByID
	RouteUserFormApprove
	RouteUserFormReject
	RouteUserFormClose
	RouteUserFormDelete
	RouteUserFormUndelete

	RouteReportForm

	RouteRoles
	RouteRoleByID
	RouteRoleModules

	RouteUserRoleCreate
	RouteUserRoleDelete
	RouteUserRoleUndelete

	RouteRoleModuleDelete
	RouteRoleModuleUndelete

	routeEnd
)

type routeDef struct {
	mount   string
	path    string
	approve bool
}

var routeTable = map[Route]routeDef{
	RouteUsers:              {mount: MountUsers, path: "/"},
	RouteUserChangePassword: {mount: MountUsers, path: "/change-password"},
	RouteUserMeAvatar:       {mount: MountUsers, path: "/me/avatar"},
	RouteUserRoles:          {mount: MountUsers, path: "/user-roles"},
	RouteUserRolesByUser:    {mount: MountUsers, path: "/:userId/user-roles"},
	RouteUserDelete:         {mount: MountUsers, path: "/:userId/delete"},
	RouteUserUndelete:       {mount: MountUsers, path: "/:userId/undelete"},
	RouteUserUpdateStatus:   {mount: MountUsers, path: "/:userId/update-status"},
	RouteUserByID:           {mount: MountUsers, path: "/:userId"},

	RouteForms:        {mount: MountForms, path: "/"},
	RouteFormByID:     {mount: MountForms, path: "/:formId"},
	RouteFormDelete:   {mount: MountForms, path: "/:formId/delete"},
	RouteFormUndelete: {mount: MountForms, path: "/:formId/undelete"},

	RouteUserForms:        {mount: MountUserForms, path: "/"},
	RouteUserFormAssign:   {mount: MountUserForms, path: "/assign"},
	RouteUserFormByID:     {mount: MountUserForms, path: "/:userFormId"},
	RouteUserFormApprove:  {mount: MountUserForms, path: "/:userFormId/approve", approve: true},
	RouteUserFormReject:   {mount: MountUserForms, path: "/:userFormId/reject", approve: true},
	RouteUserFormClose:    {mount: MountUserForms, path: "/:userFormId/close"},
	RouteUserFormDelete:   {mount: MountUserForms, path: "/:userFormId/delete"},
	RouteUserFormUndelete: {mount: MountUserForms, path: "/:userFormId/undelete"},

	RouteReportForm: {mount: MountReports, path: "/forms/:formId"},

	RouteRoles:       {mount: MountRoles, path: "/"},
	RouteRoleByID:    {mount: MountRoles, path: "/:roleId"},
	RouteRoleModules: {mount: MountRoles, path: "/:roleId/role-modules"},

	RouteUserRoleCreate:   {mount: MountUserRoles, path: "/"},
	RouteUserRoleDelete:   {mount: MountUserRoles, path: "/:userRoleId/delete"},
	RouteUserRoleUndelete: {mount: MountUserRoles, path: "/:userRoleId/undelete"},

	RouteRoleModuleDelete:   {mount: MountRoleModules, path: "/:roleModuleId/delete"},
	RouteRoleModuleUndelete: {mount: MountRoleModules, path: "/:roleModuleId/undelete"},
}

// Routes lists every protected route in declaration order.
func Routes() []Route {
	routes := make([]Route, 0, len(routeTable))
	for r := RouteUsers; r < routeEnd; r++ {
		routes = append(routes, r)
	}
	return routes
}

// Mount returns the resource prefix the route is registered under.
func (r Route) Mount() string { return routeTable[r].mount }

// Path returns the route path relative to its mount, in ":param" form.
func (r Route) Path() string { return routeTable[r].path }

// NeedsApprove reports whether the route also requires the approve capability.
func (r Route) NeedsApprove() bool { return routeTable[r].approve }

// API returns the literal mount+path string stored in role_modules.api.
func (r Route) API() string {
	def := routeTable[r]
	if def.path == "/" {
		return def.mount
	}
	return def.mount + def.path
}

// Pattern returns the chi pattern relative to the mount ("{param}" form).
func (r Route) Pattern() string {
	segments := strings.Split(routeTable[r].path, "/")
	for i, seg := range segments {
		if strings.HasPrefix(seg, ":") {
			segments[i] = "{" + seg[1:] + "}"
		}
	}
	return strings.Join(segments, "/")
}

func (r Route) String() string { return r.API() }

// LookupAPI finds the route whose API string equals api.
func LookupAPI(api string) (Route, bool) {
	for r, def := range routeTable {
		candidate := def.mount + def.path
		if def.path == "/" {
			candidate = def.mount
		}
		if candidate == api {
			return r, true
		}
	}
	return 0, false
}

func grant(route Route, caps ...Capability) Permission {
	p := Permission{API: route.API()}
	for _, c := range caps {
		switch c {
		case CapRead:
			p.IsCanRead = true
		case CapAdd:
			p.IsCanAdd = true
		case CapEdit:
			p.IsCanEdit = true
		case CapDelete:
			p.IsCanDelete = true
		case CapApprove:
			p.IsCanApprove = true
		}
	}
	return p
}

// DefaultGrants returns the seed permission matrix. Admin has no rows
// because the top rank bypasses every check.
func DefaultGrants() map[RoleName][]Permission {
	self := []Permission{
		grant(RouteUserByID, CapRead),
		grant(RouteUserChangePassword, CapEdit),
		grant(RouteUserMeAvatar, CapEdit),
		grant(RouteUserForms, CapRead),
		grant(RouteUserFormByID, CapRead, CapAdd, CapEdit),
	}
	manager := append(append([]Permission(nil), self...),
		grant(RouteUsers, CapRead),
		grant(RouteUserRolesByUser, CapRead),
		grant(RouteUserFormApprove, CapEdit, CapApprove),
		grant(RouteUserFormReject, CapEdit, CapApprove),
	)
	hr := append(append([]Permission(nil), self...),
		grant(RouteUsers, CapRead),
		grant(RouteUserRoles, CapRead),
		grant(RouteUserRolesByUser, CapRead),
		grant(RouteUserDelete, CapDelete),
		grant(RouteUserUndelete, CapEdit),
		grant(RouteUserUpdateStatus, CapEdit),
		grant(RouteForms, CapRead, CapAdd),
		grant(RouteFormByID, CapRead, CapEdit),
		grant(RouteFormDelete, CapDelete),
		grant(RouteFormUndelete, CapEdit),
		grant(RouteUserFormAssign, CapAdd),
		grant(RouteUserFormClose, CapEdit),
		grant(RouteUserFormDelete, CapDelete),
		grant(RouteUserFormUndelete, CapEdit),
		grant(RouteReportForm, CapRead),
		grant(RouteRoles, CapRead),
		grant(RouteRoleByID, CapRead),
	)
	director := append(append([]Permission(nil), self...),
		grant(RouteUsers, CapRead),
		grant(RouteUserRoles, CapRead),
		grant(RouteUserRolesByUser, CapRead),
		grant(RouteForms, CapRead),
		grant(RouteFormByID, CapRead),
		grant(RouteUserFormApprove, CapEdit, CapApprove),
		grant(RouteUserFormReject, CapEdit, CapApprove),
		grant(RouteUserFormClose, CapEdit),
		grant(RouteReportForm, CapRead),
		grant(RouteRoles, CapRead),
		grant(RouteRoleByID, CapRead),
	)
	return map[RoleName][]Permission{
		Employee: self,
		Manager:  manager,
		HR:       hr,
		Director: director,
	}
}
