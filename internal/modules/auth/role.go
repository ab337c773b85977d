// README: Admin roles and the role-gated navigation menu.
package auth

type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStaff
}

// ResolveRole maps a stored account role to a role. Missing or unknown values
// are staff. Bearer tokens are not resolved this way; they must carry a valid role.
func ResolveRole(v string) Role {
	if r := Role(v); r.Valid() {
		return r
	}
	return RoleStaff
}

type Menu struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	Roles []Role `json:"roles"`
}

var (
	adminOnly     = []Role{RoleAdmin}
	adminAndStaff = []Role{RoleAdmin, RoleStaff}
)

var allMenus = []Menu{
	{Name: "Dashboard", Path: "/dashboard", Roles: adminOnly},
	{Name: "Drivers", Path: "/drivers", Roles: adminAndStaff},
	{Name: "Create Account", Path: "/create-account", Roles: adminAndStaff},
	{Name: "Customers", Path: "/customers", Roles: adminOnly},
	{Name: "Setup Fees", Path: "/setup-fees", Roles: adminOnly},
	{Name: "Trip History", Path: "/trip-history", Roles: adminAndStaff},
	{Name: "Extra Fee", Path: "/extra-fees", Roles: adminOnly},
	{Name: "Notifications", Path: "/notification", Roles: adminOnly},
	{Name: "Top-up", Path: "/top-up", Roles: adminAndStaff},
	{Name: "Post", Path: "/posts", Roles: adminOnly},
	{Name: "Coupon", Path: "/coupons", Roles: adminOnly},
	{Name: "Book Orders", Path: "/book-orders", Roles: adminOnly},
	{Name: "Map", Path: "/map", Roles: adminOnly},
}

func (m Menu) Allows(role Role) bool {
	for _, r := range m.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Menus returns the menu entries visible to role, in display order.
func Menus(role Role) []Menu {
	out := make([]Menu, 0, len(allMenus))
	for _, m := range allMenus {
		if m.Allows(role) {
			out = append(out, m)
		}
	}
	return out
}

// MenuRoles returns the roles allowed on the menu at path.
func MenuRoles(path string) []Role {
	for _, m := range allMenus {
		if m.Path == path {
			return append([]Role(nil), m.Roles...)
		}
	}
	return nil
}
