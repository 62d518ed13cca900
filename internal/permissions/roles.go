package permissions

type Role string
type Action string

const (
	RoleAdmin       Role = "admin"
	RoleEditor      Role = "editor"
	RoleContributor Role = "contributor"
	RoleViewer      Role = "viewer"
)

const (
	ActionRead           Action = "read"
	ActionEdit           Action = "edit"
	ActionAdvance        Action = "advance"
	ActionRevert         Action = "revert"
	ActionRequestChanges Action = "request_changes"
	ActionManageGrants   Action = "manage_grants"
)

// Can is the whole authorization policy. Every decision in the service routes through it.
func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleEditor:
		return action == ActionRead || action == ActionEdit || action == ActionAdvance || action == ActionRequestChanges
	case RoleContributor:
		return action == ActionRead || action == ActionEdit
	case RoleViewer:
		return action == ActionRead
	default:
		return false
	}
}

// ParseRole accepts only the four known roles.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleEditor, RoleContributor, RoleViewer:
		return Role(s), true
	default:
		return "", false
	}
}
