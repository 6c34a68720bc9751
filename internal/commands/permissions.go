package commands

import "github.com/samber/lo"

const (
	denyOperator = "❌ Only Admin and Owner can use this command!"
	denyOwner    = "❌ Only Owner can use configuration commands!"
)

// hasAnyRole reports whether the invoker holds one of the allowed roles.
func hasAnyRole(inv Invocation, allowed []string) bool {
	return lo.Some(inv.RoleIDs, allowed)
}

// canToggle gates the mutating mutekick subcommands. Status is open to everyone.
func (h *Handler) canToggle(inv Invocation) bool {
	return inv.Subcommand == "status" || hasAnyRole(inv, h.Config.AllowedRoles())
}

func (h *Handler) canConfigure(inv Invocation) bool {
	return hasAnyRole(inv, h.Config.OwnerRoles())
}
