package unillm

import "strings"

// NormalizeRole maps a wire role string onto the Role enum. Unknown roles
// coerce to RoleUser with a warning; this never fails.
func NormalizeRole(raw string) (Role, []string) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "system":
		return RoleSystem, nil
	case "user":
		return RoleUser, nil
	case "assistant", "model":
		return RoleAssistant, nil
	case "tool":
		return RoleTool, nil
	case "function":
		return RoleFunction, nil
	default:
		return RoleUser, []string{"unknown role: " + raw}
	}
}
