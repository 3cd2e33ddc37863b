package unillm

import "testing"

func TestNormalizeRole(t *testing.T) {
	cases := []struct {
		raw      string
		want     Role
		warnings bool
	}{
		{"system", RoleSystem, false},
		{"USER", RoleUser, false},
		{" assistant ", RoleAssistant, false},
		{"model", RoleAssistant, false},
		{"tool", RoleTool, false},
		{"function", RoleFunction, false},
		{"narrator", RoleUser, true},
		{"", RoleUser, true},
	}
	for _, c := range cases {
		role, warnings := NormalizeRole(c.raw)
		if role != c.want {
			t.Errorf("NormalizeRole(%q) = %s, want %s", c.raw, role, c.want)
		}
		if c.warnings && len(warnings) == 0 {
			t.Errorf("NormalizeRole(%q): expected a warning", c.raw)
		}
		if !c.warnings && len(warnings) != 0 {
			t.Errorf("NormalizeRole(%q): unexpected warnings %v", c.raw, warnings)
		}
	}
}
