package model

// AccessLevel limits which inherited memory types a child role can read.
type AccessLevel string

const (
	AccessStandard AccessLevel = "standard"
	AccessElevated AccessLevel = "elevated"
	AccessAdmin    AccessLevel = "admin"
)

// ValidAccessLevels are the allowed memory access levels.
var ValidAccessLevels = map[AccessLevel]bool{
	AccessStandard: true,
	AccessElevated: true,
	AccessAdmin:    true,
}

// Role is a persona definition. The parent relation may contain cycles.
type Role struct {
	ID                string      `json:"id" yaml:"id"`
	Name              string      `json:"name" yaml:"name"`
	Description       string      `json:"description" yaml:"description"`
	Instructions      string      `json:"instructions" yaml:"instructions"`
	Domains           []string    `json:"domains,omitempty" yaml:"domains"`
	Tone              string      `json:"tone" yaml:"tone"`
	SystemPrompt      string      `json:"system_prompt" yaml:"system_prompt"`
	IsDefault         bool        `json:"is_default" yaml:"-"`
	ParentRoleID      string      `json:"parent_role_id,omitempty" yaml:"parent_role_id"`
	InheritMemories   bool        `json:"inherit_memories" yaml:"inherit_memories"`
	MemoryAccessLevel AccessLevel `json:"memory_access_level" yaml:"memory_access_level"`
	MemoryCategories  []string    `json:"memory_categories,omitempty" yaml:"memory_categories"`
}

// CanRead reports whether a role with this access level may read an
// inherited memory of type t.
func (l AccessLevel) CanRead(t MemoryType) bool {
	switch l {
	case AccessAdmin:
		return true
	case AccessElevated:
		return t == MemoryKnowledge || t == MemoryUser
	default:
		return t == MemoryKnowledge
	}
}
