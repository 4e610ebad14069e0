package models

import "time"

// Role is a family membership role
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

// Valid reports whether r is ADMIN or MEMBER
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// Family is a group of users sharing a ledger
type Family struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	InviteCode string    `json:"inviteCode"`
	CreatedBy  int64     `json:"createdBy"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// FamilyMember represents the relationship between a user and a family
type FamilyMember struct {
	FamilyID int64     `json:"familyId"`
	UserID   int64     `json:"userId"`
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`

	// Populated via JOIN
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// IsAdmin reports whether the member holds the ADMIN role
func (m *FamilyMember) IsAdmin() bool {
	return m.Role == RoleAdmin
}

// FamilySummary is a family as seen from one member's family list
type FamilySummary struct {
	Family
	Role        Role `json:"role"`
	MemberCount int  `json:"memberCount"`
}

// FamilyWithMembers combines a family with its member list
type FamilyWithMembers struct {
	Family
	Members []FamilyMember `json:"members"`
}

// CountAdmins returns how many members hold the ADMIN role
func CountAdmins(members []FamilyMember) int {
	n := 0
	for _, m := range members {
		if m.Role == RoleAdmin {
			n++
		}
	}
	return n
}
