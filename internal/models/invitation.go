package models

import "time"

// Invitation records an invite code emailed to an address
type Invitation struct {
	ID        int64     `json:"id"`
	FamilyID  int64     `json:"familyId"`
	Email     string    `json:"email"`
	InvitedBy int64     `json:"invitedBy"`
	CreatedAt time.Time `json:"createdAt"`

	InviterName string `json:"inviterName,omitempty"` // Populated via JOIN
}
