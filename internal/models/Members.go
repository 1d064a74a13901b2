package models

import (
	"time"

	"github.com/google/uuid"
)

type MemberStatus string

const (
	MemberPending  MemberStatus = "pending"
	MemberApproved MemberStatus = "approved"
	MemberRejected MemberStatus = "rejected"
)

// Member is a welfare-group member as registered and approved by the
// group's admins.
type Member struct {
	ID              uuid.UUID    `json:"id"`
	FullName        string       `json:"full_name"`
	ProfileImageURL string       `json:"profile_image_url"`
	Status          MemberStatus `json:"status"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}
