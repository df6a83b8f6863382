package domain

import "time"

// MemberRole enumerates roles a user holds inside a business.
type MemberRole string

const (
	MemberRoleOwner     MemberRole = "OWNER"
	MemberRoleAdmin     MemberRole = "ADMIN"
	MemberRoleResponder MemberRole = "RESPONDER"
	MemberRoleViewer    MemberRole = "VIEWER"
)

// Member ties a user to the business (tenant) they belong to.
type Member struct {
	UserID     string
	BusinessID string
	Email      string
	Name       string
	Role       MemberRole
	CreatedAt  time.Time
}
