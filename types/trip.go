package types

import "time"

type TripStatus string

const (
	TripStatusPlanning TripStatus = "PLANNING"
	TripStatusActive   TripStatus = "ACTIVE"
	TripStatusComplete TripStatus = "COMPLETED"
)

type MemberRole string

const (
	MemberRoleOwner  MemberRole = "OWNER"
	MemberRoleMember MemberRole = "MEMBER"
)

type MembershipStatus string

const (
	MembershipStatusInvited  MembershipStatus = "INVITED"
	MembershipStatusAccepted MembershipStatus = "ACCEPTED"
	MembershipStatusDeclined MembershipStatus = "DECLINED"
)

// Trip represents a trip whose members pool funds into a shared wallet.
type Trip struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	StartDate   time.Time  `json:"startDate"`
	EndDate     time.Time  `json:"endDate"`
	Status      TripStatus `json:"status"`
	CreatedBy   string     `json:"createdBy"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type TripMembership struct {
	TripID    string           `json:"tripId"`
	UserID    string           `json:"userId"`
	Role      MemberRole       `json:"role"`
	Status    MembershipStatus `json:"status"`
	CreatedAt time.Time        `json:"createdAt"`
}
