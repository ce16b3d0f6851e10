package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role represents user role in the platform. Admin is not a Role: platform
// operators authenticate through their own independent session (see internal/admin).
type Role string

const (
	RoleCustomer   Role = "customer"
	RoleWholesaler Role = "wholesaler"
	RoleInfluencer Role = "influencer"
)

// Valid reports whether r is a known platform role.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleWholesaler, RoleInfluencer:
		return true
	}
	return false
}

// CustomerProfile holds shopper-specific fields.
type CustomerProfile struct {
	DisplayName    string `json:"display_name"`
	ShippingRegion string `json:"shipping_region,omitempty"`
}

// WholesalerProfile holds wholesaler-specific fields.
type WholesalerProfile struct {
	CompanyName string `json:"company_name"`
	ContactNo   string `json:"contact_no,omitempty"`
	TaxID       string `json:"tax_id,omitempty"`
}

// InfluencerProfile holds influencer-specific fields.
type InfluencerProfile struct {
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio,omitempty"`
	AvatarKey   string `json:"avatar_key,omitempty"`
}

// Profile is a tagged union over the three role-specific shapes: exactly the
// field matching the user's role is set, the others are nil.
type Profile struct {
	Customer   *CustomerProfile   `json:"customer,omitempty"`
	Wholesaler *WholesalerProfile `json:"wholesaler,omitempty"`
	Influencer *InfluencerProfile `json:"influencer,omitempty"`
}

// Validate checks that the profile variant matches the role exactly.
func (p Profile) Validate(role Role) error {
	set := 0
	if p.Customer != nil {
		set++
	}
	if p.Wholesaler != nil {
		set++
	}
	if p.Influencer != nil {
		set++
	}
	if set > 1 {
		return fmt.Errorf("profile: more than one variant set")
	}
	switch role {
	case RoleCustomer:
		if p.Wholesaler != nil || p.Influencer != nil {
			return fmt.Errorf("profile: variant does not match role %s", role)
		}
	case RoleWholesaler:
		if p.Wholesaler == nil {
			return fmt.Errorf("profile: wholesaler profile required for role %s", role)
		}
	case RoleInfluencer:
		if p.Influencer == nil {
			return fmt.Errorf("profile: influencer profile required for role %s", role)
		}
	default:
		return fmt.Errorf("profile: unknown role %q", role)
	}
	return nil
}

// User represents a platform user (customer, wholesaler, or influencer).
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	FullName  string    `json:"full_name"`
	Role      Role      `json:"role"`
	Profile   Profile   `json:"profile"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      Role      `json:"role"`
	Profile   Profile   `json:"profile"`
	CreatedAt time.Time `json:"created_at"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Role:      u.Role,
		Profile:   u.Profile,
		CreatedAt: u.CreatedAt,
	}
}
