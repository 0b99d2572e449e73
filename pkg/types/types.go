package types

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Role defines what a user account is allowed to do on the platform
type Role string

const (
	RoleClient   Role = "CLIENT"
	RoleProvider Role = "PROVIDER"
	RoleAdmin    Role = "ADMIN"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleProvider, RoleAdmin:
		return true
	}
	return false
}

// Label returns the human-readable role name shown in dashboards
func (r Role) Label() string {
	switch r {
	case RoleProvider:
		return "Provider"
	case RoleAdmin:
		return "Admin"
	default:
		return "Patient"
	}
}

// ProviderProfile holds the public profile of a provider account
type ProviderProfile struct {
	BusinessName   string `json:"business_name"`
	Bio            string `json:"bio,omitempty"`
	Address        string `json:"address,omitempty"`
	ProfileImage   string `json:"profile_image,omitempty"`
	Specialization string `json:"specialization,omitempty"`
	IsVerified     bool   `json:"is_verified"`
}

// User is the identity record returned by the backend
type User struct {
	ID              int64            `json:"id"`
	Email           string           `json:"email"`
	Role            Role             `json:"role"`
	Phone           string           `json:"phone,omitempty"`
	FirstName       string           `json:"first_name"`
	LastName        string           `json:"last_name"`
	ProviderProfile *ProviderProfile `json:"provider_profile,omitempty"`
}

// FullName joins first and last name
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// BusinessName returns the provider business name, or "" for non-providers
func (u *User) BusinessName() string {
	if u.ProviderProfile == nil {
		return ""
	}
	return u.ProviderProfile.BusinessName
}

// Tokens is the bearer token pair issued at login
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Registration is the payload for creating a new account
type Registration struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      Role   `json:"role"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone,omitempty"`
}

// Service is an offering owned by exactly one provider
type Service struct {
	ID          int64           `json:"id"`
	Provider    int64           `json:"provider"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Duration    int             `json:"duration"` // minutes
	Price       decimal.Decimal `json:"price"`
	IsActive    bool            `json:"is_active"`
}

// ServiceInput is the payload for creating a service
type ServiceInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Duration    int             `json:"duration"`
	Price       decimal.Decimal `json:"price"`
}

// ServicePatch is a partial service update; nil fields are left untouched
type ServicePatch struct {
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	Duration    *int             `json:"duration,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	IsActive    *bool            `json:"is_active,omitempty"`
}

// AppointmentStatus is the lifecycle state of an appointment
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "PENDING"
	StatusConfirmed AppointmentStatus = "CONFIRMED"
	StatusCompleted AppointmentStatus = "COMPLETED"
	StatusCancelled AppointmentStatus = "CANCELLED"
	StatusRejected  AppointmentStatus = "REJECTED"
)

// Statuses lists every appointment status in display order
var Statuses = []AppointmentStatus{
	StatusPending,
	StatusConfirmed,
	StatusCompleted,
	StatusCancelled,
	StatusRejected,
}

// Valid reports whether s is a known status
func (s AppointmentStatus) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Label returns the display label for s
func (s AppointmentStatus) Label() string {
	if !s.Valid() {
		return string(s)
	}
	str := string(s)
	return str[:1] + strings.ToLower(str[1:])
}

// Appointment links a client, a provider and a service at a date and time slot
type Appointment struct {
	ID              int64             `json:"id"`
	Client          int64             `json:"client"`
	Provider        int64             `json:"provider"`
	Service         int64             `json:"service"`
	Date            string            `json:"date"`      // YYYY-MM-DD
	TimeSlot        string            `json:"time_slot"` // HH:MM:SS
	Status          AppointmentStatus `json:"status"`
	Notes           string            `json:"notes,omitempty"`
	ServiceDetails  *Service          `json:"service_details,omitempty"`
	ClientDetails   *User             `json:"client_details,omitempty"`
	ProviderDetails *User             `json:"provider_details,omitempty"`
}

// NewAppointment is the booking request submitted by a client
type NewAppointment struct {
	Service  int64  `json:"service"`
	Date     string `json:"date"`
	TimeSlot string `json:"time_slot"`
}

// StatusUpdate is the partial update used for status transitions
type StatusUpdate struct {
	Status AppointmentStatus `json:"status"`
}

// DoctorSuggestion is a provider match returned by the assistant
type DoctorSuggestion struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Specialization string `json:"specialization"`
}

// ChatReply is the assistant response to a free-text query
type ChatReply struct {
	Message string             `json:"message"`
	Doctors []DoctorSuggestion `json:"doctors,omitempty"`
}
