package dto

import "github.com/ieab-app/escala-api/internal/models"

// CreateVolunteerRequest registers a new team member.
type CreateVolunteerRequest struct {
	Phone string  `json:"phone" validate:"required,min=8,max=20"`
	PIN   string  `json:"pin" validate:"required,numeric,min=4,max=6"`
	Name  string  `json:"name" validate:"required,min=2,max=120"`
	Role  string  `json:"role" validate:"required,oneof=professor auxiliar admin"`
	Room  *string `json:"room,omitempty" validate:"omitempty,oneof=bebes pequenos grandes"`
}

// UpdateVolunteerRequest edits an existing record. The PIN is managed through
// the auth endpoints, not here.
type UpdateVolunteerRequest struct {
	Phone  *string `json:"phone,omitempty" validate:"omitempty,min=8,max=20"`
	Name   *string `json:"name,omitempty" validate:"omitempty,min=2,max=120"`
	Role   *string `json:"role,omitempty" validate:"omitempty,oneof=professor auxiliar admin"`
	Room   *string `json:"room,omitempty" validate:"omitempty,oneof=bebes pequenos grandes"`
	Active *bool   `json:"is_active,omitempty"`
}

// ResetPINRequest lets an admin set a volunteer's PIN directly.
type ResetPINRequest struct {
	PIN string `json:"pin" validate:"required,numeric,min=4,max=6"`
}

// VolunteerListQuery captures list filters from the query string.
type VolunteerListQuery struct {
	Search   string
	Role     string
	Active   *bool
	Page     int
	PageSize int
}

// DeleteVolunteerResult reports whether the row was removed or only
// deactivated because history still references it.
type DeleteVolunteerResult struct {
	Deleted     bool `json:"deleted"`
	Deactivated bool `json:"deactivated"`
}

// VolunteerResponse is the API shape of a volunteer.
type VolunteerResponse = models.Volunteer
