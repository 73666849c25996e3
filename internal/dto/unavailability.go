package dto

// CreateUnavailabilityRequest declares the caller out for one event.
type CreateUnavailabilityRequest struct {
	EventID string `json:"event_id" validate:"required,uuid4"`
}
