// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// ErrNoPendingCalls is returned when start finds nothing to dial.
var ErrNoPendingCalls = &ValidationError{Msg: "No pending calls found for this campaign"}

// ValidationError is a rejected request, no state was mutated.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func NewValidation(field, msg string) error {
	return &ValidationError{Field: field, Msg: msg}
}

// NotFoundError reports a missing campaign, agent or call record.
type NotFoundError struct {
	Resource string
	ID       uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

func NewCampaignNotFound(id uuid.UUID) error {
	return &NotFoundError{Resource: "campaign", ID: id}
}

func NewAgentNotFound(id uuid.UUID) error {
	return &NotFoundError{Resource: "agent", ID: id}
}

// PlacementError is a failed call placement for one contact. Transport is
// set when the provider could not be reached at all.
type PlacementError struct {
	PhoneNumber string
	Msg         string
	Transport   bool
	Cause       error
}

func (e *PlacementError) Error() string {
	if e.Transport {
		return fmt.Sprintf("placing call to %s: transport error: %s", e.PhoneNumber, e.Msg)
	}
	return fmt.Sprintf("placing call to %s: %s", e.PhoneNumber, e.Msg)
}

func (e *PlacementError) Unwrap() error { return e.Cause }

// PersistenceError wraps a failed read or write against the store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func NewPersistence(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

// TransitionError is an action the campaign state machine does not allow.
type TransitionError struct {
	From   string
	Action string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s a campaign in status %s", e.Action, e.From)
}

// ConflictError reports a concurrent modification, e.g. a held lease.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

// HTTPStatus maps an error to the status code of the control surface.
func HTTPStatus(err error) int {
	var (
		validation *ValidationError
		notFound   *NotFoundError
		transition *TransitionError
		conflict   *ConflictError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validation), errors.As(err, &transition):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &conflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
