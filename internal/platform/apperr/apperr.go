// Package apperr defines the engine's error taxonomy. Domain outcomes
// (insufficient stock, invalid state transitions) are distinct types so
// handlers can render them without treating them as infrastructure failures.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// ValidationError reports a missing or out-of-range input field. The caller
// can correct the request and retry.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func Validation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError reports an unknown entity id.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func NotFound(resource string, id uuid.UUID) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id.String()}
}

// Shortfall identifies one inventory line that could not be satisfied.
type Shortfall struct {
	ItemID    uuid.UUID `json:"item_id"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
	Shortfall int       `json:"shortfall"`
}

// InsufficientStockError reports the offending item(s) and shortfall of a
// failed reservation. The reservation as a whole was not applied.
type InsufficientStockError struct {
	Shortfalls []Shortfall
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, len(e.Shortfalls))
	for i, s := range e.Shortfalls {
		parts[i] = fmt.Sprintf("item %s short by %d (requested %d, available %d)",
			s.ItemID, s.Shortfall, s.Requested, s.Available)
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}

// InvalidStateTransitionError reports an attempted transition from a
// terminal or mismatched state.
type InvalidStateTransitionError struct {
	Entity    string
	ID        string
	Current   string
	Attempted string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("%s %s: cannot %s from state %q", e.Entity, e.ID, e.Attempted, e.Current)
}

func InvalidTransition(entity string, id uuid.UUID, current, attempted string) *InvalidStateTransitionError {
	return &InvalidStateTransitionError{Entity: entity, ID: id.String(), Current: current, Attempted: attempted}
}

// ForbiddenError reports an action the authenticated account may not take
// on this particular entity, beyond the coarse role check.
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string {
	return e.Reason
}

func Forbidden(reason string) *ForbiddenError {
	return &ForbiddenError{Reason: reason}
}

// ConcurrencyConflictError reports a transient serialization conflict. It is
// retried internally before surfacing to callers.
type ConcurrencyConflictError struct {
	Op string
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("concurrency conflict during %s", e.Op)
}

// Code returns a stable machine-readable code for an error, or "internal"
// for anything outside the taxonomy.
func Code(err error) string {
	var ve *ValidationError
	var nf *NotFoundError
	var is *InsufficientStockError
	var st *InvalidStateTransitionError
	var cc *ConcurrencyConflictError
	var fb *ForbiddenError
	switch {
	case errors.As(err, &ve):
		return "validation_failed"
	case errors.As(err, &nf):
		return "not_found"
	case errors.As(err, &is):
		return "insufficient_stock"
	case errors.As(err, &st):
		return "invalid_state_transition"
	case errors.As(err, &cc):
		return "conflict"
	case errors.As(err, &fb):
		return "forbidden"
	default:
		return "internal"
	}
}

// Status maps an error to the HTTP status a handler should return.
func Status(err error) int {
	switch Code(err) {
	case "validation_failed":
		return http.StatusBadRequest
	case "not_found":
		return http.StatusNotFound
	case "forbidden":
		return http.StatusForbidden
	case "insufficient_stock", "invalid_state_transition", "conflict":
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Response builds the status code and JSON body for an error response.
// Infrastructure errors are not echoed back to the client.
func Response(err error) (int, map[string]interface{}) {
	status := Status(err)
	body := map[string]interface{}{"code": Code(err)}
	if status == http.StatusInternalServerError {
		body["message"] = "internal server error"
		return status, body
	}
	body["message"] = err.Error()

	var is *InsufficientStockError
	if errors.As(err, &is) {
		body["shortfalls"] = is.Shortfalls
	}
	return status, body
}
