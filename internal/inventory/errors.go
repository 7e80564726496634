package inventory

import (
	"errors"
	"fmt"
)

// Failure kinds surfaced to callers. The HTTP layer maps them to statuses;
// the strings themselves are part of the API response.
const (
	FailValidation     = "ValidationError"
	FailParentNotFound = "ParentNotFound"
	FailLotNotFound    = "LotNotFound"
	FailInsufficient   = "InsufficientQuantity"
	FailPersistence    = "PersistenceError"
	FailSchema         = "SchemaViolation"
)

// ErrNotFound is returned by stores when no document matches.
var ErrNotFound = errors.New("not found")

// Failure is a typed, caller-facing error. InsufficientQuantity failures
// carry the remaining quantity and unit so the message is actionable.
type Failure struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Remaining int    `json:"remaining,omitempty"`
	Unit      string `json:"unit,omitempty"`
}

func (f *Failure) Error() string {
	return f.Message
}

// FailureOf unwraps err into a *Failure if there is one.
func FailureOf(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

func validationFailure(format string, args ...interface{}) *Failure {
	return &Failure{Kind: FailValidation, Message: fmt.Sprintf(format, args...)}
}

func parentNotFound(k Kind, id Identity) *Failure {
	name := id.Name
	if id.Brand != "" {
		name = fmt.Sprintf("%s (%s)", id.Name, id.Brand)
	}
	return &Failure{Kind: FailParentNotFound, Message: fmt.Sprintf("%s %q not found", k, name)}
}

func lotNotFound(k Kind, itemName string, key MatchKey) *Failure {
	if k == Supply {
		return &Failure{Kind: FailLotNotFound, Message: fmt.Sprintf(
			"no %s lot of %q at %v (donated=%v)", k, itemName, key.Locations, key.Donated)}
	}
	return &Failure{Kind: FailLotNotFound, Message: fmt.Sprintf(
		"no %s lot %q of %q", k, key.LotCode, itemName)}
}

func insufficientQuantity(itemName, lotLabel string, remaining int, unit string) *Failure {
	msg := fmt.Sprintf("cannot dispense from %q lot %s: only %d %s remaining",
		itemName, lotLabel, remaining, unit)
	if unit == "" {
		msg = fmt.Sprintf("cannot dispense from %q lot %s: only %d remaining",
			itemName, lotLabel, remaining)
	}
	return &Failure{Kind: FailInsufficient, Message: msg, Remaining: remaining, Unit: unit}
}

func persistenceFailure(err error) *Failure {
	return &Failure{Kind: FailPersistence, Message: err.Error()}
}

func schemaFailure(format string, args ...interface{}) *Failure {
	return &Failure{Kind: FailSchema, Message: fmt.Sprintf(format, args...)}
}
