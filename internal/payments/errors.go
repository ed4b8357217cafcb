package payments

import "errors"

var (
	// ErrInvalidArgument is returned for a non-positive amount or an
	// unrecognized currency code. No Payment is created and no gateway
	// call is made.
	ErrInvalidArgument = errors.New("payments: invalid argument")

	// ErrGatewayDeclined is returned when the processor rejects a
	// charge. The Payment still exists with status failed.
	ErrGatewayDeclined = errors.New("payments: gateway declined")

	// ErrInvalidReference is returned when refunding a transaction
	// reference the gateway does not know, or one already refunded.
	ErrInvalidReference = errors.New("payments: invalid transaction reference")

	// ErrSubscriptionNotActive is returned when a recurring charge is
	// attempted against a paused or cancelled subscription.
	ErrSubscriptionNotActive = errors.New("payments: subscription not active")

	// ErrNoCommandToUndo is returned when the invoker has no undoable
	// command in its slot.
	ErrNoCommandToUndo = errors.New("payments: no command to undo")

	// ErrCommandNotSuccessful is returned when the last executed
	// command failed, so there is nothing to compensate.
	ErrCommandNotSuccessful = errors.New("payments: last command was not successful")

	// ErrInvalidTransition is returned for illegal payment status
	// transitions.
	ErrInvalidTransition = errors.New("payments: invalid status transition")

	// ErrNotFound is returned when a payment does not exist in the store.
	ErrNotFound = errors.New("payments: payment not found")
)
