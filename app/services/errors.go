package services

import (
	"errors"
	"fmt"

	"github.com/shashiranjanraj/canteen/pkg/datastore"
)

// Messages shown to users.
const (
	MsgInvalidItem      = "Please enter valid item name and price"
	MsgMissingIdentity  = "Please enter your name and student ID"
	MsgNoItems          = "Please add at least one item"
	MsgPlaceFailed      = "Failed to place order"
	MsgQRFailed         = "Failed to generate QR code"
	MsgMissingCode      = "Please enter a QR code"
	MsgNotFound         = "Order not found or QR code expired"
	MsgScanFailed       = "Failed to scan QR code"
	MsgMissingStaff     = "Please enter your name"
	MsgAlreadyFulfilled = "Order Already Fulfilled"
	MsgConflict         = "Order was already fulfilled by another staff member"
	MsgFulfilled        = "Order fulfilled successfully!"
	MsgFulfillFailed    = "Failed to fulfill order: "
	MsgNoOrder          = "No order selected"
	MsgWrongView        = "Start a new order first"
)

var (
	ErrNotFound         = errors.New("services: order not found for today")
	ErrAlreadyFulfilled = errors.New("services: order already fulfilled")
	ErrConflict         = errors.New("services: order fulfilled concurrently")
	ErrNoOrder          = errors.New("services: no order selected")
	ErrWrongView        = errors.New("services: action not available in this view")
)

// ValidationError is bad user input. Message is safe to show as-is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}

// IndexError is a remove request for an item position that does not exist.
type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("item index %d out of range (have %d items)", e.Index, e.Len)
}

// Message returns the text a screen should display for err.
func Message(err error) string {
	var (
		ve *ValidationError
		ie *IndexError
		be *datastore.BackendError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return ve.Message
	case errors.As(err, &ie):
		return ie.Error()
	case errors.Is(err, ErrNotFound):
		return MsgNotFound
	case errors.Is(err, ErrAlreadyFulfilled):
		return MsgAlreadyFulfilled
	case errors.Is(err, ErrConflict):
		return MsgConflict
	case errors.Is(err, ErrNoOrder):
		return MsgNoOrder
	case errors.Is(err, ErrWrongView):
		return MsgWrongView
	case errors.As(err, &be):
		return be.Err.Error()
	default:
		return err.Error()
	}
}
