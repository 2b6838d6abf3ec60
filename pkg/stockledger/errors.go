package stockledger

import (
	"errors"
	"fmt"
)

// Domain-level error values returned by the stock ledger service.
var (
	ErrUnknownCylinderType  = errors.New("unknown cylinder type")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrAlreadyInitialized   = errors.New("opening stock already recorded")
	ErrInvalidTenantID      = errors.New("invalid tenant id")
	ErrInvalidCylinderType  = errors.New("invalid cylinder type id")
	ErrInvalidQuantity      = errors.New("invalid quantity")
	ErrInvalidReason        = errors.New("invalid reason")
	ErrInvalidServiceConfig = errors.New("invalid service config")
)

// Counter names used by InsufficientStockError.
const (
	CounterFull  = "full"
	CounterEmpty = "empty"
)

// InsufficientStockError reports which counter would go negative and by how much.
type InsufficientStockError struct {
	CylinderTypeID string
	Counter        string
	Current        int
	Requested      int
}

// Error returns the formatted error message.
func (stockError InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient %s cylinders for type %s: available %d, requested %d",
		stockError.Counter, stockError.CylinderTypeID, stockError.Current, stockError.Requested)
}

// Unwrap links the error to the ErrInsufficientStock sentinel.
func (stockError InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// OperationError wraps a failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the operation segment.
func (operationError OperationError) Operation() string {
	return operationError.operation
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}
