package stockledger

import (
	"errors"
	"testing"
)

const (
	operationName    = "store"
	subjectName      = "inventory"
	codeName         = "update"
	baseErrorMessage = "base error"
)

func TestOperationErrorFormatting(test *testing.T) {
	test.Parallel()
	baseError := errors.New(baseErrorMessage)
	wrappedError := WrapError(operationName, subjectName, codeName, baseError)
	if wrappedError == nil {
		test.Fatalf("expected wrapped error")
	}
	expected := operationName + "." + subjectName + "." + codeName + ": " + baseErrorMessage
	if wrappedError.Error() != expected {
		test.Fatalf("expected %q, got %q", expected, wrappedError.Error())
	}
	if !errors.Is(wrappedError, baseError) {
		test.Fatalf("expected wrapped error to match base error")
	}
}

func TestWrapErrorNil(test *testing.T) {
	test.Parallel()
	if WrapError(operationName, subjectName, codeName, nil) != nil {
		test.Fatalf("expected nil wrapped error")
	}
}

func TestInsufficientStockErrorUnwrapsToSentinel(test *testing.T) {
	test.Parallel()
	stockError := InsufficientStockError{
		CylinderTypeID: "type-1",
		Counter:        CounterFull,
		Current:        2,
		Requested:      5,
	}
	if !errors.Is(stockError, ErrInsufficientStock) {
		test.Fatalf("expected sentinel match")
	}
	expected := "insufficient full cylinders for type type-1: available 2, requested 5"
	if stockError.Error() != expected {
		test.Fatalf("expected %q, got %q", expected, stockError.Error())
	}
}
