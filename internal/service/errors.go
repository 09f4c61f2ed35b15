package service

import "errors"

var (
	// ErrSettlementInProgress is returned when another settlement run holds the run lock.
	ErrSettlementInProgress = errors.New("a settlement run is already in progress")

	// ErrInvalidOption is returned when a run option names an unknown rule, rounding or basis.
	ErrInvalidOption = errors.New("invalid settlement option")

	// ErrInvalidCategory is returned when a coverage category is empty.
	ErrInvalidCategory = errors.New("invalid coverage category")

	// ErrInvalidRate is returned when a rate is negative or not a number.
	ErrInvalidRate = errors.New("invalid rate")

	// ErrInvalidStatusCode is returned when a settlement status code is empty.
	ErrInvalidStatusCode = errors.New("invalid status code")

	// ErrRunTimeout is returned when a run exceeds its wall-clock budget.
	ErrRunTimeout = errors.New("settlement run timed out")
)
