package model

import "errors"

var (
	// ErrMalformedPayload is returned when a message body is not valid JSON.
	ErrMalformedPayload = errors.New("malformed message payload")
	// ErrInvalidPeriod is returned when a leaderboard period is not one of d, w, m, y.
	ErrInvalidPeriod = errors.New("invalid period")
	// ErrInvalidDate is returned when a date does not match the format its period requires.
	ErrInvalidDate = errors.New("invalid date")
	// ErrInvalidLimit is returned when a leaderboard size is not positive.
	ErrInvalidLimit = errors.New("invalid limit")
)
