package service

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrNotCompleted rejects evaluation of an interview that has not
	// reached a terminal status.
	ErrNotCompleted = errors.New("interview not completed")

	// ErrInterviewEnded rejects interaction with a finished interview.
	ErrInterviewEnded = errors.New("interview already ended")

	// ErrNotStarted rejects interaction before the interview starts.
	ErrNotStarted = errors.New("interview not started")

	// ErrUnknownVersion rejects an unrecognized evaluation version.
	ErrUnknownVersion = errors.New("unknown evaluation version")

	// ErrJudgeNotConfigured rejects judge evaluations when no judge
	// endpoint is wired.
	ErrJudgeNotConfigured = errors.New("judge client not configured")

	// ErrQueueFull signals evaluation backpressure to the caller.
	ErrQueueFull = errors.New("evaluation queue full")
)
