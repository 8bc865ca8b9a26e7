package storage

import "errors"

// Errors shared by the report stores and database sources.
var (
	// ErrNotFound is returned when a run or cell does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a run id, or a (run, cohort, interval)
	// cell, is inserted twice. Report stores never update rows.
	ErrDuplicateKey = errors.New("duplicate key: report rows are write-once")

	// ErrInvalidInput is returned for rows missing their key fields and for
	// unsafe table or database names.
	ErrInvalidInput = errors.New("invalid input")
)
