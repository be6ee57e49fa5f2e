package ntfs

import "errors"

var (
	// ErrNotFound is returned by Probe when the source does not carry an
	// NTFS signature.
	ErrNotFound = errors.New("ntfs: not an NTFS volume")
	// ErrInvalidData is returned when an on-disk structure fails a
	// signature, bounds, or arithmetic check.
	ErrInvalidData = errors.New("ntfs: invalid on-disk data")
	// ErrInvalidInput is returned for out-of-range arguments supplied by
	// the caller (as opposed to bad data read from disk).
	ErrInvalidInput = errors.New("ntfs: invalid input")
)
