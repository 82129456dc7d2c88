// Package apperr holds the error sentinels shared across kmdx packages.
package apperr

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrInvalidExtension = errors.New("invalid file extension")
	ErrStructure        = errors.New("inconsistent document structure")
	ErrNoFilter         = errors.New("no filter provided")
	ErrNoMatches        = errors.New("no items match filter")
	ErrSamePath         = errors.New("output path equals input path")
)
