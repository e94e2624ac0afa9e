package ape

import (
	"github.com/pkg/errors"
)

// Loading never returns a partial document: the first fatal error wins and
// the caller gets nil. Anomalies that the original tooling tolerated are
// collected as document warnings instead (see Document.Warnings).
var (
	// ErrTruncated - a declared count or stride runs past the end of the blob.
	ErrTruncated = errors.New("truncated buffer")

	// ErrMalformedOffset - a relocated offset falls outside of the blob.
	ErrMalformedOffset = errors.New("malformed offset")

	// ErrUnsupportedTag - unrecognized format or layout discriminant.
	ErrUnsupportedTag = errors.New("unsupported tag")

	// ErrNullRequiredField - a mandatory pointer field is null.
	ErrNullRequiredField = errors.New("required field is null")

	// ErrDoubleRelocation - fixup invoked more than once on same document.
	ErrDoubleRelocation = errors.New("document already relocated")
)
