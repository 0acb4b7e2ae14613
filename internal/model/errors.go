package model

import "errors"

// Error kinds surfaced by the pipeline. Callers classify with errors.Is;
// the concrete errors always wrap one of these with context.
var (
	// ErrNotFound reports a missing input file.
	ErrNotFound = errors.New("file not found")
	// ErrFormat reports an invalid lookup table header or CSV syntax.
	ErrFormat = errors.New("invalid format")
	// ErrProcessing reports a flow log that could not be read to the end.
	ErrProcessing = errors.New("error processing flow logs")
	// ErrIO reports an output that could not be written.
	ErrIO = errors.New("error writing output")
)

// ErrSink reports that the text report was written but at least one export sink failed.
var ErrSink = errors.New("error exporting report")
