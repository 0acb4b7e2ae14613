package model

import "context"

// Writer defines a generic interface for emitting a finished report,
// either as the text report file or to an external store.
type Writer interface {
	// Name identifies the writer in logs and errors.
	Name() string

	// Write persists the report. Implementations must not modify it.
	Write(ctx context.Context, report *Report) error
}
