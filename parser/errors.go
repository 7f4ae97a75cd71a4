package parser

import "fmt"

// ParseError reports a missing structural region on the index page.
type ParseError struct {
	Region string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.Region, e.Reason)
}

// RowExtractionFailure reports an item block missing a required field.
type RowExtractionFailure struct {
	Index int
	Field string
}

func (e RowExtractionFailure) Error() string {
	return fmt.Sprintf("item block %d: missing %s", e.Index, e.Field)
}

// NormalizationError reports a raw value that could not be made numeric.
type NormalizationError struct {
	Field string
	Value string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalize %s: unparseable value %q", e.Field, e.Value)
}

// Reason returns the drop label used in run summaries.
func (e *NormalizationError) Reason() string {
	return "invalid_" + e.Field
}
