package gpx

import (
	"fmt"

	"github.com/pkordes/gpxviewer/internal/domain"
)

// Kind classifies a parse failure.
type Kind int

const (
	// KindStructural: the document is malformed or lacks required elements.
	KindStructural Kind = iota + 1
	// KindNumeric: a coordinate, elevation or time field could not be parsed.
	KindNumeric
	// KindAggregation: a track or segment reduced to nothing.
	KindAggregation
)

func (k Kind) String() string {
	switch k {
	case KindStructural:
		return "structural"
	case KindNumeric:
		return "numeric"
	case KindAggregation:
		return "aggregation"
	default:
		return "unknown"
	}
}

// ParseError is the single failure type returned by the parser. Every
// ParseError matches domain.ErrInvalidTrace under errors.Is.
type ParseError struct {
	Kind    Kind
	Element string // location in the document, e.g. "trk[0]/trkseg[1]/trkpt[7]"
	Err     error
}

func (e *ParseError) Error() string {
	if e.Element == "" {
		return fmt.Sprintf("%s: %s: %v", domain.ErrInvalidTrace, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s at %s: %v", domain.ErrInvalidTrace, e.Kind, e.Element, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is reports whether target is domain.ErrInvalidTrace.
func (e *ParseError) Is(target error) bool {
	return target == domain.ErrInvalidTrace
}

func structural(element string, err error) *ParseError {
	return &ParseError{Kind: KindStructural, Element: element, Err: err}
}

func numeric(element string, err error) *ParseError {
	return &ParseError{Kind: KindNumeric, Element: element, Err: err}
}

func aggregation(element string, err error) *ParseError {
	return &ParseError{Kind: KindAggregation, Element: element, Err: err}
}
