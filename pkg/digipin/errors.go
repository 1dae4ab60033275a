package digipin

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfRange is matched by errors for coordinates outside IndiaBounds.
	ErrOutOfRange = errors.New("digipin: coordinate out of range")
	// ErrDomain is matched by errors for precision, level, radius or
	// direction arguments outside their legal range.
	ErrDomain = errors.New("digipin: argument out of domain")
	// ErrInvalidCode is matched by errors for malformed codes.
	ErrInvalidCode = errors.New("digipin: invalid code")
)

// RangeError reports a coordinate outside Bounds; it matches ErrOutOfRange.
type RangeError struct {
	Lat, Lon float64
	Bounds   BoundingBox
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("digipin: coordinate (%g, %g) outside bounding box %s: latitude must be in [%g, %g], longitude in [%g, %g]",
		e.Lat, e.Lon, e.Bounds, e.Bounds.MinLat, e.Bounds.MaxLat, e.Bounds.MinLon, e.Bounds.MaxLon)
}

func (e *RangeError) Unwrap() error { return ErrOutOfRange }

// DomainError reports a parameter outside its allowed values; it matches ErrDomain.
type DomainError struct {
	Param string
	Value any
	Want  string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("digipin: invalid %s %v: must be %s", e.Param, e.Value, e.Want)
}

func (e *DomainError) Unwrap() error { return ErrDomain }

// InvalidCodeError reports why Code is not a valid DIGIPIN; it matches ErrInvalidCode.
type InvalidCodeError struct {
	Code   string
	Reason string
}

func (e *InvalidCodeError) Error() string {
	return fmt.Sprintf("digipin: invalid code %q: %s", e.Code, e.Reason)
}

func (e *InvalidCodeError) Unwrap() error { return ErrInvalidCode }

func checkPrecision(param string, p int) error {
	if p < MinPrecision || p > MaxPrecision {
		return &DomainError{Param: param, Value: p, Want: "in [1, 10]"}
	}
	return nil
}

// Error kinds reported by ErrorKind.
const (
	KindRange       = "range"
	KindDomain      = "domain"
	KindInvalidCode = "invalid_code"
)

// ErrorKind classifies err by the sentinel it wraps. It returns "" for nil
// and for errors that did not originate in this package.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrOutOfRange):
		return KindRange
	case errors.Is(err, ErrDomain):
		return KindDomain
	case errors.Is(err, ErrInvalidCode):
		return KindInvalidCode
	default:
		return ""
	}
}
