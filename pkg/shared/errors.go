package shared

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure surfaced to a user.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNetwork
	KindValidation
	KindExport
	KindUnavailableAction
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindValidation:
		return "validation"
	case KindExport:
		return "export"
	case KindUnavailableAction:
		return "unavailable_action"
	default:
		return "unknown"
	}
}

type kinded interface {
	Kind() ErrorKind
}

// KindOf reports the kind of the first classified error in err's chain.
func KindOf(err error) ErrorKind {
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindUnknown
}

// NetworkError is a transport or HTTP failure reaching the archive backend.
type NetworkError struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: HTTP error! status: %d", e.Op, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error   { return e.Err }
func (e *NetworkError) Kind() ErrorKind { return KindNetwork }

// ExportError is a serialization or file-creation failure.
type ExportError struct {
	Format string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export %s: %v", e.Format, e.Err)
}

func (e *ExportError) Unwrap() error   { return e.Err }
func (e *ExportError) Kind() ErrorKind { return KindExport }

// UnavailableActionError is returned when a user asks to view a snapshot
// that has not finished capturing.
type UnavailableActionError struct {
	Timestamp string
	Status    string
}

func (e *UnavailableActionError) Error() string {
	return fmt.Sprintf("This snapshot is %s", e.Status)
}

func (e *UnavailableActionError) Kind() ErrorKind { return KindUnavailableAction }
