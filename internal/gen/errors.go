package gen

import "fmt"

// ErrorKind classifies how a generation call failed.
type ErrorKind string

const (
	KindTimeout ErrorKind = "timeout"
	KindHTTP    ErrorKind = "http"
	KindNetwork ErrorKind = "network"
)

// ServiceError is the failure of a single upstream generation call. For HTTP
// failures it carries the upstream status and body so the user-facing layer
// can show enough detail to diagnose without server-side log access.
type ServiceError struct {
	Service string
	Kind    ErrorKind
	Message string
	Status  int
	Body    string
}

func (e *ServiceError) Error() string {
	if e.Kind == KindHTTP {
		return fmt.Sprintf("%s: %s error (status %d): %s", e.Service, e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s error: %s", e.Service, e.Kind, e.Message)
}
