package core

import (
	"fmt"
	"io"
	"net/http"
)

const maxErrorBody = 2048

// TransportError is returned when a remote service answers with a
// non-success status
type TransportError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *TransportError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}

// NewTransportError builds a TransportError from a response, consuming a
// bounded prefix of its body
func NewTransportError(op string, resp *http.Response) *TransportError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &TransportError{
		Op:         op,
		StatusCode: resp.StatusCode,
		Body:       string(body),
	}
}

// UploadError reports a file the workflow engine did not accept
type UploadError struct {
	Path       string
	StatusCode int
	Body       string
	Err        error
}

func (e *UploadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upload %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("upload %s: status %d: %s", e.Path, e.StatusCode, e.Body)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}
