package explorer

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedResponse = errors.New("explorer: malformed response")
	ErrNegativeBalance   = errors.New("explorer: spent exceeds funded")
	ErrInvalidBaseURL    = errors.New("explorer: base url must be http(s)")
)

// StatusError: ответ обозревателя с кодом не из 2xx.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("explorer: %s: http %d", e.URL, e.StatusCode)
}

// IsStatus сообщает, что err: *StatusError с данным кодом.
func IsStatus(err error, code int) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == code
	}
	return false
}
