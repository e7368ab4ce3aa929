package testutil

import (
	"net/http"
	"time"

	"kycgate/pkg/requestcontext"
)

// WithTime pins the request time so handlers render deterministic timestamps.
// This simulates what the request time middleware would do.
func WithTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
