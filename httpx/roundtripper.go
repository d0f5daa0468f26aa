package httpx

import "net/http"

// RoundTripperFunc adapts a function to an http.RoundTripper. Handy for fakes in tests.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
