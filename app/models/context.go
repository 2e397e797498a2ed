package models

import "net/http"

// SubscriberContext keys the normalized subscriber id carried by a request context.
type SubscriberContext struct{}

// RoundTripperFunc lets tests serve provider HTTP calls in memory.
type RoundTripperFunc func(req *http.Request) (*http.Response, error)

func (fn RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return fn(req)
}
