// Package github implements the label store used by labelord on top of the
// GitHub REST API.
//
// The package includes:
// - Client, a labels.LabelStore backed by go-github with paginated listing
// - Error, the structured error type for failed API calls
// - RateLimiter, which paces calls and backs off as the quota runs low
package github
