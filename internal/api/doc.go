// Package api handles incoming HTTP requests for the dataset age service.
// It normalizes query parameters, consults the response cache, hands work
// to the dispatcher and translates errors into HTTP status codes.
package api
