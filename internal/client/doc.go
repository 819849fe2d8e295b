// Package client is a typed HTTP client for the HDX Age API. It is used by
// the agectl command and by end-to-end tests.
package client
