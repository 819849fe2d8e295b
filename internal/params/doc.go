// Package params converts raw query-string values into typed values.
//
// Every incoming request is normalized before its arguments are bound: a raw
// string becomes a bool, an int, a float, null, or stays a string, in that
// order of preference. Parsing never fails.
package params
