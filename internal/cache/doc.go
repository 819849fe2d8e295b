// Package cache stores computed JSON response bodies under deterministic
// keys with a time-to-live. It offers read-through computation, targeted
// deletion and a full reset on top of a pluggable Store (in-memory or Redis).
package cache
