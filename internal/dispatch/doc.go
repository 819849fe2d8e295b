// Package dispatch decides, per request, whether a unit of work runs inline
// or is handed to the background task runner.
//
// Callers split the "sync" flag off the normalized parameters with SplitSync
// and pass the remaining parameters to their work function. A synchronous
// dispatch returns {"result": ...}; an asynchronous one returns a Ticket the
// client can poll at its result URL.
package dispatch
