package cache

import (
	"fmt"
	"strings"

	"github.com/phrazzld/hdx-age-api/internal/params"
)

// KeyFor builds the cache key of a request from its path and normalized
// parameters. Parameters are sorted by name, so two requests that differ
// only in query order share a key.
func KeyFor(path string, p params.Params) string {
	query := p.Encode()
	if query == "" {
		return path
	}
	return path + "?" + query
}

// MemoKey builds the cache key of a memoized function call from the
// function name and its arguments.
func MemoKey(name string, args ...any) string {
	rendered := make([]string, len(args))
	for i, arg := range args {
		switch v := arg.(type) {
		case params.Value:
			// tag the kind so Int(2) and String("2") never collide
			rendered[i] = v.Kind().String() + ":" + v.Canonical()
		case string:
			rendered[i] = fmt.Sprintf("%q", v)
		default:
			rendered[i] = fmt.Sprintf("%v", v)
		}
	}
	return name + "(" + strings.Join(rendered, ",") + ")"
}
