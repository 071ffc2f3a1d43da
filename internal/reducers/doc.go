// Package reducers holds the example reducers shipped with statecell and a
// registry that resolves them by name.
//
// States are plain data (int64, string, []any, map[string]any) so they can
// be hashed, journaled, validated against CUE schemas and queried by path.
package reducers
