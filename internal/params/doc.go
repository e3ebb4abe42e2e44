// Package params parses transform parameters given as repeated
// --param key=value flags or as a .env style file (--params-file).
//
// Flag values override file values. Values are plain strings; transform
// operations split comma-separated lists themselves.
package params
