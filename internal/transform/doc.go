// Package transform applies named dataset operations in a configured order.
//
// Operations are registered in a Registry. Build resolves a list of names
// against the registry and validates each operation's parameters up front,
// so a misconfigured pipeline fails before any data is read. Every step
// receives the previous step's output; none of them mutate their input.
package transform
