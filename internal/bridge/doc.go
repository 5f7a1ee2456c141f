// Package bridge implements the call-correlation side of exposed
// functions: the execution context invokes a host-implemented function
// and awaits a JSON-only result, with concurrent outstanding calls
// correlated by (name, sequence-number) pairs.
package bridge
