// Package eval orchestrates a single remote-expression call: argument
// descriptors and special-value slots are merged into real arguments,
// the expression is invoked inside the execution context, and the
// result is extracted against a result schema into a descriptor plus
// its special-value side channel.
package eval
