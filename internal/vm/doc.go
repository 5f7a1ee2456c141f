// Package vm hosts JavaScript execution contexts on goja runtimes.
//
// Each Context runs its runtime on a dedicated event loop, so callers
// may use the Context concurrently while all VM work stays on one
// goroutine. Values crossing the boundary are converted to and from
// marshal.Value: JSON-shaped data is copied, while functions, symbols,
// promises and exotic objects remain in the VM behind handles.
//
// BindFunction installs host-callable globals that route through a
// bridge.Registry and settle as promises.
package vm
