package transport

import (
	"github.com/pagebridge/pagebridge/internal/marshal"
)

// Message types exchanged over a session connection.
const (
	// Client to server.
	TypeEvaluate = "evaluate"
	TypeExpose   = "expose"
	TypeSettle   = "settle"
	TypeRelease  = "release"
	TypePing     = "ping"

	// Server to client.
	TypeResult        = "result"
	TypeBindingCalled = "bindingCalled"
	TypeError         = "error"
	TypePong          = "pong"
)

// Envelope is the wire frame for all session messages. Fields are
// populated per message type; unused fields are omitted.
type Envelope struct {
	Type string `json:"type"`
	// ID correlates a request with its eventual result or error.
	ID string `json:"id,omitempty"`

	// Evaluate carries the target expression, the positional
	// evaluation arguments and any call-site literal operands.
	Expression string          `json:"expression,omitempty"`
	Args       []marshal.Value `json:"args,omitempty"`
	Operands   []string        `json:"operands,omitempty"`

	// Expose, Settle and BindingCalled identify a bound function.
	Name string `json:"name,omitempty"`
	Seq  uint64 `json:"seq,omitempty"`

	// Settle carries the settlement payload; ErrMsg non-empty means
	// the call failed.
	Value  *marshal.Value `json:"value,omitempty"`
	ErrMsg string         `json:"error,omitempty"`

	// Release names a handle to drop.
	Handle string `json:"handle,omitempty"`

	// Result carries the evaluation outcome.
	Result   *marshal.Descriptor `json:"result,omitempty"`
	Specials []marshal.Value     `json:"specials,omitempty"`

	// Error carries a failure description.
	Message string `json:"message,omitempty"`
}

// ResultEnvelope builds a result frame for a settled evaluation.
func ResultEnvelope(id string, desc marshal.Descriptor, specials []marshal.Value) Envelope {
	return Envelope{Type: TypeResult, ID: id, Result: &desc, Specials: specials}
}

// ErrorEnvelope builds an error frame.
func ErrorEnvelope(id, message string) Envelope {
	return Envelope{Type: TypeError, ID: id, Message: message}
}

// BindingEnvelope builds a bound-function invocation frame.
func BindingEnvelope(name string, seq uint64) Envelope {
	return Envelope{Type: TypeBindingCalled, Name: name, Seq: seq}
}
