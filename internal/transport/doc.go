// Package transport frames session traffic over WebSocket.
//
// Every message is an Envelope tagged with a type; request/response
// pairs correlate through an ID chosen by the requester. Envelopes are
// encoded with sonic and carry marshal values directly, so remote
// handles, bigints and undefined survive the wire in their marker
// forms.
package transport
