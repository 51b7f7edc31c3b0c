// Package wsbridge implements the session transport over a websocket to a
// protocol bridge.
//
// The bridge owns the multi-device wire protocol and the end-to-end
// cryptography. This package only moves JSON frames:
//
//	client -> bridge: hello, send, creds.ack
//	bridge -> client: connection.update, creds.update, messages.upsert,
//	                  messages.update, send.result
//
// A bridge that closes the socket with a code of 4000 or above reports the
// protocol status code plus 4000 (4401 is logged out, 4440 is replaced).
package wsbridge
