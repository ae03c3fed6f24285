// Package transport carries JSON messages between a page and the dev
// server over a WebSocket.
//
// Every frame is an object of the form {"type": ..., "data": ...}. Inbound
// hmr:update messages feed the update pipeline; state:update and
// state:batch-update messages are applied to the store without being
// published back, so a value never echoes between peers.
package transport
