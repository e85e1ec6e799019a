// Package server exposes a driver's read-only state over plain HTTP and
// WebSocket, for the out-of-scope visualization layer to consume. The
// driver never knows whether anything is listening: frames pushed to a
// slow or absent client are dropped, never queued.
package server
