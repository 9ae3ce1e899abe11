// Package server implements the room relay: a WebSocket endpoint whose
// clients create and join named rooms and exchange chat messages with the
// other members of their room.
//
// The Registry tracks room membership, the Router applies decoded commands
// against it, and the Hub owns client lifecycles. HTTP wiring, configuration,
// and origin checks live alongside them.
package server
