// Package server defines the error taxonomy shared by the registry, the
// router and the connection handlers.
package server

import "errors"

var (
	// ErrRoomAlreadyExists is returned when a create targets a name already in use.
	ErrRoomAlreadyExists = errors.New("room already exists")
	// ErrRoomNotFound is returned when a join targets a room that does not exist.
	ErrRoomNotFound = errors.New("room not found")
	// ErrNotInRoom is returned when a chat is sent by a connection outside any room.
	ErrNotInRoom = errors.New("not in a room")
	// ErrDecode wraps every failure to turn an inbound frame into a Command.
	ErrDecode = errors.New("decode frame")
	// ErrConnectionClosed is returned by Send once the connection has been released.
	ErrConnectionClosed = errors.New("connection closed")
	// ErrSendBufferFull is returned by Send when the outbound queue is saturated.
	ErrSendBufferFull = errors.New("send buffer full")
)
