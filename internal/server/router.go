// Package server turns decoded commands into registry mutations and outbound
// events via the Router type.
package server

import (
	"errors"
	"log/slog"
)

// Replies sent to the originating connection.
const (
	msgRoomCreated       = "Room created"
	msgRoomAlreadyExists = "Room already exists"
	msgRoomNotFound      = "Room does not exist"
	msgNotInRoom         = "You are not in a room"
	msgJoinedRoomPrefix  = "Joined room "
)

// Router applies one command at a time on behalf of a peer. It is stateless
// apart from the Registry, so a single Router serves every connection.
type Router struct {
	registry *Registry
}

// NewRouter returns a Router backed by registry.
func NewRouter(registry *Registry) *Router {
	return &Router{registry: registry}
}

// HandleFrame decodes a raw inbound frame and dispatches it. Frames that fail
// to decode are logged and dropped; the returned error wraps ErrDecode.
func (rt *Router) HandleFrame(peer Peer, raw []byte) error {
	cmd, err := DecodeCommand(raw)
	if err != nil {
		slog.Warn("dropping invalid frame", "clientId", peer.ID(), "error", err)
		return err
	}
	return rt.Dispatch(peer, cmd)
}

// Dispatch applies cmd for peer. The returned error is the protocol failure
// that was reported to peer, if any.
func (rt *Router) Dispatch(peer Peer, cmd Command) error {
	switch cmd.Type {
	case CommandCreate:
		return rt.create(peer, cmd.RoomID)
	case CommandJoin:
		return rt.join(peer, cmd.RoomID)
	case CommandChat:
		return rt.chat(peer, cmd.Text)
	default:
		return ErrDecode
	}
}

func (rt *Router) create(peer Peer, roomID string) error {
	if err := rt.registry.CreateRoom(peer, roomID); err != nil {
		if errors.Is(err, ErrRoomAlreadyExists) {
			rt.reply(peer, EventError, msgRoomAlreadyExists)
		}
		return err
	}
	rt.reply(peer, EventSuccess, msgRoomCreated)
	return nil
}

func (rt *Router) join(peer Peer, roomID string) error {
	if err := rt.registry.JoinRoom(peer, roomID); err != nil {
		if errors.Is(err, ErrRoomNotFound) {
			rt.reply(peer, EventError, msgRoomNotFound)
		}
		return err
	}
	rt.reply(peer, EventInfo, msgJoinedRoomPrefix+roomID)
	return nil
}

func (rt *Router) chat(peer Peer, text string) error {
	roomID, ok := rt.registry.RoomOf(peer)
	if !ok {
		rt.reply(peer, EventError, msgNotInRoom)
		return ErrNotInRoom
	}

	frame, err := EncodeEvent(EventChat, text)
	if err != nil {
		slog.Error("encoding chat event failed", "clientId", peer.ID(), "error", err)
		return err
	}

	// Sends go into per-peer queues after the snapshot is taken, so the
	// registry lock is never held while a peer is slow.
	targets := rt.registry.Members(roomID, peer)
	delivered := 0
	for _, target := range targets {
		if err := target.Send(frame); err != nil {
			slog.Debug("skipping chat delivery", "room", roomID, "clientId", target.ID(), "error", err)
			continue
		}
		delivered++
	}

	slog.Debug("chat broadcast", "room", roomID, "clientId", peer.ID(), "targets", len(targets), "delivered", delivered)
	return nil
}

func (rt *Router) reply(peer Peer, t EventType, message string) {
	frame, err := EncodeEvent(t, message)
	if err != nil {
		slog.Error("encoding reply failed", "clientId", peer.ID(), "error", err)
		return
	}
	if err := peer.Send(frame); err != nil {
		slog.Debug("reply not delivered", "clientId", peer.ID(), "type", t, "error", err)
	}
}
