package handlers

import (
	"relaygate/service/ws"
	"relaygate/tools/errs"
)

// JoinRoomHandler adds the user to a room (creating it on first join), acks
// the requesting connection and lets the manager broadcast presence.
type JoinRoomHandler struct{}

func NewJoinRoomHandler() ws.Handler { return &JoinRoomHandler{} }

func (h *JoinRoomHandler) Type() ws.MessageType { return ws.TypeJoinRoom }

func (h *JoinRoomHandler) Handle(ctx *ws.Context, msg *ws.Message, conn *ws.Conn) error {
	if msg.Room == "" {
		return ctx.Mgr.SendToConn(conn, ws.NewErrorMessage(errs.CodeBadRequest, "join_room requires room"))
	}
	ctx.Mgr.JoinRoom(conn.UserID, ws.RoomName(msg.Room))
	return ctx.Mgr.SendToConn(conn, ws.NewAck(msg.ID, msg.Room))
}

// LeaveRoomHandler is the inverse; the last member out destroys the room.
type LeaveRoomHandler struct{}

func NewLeaveRoomHandler() ws.Handler { return &LeaveRoomHandler{} }

func (h *LeaveRoomHandler) Type() ws.MessageType { return ws.TypeLeaveRoom }

func (h *LeaveRoomHandler) Handle(ctx *ws.Context, msg *ws.Message, conn *ws.Conn) error {
	if msg.Room == "" {
		return ctx.Mgr.SendToConn(conn, ws.NewErrorMessage(errs.CodeBadRequest, "leave_room requires room"))
	}
	ctx.Mgr.LeaveRoom(conn.UserID, ws.RoomName(msg.Room))
	return ctx.Mgr.SendToConn(conn, ws.NewAck(msg.ID, msg.Room))
}
