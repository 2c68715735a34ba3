package handlers

import (
	"relaygate/service/ws"
	"relaygate/tools/errs"
)

// TypingHandler relays a typing indicator to the other room members as an
// event. Deliberately no ack: indicators are fire-and-forget.
type TypingHandler struct{}

func NewTypingHandler() ws.Handler { return &TypingHandler{} }

func (h *TypingHandler) Type() ws.MessageType { return ws.TypeTyping }

func (h *TypingHandler) Handle(ctx *ws.Context, msg *ws.Message, conn *ws.Conn) error {
	if msg.Room == "" {
		return ctx.Mgr.SendToConn(conn, ws.NewErrorMessage(errs.CodeBadRequest, "typing requires room"))
	}
	typing := msg.IsTyping != nil && *msg.IsTyping
	out := ws.NewEvent("typing", nil)
	out.Room = msg.Room
	out.SenderID = int64(conn.UserID)
	out.IsTyping = &typing
	sender := conn.UserID
	ctx.Mgr.BroadcastRoom(ws.RoomName(msg.Room), out, &sender)
	return nil
}
