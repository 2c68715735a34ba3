package handlers

import (
	"relaygate/service/ws"
	"relaygate/tools/errs"
)

// MessageHandler relays a room message to every other member. The sender is
// excluded by user id, so none of their devices see an echo; they get an ack
// on the sending connection instead.
type MessageHandler struct{}

func NewMessageHandler() ws.Handler { return &MessageHandler{} }

func (h *MessageHandler) Type() ws.MessageType { return ws.TypeMessage }

func (h *MessageHandler) Handle(ctx *ws.Context, msg *ws.Message, conn *ws.Conn) error {
	if msg.Room == "" {
		return ctx.Mgr.SendToConn(conn, ws.NewErrorMessage(errs.CodeBadRequest, "message requires room"))
	}
	out := &ws.Message{
		Type:     ws.TypeMessage,
		Room:     msg.Room,
		Data:     msg.Data,
		SenderID: int64(conn.UserID),
	}
	sender := conn.UserID
	ctx.Mgr.BroadcastRoom(ws.RoomName(msg.Room), out, &sender)
	return ctx.Mgr.SendToConn(conn, ws.NewAck(msg.ID, msg.Room))
}
