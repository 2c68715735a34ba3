package handlers

import (
	"relaygate/service/ws"
	"relaygate/tools/errs"
)

// BroadcastHandler delivers to every connected user, superusers only. A
// non-superuser gets a 4030 error frame and nothing goes out.
type BroadcastHandler struct{}

func NewBroadcastHandler() ws.Handler { return &BroadcastHandler{} }

func (h *BroadcastHandler) Type() ws.MessageType { return ws.TypeBroadcast }

func (h *BroadcastHandler) Handle(ctx *ws.Context, msg *ws.Message, conn *ws.Conn) error {
	if !conn.Superuser {
		return ctx.Mgr.SendToConn(conn, ws.NewErrorMessage(errs.CodeNotSuperuser, "broadcast requires superuser"))
	}
	out := ws.NewEvent("broadcast", msg.Data)
	out.SenderID = int64(conn.UserID)
	ctx.Mgr.BroadcastAll(out)
	return nil
}
