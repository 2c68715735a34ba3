package handlers

import (
	"relaygate/service/ws"
)

// PingHandler answers the protocol-level ping. The reply goes only to the
// connection that asked, not to the user's other devices.
type PingHandler struct{}

func NewPingHandler() ws.Handler { return &PingHandler{} }

func (h *PingHandler) Type() ws.MessageType { return ws.TypePing }

func (h *PingHandler) Handle(ctx *ws.Context, msg *ws.Message, conn *ws.Conn) error {
	return ctx.Mgr.SendToConn(conn, ws.NewPong(msg.ID))
}
