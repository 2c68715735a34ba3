package handlers

import (
	"relaygate/service/ws"
)

// RegisterAll wires every protocol handler into the dispatcher.
func RegisterAll(d *ws.Dispatcher) {
	d.Register(NewPingHandler())
	d.Register(NewJoinRoomHandler())
	d.Register(NewLeaveRoomHandler())
	d.Register(NewMessageHandler())
	d.Register(NewBroadcastHandler())
	d.Register(NewTypingHandler())
}
