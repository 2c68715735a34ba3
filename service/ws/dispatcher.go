package ws

// Handler processes one inbound message type. Handlers send their own replies
// through the manager; a returned error is logged and the loop continues,
// since protocol-level problems are never fatal to the connection.
type Handler interface {
	Type() MessageType
	Handle(ctx *Context, msg *Message, conn *Conn) error
}

// Context is what handlers get to work with.
type Context struct {
	GatewayID string
	Mgr       *ConnManager
}

type Dispatcher struct {
	handlers map[MessageType]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[MessageType]Handler)}
}

// Register wires a handler for its declared type. Call during startup only;
// the map is read concurrently afterwards.
func (d *Dispatcher) Register(h Handler) { d.handlers[h.Type()] = h }

func (d *Dispatcher) Get(t MessageType) Handler {
	return d.handlers[t]
}
