package relay

import (
	"context"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"

	"relaygate/logger"
)

// NatsConfig mirrors the knobs we actually need from the NATS client.
type NatsConfig struct {
	Servers       []string
	Name          string
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// NatsRelay is the alternative relay backend for deployments that already run
// NATS. Core (non-JetStream) pub/sub is enough: the relay is best-effort by
// contract, so no persistence or acks.
type NatsRelay struct {
	nc      *nats.Conn
	subject string
	sub     *nats.Subscription
}

func NewNatsRelay(cfg NatsConfig, subject string) (*NatsRelay, error) {
	if len(cfg.Servers) == 0 {
		return nil, errors.New("nats servers missing")
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 500 * time.Millisecond
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 3 * time.Second
	}
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warnf("[relay] nats disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Infof("[relay] nats reconnected to %s", nc.ConnectedUrl())
		}),
	}
	nc, err := nats.Connect(strings.Join(cfg.Servers, ","), opts...)
	if err != nil {
		return nil, err
	}
	return &NatsRelay{nc: nc, subject: subject}, nil
}

func (r *NatsRelay) Publish(_ context.Context, env *Envelope) error {
	payload, err := env.Marshal()
	if err != nil {
		return err
	}
	return r.nc.Publish(r.subject, payload)
}

func (r *NatsRelay) Start(_ context.Context, onEvent func(*Envelope)) error {
	sub, err := r.nc.Subscribe(r.subject, func(msg *nats.Msg) {
		env, err := Unmarshal(msg.Data)
		if err != nil {
			logger.Warnf("[relay] drop malformed envelope: %v", err)
			return
		}
		onEvent(env)
	})
	if err != nil {
		return err
	}
	r.sub = sub
	return nil
}

func (r *NatsRelay) Close() error {
	if r.sub != nil {
		_ = r.sub.Drain()
	}
	if r.nc != nil {
		return r.nc.Drain()
	}
	return nil
}
