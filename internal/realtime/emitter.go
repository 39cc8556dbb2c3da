package realtime

import (
	"context"

	"github.com/yungbote/secretsanta-backend/internal/realtime/bus"
)

// Emitter hands an envelope to whatever delivers it to connected members.
type Emitter interface {
	Emit(ctx context.Context, env Envelope) error
}

// HubEmitter delivers to connections on this instance only.
type HubEmitter struct{ Hub *Hub }

func (e *HubEmitter) Emit(ctx context.Context, env Envelope) error {
	e.Hub.Broadcast(env)
	return nil
}

// BusEmitter publishes to the shared bus; every instance's forwarder then
// broadcasts to its local hub, including this one.
type BusEmitter struct{ Bus bus.Bus }

func (e *BusEmitter) Emit(ctx context.Context, env Envelope) error {
	return e.Bus.Publish(ctx, bus.Message{Channel: env.Channel, Event: string(env.Event), Data: env.Data})
}

// Forward returns a bus callback that broadcasts to hub.
func Forward(hub *Hub) func(bus.Message) {
	return func(m bus.Message) {
		hub.Broadcast(Envelope{Channel: m.Channel, Event: Event(m.Event), Data: m.Data})
	}
}
