package matcache

// Observer receives resolve lifecycle events. The resolver invokes it
// synchronously, so implementations should be cheap.
type Observer interface {
	On(eventData EventData)
}

// Event represents a resolve event type.
type Event int

const (
	// EventHit is emitted when Resolve returns a cached inverse.
	EventHit Event = iota
	// EventMiss is emitted when Resolve invokes the inversion primitive.
	EventMiss
)

// EventData carries the details of a resolve event.
type EventData struct {
	Event Event
	Rows  int
	Cols  int
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(eventData EventData)

func (f ObserverFunc) On(eventData EventData) { f(eventData) }
