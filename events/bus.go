package events

// Handler receives a published envelope. Handlers run on the publisher's
// goroutine in the memory backend; long work belongs elsewhere.
type Handler func(Envelope)

// Unsubscribe removes a subscription. Calling it more than once is a no-op.
type Unsubscribe func()

// Bus is the in-process event fabric. Publish stamps the data into an
// envelope and delivers it to every subscriber registered for the topic at
// publish time.
type Bus interface {
	Publish(topic string, data map[string]any) Envelope
	Subscribe(topic string, handler Handler) Unsubscribe
}

// Backend names accepted by New (the BOT_EVENT_BUS setting).
const (
	BackendMemory = "memory"
	BackendInproc = "inproc"
	BackendLog    = "log"
	BackendNATS   = "nats"
)
