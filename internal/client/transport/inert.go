package transport

// inertTransport satisfies the Transport contract with empty operations. It
// is returned when the push channel cannot be established so that callers
// never need to branch on transport availability.
type inertTransport struct{}

// NewInert returns the no-op transport.
func NewInert() Transport {
	return inertTransport{}
}

func (inertTransport) OnMessage(Handler) func() { return func() {} }

func (inertTransport) Send(string, Event) {}

func (inertTransport) Close() {}
