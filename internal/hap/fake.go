package hap

// Fake is an in-memory protocol layer for tests.
type Fake struct {
	// Values holds the current characteristic values.
	Values []bool
	// Notifications records every SetSwitch call in order.
	Notifications []RemoteWrite
	// Pending is drained by Remote.
	Pending []RemoteWrite
	// Clients is returned by ConnectedClients.
	Clients int

	Announces int
	Resets    int

	// AnnounceError and ResetError, if set, are returned by the matching call.
	AnnounceError error
	ResetError    error
}

// NewFake returns a Fake with n switches, all off.
func NewFake(n int) *Fake {
	return &Fake{Values: make([]bool, n)}
}

// SetSwitch records the value and the notification.
func (f *Fake) SetSwitch(i int, on bool) {
	if i < 0 || i >= len(f.Values) {
		return
	}
	f.Values[i] = on
	f.Notifications = append(f.Notifications, RemoteWrite{Index: i, On: on})
}

// Remote returns and clears Pending.
func (f *Fake) Remote() []RemoteWrite {
	w := f.Pending
	f.Pending = nil
	return w
}

// Write queues a remote write as a controller would.
func (f *Fake) Write(i int, on bool) {
	f.Pending = append(f.Pending, RemoteWrite{Index: i, On: on})
}

// ConnectedClients returns Clients.
func (f *Fake) ConnectedClients() int {
	return f.Clients
}

// Announce counts the call.
func (f *Fake) Announce() error {
	f.Announces++
	return f.AnnounceError
}

// ResetPairing counts the call.
func (f *Fake) ResetPairing() error {
	f.Resets++
	return f.ResetError
}
