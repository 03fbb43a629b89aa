package wifi

// BeginCall records one FakeNetwork.Begin call.
type BeginCall struct {
	SSID     string
	Password string
	Lock     *Lock
}

// FakeNetwork is a scripted Network for tests.
type FakeNetwork struct {
	// APs is returned by Scan.
	APs []AccessPoint
	// ScanError, if set, is returned by Scan.
	ScanError error

	// Link is the status returned by Status.
	Link Status
	// StatusError, if set, is returned by Status.
	StatusError error
	// ConnectAfter, when positive, flips Link to Connected after that many
	// Status calls following a Begin or Reconnect.
	ConnectAfter int

	// BeginError and ReconnectError, if set, are returned by the matching call.
	BeginError     error
	ReconnectError error

	Scans       int
	StatusCalls int
	Begins      []BeginCall
	Reconnects  int
	Disconnects []bool

	pending int
}

// Scan returns the scripted access points.
func (f *FakeNetwork) Scan() ([]AccessPoint, error) {
	f.Scans++
	if f.ScanError != nil {
		return nil, f.ScanError
	}
	return append([]AccessPoint(nil), f.APs...), nil
}

// Begin records the call.
func (f *FakeNetwork) Begin(ssid, password string, lock *Lock) error {
	var l *Lock
	if lock != nil {
		c := *lock
		l = &c
	}
	f.Begins = append(f.Begins, BeginCall{SSID: ssid, Password: password, Lock: l})
	if f.BeginError != nil {
		return f.BeginError
	}
	f.pending = f.ConnectAfter
	return nil
}

// Status returns the scripted link state.
func (f *FakeNetwork) Status() (Status, error) {
	f.StatusCalls++
	if f.StatusError != nil {
		return Disconnected, f.StatusError
	}
	if f.pending > 0 {
		f.pending--
		if f.pending == 0 {
			f.Link = Connected
		}
	}
	return f.Link, nil
}

// Reconnect records the call.
func (f *FakeNetwork) Reconnect() error {
	f.Reconnects++
	if f.ReconnectError != nil {
		return f.ReconnectError
	}
	f.pending = f.ConnectAfter
	return nil
}

// Disconnect records the call and drops the link.
func (f *FakeNetwork) Disconnect(erase bool) error {
	f.Disconnects = append(f.Disconnects, erase)
	f.Link = Disconnected
	return nil
}
