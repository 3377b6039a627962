package wagon

// TransferKind tells listeners which direction a transfer runs.
type TransferKind int

const (
	TransferDownload TransferKind = iota
	TransferUpload
)

func (k TransferKind) String() string {
	if k == TransferUpload {
		return "upload"
	}
	return "download"
}

// TransferEvent describes one transfer as seen by a listener. Size is only
// known once the relevant side has been measured: on upload it is set from
// the start, on download it is filled in for the completion event.
type TransferEvent struct {
	Resource  string
	Kind      TransferKind
	LocalFile string
	Size      int64
}

// TransferListener receives lifecycle notifications for every fetch and
// store, in initiated/started/completed order. Initiated and started always
// fire before the transfer is attempted; completed fires only on success.
type TransferListener interface {
	TransferInitiated(event TransferEvent)
	TransferStarted(event TransferEvent)
	TransferCompleted(event TransferEvent)
}

// NopListener discards all events.
type NopListener struct{}

func (NopListener) TransferInitiated(TransferEvent) {}
func (NopListener) TransferStarted(TransferEvent)   {}
func (NopListener) TransferCompleted(TransferEvent) {}

type multiListener []TransferListener

// ChainListeners fans events out to several listeners in order.
func ChainListeners(listeners ...TransferListener) TransferListener {
	return multiListener(listeners)
}

func (m multiListener) TransferInitiated(event TransferEvent) {
	for _, l := range m {
		l.TransferInitiated(event)
	}
}

func (m multiListener) TransferStarted(event TransferEvent) {
	for _, l := range m {
		l.TransferStarted(event)
	}
}

func (m multiListener) TransferCompleted(event TransferEvent) {
	for _, l := range m {
		l.TransferCompleted(event)
	}
}
