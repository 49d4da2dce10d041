package types

// State is one of the six synchronization states a Peer can occupy.
// Naming convention: (local-half, remote-half); OkOk means both halves
// are synchronized and the peer is data-ready.
type State int

const (
	Reboot State = iota
	InitInit
	InitOk
	SyncOk
	SyncInit
	OkInit
	OkOk
)

var stateNames = map[State]string{
	Reboot:   "REBOOT",
	InitInit: "INIT_INIT",
	InitOk:   "INIT_OK",
	SyncOk:   "SYNC_OK",
	SyncInit: "SYNC_INIT",
	OkInit:   "OK_INIT",
	OkOk:     "OK_OK",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// Stats bundles the counters a Peer keeps across its lifetime. Every
// counter survives a reboot except Reboots itself, which is incremented.
type Stats struct {
	DataRecv     uint64
	DataSent     uint64
	DataNotOk    uint64
	ResetRecv    uint64
	ResetSent    uint64
	ResetAckRecv uint64
	ResetAckSent uint64
	Reboots      uint64
}
