package types

// PeerID identifies one endpoint of the synchronization protocol.
type PeerID string

// Flag is a bitset carried by every message, mirroring the fragmentation
// header this protocol is layered under.
type Flag uint8

const (
	FlagBegin Flag = 1 << iota
	FlagEnd
	FlagIdle
)

func (f Flag) has(bit Flag) bool {
	return f&bit != 0
}

// IsIdle reports whether the flag set marks a synchronization message
// (Reset / ResetAck) rather than a data fragment.
func (f Flag) IsIdle() bool {
	return f.has(FlagIdle)
}

// Message is the sum type transported between peers. Reset, ResetAck and
// DataFragment are its only variants; the synchronization layer never
// inspects a DataFragment's payload.
type Message interface {
	// Sender is the identity of the peer that emitted this message.
	Sender() PeerID

	// Flags returns the BEGIN/END/IDLE bitset carried by the message.
	Flags() Flag

	// ProtocolVersion is the wire version this message was built under.
	ProtocolVersion() uint16
}

// commonHeader embeds the fields shared by every variant.
type commonHeader struct {
	sender  PeerID
	flags   Flag
	version uint16
}

func (h commonHeader) Sender() PeerID         { return h.sender }
func (h commonHeader) Flags() Flag            { return h.flags }
func (h commonHeader) ProtocolVersion() uint16 { return h.version }

// Reset announces a fresh synchronization epoch. N is the 16-bit reset
// number chosen for this epoch.
type Reset struct {
	commonHeader
	N uint16
}

// NewReset builds a Reset message for the given sender and reset number.
func NewReset(sender PeerID, version uint16, n uint16) Reset {
	return Reset{
		commonHeader: commonHeader{sender: sender, flags: FlagIdle, version: version},
		N:            n,
	}
}

// ResetAck acknowledges a Reset, echoing back the acknowledger's own
// reset number alongside the peer's number being confirmed.
type ResetAck struct {
	commonHeader
	// R is the sender's own current reset number.
	R uint16
	// A is the peer's reset number being acknowledged.
	A uint16
}

// NewResetAck builds a ResetAck message.
func NewResetAck(sender PeerID, version uint16, r, a uint16) ResetAck {
	return ResetAck{
		commonHeader: commonHeader{sender: sender, flags: FlagIdle, version: version},
		R:            r,
		A:            a,
	}
}

// DataFragment carries an opaque payload under the synchronization
// handshake; assembly/reassembly of fragments is outside this system.
type DataFragment struct {
	commonHeader
	FragmentID uint32
	Payload    []byte
}

// NewDataFragment builds a DataFragment message with the given flags
// (BEGIN/END as applicable); IDLE must not be set.
func NewDataFragment(sender PeerID, version uint16, fragmentID uint32, payload []byte, flags Flag) DataFragment {
	return DataFragment{
		commonHeader: commonHeader{sender: sender, flags: flags &^ FlagIdle, version: version},
		FragmentID:   fragmentID,
		Payload:      payload,
	}
}
