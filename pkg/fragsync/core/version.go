package core

import (
	"fmt"

	goversion "github.com/hashicorp/go-version"

	"github.com/jabolina/go-fragsync/pkg/fragsync/types"
)

// SupportedProtocolVersion is the only wire version this build's Peer
// accepts, expressed as a hashicorp/go-version semver value.
var SupportedProtocolVersion = goversion.Must(goversion.NewVersion("1.0.0"))

// CheckMessageVersion reports whether message was built under a
// protocol version this Peer can process. This check runs before the
// FSM ever sees the message, independent of and prior to the FSM's
// own state-driven acceptance rules.
func CheckMessageVersion(message types.Message) error {
	v, err := goversion.NewVersion(fmt.Sprintf("%d.0.0", message.ProtocolVersion()))
	if err != nil {
		return fmt.Errorf("fragsync: malformed protocol version on message from %s: %w", message.Sender(), err)
	}
	if !v.Equal(SupportedProtocolVersion) {
		return fmt.Errorf("fragsync: %s sent unsupported protocol version %s (want %s)", message.Sender(), v, SupportedProtocolVersion)
	}
	return nil
}
