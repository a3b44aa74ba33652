package wire

import "fmt"

// Action tags every request and response header.
type Action uint32

const (
	Connect Action = iota
	Announce
	Scrape
	Error
)

// ProtocolID is the connection id placeholder every Connect request must carry.
const ProtocolID uint64 = 0x0000041727101980

var actionStrings = []string{"connect", "announce", "scrape", "error"}

func (a Action) String() string {
	if int(a) >= len(actionStrings) {
		return fmt.Sprintf("unknown(%d)", uint32(a))
	}
	return actionStrings[a]
}
