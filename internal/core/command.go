package core

// Command is the one-byte command code carried as the first payload byte
// of a TM or TC packet, or as the single trailing byte of an OA packet.
type Command uint8

// Command codes. The OA codes (0x31, 0x33, 0x34) are valid only in
// open-access packets; everything else rides inside SPP payloads.
const (
	CmdNone        Command = 0x00
	CmdXmitCount   Command = 0x01
	CmdXmitHealth  Command = 0x02
	CmdXmitScience Command = 0x03
	CmdReset       Command = 0x04
	CmdAck         Command = 0x05
	CmdNak         Command = 0x06
	CmdWriteMem    Command = 0x07
	CmdReadMem     Command = 0x08
	CmdNoop        Command = 0x09
	CmdSetMode     Command = 0x0A
	CmdSetComms    Command = 0x0B
	CmdGetComms    Command = 0x0C
	CmdGetMode     Command = 0x0D
	CmdMacTest     Command = 0x0E
	CmdCeaseXmit   Command = 0x7F

	CmdPingReturn Command = 0x31
	CmdRadioReset Command = 0x33
	CmdPinToggle  Command = 0x34

	// CmdBad is the synthetic command of the sentinel produced when the
	// receive path times out or a frame cannot be parsed. It never
	// appears on the wire.
	CmdBad Command = 0xFF
)

var commandNames = map[Command]string{
	CmdXmitCount:   "XMIT_COUNT",
	CmdXmitHealth:  "XMIT_HEALTH",
	CmdXmitScience: "XMIT_SCIENCE",
	CmdReset:       "RESET",
	CmdAck:         "ACK",
	CmdNak:         "NAK",
	CmdWriteMem:    "WRITE_MEM",
	CmdReadMem:     "READ_MEM",
	CmdNoop:        "NOOP",
	CmdSetMode:     "SET_MODE",
	CmdSetComms:    "SET_COMMS",
	CmdGetComms:    "GET_COMMS",
	CmdGetMode:     "GET_MODE",
	CmdMacTest:     "MAC_TEST",
	CmdCeaseXmit:   "CEASE_XMIT",
	CmdPingReturn:  "PING_RETURN",
	CmdRadioReset:  "RADIO_RESET",
	CmdPinToggle:   "PIN_TOGGLE",
}

var commandCodes = func() map[string]Command {
	m := make(map[string]Command, len(commandNames))
	for code, name := range commandNames {
		m[name] = code
	}
	return m
}()

// String returns the symbolic command name, or "UNKNOWN" for codes
// outside the catalog.
func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}

// CommandByName resolves a symbolic name from the catalog. The catalog is
// bijective and immutable; callers such as command sequencers issue
// commands by name.
func CommandByName(name string) (Command, bool) {
	c, ok := commandCodes[name]
	return c, ok
}

// IsOpenAccess reports whether the code is one of the three OA commands.
func (c Command) IsOpenAccess() bool {
	return c == CmdPingReturn || c == CmdRadioReset || c == CmdPinToggle
}
