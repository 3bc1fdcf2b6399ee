package station

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cygnusgs/groundlink/internal/core"
	"github.com/cygnusgs/groundlink/internal/spp"
)

// Request is one parsed operator command: either a TC payload or an
// open-access command, never both.
type Request struct {
	Payload []byte
	OA      core.Command
}

// ParseCommand turns an operator line like "XMIT_HEALTH 1" or
// "PING_RETURN" into a transmit request. Numeric arguments accept the
// 0x prefix; XMIT_HEALTH and XMIT_SCIENCE also accept "dump".
func ParseCommand(line string) (Request, error) {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 {
		return Request{}, fmt.Errorf("empty command")
	}
	name := strings.ToUpper(fields[0])
	cmd, ok := core.CommandByName(name)
	if !ok {
		return Request{}, fmt.Errorf("unknown command %q", name)
	}
	args := fields[1:]

	if cmd.IsOpenAccess() {
		if len(args) != 0 {
			return Request{}, fmt.Errorf("%s takes no arguments", name)
		}
		return Request{OA: cmd}, nil
	}

	switch cmd {
	case core.CmdNoop:
		return fixed(spp.Noop(), name, args)
	case core.CmdCeaseXmit:
		return fixed(spp.CeaseXmit(), name, args)
	case core.CmdXmitCount:
		return fixed(spp.XmitCount(), name, args)
	case core.CmdGetComms:
		return fixed(spp.GetComms(), name, args)
	case core.CmdGetMode:
		return fixed(spp.GetMode(), name, args)
	case core.CmdMacTest:
		return fixed(spp.MacTest(), name, args)

	case core.CmdXmitHealth, core.CmdXmitScience:
		count, err := parseCount(args)
		if err != nil {
			return Request{}, fmt.Errorf("%s: %w", name, err)
		}
		if cmd == core.CmdXmitHealth {
			return Request{Payload: spp.XmitHealth(count)}, nil
		}
		return Request{Payload: spp.XmitScience(count)}, nil

	case core.CmdReset:
		vals, err := parseUints(args, 1, 16)
		if err != nil {
			return Request{}, fmt.Errorf("RESET needs a 16-bit mask: %w", err)
		}
		return Request{Payload: spp.Reset(uint16(vals[0]))}, nil

	case core.CmdSetMode:
		vals, err := parseUints(args, 1, 8)
		if err != nil {
			return Request{}, fmt.Errorf("SET_MODE needs a mode byte: %w", err)
		}
		return Request{Payload: spp.SetMode(uint8(vals[0]))}, nil

	case core.CmdReadMem:
		vals, err := parseUints(args, 2, 16)
		if err != nil {
			return Request{}, fmt.Errorf("READ_MEM needs start and end addresses: %w", err)
		}
		return Request{Payload: spp.ReadMem(uint16(vals[0]), uint16(vals[1]))}, nil

	case core.CmdWriteMem:
		if len(args) < 3 {
			return Request{}, fmt.Errorf("WRITE_MEM needs start, end and at least one word")
		}
		vals, err := parseUints(args, len(args), 16)
		if err != nil {
			return Request{}, fmt.Errorf("WRITE_MEM: %w", err)
		}
		words := make([]uint16, len(vals)-2)
		for i, v := range vals[2:] {
			words[i] = uint16(v)
		}
		return Request{Payload: spp.WriteMem(uint16(vals[0]), uint16(vals[1]), words)}, nil

	case core.CmdSetComms:
		vals, err := parseUints(args, 8, 16)
		if err != nil {
			return Request{}, fmt.Errorf("SET_COMMS needs window retries timeout skew sc_seq gnd_seq turnaround power: %w", err)
		}
		for _, i := range []int{0, 1, 2, 3, 7} {
			if vals[i] > 0xFF {
				return Request{}, fmt.Errorf("SET_COMMS argument %d exceeds one byte", i+1)
			}
		}
		return Request{Payload: spp.SetComms(spp.CommsBlock{
			Window:        uint8(vals[0]),
			MaxRetries:    uint8(vals[1]),
			AckTimeout:    uint8(vals[2]),
			SequenceSkew:  uint8(vals[3]),
			SpacecraftSeq: uint16(vals[4]),
			GroundSeq:     uint16(vals[5]),
			Turnaround:    uint16(vals[6]),
			Power:         uint8(vals[7]),
		})}, nil
	}
	return Request{}, fmt.Errorf("command %q cannot be sent from the console", name)
}

func fixed(payload []byte, name string, args []string) (Request, error) {
	if len(args) != 0 {
		return Request{}, fmt.Errorf("%s takes no arguments", name)
	}
	return Request{Payload: payload}, nil
}

func parseCount(args []string) (uint8, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("needs a packet count or \"dump\"")
	}
	if strings.EqualFold(args[0], "dump") {
		return spp.DumpAll, nil
	}
	n, err := strconv.ParseUint(args[0], 0, 8)
	if err != nil {
		return 0, err
	}
	return uint8(n), nil
}

func parseUints(args []string, want, bits int) ([]uint64, error) {
	if len(args) != want {
		return nil, fmt.Errorf("got %d arguments, want %d", len(args), want)
	}
	out := make([]uint64, len(args))
	for i, a := range args {
		v, err := strconv.ParseUint(a, 0, bits)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		out[i] = v
	}
	return out, nil
}

// Console reads operator commands line by line and feeds them to the
// controller. It returns when the reader is exhausted or ctx ends.
func (s *Station) Console(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		req, err := ParseCommand(line)
		if err != nil {
			s.log.Warn("bad command", "line", line, "err", err)
			continue
		}
		if req.Payload != nil {
			err = s.ctrl.SendCommand(ctx, req.Payload)
		} else {
			err = s.ctrl.SendOpenAccess(ctx, req.OA)
		}
		if err != nil {
			s.log.Error("command transmit failed", "line", line, "err", err)
		}
	}
	return scanner.Err()
}
