// Package boot assembles a running ground station from its static
// configuration.
package boot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cygnusgs/groundlink/internal/arq"
	"github.com/cygnusgs/groundlink/internal/ax25"
	"github.com/cygnusgs/groundlink/internal/config"
	"github.com/cygnusgs/groundlink/internal/crypto/speck"
	"github.com/cygnusgs/groundlink/internal/display"
	"github.com/cygnusgs/groundlink/internal/gpstime"
	"github.com/cygnusgs/groundlink/internal/log"
	"github.com/cygnusgs/groundlink/internal/metrics"
	"github.com/cygnusgs/groundlink/internal/radio"
	"github.com/cygnusgs/groundlink/internal/spp"
	"github.com/cygnusgs/groundlink/internal/station"
	"github.com/cygnusgs/groundlink/internal/transport"
)

// Start wires the full stack and runs the session until SIGINT or
// SIGTERM, or until the radio link dies.
func Start(cfg *config.GlobalConfig) error {
	logger := log.New(cfg.Log)

	keys, err := cfg.SessionKeys()
	if err != nil {
		return err
	}
	calls, err := cfg.Callsigns()
	if err != nil {
		return err
	}

	codec := spp.NewCodec(keys, gpstime.SystemClock(cfg.Station.LeapSeconds))
	framer := ax25.NewFramer(calls[0], calls[1], cfg.Radio.FixedUplinkFrames)

	var tf transport.Framer
	var link *radio.Link
	switch cfg.Radio.Transport {
	case "kiss":
		tf = transport.NewKiss()
		link, err = radio.DialKISS(cfg.Radio.KissRxAddr, cfg.Radio.KissTxAddr)
	case "lithium":
		tf = transport.NewLithium(logger)
		link, err = radio.OpenSerial(cfg.Radio.SerialDevice, cfg.Radio.SerialBaud)
	default:
		return fmt.Errorf("unknown transport %q", cfg.Radio.Transport)
	}
	if err != nil {
		return err
	}

	var cipher *speck.Codec
	if cfg.Link.EncryptUplink {
		cipher = speck.NewCodec(keys.Cipher, keys.CipherIV)
	}

	r := radio.New(tf, link, cipher, cfg.Link.Turnaround, logger)
	st := station.New(r, display.New(codec, framer, os.Stdout), logger)
	ctrl := arq.New(codec, framer, st.Tee(r), cfg.LinkParams(), logger, sessionEvents(logger))
	st.Attach(ctrl)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path)
		if err := srv.Start(ctx); err != nil {
			return err
		}
		defer srv.Stop(context.Background())
	}

	go func() {
		if err := st.Console(ctx, os.Stdin); err != nil {
			logger.Error("console failed", "err", err)
		}
	}()

	logger.Info("ground station up",
		"transport", cfg.Radio.Transport,
		"spacecraft", cfg.Station.SpacecraftCallsign,
		"ground", cfg.Station.GroundCallsign,
		"encrypt_uplink", cfg.Link.EncryptUplink)

	err = st.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// sessionEvents turns controller notifications into operator-facing log
// lines.
func sessionEvents(logger *slog.Logger) func(arq.Event) {
	return func(ev arq.Event) {
		switch ev.Kind {
		case arq.EventDownlinkComplete:
			logger.Info("downlink complete")
		case arq.EventDownlinkAborted:
			logger.Warn("downlink aborted, retry budget exhausted")
		case arq.EventCountsUpdated:
			logger.Info("payload counts",
				"health", ev.Counts.Health,
				"science", ev.Counts.Science)
		case arq.EventCommsUpdated:
			logger.Info("spacecraft comms parameters",
				"window", ev.Comms.Window,
				"max_retries", ev.Comms.MaxRetries,
				"ack_timeout_s", ev.Comms.AckTimeout,
				"spacecraft_seq", ev.Comms.SpacecraftSeq,
				"ground_seq", ev.Comms.GroundSeq,
				"turnaround_ms", ev.Comms.Turnaround,
				"power", ev.Comms.Power)
		case arq.EventPacket:
			logger.Debug("telemetry packet",
				"seq", ev.Packet.Seq,
				"command", ev.Packet.Command().String(),
				"len", len(ev.Packet.Payload))
		}
	}
}
