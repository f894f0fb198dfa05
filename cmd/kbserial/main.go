package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/coreman2200/funtimes-ti99kb/internal/config"
	diag "github.com/coreman2200/funtimes-ti99kb/internal/diagnostics"
	"github.com/coreman2200/funtimes-ti99kb/internal/firmware"
	"github.com/coreman2200/funtimes-ti99kb/internal/indicator"
	"github.com/coreman2200/funtimes-ti99kb/internal/matrix"
	"github.com/coreman2200/funtimes-ti99kb/internal/monitor"
	"github.com/coreman2200/funtimes-ti99kb/internal/sim"
	"github.com/coreman2200/funtimes-ti99kb/internal/timing"
	"github.com/coreman2200/funtimes-ti99kb/internal/wire"
)

func main() {
	// ---- Flags (config.yaml overrides where set) ----
	var (
		configPath  = flag.String("config", "config.yaml", "path to config.yaml")
		writeConfig = flag.Bool("write-config", false, "write the default config to -config and exit")
		driver      = flag.String("driver", "", "driver: gpio | sim (overrides config)")
		addr        = flag.String("addr", "", "monitor listen address, e.g. :8080 (overrides config)")
		typeText    = flag.String("type", "", "sim driver: text to type once at start-up")
		debug       = flag.Bool("debug", false, "log every latched key")
	)
	flag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	if *writeConfig {
		if err := config.Save(*configPath, config.Default()); err != nil {
			log.Fatal().Err(err).Str("path", *configPath).Msg("write config")
		}
		log.Info().Str("path", *configPath).Msg("default config written")
		return
	}

	// ---- Load config.yaml (optional) ----
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; using defaults")
		cfg = config.Default()
	}
	if *driver != "" {
		cfg.Driver = *driver
	}
	if *addr != "" {
		cfg.Monitor.Addr = *addr
	}
	if *typeText != "" {
		cfg.Sim.Text = *typeText
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("invalid config")
	}

	// ---- Driver selection: gpio falls back to sim ----
	var notes []diag.Diagnostic
	var hw *hardware
	if cfg.Driver == "gpio" {
		hw, err = openGPIO(cfg)
		if err != nil {
			log.Warn().Err(err).Str("driver", "gpio").Msg("GPIO init failed; falling back to SIM")
			notes = append(notes, diag.Fallback("gpio", err))
			cfg.Driver = "sim"
		}
	}
	if hw == nil {
		hw, err = openSim(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("sim init failed")
		}
	}

	// ---- Firmware ----
	delay := timing.NewDelayer(timing.NewTickerSource())
	tx := wire.NewTransmitter(hw.data, hw.clock, delay)
	tx.Hold = cfg.Timing.SignalDelayMs

	ctl := firmware.New(matrix.NewScanner(hw.port), tx, delay)
	ctl.KeyReadDelay = cfg.Timing.KeyReadDelayMs
	ctl.BootDelay = cfg.Timing.BootDelayMs
	ctl.Log = log.Logger.With().Str("component", "firmware").Logger()

	mon := monitor.New(cfg.Driver)
	mon.Log = log.Logger.With().Str("component", "monitor").Logger()
	ctl.Observers = append(ctl.Observers, mon)
	mon.Push(diag.Started(cfg.Driver))
	for _, d := range notes {
		mon.Push(d)
	}

	if cfg.Indicator.Enabled {
		// SPI ports register during host.Init; a second call is a no-op.
		if _, err := host.Init(); err != nil {
			log.Warn().Err(err).Msg("host init failed")
		}
		ind, err := indicator.Open(cfg.Indicator.SPI, cfg.Indicator.Pixels, log.Logger)
		if err != nil {
			log.Warn().Err(err).Str("dev", cfg.Indicator.SPI).Msg("indicator disabled")
			mon.Push(diag.Fallback("indicator", err))
		} else {
			defer ind.Close()
			ctl.Observers = append(ctl.Observers, ind)
			log.Info().Str("driver", ind.Driver()).Int("pixels", cfg.Indicator.Pixels).Msg("indicator ready")
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	go mon.Run(ctx)

	// ---- Monitor HTTP ----
	var srv *http.Server
	if cfg.Monitor.Addr != "" {
		srv = &http.Server{
			Addr:         cfg.Monitor.Addr,
			Handler:      mon.Handler(),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		go func() {
			log.Info().Str("addr", cfg.Monitor.Addr).Msg("monitor listening")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("monitor server stopped")
			}
		}()
	}

	// ---- Run ----
	log.Info().
		Str("driver", cfg.Driver).
		Uint("signal_delay_ms", cfg.Timing.SignalDelayMs).
		Uint("key_read_delay_ms", cfg.Timing.KeyReadDelayMs).
		Msg("keyboard host starting")
	err = ctl.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		mon.Push(diag.LinkFailed(err))
		log.Error().Err(err).Msg("firmware loop stopped")
	}
	log.Info().Uint64("sent", ctl.Sent()).Msg("shutting down")

	if srv != nil {
		_ = srv.Close()
	}
	if hw.close != nil {
		hw.close()
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		os.Exit(1)
	}
}

// hardware is what the firmware drives: the matrix port and the two link lines.
type hardware struct {
	port  matrix.Port
	data  wire.Line
	clock wire.Line
	close func()
}

func openGPIO(cfg *config.Config) (*hardware, error) {
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	rows := make([]gpio.PinOut, len(cfg.Matrix.Rows))
	for i, name := range cfg.Matrix.Rows {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("row %d: no pin %q", i, name)
		}
		rows[i] = p
	}
	cols := make([]gpio.PinIn, len(cfg.Matrix.Columns))
	for i, name := range cfg.Matrix.Columns {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("column %d: no pin %q", i, name)
		}
		cols[i] = p
	}
	port, err := matrix.NewGPIOPort(rows, cols)
	if err != nil {
		return nil, err
	}

	dataPin := gpioreg.ByName(cfg.Link.Data)
	if dataPin == nil {
		return nil, fmt.Errorf("link data: no pin %q", cfg.Link.Data)
	}
	clockPin := gpioreg.ByName(cfg.Link.Clock)
	if clockPin == nil {
		return nil, fmt.Errorf("link clock: no pin %q", cfg.Link.Clock)
	}
	hw := &hardware{port: port, data: dataPin, clock: clockPin}
	if cfg.Link.Inverted {
		hw.data, hw.clock = wire.Invert(dataPin), wire.Invert(clockPin)
	}
	hw.close = func() {
		_ = port.WriteRows(matrix.Released)
		_ = dataPin.Halt()
		_ = clockPin.Halt()
	}
	return hw, nil
}

// openSim wires a simulated keyboard to a simulated receiver that logs every
// byte it decodes.
func openSim(cfg *config.Config) (*hardware, error) {
	kb := sim.NewKeyboard()
	if cfg.Sim.Text != "" {
		if err := kb.Type(cfg.Sim.Text); err != nil {
			return nil, err
		}
	}
	rx := sim.NewReceiver()
	rx.OnByte = func(b byte) {
		log.Info().Uint8("byte", b).Str("key", monitor.Name(b)).Msg("receiver")
	}
	return &hardware{port: kb, data: rx.Data(), clock: rx.Clock()}, nil
}
