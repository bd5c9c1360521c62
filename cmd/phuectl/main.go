package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/huelab/phuectl/internal/config"
	"github.com/huelab/phuectl/internal/phue"
	"github.com/huelab/phuectl/internal/store"
)

const registerTries = 3

func main() {
	// Support both -c and --config for config path
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.StringVar(&configPath, "c", "config.yaml", "Path to configuration file (shorthand)")
	list := flag.Bool("list", false, "List lights, groups and scenes known to the bridge")
	onGroup := flag.String("on", "", "Turn the named group on (\"everywhere\" for all lights)")
	offGroup := flag.String("off", "", "Turn the named group off (\"everywhere\" for all lights)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logging
	setupLogging(cfg.Log.GetLevel(), cfg.Log.UseJSON, cfg.Log.Colors)

	log.Info().Str("config", configPath).Msg("Starting phuectl")

	pairing, closeStore, err := openStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open pairing store")
	}
	defer closeStore()

	bridge := phue.New(phue.Options{
		IP:           cfg.Bridge.IP,
		DeviceName:   cfg.Bridge.DeviceName,
		Store:        pairing,
		Timeout:      cfg.Bridge.Timeout.Duration(),
		RateLimitRPS: cfg.Bridge.RateLimitRPS,
	})

	ctx := context.Background()
	if err := connect(ctx, bridge, !cfg.Bridge.DisableDiscovery); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to bridge")
	}

	switch {
	case *list:
		listDevices(bridge)
	case *onGroup != "":
		switchGroup(ctx, bridge, *onGroup, true)
	case *offGroup != "":
		switchGroup(ctx, bridge, *offGroup, false)
	}
}

// connect drives the session to the authenticated state, walking the user
// through registration when the bridge does not know this client yet.
func connect(ctx context.Context, bridge *phue.Bridge, autodiscover bool) error {
	err := bridge.Connect(ctx, autodiscover)
	if !errors.Is(err, phue.ErrUnauthorized) {
		return err
	}

	for try := 1; ; try++ {
		log.Info().Int("try", try).Msg("Not registered on the bridge, press the link button")
		time.Sleep(20 * time.Second)

		err := bridge.Register(ctx)
		if err == nil {
			break
		}
		if !errors.Is(err, phue.ErrLinkButtonNotPressed) || try >= registerTries {
			return err
		}
	}

	return bridge.Connect(ctx, autodiscover)
}

func openStore(cfg *config.Config) (store.Store, func(), error) {
	switch cfg.Store.Backend {
	case "sqlite":
		s, err := store.OpenSQLite(cfg.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	default:
		return store.NewFileStore(cfg.Store.Path), func() {}, nil
	}
}

func listDevices(bridge *phue.Bridge) {
	for _, light := range bridge.Lights() {
		fmt.Println(light)
	}
	for _, group := range bridge.Groups() {
		fmt.Println(group)
	}
	for _, scene := range bridge.Scenes() {
		fmt.Println(scene)
	}
}

func switchGroup(ctx context.Context, bridge *phue.Bridge, name string, on bool) {
	group, err := bridge.Group(0, name)
	if err != nil {
		log.Fatal().Err(err).Str("group", name).Msg("Unknown group")
	}

	if on {
		err = group.On(ctx)
	} else {
		err = group.Off(ctx)
	}
	if err != nil {
		log.Fatal().Err(err).Str("group", name).Msg("Failed to switch group")
	}
}

func setupLogging(level string, useJSON bool, colors bool) {
	// ISO 8601 format with timezone
	zerolog.TimeFieldFormat = time.RFC3339

	if useJSON {
		// JSON output for production
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		// Text output (with optional colors)
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
			NoColor:    !colors,
		})
	}

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
