package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/domino14/asearch/config"
	"github.com/domino14/asearch/shell"
	"github.com/domino14/asearch/tictactoe"
	"github.com/domino14/asearch/ttable"
)

var (
	GitVersion string
)

func setupLogging(debug bool) {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	output.FormatLevel = func(i interface{}) string {
		return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
	}
	output.FormatMessage = func(i interface{}) string {
		return fmt.Sprintf("%s", i)
	}
	output.FormatFieldName = func(i interface{}) string {
		return fmt.Sprintf("%s:", i)
	}

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	logger := zerolog.New(output).Level(level).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &logger
	log.Logger = logger
	logger.Debug().Msg("Debug logging is on")
}

func main() {
	cfg := &config.Config{}
	rest, err := cfg.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	setupLogging(cfg.GetBool(config.ConfigDebug))
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("bad-config")
	}
	log.Info().Str("version", GitVersion).Msg("asearch")
	log.Debug().Msgf("Loaded config:\n%s", cfg.Settings())

	if cfg.GetString(config.ConfigCPUProfile) != "" {
		f, err := os.Create(cfg.GetString(config.ConfigCPUProfile))
		if err != nil {
			panic("could not create CPU profile: " + err.Error())
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			panic("could not start CPU profile: " + err.Error())
		}
		defer pprof.StopCPUProfile()
	}

	table := &ttable.TranspositionTable{}
	if mb := cfg.GetInt(config.ConfigTTableMemoryMB); mb > 0 {
		table.Initialize(mb, tictactoe.NumHashFeatures)
	} else {
		table.InitializeFraction(cfg.GetFloat64(config.ConfigTTableMemFraction), tictactoe.NumHashFeatures)
	}

	sc, err := shell.NewShellController(cfg, table, os.Stderr)
	if err != nil {
		log.Fatal().Err(err).Msg("shell")
	}

	quit := make(chan struct{})
	sig := make(chan os.Signal, 1)
	go func() {
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Info().Msg("got quit signal...")
		close(quit)
	}()

	line := strings.TrimSpace(cfg.GetString(config.ConfigExecute))
	if line == "" {
		line = strings.TrimSpace(strings.Join(rest, " "))
	}
	if line == "" {
		go sc.Loop(sig)
	} else {
		sc.Execute(sig, line)
		select {
		case sig <- syscall.SIGINT:
		default:
		}
	}

	<-quit
	sc.Cleanup()
	log.Info().Msg("shutting down")
}
