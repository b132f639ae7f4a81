package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rkjdid/util"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/solar3s/padlink/logging"
	"github.com/solar3s/padlink/metrics"
	"github.com/solar3s/padlink/web"
)

var Version = "dev"

var rootConfig *web.Config

var (
	mode     = flag.String("mode", "", "hub or terminal, overrides config")
	device   = flag.String("dev", "", "hub: path to serial port, if empty it will be searched automatically")
	peer     = flag.String("peer", "", "terminal: hub address, overrides config")
	headless = flag.Bool("headless", false, "terminal: log widget updates instead of drawing them")
	rootPath = flag.String("root", "", "path to padlink's main directory (defaults to executable path)")
	cfgPath  = flag.String("config", "", "path to config (defaults to <root>/config.toml)")
	verbose  = flag.Bool("v", false, "higher verbosity")
	version  = flag.Bool("version", false, "print version & exit")
)

func fatalf(format string, args ...interface{}) {
	logging.Init("padlink", os.Stderr, *verbose)
	log.Fatal().Msgf(format, args...)
}

// setup parses flags, loads or creates the config file and starts logging.
func setup() {
	flag.Parse()

	// print version & exit
	if *version {
		fmt.Printf("padlink %s\n", Version)
		os.Exit(0)
	}

	if *rootPath == "" {
		exe, err := os.Executable()
		if err != nil {
			fatalf("couldn't get path to executable: %s", err)
		}
		*rootPath = filepath.Dir(exe)
	}
	if err := os.MkdirAll(*rootPath, 0755); err != nil {
		fatalf("couldn't mkdir \"%s\": %s", *rootPath, err)
	}
	if *cfgPath == "" {
		*cfgPath = filepath.Join(*rootPath, "config.toml")
	}

	created := false
	err := util.ReadTomlFile(&rootConfig, *cfgPath)
	if err != nil {
		if !os.IsNotExist(err) {
			fatalf("error reading config \"%s\": %s", *cfgPath, err)
		}
		cfg := web.DefaultConfig
		rootConfig = &cfg
		err = util.WriteTomlFile(rootConfig, *cfgPath)
		if err != nil {
			fatalf("error creating config \"%s\": %s", *cfgPath, err)
		}
		created = true
	}

	if *mode != "" {
		rootConfig.Mode = web.Mode(*mode)
	}
	if *device != "" {
		rootConfig.Serial.Device = *device
	}
	if *peer != "" {
		rootConfig.Link.PeerAddr = *peer
	}
	if *headless {
		rootConfig.Console = false
	}
	if *verbose {
		rootConfig.Web.Verbose = true
	}
	if err = rootConfig.Validate(); err != nil {
		fatalf("invalid config \"%s\": %s", *cfgPath, err)
	}

	// the console owns the tty, logs go to a file
	var out *os.File
	if rootConfig.Mode == web.ModeTerminal && rootConfig.Console && rootConfig.LogFile != "" {
		out, err = logging.OpenFile(filepath.Join(*rootPath, rootConfig.LogFile))
		if err != nil {
			fatalf("couldn't open log file: %s", err)
		}
	}
	if out != nil {
		logging.Init("padlink-"+string(rootConfig.Mode), out, *verbose)
	} else {
		logging.Init("padlink-"+string(rootConfig.Mode), os.Stdout, *verbose)
	}

	if created {
		log.Info().Str("path", *cfgPath).Msg("created new config file")
	}
	log.Info().Str("path", *cfgPath).Str("version", Version).Msg("using config file")
}

func main() {
	setup()
	metrics.Register()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	var n *node
	var err error
	switch rootConfig.Mode {
	case web.ModeHub:
		n, err = newHub(rootConfig)
	case web.ModeTerminal:
		n, err = newTerminal(rootConfig, *rootPath)
	}
	if err != nil {
		log.Fatal().Err(err).Str("mode", string(rootConfig.Mode)).Msg("error initializing node")
	}
	n.start(gctx, g)

	if rootConfig.Web.Enabled {
		log.Info().Msgf("starting webserver on http://%s ...", rootConfig.Web.ListenAddr)
		g.Go(func() error { return n.server.ListenAndServe(gctx) })
	}

	if !rootConfig.Console || rootConfig.Mode == web.ModeHub {
		log.Info().Msg("Press <Ctrl-C> to quit")
	}

	trap := make(chan os.Signal, 1)
	signal.Notify(trap, os.Interrupt, syscall.SIGTERM)
	select {
	case <-trap:
		fmt.Println()
		log.Info().Msg("quit received...")
	case <-gctx.Done():
	}
	cancel()

	cleanExit := make(chan struct{})
	go func() {
		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("stopped with error")
		}
		n.close()
		close(cleanExit)
	}()
	select {
	case <-time.After(time.Second * 10):
		log.Panic().Msg("no clean exit after 10sec, please report panic log")
	case <-cleanExit:
	}
}
