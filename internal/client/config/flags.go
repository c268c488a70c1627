package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/corkboard/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the backend REST API (default from Config)
//	-w string   WebSocket URL of the relay endpoint (default from Config)
//	-r string   room id to join on startup (default from Config)
//	-n string   display name (default from Config)
//	-u string   cursor color (default from Config)
//	-t int      durable request timeout in seconds (default from Config)
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	// Filter args to include only those handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-w", "-r", "-n", "-u", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "base URL of the backend REST API")
	fs.StringVar(&cfg.RelayURL, "w", cfg.RelayURL, "WebSocket URL of the relay endpoint")
	fs.StringVar(&cfg.RoomID, "r", cfg.RoomID, "room id to join")
	fs.StringVar(&cfg.DisplayName, "n", cfg.DisplayName, "display name")
	fs.StringVar(&cfg.CursorColor, "u", cfg.CursorColor, "cursor color")
	requestTimeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "durable request timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*requestTimeout) * time.Second
}
