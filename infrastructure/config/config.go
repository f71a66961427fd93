// Package config resolves the handful of settings this repo's binaries
// need before handing off to the real SSH-bootstrap/CLI collaborator:
// the listen/dial port, the router's socket path override, and whether
// this process runs as a jumphost relay. Priority order: --flag >
// ET_* environment variable > built-in default.
package config

import (
	"os"
	"strconv"

	"github.com/spf13/pflag"
)

// DefaultPort is Eternal Terminal's well-known port.
const DefaultPort = 2022

// Settings is the resolved configuration for one invocation.
type Settings struct {
	Port           int
	RouterPath     string
	JumphostTarget string // non-empty => run as a pure relay to this "host:port"
}

// Resolve parses args (normally os.Args[1:]) with a fresh FlagSet so
// repeated calls in tests don't collide on pflag's global CommandLine.
func Resolve(args []string) (Settings, error) {
	fs := pflag.NewFlagSet("etserver", pflag.ContinueOnError)

	port := fs.Int("port", envInt("ET_PORT", DefaultPort), "listen/dial port")
	routerPath := fs.String("router-path", os.Getenv("ET_ROUTER_PATH"), "override the UserTerminalRouter UNIX socket path")
	jumphost := fs.String("jumphost", os.Getenv("ET_JUMPHOST"), "run as a pure relay to host:port")

	if err := fs.Parse(args); err != nil {
		return Settings{}, err
	}

	return Settings{
		Port:           *port,
		RouterPath:     *routerPath,
		JumphostTarget: *jumphost,
	}, nil
}

func envInt(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
