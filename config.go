package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind    string
	port    int
	prefix  string
	profile bool
	tlsCert string
	tlsKey  string
	verbose bool

	room          string
	decks         string
	maxPoints     int
	minPlayers    int
	handSize      int
	countdown     time.Duration
	resultPause   time.Duration
	gameOverPause time.Duration
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.maxPoints < 1 {
		return fmt.Errorf("invalid --max-points (must be at least 1): %d", c.maxPoints)
	}
	if c.minPlayers < 2 {
		return fmt.Errorf("invalid --min-players (must be at least 2): %d", c.minPlayers)
	}
	if c.handSize < 1 {
		return fmt.Errorf("invalid --hand-size (must be at least 1): %d", c.handSize)
	}
	if c.countdown < time.Second {
		return fmt.Errorf("invalid --countdown (must be at least 1s): %s", c.countdown)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("CARTAS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "cartas [room code]",
		Short:         "A party card game session server, one process per room.",
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}

			// The launcher passes a room code as the lone argument. Fall back
			// to the listen port so standalone runs still echo something usable.
			if len(args) == 1 {
				cfg.room = args[0]
			}
			if cfg.room == "" {
				cfg.room = strconv.Itoa(cfg.port)
			}

			return ServePage(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: CARTAS_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 10000, "port to listen on (env: CARTAS_PORT or PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: CARTAS_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: CARTAS_PROFILE)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: CARTAS_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: CARTAS_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: CARTAS_VERBOSE)")

	fs.StringVar(&cfg.decks, "decks", "", "directory containing black.txt and white.txt card decks (env: CARTAS_DECKS)")
	fs.IntVar(&cfg.maxPoints, "max-points", 2, "score needed to win the game (env: CARTAS_MAX_POINTS)")
	fs.IntVar(&cfg.minPlayers, "min-players", 2, "players needed to start and continue a game (env: CARTAS_MIN_PLAYERS)")
	fs.IntVar(&cfg.handSize, "hand-size", 7, "response cards held by each player (env: CARTAS_HAND_SIZE)")
	fs.DurationVar(&cfg.countdown, "countdown", 10*time.Second, "delay before a game starts once enough players joined (env: CARTAS_COUNTDOWN)")
	fs.DurationVar(&cfg.resultPause, "result-pause", 3*time.Second, "pause after a round result before the next round (env: CARTAS_RESULT_PAUSE)")
	fs.DurationVar(&cfg.gameOverPause, "game-over-pause", 10*time.Second, "pause after game over before re-checking quorum (env: CARTAS_GAME_OVER_PAUSE)")

	// Room launchers conventionally hand the port down as plain PORT.
	_ = v.BindEnv("port", "CARTAS_PORT", "PORT")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		if f.Name != "port" {
			_ = v.BindEnv(f.Name)
		}
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("cartas v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
