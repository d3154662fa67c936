package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/oarkflow/convert"
	"github.com/oarkflow/log"
	"github.com/urfave/cli/v2"

	"github.com/oarkflow/calc"
	"github.com/oarkflow/calc/pkg/config"
	"github.com/oarkflow/calc/pkg/repl"
	"github.com/oarkflow/calc/pkg/server"
)

const version = "1.0.0"

func main() {
	app := &cli.App{
		Name:    "calc",
		Usage:   "Line oriented calculator with variables and functions",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the configuration file (YAML, JSON, or BCL)",
				EnvVars: []string{"CALC_CONFIG"},
			},
		},
		Action: runRepl,
		Commands: []*cli.Command{
			{
				Name:   "repl",
				Usage:  "Evaluate lines from the terminal, or from stdin when it is not a terminal",
				Action: runRepl,
			},
			{
				Name:      "run",
				Usage:     "Evaluate every line of a file, - for stdin",
				ArgsUsage: "<file|->",
				Action:    runFile,
			},
			{
				Name:      "eval",
				Usage:     "Evaluate each argument as one line of a single session",
				ArgsUsage: "<line>...",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "set",
						Usage: "Seed a variable before evaluating, as name=value",
					},
				},
				Action: evalArgs,
			},
			{
				Name:  "serve",
				Usage: "Start the HTTP session API",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "addr",
						Usage:   "Address to listen on, defaults to server.address from the config",
						EnvVars: []string{"CALC_ADDR"},
					},
					&cli.BoolFlag{
						Name:  "access-log",
						Value: true,
						Usage: "Log every request",
					},
				},
				Action: startServer,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.DefaultLogger.Error().Err(err).Msg("calc failed")
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
		cfg = loaded
	}
	calc.SetRuntimeConfig(cfg.ApplyRuntime())
	return cfg, nil
}

func newRunner(cfg *config.Config, out io.Writer) (*repl.Runner, func(), error) {
	cache, err := calc.NewTokenCache(cfg.Cache.TokenCacheSize)
	if err != nil {
		return nil, nil, err
	}
	session := calc.NewSession(
		calc.WithTokenCache(cache),
		calc.WithRuntimeConfig(cfg.ApplyRuntime()),
	)
	r := repl.New(session, out)
	r.Prompt = cfg.REPL.Prompt
	r.ResultPrefix = cfg.REPL.ResultPrefix
	r.VoidText = cfg.REPL.VoidText
	r.ErrorPrefix = cfg.REPL.ErrorPrefix
	return r, cache.Close, nil
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

func runRepl(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	r, closeCache, err := newRunner(cfg, os.Stdout)
	if err != nil {
		return err
	}
	defer closeCache()
	if !isTerminal(os.Stdin) {
		return r.RunLines(os.Stdin)
	}
	fmt.Println("calc " + version + ". Type :help for help, Ctrl-D to leave.")
	return r.Interactive(cfg.HistoryPath())
}

func runFile(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("run expects exactly one file argument")
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	r, closeCache, err := newRunner(cfg, os.Stdout)
	if err != nil {
		return err
	}
	defer closeCache()

	path := c.Args().First()
	if path == "-" {
		return r.RunLines(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return r.RunLines(f)
}

func evalArgs(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("eval expects at least one line")
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	r, closeCache, err := newRunner(cfg, os.Stdout)
	if err != nil {
		return err
	}
	defer closeCache()

	for _, assignment := range c.StringSlice("set") {
		name, raw, ok := strings.Cut(assignment, "=")
		if !ok {
			return fmt.Errorf("invalid --set %q, expected name=value", assignment)
		}
		value, ok := convert.ToFloat64(strings.TrimSpace(raw))
		if !ok {
			return fmt.Errorf("invalid --set %q: %s is not a number", assignment, raw)
		}
		if err := r.Session.SetVar(strings.TrimSpace(name), float32(value)); err != nil {
			return err
		}
	}
	for _, line := range c.Args().Slice() {
		if r.Handle(line) {
			break
		}
	}
	return nil
}

func startServer(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	cache, err := calc.NewTokenCache(cfg.Cache.TokenCacheSize)
	if err != nil {
		return err
	}
	defer cache.Close()

	srv := server.NewServer(cfg, server.Config{
		Version:   version,
		AccessLog: c.Bool("access-log"),
	}, server.WithTokenCache(cache))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start(c.String("addr"))
	}()

	select {
	case err := <-serverErr:
		return err
	case sig := <-sigChan:
		log.DefaultLogger.Info().Str("signal", sig.String()).Msg("shutting down")
		if err := srv.Shutdown(); err != nil {
			return err
		}
		select {
		case err := <-serverErr:
			return err
		case <-time.After(30 * time.Second):
			return fmt.Errorf("shutdown timeout reached")
		}
	}
}
