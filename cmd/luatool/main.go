package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/buckleypaul/luatool/internal/config"
	"github.com/buckleypaul/luatool/internal/store"
	"github.com/buckleypaul/luatool/internal/ui"
)

const version = "0.7.0"

var (
	cfg     config.Config
	wsRoot  string
	st      *store.Store
	console *ui.Console
	compact bool
	logFile *os.File
	stdout  io.Writer = os.Stdout
)

func setup(ctx *cli.Context) error {
	var err error
	wsRoot, err = os.Getwd()
	if err != nil {
		return err
	}

	cfg, err = config.Load(wsRoot)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyFlags(ctx, &cfg)

	if err := setupLogging(cfg.LogFile, ctx.Bool("verbose")); err != nil {
		return err
	}
	log.WithField("config", fmt.Sprintf("%+v", cfg)).Debug("effective config")

	st = store.New(filepath.Join(wsRoot, config.DirName))
	compact = !ctx.Bool("no-progress") && term.IsTerminal(int(os.Stdout.Fd()))
	console = ui.NewConsole(stdout, compact)
	return nil
}

func applyFlags(ctx *cli.Context, c *config.Config) {
	if ctx.IsSet("port") {
		c.Port = ctx.String("port")
	}
	if ctx.IsSet("baud") {
		c.BaudRate = ctx.Int("baud")
	}
	if ctx.IsSet("telnet") {
		c.TelnetHost = ctx.String("telnet")
	}
	if ctx.IsSet("telnet-port") {
		c.TelnetPort = ctx.Int("telnet-port")
	}
	if ctx.IsSet("timeout") {
		c.ReadTimeout = config.Duration{Duration: ctx.Duration("timeout")}
		c.TelnetTimeout = c.ReadTimeout
	}
	if ctx.IsSet("log-file") {
		c.LogFile = ctx.String("log-file")
	}
}

// setupLogging sends diagnostics to path when set; otherwise only warnings
// reach stderr so they do not interleave with the console mirror.
func setupLogging(path string, verbose bool) error {
	level := log.InfoLevel
	if path == "" {
		level = log.WarnLevel
	}
	if verbose {
		level = log.DebugLevel
	}
	log.SetLevel(level)

	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	logFile = f
	log.SetOutput(f)
	log.SetFormatter(&log.TextFormatter{DisableColors: true, FullTimestamp: true})
	return nil
}

func newApp() *cli.App {
	cli.VersionFlag = &cli.BoolFlag{Name: "version", Usage: "print the version"}

	return &cli.App{
		Name:    "luatool",
		Usage:   "Upload, list and delete Lua scripts on a NodeMCU device",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Serial device name",
				Value:   config.DefaultPort,
			},
			&cli.IntFlag{
				Name:    "baud",
				Aliases: []string{"b"},
				Usage:   "Baud rate",
				Value:   config.DefaultBaudRate,
			},
			&cli.StringFlag{
				Name:    "telnet",
				Aliases: []string{"T"},
				Usage:   "Connect through a telnet bridge at `HOST` instead of a serial port",
			},
			&cli.IntFlag{
				Name:    "telnet-port",
				Aliases: []string{"P"},
				Usage:   "Telnet bridge port",
				Value:   config.DefaultTelnetPort,
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Per-read timeout on the connection (default 3s serial, 4s telnet)",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Show progress messages",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Write diagnostics to `FILE`",
			},
			&cli.BoolFlag{
				Name:  "no-progress",
				Usage: "Print every command instead of a progress bar",
			},
		},
		Before: setup,
		After: func(*cli.Context) error {
			if logFile != nil {
				return logFile.Close()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List files on the device",
				Action: listAction,
			},
			{
				Name:   "wipe",
				Usage:  "Delete all files on the device",
				Action: wipeAction,
			},
			{
				Name:      "remove",
				Usage:     "Delete one file on the device",
				ArgsUsage: "FILENAME",
				Action:    removeAction,
			},
			{
				Name:      "upload",
				Usage:     "Upload a Lua script",
				ArgsUsage: "FILENAME [flags]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "dest",
						Aliases: []string{"t"},
						Usage:   "Destination file name, defaults to the source base name",
					},
					&cli.BoolFlag{
						Name:    "compile",
						Aliases: []string{"c"},
						Usage:   "Compile lua to lc after upload",
					},
					&cli.BoolFlag{
						Name:    "append",
						Aliases: []string{"a"},
						Usage:   "Append source file to destination file",
					},
					&cli.BoolFlag{
						Name:    "restart",
						Aliases: []string{"r"},
						Usage:   "Restart MCU after upload",
					},
					&cli.BoolFlag{
						Name:    "dofile",
						Aliases: []string{"d"},
						Usage:   "Run the Lua script after upload",
					},
				},
				Action: uploadAction,
			},
			{
				Name:   "ports",
				Usage:  "List serial ports on this machine",
				Action: portsAction,
			},
			{
				Name:   "history",
				Usage:  "Show recorded uploads and wipes",
				Action: historyAction,
			},
			{
				Name:  "config",
				Usage: "Print the effective configuration",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "save",
						Usage: "Persist the effective configuration",
					},
					&cli.BoolFlag{
						Name:  "global",
						Usage: "With --save, write ~/.config/luatool/config.json",
					},
				},
				Action: configAction,
			},
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
