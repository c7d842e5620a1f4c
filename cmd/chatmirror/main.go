// Copyright 2025-2026 Chatmirror

// Command chatmirror runs a bidirectional Slack-Zulip bridge. Each Slack
// channel is mirrored as a topic in one Zulip stream and vice versa;
// messages, channel lifecycle changes and file uploads flow both ways.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/chatmirror/chatmirror/pkg/bridge"
	"github.com/chatmirror/chatmirror/pkg/bridge/emoji"
	"github.com/chatmirror/chatmirror/pkg/config"
	"github.com/chatmirror/chatmirror/pkg/httpapi"
)

const version = "0.1.0"

func main() {
	app := &cli.App{
		Name:    "chatmirror",
		Usage:   "Bidirectional Slack-Zulip bridge",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the bridge webhook server",
				Action: serve,
			},
			{
				Name:  "init-config",
				Usage: "Write a sample configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "path",
						Usage: "Where to write the sample config",
						Value: "chatmirror.toml",
					},
				},
				Action: func(c *cli.Context) error {
					path := c.String("path")
					if err := config.Init(path); err != nil {
						return err
					}
					fmt.Printf("Wrote sample configuration to %s\n", path)
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func serve(c *cli.Context) error {
	level := zerolog.InfoLevel
	if c.Bool("debug") {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	em, err := emoji.Load(cfg.Bridge.EmojiOverrides)
	if err != nil {
		return err
	}

	creds := bridge.CredentialBundle{
		Slack: bridge.SlackCredentials{
			BotToken:  cfg.Slack.BotToken,
			UserToken: cfg.Slack.UserToken,
		},
		ZulipBot: bridge.ZulipCredentials{
			Site:   cfg.Zulip.Site,
			Email:  cfg.Zulip.BotEmail,
			APIKey: cfg.Zulip.BotKey,
		},
		ZulipAdmin: bridge.ZulipCredentials{
			Site:   cfg.Zulip.Site,
			Email:  cfg.Zulip.AdminEmail,
			APIKey: cfg.Zulip.AdminKey,
		},
	}

	b := bridge.New(bridge.Options{
		Stream:         cfg.Bridge.Stream,
		DefaultChannel: cfg.Bridge.DefaultChannel,
		MaxUploadBytes: cfg.Bridge.MaxUploadBytes,
		ZulipPrefix:    cfg.Bridge.ZulipPrefix,
		SlackPrefix:    cfg.Bridge.SlackPrefix,
	}, creds,
		bridge.NewSlackClient(creds.Slack),
		bridge.NewZulipClient(creds.ZulipBot, cfg.Bridge.Stream),
		bridge.NewZulipClient(creds.ZulipAdmin, cfg.Bridge.Stream),
		em, log)

	srv := httpapi.NewServer(b, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("addr", cfg.Server.ListenAddr).Str("version", version).Msg("Starting chatmirror")
	return srv.Start(ctx, cfg.Server.ListenAddr)
}
