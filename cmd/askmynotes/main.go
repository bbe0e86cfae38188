package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"askmynotes/cmd/askmynotes/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	common := func(extra ...cli.Flag) []cli.Flag {
		return append([]cli.Flag{
			&cli.StringFlag{
				Name:  "env",
				Usage: "path to a .env file",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to a YAML config (default ./config.yaml, then ~/.config/askmynotes/config.yaml)",
			},
		}, extra...)
	}
	subjectFlag := &cli.StringFlag{
		Name:  "subject",
		Usage: "subject the files belong to",
		Value: "notes",
	}

	app := &cli.Command{
		Name:  "askmynotes",
		Usage: "answer questions and build study sets from your own notes",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the HTTP API",
				Flags: common(
					&cli.StringFlag{
						Name:  "addr",
						Usage: "listen address (overrides server.addr)",
					},
					&cli.StringFlag{
						Name:  "watch",
						Usage: "notes directory to mirror (overrides watcher.dir)",
					},
					&cli.BoolFlag{
						Name:  "dev-auth",
						Usage: "accept the X-User-Id header",
					},
				),
				Action: commands.ServeAction,
			},
			{
				Name:      "chat",
				Usage:     "chat with a set of notes in the terminal",
				ArgsUsage: "file [file ...]",
				Flags:     common(subjectFlag),
				Action:    commands.ChatAction,
			},
			{
				Name:      "ask",
				Usage:     "answer one question from a set of notes",
				ArgsUsage: "file [file ...]",
				Flags: common(subjectFlag,
					&cli.StringFlag{
						Name:     "question",
						Aliases:  []string{"q"},
						Usage:    "question to ask",
						Required: true,
					},
				),
				Action: commands.AskAction,
			},
			{
				Name:      "study",
				Usage:     "generate multiple-choice and short-answer questions",
				ArgsUsage: "file [file ...]",
				Flags: common(subjectFlag,
					&cli.StringFlag{
						Name:  "topic",
						Usage: "focus the questions on a topic (default: the subject)",
					},
				),
				Action: commands.StudyAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
