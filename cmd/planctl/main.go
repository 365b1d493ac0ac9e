// Command planctl drives plan generation against a running coaching app
// server: submit a job, follow it to completion, inspect the results.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"alcyxob/coaching-app/internal/client"
	"alcyxob/coaching-app/internal/logger"
	"alcyxob/coaching-app/internal/poller"
)

var CLI struct {
	Server   string        `help:"API root URL." default:"http://localhost:8080/api/v1" env:"PLANCTL_SERVER"`
	Token    string        `help:"Coach bearer token." env:"PLANCTL_TOKEN"`
	Interval time.Duration `help:"Status poll interval." default:"3s"`
	MaxWait  time.Duration `help:"Give up waiting after this long. The job keeps running." default:"5m"`
	Verbose  bool          `short:"v" help:"Log poll errors."`

	Login    LoginCmd    `cmd:"" help:"Log in and print a token for PLANCTL_TOKEN."`
	Submit   SubmitCmd   `cmd:"" help:"Submit a generation job for a client."`
	Status   StatusCmd   `cmd:"" help:"Show the status of a job."`
	Wait     WaitCmd     `cmd:"" help:"Wait for a job to finish."`
	Plans    PlansCmd    `cmd:"" help:"List a client's plans, newest first."`
	Session  SessionCmd  `cmd:"" help:"Print a client's full session snapshot as JSON."`
	Defaults DefaultsCmd `cmd:"" help:"Show the suggested inputs for a new job."`
}

// appContext is handed to every command's Run.
type appContext struct {
	ctx    context.Context
	api    *client.Client
	poller *poller.Poller
	log    *logger.Logger
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("planctl"),
		kong.Description("Submit and follow coaching plan generations"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logger.Nop()
	if CLI.Verbose {
		l, err := logger.New("development")
		if err == nil {
			log = l
			defer log.Sync()
		}
	}

	api := client.New(CLI.Server, CLI.Token, nil)
	app := &appContext{
		ctx:    ctx,
		api:    api,
		poller: poller.New(api, poller.Config{Interval: CLI.Interval, MaxWait: CLI.MaxWait}, log),
		log:    log,
	}

	if err := kctx.Run(app); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
