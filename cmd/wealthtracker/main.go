package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/google/subcommands"

	"github.com/yourorg/wealthtracker/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	for _, c := range newCommands() {
		commander.Register(c.cmd, c.group)
	}

	flag.Parse()
	e := &env{cfg: cfg, logger: logger, out: os.Stdout, errOut: os.Stderr}
	os.Exit(int(commander.Execute(ctx, e)))
}

type registered struct {
	cmd   subcommands.Command
	group string
}

func newCommands() []registered {
	return []registered{
		{&loginCmd{}, "session"},
		{&logoutCmd{}, "session"},
		{&whoamiCmd{}, "session"},
		{&soundCmd{}, "session"},
		{&scannersCmd{}, "market"},
		{&scanCmd{}, "market"},
		{&portfoliosCmd{}, "portfolio"},
		{&summaryCmd{}, "portfolio"},
		{&positionsCmd{}, "portfolio"},
		{&tradeCmd{}, "portfolio"},
		{&ordersCmd{}, "portfolio"},
		{&historyCmd{}, "portfolio"},
		{&watchCmd{}, "portfolio"},
	}
}
