package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/five82/feeder/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "override feeder config path (optional)")
	headless := flag.Bool("headless", false, "run the engine without the terminal UI")
	logStderr := flag.Bool("log-stderr", false, "write logs to stderr instead of the state directory")
	flag.Parse()

	if !*headless && !term.IsTerminal(int(os.Stdout.Fd())) {
		fail("stdout is not a terminal; run with -headless")
		return 2
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{
		ConfigPath: *configPath,
		Headless:   *headless,
		LogStderr:  *logStderr,
	}
	if err := app.Run(ctx, opts); err != nil {
		fail(err.Error())
		return 1
	}
	return 0
}

func fail(msg string) {
	_, _ = color.New(color.FgRed, color.Bold).Fprint(os.Stderr, "feeder: ")
	fmt.Fprintln(os.Stderr, msg)
}
