package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/five82/pandals/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "override config path (optional)")
	prefsPath := flag.String("prefs", "", "override preferences path (optional)")
	migrate := flag.Bool("migrate", false, "create missing tables (postgres backend)")
	signOut := flag.Bool("signout", false, "clear cached personal data and exit")
	debug := flag.Bool("debug", false, "log SQL statements (postgres backend)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{
		ConfigPath: *configPath,
		PrefsPath:  *prefsPath,
		Migrate:    *migrate,
		SignOut:    *signOut,
		Debug:      *debug,
	}

	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "pandals: %v\n", err)
		return 1
	}
	return 0
}
