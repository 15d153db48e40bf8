package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/pflag"

	"github.com/victornm/quizzer/internal/cli"
	"github.com/victornm/quizzer/internal/client"
	"github.com/victornm/quizzer/internal/grading"
)

func main() {
	fs := pflag.NewFlagSet("quizctl", pflag.ContinueOnError)
	server := fs.StringP("server", "s", envOr("QUIZZER_URL", "http://localhost:8080"), "quiz API base URL")
	strict := fs.Bool("strict-checkbox", false, "grade checkbox questions as deduplicated sets when offline")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: quizctl [flags] list | take <quiz-id>")
		fs.PrintDefaults()
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var opts []grading.Option
	if *strict {
		opts = append(opts, grading.WithStrictSets())
	}

	app := cli.New(cli.Config{
		API:    client.New(*server, nil),
		Grader: grading.New(opts...),
		In:     os.Stdin,
		Out:    os.Stdout,
	})

	if err := run(ctx, app, fs.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "quizctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, app *cli.App, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing command, want list or take <quiz-id>")
	}

	switch args[0] {
	case "list":
		return app.List(ctx)
	case "take":
		if len(args) != 2 {
			return fmt.Errorf("take needs exactly one quiz id")
		}
		return app.Take(ctx, args[1])
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
