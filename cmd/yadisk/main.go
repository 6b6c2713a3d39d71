// Command yadisk downloads the file behind a Yandex Disk public share link.
//
//	yadisk --link https://disk.yandex.ru/d/abc123 --download ./downloads/
//
// The saved path is printed to stdout. Logs and the progress bar go to
// stderr. The exit code tells the failure class apart: 2 for an invalid
// link, 3 for network errors, 4 for filesystem errors, 5 for S3 upload
// errors, 130 when interrupted and 1 for anything else.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/Samratsinh-git/YandexDownloader/internal/domain"
)

// Exit codes
const (
	exitOK          = 0
	exitFailure     = 1
	exitInvalidLink = 2
	exitNetwork     = 3
	exitFilesystem  = 4
	exitStorage     = 5
	exitInterrupted = 130
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	app := newApp(stdout, stderr)
	if err := app.RunContext(ctx, args); err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", app.Name, err)
		return exitCode(err)
	}
	return exitOK
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:            "yadisk",
		Usage:           "download a file from a Yandex Disk public share link",
		Version:         version,
		Writer:          stdout,
		ErrWriter:       stderr,
		HideHelpCommand: true,
		// errors are reported by run
		ExitErrHandler: func(*cli.Context, error) {},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "link",
				Aliases:  []string{"l"},
				Usage:    "Yandex Disk public share `URL`",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "download",
				Aliases:  []string{"d", "download_location"},
				Usage:    "destination `PATH`: a directory, a file path or s3://bucket/prefix",
				Required: true,
			},
			&cli.IntFlag{
				Name:    "threads",
				Aliases: []string{"t"},
				Usage:   "number of parallel range requests (default from DOWNLOAD_THREADS)",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "do not draw the progress bar",
			},
		},
		Action: func(c *cli.Context) error {
			opts := options{
				link:        c.String("link"),
				destination: c.String("download"),
				quiet:       c.Bool("quiet"),
			}
			if c.IsSet("threads") {
				opts.threads = c.Int("threads")
				if opts.threads < 1 {
					return fmt.Errorf("--threads must be at least 1, got %d", opts.threads)
				}
			}
			return download(c.Context, opts, stdout, stderr)
		},
	}
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	case errors.Is(err, domain.ErrInvalidLink):
		return exitInvalidLink
	case errors.Is(err, domain.ErrNetwork):
		return exitNetwork
	case errors.Is(err, domain.ErrFilesystem):
		return exitFilesystem
	case errors.Is(err, domain.ErrStorage):
		return exitStorage
	default:
		return exitFailure
	}
}
