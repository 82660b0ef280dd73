// Command check submits one image or URL with a guess, prints the verdict
// and writes the annotated frame to a PNG file.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rotisserie/eris"

	service "github.com/okian/fakemeh/internal/app"
	"github.com/okian/fakemeh/internal/bootstrap"
	"github.com/okian/fakemeh/internal/config"
	"github.com/okian/fakemeh/internal/domain/heatmap"
	"github.com/okian/fakemeh/internal/domain/model"
	"github.com/okian/fakemeh/pkg/logger"
)

const (
	defaultOutput  = "overlay.png"
	defaultTimeout = 2 * time.Minute
	filePermission = 0o644
)

type options struct {
	imagePath string
	url       string
	guess     string
	nickname  string
	output    string
	asJSON    bool
	timeout   time.Duration
}

func main() {
	var opts options
	flag.StringVar(&opts.imagePath, "image", "", "Path of the image to upload")
	flag.StringVar(&opts.url, "url", "", "Image or page URL to analyze")
	flag.StringVar(&opts.guess, "guess", "", "Your guess: Fake or Real")
	flag.StringVar(&opts.nickname, "nickname", "", "Leaderboard nickname")
	flag.StringVar(&opts.output, "out", defaultOutput, "Where to write the annotated image")
	flag.BoolVar(&opts.asJSON, "json", false, "Print the result as JSON")
	flag.DurationVar(&opts.timeout, "timeout", defaultTimeout, "How long to wait for the verdict")
	flag.Parse()

	// stdout carries the result; logs go to stderr.
	if err := logger.InitWithWriter(os.Stderr); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	_ = logger.SetLevelString(cfg.LogLevel)

	if err := run(ctx, cfg, opts, os.Stdout); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func (o options) submission() (model.Submission, error) {
	guess, err := model.ParseGuess(o.guess)
	if err != nil {
		return model.Submission{}, eris.Wrapf(err, "-guess %q", o.guess)
	}
	sub := model.Submission{URL: o.url, Guess: guess, Nickname: o.nickname}
	if o.imagePath != "" {
		data, err := os.ReadFile(o.imagePath)
		if err != nil {
			return model.Submission{}, eris.Wrap(err, "read image")
		}
		sub.ImageData = data
		sub.ImageName = filepath.Base(o.imagePath)
	}
	return sub, nil
}

func run(ctx context.Context, cfg *config.Config, opts options, out io.Writer) error {
	sub, err := opts.submission()
	if err != nil {
		return err
	}

	app, err := bootstrap.New(ctx, cfg, logger.Get())
	if err != nil {
		return err
	}
	app.Session.Start(ctx)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = app.Close(closeCtx)
	}()

	ticket, err := app.Session.Submit(ctx, sub)
	if err != nil {
		return err
	}
	waitCtx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()
	res, err := ticket.Wait(waitCtx)
	if err != nil {
		if res != nil && res.ErrorMessage != "" {
			return eris.New(res.ErrorMessage)
		}
		return err
	}

	if res.Display != nil && opts.output != "" {
		if err := writePNG(opts.output, res); err != nil {
			return err
		}
	}

	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	printSummary(out, res, app.Session.Snapshot(), opts.output)
	return nil
}

func writePNG(path string, res *service.Result) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermission)
	if err != nil {
		return eris.Wrap(err, "create output")
	}
	if err := heatmap.EncodePNG(f, res.Display); err != nil {
		_ = f.Close()
		return eris.Wrap(err, "encode output")
	}
	return eris.Wrap(f.Close(), "close output")
}

func printSummary(w io.Writer, res *service.Result, snap service.Snapshot, output string) {
	verdict := "wrong"
	if res.Correct {
		verdict = "correct"
	}
	fmt.Fprintf(w, "Classification: %s\n", res.Label)
	if res.Verdict != nil {
		fmt.Fprintf(w, "Deepfake score: %.2f\n", res.Verdict.Score)
	}
	fmt.Fprintf(w, "Your guess:     %s (%s, %+d points)\n", res.Guess, verdict, res.PointsDelta)
	fmt.Fprintf(w, "Points:         %d\n", res.Points)
	fmt.Fprintf(w, "Streak:         %d\n", res.Streak)
	if res.Badge != "" {
		fmt.Fprintf(w, "Badge unlocked: %s\n", res.Badge)
	}
	fmt.Fprintln(w, snap.NextBadge)
	if res.Entry != nil && res.Rank > 0 {
		fmt.Fprintf(w, "Leaderboard:    #%d as %s\n", res.Rank, res.Entry.DisplayName())
	}
	if res.Verdict != nil && res.Verdict.FactCheck != nil {
		for _, c := range res.Verdict.FactCheck.Claims {
			fmt.Fprintf(w, "Claim: %s (%s)\n", c.Text, c.Rating)
		}
	}
	if res.Fallback != "" {
		fmt.Fprintln(w, res.Fallback)
	}
	if res.Display != nil && output != "" {
		fmt.Fprintf(w, "Annotated image written to %s\n", output)
	}
}
