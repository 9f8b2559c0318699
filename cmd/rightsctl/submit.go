package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rightsplace/rightsplace/internal/upload"
)

type submitOptions struct {
	title       string
	description string
	category    string
	location    string
	date        string
	email       string
	phone       string
	captions    []string
	attempts    int
	verbose     bool
}

func newSubmitCommand() *cobra.Command {
	opts := &submitOptions{}
	cmd := &cobra.Command{
		Use:   "submit [flags] [evidence files...]",
		Short: "Submit a report with optional evidence files",
		RunE: func(cmd *cobra.Command, args []string) error {
			server, _ := cmd.Flags().GetString("server")
			token, _ := cmd.Flags().GetString("token")
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runSubmit(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), server, token, opts, args)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.title, "title", "", "short title")
	flags.StringVarP(&opts.description, "description", "d", "", "what happened (required)")
	flags.StringVar(&opts.category, "category", "OT", "HR, GV, DV, WL or OT")
	flags.StringVar(&opts.location, "location", "", "incident location")
	flags.StringVar(&opts.date, "date", "", "incident date, YYYY-MM-DD")
	flags.StringVar(&opts.email, "contact-email", "", "contact email for anonymous follow-up")
	flags.StringVar(&opts.phone, "contact-phone", "", "contact phone for anonymous follow-up")
	flags.StringArrayVar(&opts.captions, "caption", nil, "caption for the evidence file in the same position; repeatable")
	flags.IntVar(&opts.attempts, "attempts", upload.DefaultRetryPolicy.MaxAttempts, "attempts before giving up on network errors")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log retries")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}

// consoleView prints the staged list after every change.
type consoleView struct{ out io.Writer }

func (v consoleView) Render(entries []upload.Entry, _ []upload.File) {
	fmt.Fprintf(v.out, "staged %d file(s)\n", len(entries))
	for _, e := range entries {
		fmt.Fprintf(v.out, "  %2d. %s\n", e.Position+1, e.Label)
	}
}

func runSubmit(ctx context.Context, stdout, stderr io.Writer, server, token string, opts *submitOptions, paths []string) error {
	bucket := upload.NewController(consoleView{out: stderr}, upload.Limits{})

	candidates := make([]upload.File, 0, len(paths))
	for i, path := range paths {
		f, err := upload.FileFromPath(path)
		if err != nil {
			return err
		}
		if i < len(opts.captions) {
			f.Caption = strings.TrimSpace(opts.captions[i])
		}
		candidates = append(candidates, f)
	}
	for _, w := range bucket.AddFiles(candidates) {
		fmt.Fprintln(stderr, "warning:", w.Message)
	}

	fields := url.Values{}
	fields.Set("description", opts.description)
	fields.Set("category", opts.category)
	setIfPresent(fields, "title", opts.title)
	setIfPresent(fields, "incident_location", opts.location)
	setIfPresent(fields, "incident_date", opts.date)
	setIfPresent(fields, "contact_email", opts.email)
	setIfPresent(fields, "contact_phone", opts.phone)

	logger := zap.NewNop()
	if opts.verbose {
		if dev, err := zap.NewDevelopment(); err == nil {
			logger = dev
		}
	}
	policy := upload.DefaultRetryPolicy
	policy.MaxAttempts = opts.attempts
	submitter := upload.NewSubmitter(strings.TrimRight(server, "/")+"/reports",
		upload.WithToken(token),
		upload.WithRetry(policy),
		upload.WithLogger(logger),
	)

	lastPercent := int64(-1)
	result, err := submitter.Submit(ctx, fields, bucket.Synchronize(), func(sent, total int64) {
		if total <= 0 {
			return
		}
		if percent := sent * 100 / total; percent != lastPercent {
			lastPercent = percent
			fmt.Fprintf(stderr, "\ruploading %3d%% (%s / %s)", percent, upload.HumanSize(sent), upload.HumanSize(total))
		}
	})
	if lastPercent >= 0 {
		fmt.Fprintln(stderr)
	}
	if err != nil {
		var invalid *upload.ValidationFailure
		if errors.As(err, &invalid) {
			for field, messages := range invalid.Fields {
				fmt.Fprintf(stderr, "%s: %s\n", field, strings.Join(messages, " "))
			}
		}
		return err
	}

	for _, w := range result.Warnings {
		fmt.Fprintln(stderr, "warning:", w)
	}
	fmt.Fprintln(stdout, string(result.Data))
	return nil
}

func setIfPresent(values url.Values, key, value string) {
	if strings.TrimSpace(value) != "" {
		values.Set(key, value)
	}
}
