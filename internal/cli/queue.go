package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/smartfarm/advisor/internal/offline"
	"github.com/spf13/cobra"
)

func newQueueCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and replay requests queued while offline",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List queued requests, oldest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				queue, err := s.openQueue(cmd.Context())
				if err != nil {
					return err
				}
				pending, err := queue.Pending(cmd.Context())
				if err != nil {
					return err
				}
				return s.out.print(pending, humanQueue(pending, time.Now()))
			},
		},
		&cobra.Command{
			Use:   "size",
			Short: "Print the number of queued requests",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				queue, err := s.openQueue(cmd.Context())
				if err != nil {
					return err
				}
				size, err := queue.Size(cmd.Context())
				if err != nil {
					return err
				}
				return s.out.print(map[string]int{"size": size}, func(w io.Writer) {
					fmt.Fprintln(w, size)
				})
			},
		},
		&cobra.Command{
			Use:   "flush",
			Short: "Send every due request now",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				queue, err := s.openQueue(cmd.Context())
				if err != nil {
					return err
				}
				report, err := queue.Process(cmd.Context())
				if err != nil {
					return err
				}
				return s.out.print(report, humanReport(report))
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Drop every queued request",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				queue, err := s.openQueue(cmd.Context())
				if err != nil {
					return err
				}
				if err := queue.Clear(cmd.Context()); err != nil {
					return err
				}
				return s.out.print(map[string]bool{"cleared": true}, func(w io.Writer) {
					fmt.Fprintln(w, "Offline queue cleared")
				})
			},
		},
	)
	return cmd
}

func newWatchCmd(s *session) *cobra.Command {
	var (
		interval time.Duration
		once     bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Replay the offline queue whenever the API comes back online",
		Long: `Probe GET /health every interval and replay the offline queue on each
transition from offline to online. Stops on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				return usageErrorf("invalid_interval", "--interval must be positive")
			}
			queue, err := s.openQueue(cmd.Context())
			if err != nil {
				return err
			}

			prober := offline.NewHealthProber(s.cfg.BaseURL, &http.Client{Timeout: interval})
			watcher := offline.NewWatcher(queue, prober, interval)
			watcher.OnProcess(func(report offline.Report, err error) {
				if err != nil {
					s.out.printError(err)
					return
				}
				_ = s.out.print(report, humanReport(report))
			})

			if once {
				if !watcher.Check(cmd.Context()) {
					return s.out.print(map[string]bool{"online": false}, func(w io.Writer) {
						color.New(color.FgYellow).Fprintln(w, "● offline")
					})
				}
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 15*time.Second, "Probe interval")
	cmd.Flags().BoolVar(&once, "once", false, "Probe once, replay if online, and exit")
	return cmd
}
