// Package cli implements the smartfarm command line client. Advisory calls
// that cannot reach the server are kept in a durable queue and replayed
// later by "queue flush" or "watch".
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/smartfarm/advisor/internal/config"
	"github.com/smartfarm/advisor/internal/core"
	"github.com/smartfarm/advisor/internal/logx"
	"github.com/smartfarm/advisor/internal/offline"
	"github.com/spf13/cobra"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

type usageError struct {
	code    string
	message string
}

func (e *usageError) Error() string {
	return e.message
}

func usageErrorf(code string, format string, args ...any) error {
	return &usageError{code: code, message: fmt.Sprintf(format, args...)}
}

// session holds what every command shares for one invocation.
type session struct {
	cfg     config.ClientConfig
	stdout  io.Writer
	stderr  io.Writer
	out     *printer
	client  *apiClient
	noQueue bool
	verbose bool

	queue *offline.Queue
	redis *redis.Client
}

// Run executes the CLI and returns the process exit code.
func Run(args []string, stdout io.Writer, stderr io.Writer) int {
	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}

	s := &session{cfg: cfg, stdout: stdout, stderr: stderr}
	defer s.close()

	root := newRootCmd(s)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err = root.ExecuteContext(context.Background())
	if err == nil {
		return exitOK
	}

	var queued *queuedError
	if errors.As(err, &queued) && s.out != nil {
		if perr := s.out.printQueued(queued); perr != nil {
			fmt.Fprintf(stderr, "Error: %v\n", perr)
			return exitFailure
		}
		return exitOK
	}

	// Errors raised before the pre-run hook come from cobra's own argument
	// and command resolution.
	preRunFailed := s.out == nil
	if preRunFailed {
		s.out = &printer{format: formatHuman, out: stdout, errOut: stderr}
	}
	s.out.printError(err)

	var usageErr *usageError
	if preRunFailed || errors.As(err, &usageErr) {
		return exitUsage
	}
	return exitFailure
}

func newRootCmd(s *session) *cobra.Command {
	var (
		baseURL string
		output  string
		timeout time.Duration
	)

	root := &cobra.Command{
		Use:   "smartfarm",
		Short: "SmartFarm advisor client",
		Long: `smartfarm talks to the SmartFarm advisor API: crop disease detection,
farming chat and weather-timed activity advice.

Chat and weather requests made while the server is unreachable are queued
on disk and replayed with "smartfarm queue flush" or "smartfarm watch".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			out, err := newPrinter(output, s.stdout, s.stderr)
			if err != nil {
				return err
			}
			s.out = out
			s.initLogging()
			s.initClient(strings.TrimRight(strings.TrimSpace(baseURL), "/"), timeout)
			return nil
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageErrorf("invalid_arguments", "%v", err)
	})

	flags := root.PersistentFlags()
	flags.StringVar(&baseURL, "base-url", s.cfg.BaseURL, "SmartFarm API base URL")
	flags.StringVarP(&output, "output", "o", s.cfg.Output, "Output format (human, json, yaml)")
	flags.DurationVar(&timeout, "timeout", s.cfg.Timeout, "HTTP timeout, e.g. 60s")
	flags.BoolVar(&s.noQueue, "no-queue", false, "Fail instead of queueing requests while offline")
	flags.BoolVarP(&s.verbose, "verbose", "v", false, "Log queue and transport activity to stderr")

	root.AddCommand(
		newHealthCmd(s),
		newCapabilitiesCmd(s),
		newAnalyzeCmd(s),
		newChatCmd(s),
		newWeatherCmd(s),
		newQueueCmd(s),
		newWatchCmd(s),
	)
	return root
}

func (s *session) initLogging() {
	logx.Init(logx.LoggerOpts{Environment: core.ParseEnvironment(s.cfg.Environment), Output: s.stderr})
	if s.verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}
}

func (s *session) initClient(baseURL string, timeout time.Duration) {
	s.cfg.BaseURL = baseURL
	s.cfg.Timeout = timeout
	s.client = &apiClient{
		baseURL: baseURL,
		direct:  &http.Client{Timeout: timeout},
		cached: &http.Client{
			Timeout:   timeout,
			Transport: offline.NewCachingTransport(http.DefaultTransport, offline.NewMemoryCache()),
		},
	}
	if !s.noQueue {
		s.client.queue = s.openQueue
	}
}

// openQueue builds the offline queue on first use. A Redis URL selects the
// Redis store, otherwise the queue lives in a JSON file.
func (s *session) openQueue(ctx context.Context) (*offline.Queue, error) {
	if s.queue != nil {
		return s.queue, nil
	}

	var store offline.Store
	if s.cfg.Queue.RedisURL != "" {
		client, err := offline.NewRedisClient(ctx, s.cfg.Queue.RedisURL)
		if err != nil {
			return nil, err
		}
		s.redis = client
		store = offline.NewRedisStore(client, s.cfg.Queue.RedisKey)
	} else {
		store = offline.NewFileStore(s.cfg.Queue.File)
	}

	sender := offline.NewHTTPSender(s.cfg.BaseURL, &http.Client{Timeout: s.cfg.Timeout})
	s.queue = offline.NewQueue(store, sender,
		offline.WithRetryPolicy(s.cfg.Queue.RetryPolicy()),
		offline.WithConcurrency(s.cfg.Queue.Concurrency),
	)
	return s.queue, nil
}

func (s *session) close() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
}
