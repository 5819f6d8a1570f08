package firecrawl

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultPollInitial = 2 * time.Second
	defaultPollCap     = 15 * time.Second
	defaultPollTimeout = 5 * time.Minute
)

// PollOption configures polling behavior.
type PollOption func(*pollConfig)

type pollConfig struct {
	initial time.Duration
	cap     time.Duration
	timeout time.Duration
}

func defaultPollConfig() pollConfig {
	return pollConfig{
		initial: defaultPollInitial,
		cap:     defaultPollCap,
		timeout: defaultPollTimeout,
	}
}

// WithPollInterval overrides the initial poll interval.
func WithPollInterval(d time.Duration) PollOption {
	return func(c *pollConfig) {
		if d > 0 {
			c.initial = d
		}
	}
}

// WithPollCap overrides the maximum poll interval.
func WithPollCap(d time.Duration) PollOption {
	return func(c *pollConfig) {
		if d > 0 {
			c.cap = d
		}
	}
}

// WithPollTimeout overrides the default timeout (applied only if the parent
// context has no deadline).
func WithPollTimeout(d time.Duration) PollOption {
	return func(c *pollConfig) {
		c.timeout = d
	}
}

// Extract starts an extract job and waits for its result. Jobs the API
// completes synchronously are returned without polling.
func Extract(ctx context.Context, client Client, req ExtractRequest, opts ...PollOption) (*ExtractStatusResponse, error) {
	started, err := client.StartExtract(ctx, req)
	if err != nil {
		return nil, err
	}
	if started.Status == StatusCompleted && len(started.Data) > 0 {
		return &ExtractStatusResponse{Success: true, Status: StatusCompleted, Data: started.Data}, nil
	}
	if started.ID == "" {
		return nil, eris.New("firecrawl: start extract returned no job id")
	}
	return PollExtract(ctx, client, started.ID, opts...)
}

// PollExtract polls GetExtractStatus until the job completes, fails, or the
// context expires. Uses exponential backoff: 2s -> 4s -> 8s -> 15s (capped).
func PollExtract(ctx context.Context, client Client, id string, opts ...PollOption) (*ExtractStatusResponse, error) {
	cfg := defaultPollConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if _, ok := ctx.Deadline(); !ok && cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	interval := cfg.initial
	for {
		status, err := client.GetExtractStatus(ctx, id)
		if err != nil {
			return nil, eris.Wrapf(err, "firecrawl: poll extract %s", id)
		}

		switch status.Status {
		case StatusCompleted:
			return status, nil
		case StatusFailed, StatusCancelled:
			return nil, eris.Errorf("firecrawl: extract %s %s: %s", id, status.Status, status.Error)
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, eris.Wrapf(ctx.Err(), "firecrawl: poll extract %s timed out", id)
		case <-timer.C:
		}

		interval *= 2
		if interval > cfg.cap {
			interval = cfg.cap
		}
	}
}
