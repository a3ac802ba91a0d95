// Package probe asserts that a freshly started service answers its health
// endpoint. The warmup is a fixed sleep, not a retry loop; that mirrors how
// the deployment has always been gated and is known to be fragile on slow
// hosts, so the delay is at least configurable.
package probe

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const defaultRequestTimeout = 5 * time.Second

// Prober issues a single HTTP GET after a fixed warmup delay.
type Prober struct {
	client *http.Client
}

// New creates a prober. A nil client gets a default with a request timeout.
func New(client *http.Client) *Prober {
	if client == nil {
		client = &http.Client{Timeout: defaultRequestTimeout}
	}
	return &Prober{client: client}
}

// Check issues one GET against url and returns an error unless the
// response status is 2xx.
func (p *Prober) Check(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "build health request")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "GET %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Errorf("health check %s returned %s", url, resp.Status)
	}
	return nil
}

// WaitAndCheck sleeps for warmup (honoring ctx cancellation), then runs a
// single Check.
func (p *Prober) WaitAndCheck(ctx context.Context, url string, warmup time.Duration) error {
	if warmup > 0 {
		logrus.WithFields(logrus.Fields{"url": url, "warmup": warmup.String()}).Debug("waiting before health check")
		timer := time.NewTimer(warmup)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return p.Check(ctx, url)
}
