package service

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nostrid/nip05-registry/internal/common/clock"
	"github.com/nostrid/nip05-registry/internal/common/constants"
	"github.com/nostrid/nip05-registry/internal/common/logger"
	"github.com/nostrid/nip05-registry/internal/observability/metrics"
)

type Status struct {
	URL            string    `json:"url"`
	Online         bool      `json:"online"`
	ResponseTimeMs int64     `json:"responseTimeMs"`
	CheckedAt      time.Time `json:"checkedAt"`
}

// Prober answers whether relays accept a WebSocket handshake. Each URL
// is dialed concurrently with its own timeout, so one dead relay never
// delays the others.
type Prober struct {
	dial    func(ctx context.Context, url string) error
	clock   clock.Clock
	log     *logger.Logger
	timeout time.Duration
}

func NewProber(clk clock.Clock, log *logger.Logger) *Prober {
	return &Prober{
		dial:    dialRelay,
		clock:   clk,
		log:     log,
		timeout: constants.RelayProbeTimeout,
	}
}

func (p *Prober) Probe(ctx context.Context, urls []string) []Status {
	statuses := make([]Status, len(urls))

	var wg sync.WaitGroup
	for i, url := range urls {
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			statuses[i] = p.probeOne(ctx, url)
		}(i, url)
	}
	wg.Wait()

	return statuses
}

func (p *Prober) probeOne(ctx context.Context, url string) Status {
	dialCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := p.clock.Now()
	err := p.dial(dialCtx, url)
	elapsed := p.clock.Since(start)

	status := Status{
		URL:            url,
		Online:         err == nil,
		ResponseTimeMs: elapsed.Milliseconds(),
		CheckedAt:      p.clock.Now(),
	}

	if err != nil {
		p.log.WithFields(ctx, logger.Fields{
			"relay":  url,
			"action": "relay_probe_failed",
		}).Debugf("probe failed: %v", err)
		metrics.RelayProbesTotal.WithLabelValues("offline").Inc()
		return status
	}

	metrics.RelayProbesTotal.WithLabelValues("online").Inc()
	return status
}

func dialRelay(ctx context.Context, url string) error {
	dialer := websocket.Dialer{}
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return err
	}
	return conn.Close()
}
