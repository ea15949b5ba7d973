package infrastructure

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/krobus00/satoshi/internal/config"
	"github.com/krobus00/satoshi/internal/constant"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

const (
	defaultNatsMaxRetries     = 5
	defaultNatsMinJitter      = 100 * time.Millisecond
	defaultNatsMaxJitter      = 2 * time.Second
	defaultNatsConnectTimeout = 5 * time.Second
	defaultNatsDrainTimeout   = 5 * time.Second
	defaultJetStreamMaxWait   = 5 * time.Second
)

// NewJetstream connects to NATS for trade event publishing. The connection is
// short lived, one run publishes at most one event.
func NewJetstream(cfg config.NatsJetstreamConfig) (*nats.Conn, nats.JetStreamContext, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, nil, errors.New("nats jetstream url is required")
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultNatsMaxRetries
	}

	minJitter := cfg.MinJitter
	if minJitter <= 0 {
		minJitter = defaultNatsMinJitter
	}

	maxJitter := cfg.MaxJitter
	if maxJitter <= 0 {
		maxJitter = defaultNatsMaxJitter
	}
	if maxJitter < minJitter {
		maxJitter = minJitter
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name(constant.ServiceName),
		nats.Timeout(defaultNatsConnectTimeout),
		nats.DrainTimeout(defaultNatsDrainTimeout),
		nats.MaxReconnects(maxRetries),
		nats.CustomReconnectDelay(func(attempts int) time.Duration {
			return natsReconnectDelay(attempts, minJitter, maxJitter)
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, disErr error) {
			if disErr != nil {
				logrus.Warnf("nats disconnected: %v", disErr)
			}
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := nc.JetStream(nats.MaxWait(defaultJetStreamMaxWait))
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("create jetstream context: %w", err)
	}

	logrus.WithField("max_retries", maxRetries).Debug("nats jetstream connection established")

	return nc, js, nil
}

// natsReconnectDelay doubles from min per attempt, capped at max, plus up to min of jitter.
func natsReconnectDelay(attempt int, min, max time.Duration) time.Duration {
	delay := min
	for i := 0; i < attempt && delay < max; i++ {
		delay *= 2
	}
	if delay > max {
		delay = max
	}

	return delay + rand.N(min+1)
}

func CloseJetstream(nc *nats.Conn) error {
	if nc == nil {
		return nil
	}

	if err := nc.Drain(); err != nil {
		nc.Close()
		return fmt.Errorf("drain nats connection: %w", err)
	}

	return nil
}
