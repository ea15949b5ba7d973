package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/krobus00/satoshi/internal/constant"
	"github.com/krobus00/satoshi/internal/entity"
	"github.com/krobus00/satoshi/internal/util"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// JetstreamTradePublisher emits a trade event for every recorded fill.
type JetstreamTradePublisher struct {
	js      nats.JetStreamContext
	subject string
	logger  *logrus.Entry
}

func NewJetstreamTradePublisher(js nats.JetStreamContext, subject string, logger *logrus.Entry) *JetstreamTradePublisher {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = constant.TradeStreamSubjectFilled
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	return &JetstreamTradePublisher{
		js:      js,
		subject: subject,
		logger:  logger,
	}
}

func (p *JetstreamTradePublisher) JetstreamEventInit(ctx context.Context) error {
	streamConfig := &nats.StreamConfig{
		Name:      constant.TradeStreamName,
		Subjects:  []string{constant.TradeStreamSubjectAll},
		Storage:   nats.FileStorage,
		Retention: nats.LimitsPolicy,
		MaxAge:    30 * 24 * time.Hour,
		Replicas:  1,
	}

	stream, err := p.js.StreamInfo(constant.TradeStreamName, nats.Context(ctx))
	if err != nil && !errors.Is(err, nats.ErrStreamNotFound) {
		return err
	}

	if stream == nil {
		p.logger.Debugf("creating stream: %s", constant.TradeStreamName)
		_, err = p.js.AddStream(streamConfig, nats.Context(ctx))
		return err
	}

	_, err = p.js.UpdateStream(streamConfig, nats.Context(ctx))
	if err != nil {
		return err
	}

	p.logger.Debugf("stream %s is ready", constant.TradeStreamName)

	return nil
}

func (p *JetstreamTradePublisher) PublishTrade(ctx context.Context, event entity.TradeRecordEvent) error {
	return util.PublishEvent(ctx, p.js, p.subject, event)
}
