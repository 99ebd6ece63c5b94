package invoice

import (
	"context"

	"go.uber.org/zap"

	"github.com/fatflowers/paygate/internal/models"
	"github.com/fatflowers/paygate/pkg/logctx"
)

// Notifier is told about every order that just became paid. It runs after
// the state change is committed; its errors never fail the webhook.
type Notifier interface {
	PaymentConfirmed(ctx context.Context, o *models.Order) error
}

// LogNotifier only writes a log line.
type LogNotifier struct {
	log *zap.SugaredLogger
}

func NewLogNotifier(log *zap.SugaredLogger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) PaymentConfirmed(ctx context.Context, o *models.Order) error {
	logctx.FromCtx(ctx, n.log).Infow("payment confirmed",
		"order_id", o.ID,
		"number", o.Number,
		"gateway", o.PaymentGateway,
		"amount", o.Amount.StringFixed(2),
	)
	return nil
}
