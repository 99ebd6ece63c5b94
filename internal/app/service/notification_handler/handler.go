package notification_handler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/samber/lo"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/fatflowers/paygate/internal/app/service/gateway"
	"github.com/fatflowers/paygate/internal/app/service/invoice"
	notificationlog "github.com/fatflowers/paygate/internal/app/service/notification_log"
	"github.com/fatflowers/paygate/internal/models"
	"github.com/fatflowers/paygate/pkg/logctx"
	"github.com/fatflowers/paygate/pkg/types"
)

// WebhookApplier applies one webhook to its order.
type WebhookApplier interface {
	ApplyWebhook(ctx context.Context, req *invoice.WebhookRequest) (*invoice.WebhookResult, error)
}

// AuditLog stores webhook audit records.
type AuditLog interface {
	Save(ctx context.Context, log *models.WebhookLog)
}

// NotificationHandler applies gateway webhooks and keeps an audit trail of
// every delivery, whatever its outcome.
type NotificationHandler struct {
	selector *gateway.Selector
	guard    WebhookApplier
	audit    AuditLog
	Logger   *zap.SugaredLogger
}

func NewNotificationHandler(selector *gateway.Selector, guard *invoice.Service, audit *notificationlog.Service, log *zap.SugaredLogger) *NotificationHandler {
	return &NotificationHandler{selector: selector, guard: guard, audit: audit, Logger: log}
}

var Module = fx.Options(
	fx.Provide(NewNotificationHandler),
)

func (h *NotificationHandler) HandleNotification(ctx context.Context, req *invoice.WebhookRequest) (res *invoice.WebhookResult, resErr error) {
	traceID := logctx.TraceID(ctx)
	reference := h.reference(req)
	data := rawJSON(req.Body)

	h.audit.Save(ctx, &models.WebhookLog{
		Gateway:   req.Gateway,
		Reference: reference,
		TraceID:   traceID,
		Data:      data,
		Status:    types.WebhookLogStatusReceived,
	})

	defer func() {
		resMap := map[string]any{"processed_at": time.Now()}
		var orderID *string
		if res != nil {
			orderID = lo.ToPtr(res.OrderID)
			resMap["order_number"] = res.OrderNumber
			resMap["status"] = res.Status
			resMap["paid"] = res.Paid
			resMap["transitioned"] = res.Transitioned
		}
		if resErr != nil {
			resMap["error"] = resErr.Error()
		}
		resBytes, _ := json.Marshal(resMap)
		status := types.WebhookLogStatusHandled
		if resErr != nil {
			status = types.WebhookLogStatusHandleFailed
		}
		h.audit.Save(ctx, &models.WebhookLog{
			Gateway:   req.Gateway,
			Reference: reference,
			OrderID:   orderID,
			TraceID:   traceID,
			Data:      data,
			Result:    lo.ToPtr(datatypes.JSON(resBytes)),
			Status:    status,
		})
	}()

	res, resErr = h.guard.ApplyWebhook(ctx, req)
	if resErr != nil {
		logctx.FromCtx(ctx, h.Logger).Warnw("webhook not applied", "gateway", req.Gateway, "reference", reference, "err", resErr)
		return nil, resErr
	}
	return res, nil
}

// reference pulls the invoice reference out of the body for the audit row.
// Parse errors are left for the guard to report.
func (h *NotificationHandler) reference(req *invoice.WebhookRequest) string {
	gw, err := h.selector.Gateway(req.Gateway)
	if err != nil {
		return ""
	}
	ev, err := gw.ParseWebhook(req.Body)
	if err != nil {
		return ""
	}
	return ev.Reference
}

func rawJSON(body []byte) datatypes.JSON {
	if json.Valid(body) {
		return datatypes.JSON(body)
	}
	b, _ := json.Marshal(map[string]string{"raw": string(body)})
	return datatypes.JSON(b)
}
