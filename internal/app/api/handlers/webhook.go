package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/paygate/internal/app/service/invoice"
	"github.com/fatflowers/paygate/pkg/logctx"
	"github.com/fatflowers/paygate/pkg/types"
)

const apiKeyHeader = "X-API-Key"

// WebhookProcessor applies and audits one webhook delivery.
type WebhookProcessor interface {
	HandleNotification(ctx context.Context, req *invoice.WebhookRequest) (*invoice.WebhookResult, error)
}

type webhookResp struct {
	Message     string    `json:"message"`
	OrderNumber string    `json:"pill_number"`
	Status      string    `json:"status"`
	ProcessedAt time.Time `json:"processed_at"`
}

// @Summary      Gateway Webhook
// @Description  Receives a payment notification. EasyPay deliveries must carry the configured API key in the path or the X-API-Key header.
// @Tags         Webhook
// @Accept       json
// @Produce      json
// @Param        gateway path string true "Gateway" Enums(shakeout, easypay)
// @Param        api_key path string false "EasyPay webhook API key"
// @Success      200  {object}  handlers.webhookResp
// @Failure      400  {object}  handlers.webhookError
// @Failure      401  {object}  handlers.webhookError
// @Failure      403  {object}  handlers.webhookError
// @Failure      404  {object}  handlers.webhookError
// @Router       /webhooks/{gateway} [post]
func ApiWebhook(h WebhookProcessor, gw types.Gateway, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		l := logctx.FromGin(c, log).With("gateway", gw)
		body, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, webhookError{Error: "failed to read request body"})
			return
		}
		key := c.Param("api_key")
		if key == "" {
			key = c.GetHeader(apiKeyHeader)
		}
		l.Infow("webhook received", "bytes", len(body))

		res, err := h.HandleNotification(c.Request.Context(), &invoice.WebhookRequest{Gateway: gw, APIKey: key, Body: body})
		if err != nil {
			writeWebhookError(c, log, err)
			return
		}
		l.Infow("webhook handled", "order_number", res.OrderNumber, "status", res.Status, "transitioned", res.Transitioned)
		c.JSON(http.StatusOK, &webhookResp{
			Message:     "Webhook processed successfully",
			OrderNumber: res.OrderNumber,
			Status:      res.Status,
			ProcessedAt: res.ProcessedAt,
		})
	}
}

func RegisterWebhookRoutes(r gin.IRouter, h WebhookProcessor, log *zap.SugaredLogger) {
	r.POST("/"+types.GatewayShakeout.String(), ApiWebhook(h, types.GatewayShakeout, log))
	easyPay := ApiWebhook(h, types.GatewayEasyPay, log)
	r.POST("/"+types.GatewayEasyPay.String(), easyPay)
	r.POST("/"+types.GatewayEasyPay.String()+"/:api_key", easyPay)
	r.GET("/:gateway/health", WebhookHealth)
	r.HEAD("/:gateway/health", WebhookHealth)
}
