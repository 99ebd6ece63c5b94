package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/paygate/internal/app/service/gateway"
	"github.com/fatflowers/paygate/internal/app/service/invoice"
	"github.com/fatflowers/paygate/pkg/response"
	"github.com/fatflowers/paygate/pkg/types"
)

// InvoiceService issues invoices and reports their live status.
type InvoiceService interface {
	CreateInvoice(ctx context.Context, orderID, mode string) (*invoice.CreateResult, error)
	CheckStatus(ctx context.Context, orderID string) (*gateway.InvoiceStatus, error)
}

// @Summary      Create Invoice
// @Description  Issues an invoice for the order through the active gateway. An order keeps at most one unexpired invoice.
// @Tags         Invoice
// @Produce      json
// @Param        order_id path string true "Order ID"
// @Success      201  {object}  handlers.RespCreateInvoice
// @Failure      400  {object}  handlers.RespError
// @Failure      404  {object}  handlers.RespError
// @Failure      409  {object}  handlers.RespDuplicateInvoice
// @Failure      502  {object}  handlers.RespError
// @Security     BearerAuth
// @Router       /invoices/{order_id} [post]
func ApiCreateInvoice(svc InvoiceService, mode string, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := svc.CreateInvoice(c.Request.Context(), c.Param("order_id"), mode)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusCreated, response.OKT("Invoice created successfully", res))
	}
}

// @Summary      Invoice Status
// @Description  Asks the order's gateway for the live state of its invoice.
// @Tags         Invoice
// @Produce      json
// @Param        order_id path string true "Order ID"
// @Success      200  {object}  handlers.RespInvoiceStatus
// @Failure      400  {object}  handlers.RespError
// @Failure      404  {object}  handlers.RespError
// @Failure      502  {object}  handlers.RespError
// @Security     BearerAuth
// @Router       /invoices/{order_id}/status [get]
func ApiInvoiceStatus(svc InvoiceService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := svc.CheckStatus(c.Request.Context(), c.Param("order_id"))
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT("", st))
	}
}

// RegisterInvoiceRoutes mounts the invoice endpoints; the explicit gateway
// routes bypass the active gateway setting.
func RegisterInvoiceRoutes(r gin.IRouter, svc InvoiceService, log *zap.SugaredLogger) {
	r.POST("/:order_id", ApiCreateInvoice(svc, gateway.ModeActive, log))
	r.POST("/:order_id/"+types.GatewayShakeout.String(), ApiCreateInvoice(svc, types.GatewayShakeout.String(), log))
	r.POST("/:order_id/"+types.GatewayEasyPay.String(), ApiCreateInvoice(svc, types.GatewayEasyPay.String(), log))
	r.GET("/:order_id/status", ApiInvoiceStatus(svc, log))
}
