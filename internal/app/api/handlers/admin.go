package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	mw "github.com/fatflowers/paygate/internal/app/api/middleware"
	"github.com/fatflowers/paygate/internal/app/service/order"
	"github.com/fatflowers/paygate/internal/app/service/statistics"
	"github.com/fatflowers/paygate/internal/models"
	"github.com/fatflowers/paygate/pkg/logctx"
	"github.com/fatflowers/paygate/pkg/response"
	"github.com/fatflowers/paygate/pkg/types"
)

// OrderAdmin is the order store as seen by the admin API.
type OrderAdmin interface {
	Create(ctx context.Context, o *models.Order) error
	Scan(ctx context.Context, req *order.ScanRequest) (*order.ScanResponse, error)
}

// @Summary      Create Order (Admin)
// @Description  Creates an order with no gateway bound. The order number is generated when omitted; user_id defaults to the bearer token subject.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body order.CreateRequest true "Order"
// @Success      201  {object}  handlers.RespOrder
// @Failure      400  {object}  handlers.RespError
// @Security     BearerAuth
// @Router       /api/v1/admin/orders [post]
func ApiCreateOrder(store OrderAdmin, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req order.CreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.Err(err.Error()))
			return
		}
		if req.UserID == "" {
			req.UserID, _ = mw.UserID(c)
		}
		if req.UserID == "" {
			c.JSON(http.StatusBadRequest, response.Err("user_id is required"))
			return
		}
		if !req.Amount.IsPositive() {
			c.JSON(http.StatusBadRequest, response.Err("amount must be positive"))
			return
		}
		o := order.New(&req, time.Now())
		if err := store.Create(c.Request.Context(), o); err != nil {
			logctx.FromGin(c, log).Errorw("create order failed", "err", err)
			c.JSON(http.StatusInternalServerError, response.Err(internalErrorMessage))
			return
		}
		c.JSON(http.StatusCreated, response.OKT("Order created", o))
	}
}

// @Summary      List Orders (Admin)
// @Description  Retrieves a paginated and filterable list of orders.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body order.ScanRequest true "Filters, pagination and sorting"
// @Success      200  {object}  handlers.RespListOrders
// @Failure      400  {object}  handlers.RespError
// @Security     BearerAuth
// @Router       /api/v1/admin/orders/list [post]
func ApiListOrders(store OrderAdmin, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req order.ScanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.Err(err.Error()))
			return
		}
		res, err := store.Scan(c.Request.Context(), &req)
		if errors.Is(err, types.ErrInvalidFilter) {
			c.JSON(http.StatusBadRequest, response.Err(err.Error()))
			return
		}
		if err != nil {
			logctx.FromGin(c, log).Errorw("list orders failed", "err", err)
			c.JSON(http.StatusInternalServerError, response.Err(internalErrorMessage))
			return
		}
		c.JSON(http.StatusOK, response.OKT("", res))
	}
}

// OrderStatistics reports invoice and payment totals.
type OrderStatistics interface {
	GetStatistics(ctx context.Context, req *statistics.Request) (*statistics.Response, error)
}

// @Summary      Payment Statistics (Admin)
// @Description  Daily invoice counts, daily paid orders and all-time paid totals per gateway. An empty data_items list asks for all of them.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body statistics.Request true "Statistic request parameters"
// @Success      200  {object}  handlers.RespStatistics
// @Failure      400  {object}  handlers.RespError
// @Security     BearerAuth
// @Router       /api/v1/admin/orders/statistics [post]
func ApiOrderStatistics(stats OrderStatistics, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statistics.Request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.Err(err.Error()))
			return
		}
		res, err := stats.GetStatistics(c.Request.Context(), &req)
		if errors.Is(err, types.ErrInvalidFilter) {
			c.JSON(http.StatusBadRequest, response.Err(err.Error()))
			return
		}
		if err != nil {
			logctx.FromGin(c, log).Errorw("order statistics failed", "err", err)
			c.JSON(http.StatusInternalServerError, response.Err(internalErrorMessage))
			return
		}
		c.JSON(http.StatusOK, response.OKT("", res))
	}
}

func RegisterAdminOrderRoutes(r gin.IRouter, store OrderAdmin, stats OrderStatistics, log *zap.SugaredLogger) {
	r.POST("/orders", ApiCreateOrder(store, log))
	r.POST("/orders/list", ApiListOrders(store, log))
	r.POST("/orders/statistics", ApiOrderStatistics(stats, log))
}
