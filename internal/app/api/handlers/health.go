package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fatflowers/paygate/pkg/response"
	"github.com/fatflowers/paygate/pkg/types"
)

// @Summary      Health check
// @Description  Returns service status
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /healthz [get]
func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, response.OKT("", map[string]string{"status": "ok"}))
}

type webhookHealthResp struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Method    string    `json:"method"`
	Timestamp time.Time `json:"timestamp"`
	Endpoint  string    `json:"endpoint"`
}

// @Summary      Webhook endpoint health
// @Description  Lets a gateway probe that its webhook endpoint is reachable.
// @Tags         Webhook
// @Produce      json
// @Param        gateway path string true "Gateway" Enums(shakeout, easypay)
// @Success      200  {object}  handlers.webhookHealthResp
// @Failure      404  {object}  handlers.webhookError
// @Router       /webhooks/{gateway}/health [get]
func WebhookHealth(c *gin.Context) {
	gw, ok := types.ParseGateway(c.Param("gateway"))
	if !ok {
		c.JSON(http.StatusNotFound, webhookError{Error: "unknown gateway"})
		return
	}
	c.JSON(http.StatusOK, &webhookHealthResp{
		Status:    "healthy",
		Message:   gw.String() + " webhook endpoint is reachable",
		Method:    c.Request.Method,
		Timestamp: time.Now().UTC(),
		Endpoint:  "/webhooks/" + gw.String(),
	})
}

func RegisterHealthRoutes(r gin.IRouter) {
	r.GET("/healthz", Healthz)
}
