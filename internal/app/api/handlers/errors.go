package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/paygate/internal/app/service/invoice"
	"github.com/fatflowers/paygate/pkg/logctx"
	"github.com/fatflowers/paygate/pkg/response"
)

const internalErrorMessage = "internal server error"

// statusOf maps a service error to its HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, invoice.ErrDuplicateInvoice), errors.Is(err, invoice.ErrOrderAlreadyPaid):
		return http.StatusConflict
	case errors.Is(err, invoice.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, invoice.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, invoice.ErrWebhookRejected):
		return http.StatusForbidden
	case errors.Is(err, invoice.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, invoice.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage hides internal failures from callers.
func publicMessage(err error, status int) string {
	if status == http.StatusInternalServerError {
		return internalErrorMessage
	}
	var verr *invoice.ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	return err.Error()
}

type validationData struct {
	MissingFields []string `json:"missing_fields,omitempty"`
}

// writeError renders err in the response envelope.
func writeError(c *gin.Context, log *zap.SugaredLogger, err error) {
	status := statusOf(err)
	l := logctx.FromGin(c, log)
	if status >= http.StatusInternalServerError {
		l.Errorw("request failed", "status", status, "err", err)
	} else {
		l.Infow("request refused", "status", status, "err", err)
	}

	var dup *invoice.DuplicateInvoiceError
	if errors.As(err, &dup) {
		c.JSON(status, response.ErrorT("An active invoice already exists for this order", dup))
		return
	}
	var verr *invoice.ValidationError
	if errors.As(err, &verr) && len(verr.Fields) > 0 {
		c.JSON(status, response.ErrorT(verr.Message, &validationData{MissingFields: verr.Fields}))
		return
	}
	c.JSON(status, response.Err(publicMessage(err, status)))
}

// webhookError is the error body gateways get back.
type webhookError struct {
	Error         string   `json:"error"`
	MissingFields []string `json:"missing_fields,omitempty"`
}

func writeWebhookError(c *gin.Context, log *zap.SugaredLogger, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		logctx.FromGin(c, log).Errorw("webhook failed", "status", status, "err", err)
	}
	body := webhookError{Error: publicMessage(err, status)}
	var verr *invoice.ValidationError
	if errors.As(err, &verr) {
		body.MissingFields = verr.Fields
	}
	c.JSON(status, body)
}
