package handlers

import (
	"github.com/fatflowers/paygate/internal/app/service/gateway"
	"github.com/fatflowers/paygate/internal/app/service/invoice"
	"github.com/fatflowers/paygate/internal/app/service/order"
	"github.com/fatflowers/paygate/internal/app/service/statistics"
	"github.com/fatflowers/paygate/internal/models"
)

// RespError is the envelope of a failed request.
type RespError struct {
	Success bool   `json:"success" example:"false"`
	Error   string `json:"error"`
}

// RespCreateInvoice wraps invoice.CreateResult in the standard envelope.
type RespCreateInvoice struct {
	Success bool                 `json:"success" example:"true"`
	Message string               `json:"message"`
	Data    invoice.CreateResult `json:"data"`
}

// RespDuplicateInvoice carries the invoice that still blocks a new one.
type RespDuplicateInvoice struct {
	Success bool                          `json:"success" example:"false"`
	Error   string                        `json:"error"`
	Data    invoice.DuplicateInvoiceError `json:"data"`
}

type RespInvoiceStatus struct {
	Success bool                  `json:"success" example:"true"`
	Data    gateway.InvoiceStatus `json:"data"`
}

type RespOrder struct {
	Success bool         `json:"success" example:"true"`
	Message string       `json:"message"`
	Data    models.Order `json:"data"`
}

type RespListOrders struct {
	Success bool               `json:"success" example:"true"`
	Data    order.ScanResponse `json:"data"`
}

type RespStatistics struct {
	Success bool                `json:"success" example:"true"`
	Data    statistics.Response `json:"data"`
}
