package handlers

import (
	"github.com/fatflowers/tgpass/internal/app/service/lifecycle"
	"github.com/fatflowers/tgpass/internal/app/service/order"
	"github.com/fatflowers/tgpass/internal/models"
	"github.com/fatflowers/tgpass/pkg/response"
)

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    interface{}              `json:"data"`
}

// RespOrder wraps order.OrderResult in the standard envelope.
type RespOrder struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    order.OrderResult        `json:"data"`
}

type RespSubscription struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    models.Subscription      `json:"data"`
}

type RespSubscriptions struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []models.Subscription    `json:"data"`
}

type RespTransaction struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    models.Transaction       `json:"data"`
}

type RespTransactions struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []models.Transaction     `json:"data"`
}

type RespBulkExtend struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    lifecycle.BulkResult     `json:"data"`
}

type RespRevoke struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    lifecycle.RevokeResult   `json:"data"`
}

type RespUnprovisioned struct {
	Code    response.APIResponseCode    `json:"code"`
	Message string                      `json:"message"`
	Data    []UnprovisionedTransaction  `json:"data"`
}
