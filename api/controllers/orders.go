package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ninekrua/pos-backend/api/middleware"
	"github.com/ninekrua/pos-backend/api/responses"
	"github.com/ninekrua/pos-backend/api/validators"
	"github.com/ninekrua/pos-backend/internal/orders"
	"github.com/ninekrua/pos-backend/pkg/enums"
	pkgerrors "github.com/ninekrua/pos-backend/pkg/errors"
	"github.com/ninekrua/pos-backend/pkg/logger"
)

type orderItemRequest struct {
	MenuItemID        string           `json:"menu_item_id" validate:"required,uuid"`
	Quantity          int              `json:"quantity" validate:"required,gt=0"`
	Note              *string          `json:"note"`
	UnitPriceOverride *decimal.Decimal `json:"unit_price_override"`
}

type placeOrderRequest struct {
	TableID        string             `json:"table_id" validate:"required,uuid"`
	Items          []orderItemRequest `json:"items" validate:"required,min=1,dive"`
	Note           *string            `json:"note"`
	DiscountAmount decimal.Decimal    `json:"discount_amount"`
	ServiceCharge  decimal.Decimal    `json:"service_charge"`
	TaxRate        decimal.Decimal    `json:"tax_rate"`
}

type paymentRequest struct {
	Amount    decimal.Decimal `json:"amount" validate:"required"`
	Method    string          `json:"method" validate:"required"`
	Reference *string         `json:"reference"`
	Note      *string         `json:"note"`
}

type setOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func buildPlaceOrderInput(body placeOrderRequest) (orders.PlaceOrderInput, error) {
	tableID, err := validators.ParsePathUUID(body.TableID, "table_id")
	if err != nil {
		return orders.PlaceOrderInput{}, err
	}

	items := make([]orders.PlaceOrderItemInput, 0, len(body.Items))
	for _, item := range body.Items {
		menuItemID, err := validators.ParsePathUUID(item.MenuItemID, "menu_item_id")
		if err != nil {
			return orders.PlaceOrderInput{}, err
		}
		items = append(items, orders.PlaceOrderItemInput{
			MenuItemID:        menuItemID,
			Quantity:          item.Quantity,
			Note:              item.Note,
			UnitPriceOverride: item.UnitPriceOverride,
		})
	}

	return orders.PlaceOrderInput{
		TableID:        tableID,
		Items:          items,
		Note:           body.Note,
		DiscountAmount: body.DiscountAmount,
		ServiceCharge:  body.ServiceCharge,
		TaxRate:        body.TaxRate,
	}, nil
}

// PlaceOrder submits a staff-entered order against a table.
func PlaceOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		var body placeOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := buildPlaceOrderInput(body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.Actor = middleware.ActorFromContext(r.Context())

		snapshot, err := svc.PlaceOrder(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, snapshot)
	}
}

func ListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		filter := orders.ListFilter{}

		tableID, err := validators.ParseQueryUUID(r, "table_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter.TableID = tableID

		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			filter.Status = &status
		}

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter.Limit = limit

		list, err := svc.ListOrders(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func GetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot, err := svc.GetOrderSnapshot(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snapshot)
	}
}

func SetOrderStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body setOrderStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseOrderStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		snapshot, err := svc.SetOrderStatus(r.Context(), id, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snapshot)
	}
}

// CancelOrder voids an unpaid order and returns its reserved stock.
func CancelOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.CancelOrder(r.Context(), id, middleware.ActorFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "canceled"})
	}
}

// RecordPayment applies one (possibly partial) payment to an order.
func RecordPayment(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body paymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(body.Method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		snapshot, err := svc.RecordPayment(r.Context(), id, orders.PaymentInput{
			Amount:    body.Amount,
			Method:    method,
			Reference: body.Reference,
			Note:      body.Note,
			Actor:     middleware.ActorFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snapshot)
	}
}
