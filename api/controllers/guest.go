package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ninekrua/pos-backend/api/middleware"
	"github.com/ninekrua/pos-backend/api/responses"
	"github.com/ninekrua/pos-backend/api/validators"
	"github.com/ninekrua/pos-backend/internal/menu"
	"github.com/ninekrua/pos-backend/internal/orders"
	"github.com/ninekrua/pos-backend/internal/tables"
	"github.com/ninekrua/pos-backend/pkg/db/models"
	pkgerrors "github.com/ninekrua/pos-backend/pkg/errors"
	"github.com/ninekrua/pos-backend/pkg/logger"
)

type guestOrderRequest struct {
	Items []orderItemRequest `json:"items" validate:"required,min=1,dive"`
	Note  *string            `json:"note"`
}

func guestTable(r *http.Request) (*models.DiningTable, error) {
	table := middleware.GuestTableFromContext(r.Context())
	if table == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "table context missing")
	}
	return table, nil
}

// GuestMenu lists the sellable menu for the table's guests. Items whose
// ingredients are exhausted stay visible but flagged unavailable.
func GuestMenu(svc menu.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "menu service unavailable"))
			return
		}

		if _, err := guestTable(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListItems(r.Context(), nil)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// GuestPlaceOrder submits an order for the authorized table. Guests get menu
// prices as listed; discounts and per-order tax are staff-only knobs.
func GuestPlaceOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		table, err := guestTable(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body guestOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]orders.PlaceOrderItemInput, 0, len(body.Items))
		for _, item := range body.Items {
			menuItemID, err := validators.ParsePathUUID(item.MenuItemID, "menu_item_id")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			items = append(items, orders.PlaceOrderItemInput{
				MenuItemID: menuItemID,
				Quantity:   item.Quantity,
				Note:       item.Note,
			})
		}

		snapshot, err := svc.PlaceOrder(r.Context(), orders.PlaceOrderInput{
			TableID: table.ID,
			Items:   items,
			Note:    body.Note,
			Actor:   middleware.ActorFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, snapshot)
	}
}

// GuestListOrders shows the open orders on the guest's table.
func GuestListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		table, err := guestTable(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListOpenByTable(r.Context(), table.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// GuestGetOrder returns one order, only if it belongs to the guest's table.
func GuestGetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		table, err := guestTable(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
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
		if snapshot.TableID != table.ID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
			return
		}
		responses.WriteSuccess(w, snapshot)
	}
}

// GuestBill aggregates the table's open orders into one bill with a PromptPay
// payload when configured.
func GuestBill(svc tables.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "table service unavailable"))
			return
		}

		table, err := guestTable(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bill, err := svc.Bill(r.Context(), table.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bill)
	}
}
