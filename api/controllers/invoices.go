package controllers

import (
	"encoding/csv"
	"net/http"
	"time"

	"github.com/ninekrua/pos-backend/api/responses"
	"github.com/ninekrua/pos-backend/api/validators"
	"github.com/ninekrua/pos-backend/internal/invoices"
	pkgerrors "github.com/ninekrua/pos-backend/pkg/errors"
	"github.com/ninekrua/pos-backend/pkg/logger"
)

func ListInvoices(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoice service unavailable"))
			return
		}

		list, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func GetInvoiceByOrder(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoice service unavailable"))
			return
		}

		orderID, err := validators.ParseQueryUUID(r, "order_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if orderID == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order_id is required"))
			return
		}

		invoice, err := svc.GetByOrder(r.Context(), *orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, invoice)
	}
}

// ExportInvoicesCSV streams every invoice as a CSV attachment for accounting.
func ExportInvoicesCSV(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoice service unavailable"))
			return
		}

		list, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="invoices.csv"`)

		writer := csv.NewWriter(w)
		_ = writer.Write([]string{"invoice_id", "order_id", "total_amount", "net_amount", "tax_amount", "tax_rate", "created_at"})
		for _, invoice := range list {
			_ = writer.Write([]string{
				invoice.ID.String(),
				invoice.OrderID.String(),
				invoice.TotalAmount.StringFixed(2),
				invoice.NetAmount.StringFixed(2),
				invoice.TaxAmount.StringFixed(2),
				invoice.TaxRate.StringFixed(2),
				invoice.CreatedAt.Format(time.RFC3339),
			})
		}
		writer.Flush()
	}
}
