package invoices

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/ninekrua/pos-backend/pkg/db"
	"github.com/ninekrua/pos-backend/pkg/db/models"
	pkgerrors "github.com/ninekrua/pos-backend/pkg/errors"
)

// FixedVATRate is the statutory rate used for every invoice decomposition,
// deliberately independent of the order's own configurable tax_rate.
var FixedVATRate = decimal.RequireFromString("7")

// Service defines invoice snapshot operations.
type Service interface {
	EnsureInvoice(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, grandTotal decimal.Decimal) (*models.Invoice, error)
	GetByOrder(ctx context.Context, orderID uuid.UUID) (*models.Invoice, error)
	List(ctx context.Context) ([]models.Invoice, error)
}

type service struct {
	repo Repository
}

// NewService wires an invoice service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("invoice repository required")
	}
	return &service{repo: repo}, nil
}

// Decompose splits a tax-inclusive total into net and VAT at the fixed rate:
// net = total / 1.07 rounded to 2dp, tax = total - net.
func Decompose(total decimal.Decimal) (net, tax decimal.Decimal) {
	divisor := decimal.NewFromInt(1).Add(FixedVATRate.Div(decimal.NewFromInt(100)))
	net = total.Div(divisor).Round(2)
	tax = total.Sub(net)
	return net, tax
}

// EnsureInvoice creates the order's immutable invoice snapshot, or returns the
// existing one unchanged. At most one invoice ever exists per order.
func (s *service) EnsureInvoice(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, grandTotal decimal.Decimal) (*models.Invoice, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	repo := s.repo.WithTx(tx)
	existing, err := repo.FindByOrderID(ctx, orderID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	net, vat := Decompose(grandTotal)
	invoice := &models.Invoice{
		OrderID:     orderID,
		TotalAmount: grandTotal,
		NetAmount:   net,
		TaxAmount:   vat,
		TaxRate:     FixedVATRate,
	}
	if err := repo.Create(ctx, invoice); err != nil {
		// A concurrent writer beat us to it; the unique index guarantees one.
		if dbpkg.IsUniqueViolation(err, "ux_invoices_order_id") {
			return repo.FindByOrderID(ctx, orderID)
		}
		return nil, err
	}
	return invoice, nil
}

func (s *service) GetByOrder(ctx context.Context, orderID uuid.UUID) (*models.Invoice, error) {
	invoice, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
		}
		return nil, err
	}
	return invoice, nil
}

func (s *service) List(ctx context.Context) ([]models.Invoice, error) {
	return s.repo.List(ctx)
}
