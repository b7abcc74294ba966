package tables

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ninekrua/pos-backend/internal/orders"
	"github.com/ninekrua/pos-backend/internal/settings"
	"github.com/ninekrua/pos-backend/pkg/db"
	"github.com/ninekrua/pos-backend/pkg/db/models"
	"github.com/ninekrua/pos-backend/pkg/enums"
	pkgerrors "github.com/ninekrua/pos-backend/pkg/errors"
	"github.com/ninekrua/pos-backend/pkg/outbox"
	"github.com/ninekrua/pos-backend/pkg/promptpay"
	"github.com/ninekrua/pos-backend/pkg/security"
)

const accessTokenLength = 24

type orderBiller interface {
	ListOpenByTable(ctx context.Context, tableID uuid.UUID) ([]orders.OrderSnapshot, error)
	RecordPayment(ctx context.Context, orderID uuid.UUID, input orders.PaymentInput) (*orders.OrderSnapshot, error)
	SetOrderStatus(ctx context.Context, orderID uuid.UUID, target enums.OrderStatus) (*orders.OrderSnapshot, error)
}

type configStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
}

// Bill is the per-table billing view: every open order with its balance, the
// combined amount due, and a PromptPay payload when a target is configured.
type Bill struct {
	Table            models.DiningTable     `json:"table"`
	Orders           []orders.OrderSnapshot `json:"orders"`
	TotalDue         decimal.Decimal        `json:"total_due"`
	PromptPayPayload string                 `json:"promptpay_payload,omitempty"`
}

// Service manages dining tables and per-table billing.
type Service interface {
	CreateTable(ctx context.Context, name, code string) (*models.DiningTable, error)
	UpdateTable(ctx context.Context, id uuid.UUID, name, code *string) (*models.DiningTable, error)
	DeleteTable(ctx context.Context, id uuid.UUID) error
	GetTable(ctx context.Context, id uuid.UUID) (*models.DiningTable, error)
	ListTables(ctx context.Context) ([]models.DiningTable, error)
	RotateAccessToken(ctx context.Context, id uuid.UUID) (*models.DiningTable, error)
	AuthorizeGuest(ctx context.Context, code, token string) (*models.DiningTable, error)
	Bill(ctx context.Context, id uuid.UUID) (*Bill, error)
	Settle(ctx context.Context, id uuid.UUID, method enums.PaymentMethod, actor *outbox.ActorRef) ([]orders.OrderSnapshot, error)
}

type service struct {
	repo   Repository
	orders orderBiller
	config configStore
}

// NewService wires the table service.
func NewService(repo Repository, orderSvc orderBiller, config configStore) (Service, error) {
	if repo == nil || orderSvc == nil || config == nil {
		return nil, errors.New("tables: missing dependency")
	}
	return &service{repo: repo, orders: orderSvc, config: config}, nil
}

func (s *service) CreateTable(ctx context.Context, name, code string) (*models.DiningTable, error) {
	name = strings.TrimSpace(name)
	code = strings.TrimSpace(code)
	if name == "" || code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "table name and code are required")
	}

	token, err := security.GenerateTempPassword(accessTokenLength)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generating access token")
	}
	table := &models.DiningTable{Name: name, Code: code, AccessToken: token}
	if err := s.repo.Create(ctx, table); err != nil {
		if db.IsUniqueViolation(err, "ux_dining_tables_code") {
			return nil, pkgerrors.Newf(pkgerrors.CodeConflict, "table code %q is already in use", code)
		}
		return nil, err
	}
	return table, nil
}

func (s *service) UpdateTable(ctx context.Context, id uuid.UUID, name, code *string) (*models.DiningTable, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "table id is required")
	}
	updates := map[string]any{}
	if name != nil {
		if strings.TrimSpace(*name) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "table name cannot be empty")
		}
		updates["name"] = strings.TrimSpace(*name)
	}
	if code != nil {
		if strings.TrimSpace(*code) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "table code cannot be empty")
		}
		updates["code"] = strings.TrimSpace(*code)
	}
	if len(updates) > 0 {
		if err := s.repo.Update(ctx, id, updates); err != nil {
			if db.IsUniqueViolation(err, "ux_dining_tables_code") {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "table code is already in use")
			}
			return nil, err
		}
	}
	return s.GetTable(ctx, id)
}

func (s *service) DeleteTable(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "table id is required")
	}
	open, err := s.orders.ListOpenByTable(ctx, id)
	if err != nil {
		return err
	}
	if len(open) > 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "table still has open orders")
	}
	return s.repo.Delete(ctx, id)
}

func (s *service) GetTable(ctx context.Context, id uuid.UUID) (*models.DiningTable, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "table id is required")
	}
	table, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "dining table not found")
	}
	return table, nil
}

func (s *service) ListTables(ctx context.Context) ([]models.DiningTable, error) {
	return s.repo.List(ctx)
}

// RotateAccessToken invalidates the table's printed QR card by issuing a
// fresh guest token.
func (s *service) RotateAccessToken(ctx context.Context, id uuid.UUID) (*models.DiningTable, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "table id is required")
	}
	token, err := security.GenerateTempPassword(accessTokenLength)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generating access token")
	}
	if err := s.repo.Update(ctx, id, map[string]any{"access_token": token}); err != nil {
		return nil, err
	}
	return s.GetTable(ctx, id)
}

// AuthorizeGuest checks the (code, token) pair from a guest's QR card.
func (s *service) AuthorizeGuest(ctx context.Context, code, token string) (*models.DiningTable, error) {
	if code == "" || token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "table code and access token are required")
	}
	table, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, notFoundOr(err, "dining table not found")
	}
	if subtle.ConstantTimeCompare([]byte(table.AccessToken), []byte(token)) != 1 {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "invalid table access token")
	}
	return table, nil
}

// Bill assembles the table's open orders and combined balance. The PromptPay
// payload is included only when a target is configured and something is owed.
func (s *service) Bill(ctx context.Context, id uuid.UUID) (*Bill, error) {
	table, err := s.GetTable(ctx, id)
	if err != nil {
		return nil, err
	}
	open, err := s.orders.ListOpenByTable(ctx, id)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, snapshot := range open {
		total = total.Add(snapshot.Totals.BalanceDue)
	}

	bill := &Bill{Table: *table, Orders: open, TotalDue: total}
	if total.IsPositive() {
		payload, err := s.promptPayPayload(ctx, total)
		if err != nil {
			return nil, err
		}
		bill.PromptPayPayload = payload
	}
	return bill, nil
}

func (s *service) promptPayPayload(ctx context.Context, amount decimal.Decimal) (string, error) {
	target, ok, err := s.config.Get(ctx, settings.KeyPromptPayTarget)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	builder := promptpay.Builder{Target: target}
	if name, ok, err := s.config.Get(ctx, settings.KeyStoreName); err != nil {
		return "", err
	} else if ok {
		builder.MerchantName = name
	}
	payload, err := builder.BuildPayload(&amount)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building promptpay payload")
	}
	return payload, nil
}

// Settle closes out every open order on the table: orders still carrying a
// balance get one payment for exactly that balance, zero-balance orders are
// moved straight to paid. Each order invoices individually.
func (s *service) Settle(ctx context.Context, id uuid.UUID, method enums.PaymentMethod, actor *outbox.ActorRef) ([]orders.OrderSnapshot, error) {
	if !method.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid payment method %q", method)
	}
	open, err := s.orders.ListOpenByTable(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(open) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "table has no open orders")
	}

	settled := make([]orders.OrderSnapshot, 0, len(open))
	for _, snapshot := range open {
		var paid *orders.OrderSnapshot
		if snapshot.Totals.BalanceDue.IsPositive() {
			paid, err = s.orders.RecordPayment(ctx, snapshot.ID, orders.PaymentInput{
				Amount: snapshot.Totals.BalanceDue,
				Method: method,
				Actor:  actor,
			})
		} else {
			paid, err = s.orders.SetOrderStatus(ctx, snapshot.ID, enums.OrderStatusPaid)
		}
		if err != nil {
			return nil, err
		}
		settled = append(settled, *paid)
	}
	return settled, nil
}

func notFoundOr(err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, message)
	}
	return err
}
