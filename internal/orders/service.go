package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ninekrua/pos-backend/internal/inventory"
	"github.com/ninekrua/pos-backend/internal/menu"
	"github.com/ninekrua/pos-backend/internal/orders/reservation"
	"github.com/ninekrua/pos-backend/pkg/db/models"
	"github.com/ninekrua/pos-backend/pkg/enums"
	pkgerrors "github.com/ninekrua/pos-backend/pkg/errors"
	"github.com/ninekrua/pos-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type invoiceIssuer interface {
	EnsureInvoice(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, grandTotal decimal.Decimal) (*models.Invoice, error)
}

// Service drives the order lifecycle: placement with stock reservation,
// payments, status progression, cancellation with stock release.
type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*OrderSnapshot, error)
	CancelOrder(ctx context.Context, orderID uuid.UUID, actor *outbox.ActorRef) error
	RecordPayment(ctx context.Context, orderID uuid.UUID, input PaymentInput) (*OrderSnapshot, error)
	SetOrderStatus(ctx context.Context, orderID uuid.UUID, target enums.OrderStatus) (*OrderSnapshot, error)
	GetOrderSnapshot(ctx context.Context, orderID uuid.UUID) (*OrderSnapshot, error)
	ListOrders(ctx context.Context, filter ListFilter) ([]OrderSnapshot, error)
	ListOpenByTable(ctx context.Context, tableID uuid.UUID) ([]OrderSnapshot, error)
}

type service struct {
	repo     Repository
	menuRepo menu.Repository
	tx       txRunner
	outbox   outboxPublisher
	invoices invoiceIssuer
}

// PlaceOrderItemInput is one requested line. UnitPriceOverride, when set,
// replaces the menu price in the snapshot (special orders, staff discounts).
type PlaceOrderItemInput struct {
	MenuItemID        uuid.UUID
	Quantity          int
	Note              *string
	UnitPriceOverride *decimal.Decimal
}

// PlaceOrderInput captures one order submission.
type PlaceOrderInput struct {
	TableID        uuid.UUID
	Items          []PlaceOrderItemInput
	Note           *string
	DiscountAmount decimal.Decimal
	ServiceCharge  decimal.Decimal
	TaxRate        decimal.Decimal
	Actor          *outbox.ActorRef
}

// PaymentInput captures one (possibly partial) payment.
type PaymentInput struct {
	Amount    decimal.Decimal
	Method    enums.PaymentMethod
	Reference *string
	Note      *string
	Actor     *outbox.ActorRef
}

// OrderCreatedEvent is the outbox payload for a freshly placed order.
type OrderCreatedEvent struct {
	OrderID    uuid.UUID          `json:"order_id"`
	TableID    uuid.UUID          `json:"table_id"`
	GrandTotal decimal.Decimal    `json:"grand_total"`
	Items      []OrderedItemEvent `json:"items"`
}

// OrderedItemEvent is one line inside OrderCreatedEvent, enough for a kitchen
// ticket.
type OrderedItemEvent struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Note     *string `json:"note,omitempty"`
}

// OrderPaidEvent is the outbox payload emitted when an order settles.
type OrderPaidEvent struct {
	OrderID    uuid.UUID           `json:"order_id"`
	TableID    uuid.UUID           `json:"table_id"`
	GrandTotal decimal.Decimal     `json:"grand_total"`
	AmountPaid decimal.Decimal     `json:"amount_paid"`
	Method     enums.PaymentMethod `json:"method"`
	InvoiceID  uuid.UUID           `json:"invoice_id"`
}

// OrderCanceledEvent is the outbox payload for a cancellation.
type OrderCanceledEvent struct {
	OrderID uuid.UUID `json:"order_id"`
	TableID uuid.UUID `json:"table_id"`
}

// StockReleasedEvent lists the stock returned to the ledger by a
// cancellation.
type StockReleasedEvent struct {
	OrderID  uuid.UUID                 `json:"order_id"`
	Released []reservation.Requirement `json:"released"`
}

// NewService wires the order service.
func NewService(repo Repository, menuRepo menu.Repository, tx txRunner, outboxSvc outboxPublisher, invoices invoiceIssuer) (Service, error) {
	if repo == nil || menuRepo == nil || tx == nil || outboxSvc == nil || invoices == nil {
		return nil, errors.New("orders: missing dependency")
	}
	return &service{repo: repo, menuRepo: menuRepo, tx: tx, outbox: outboxSvc, invoices: invoices}, nil
}

// PlaceOrder validates the submission, snapshots prices, reserves stock, and
// persists the order with its lines in one transaction. Any reservation
// failure rolls the whole submission back.
func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*OrderSnapshot, error) {
	if input.TableID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "table id is required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order needs at least one item")
	}
	if input.DiscountAmount.IsNegative() || input.ServiceCharge.IsNegative() || input.TaxRate.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount, service charge, and tax rate must not be negative")
	}
	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}
		if item.UnitPriceOverride != nil && item.UnitPriceOverride.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price override must not be negative")
		}
	}

	var placed *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var table models.DiningTable
		if err := tx.WithContext(ctx).First(&table, "id = ?", input.TableID).Error; err != nil {
			if isNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "dining table not found")
			}
			return err
		}

		catalog, err := s.loadCatalog(ctx, tx, input.Items)
		if err != nil {
			return err
		}

		order := &models.Order{
			TableID:        input.TableID,
			Status:         enums.OrderStatusPending,
			Note:           input.Note,
			DiscountAmount: input.DiscountAmount,
			ServiceCharge:  input.ServiceCharge,
			TaxRate:        input.TaxRate,
		}
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return err
		}

		items := make([]models.OrderItem, 0, len(input.Items))
		lines := make([]reservation.LineRequest, 0, len(input.Items))
		for _, req := range input.Items {
			menuItem := catalog[req.MenuItemID]
			price := menuItem.Price
			if req.UnitPriceOverride != nil {
				price = *req.UnitPriceOverride
			}
			items = append(items, models.OrderItem{
				OrderID:    order.ID,
				MenuItemID: menuItem.ID,
				Name:       menuItem.Name,
				Quantity:   req.Quantity,
				Note:       req.Note,
				UnitPrice:  price,
			})
			lines = append(lines, reservation.LineRequest{MenuItemID: menuItem.ID, Quantity: req.Quantity})
		}
		if err := s.repo.WithTx(tx).CreateItems(ctx, items); err != nil {
			return err
		}

		requirements, err := reservation.Reserve(ctx, tx, order.ID, lines)
		if err != nil {
			return err
		}
		if err := s.emitLowStockForRequirements(ctx, tx, requirements); err != nil {
			return err
		}

		full, err := s.repo.WithTx(tx).Find(ctx, order.ID)
		if err != nil {
			return err
		}
		placed = full

		totals := ComputeTotals(full)
		event := OrderCreatedEvent{
			OrderID:    full.ID,
			TableID:    full.TableID,
			GrandTotal: totals.GrandTotal,
		}
		for _, item := range full.Items {
			event.Items = append(event.Items, OrderedItemEvent{Name: item.Name, Quantity: item.Quantity, Note: item.Note})
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   full.ID,
			Actor:         input.Actor,
			Version:       1,
			Data:          event,
		})
	})
	if err != nil {
		return nil, err
	}
	snapshot := BuildSnapshot(placed)
	return &snapshot, nil
}

// loadCatalog resolves every requested menu item, rejecting unknown ids and
// anything the availability calculator currently marks unsellable.
func (s *service) loadCatalog(ctx context.Context, tx *gorm.DB, items []PlaceOrderItemInput) (map[uuid.UUID]models.MenuItem, error) {
	catalog := make(map[uuid.UUID]models.MenuItem, len(items))
	repo := s.menuRepo.WithTx(tx)
	for _, req := range items {
		if _, ok := catalog[req.MenuItemID]; ok {
			continue
		}
		menuItem, err := repo.FindItem(ctx, req.MenuItemID)
		if err != nil {
			if isNotFound(err) {
				return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "menu item %s not found", req.MenuItemID)
			}
			return nil, err
		}
		if !menuItem.IsAvailable {
			return nil, pkgerrors.Newf(pkgerrors.CodeUnavailableMenuItem, "%s is not available right now", menuItem.Name)
		}
		catalog[req.MenuItemID] = *menuItem
	}
	return catalog, nil
}

func (s *service) emitLowStockForRequirements(ctx context.Context, tx *gorm.DB, requirements []reservation.Requirement) error {
	if len(requirements) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(requirements))
	for _, requirement := range requirements {
		ids = append(ids, requirement.IngredientID)
	}
	var touched []models.Ingredient
	if err := tx.WithContext(ctx).Where("id IN ?", ids).Find(&touched).Error; err != nil {
		return err
	}
	return inventory.EmitLowStock(ctx, tx, s.outbox, touched)
}

// CancelOrder releases the order's reserved stock and deletes the aggregate.
// Settled orders are immutable and cannot be canceled.
func (s *service) CancelOrder(ctx context.Context, orderID uuid.UUID, actor *outbox.ActorRef) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.findLocked(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order.Status == enums.OrderStatusPaid {
			return pkgerrors.New(pkgerrors.CodeAlreadyPaid, "paid orders cannot be canceled")
		}

		lines := make([]reservation.LineRequest, 0, len(order.Items))
		for _, item := range order.Items {
			lines = append(lines, reservation.LineRequest{MenuItemID: item.MenuItemID, Quantity: item.Quantity})
		}
		released, err := reservation.Release(ctx, tx, orderID, lines)
		if err != nil {
			return err
		}

		if err := s.repo.WithTx(tx).DeleteAggregate(ctx, orderID); err != nil {
			return err
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCanceled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Actor:         actor,
			Version:       1,
			Data:          OrderCanceledEvent{OrderID: orderID, TableID: order.TableID},
		}); err != nil {
			return err
		}
		if len(released) == 0 {
			return nil
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventStockReleased,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Actor:         actor,
			Version:       1,
			Data:          StockReleasedEvent{OrderID: orderID, Released: released},
		})
	})
}

// RecordPayment appends one payment, rejecting overpayment beyond a one-satang
// tolerance, and settles the order when the balance reaches zero.
func (s *service) RecordPayment(ctx context.Context, orderID uuid.UUID, input PaymentInput) (*OrderSnapshot, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidPayment, "payment amount must be positive")
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid payment method %q", input.Method)
	}

	var settled *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.findLocked(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order.Status == enums.OrderStatusPaid {
			return pkgerrors.New(pkgerrors.CodeAlreadyPaid, "order is already paid")
		}

		totals := ComputeTotals(order)
		if input.Amount.GreaterThan(totals.BalanceDue.Add(paymentTolerance)) {
			return pkgerrors.Newf(pkgerrors.CodeInvalidPayment,
				"payment %s exceeds remaining balance %s", input.Amount.StringFixed(2), totals.BalanceDue.StringFixed(2))
		}

		payment := &models.Payment{
			OrderID:   orderID,
			Amount:    input.Amount,
			Method:    input.Method,
			Reference: input.Reference,
			Note:      input.Note,
		}
		if err := s.repo.WithTx(tx).CreatePayment(ctx, payment); err != nil {
			return err
		}

		order.Payments = append(order.Payments, *payment)
		totals = ComputeTotals(order)
		if IsPaid(totals, order.Payments) {
			if err := s.settle(ctx, tx, order, totals, input.Method, input.Actor); err != nil {
				return err
			}
		}

		full, err := s.repo.WithTx(tx).Find(ctx, orderID)
		if err != nil {
			return err
		}
		settled = full
		return nil
	})
	if err != nil {
		return nil, err
	}
	snapshot := BuildSnapshot(settled)
	return &snapshot, nil
}

// settle marks the order paid, issues the invoice, and emits the paid event.
// Runs inside the payment's transaction with the order row locked.
func (s *service) settle(ctx context.Context, tx *gorm.DB, order *models.Order, totals Totals, method enums.PaymentMethod, actor *outbox.ActorRef) error {
	now := time.Now().UTC()
	if err := s.repo.WithTx(tx).Update(ctx, order.ID, map[string]any{
		"status":  enums.OrderStatusPaid,
		"paid_at": now,
	}); err != nil {
		return err
	}
	order.Status = enums.OrderStatusPaid
	order.PaidAt = &now

	invoice, err := s.invoices.EnsureInvoice(ctx, tx, order.ID, totals.GrandTotal)
	if err != nil {
		return err
	}

	if err := s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventInvoiceIssued,
		AggregateType: enums.AggregateInvoice,
		AggregateID:   invoice.ID,
		Actor:         actor,
		Version:       1,
		Data:          invoice,
	}); err != nil {
		return err
	}
	return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderPaid,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actor,
		Version:       1,
		Data: OrderPaidEvent{
			OrderID:    order.ID,
			TableID:    order.TableID,
			GrandTotal: totals.GrandTotal,
			AmountPaid: totals.AmountPaid,
			Method:     method,
			InvoiceID:  invoice.ID,
		},
	})
}

// SetOrderStatus moves the order forward along the kitchen progression.
// Setting paid directly captures a full-balance PromptPay payment when a
// balance remains, then settles exactly like RecordPayment would.
func (s *service) SetOrderStatus(ctx context.Context, orderID uuid.UUID, target enums.OrderStatus) (*OrderSnapshot, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if !target.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid order status %q", target)
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.findLocked(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if !order.Status.CanTransitionTo(target) {
			return pkgerrors.Newf(pkgerrors.CodeConflict,
				"order cannot move from %s to %s", order.Status, target)
		}

		if target == enums.OrderStatusPaid && order.Status != enums.OrderStatusPaid {
			totals := ComputeTotals(order)
			if totals.BalanceDue.IsPositive() {
				reference := "PromptPay QR"
				payment := &models.Payment{
					OrderID:   orderID,
					Amount:    totals.BalanceDue,
					Method:    enums.PaymentMethodPromptPay,
					Reference: &reference,
				}
				if err := s.repo.WithTx(tx).CreatePayment(ctx, payment); err != nil {
					return err
				}
				order.Payments = append(order.Payments, *payment)
				totals = ComputeTotals(order)
			}
			if err := s.settle(ctx, tx, order, totals, enums.PaymentMethodPromptPay, nil); err != nil {
				return err
			}
		} else if target != order.Status {
			if err := s.repo.WithTx(tx).Update(ctx, orderID, map[string]any{"status": target}); err != nil {
				return err
			}
		}

		full, err := s.repo.WithTx(tx).Find(ctx, orderID)
		if err != nil {
			return err
		}
		updated = full
		return nil
	})
	if err != nil {
		return nil, err
	}
	snapshot := BuildSnapshot(updated)
	return &snapshot, nil
}

func (s *service) GetOrderSnapshot(ctx context.Context, orderID uuid.UUID) (*OrderSnapshot, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.repo.Find(ctx, orderID)
	if err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, err
	}
	snapshot := BuildSnapshot(order)
	return &snapshot, nil
}

func (s *service) ListOrders(ctx context.Context, filter ListFilter) ([]OrderSnapshot, error) {
	orders, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return snapshots(orders), nil
}

func (s *service) ListOpenByTable(ctx context.Context, tableID uuid.UUID) ([]OrderSnapshot, error) {
	if tableID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "table id is required")
	}
	orders, err := s.repo.ListOpenByTable(ctx, tableID)
	if err != nil {
		return nil, err
	}
	return snapshots(orders), nil
}

func snapshots(orders []models.Order) []OrderSnapshot {
	list := make([]OrderSnapshot, 0, len(orders))
	for i := range orders {
		list = append(list, BuildSnapshot(&orders[i]))
	}
	return list
}

// findLocked loads the aggregate with the order row locked against concurrent
// payment or cancellation writers. SQLite serializes writers on its own, so
// the lock clause is skipped there.
func (s *service) findLocked(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*models.Order, error) {
	if tx.Dialector.Name() != "sqlite" {
		var row models.Order
		err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			First(&row, "id = ?", orderID).Error
		if err != nil {
			if isNotFound(err) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return nil, err
		}
	}
	order, err := s.repo.WithTx(tx).Find(ctx, orderID)
	if err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, err
	}
	return order, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
