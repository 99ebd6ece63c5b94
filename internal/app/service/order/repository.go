package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	models "github.com/fatflowers/paygate/internal/models"
	"github.com/fatflowers/paygate/pkg/tool"
	types "github.com/fatflowers/paygate/pkg/types"
)

var ErrNotFound = errors.New("order not found")

// Repository persists orders with gorm.
type Repository struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewRepository(db *gorm.DB, log *zap.SugaredLogger) *Repository {
	return &Repository{db: db, log: log}
}

var Module = fx.Options(
	fx.Provide(NewRepository),
)

// CreateRequest is the admin payload for a new order.
type CreateRequest struct {
	Number        string          `json:"number"`
	// UserID defaults to the bearer token subject when omitted.
	UserID        string          `json:"user_id"`
	Amount        decimal.Decimal `json:"amount" swaggertype:"string" example:"180.00"`
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone"`
}

// New builds an order with no gateway bound and nothing paid.
func New(req *CreateRequest, now time.Time) *models.Order {
	number := req.Number
	if number == "" {
		number = tool.GenerateOrderNumber(now)
	}
	return &models.Order{
		ID:             tool.GenerateUUIDV7(),
		Number:         number,
		UserID:         req.UserID,
		Amount:         req.Amount.Round(2),
		CustomerName:   req.CustomerName,
		CustomerPhone:  req.CustomerPhone,
		Status:         types.OrderStatusInitiated,
		PaymentGateway: types.GatewayNone,
		GatewayPayload: datatypes.NewJSONType(&models.GatewayPayload{}),
	}
}

func (r *Repository) Get(ctx context.Context, id string) (*models.Order, error) {
	var o models.Order
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order %s: %w", id, err)
	}
	return &o, nil
}

// FindByInvoice returns the order holding ref in the given invoice column for gateway.
func (r *Repository) FindByInvoice(ctx context.Context, gateway types.Gateway, field types.InvoiceRefField, ref string) (*models.Order, error) {
	var column string
	switch field {
	case types.InvoiceRefID:
		column = "invoice_id"
	case types.InvoiceRefSequence:
		column = "invoice_sequence"
	default:
		return nil, fmt.Errorf("unsupported invoice reference field %q", field)
	}
	if ref == "" {
		return nil, ErrNotFound
	}

	var o models.Order
	err := r.db.WithContext(ctx).
		Where(clause.Eq{Column: clause.Column{Name: "payment_gateway"}, Value: gateway}).
		Where(clause.Eq{Column: clause.Column{Name: column}, Value: ref}).
		First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find order by %s: %w", column, err)
	}
	return &o, nil
}

func (r *Repository) Create(ctx context.Context, o *models.Order) error {
	if o.ID == "" {
		o.ID = tool.GenerateUUIDV7()
	}
	if err := r.db.WithContext(ctx).Create(o).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	r.log.Infow("order created", "order_id", o.ID, "number", o.Number, "amount", o.Amount.StringFixed(2))
	return nil
}

// Save writes every column of o.
func (r *Repository) Save(ctx context.Context, o *models.Order) error {
	if err := r.db.WithContext(ctx).Save(o).Error; err != nil {
		return fmt.Errorf("failed to save order %s: %w", o.ID, err)
	}
	return nil
}

type ScanRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type ScanResponse struct {
	Items []*models.Order `json:"items"`
	Total int64           `json:"total"`
}

// FilterFields are the order columns admin lists may filter and sort on.
var FilterFields = []string{
	"id", "number", "user_id", "amount", "customer_name", "customer_phone", "status", "payment_gateway",
	"invoice_id", "invoice_sequence", "invoice_created_at", "paid", "created_at", "updated_at",
}

// filtersAnd combines CommonFilters into one clause.Expression.
type filtersAnd struct{ filters []*types.CommonFilter }

func (w filtersAnd) Build(builder clause.Builder) {
	if len(w.filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	exprs := make([]clause.Expression, 0, len(w.filters))
	for _, f := range w.filters {
		exprs = append(exprs, f)
	}
	clause.And(exprs...).Build(builder)
}

// Scan is the paginated admin listing.
func (r *Repository) Scan(ctx context.Context, req *ScanRequest) (*ScanResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if req.Size <= 0 {
		req.Size = 10
	}
	if req.From < 0 {
		req.From = 0
	}
	if err := types.ValidateFilters(req.Filters, FilterFields); err != nil {
		return nil, err
	}
	if req.SortBy != "" && !lo.Contains(FilterFields, req.SortBy) {
		return nil, fmt.Errorf("%w: cannot sort by %q", types.ErrInvalidFilter, req.SortBy)
	}

	tx := r.db.WithContext(ctx).Model(&models.Order{})
	if len(req.Filters) > 0 {
		tx = tx.Where(clause.Where{Exprs: []clause.Expression{filtersAnd{filters: req.Filters}}})
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	var rows []*models.Order
	q := tx.Limit(req.Size)
	if req.From > 0 {
		q = q.Offset(req.From)
	}
	sortBy := req.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	q = q.Order(clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: sortBy}, Desc: req.SortOrder != "asc"}}})
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	return &ScanResponse{Items: rows, Total: total}, nil
}
