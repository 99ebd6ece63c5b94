package statistics

import (
	"context"
	"fmt"
	"sync"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/paygate/internal/app/service/order"
	"github.com/fatflowers/paygate/internal/models"
	"github.com/fatflowers/paygate/pkg/types"
)

type StatisticType string

const (
	// Orders by the day their current invoice was issued.
	StatisticTypeDailyInvoiceCount StatisticType = "daily_invoice_count"
	// Paid orders and their amount by the day the paying webhook arrived.
	StatisticTypeDailyPaid StatisticType = "daily_paid"
	// Paid orders and amount per gateway, all time.
	StatisticTypeTotalPaid StatisticType = "total_paid"
)

var statisticTypes = []StatisticType{StatisticTypeDailyInvoiceCount, StatisticTypeDailyPaid, StatisticTypeTotalPaid}

type DataItem struct {
	ID StatisticType `json:"id"`
}

type Request struct {
	Filters   []*types.CommonFilter `json:"filters"`
	DataItems []*DataItem           `json:"data_items"`
}

// Build ANDs the request filters together.
func (r *Request) Build(builder clause.Builder) {
	if r == nil || len(r.Filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	exprs := make([]clause.Expression, 0, len(r.Filters))
	for _, f := range r.Filters {
		exprs = append(exprs, f)
	}
	clause.And(exprs...).Build(builder)
}

type ResponseDataItem struct {
	Date    string          `json:"date,omitempty"`
	Gateway string          `json:"gateway"`
	Count   int64           `json:"count"`
	Amount  decimal.Decimal `json:"amount" swaggertype:"string"`
}

type Response struct {
	DataItems map[StatisticType][]ResponseDataItem `json:"data_items"`
}

// Service answers the admin payment statistics.
type Service struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Service { return &Service{db: db} }

var Module = fx.Options(
	fx.Provide(New),
)

func (s *Service) orders(ctx context.Context, req *Request) *gorm.DB {
	return s.db.WithContext(ctx).Model(&models.Order{}).
		Where(clause.Where{Exprs: []clause.Expression{req}})
}

func (s *Service) getDailyInvoiceCount(ctx context.Context, req *Request) ([]ResponseDataItem, error) {
	var results []ResponseDataItem
	q := s.orders(ctx, req).
		Select("TO_CHAR(invoice_created_at, 'YYYY-MM-DD') AS date, payment_gateway AS gateway, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS amount").
		Where("invoice_created_at IS NOT NULL").
		Group("TO_CHAR(invoice_created_at, 'YYYY-MM-DD')").
		Group("payment_gateway").
		Order("date DESC, gateway")
	if err := q.Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getDailyPaid(ctx context.Context, req *Request) ([]ResponseDataItem, error) {
	var results []ResponseDataItem
	// a paid order ignores later webhooks, so webhook_timestamp is the payment time
	day := "TO_CHAR((gateway_payload->>'webhook_timestamp')::timestamptz, 'YYYY-MM-DD')"
	q := s.orders(ctx, req).
		Select(day+" AS date, payment_gateway AS gateway, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS amount").
		Where("paid = ?", true).
		Group(day).
		Group("payment_gateway").
		Order("date DESC, gateway")
	if err := q.Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getTotalPaid(ctx context.Context, req *Request) ([]ResponseDataItem, error) {
	var results []ResponseDataItem
	q := s.orders(ctx, req).
		Select("payment_gateway AS gateway, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS amount").
		Where("paid = ?", true).
		Group("payment_gateway").
		Order("gateway")
	if err := q.Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getStatistic(ctx context.Context, req *Request, item *DataItem) ([]ResponseDataItem, error) {
	switch item.ID {
	case StatisticTypeDailyInvoiceCount:
		return s.getDailyInvoiceCount(ctx, req)
	case StatisticTypeDailyPaid:
		return s.getDailyPaid(ctx, req)
	case StatisticTypeTotalPaid:
		return s.getTotalPaid(ctx, req)
	default:
		return nil, fmt.Errorf("invalid data item id: %s", item.ID)
	}
}

// GetStatistics runs every requested data item concurrently. An empty
// request asks for all of them.
func (s *Service) GetStatistics(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		req = &Request{}
	}
	items := lo.Filter(req.DataItems, func(it *DataItem, _ int) bool { return it != nil })
	if len(items) == 0 {
		items = lo.Map(statisticTypes, func(t StatisticType, _ int) *DataItem { return &DataItem{ID: t} })
	}
	items = lo.UniqBy(items, func(it *DataItem) StatisticType { return it.ID })
	for _, it := range items {
		if !lo.Contains(statisticTypes, it.ID) {
			return nil, fmt.Errorf("%w: data item %q", types.ErrInvalidFilter, it.ID)
		}
	}
	if err := types.ValidateFilters(req.Filters, order.FilterFields); err != nil {
		return nil, err
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	results := make(map[StatisticType][]ResponseDataItem, len(items))
	for _, item := range items {
		wg.Add(1)
		go func(di *DataItem) {
			defer wg.Done()
			res, err := s.getStatistic(ctx, req, di)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("%s: %w", di.ID, err)
				}
				return
			}
			results[di.ID] = res
		}(item)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return &Response{DataItems: results}, nil
}
