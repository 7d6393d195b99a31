package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tiktok_shop_v1/internal/model"
)

// ==================== 接口定义 ====================

// OrderRepository 订单仓储接口
type OrderRepository interface {
	// Upsert 按 (account_id, external_id) 幂等写入订单及订单项
	// 返回是否是新建 (用于区分导入和更新的通知语义)
	Upsert(ctx context.Context, order *model.Order) (created bool, err error)

	GetByID(ctx context.Context, id int64) (*model.Order, error)
	GetByExternalID(ctx context.Context, accountID int64, externalID string) (*model.Order, error)

	List(ctx context.Context, filter OrderFilter) ([]model.Order, int64, error)

	// ListCreatedOn 取某账号在指定日期 (UTC 起止) 下单的订单，结算任务用
	ListCreatedOn(ctx context.Context, accountID int64, day time.Time) ([]model.Order, error)

	// UpdateSettlement 回填结算金额
	UpdateSettlement(ctx context.Context, id int64, fields map[string]interface{}) error
}

// ==================== 过滤条件 ====================

// OrderFilter 订单列表过滤条件
type OrderFilter struct {
	AccountID         int64
	FulfillmentStatus *model.FulfillmentStatus
	PaymentStatus     *model.PaymentStatus
	ExternalNumber    string
	Page              int
	PageSize          int
}

// ==================== 仓储实现 ====================

type orderRepo struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓储
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepo{db: db}
}

// Upsert 订单和订单项在同一事务里写入
// 冲突时覆盖业务字段，保留本地主键和 created_at
func (r *orderRepo) Upsert(ctx context.Context, order *model.Order) (bool, error) {
	created := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Order
		err := tx.Where("account_id = ? AND external_id = ?", order.AccountID, order.ExternalID).
			First(&existing).Error
		switch {
		case err == gorm.ErrRecordNotFound:
			created = true
		case err != nil:
			return err
		default:
			order.ID = existing.ID
			order.CreatedAt = existing.CreatedAt
		}

		items := order.Items
		order.Items = nil
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}, {Name: "external_id"}},
			UpdateAll: true,
		}).Create(order).Error; err != nil {
			return err
		}

		for i := range items {
			items[i].OrderID = order.ID
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "order_id"}, {Name: "external_id"}},
				UpdateAll: true,
			}).Create(&items[i]).Error; err != nil {
				return err
			}
		}
		order.Items = items
		return nil
	})

	return created, err
}

func (r *orderRepo) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	var order model.Order
	if err := r.db.WithContext(ctx).Preload("Items").First(&order, id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepo) GetByExternalID(ctx context.Context, accountID int64, externalID string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("account_id = ? AND external_id = ?", accountID, externalID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepo) List(ctx context.Context, filter OrderFilter) ([]model.Order, int64, error) {
	var orders []model.Order
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Order{})

	if filter.AccountID > 0 {
		query = query.Where("account_id = ?", filter.AccountID)
	}
	if filter.FulfillmentStatus != nil {
		query = query.Where("fulfillment_status = ?", *filter.FulfillmentStatus)
	}
	if filter.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *filter.PaymentStatus)
	}
	if filter.ExternalNumber != "" {
		query = query.Where("external_number = ?", filter.ExternalNumber)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	offset := (filter.Page - 1) * filter.PageSize
	err := query.
		Preload("Items").
		Order("order_placed_at DESC").
		Limit(filter.PageSize).Offset(offset).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (r *orderRepo) ListCreatedOn(ctx context.Context, accountID int64, day time.Time) ([]model.Order, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	var orders []model.Order
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND order_placed_at >= ? AND order_placed_at < ?", accountID, start, end).
		Find(&orders).Error
	return orders, err
}

func (r *orderRepo) UpdateSettlement(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("id = ?", id).
		Updates(fields).Error
}
