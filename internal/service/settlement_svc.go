package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tiktok_shop_v1/internal/event"
	"tiktok_shop_v1/internal/model"
	"tiktok_shop_v1/internal/repository"
	"tiktok_shop_v1/pkg/tiktok"
)

// ==================== 服务 ====================

// SettlementService 每日回填订单结算金额
// 平台的结算数据按单查询，前一天下单的订单逐个拉取聚合
type SettlementService struct {
	clients     ClientFactory
	orderRepo   repository.OrderRepository
	accountRepo repository.AccountRepository
	bus         event.Bus
	logger      *zap.Logger
	now         func() time.Time
}

// NewSettlementService 创建结算服务
func NewSettlementService(clients ClientFactory, orderRepo repository.OrderRepository, accountRepo repository.AccountRepository, bus event.Bus, logger *zap.Logger) *SettlementService {
	return &SettlementService{
		clients:     clients,
		orderRepo:   orderRepo,
		accountRepo: accountRepo,
		bus:         bus,
		logger:      logger.Named("settlement"),
		now:         time.Now,
	}
}

// SetClock 注入时钟，测试用
func (s *SettlementService) SetClock(now func() time.Time) { s.now = now }

// SettleAccount 回填某账号昨天下单订单的结算金额
// 单个订单失败不中断其余订单
func (s *SettlementService) SettleAccount(ctx context.Context, account *model.Account) error {
	yesterday := s.now().UTC().AddDate(0, 0, -1)

	orders, err := s.orderRepo.ListCreatedOn(ctx, account.ID, yesterday)
	if err != nil {
		return err
	}

	client := s.clients(account)
	var lastErr error
	for i := range orders {
		if err := s.settleOrder(ctx, client, account, &orders[i]); err != nil {
			s.logger.Error("order settlement failed",
				zap.Int64("account_id", account.ID),
				zap.String("external_id", orders[i].ExternalID),
				zap.Error(err))
			lastErr = err
		}
	}
	return lastErr
}

func (s *SettlementService) settleOrder(ctx context.Context, client *tiktok.Client, account *model.Account, order *model.Order) error {
	data, err := client.Request(ctx, http.MethodGet, "finance/order/settlements", &tiktok.RequestOptions{
		Query: map[string]string{"order_id": order.ExternalID},
	})
	if err != nil {
		return err
	}

	var out tiktok.SettlementData
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("settlement decode: %w", err)
	}
	if len(out.SettlementList) == 0 {
		return nil
	}

	fields := aggregateSettlement(out.SettlementList)
	if err := s.orderRepo.UpdateSettlement(ctx, order.ID, fields); err != nil {
		return err
	}

	return s.bus.PublishOrderUpdated(ctx, event.OrderUpdated{
		LogID:      uuid.NewString(),
		OrderID:    order.ID,
		AccountID:  account.ID,
		ExternalID: order.ExternalID,
		Reason:     "settlement",
		OccurredAt: s.now().UTC(),
	})
}

// aggregateSettlement 多条结算记录按字段累加
// shipping_fee 平台侧是负数口径，取反落成本地的卖家运费
func aggregateSettlement(list []tiktok.Settlement) map[string]interface{} {
	var (
		commissionFee          float64
		settlementAmount       float64
		integrationDiscount    float64
		sellerDiscount         float64
		sellerShippingFee      float64
		integrationShippingFee float64
		actualShippingFee      float64
		transactionFee         float64
		serviceFee             float64
	)

	for _, settlement := range list {
		info := settlement.SettlementInfo

		commissionFee += info.PlatformCommission.Float64()
		settlementAmount += info.SettlementAmount.Float64()
		integrationDiscount += info.PlatformPromotion.Float64()
		sellerDiscount += info.SalesFee.Float64() - info.SubtotalAfterSellerDiscounts.Float64()
		sellerShippingFee += -info.ShippingFee.Float64()
		integrationShippingFee += info.LogisticsReimbursement.Float64()
		actualShippingFee += -info.ShippingFee.Float64()
		transactionFee += info.TransactionFee.Float64() - info.TransactionFeeRefund.Float64()
		serviceFee += info.PaymentFee.Float64() + info.SmallOrderFee.Float64()
	}

	return map[string]interface{}{
		"commission_fee":           commissionFee,
		"settlement_amount":        settlementAmount,
		"integration_discount":     integrationDiscount,
		"seller_discount":          sellerDiscount,
		"seller_shipping_fee":      sellerShippingFee,
		"integration_shipping_fee": integrationShippingFee,
		"actual_shipping_fee":      actualShippingFee,
		"transaction_fee":          transactionFee,
		"service_fee":              serviceFee,
	}
}
