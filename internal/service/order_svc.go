package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"tiktok_shop_v1/internal/model"
	"tiktok_shop_v1/internal/repository"
	"tiktok_shop_v1/pkg/tiktok"
)

// ClientFactory 按账号构造签名客户端，服务层统一通过它拿 Client
type ClientFactory func(account *model.Account) *tiktok.Client

// ==================== 常量 ====================

const (
	// 订单详情接口单次最多查 50 单
	orderDetailBatchSize = 50
	// 搜索分页大小
	orderSearchPageSize = 50

	// 同步检查点 key
	orderSyncKey = "sync_orders"
	// 检查点回拨量，容忍平台侧 update_time 的写入延迟
	orderSyncOverlap = 10 * time.Minute
	// 首次同步回看窗口
	orderSyncInitialWindow = 24 * time.Hour
)

// 平台订单状态码
const (
	remoteStatusUnpaid           = 100
	remoteStatusAwaitingShipment = 111
	remoteStatusAwaitingCollect  = 112
	remoteStatusPartiallyShipped = 114
	remoteStatusInTransit        = 121
	remoteStatusDelivered        = 122
	remoteStatusCompleted        = 130
	remoteStatusCancelled        = 140
)

// DeliveryOptionSendBySeller 卖家自发货
const DeliveryOptionSendBySeller = "SEND_BY_SELLER"

// ==================== 服务 ====================

// OrderService 订单抓取、转换与同步
type OrderService struct {
	clients     ClientFactory
	orderRepo   repository.OrderRepository
	accountRepo repository.AccountRepository
	logger      *zap.Logger
	now         func() time.Time
}

// NewOrderService 创建订单服务
func NewOrderService(clients ClientFactory, orderRepo repository.OrderRepository, accountRepo repository.AccountRepository, logger *zap.Logger) *OrderService {
	return &OrderService{
		clients:     clients,
		orderRepo:   orderRepo,
		accountRepo: accountRepo,
		logger:      logger.Named("order"),
		now:         time.Now,
	}
}

// SetClock 注入时钟，测试用
func (s *OrderService) SetClock(now func() time.Time) { s.now = now }

// ==================== 抓取 ====================

// GetOrderDetails 批量抓取订单详情并转换为统一模型
// 解析出有效仓库（账号设置优先，否则平台默认仓）后只保留该仓库的订单
func (s *OrderService) GetOrderDetails(ctx context.Context, account *model.Account, externalIDs []string) ([]model.Order, error) {
	if len(externalIDs) == 0 {
		return nil, nil
	}
	client := s.clients(account)

	var details []tiktok.OrderDetail
	for start := 0; start < len(externalIDs); start += orderDetailBatchSize {
		end := start + orderDetailBatchSize
		if end > len(externalIDs) {
			end = len(externalIDs)
		}
		batch, err := s.fetchDetailBatch(ctx, client, externalIDs[start:end])
		if err != nil {
			return nil, err
		}
		details = append(details, batch...)
	}
	if len(details) == 0 {
		return nil, nil
	}

	// 仓库过滤在转换前做，被过滤的订单不产生任何本地写入
	warehouseID, err := resolveWarehouseID(ctx, client, account)
	if err != nil {
		return nil, err
	}
	if warehouseID != "" {
		kept := details[:0]
		for _, d := range details {
			if d.WarehouseID == warehouseID {
				kept = append(kept, d)
			}
		}
		details = kept
	}

	canSplit, err := s.verifySplit(ctx, client, details)
	if err != nil {
		return nil, err
	}

	orders := make([]model.Order, 0, len(details))
	for _, d := range details {
		order, err := TransformOrder(account, &d, canSplit[d.OrderID])
		if err != nil {
			// 转换失败整批报错，错误里带上原始报文方便排查
			s.logger.Error("order transform failed",
				zap.Int64("account_id", account.ID),
				zap.String("external_id", d.OrderID),
				zap.Error(err))
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, nil
}

// resolveWarehouseID 账号绑定仓库优先，否则用平台默认仓
func resolveWarehouseID(ctx context.Context, client *tiktok.Client, account *model.Account) (string, error) {
	if id := account.GetSettingString("account", "warehouse"); id != "" {
		return id, nil
	}
	warehouse, err := client.GetDefaultWarehouse(ctx)
	if err != nil {
		return "", err
	}
	if warehouse == nil {
		return "", nil
	}
	return warehouse.WarehouseID, nil
}

func (s *OrderService) fetchDetailBatch(ctx context.Context, client *tiktok.Client, ids []string) ([]tiktok.OrderDetail, error) {
	data, err := client.Request(ctx, http.MethodPost, "orders/detail/query", &tiktok.RequestOptions{
		JSON: map[string]any{"order_id_list": ids},
	})
	if err != nil {
		return nil, err
	}
	var out tiktok.OrderDetailData
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("order detail decode: %w", err)
	}
	return out.OrderList, nil
}

// verifySplit 批量查询拆单资格，结果写进订单的 Data 包
func (s *OrderService) verifySplit(ctx context.Context, client *tiktok.Client, details []tiktok.OrderDetail) (map[string]bool, error) {
	result := make(map[string]bool, len(details))
	var ids []string
	for _, d := range details {
		// 单件订单没有拆单资格，不用问平台
		if len(d.OrderLineList) >= 2 {
			ids = append(ids, d.OrderID)
		}
	}
	if len(ids) == 0 {
		return result, nil
	}

	for start := 0; start < len(ids); start += orderDetailBatchSize {
		end := start + orderDetailBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		data, err := client.Request(ctx, http.MethodPost, "fulfillment/order_split/verify", &tiktok.RequestOptions{
			JSON: map[string]any{"order_id_list": ids[start:end]},
		})
		if err != nil {
			return nil, err
		}
		var out tiktok.SplitVerifyData
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("split verify decode: %w", err)
		}
		for _, r := range out.ResultList {
			result[r.OrderID] = r.CanSplit
		}
	}
	return result, nil
}

// ==================== 转换 ====================

// TransformOrder 远端订单报文转统一订单模型，纯函数
func TransformOrder(account *model.Account, d *tiktok.OrderDetail, canSplit bool) (*model.Order, error) {
	if d.OrderID == "" {
		return nil, &tiktok.TransformError{Entity: "order", Raw: d, Err: fmt.Errorf("missing order_id")}
	}

	status := orderFulfillmentStatus(d.OrderStatus, d.CancelReason, d.PaidTime)
	payment := model.PaymentPaid
	if d.OrderStatus == remoteStatusUnpaid {
		payment = model.PaymentPendingPayment
	}

	address := transformAddress(&d.RecipientAddress, d.DistrictInfoList)

	order := &model.Order{
		AccountID:      account.ID,
		ExternalID:     d.OrderID,
		ExternalNumber: d.OrderID,
		ExternalSource: "tiktok",

		CustomerName: d.RecipientAddress.Name,

		ShippingAddress: address,
		BillingAddress:  address, // 平台不区分账单地址

		Currency: account.Currency,

		PaymentStatus:     payment,
		PaymentMethod:     d.PaymentMethodName,
		FulfillmentType:   d.FulfillmentType,
		FulfillmentStatus: status,

		BuyerRemarks: d.BuyerMessage,

		Data: map[string]interface{}{
			"can_split":       canSplit,
			"delivery_option": d.DeliveryOption,
			"warehouse_id":    d.WarehouseID,
			"cancel_reason":   d.CancelReason,
		},
	}

	if d.DeliverySLA > 0 {
		t := time.UnixMilli(d.DeliverySLA).UTC()
		order.ShipByDate = &t
	}
	if d.CreateTime > 0 {
		t := time.UnixMilli(d.CreateTime).UTC()
		order.OrderPlacedAt = &t
	}
	// update_time 是秒级时间戳，和其他毫秒字段不一致
	if d.UpdateTime > 0 {
		t := time.Unix(d.UpdateTime, 0).UTC()
		order.OrderUpdatedAt = &t
	}
	if d.PaidTime > 0 {
		t := time.UnixMilli(d.PaidTime).UTC()
		order.OrderPaidAt = &t
	}

	var subtotal float64
	for _, line := range d.OrderLineList {
		item := transformOrderLine(&line, d)
		subtotal += item.Subtotal
		order.Items = append(order.Items, item)
	}

	pi := d.PaymentInfo
	order.Subtotal = subtotal
	order.SellerDiscount = pi.SellerDiscount.Float64()
	order.IntegrationDiscount = pi.PlatformDiscount.Float64()
	order.ShippingFee = pi.ShippingFee.Float64()
	order.IntegrationShippingFee = pi.ShippingFeePlatformDiscount.Float64()
	order.SellerShippingFee = pi.ShippingFeeSellerDiscount.Float64()
	order.Tax = pi.Taxes.Float64()

	// 应收 = 商品小计 - 代金券 + 运费 + 税；平台没有代金券概念，恒为 0
	// 折扣金额只做记录，不参与应收计算
	order.GrandTotal = order.Subtotal + order.ShippingFee + order.Tax
	// 已支付订单买家实付即应收，未支付为 0
	if payment == model.PaymentPaid {
		order.BuyerPaid = order.GrandTotal
	}

	return order, nil
}

// 每个 order_line 对应一件商品，数量恒为 1
func transformOrderLine(line *tiktok.OrderLine, d *tiktok.OrderDetail) model.OrderItem {
	item := model.OrderItem{
		ExternalID:        line.OrderLineID,
		ExternalProductID: line.ProductID,
		Name:              line.ProductName,
		Sku:               line.SellerSku,
		VariationName:     line.SkuName,
		VariationSku:      line.SellerSku,
		Quantity:          1,

		Price:               line.SalePrice.Float64(),
		IntegrationDiscount: line.PlatformDiscount.Float64(),
		SellerDiscount:      line.SellerDiscount.Float64(),
		Subtotal:            line.SalePrice.Float64(),

		FulfillmentStatus: orderFulfillmentStatus(line.DisplayStatus, line.CancelReason, d.PaidTime),

		ShipmentProvider: line.ShippingProviderName,
		TrackingNumber:   line.TrackingNumber,

		Data: map[string]interface{}{
			"package_id":           line.PackageID,
			"shipping_provider_id": line.ShippingProviderID,
		},
	}
	item.GrandTotal = item.Subtotal - item.IntegrationDiscount - item.SellerDiscount
	item.BuyerPaid = item.GrandTotal
	return item
}

// orderFulfillmentStatus 状态码映射，订单级和订单项级共用一张表
// 130 (completed) 要结合取消原因和支付时间区分退款/取消/正常完成
func orderFulfillmentStatus(code int, cancelReason string, paidTime int64) model.FulfillmentStatus {
	switch code {
	case remoteStatusUnpaid:
		return model.FulfillmentDocumentation
	case remoteStatusAwaitingShipment:
		return model.FulfillmentToShip
	case remoteStatusAwaitingCollect:
		return model.FulfillmentReadyToShip
	case remoteStatusPartiallyShipped:
		return model.FulfillmentPartiallyShipped
	case remoteStatusInTransit:
		return model.FulfillmentShipped
	case remoteStatusDelivered:
		return model.FulfillmentDelivered
	case remoteStatusCompleted:
		if cancelReason != "" {
			if paidTime > 0 {
				return model.FulfillmentRefunded
			}
			return model.FulfillmentCancelled
		}
		return model.FulfillmentCompleted
	case remoteStatusCancelled:
		return model.FulfillmentCancelled
	default:
		return model.FulfillmentCancelled
	}
}

// transformAddress 地址行和行政区划拼成统一地址包
func transformAddress(addr *tiktok.RecipientAddress, districts []tiktok.DistrictInfo) map[string]interface{} {
	out := map[string]interface{}{
		"name":    addr.Name,
		"phone":   addr.Phone,
		"zipcode": addr.Zipcode,
	}
	// 固定输出 address1~address5，缺的槽位留空串
	for i := 0; i < 5; i++ {
		line := ""
		if i < len(addr.AddressLineList) {
			line = addr.AddressLineList[i]
		}
		out["address"+strconv.Itoa(i+1)] = line
	}
	for _, d := range districts {
		switch d.AddressLevelName {
		case "city", "City":
			out["city"] = d.AddressName
		case "state", "State", "province", "Province":
			out["state"] = d.AddressName
		case "country", "Country":
			out["country"] = d.AddressName
		}
	}
	return out
}

// ==================== 导入与同步 ====================

// ImportOrders 按 id 列表导入订单
// 导入产生的新订单不触发新单通知，只记日志
func (s *OrderService) ImportOrders(ctx context.Context, account *model.Account, externalIDs []string) error {
	return s.saveOrders(ctx, account, externalIDs, true)
}

// ImportAllOrders 全量导入：不带时间窗口按创建时间翻完搜索接口的所有页
func (s *OrderService) ImportAllOrders(ctx context.Context, account *model.Account) error {
	ids, err := s.searchOrderIDs(ctx, account, nil, nil)
	if err != nil {
		return err
	}
	return s.saveOrders(ctx, account, ids, true)
}

// SyncOrders 增量同步：从上个检查点回拨 10 分钟拉到现在
// 检查点推进到本次同步的开始时刻，而不是结束时刻
func (s *OrderService) SyncOrders(ctx context.Context, account *model.Account) error {
	start := s.now()

	since, ok := s.accountRepo.GetSyncTimestamp(ctx, account, orderSyncKey)
	if !ok {
		since = start.Add(-orderSyncInitialWindow)
	}
	from := since.Add(-orderSyncOverlap)

	ids, err := s.searchOrderIDs(ctx, account, &from, &start)
	if err != nil {
		return err
	}
	if err := s.saveOrders(ctx, account, ids, false); err != nil {
		return err
	}
	return s.accountRepo.SetSyncTimestamp(ctx, account, orderSyncKey, start)
}

func (s *OrderService) saveOrders(ctx context.Context, account *model.Account, externalIDs []string, importing bool) error {
	orders, err := s.GetOrderDetails(ctx, account, externalIDs)
	if err != nil {
		return err
	}

	for i := range orders {
		created, err := s.orderRepo.Upsert(ctx, &orders[i])
		if err != nil {
			return fmt.Errorf("upsert order %s: %w", orders[i].ExternalID, err)
		}
		if created && !importing {
			s.logger.Info("new order",
				zap.Int64("account_id", account.ID),
				zap.String("external_id", orders[i].ExternalID),
				zap.String("status", orders[i].FulfillmentStatus.String()))
		}
	}
	return nil
}

// searchOrderIDs 游标分页拉订单 id
// 带时间窗口时按更新时间过滤，不带窗口时按创建时间全量翻页
func (s *OrderService) searchOrderIDs(ctx context.Context, account *model.Account, from, to *time.Time) ([]string, error) {
	client := s.clients(account)

	summaries, err := tiktok.FetchAllByCursor(func(cursor string) ([]tiktok.OrderSummary, string, bool, error) {
		body := map[string]any{
			"page_size": orderSearchPageSize,
			"sort_by":   "CREATE_TIME",
			"sort_type": 1,
		}
		if from != nil && to != nil {
			body["update_time_from"] = from.Unix()
			body["update_time_to"] = to.Unix()
			body["sort_by"] = "UPDATE_TIME"
		}
		if cursor != "" {
			body["cursor"] = cursor
		}
		data, err := client.Request(ctx, http.MethodPost, "orders/search", &tiktok.RequestOptions{JSON: body})
		if err != nil {
			return nil, "", false, err
		}
		var out tiktok.OrderSearchData
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, "", false, fmt.Errorf("order search decode: %w", err)
		}
		return out.OrderList, out.NextCursor, out.More, nil
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(summaries))
	for _, s := range summaries {
		ids = append(ids, s.OrderID)
	}
	return ids, nil
}

// ==================== 可用操作 ====================

// 操作名常量，前端按钮据此渲染
const (
	ActionCancel       = "cancel"
	ActionCancellation = "cancellation"
	ActionReasons      = "reasons"
	ActionInitInfo     = "initInfo"
	ActionFulfillment  = "fulfillment"
	ActionSplit        = "split"
	ActionBill         = "bill"
)

// AvailableActions 按当前履约状态返回可执行操作
func AvailableActions(order *model.Order) []string {
	actions := make([]string, 0, 4)

	switch order.FulfillmentStatus {
	case model.FulfillmentToShip, model.FulfillmentDocumentation:
		actions = append(actions, ActionInitInfo, ActionFulfillment)
		if len(order.Items) >= 2 && order.CanSplit() {
			actions = append(actions, ActionSplit)
		}
	case model.FulfillmentReadyToShip:
		actions = append(actions, ActionInitInfo, ActionBill)
	case model.FulfillmentRequestCancel:
		actions = append(actions, ActionCancellation)
	case model.FulfillmentRetryShip:
		actions = append(actions, ActionInitInfo, ActionFulfillment)
	case model.FulfillmentShipped:
		actions = append(actions, ActionBill)
	}

	// 揽收前都可以取消
	if order.FulfillmentStatus <= model.FulfillmentReadyToShip {
		actions = append(actions, ActionCancel, ActionReasons)
	}

	return actions
}
