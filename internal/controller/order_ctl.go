package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tiktok_shop_v1/internal/api/dto"
	"tiktok_shop_v1/internal/integration"
	"tiktok_shop_v1/internal/model"
	"tiktok_shop_v1/internal/repository"
	"tiktok_shop_v1/internal/service"
)

// OrderController 订单控制器
type OrderController struct {
	adapters *integration.Registry
	accounts repository.AccountRepository
	orders   repository.OrderRepository
	actions  *service.OrderActionService
}

// NewOrderController 创建订单控制器
func NewOrderController(adapters *integration.Registry, accounts repository.AccountRepository, orders repository.OrderRepository, actions *service.OrderActionService) *OrderController {
	return &OrderController{
		adapters: adapters,
		accounts: accounts,
		orders:   orders,
		actions:  actions,
	}
}

// loadOrder 取路径上的订单并校验归属
func (c *OrderController) loadOrder(ctx *gin.Context, account *model.Account) (*model.Order, bool) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return nil, false
	}
	order, err := c.orders.GetByID(ctx, id)
	if err != nil || order.AccountID != account.ID {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "订单不存在"})
		return nil, false
	}
	return order, true
}

// ==================== 列表与详情 ====================

// List 订单列表
// GET /api/accounts/:account_id/orders
func (c *OrderController) List(ctx *gin.Context) {
	account, ok := loadAccount(ctx, c.accounts)
	if !ok {
		return
	}

	var req dto.ListOrdersRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	filter := repository.OrderFilter{
		AccountID:      account.ID,
		ExternalNumber: req.ExternalNumber,
		Page:           req.Page,
		PageSize:       req.PageSize,
	}
	if req.FulfillmentStatus != nil {
		fs := model.FulfillmentStatus(*req.FulfillmentStatus)
		filter.FulfillmentStatus = &fs
	}
	if req.PaymentStatus != nil {
		ps := model.PaymentStatus(*req.PaymentStatus)
		filter.PaymentStatus = &ps
	}

	orders, total, err := c.orders.List(ctx, filter)
	if err != nil {
		respondError(ctx, err)
		return
	}

	list := make([]dto.OrderListItem, len(orders))
	for i, o := range orders {
		list[i] = dto.OrderListItem{
			ID:                o.ID,
			ExternalID:        o.ExternalID,
			ExternalNumber:    o.ExternalNumber,
			CustomerName:      o.CustomerName,
			FulfillmentStatus: o.FulfillmentStatus.String(),
			PaymentStatus:     int(o.PaymentStatus),
			ItemCount:         len(o.Items),
			GrandTotal:        o.GrandTotal,
			BuyerPaid:         o.BuyerPaid,
			Currency:          o.Currency,
			OrderPlacedAt:     o.OrderPlacedAt,
			ShipByDate:        o.ShipByDate,
		}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"data": dto.ListOrdersResponse{Total: total, List: list},
	})
}

// GetByID 订单详情
// GET /api/accounts/:account_id/orders/:id
func (c *OrderController) GetByID(ctx *gin.Context) {
	account, ok := loadAccount(ctx, c.accounts)
	if !ok {
		return
	}
	order, ok := c.loadOrder(ctx, account)
	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"data": buildOrderDetailResponse(order)})
}

// ==================== 导入与同步 ====================

// Import 导入订单，带 external_ids 按号导入，不带就全量导入
// POST /api/accounts/:account_id/orders/import
func (c *OrderController) Import(ctx *gin.Context) {
	account, ok := loadAccount(ctx, c.accounts)
	if !ok {
		return
	}

	var req dto.ImportOrdersRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	adapter, err := c.adapters.ForAccount(account)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if len(req.ExternalIDs) > 0 {
		err = adapter.ImportOrders(ctx, account, req.ExternalIDs)
	} else {
		err = adapter.ImportAllOrders(ctx, account)
	}
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "订单导入完成"})
}

// Sync 增量同步订单
// POST /api/accounts/:account_id/orders/sync
func (c *OrderController) Sync(ctx *gin.Context) {
	account, ok := loadAccount(ctx, c.accounts)
	if !ok {
		return
	}

	adapter, err := c.adapters.ForAccount(account)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if err := adapter.SyncOrders(ctx, account); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "订单同步完成"})
}

// ==================== 取消 ====================

// Reasons 当前状态可用的取消原因
// GET /api/accounts/:account_id/orders/:id/reasons
func (c *OrderController) Reasons(ctx *gin.Context) {
	account, ok := loadAccount(ctx, c.accounts)
	if !ok {
		return
	}
	order, ok := c.loadOrder(ctx, account)
	if !ok {
		return
	}

	reasons, err := c.actions.Reasons(ctx, account, order)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": reasons})
}

// Cancel 卖家取消订单
// POST /api/accounts/:account_id/orders/:id/cancel
func (c *OrderController) Cancel(ctx *gin.Context) {
	account, ok := loadAccount(ctx, c.accounts)
	if !ok {
		return
	}
	order, ok := c.loadOrder(ctx, account)
	if !ok {
		return
	}

	var req dto.CancelOrderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := c.actions.Cancel(ctx, account, order, req.Reason); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "取消请求已提交"})
}

// HandleCancellation 处理买家取消申请
// POST /api/accounts/:account_id/orders/:id/cancellation
func (c *OrderController) HandleCancellation(ctx *gin.Context) {
	account, ok := loadAccount(ctx, c.accounts)
	if !ok {
		return
	}
	order, ok := c.loadOrder(ctx, account)
	if !ok {
		return
	}

	var req dto.CancellationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := c.actions.HandleCancellation(ctx, account, order, req.Action, req.RejectReason, req.Comment); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "已处理取消申请"})
}

// ==================== 发货 ====================

// InitInfo 发货面板初始化数据
// GET /api/accounts/:account_id/orders/:id/init-info
func (c *OrderController) InitInfo(ctx *gin.Context) {
	account, ok := loadAccount(ctx, c.accounts)
	if !ok {
		return
	}
	order, ok := c.loadOrder(ctx, account)
	if !ok {
		return
	}

	info, err := c.actions.InitInfo(ctx, account, order)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": info})
}

// Fulfill 整单 / 按包裹发货
// POST /api/accounts/:account_id/orders/:id/fulfill
func (c *OrderController) Fulfill(ctx *gin.Context) {
	account, ok := loadAccount(ctx, c.accounts)
	if !ok {
		return
	}
	order, ok := c.loadOrder(ctx, account)
	if !ok {
		return
	}

	var req dto.FulfillRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	packages := make([]service.FulfillmentPackage, len(req.Packages))
	for i, p := range req.Packages {
		packages[i] = service.FulfillmentPackage{
			PackageID:          p.PackageID,
			PickUpType:         p.PickUpType,
			TrackingNumber:     p.TrackingNumber,
			ShippingProviderID: p.ShippingProviderID,
		}
	}

	if err := c.actions.Fulfill(ctx, account, order, packages); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "发货完成"})
}

// Split 拆单
// POST /api/accounts/:account_id/orders/:id/split
func (c *OrderController) Split(ctx *gin.Context) {
	account, ok := loadAccount(ctx, c.accounts)
	if !ok {
		return
	}
	order, ok := c.loadOrder(ctx, account)
	if !ok {
		return
	}

	var req dto.SplitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	packages := make([]service.SplitPackage, len(req.Packages))
	for i, p := range req.Packages {
		packages[i] = service.SplitPackage{ItemIDs: p.ItemIDs}
	}

	if err := c.actions.Split(ctx, account, order, packages); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "拆单完成"})
}

// Bill 拉取面单 PDF
// GET /api/accounts/:account_id/orders/:id/bill
func (c *OrderController) Bill(ctx *gin.Context) {
	account, ok := loadAccount(ctx, c.accounts)
	if !ok {
		return
	}
	order, ok := c.loadOrder(ctx, account)
	if !ok {
		return
	}

	result, err := c.actions.Bill(ctx, account, order)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"data": dto.BillResponse{File: result.File, ArchiveURL: result.ArchiveURL},
	})
}

// ==================== 响应构建 ====================

func buildOrderDetailResponse(order *model.Order) *dto.OrderDetailResponse {
	resp := &dto.OrderDetailResponse{
		Order: &dto.OrderVO{
			ID:                     order.ID,
			ExternalID:             order.ExternalID,
			ExternalNumber:         order.ExternalNumber,
			CustomerName:           order.CustomerName,
			CustomerEmail:          order.CustomerEmail,
			ShippingAddress:        order.ShippingAddress,
			FulfillmentStatus:      order.FulfillmentStatus.String(),
			PaymentStatus:          int(order.PaymentStatus),
			PaymentMethod:          order.PaymentMethod,
			Currency:               order.Currency,
			Subtotal:               order.Subtotal,
			GrandTotal:             order.GrandTotal,
			BuyerPaid:              order.BuyerPaid,
			IntegrationDiscount:    order.IntegrationDiscount,
			SellerDiscount:         order.SellerDiscount,
			ShippingFee:            order.ShippingFee,
			IntegrationShippingFee: order.IntegrationShippingFee,
			Tax:                    order.Tax,
			CommissionFee:          order.CommissionFee,
			SettlementAmount:       order.SettlementAmount,
			BuyerRemarks:           order.BuyerRemarks,
			ShipByDate:             order.ShipByDate,
			OrderPlacedAt:          order.OrderPlacedAt,
			OrderPaidAt:            order.OrderPaidAt,
			CreatedAt:              order.CreatedAt,
			UpdatedAt:              order.UpdatedAt,
		},
		Actions: service.AvailableActions(order),
	}

	resp.Items = make([]dto.OrderItemVO, len(order.Items))
	for i, item := range order.Items {
		resp.Items[i] = dto.OrderItemVO{
			ID:                item.ID,
			ExternalID:        item.ExternalID,
			ExternalProductID: item.ExternalProductID,
			Name:              item.Name,
			Sku:               item.Sku,
			VariationName:     item.VariationName,
			VariationSku:      item.VariationSku,
			Quantity:          item.Quantity,
			Subtotal:          item.Subtotal,
			GrandTotal:        item.GrandTotal,
			BuyerPaid:         item.BuyerPaid,
			FulfillmentStatus: item.FulfillmentStatus.String(),
			PackageID:         item.PackageID(),
			TrackingNumber:    item.TrackingNumber,
		}
	}

	return resp
}
