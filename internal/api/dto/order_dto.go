package dto

import "time"

// ==================== 订单列表查询 ====================

// ListOrdersRequest 订单列表请求
type ListOrdersRequest struct {
	FulfillmentStatus *int   `form:"fulfillment_status"`
	PaymentStatus     *int   `form:"payment_status"`
	ExternalNumber    string `form:"external_number"` // 平台订单号模糊搜索
	Page              int    `form:"page,default=1"`
	PageSize          int    `form:"page_size,default=20"`
}

// ListOrdersResponse 订单列表响应
type ListOrdersResponse struct {
	Total int64           `json:"total"`
	List  []OrderListItem `json:"list"`
}

// OrderListItem 订单列表项
type OrderListItem struct {
	ID                int64      `json:"id"`
	ExternalID        string     `json:"external_id"`
	ExternalNumber    string     `json:"external_number"`
	CustomerName      string     `json:"customer_name"`
	FulfillmentStatus string     `json:"fulfillment_status"`
	PaymentStatus     int        `json:"payment_status"`
	ItemCount         int        `json:"item_count"`
	GrandTotal        float64    `json:"grand_total"`
	BuyerPaid         float64    `json:"buyer_paid"`
	Currency          string     `json:"currency"`
	OrderPlacedAt     *time.Time `json:"order_placed_at,omitempty"`
	ShipByDate        *time.Time `json:"ship_by_date,omitempty"`
}

// ==================== 订单详情 ====================

// OrderDetailResponse 订单详情响应
type OrderDetailResponse struct {
	Order   *OrderVO      `json:"order"`
	Items   []OrderItemVO `json:"items"`
	Actions []string      `json:"actions"` // 当前状态下可执行的操作
}

// OrderVO 订单视图对象
type OrderVO struct {
	ID                     int64          `json:"id"`
	ExternalID             string         `json:"external_id"`
	ExternalNumber         string         `json:"external_number"`
	CustomerName           string         `json:"customer_name"`
	CustomerEmail          string         `json:"customer_email"`
	ShippingAddress        map[string]any `json:"shipping_address"`
	FulfillmentStatus      string         `json:"fulfillment_status"`
	PaymentStatus          int            `json:"payment_status"`
	PaymentMethod          string         `json:"payment_method"`
	Currency               string         `json:"currency"`
	Subtotal               float64        `json:"subtotal"`
	GrandTotal             float64        `json:"grand_total"`
	BuyerPaid              float64        `json:"buyer_paid"`
	IntegrationDiscount    float64        `json:"integration_discount"`
	SellerDiscount         float64        `json:"seller_discount"`
	ShippingFee            float64        `json:"shipping_fee"`
	IntegrationShippingFee float64        `json:"integration_shipping_fee"`
	Tax                    float64        `json:"tax"`
	CommissionFee          float64        `json:"commission_fee"`
	SettlementAmount       float64        `json:"settlement_amount"`
	BuyerRemarks           string         `json:"buyer_remarks,omitempty"`
	ShipByDate             *time.Time     `json:"ship_by_date,omitempty"`
	OrderPlacedAt          *time.Time     `json:"order_placed_at,omitempty"`
	OrderPaidAt            *time.Time     `json:"order_paid_at,omitempty"`
	CreatedAt              time.Time      `json:"created_at"`
	UpdatedAt              time.Time      `json:"updated_at"`
}

// OrderItemVO 订单项视图对象
type OrderItemVO struct {
	ID                int64   `json:"id"`
	ExternalID        string  `json:"external_id"`
	ExternalProductID string  `json:"external_product_id"`
	Name              string  `json:"name"`
	Sku               string  `json:"sku"`
	VariationName     string  `json:"variation_name"`
	VariationSku      string  `json:"variation_sku"`
	Quantity          int     `json:"quantity"`
	Subtotal          float64 `json:"subtotal"`
	GrandTotal        float64 `json:"grand_total"`
	BuyerPaid         float64 `json:"buyer_paid"`
	FulfillmentStatus string  `json:"fulfillment_status"`
	PackageID         string  `json:"package_id,omitempty"`
	TrackingNumber    string  `json:"tracking_number,omitempty"`
}

// ==================== 订单操作 ====================

// ImportOrdersRequest 导入请求，不给订单号就全量导入
type ImportOrdersRequest struct {
	ExternalIDs []string `json:"external_ids"`
}

// CancelOrderRequest 卖家取消订单
type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// CancellationRequest 处理买家取消申请
type CancellationRequest struct {
	Action       string `json:"action" binding:"required"` // accept / reject
	RejectReason string `json:"reject_reason"`
	Comment      string `json:"comment"`
}

// FulfillRequest 发货请求，每个包裹一条
type FulfillRequest struct {
	Packages []FulfillPackageDTO `json:"packages" binding:"required,min=1"`
}

// FulfillPackageDTO 单个包裹的发货参数
type FulfillPackageDTO struct {
	PackageID          string `json:"package_id"`
	PickUpType         int    `json:"pick_up_type"`
	TrackingNumber     string `json:"tracking_number"`
	ShippingProviderID string `json:"shipping_provider_id"`
}

// SplitRequest 拆单请求，按本地订单项 id 分组
type SplitRequest struct {
	Packages []SplitPackageDTO `json:"packages" binding:"required,min=2"`
}

// SplitPackageDTO 拆单后的一个目标包裹
type SplitPackageDTO struct {
	ItemIDs []int64 `json:"item_ids" binding:"required,min=1"`
}

// BillResponse 面单响应，PDF 以 base64 下发
type BillResponse struct {
	File       string `json:"file"`
	ArchiveURL string `json:"archive_url,omitempty"`
}
