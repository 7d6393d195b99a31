package model

import (
	"time"

	"gorm.io/datatypes"
)

// ==================== 履约 / 支付状态 ====================

// FulfillmentStatus 订单履约状态
// 数值保持主流程单调递增 (制单 -> 待发货 -> ... -> 完成)，
// 业务上会用大小比较判断"是否还未出库"，侧枝状态 (取消/退款) 排在主流程之后
type FulfillmentStatus int

const (
	FulfillmentPending          FulfillmentStatus = 0
	FulfillmentDocumentation    FulfillmentStatus = 1  // 制单 / 未支付
	FulfillmentToShip           FulfillmentStatus = 10 // 待发货
	FulfillmentReadyToShip      FulfillmentStatus = 20 // 待揽收
	FulfillmentPartiallyShipped FulfillmentStatus = 25 // 部分发货
	FulfillmentShipped          FulfillmentStatus = 30 // 运输中
	FulfillmentDelivered        FulfillmentStatus = 40 // 已签收
	FulfillmentCompleted        FulfillmentStatus = 50 // 已完成

	FulfillmentCancelled     FulfillmentStatus = 60 // 已取消
	FulfillmentRefunded      FulfillmentStatus = 61 // 已退款
	FulfillmentRequestCancel FulfillmentStatus = 62 // 买家申请取消
	FulfillmentRetryShip     FulfillmentStatus = 63 // 发货失败待重试
)

func (s FulfillmentStatus) String() string {
	switch s {
	case FulfillmentPending:
		return "pending"
	case FulfillmentDocumentation:
		return "documentation"
	case FulfillmentToShip:
		return "to_ship"
	case FulfillmentReadyToShip:
		return "ready_to_ship"
	case FulfillmentPartiallyShipped:
		return "partially_shipped"
	case FulfillmentShipped:
		return "shipped"
	case FulfillmentDelivered:
		return "delivered"
	case FulfillmentCompleted:
		return "completed"
	case FulfillmentCancelled:
		return "cancelled"
	case FulfillmentRefunded:
		return "refunded"
	case FulfillmentRequestCancel:
		return "request_cancel"
	case FulfillmentRetryShip:
		return "retry_ship"
	default:
		return "unknown"
	}
}

// PaymentStatus 支付状态
type PaymentStatus int

const (
	PaymentPendingPayment PaymentStatus = 0
	PaymentPaid           PaymentStatus = 1
)

// FulfillmentType 履约类型
const (
	FulfillmentTypeRequiresShipping = 0
	FulfillmentTypeNoShipping       = 1
)

// ==================== Order 订单主表 ====================

// Order 统一订单模型，由远端订单报文转换而来
type Order struct {
	ID             int64  `gorm:"primaryKey;autoIncrement"`
	AccountID      int64  `gorm:"uniqueIndex:uk_orders_account_external;not null"`
	ExternalID     string `gorm:"uniqueIndex:uk_orders_account_external;size:64;not null"`
	ExternalNumber string `gorm:"size:64"`
	ExternalSource string `gorm:"size:32"`

	CustomerName  string `gorm:"size:255"`
	CustomerEmail string `gorm:"size:255"`

	// 平台只给收货地址，账单地址沿用收货地址
	ShippingAddress datatypes.JSONMap `gorm:"type:jsonb"`
	BillingAddress  datatypes.JSONMap `gorm:"type:jsonb"`

	ShipByDate *time.Time
	Currency   string `gorm:"size:8"`

	// 金额拆解
	Subtotal               float64
	GrandTotal             float64
	BuyerPaid              float64
	IntegrationDiscount    float64
	SellerDiscount         float64
	ShippingFee            float64
	IntegrationShippingFee float64
	SellerShippingFee      float64
	Tax                    float64
	Tax2                   float64
	Commission             float64
	TransactionFee         float64

	// 结算回填字段 (每日结算任务更新)
	CommissionFee     float64
	SettlementAmount  float64
	ActualShippingFee float64
	ServiceFee        float64

	PaymentStatus   PaymentStatus `gorm:"index"`
	PaymentMethod   string        `gorm:"size:64"`
	FulfillmentType int

	FulfillmentStatus FulfillmentStatus `gorm:"index"`

	BuyerRemarks string `gorm:"type:text"`

	// 平台专属的订单级元数据：can_split / delivery_option
	Data datatypes.JSONMap `gorm:"type:jsonb"`

	OrderPlacedAt  *time.Time
	OrderUpdatedAt *time.Time
	OrderPaidAt    *time.Time

	Items []OrderItem `gorm:"foreignKey:OrderID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CanSplit 拆单校验结果 (随订单详情一起抓取)
func (o *Order) CanSplit() bool {
	v, ok := o.Data["can_split"].(bool)
	return ok && v
}

// DeliveryOption 配送方式，SEND_BY_SELLER 表示卖家自发货
func (o *Order) DeliveryOption() string {
	v, _ := o.Data["delivery_option"].(string)
	return v
}

// PackageGroups 按 package_id 给订单项分组，没有包裹号的订单项被跳过
func (o *Order) PackageGroups() map[string][]OrderItem {
	groups := make(map[string][]OrderItem)
	for _, item := range o.Items {
		pkg := item.PackageID()
		if pkg == "" {
			continue
		}
		groups[pkg] = append(groups[pkg], item)
	}
	return groups
}

// ==================== OrderItem 订单项 ====================

type OrderItem struct {
	ID                int64  `gorm:"primaryKey;autoIncrement"`
	OrderID           int64  `gorm:"uniqueIndex:uk_order_items_order_external;not null"`
	ExternalID        string `gorm:"uniqueIndex:uk_order_items_order_external;size:64;not null"`
	ExternalProductID string `gorm:"size:64"`

	Name          string `gorm:"size:512"`
	Sku           string `gorm:"size:255"`
	VariationName string `gorm:"size:512"`
	VariationSku  string `gorm:"size:255"`
	Quantity      int

	Price               float64
	IntegrationDiscount float64
	SellerDiscount      float64
	ShippingFee         float64
	Tax                 float64
	Tax2                float64
	Subtotal            float64
	GrandTotal          float64
	BuyerPaid           float64

	FulfillmentStatus FulfillmentStatus `gorm:"index"`

	ShipmentProvider string `gorm:"size:255"`
	TrackingNumber   string `gorm:"size:64"`

	// 平台专属的行级元数据：package_id / shipping_provider_id
	Data datatypes.JSONMap `gorm:"type:jsonb"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (i *OrderItem) PackageID() string {
	v, _ := i.Data["package_id"].(string)
	return v
}

func (i *OrderItem) ShippingProviderID() string {
	v, _ := i.Data["shipping_provider_id"].(string)
	return v
}
