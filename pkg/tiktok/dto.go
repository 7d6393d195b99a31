package tiktok

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// ==================== 通用 ====================

// Envelope 开放平台统一响应信封，code == 0 才算成功
type Envelope struct {
	Code      int             `json:"code"`
	Message   string          `json:"message"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
}

// Number 兼容数字/字符串两种写法的金额字段
// 平台部分接口把金额序列化成字符串 (如 "12.50")，部分是数字
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*n = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*n = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			// 非数字字符串按 0 处理，与结算聚合的容错口径一致
			*n = 0
			return nil
		}
		*n = Number(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

func (n Number) Float64() float64 { return float64(n) }

// ==================== Token ====================

// TokenData 授权/刷新接口返回的 data 字段
type TokenData struct {
	AccessToken          string `json:"access_token"`
	AccessTokenExpireIn  int64  `json:"access_token_expire_in"`
	RefreshToken         string `json:"refresh_token"`
	RefreshTokenExpireIn int64  `json:"refresh_token_expire_in"`
	SellerName           string `json:"seller_name"`
}

// ==================== 仓库 ====================

type Warehouse struct {
	WarehouseID   string `json:"warehouse_id"`
	WarehouseName string `json:"warehouse_name"`
	EffectStatus  int    `json:"warehouse_effect_status"`
	IsDefault     bool   `json:"is_default"`
}

type WarehouseListData struct {
	WarehouseList []Warehouse `json:"warehouse_list"`
}

// ==================== 订单 ====================

// OrderSearchData orders/search 返回，游标分页
type OrderSearchData struct {
	OrderList  []OrderSummary `json:"order_list"`
	More       bool           `json:"more"`
	NextCursor string         `json:"next_cursor"`
	Total      int            `json:"total"`
}

type OrderSummary struct {
	OrderID string `json:"order_id"`
}

type OrderDetailData struct {
	OrderList []OrderDetail `json:"order_list"`
}

type OrderDetail struct {
	OrderID           string           `json:"order_id"`
	OrderStatus       int              `json:"order_status"`
	WarehouseID       string           `json:"warehouse_id"`
	RecipientAddress  RecipientAddress `json:"recipient_address"`
	DistrictInfoList  []DistrictInfo   `json:"district_info_list"`
	PaymentInfo       PaymentInfo      `json:"payment_info"`
	PaymentMethodName string           `json:"payment_method_name"`
	FulfillmentType   int              `json:"fulfillment_type"`
	DeliveryOption    string           `json:"delivery_option"`
	DeliverySLA       int64            `json:"delivery_sla"` // 毫秒时间戳
	BuyerMessage      string           `json:"buyer_message"`
	CancelReason      string           `json:"cancel_reason"`
	CreateTime        int64            `json:"create_time"` // 毫秒
	UpdateTime        int64            `json:"update_time"` // 秒
	PaidTime          int64            `json:"paid_time"`   // 毫秒，未支付为 0
	OrderLineList     []OrderLine      `json:"order_line_list"`
}

type RecipientAddress struct {
	Name            string   `json:"name"`
	Phone           string   `json:"phone"`
	Zipcode         string   `json:"zipcode"`
	AddressLineList []string `json:"address_line_list"`
}

type DistrictInfo struct {
	AddressLevelName string `json:"address_level_name"` // city / state / country
	AddressName      string `json:"address_name"`
}

type PaymentInfo struct {
	PlatformDiscount            Number `json:"platform_discount"`
	SellerDiscount              Number `json:"seller_discount"`
	ShippingFee                 Number `json:"shipping_fee"`
	ShippingFeePlatformDiscount Number `json:"shipping_fee_platform_discount"`
	ShippingFeeSellerDiscount   Number `json:"shipping_fee_seller_discount"`
	Taxes                       Number `json:"taxes"`
}

type OrderLine struct {
	OrderLineID          string `json:"order_line_id"`
	ProductID            string `json:"product_id"`
	ProductName          string `json:"product_name"`
	SellerSku            string `json:"seller_sku"`
	SkuName              string `json:"sku_name"`
	SalePrice            Number `json:"sale_price"`
	PlatformDiscount     Number `json:"platform_discount"`
	SellerDiscount       Number `json:"seller_discount"`
	DisplayStatus        int    `json:"display_status"`
	CancelReason         string `json:"cancel_reason"`
	PackageID            string `json:"package_id"`
	ShippingProviderID   string `json:"shipping_provider_id"`
	ShippingProviderName string `json:"shipping_provider_name"`
	TrackingNumber       string `json:"tracking_number"`
}

// SplitVerifyData fulfillment/order_split/verify 返回
type SplitVerifyData struct {
	ResultList []SplitVerifyResult `json:"result_list"`
}

type SplitVerifyResult struct {
	OrderID  string `json:"order_id"`
	CanSplit bool   `json:"verify_order_result"`
}

// SplitConfirmData 拆单确认返回，fail_list 非空表示部分失败
type SplitConfirmData struct {
	FailList []SplitFail `json:"fail_list"`
}

type SplitFail struct {
	OrderID    string `json:"order_id"`
	FailReason string `json:"fail_reason"`
}

// ReverseReasonData 取消原因列表
type ReverseReasonData struct {
	ReverseReasonList []ReverseReason `json:"reverse_reason_list"`
}

type ReverseReason struct {
	Key    string `json:"reverse_reason_key"`
	Reason string `json:"reverse_reason"`
}

// ShippingProviderData 物流方式列表 (发货 initInfo 用)
type ShippingProviderData struct {
	DeliveryOptionList []DeliveryOption `json:"delivery_option_list"`
}

type DeliveryOption struct {
	ID   string `json:"delivery_option_id"`
	Name string `json:"delivery_option_name"`
}

// ShippingDocumentData 面单文档
type ShippingDocumentData struct {
	DocURL string `json:"doc_url"`
}

// ==================== 结算 ====================

type SettlementData struct {
	SettlementList []Settlement `json:"settlement_list"`
}

type Settlement struct {
	SettlementInfo SettlementInfo `json:"settlement_info"`
}

type SettlementInfo struct {
	PlatformCommission           Number `json:"platform_commission"`
	SettlementAmount             Number `json:"settlement_amount"`
	PlatformPromotion            Number `json:"platform_promotion"`
	SalesFee                     Number `json:"sales_fee"`
	SubtotalAfterSellerDiscounts Number `json:"subtotal_after_seller_discounts"`
	ShippingFee                  Number `json:"shipping_fee"`
	LogisticsReimbursement       Number `json:"logistics_reimbursement"`
	TransactionFee               Number `json:"transaction_fee"`
	TransactionFeeRefund         Number `json:"transaction_fee_refund"`
	PaymentFee                   Number `json:"payment_fee"`
	SmallOrderFee                Number `json:"small_order_fee"`
}

// ==================== 商品 ====================

// ProductSearchData products/search 返回，页号分页
type ProductSearchData struct {
	Products []ProductSummary `json:"products"`
	Total    int              `json:"total"`
}

type ProductSummary struct {
	ID string `json:"id"`
}

type ProductDetail struct {
	ProductID         string                  `json:"product_id"`
	ProductName       string                  `json:"product_name"`
	Description       string                  `json:"description"`
	ProductStatus     int                     `json:"product_status"`
	Brand             *BrandRef               `json:"brand"`
	CategoryList      []CategoryNode          `json:"category_list"`
	Images            []ProductImage          `json:"images"`
	ProductAttributes []ProductAttributeValue `json:"product_attributes"`
	PackageWeight     Number                  `json:"package_weight"`
	PackageLength     Number                  `json:"package_length"`
	PackageWidth      Number                  `json:"package_width"`
	PackageHeight     Number                  `json:"package_height"`
	Skus              []SKU                   `json:"skus"`
}

type BrandRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type CategoryNode struct {
	ID               string `json:"id"`
	ParentID         string `json:"parent_id"`
	LocalDisplayName string `json:"local_display_name"`
	IsLeaf           bool   `json:"is_leaf"`
}

type ProductImage struct {
	ID      string   `json:"id"`
	URLList []string `json:"url_list"`
	Width   int      `json:"width"`
	Height  int      `json:"height"`
}

type ProductAttributeValue struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	ValueName string      `json:"value_name"`
	Values    []AttrValue `json:"values"`
}

type AttrValue struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type SKU struct {
	ID              string           `json:"id"`
	SellerSku       string           `json:"seller_sku"`
	Price           SKUPrice         `json:"price"`
	StockInfos      []StockInfo      `json:"stock_infos"`
	SalesAttributes []SalesAttribute `json:"sales_attributes"`
	PackageWeight   Number           `json:"package_weight"`
	PackageLength   Number           `json:"package_length"`
	PackageWidth    Number           `json:"package_width"`
	PackageHeight   Number           `json:"package_height"`
}

type SKUPrice struct {
	OriginalPrice Number `json:"original_price"`
}

type StockInfo struct {
	WarehouseID    string `json:"warehouse_id"`
	AvailableStock int    `json:"available_stock"`
}

type SalesAttribute struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	ValueName string        `json:"value_name"`
	Values    []AttrValue   `json:"values"`
	SkuImg    *ProductImage `json:"sku_img"`
}

// ImageUploadData products/upload_imgs 返回
type ImageUploadData struct {
	ImgID     string `json:"img_id"`
	ImgURL    string `json:"img_url"`
	ImgWidth  int    `json:"img_width"`
	ImgHeight int    `json:"img_height"`
}

// CreateProductData 商品创建返回
type CreateProductData struct {
	ProductID string `json:"product_id"`
}

// CategoryListData 类目树
type CategoryListData struct {
	CategoryList []CategoryNode `json:"category_list"`
}

// BrandListData 品牌列表，页号分页
type BrandListData struct {
	BrandList []AttrValue `json:"brand_list"`
	TotalNum  int         `json:"total_num"`
}

// CategoryAttributeData 类目属性
type CategoryAttributeData struct {
	Attributes []RemoteCategoryAttribute `json:"attributes"`
}

type RemoteCategoryAttribute struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	AttributeType int           `json:"attribute_type"` // 2 = 销售属性
	InputType     AttrInputType `json:"input_type"`
	Values        []AttrValue   `json:"values"`
}

type AttrInputType struct {
	IsMandatory        bool `json:"is_mandatory"`
	IsMultipleSelected bool `json:"is_multiple_selected"`
}

// ==================== 请求载荷 (出向) ====================

// ProductAttributePayload 创建/更新商品时的属性编码
type ProductAttributePayload struct {
	AttributeID     string                `json:"attribute_id"`
	AttributeValues []AttributeValueField `json:"attribute_values"`
}

// AttributeValueField value_id 与 value_name 二选一
type AttributeValueField struct {
	ValueID   string `json:"value_id,omitempty"`
	ValueName string `json:"value_name,omitempty"`
}

type SKUPayload struct {
	SellerSku             string           `json:"seller_sku"`
	OriginalPrice         float64          `json:"original_price"`
	SalesAttribute        []map[string]any `json:"sales_attribute"`
	StockInfo             []StockInfo      `json:"stock_info"`
	ProductIdentifierCode *IdentifierCode  `json:"product_identifier_code,omitempty"`
	ProductAttributes     []any            `json:"product_attributes"`
}

type IdentifierCode struct {
	Code string `json:"identifier_code"`
	Type int    `json:"identifier_code_type"`
}
