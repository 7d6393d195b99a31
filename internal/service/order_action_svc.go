package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"tiktok_shop_v1/internal/model"
	"tiktok_shop_v1/pkg/tiktok"
	"tiktok_shop_v1/pkg/utils"
)

// ==================== 常量 ====================

const (
	// 发货后平台侧状态生效有延迟，回读前等一下
	fulfillmentSettleDelay = 3 * time.Second

	// 面单生成是异步的，最多试 3 次
	billMaxRetries = 3
	billRetryDelay = 2 * time.Second

	// 归档面单返回给前端的签名链接有效期
	billArchiveLinkTTL = 24 * time.Hour

	shippingDocumentType = "SL_PL"
)

// 揽收方式
const (
	PickUpTypePickup  = 1
	PickUpTypeDropOff = 2
)

// ==================== 请求结构 ====================

// FulfillmentPackage 一个包裹的发货参数
type FulfillmentPackage struct {
	PackageID          string `json:"package_id"`
	PickUpType         int    `json:"pick_up_type"`
	PickUp             any    `json:"pick_up,omitempty"`
	TrackingNumber     string `json:"tracking_number,omitempty"`
	ShippingProviderID string `json:"shipping_provider_id,omitempty"`
}

// SplitPackage 拆单时一个目标包裹里的订单项 (本地 id)
type SplitPackage struct {
	ItemIDs []int64 `json:"item_ids"`
}

// OrderInitInfo 发货面板初始化数据
type OrderInitInfo struct {
	DeliveryOptions []tiktok.DeliveryOption      `json:"delivery_options"`
	LogisticTypes   []LogisticType               `json:"logistic_types"`
	Packages        map[string][]model.OrderItem `json:"packages"`
}

type LogisticType struct {
	Value int    `json:"value"`
	Label string `json:"label"`
}

// ==================== 服务 ====================

// OrderActionService 单个订单上的操作：取消、发货、拆单、打面单
// 所有变更操作完成后都会回读远端订单，保证本地状态和平台一致
type OrderActionService struct {
	clients  ClientFactory
	orders   *OrderService
	sleeper  utils.Sleeper
	storage  StorageProvider // 可选，配置后面单 PDF 会归档一份
	download *resty.Client
	logger   *zap.Logger
}

// NewOrderActionService 创建订单操作服务，storage 传 nil 表示不归档面单
func NewOrderActionService(clients ClientFactory, orders *OrderService, sleeper utils.Sleeper, storage StorageProvider, logger *zap.Logger) *OrderActionService {
	return &OrderActionService{
		clients:  clients,
		orders:   orders,
		sleeper:  sleeper,
		storage:  storage,
		download: resty.New().SetTimeout(60 * time.Second),
		logger:   logger.Named("order_action"),
	}
}

// refresh 操作后回读订单，失败只记日志，不影响操作本身的结果
func (s *OrderActionService) refresh(ctx context.Context, account *model.Account, externalID string) {
	if err := s.orders.ImportOrders(ctx, account, []string{externalID}); err != nil {
		s.logger.Warn("order refresh after action failed",
			zap.Int64("account_id", account.ID),
			zap.String("external_id", externalID),
			zap.Error(err))
	}
}

// ==================== 取消 ====================

// Reasons 拉取当前状态下可用的取消原因，key -> 文案
func (s *OrderActionService) Reasons(ctx context.Context, account *model.Account, order *model.Order) (map[string]string, error) {
	// 不同履约阶段可用的原因集不同
	fulfillmentStage := 1
	switch order.FulfillmentStatus {
	case model.FulfillmentToShip:
		fulfillmentStage = 2
	case model.FulfillmentReadyToShip:
		fulfillmentStage = 3
	}

	client := s.clients(account)
	data, err := client.Request(ctx, http.MethodGet, "reverse/reverse_reason/list", &tiktok.RequestOptions{
		Query: map[string]string{
			"reverse_action_type": "1",
			"reason_type":         "1",
			"fulfillment_status":  strconv.Itoa(fulfillmentStage),
		},
	})
	if err != nil {
		return nil, err
	}

	var out tiktok.ReverseReasonData
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("reverse reason decode: %w", err)
	}

	reasons := make(map[string]string, len(out.ReverseReasonList))
	for _, r := range out.ReverseReasonList {
		reasons[r.Key] = r.Reason
	}
	return reasons, nil
}

// Cancel 卖家主动取消订单
func (s *OrderActionService) Cancel(ctx context.Context, account *model.Account, order *model.Order, reasonKey string) error {
	if reasonKey == "" {
		return &tiktok.InputError{Field: "cancel_reason", Message: "you need to specify the reason"}
	}

	client := s.clients(account)
	_, err := client.Request(ctx, http.MethodPost, "reverse/order/cancel", &tiktok.RequestOptions{
		JSON: map[string]any{
			"order_id":          order.ExternalID,
			"cancel_reason_key": reasonKey,
		},
	})
	if err != nil {
		return err
	}

	s.refresh(ctx, account, order.ExternalID)
	return nil
}

// HandleCancellation 处理买家的取消申请，action 为 accept 或 reject
func (s *OrderActionService) HandleCancellation(ctx context.Context, account *model.Account, order *model.Order, action, rejectReason, comment string) error {
	client := s.clients(account)

	switch action {
	case "accept":
		_, err := client.Request(ctx, http.MethodPost, "reverse/reverse_request/confirm", &tiktok.RequestOptions{
			JSON: map[string]any{"reverse_order_id": order.ExternalID},
		})
		if err != nil {
			return err
		}
	case "reject":
		if rejectReason == "" {
			return &tiktok.InputError{Field: "reject_reason", Message: "reject reason is required"}
		}
		_, err := client.Request(ctx, http.MethodPost, "reverse/reverse_request/reject", &tiktok.RequestOptions{
			JSON: map[string]any{
				"reverse_order_id":          order.ExternalID,
				"reverse_reject_reason_key": rejectReason,
				"reverse_reject_comments":   comment,
			},
		})
		if err != nil {
			return err
		}
	default:
		return &tiktok.InputError{Field: "action", Message: "accept or reject is required"}
	}

	s.refresh(ctx, account, order.ExternalID)
	return nil
}

// ==================== 发货 ====================

// InitInfo 发货面板初始化：物流方式列表和订单的包裹分组
func (s *OrderActionService) InitInfo(ctx context.Context, account *model.Account, order *model.Order) (*OrderInitInfo, error) {
	client := s.clients(account)
	data, err := client.Request(ctx, http.MethodGet, "logistics/shipping_providers", nil)
	if err != nil {
		return nil, err
	}

	var out tiktok.ShippingProviderData
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("shipping provider decode: %w", err)
	}

	return &OrderInitInfo{
		DeliveryOptions: out.DeliveryOptionList,
		LogisticTypes: []LogisticType{
			{Value: PickUpTypePickup, Label: "Pick Up"},
			{Value: PickUpTypeDropOff, Label: "Drop Off"},
		},
		Packages: order.PackageGroups(),
	}, nil
}

// Fulfill 按包裹安排发货 (RTS)
// 自发货订单每个包裹必须带运单号和物流商
func (s *OrderActionService) Fulfill(ctx context.Context, account *model.Account, order *model.Order, packages []FulfillmentPackage) error {
	if len(packages) == 0 {
		return &tiktok.InputError{Field: "packages", Message: "at least one package is required"}
	}

	selfShip := order.DeliveryOption() == DeliveryOptionSendBySeller
	for _, pkg := range packages {
		if pkg.PackageID == "" {
			return &tiktok.InputError{Field: "package_id", Message: "package id is required for all packages"}
		}
		if selfShip {
			if pkg.TrackingNumber == "" {
				return &tiktok.InputError{Field: "tracking_number", Message: "tracking number is required for all packages"}
			}
			if pkg.ShippingProviderID == "" {
				return &tiktok.InputError{Field: "shipping_provider_id", Message: "shipping provider is required for all packages"}
			}
		}
	}

	client := s.clients(account)
	for _, pkg := range packages {
		body := map[string]any{
			"package_id":   pkg.PackageID,
			"pick_up_type": pkg.PickUpType,
		}
		if pkg.PickUp != nil {
			body["pick_up"] = pkg.PickUp
		}
		if selfShip {
			body["self_shipment"] = map[string]any{
				"tracking_number":      pkg.TrackingNumber,
				"shipping_provider_id": pkg.ShippingProviderID,
			}
		}

		if _, err := client.Request(ctx, http.MethodPost, "fulfillment/rts", &tiktok.RequestOptions{JSON: body}); err != nil {
			return fmt.Errorf("fulfill package %s: %w", pkg.PackageID, err)
		}
	}

	s.sleeper.Sleep(ctx, fulfillmentSettleDelay)
	s.refresh(ctx, account, order.ExternalID)
	return nil
}

// ==================== 拆单 ====================

// Split 把订单项拆进多个包裹
// 所有校验在发远端请求之前完成：每个订单项恰好进一个包裹，且不能全进同一个
func (s *OrderActionService) Split(ctx context.Context, account *model.Account, order *model.Order, packages []SplitPackage) error {
	if len(packages) < 2 {
		return &tiktok.InputError{Field: "packages", Message: "split requires at least two packages"}
	}

	byID := make(map[int64]*model.OrderItem, len(order.Items))
	for i := range order.Items {
		byID[order.Items[i].ID] = &order.Items[i]
	}

	seen := make(map[int64]bool)
	for _, pkg := range packages {
		if len(pkg.ItemIDs) == len(order.Items) {
			return &tiktok.InputError{Field: "packages", Message: "not allowed to put all items into one parcel"}
		}
		for _, id := range pkg.ItemIDs {
			if _, ok := byID[id]; !ok {
				return &tiktok.InputError{Field: "packages", Message: "invalid item selected"}
			}
			if seen[id] {
				return &tiktok.InputError{Field: "packages", Message: "item selected more than once"}
			}
			seen[id] = true
		}
	}
	if len(seen) != len(order.Items) {
		return &tiktok.InputError{Field: "packages", Message: "make sure all items are selected"}
	}

	splitGroups := make([]map[string]any, 0, len(packages))
	for i, pkg := range packages {
		lineIDs := make([]string, 0, len(pkg.ItemIDs))
		for _, id := range pkg.ItemIDs {
			lineIDs = append(lineIDs, byID[id].ExternalID)
		}
		splitGroups = append(splitGroups, map[string]any{
			"pre_split_pkg_id":   i + 1,
			"order_line_id_list": lineIDs,
		})
	}

	client := s.clients(account)
	data, err := client.Request(ctx, http.MethodPost, "fulfillment/order_split/confirm", &tiktok.RequestOptions{
		JSON: map[string]any{
			"order_id":    order.ExternalID,
			"split_group": splitGroups,
		},
	})
	if err != nil {
		return err
	}

	var out tiktok.SplitConfirmData
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("split confirm decode: %w", err)
	}
	if len(out.FailList) > 0 {
		return &tiktok.InputError{Field: "packages", Message: out.FailList[0].FailReason}
	}

	s.refresh(ctx, account, order.ExternalID)
	return nil
}

// ==================== 面单 ====================

// BillResult 面单内容和归档地址
type BillResult struct {
	File       string `json:"file"` // base64 PDF
	ArchiveURL string `json:"archive_url,omitempty"`
}

// Bill 获取面单 PDF，返回 base64 内容
// 面单生成是异步的，doc_url 可能要等几秒才可用
func (s *OrderActionService) Bill(ctx context.Context, account *model.Account, order *model.Order) (*BillResult, error) {
	client := s.clients(account)

	var raw []byte
	err := utils.Retry(ctx, billMaxRetries, billRetryDelay, s.sleeper, func() error {
		data, err := client.Request(ctx, http.MethodGet, "logistics/shipping_document", &tiktok.RequestOptions{
			Query: map[string]string{
				"order_id":      order.ExternalID,
				"document_type": shippingDocumentType,
			},
		})
		if err != nil {
			return err
		}

		var out tiktok.ShippingDocumentData
		if err := json.Unmarshal(data, &out); err != nil {
			return fmt.Errorf("shipping document decode: %w", err)
		}
		if out.DocURL == "" {
			return fmt.Errorf("shipping document not ready")
		}

		resp, err := s.download.R().SetContext(ctx).Get(out.DocURL)
		if err != nil {
			return fmt.Errorf("download shipping document: %w", err)
		}
		if resp.StatusCode() != http.StatusOK {
			return fmt.Errorf("download shipping document: status %d", resp.StatusCode())
		}

		raw = resp.Body()
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &BillResult{File: base64.StdEncoding.EncodeToString(raw)}
	if s.storage != nil {
		url, err := s.storage.Upload(ctx, raw, order.ExternalID+".pdf", "application/pdf")
		if err != nil {
			s.logger.Warn("shipping document archive failed",
				zap.String("external_id", order.ExternalID),
				zap.Error(err))
		} else {
			// 私有桶直接访问不了，给前端的是带签名的临时链接
			if signed, serr := s.storage.GetSignedURL(ctx, url, billArchiveLinkTTL); serr == nil && signed != "" {
				url = signed
			}
			result.ArchiveURL = url
		}
	}
	return result, nil
}
