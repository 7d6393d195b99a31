package service

import (
	"testing"

	"gorm.io/datatypes"

	"tiktok_shop_v1/internal/model"
)

// ==================== 属性编码 ====================

func TestBuildAttributePayload(t *testing.T) {
	attrs := []model.CategoryAttribute{
		{ExternalID: "a-text", Type: model.AttributeTypeText},
		{
			ExternalID: "a-single",
			Type:       model.AttributeTypeSingleSelect,
			Options:    datatypes.JSON(`[{"id":"v1","name":"Red"},{"id":"v2","name":"Blue"}]`),
		},
		{
			ExternalID: "a-multi",
			Type:       model.AttributeTypeMultiSelect,
			Options:    datatypes.JSON(`[{"id":"m1","name":"Cotton"},{"id":"m2","name":"Wool"}]`),
		},
		{ExternalID: "a-unset", Type: model.AttributeTypeText},
	}

	values := map[string]interface{}{
		"a-text":   "Ceramic",
		"a-single": "Blue",
		"a-multi": []interface{}{
			map[string]interface{}{"id": "m1", "name": "Cotton"},
			map[string]interface{}{"id": "m2", "name": "Wool"},
		},
	}

	payload := BuildAttributePayload(attrs, values)
	if len(payload) != 3 {
		t.Fatalf("属性数 = %d, want 3", len(payload))
	}

	if payload[0].AttributeID != "a-text" {
		t.Errorf("第一个属性 = %s", payload[0].AttributeID)
	}
	if len(payload[0].AttributeValues) != 1 || payload[0].AttributeValues[0].ValueName != "Ceramic" {
		t.Errorf("text 属性编码错误: %+v", payload[0].AttributeValues)
	}

	// 单选存的是名称，编码时换回候选值 id
	if len(payload[1].AttributeValues) != 1 || payload[1].AttributeValues[0].ValueID != "v2" {
		t.Errorf("single_select 属性编码错误: %+v", payload[1].AttributeValues)
	}

	if len(payload[2].AttributeValues) != 2 ||
		payload[2].AttributeValues[0].ValueID != "m1" ||
		payload[2].AttributeValues[1].ValueID != "m2" {
		t.Errorf("multi_select 属性编码错误: %+v", payload[2].AttributeValues)
	}
}

func TestBuildAttributePayload_SkipsUnusable(t *testing.T) {
	attrs := []model.CategoryAttribute{
		{ExternalID: "a-empty", Type: model.AttributeTypeText},
		{
			ExternalID: "a-unknown-option",
			Type:       model.AttributeTypeSingleSelect,
			Options:    datatypes.JSON(`[{"id":"v1","name":"Red"}]`),
		},
		{
			ExternalID: "a-bad-options",
			Type:       model.AttributeTypeSingleSelect,
			Options:    datatypes.JSON(`not json`),
		},
	}

	values := map[string]interface{}{
		"a-empty":          "",
		"a-unknown-option": "Green",
		"a-bad-options":    "Red",
	}

	if payload := BuildAttributePayload(attrs, values); len(payload) != 0 {
		t.Errorf("无法编码的属性应被跳过: %+v", payload)
	}
}

func TestLookupOptionID(t *testing.T) {
	options := []byte(`[{"id":"v1","name":"Red"},{"id":"v2","name":"Blue"}]`)

	if got := lookupOptionID(options, "Blue"); got != "v2" {
		t.Errorf("lookupOptionID(Blue) = %q, want v2", got)
	}
	if got := lookupOptionID(options, "Green"); got != "" {
		t.Errorf("未知候选值应返回空串, got %q", got)
	}
}

// ==================== 图片地址解析 ====================

func TestProductImageURLs(t *testing.T) {
	images := []byte(`[{"url":"https://cdn.example.com/a.jpg","position":0},{"url":"","position":1},{"url":"https://cdn.example.com/b.jpg","position":2}]`)

	urls := productImageURLs(images)
	if len(urls) != 2 || urls[0] != "https://cdn.example.com/a.jpg" || urls[1] != "https://cdn.example.com/b.jpg" {
		t.Errorf("图片地址解析错误: %v", urls)
	}

	if got := productImageURLs(nil); got != nil {
		t.Errorf("空输入应返回 nil, got %v", got)
	}
}
