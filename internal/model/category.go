package model

import (
	"time"

	"gorm.io/datatypes"
)

// ==================== 类目属性类型 ====================

const (
	AttributeTypeText         = "text"
	AttributeTypeSingleSelect = "single_select"
	AttributeTypeMultiSelect  = "multi_select"
)

// IntegrationCategory 平台类目树节点
type IntegrationCategory struct {
	ID               int64  `gorm:"primaryKey;autoIncrement"`
	IntegrationID    int64  `gorm:"uniqueIndex:uk_categories_integration_external;not null"`
	ExternalID       string `gorm:"uniqueIndex:uk_categories_integration_external;size:64;not null"`
	ParentExternalID string `gorm:"size:64;index"`
	Name             string `gorm:"size:255"`
	Breadcrumb       string `gorm:"size:1024"` // 如 "Home > Kitchen > Knives"
	IsLeaf           bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CategoryAttribute 类目属性定义
// Type 决定创建商品时属性值的编码方式：
// text 用 value_name，single/multi select 用 value_id
type CategoryAttribute struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	CategoryID int64  `gorm:"uniqueIndex:uk_attrs_category_external;not null"`
	ExternalID string `gorm:"uniqueIndex:uk_attrs_category_external;size:64;not null"`

	Label    string `gorm:"size:255"`
	Type     string `gorm:"size:32"` // text / single_select / multi_select
	Required bool

	// 候选值 [{id,name}]，text 类型为空
	Options datatypes.JSON

	// 是否销售属性
	IsSaleProp bool

	CreatedAt time.Time
	UpdatedAt time.Time
}
