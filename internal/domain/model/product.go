package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	CategoryID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"category_id"`
	Name          string          `gorm:"type:varchar(255);not null" json:"name"`
	Description   string          `gorm:"type:text" json:"description"`
	Details       string          `gorm:"type:text" json:"details"`
	ArticleNumber string          `gorm:"type:varchar(64)" json:"article_number"`
	Price         decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	Image         string          `gorm:"type:text" json:"image"`
	ImageKey      string          `gorm:"type:text" json:"-"`
	InStock       bool            `gorm:"not null;default:true" json:"in_stock"`
	CreatedAt     time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt  `gorm:"index" json:"-"`
}
