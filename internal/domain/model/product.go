package model

import (
	"github.com/shopspring/decimal"
)

type Color struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"type:varchar(50);not null" json:"name"`
	SoftDeleteModel
}

type Size struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"type:varchar(50);not null" json:"name"`
	SoftDeleteModel
}

// Product 商品目錄, SalePrice 為折扣金額而非折後價格
type Product struct {
	ID        uint                `gorm:"primaryKey" json:"id"`
	Name      string              `gorm:"type:varchar(200);not null" json:"name"`
	Price     decimal.Decimal     `gorm:"type:decimal(10,2);not null" json:"price"`
	SalePrice decimal.NullDecimal `gorm:"type:decimal(10,2)" json:"sale_price"`
	Stock     int                 `gorm:"not null;default:0" json:"stock"`
	Colors    []Color             `gorm:"many2many:product_colors;" json:"colors,omitempty"`
	Sizes     []Size              `gorm:"many2many:product_sizes;" json:"sizes,omitempty"`
	SoftDeleteModel
}

// UnitPrice 售價 = 原價 - 折扣, 不會小於0, 以整數貨幣單位回傳(捨去小數)
func (p *Product) UnitPrice() int64 {
	price := p.Price
	if p.SalePrice.Valid {
		price = price.Sub(p.SalePrice.Decimal)
	}
	if price.IsNegative() {
		return 0
	}
	return price.IntPart()
}

func (p *Product) HasColor(colorID uint) bool {
	for _, c := range p.Colors {
		if c.ID == colorID {
			return true
		}
	}
	return false
}

func (p *Product) HasSize(sizeID uint) bool {
	for _, s := range p.Sizes {
		if s.ID == sizeID {
			return true
		}
	}
	return false
}
