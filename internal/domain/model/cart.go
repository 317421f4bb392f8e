package model

// CartItem 同一個 (商品, 顏色, 尺寸) 組合可能分散在多筆資料
type CartItem struct {
	ID        uint  `gorm:"primaryKey" json:"id"`
	UserID    int64 `gorm:"not null;index" json:"user_id"`
	ProductID uint  `gorm:"not null" json:"product_id"`
	ColorID   *uint `json:"color_id,omitempty"`
	SizeID    *uint `json:"size_id,omitempty"`
	Quantity  int   `gorm:"not null;default:1" json:"quantity"`
	BaseModel
}

// OptionKey 購物車與訂單品項比對用的組合鍵
type OptionKey struct {
	ProductID uint
	ColorID   uint
	SizeID    uint
	HasColor  bool
	HasSize   bool
}

func NewOptionKey(productID uint, colorID, sizeID *uint) OptionKey {
	k := OptionKey{ProductID: productID}
	if colorID != nil {
		k.ColorID, k.HasColor = *colorID, true
	}
	if sizeID != nil {
		k.SizeID, k.HasSize = *sizeID, true
	}
	return k
}

func (c *CartItem) Key() OptionKey {
	return NewOptionKey(c.ProductID, c.ColorID, c.SizeID)
}
