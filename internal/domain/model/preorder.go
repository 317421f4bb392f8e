package model

import (
	"time"
)

// PreOrderSnapshotVersion 快取格式版本, 格式變動時遞增
const PreOrderSnapshotVersion = 1

// OrderLine 驗證後的品項, 價格由伺服器計算
type OrderLine struct {
	ProductID   uint   `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
	Subtotal    int64  `json:"subtotal"`
	ColorID     *uint  `json:"color_id,omitempty"`
	SizeID      *uint  `json:"size_id,omitempty"`
}

func (l OrderLine) Key() OptionKey {
	return NewOptionKey(l.ProductID, l.ColorID, l.SizeID)
}

type PreOrderSnapshot struct {
	Version   int         `json:"version"`
	UserID    int64       `json:"user_id"`
	Items     []OrderLine `json:"items"`
	Amount    int64       `json:"amount"`
	UsedPoint *int64      `json:"used_point,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// Points 尚未指定點數時為0
func (s *PreOrderSnapshot) Points() int64 {
	if s.UsedPoint == nil {
		return 0
	}
	return *s.UsedPoint
}

func (s *PreOrderSnapshot) OwnedBy(userID int64) bool {
	return s.UserID == userID
}
