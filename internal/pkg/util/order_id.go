package util

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	orderIDPrefix      = "ORD"
	orderIDTimeFmt     = "20060102150405"
	orderIDSuffix      = 6
	pointOnlyKeyPrefix = "point-only-"
)

func randomHex(n int) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:n]
}

// GenerateOrderID ORD-YYYYMMDDHHMMSS-XXXXXX, 碰撞機率不為0, 由資料庫主鍵把關
func GenerateOrderID(now time.Time) string {
	return fmt.Sprintf("%s-%s-%s", orderIDPrefix, now.UTC().Format(orderIDTimeFmt), strings.ToUpper(randomHex(orderIDSuffix)))
}

/*
PointOnlyPaymentKey 純點數付款沒有閘道key, 以預購單token產生
同一張預購單重複送出會得到相同的key, 由payment key唯一限制擋下第二筆
*/
func PointOnlyPaymentKey(preOrderKey string) string {
	return pointOnlyKeyPrefix + preOrderKey[strings.LastIndex(preOrderKey, ":")+1:]
}

// OrderName 第一個商品名稱, 多項時附加其餘件數
func OrderName(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	}
	return fmt.Sprintf("%s and %d more", names[0], len(names)-1)
}
