package model

import "time"

// Platform は価格を提示するECプラットフォームを表す。
type Platform string

const (
	PlatformPChome Platform = "pchome"
	PlatformShopee Platform = "shopee"
	PlatformMomo   Platform = "momo"
)

// AllPlatforms は対応プラットフォームを生成順で返す。
func AllPlatforms() []Platform {
	return []Platform{PlatformPChome, PlatformShopee, PlatformMomo}
}

// ValidPlatform は対応プラットフォームかどうかを判定する。
func ValidPlatform(p Platform) bool {
	switch p {
	case PlatformPChome, PlatformShopee, PlatformMomo:
		return true
	default:
		return false
	}
}

// Badge はオファーに付与する購入判断ラベルを表す。
type Badge string

const (
	// BadgeLowest は3オファー中の最安値を示す。
	BadgeLowest Badge = "lowest"
	// BadgeBuyable は最安値ではないが価格帯内のオファーを示す。
	BadgeBuyable Badge = "buyable"
)

// Offer は検索キーワードに対する1プラットフォーム分の価格提示を表す。
// リクエストごとに生成される一時データであり、スナップショットとして
// 保存されない限り永続化されない。
type Offer struct {
	Platform  Platform
	Title     string
	Price     int
	URL       string
	UpdatedAt time.Time
	Badge     Badge
}
