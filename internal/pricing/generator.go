// Package pricing は検索キーワードから各プラットフォームの価格オファーを生成する。
// 同一入力に対して常に同一の価格を返す決定的な生成器であり、
// スナップショットの再現性とテスト容易性を保証する。
package pricing

import (
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/hitoshi/pricepulse/internal/model"
)

const (
	// DefaultMinPrice は価格下限が未指定の場合のデフォルト値。
	DefaultMinPrice = 200
	// DefaultMaxPrice は価格上限が未指定の場合のデフォルト値。
	DefaultMaxPrice = 9000
)

// platformSpec はプラットフォームごとの固定パラメータ。
// offsetは基準価格への加算値、titleFmt/urlFmtは表示用テンプレート。
type platformSpec struct {
	platform model.Platform
	offset   int
	titleFmt string
	urlFmt   string
}

// 生成順もこの並びに従う（pchome → shopee → momo）。
var platformSpecs = []platformSpec{
	{model.PlatformPChome, 0, "%s｜PChome（搜尋頁）", "https://24h.pchome.com.tw/search/?q=%s"},
	{model.PlatformShopee, 120, "%s｜蝦皮（搜尋頁）", "https://shopee.tw/search?keyword=%s"},
	{model.PlatformMomo, 240, "%s｜momo（搜尋頁）", "https://www.momoshop.com.tw/search/searchShop.jsp?keyword=%s"},
}

// Option はGenerateの挙動を変更するオプション。
type Option func(*genOptions)

type genOptions struct {
	jitterEnabled bool
	jitterSeed    int64
	now           func() time.Time
}

// WithJitter は価格に±5%の擬似ランダムな揺らぎを加える。
// 揺らぎは呼び出し側が与えるseedから決定的に導出されるため、
// 同一seedであれば結果も同一になる。デフォルトでは無効。
func WithJitter(seed int64) Option {
	return func(o *genOptions) {
		o.jitterEnabled = true
		o.jitterSeed = seed
	}
}

// WithNow はUpdatedAtに使用する時刻取得関数を差し替える。テスト用。
func WithNow(now func() time.Time) Option {
	return func(o *genOptions) {
		o.now = now
	}
}

// Generate はキーワードと価格帯から3プラットフォーム分のオファーを生成する。
// minPrice/maxPriceがnilの場合はデフォルト値(200/9000)を使用し、
// 逆転している場合(min > max)は入れ替えてから使用する。
// 3オファー中の最安値にはBadgeLowest、それ以外にはBadgeBuyableを付与する。
// 価格同値の場合は複数オファーがBadgeLowestを持ちうる。
func Generate(query string, minPrice, maxPrice *int, opts ...Option) []model.Offer {
	o := genOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	lo0 := DefaultMinPrice
	if minPrice != nil {
		lo0 = *minPrice
	}
	hi0 := DefaultMaxPrice
	if maxPrice != nil {
		hi0 = *maxPrice
	}

	lo := min(lo0, hi0)
	hi := max(lo0, hi0)
	// 境界が一致・逆転しても0除算にならないよう幅を最低1に保つ
	rng := max(1, hi-lo+1)

	seed := hashQuery(strings.ToLower(strings.TrimSpace(query)))
	base := lo + int(seed%uint32(rng))

	now := o.now()
	offers := make([]model.Offer, 0, len(platformSpecs))
	for i, spec := range platformSpecs {
		price := base + spec.offset
		if o.jitterEnabled {
			price += jitter(o.jitterSeed, seed, i+1, base)
		}
		offers = append(offers, model.Offer{
			Platform:  spec.platform,
			Title:     fmt.Sprintf(spec.titleFmt, query),
			Price:     clamp(price, lo, hi),
			URL:       fmt.Sprintf(spec.urlFmt, url.QueryEscape(query)),
			UpdatedAt: now,
		})
	}

	lowest := offers[0].Price
	for _, of := range offers[1:] {
		if of.Price < lowest {
			lowest = of.Price
		}
	}
	for i := range offers {
		if offers[i].Price == lowest {
			offers[i].Badge = model.BadgeLowest
		} else {
			offers[i].Badge = model.BadgeBuyable
		}
	}

	return offers
}

// hashQuery はキーワードを32bit非負整数のシードに畳み込む。
// DJB2系の乗算ハッシュ(h = h*33 XOR c)をUTF-16コード単位ごとに適用する。
// 32bit符号付きで乗算をラップさせてから最終的に符号なしへ変換する。
func hashQuery(q string) uint32 {
	h := int32(5381)
	for _, cu := range utf16.Encode([]rune(q)) {
		h = h*33 ^ int32(cu)
	}
	return uint32(h)
}

// jitter は基準価格の±5%以内の決定的な揺らぎを返す。
// sin系の擬似乱数をシードから導出するため、同一シードなら同一値になる。
func jitter(callerSeed int64, querySeed uint32, platformIdx, base int) int {
	r := seededRandom(float64(querySeed) + float64(callerSeed) + float64(platformIdx))
	return int(math.Round((r - 0.5) * 0.1 * float64(base)))
}

// seededRandom はシードから[0,1)の擬似乱数を導出する。
func seededRandom(seed float64) float64 {
	x := math.Sin(seed) * 10000
	return x - math.Floor(x)
}

// clamp はnを[lo, hi]に収める。
func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
