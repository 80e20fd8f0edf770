package model

import "time"

// WatchlistItem はユーザーが追跡する(キーワード, 価格帯)の組を表す。
// (UserID, Query)の組で一意。価格帯は省略可能。
type WatchlistItem struct {
	ID        string
	UserID    string
	Query     string
	MinPrice  *int
	MaxPrice  *int
	CreatedAt time.Time
}

// PriceSnapshot はある時点のオファー価格の保存記録を表す。
// 追記専用で、1回の収集で3プラットフォーム分が同一CollectedAtで作成される。
type PriceSnapshot struct {
	ID          string
	WatchlistID string
	Platform    Platform
	Price       int
	Title       string
	URL         string
	CollectedAt time.Time
}

// PriceAlert はプラットフォームごとの目標価格アラートを表す。
// (WatchlistID, Platform)の組で一意。目標価格以下のオファーが観測されると
// LastTriggeredが更新される。アラート自体は有効なまま残る。
type PriceAlert struct {
	ID            string
	WatchlistID   string
	Platform      Platform
	TargetPrice   int
	IsActive      bool
	LastTriggered *time.Time
	CreatedAt     time.Time
}

// TriggeredAlert は発火済みアラートの読み取り用ビュー。
// 対象ウォッチリストの検索キーワードを結合して返す。
type TriggeredAlert struct {
	ID            string
	Platform      Platform
	TargetPrice   int
	LastTriggered time.Time
	Query         string
}
