// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, watchlist, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeInvalidQuery       = "INVALID_QUERY"
	ErrCodeInvalidPriceRange  = "INVALID_PRICE_RANGE"
	ErrCodeInvalidEmail       = "INVALID_EMAIL"
	ErrCodeInvalidPassword    = "INVALID_PASSWORD"
	ErrCodeEmailTaken         = "EMAIL_TAKEN"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeInvalidPlatform    = "INVALID_PLATFORM"
	ErrCodeInvalidHistoryDays = "INVALID_HISTORY_DAYS"
	ErrCodeWatchlistNotFound  = "WATCHLIST_NOT_FOUND"
	ErrCodeAlertNotFound      = "ALERT_NOT_FOUND"
)

// NewInvalidQueryError は検索キーワードが不正な場合のエラーを生成する。
func NewInvalidQueryError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidQuery,
		Message:  fmt.Sprintf("無効な検索キーワードです: %s", reason),
		Category: "validation",
		Action:   "キーワードは1〜200文字で指定してください。",
	}
}

// NewInvalidPriceRangeError は価格が許容範囲外の場合のエラーを生成する。
func NewInvalidPriceRangeError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPriceRange,
		Message:  "価格は0〜999999の範囲で指定してください。",
		Category: "validation",
		Action:   "minPrice/maxPriceの値を確認してください。",
	}
}

// NewInvalidEmailError はメールアドレス形式が不正な場合のエラーを生成する。
func NewInvalidEmailError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidEmail,
		Message:  "メールアドレスの形式が正しくありません。",
		Category: "validation",
		Action:   "正しいメールアドレスを入力してください。",
	}
}

// NewInvalidPasswordError はパスワード長が規定外の場合のエラーを生成する。
func NewInvalidPasswordError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPassword,
		Message:  "パスワードは6〜128文字で指定してください。",
		Category: "validation",
		Action:   "パスワードの長さを確認してください。",
	}
}

// NewEmailTakenError はメールアドレスが登録済みの場合のエラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "auth",
		Action:   "別のメールアドレスを使用するか、ログインしてください。",
	}
}

// NewInvalidCredentialsError は認証失敗エラーを生成する。
// アカウント列挙を防ぐため、ユーザー不存在とパスワード不一致で
// 同一のメッセージを返す。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewInvalidPlatformError は未対応プラットフォーム指定エラーを生成する。
func NewInvalidPlatformError(platform string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPlatform,
		Message:  fmt.Sprintf("未対応のプラットフォームです: %s", platform),
		Category: "validation",
		Action:   "platformには pchome、shopee、momo のいずれかを指定してください。",
	}
}

// NewInvalidHistoryDaysError は履歴取得日数が規定外の場合のエラーを生成する。
func NewInvalidHistoryDaysError(days int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidHistoryDays,
		Message:  fmt.Sprintf("無効な履歴日数です: %d", days),
		Category: "validation",
		Action:   "daysは1〜90の範囲で指定してください。",
	}
}

// NewWatchlistNotFoundError はウォッチリスト未検出エラーを生成する。
// 他ユーザーの所有物へのアクセスも存在自体を明かさずこのエラーで返す。
func NewWatchlistNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeWatchlistNotFound,
		Message:  fmt.Sprintf("指定されたウォッチリストが見つかりません: %s", id),
		Category: "watchlist",
		Action:   "ウォッチリストIDを確認してください。",
	}
}

// NewAlertNotFoundError はアラート未検出エラーを生成する。
func NewAlertNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeAlertNotFound,
		Message:  fmt.Sprintf("指定されたアラートが見つかりません: %s", id),
		Category: "watchlist",
		Action:   "アラートIDを確認してください。",
	}
}
