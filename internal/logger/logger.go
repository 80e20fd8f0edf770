package logger

import (
	"io"
	"log/slog"
	"os"
)

// Setup はJSON一行形式のslog.Loggerを生成して返す。
// APIサーバーとスナップショット収集ワーカーの両方で同じ形式を使う。
// wがnilの場合はos.Stdoutに出力する。
func Setup(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return slog.New(handler)
}

// SetupDefault はSetupで生成したロガーをプロセス全体の既定ロガーにする。
// ミドルウェア等がslog.Warn/slog.Errorを直接呼ぶため、起動時に一度呼んでおくこと。
func SetupDefault(w io.Writer) {
	slog.SetDefault(Setup(w))
}
