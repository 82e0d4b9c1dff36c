package utils

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// NewLogger は構造化ロガーを作成します
// ローカルでは読みやすいテキスト、それ以外ではCloudWatchで扱いやすいJSONで出力します
func NewLogger(w io.Writer, level string, local bool) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	lv, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		lv = log.InfoLevel
	}
	formatter := log.JSONFormatter
	if local {
		formatter = log.TextFormatter
	}
	return log.NewWithOptions(w, log.Options{
		Level:           lv,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       formatter,
		Prefix:          "hotelgen",
	})
}
