package utils

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// CleanupGrace はキャンセル後に処理の後始末を待つ最大時間です
var CleanupGrace = 30 * time.Second

// 指定されたタイムアウト時間内でバッチ処理を実行する
// タイムアウトを超えた場合は、コンテキストをキャンセルしてエラーを返す
// キャンセル後も CleanupGrace の間は処理の終了 (出力の破棄など) を待つ
func RunWithTimeout(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	// タイムアウト付きのコンテキストを作成
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// エラーチャネルを作成
	errChan := make(chan error, 1)

	// バッチ処理を実行
	go func() {
		errChan <- fn(ctx)
	}()

	// バッチ処理の完了またはタイムアウトを待機
	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	cause := ctx.Err()
	select {
	case <-errChan:
	case <-time.After(CleanupGrace):
		cause = errors.Join(cause, fmt.Errorf("batch process did not stop within %v", CleanupGrace))
	}
	if errors.Is(cause, context.DeadlineExceeded) {
		return fmt.Errorf("batch process timed out after %v: %w", timeout, cause)
	}
	return fmt.Errorf("batch process cancelled: %w", cause)
}
