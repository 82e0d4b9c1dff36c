package config

import (
	"fmt"
	"strings"
)

// ValidationError は生成パラメータの検証エラーです
// 検出したすべての問題をまとめて保持し、生成開始前に処理を中断させます
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid generation parameters: %s", strings.Join(e.Problems, "; "))
}

func (e *ValidationError) addf(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

func (e *ValidationError) orNil() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}
