package codec

import (
	"bytes"
	"unicode/utf8"
)

// putText は文字列を左詰めで書き込みます
// 余白はゼロのまま残るため、収まる場合はNUL終端になります
// 収まらない場合は最後の完全なコードポイントで切り詰め、truncated を返します
func putText(dst []byte, s string) (truncated bool) {
	if len(s) <= len(dst) {
		copy(dst, s)
		return false
	}

	cut := len(dst)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	copy(dst, s[:cut])
	return true
}

// getText はNULまたはフィールド末尾までを文字列として読み取ります
func getText(src []byte) string {
	if i := bytes.IndexByte(src, 0); i >= 0 {
		src = src[:i]
	}
	return string(src)
}
