package utils

import (
	"context"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/charmbracelet/log"
)

// Span はX-Rayサブセグメントの薄いラッパーです
// 親セグメントがない場合も呼び出し側で分岐せずに使えます
type Span struct {
	seg    *xray.Segment
	closed bool
}

// BeginSubsegment はサブセグメントを開始します
func BeginSubsegment(ctx context.Context, name string) (context.Context, *Span) {
	ctx, seg := xray.BeginSubsegment(ctx, name)
	return ctx, &Span{seg: seg}
}

// Close はサブセグメントを閉じます
// 2回目以降の呼び出しは何もしません
func (s *Span) Close(err error) {
	if s.closed || s.seg == nil {
		return
	}
	s.closed = true
	s.seg.Close(err)
}

// AddMetadata はメタデータを追加します。失敗はログに残すだけです
func (s *Span) AddMetadata(key string, value any) {
	if s.seg == nil {
		return
	}
	if err := s.seg.AddMetadata(key, value); err != nil {
		log.Warn("failed to add metadata", "key", key, "err", err)
	}
}
