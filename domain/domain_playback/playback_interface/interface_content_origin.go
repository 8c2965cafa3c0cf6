package playback_interface

import (
	"context"
	"io"
)

// StreamHandle 已建立的媒体流句柄
type StreamHandle interface {
	io.ReadCloser

	// ContentType 源站报告的媒体类型，可能为空
	ContentType() string
}

// ContentOrigin 内容源站接口：轨道ID到可播放流的解析与投递
// 投递失败必须返回已分类的DeliveryError以便重试控制器裁决
type ContentOrigin interface {
	ResolveURL(ctx context.Context, trackID string) (string, error)
	Deliver(ctx context.Context, locator string) (StreamHandle, error)

	// OriginKey 熔断器按源站而非按轨道维护，此键标识源站实例
	OriginKey() string
}
