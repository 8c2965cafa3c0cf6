package playback_models

import (
	"errors"
	"fmt"
)

// ErrorKind 投递/播放错误分类
type ErrorKind int

const (
	ErrKindUnknown ErrorKind = iota
	ErrKindNetwork           // 网络故障，可重试
	ErrKindTimeout           // 超时，可重试
	ErrKindDecode            // 媒体格式损坏或不支持，不可重试
	ErrKindAuth              // 源站拒绝凭证，不可重试
	ErrKindCors              // 源站跨域配置错误，不可重试
	ErrKindCircuitOpen       // 熔断器打开，本次尝试直接短路
	ErrKindStall             // 播放停滞且全部恢复策略耗尽
)

func (k ErrorKind) String() string {
	switch k {
	case ErrKindNetwork:
		return "network"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindDecode:
		return "decode"
	case ErrKindAuth:
		return "auth"
	case ErrKindCors:
		return "cors"
	case ErrKindCircuitOpen:
		return "circuit_open"
	case ErrKindStall:
		return "stall_unrecoverable"
	}
	return "unknown"
}

// Retriable 该类错误是否消耗重试配额
// 未知错误按可重试处理，避免偶发故障直接导致跳曲
func (k ErrorKind) Retriable() bool {
	switch k {
	case ErrKindNetwork, ErrKindTimeout, ErrKindUnknown:
		return true
	}
	return false
}

// DeliveryError 携带分类的投递错误
type DeliveryError struct {
	Kind    ErrorKind
	TrackID string
	Err     error
}

func (e *DeliveryError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("轨道[%s]投递失败: %s", e.TrackID, e.Kind)
	}
	return fmt.Sprintf("轨道[%s]投递失败[%s]: %v", e.TrackID, e.Kind, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// NewDeliveryError 构造分类投递错误
func NewDeliveryError(kind ErrorKind, trackID string, err error) *DeliveryError {
	return &DeliveryError{Kind: kind, TrackID: trackID, Err: err}
}

// ErrCircuitOpen 熔断器打开期间所有投递尝试立即短路，不产生网络调用
var ErrCircuitOpen = errors.New("熔断器已打开，投递被短路")

// ErrStallUnrecoverable 停滞恢复策略全部耗尽，触发自动跳曲
var ErrStallUnrecoverable = errors.New("播放停滞且恢复策略已耗尽")

// KindOf 提取错误分类：优先取DeliveryError标注，其次识别哨兵错误
func KindOf(err error) ErrorKind {
	if err == nil {
		return ErrKindUnknown
	}
	var de *DeliveryError
	if errors.As(err, &de) {
		return de.Kind
	}
	if errors.Is(err, ErrCircuitOpen) {
		return ErrKindCircuitOpen
	}
	if errors.Is(err, ErrStallUnrecoverable) {
		return ErrKindStall
	}
	return ErrKindUnknown
}
