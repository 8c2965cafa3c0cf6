package usecase_playback

import (
	"context"
	"errors"
	"strings"

	"github.com/trackflow-audio/trackflow/domain/domain_playback/playback_models"
)

// ErrorClassifier 将未标注的传输层错误归入投递错误分类
// 已携带DeliveryError标注的错误直接取其分类；
// 其余依赖错误文本关键词启发式识别
type ErrorClassifier struct{}

func NewErrorClassifier() *ErrorClassifier {
	return &ErrorClassifier{}
}

// Classify 判定错误分类，无法识别时返回ErrKindUnknown（按可重试处理）
func (c *ErrorClassifier) Classify(err error) playback_models.ErrorKind {
	if err == nil {
		return playback_models.ErrKindUnknown
	}

	if kind := playback_models.KindOf(err); kind != playback_models.ErrKindUnknown {
		return kind
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return playback_models.ErrKindTimeout
	}

	msg := strings.ToLower(err.Error())

	// 优先级：先判最具体的分类
	if containsAny(msg, authKeywords) {
		return playback_models.ErrKindAuth
	}
	if containsAny(msg, corsKeywords) {
		return playback_models.ErrKindCors
	}
	if containsAny(msg, decodeKeywords) {
		return playback_models.ErrKindDecode
	}
	if containsAny(msg, timeoutKeywords) {
		return playback_models.ErrKindTimeout
	}
	if containsAny(msg, networkKeywords) {
		return playback_models.ErrKindNetwork
	}
	return playback_models.ErrKindUnknown
}

var authKeywords = []string{
	"unauthorized",
	"401",
	"403",
	"forbidden",
	"credential",
	"authentication",
}

var corsKeywords = []string{
	"cors",
	"cross-origin",
	"access-control-allow",
}

var decodeKeywords = []string{
	"decode",
	"codec",
	"malformed",
	"unsupported media",
	"unsupported format",
	"invalid format",
	"demux",
}

var timeoutKeywords = []string{
	"timeout",
	"timed out",
	"deadline exceeded",
}

var networkKeywords = []string{
	"connection refused",
	"connection reset",
	"connection closed",
	"no such host",
	"dns",
	"network",
	"unreachable",
	"broken pipe",
	"unexpected eof",
}

func containsAny(msg string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}
