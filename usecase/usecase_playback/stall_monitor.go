package usecase_playback

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/trackflow-audio/trackflow/domain/domain_playback/playback_interface"
	"github.com/trackflow-audio/trackflow/domain/domain_playback/playback_models"
)

// ReloadFunc 重载当前音源并恢复播放，由播放控制器提供
type ReloadFunc func(ctx context.Context) error

// StallMonitor 停滞监视器
// 播放开始后若位置在DetectionDelay内无前进即触发渐进恢复：
// 重新定位 → 重载音源 → 判定不可恢复（上层自动跳曲）
// 每个策略有RecoveryTimeout的解决窗口，成功恢复则重置升级层级
type StallMonitor struct {
	policy     playback_models.StallPolicy
	stallCount atomic.Int64
}

func NewStallMonitor(policy playback_models.StallPolicy) *StallMonitor {
	return &StallMonitor{policy: policy}
}

// Watch 监视一次播放直到ctx取消（正常结束/跳曲）或停滞不可恢复
// ctx取消返回nil；恢复策略耗尽返回ErrStallUnrecoverable
func (m *StallMonitor) Watch(
	ctx context.Context,
	element playback_interface.AudioElement,
	reload ReloadFunc,
) error {
	ticker := time.NewTicker(m.policy.PollInterval)
	defer ticker.Stop()

	lastPosition := element.Position()
	lastProgress := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		position := element.Position()
		if position > lastPosition {
			lastPosition = position
			lastProgress = time.Now()
			continue
		}

		if time.Since(lastProgress) < m.policy.DetectionDelay {
			continue
		}

		// 停滞确认，进入渐进恢复
		m.stallCount.Add(1)
		slog.Warn("playback: 检测到播放停滞", "position", position)

		recovered := false
		for strategy := 1; strategy <= 2 && !recovered; strategy++ {
			if ctx.Err() != nil {
				return nil
			}
			switch strategy {
			case 1:
				// 策略1：重新定位到当前位置
				slog.Info("playback: 停滞恢复-重新定位", "position", position)
				if err := element.Seek(position); err != nil {
					continue
				}
			case 2:
				// 策略2：重载同一音源
				slog.Info("playback: 停滞恢复-重载音源", "position", position)
				reloadCtx, cancel := context.WithTimeout(ctx, m.policy.RecoveryTimeout)
				err := reload(reloadCtx)
				cancel()
				if err != nil {
					continue
				}
			}
			recovered = m.waitForProgress(ctx, element, position)
		}

		if !recovered {
			// 策略3（最后手段）：放弃该轨道，由上层跳到下一首
			slog.Error("playback: 停滞恢复策略耗尽", "position", position)
			return playback_models.ErrStallUnrecoverable
		}

		lastPosition = element.Position()
		lastProgress = time.Now()
	}
}

// waitForProgress 在恢复窗口内等待位置前进
func (m *StallMonitor) waitForProgress(
	ctx context.Context,
	element playback_interface.AudioElement,
	fromPosition float64,
) bool {
	deadline := time.Now().Add(m.policy.RecoveryTimeout)
	ticker := time.NewTicker(m.policy.PollInterval)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
		if element.Position() > fromPosition {
			slog.Info("playback: 停滞已恢复", "position", element.Position())
			return true
		}
	}
	return false
}

// StallCount 累计停滞次数，供观测快照使用
func (m *StallMonitor) StallCount() int64 {
	return m.stallCount.Load()
}
