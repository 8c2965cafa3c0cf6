package audio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/trackflow-audio/trackflow/domain/domain_playback/playback_interface"
)

// DurationResolver 按投递地址解析轨道时长（秒），未知时返回0
type DurationResolver func(ctx context.Context, locator string) float64

// ClockElement 无声播放元素：以挂钟时间模拟播放进度，
// 供无音频设备的服务端时间线驱动整个双缓冲流程
type ClockElement struct {
	mu        sync.Mutex
	locator   string
	duration  float64
	offset    float64
	startedAt time.Time
	playing   bool
	volume    float64
	released  bool
	resolve   DurationResolver
}

// NewClockElementFactory 构造无声元素工厂，resolve可为nil（时长未知）
func NewClockElementFactory(resolve DurationResolver) playback_interface.AudioElementFactory {
	return func() playback_interface.AudioElement {
		return &ClockElement{volume: 1.0, resolve: resolve}
	}
}

func (e *ClockElement) Load(ctx context.Context, locator string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.released {
		return fmt.Errorf("播放元素已释放")
	}
	e.locator = locator
	e.offset = 0
	e.playing = false
	e.duration = 0
	if e.resolve != nil {
		e.duration = e.resolve(ctx, locator)
	}
	return nil
}

func (e *ClockElement) Play(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.released {
		return fmt.Errorf("播放元素已释放")
	}
	if e.locator == "" {
		return fmt.Errorf("未装载媒体源")
	}
	if e.playing {
		return nil
	}
	e.startedAt = time.Now()
	e.playing = true
	return nil
}

func (e *ClockElement) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.playing {
		return nil
	}
	e.offset += time.Since(e.startedAt).Seconds()
	e.playing = false
	return nil
}

func (e *ClockElement) Seek(position float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.offset = position
	e.startedAt = time.Now()
	return nil
}

func (e *ClockElement) Position() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.playing {
		return e.offset
	}
	position := e.offset + time.Since(e.startedAt).Seconds()
	if e.duration > 0 && position > e.duration {
		return e.duration
	}
	return position
}

func (e *ClockElement) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.duration
}

func (e *ClockElement) SetVolume(volume float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.volume = volume
}

// Volume 当前音量，供淡入淡出观测
func (e *ClockElement) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume
}

func (e *ClockElement) Release() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.released = true
	e.playing = false
	e.locator = ""
}
