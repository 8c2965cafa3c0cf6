package usecase_playback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackflow-audio/trackflow/domain/domain_playback/playback_models"
)

// fakeElement 可控进度的假音频元素
type fakeElement struct {
	mu        sync.Mutex
	position  float64
	duration  float64
	advancing bool
	seeks     int
	loads     int
	released  bool
}

func (f *fakeElement) Load(_ context.Context, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	return nil
}

func (f *fakeElement) Play(_ context.Context) error { return nil }
func (f *fakeElement) Pause() error                 { return nil }

func (f *fakeElement) Seek(position float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seeks++
	f.position = position
	return nil
}

func (f *fakeElement) Position() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.advancing {
		f.position += 0.1
	}
	return f.position
}

func (f *fakeElement) Duration() float64 { return f.duration }
func (f *fakeElement) SetVolume(float64) {}
func (f *fakeElement) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = true
}

func (f *fakeElement) setAdvancing(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.advancing = on
}

func testStallPolicy() playback_models.StallPolicy {
	return playback_models.StallPolicy{
		DetectionDelay:  40 * time.Millisecond,
		RecoveryTimeout: 30 * time.Millisecond,
		PollInterval:    5 * time.Millisecond,
	}
}

func TestStallMonitor_NoStallWhileProgressing(t *testing.T) {
	m := NewStallMonitor(testStallPolicy())
	element := &fakeElement{advancing: true}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()

	err := m.Watch(ctx, element, func(context.Context) error { return nil })
	assert.NoError(t, err)
	assert.Equal(t, int64(0), m.StallCount())
}

func TestStallMonitor_SeekRecoveryResumes(t *testing.T) {
	m := NewStallMonitor(testStallPolicy())
	element := &fakeElement{}

	// 策略1（重新定位）后恢复前进
	reload := func(context.Context) error { return nil }
	go func() {
		time.Sleep(60 * time.Millisecond)
		element.setAdvancing(true)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 400*time.Millisecond)
	defer cancel()

	err := m.Watch(ctx, element, reload)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), m.StallCount())
	element.mu.Lock()
	assert.GreaterOrEqual(t, element.seeks, 1)
	element.mu.Unlock()
}

func TestStallMonitor_UnrecoverableAfterAllStrategies(t *testing.T) {
	m := NewStallMonitor(testStallPolicy())
	element := &fakeElement{} // 永不前进

	reloads := 0
	reload := func(context.Context) error {
		reloads++
		return nil
	}

	err := m.Watch(context.Background(), element, reload)
	require.ErrorIs(t, err, playback_models.ErrStallUnrecoverable)
	assert.Equal(t, 1, reloads)
	assert.Equal(t, int64(1), m.StallCount())
}

func TestStallMonitor_ReloadFailureEscalates(t *testing.T) {
	m := NewStallMonitor(testStallPolicy())
	element := &fakeElement{}

	err := m.Watch(context.Background(), element, func(context.Context) error {
		return errors.New("reload failed")
	})
	// 重载失败直接升级到不可恢复
	require.ErrorIs(t, err, playback_models.ErrStallUnrecoverable)
}

func TestStallMonitor_CancelledContextReturnsNil(t *testing.T) {
	m := NewStallMonitor(testStallPolicy())
	element := &fakeElement{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, m.Watch(ctx, element, func(context.Context) error { return nil }))
}
