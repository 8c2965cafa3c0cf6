package playback_interface

import "context"

// AudioElement 单个播放槽的底层音频元素
// 由上层播放环境实现（测试中为假实现），双缓冲控制器持有两个实例交替使用
type AudioElement interface {
	// Load 装载媒体源但不开始播放（预取）
	Load(ctx context.Context, locator string) error

	Play(ctx context.Context) error
	Pause() error

	// Seek 跳转到指定位置（秒）
	Seek(position float64) error

	// Position 当前播放位置（秒），停滞监视器以此判断前进进度
	Position() float64

	// Duration 轨道总时长（秒），未知时返回0
	Duration() float64

	// SetVolume 音量[0,1]，交叉淡入淡出通过音量斜坡实现
	SetVolume(volume float64)

	// Release 释放资源，释放后元素不可复用
	Release()
}

// AudioElementFactory 创建播放元素，换轨后旧元素释放并新建
type AudioElementFactory func() AudioElement
