package library_models

import (
	"fmt"

	"github.com/trackflow-audio/trackflow/domain/domain_selection/selection_models"
)

// SidecarMetadata 音频文件伴生JSON（<name>.json）的载荷
// 由分析侧随音频文件一起投放到媒体库目录
type SidecarMetadata struct {
	ChannelID  string                 `json:"channel_id"`
	EnergyTier string                 `json:"energy_tier"`
	Title      string                 `json:"title"`
	Artist     string                 `json:"artist"`
	Album      string                 `json:"album"`
	Speed      *float64               `json:"speed"`
	Intensity  *float64               `json:"intensity"`
	Brightness *float64               `json:"brightness"`
	Complexity *float64               `json:"complexity"`
	BPM        *float64               `json:"bpm"`
	Valence    *float64               `json:"valence"`
	Arousal    *float64               `json:"arousal"`
	Key        string                 `json:"key"`
	Tags       map[string]interface{} `json:"tags"`
}

// Vector 组装元数据向量并校验各字段范围
func (m *SidecarMetadata) Vector() (selection_models.MetadataVector, error) {
	v := selection_models.MetadataVector{Key: m.Key}
	fields := []struct {
		field    selection_models.Field
		src      *float64
		dst      *float64
		min, max float64
	}{
		{selection_models.FieldSpeed, m.Speed, &v.Speed, 0, 5},
		{selection_models.FieldIntensity, m.Intensity, &v.Intensity, 0, 5},
		{selection_models.FieldBrightness, m.Brightness, &v.Brightness, 0, 5},
		{selection_models.FieldComplexity, m.Complexity, &v.Complexity, 0, 5},
		{selection_models.FieldBPM, m.BPM, &v.BPM, 0, 300},
		{selection_models.FieldValence, m.Valence, &v.Valence, -1, 1},
		{selection_models.FieldArousal, m.Arousal, &v.Arousal, 0, 1},
	}
	for _, f := range fields {
		if f.src == nil {
			continue
		}
		if *f.src < f.min || *f.src > f.max {
			return v, fmt.Errorf("元数据字段%s越界: %.2f（允许[%.0f, %.0f]）", f.field, *f.src, f.min, f.max)
		}
		*f.dst = *f.src
	}
	return v, nil
}

// Validate 入库前校验伴生元数据的必填项与取值
func (m *SidecarMetadata) Validate() error {
	if m.ChannelID == "" {
		return fmt.Errorf("伴生元数据缺少channel_id")
	}
	if _, ok := selection_models.ParseEnergyTier(m.EnergyTier); !ok {
		return fmt.Errorf("伴生元数据能量档位非法: %q", m.EnergyTier)
	}
	if _, err := m.Vector(); err != nil {
		return err
	}
	return nil
}

// IngestReport 一次目录扫描入库的汇总结果
type IngestReport struct {
	Scanned  int      `json:"scanned"`
	Ingested int      `json:"ingested"`
	Skipped  int      `json:"skipped"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}
