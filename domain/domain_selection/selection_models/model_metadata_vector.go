package selection_models

// Field 可评分字段的封闭枚举
// 使用枚举而非字符串键，避免配置拼写错误导致字段被静默忽略
type Field string

const (
	FieldSpeed      Field = "speed"
	FieldIntensity  Field = "intensity"
	FieldBrightness Field = "brightness"
	FieldComplexity Field = "complexity"
	FieldBPM        Field = "bpm"
	FieldValence    Field = "valence"
	FieldArousal    Field = "arousal"
	FieldKey        Field = "key" // 音乐调性，仅支持精确匹配
)

// NumericFields 所有数值型可评分字段（不含Key）
var NumericFields = []Field{
	FieldSpeed,
	FieldIntensity,
	FieldBrightness,
	FieldComplexity,
	FieldBPM,
	FieldValence,
	FieldArousal,
}

// fieldRanges 各字段的归一化范围，用于距离计算
var fieldRanges = map[Field]float64{
	FieldSpeed:      5.0,   // 0-5
	FieldIntensity:  5.0,   // 0-5
	FieldBrightness: 5.0,   // 0-5
	FieldComplexity: 5.0,   // 0-5
	FieldBPM:        200.0, // 域缩放（40-240）
	FieldValence:    2.0,   // -1..1
	FieldArousal:    1.0,   // 0..1
}

// Range 返回字段的归一化范围，未知字段返回0
func (f Field) Range() float64 {
	return fieldRanges[f]
}

// IsNumeric 判断字段是否为数值型
func (f Field) IsNumeric() bool {
	_, ok := fieldRanges[f]
	return ok
}

// ParseField 将配置中的字段名解析为枚举值
func ParseField(name string) (Field, bool) {
	switch Field(name) {
	case FieldSpeed, FieldIntensity, FieldBrightness, FieldComplexity,
		FieldBPM, FieldValence, FieldArousal, FieldKey:
		return Field(name), true
	}
	return "", false
}

// MetadataVector 音频轨道的数值描述向量
// 由目录层在查询时附加，本引擎只读不写
type MetadataVector struct {
	Speed      float64 `bson:"speed" json:"speed"`
	Intensity  float64 `bson:"intensity" json:"intensity"`
	Brightness float64 `bson:"brightness" json:"brightness"`
	Complexity float64 `bson:"complexity" json:"complexity"`
	BPM        float64 `bson:"bpm" json:"bpm"`
	Valence    float64 `bson:"valence" json:"valence"`   // -1..1
	Arousal    float64 `bson:"arousal" json:"arousal"`   // 0..1
	Key        string  `bson:"key" json:"key,omitempty"` // 音乐调性（如 "C#m"）
}

// Numeric 按字段取数值，非数值字段返回false
func (v *MetadataVector) Numeric(f Field) (float64, bool) {
	switch f {
	case FieldSpeed:
		return v.Speed, true
	case FieldIntensity:
		return v.Intensity, true
	case FieldBrightness:
		return v.Brightness, true
	case FieldComplexity:
		return v.Complexity, true
	case FieldBPM:
		return v.BPM, true
	case FieldValence:
		return v.Valence, true
	case FieldArousal:
		return v.Arousal, true
	}
	return 0, false
}
