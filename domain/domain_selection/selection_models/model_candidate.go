package selection_models

// Candidate 参与选曲的候选轨道
// TrackID为目录文档ID的十六进制形式，字典序稳定，用于确定性平局裁决
type Candidate struct {
	TrackID string                 `bson:"track_id" json:"track_id"`
	Title   string                 `bson:"title" json:"title"`
	Artist  string                 `bson:"artist" json:"artist"`
	Vector  MetadataVector         `bson:"vector" json:"vector"`
	Tags    map[string]interface{} `bson:"tags" json:"tags"` // genre/artist/duration等规则字段
}

// FieldValue 按规则字段名取值：优先数值向量字段，其次目录标签
// 第二返回值表示字段是否存在且非空
func (c *Candidate) FieldValue(field string) (interface{}, bool) {
	if f, ok := ParseField(field); ok {
		if f == FieldKey {
			if c.Vector.Key == "" {
				return nil, false
			}
			return c.Vector.Key, true
		}
		if v, ok := c.Vector.Numeric(f); ok {
			return v, true
		}
	}
	v, ok := c.Tags[field]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}
