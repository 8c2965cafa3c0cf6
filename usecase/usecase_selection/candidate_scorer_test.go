package usecase_selection

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trackflow-audio/trackflow/domain/domain_selection/selection_models"
)

func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string { return &v }

func TestCandidateScorer_ScoreBounds(t *testing.T) {
	s := NewCandidateScorer()
	boosts := []selection_models.SlotBoost{
		{Field: selection_models.FieldIntensity, Mode: selection_models.BoostModeNear, Weight: 4},
		{Field: selection_models.FieldValence, Mode: selection_models.BoostModeNear, Weight: 1},
		{Field: selection_models.FieldKey, Mode: selection_models.BoostModeNear, Weight: 2},
	}
	target := &selection_models.SlotTarget{
		Intensity: floatPtr(5),
		Valence:   floatPtr(-1),
		Key:       strPtr("Cm"),
	}

	vectors := []selection_models.MetadataVector{
		{Intensity: 0, Valence: 1, Key: "G"},
		{Intensity: 5, Valence: -1, Key: "Cm"},
		{Intensity: 2.5, Valence: 0, Key: ""},
		{Intensity: 17, Valence: -9},
	}
	for _, v := range vectors {
		score := s.Score(&selection_models.Candidate{Vector: v}, target, boosts)
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
	}
}

func TestCandidateScorer_ExactMode(t *testing.T) {
	s := NewCandidateScorer()
	boosts := []selection_models.SlotBoost{
		{Field: selection_models.FieldIntensity, Mode: selection_models.BoostModeExact, Weight: 3},
	}
	target := &selection_models.SlotTarget{Intensity: floatPtr(3)}

	// 精确相等得1，任何偏差得0
	equal := s.Score(&selection_models.Candidate{Vector: selection_models.MetadataVector{Intensity: 3}}, target, boosts)
	assert.Equal(t, 1.0, equal)

	off := s.Score(&selection_models.Candidate{Vector: selection_models.MetadataVector{Intensity: 3.01}}, target, boosts)
	assert.Equal(t, 0.0, off)
}

func TestCandidateScorer_NearMode(t *testing.T) {
	s := NewCandidateScorer()
	boosts := []selection_models.SlotBoost{
		{Field: selection_models.FieldIntensity, Mode: selection_models.BoostModeNear, Weight: 4},
	}
	target := &selection_models.SlotTarget{Intensity: floatPtr(5)}

	// d = |5-4|/5 = 0.2 → 0.8
	score := s.Score(&selection_models.Candidate{Vector: selection_models.MetadataVector{Intensity: 4}}, target, boosts)
	assert.InDelta(t, 0.8, score, 1e-9)

	// 距离超过全量程时截断为0
	far := s.Score(&selection_models.Candidate{Vector: selection_models.MetadataVector{Intensity: -3}}, target, boosts)
	assert.Equal(t, 0.0, far)
}

func TestCandidateScorer_WeightedSum(t *testing.T) {
	s := NewCandidateScorer()
	boosts := []selection_models.SlotBoost{
		{Field: selection_models.FieldIntensity, Mode: selection_models.BoostModeNear, Weight: 4},
		{Field: selection_models.FieldSpeed, Mode: selection_models.BoostModeNear, Weight: 1},
	}
	target := &selection_models.SlotTarget{Intensity: floatPtr(5), Speed: floatPtr(0)}
	candidate := &selection_models.Candidate{
		Vector: selection_models.MetadataVector{Intensity: 5, Speed: 5},
	}

	// intensity满分权重4，speed零分权重1 → 4/5
	assert.InDelta(t, 0.8, s.Score(candidate, target, boosts), 1e-9)
}

func TestCandidateScorer_NeutralWhenNothingScorable(t *testing.T) {
	s := NewCandidateScorer()

	// 无加权字段同时具备目标值时退化为中性分而非未定义
	none := s.Score(&selection_models.Candidate{}, &selection_models.SlotTarget{}, nil)
	assert.Equal(t, 0.5, none)

	boosts := []selection_models.SlotBoost{
		{Field: selection_models.FieldBPM, Mode: selection_models.BoostModeNear, Weight: 5},
	}
	noTarget := s.Score(&selection_models.Candidate{}, &selection_models.SlotTarget{Intensity: floatPtr(1)}, boosts)
	assert.Equal(t, 0.5, noTarget)
}

func TestCandidateScorer_KeyDegradesToExact(t *testing.T) {
	s := NewCandidateScorer()
	// near模式对类别字段无意义，必须按精确匹配处理
	boosts := []selection_models.SlotBoost{
		{Field: selection_models.FieldKey, Mode: selection_models.BoostModeNear, Weight: 2},
	}
	target := &selection_models.SlotTarget{Key: strPtr("C#m")}

	match := s.Score(&selection_models.Candidate{Vector: selection_models.MetadataVector{Key: "c#m"}}, target, boosts)
	assert.Equal(t, 1.0, match)

	miss := s.Score(&selection_models.Candidate{Vector: selection_models.MetadataVector{Key: "G"}}, target, boosts)
	assert.Equal(t, 0.0, miss)
}

func TestCandidateScorer_UnboostedTargetIgnored(t *testing.T) {
	s := NewCandidateScorer()
	boosts := []selection_models.SlotBoost{
		{Field: selection_models.FieldIntensity, Mode: selection_models.BoostModeNear, Weight: 4},
	}
	// speed有目标但无加权，完全不参与评分
	target := &selection_models.SlotTarget{Intensity: floatPtr(3), Speed: floatPtr(0)}
	candidate := &selection_models.Candidate{
		Vector: selection_models.MetadataVector{Intensity: 3, Speed: 5},
	}
	assert.Equal(t, 1.0, s.Score(candidate, target, boosts))
}
