package controller_selection

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackflow-audio/trackflow/domain/domain_selection/selection_models"
	"github.com/trackflow-audio/trackflow/usecase/usecase_selection"
)

type fakeStrategyStore struct {
	strategy *selection_models.Strategy
	loads    atomic.Int64
}

func (s *fakeStrategyStore) LoadStrategy(
	_ context.Context, _ string, _ selection_models.EnergyTier,
) (*selection_models.Strategy, error) {
	s.loads.Add(1)
	return s.strategy, nil
}

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*selection_models.PlaybackSession
}

func (s *fakeSessionStore) LoadPlaybackState(
	_ context.Context, userID, channelID string, tier selection_models.EnergyTier,
) (*selection_models.PlaybackSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[userID+"/"+channelID+"/"+string(tier)], nil
}

func (s *fakeSessionStore) SavePlaybackState(
	_ context.Context, session *selection_models.PlaybackSession,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.UserID+"/"+session.ChannelID+"/"+string(session.EnergyTier)] = session
	return nil
}

type fakeCatalog struct {
	candidates []selection_models.Candidate
}

func (c *fakeCatalog) QueryCandidates(
	_ context.Context, _ string, _ selection_models.EnergyTier, _ []selection_models.Rule,
) ([]selection_models.Candidate, error) {
	return c.candidates, nil
}

func (c *fakeCatalog) MarkPlayed(_ context.Context, _ string) error { return nil }

func floatPtr(v float64) *float64 { return &v }

func newTestRouter(t *testing.T) (*gin.Engine, *fakeStrategyStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := &fakeStrategyStore{strategy: &selection_models.Strategy{
		ChannelID:  "chill",
		EnergyTier: selection_models.EnergyTierLow,
		NumSlots:   2,
		Slots: []selection_models.SlotTarget{
			{SlotIndex: 1, Intensity: floatPtr(1.0)},
			{SlotIndex: 2, Intensity: floatPtr(5.0)},
		},
		Boosts: []selection_models.SlotBoost{
			{Field: selection_models.FieldIntensity, Mode: selection_models.BoostModeNear, Weight: 2.0},
		},
	}}
	catalog := &fakeCatalog{candidates: []selection_models.Candidate{
		{TrackID: "a", Title: "Calm", Vector: selection_models.MetadataVector{Intensity: 1.0}},
		{TrackID: "b", Title: "Loud", Vector: selection_models.MetadataVector{Intensity: 5.0}},
	}}

	cache := usecase_selection.NewStrategyCache(store, time.Second)
	selector := usecase_selection.NewSlotSelector(
		catalog,
		usecase_selection.NewRuleGroupEvaluator(),
		usecase_selection.NewCandidateScorer(),
		time.Second,
	)
	sequencer := usecase_selection.NewPlaylistSequencer(
		&fakeSessionStore{sessions: map[string]*selection_models.PlaybackSession{}},
		cache, selector, catalog, time.Second)

	ctrl := NewSequencerController(sequencer, cache)
	router := gin.New()
	router.GET("/playlist/next", ctrl.NextTrack)
	router.POST("/playlist/commit", ctrl.CommitPlayback)
	router.POST("/playlist/skip", ctrl.SkipSlot)
	router.POST("/strategy/invalidate", ctrl.InvalidateStrategy)
	return router, store
}

func doRequest(t *testing.T, router *gin.Engine, method, target string) (int, map[string]interface{}) {
	t.Helper()
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	router.ServeHTTP(recorder, req)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return recorder.Code, body
}

func TestNextTrackDoesNotAdvanceSlot(t *testing.T) {
	router, _ := newTestRouter(t)

	// 未提交前重复解析应返回同一槽位同一轨道
	for i := 0; i < 3; i++ {
		code, body := doRequest(t, router, http.MethodGet,
			"/playlist/next?user_id=u1&channel_id=chill&energy_tier=low")
		require.Equal(t, http.StatusOK, code)
		track := body["track"].(map[string]interface{})
		assert.Equal(t, "a", track["track_id"])
		assert.Equal(t, float64(0), track["slot_index"])
	}
}

func TestCommitAdvancesToNextSlot(t *testing.T) {
	router, _ := newTestRouter(t)

	code, body := doRequest(t, router, http.MethodGet,
		"/playlist/next?user_id=u1&channel_id=chill&energy_tier=low")
	require.Equal(t, http.StatusOK, code)
	track := body["track"].(map[string]interface{})
	require.Equal(t, "a", track["track_id"])

	code, _ = doRequest(t, router, http.MethodPost,
		"/playlist/commit?user_id=u1&channel_id=chill&energy_tier=low&track_id=a")
	require.Equal(t, http.StatusOK, code)

	code, body = doRequest(t, router, http.MethodGet,
		"/playlist/next?user_id=u1&channel_id=chill&energy_tier=low")
	require.Equal(t, http.StatusOK, code)
	track = body["track"].(map[string]interface{})
	assert.Equal(t, "b", track["track_id"])
	assert.Equal(t, float64(1), track["slot_index"])
}

func TestSkipAdvancesWithoutHistory(t *testing.T) {
	router, _ := newTestRouter(t)

	code, body := doRequest(t, router, http.MethodPost,
		"/playlist/skip?user_id=u1&channel_id=chill&energy_tier=low")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["slot_index"])
}

func TestNextTrackRejectsBadTier(t *testing.T) {
	router, _ := newTestRouter(t)

	code, body := doRequest(t, router, http.MethodGet,
		"/playlist/next?user_id=u1&channel_id=chill&energy_tier=extreme")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "INVALID_PARAMS", body["code"])
}

func TestInvalidateForcesStrategyReload(t *testing.T) {
	router, store := newTestRouter(t)

	doRequest(t, router, http.MethodGet,
		"/playlist/next?user_id=u1&channel_id=chill&energy_tier=low")
	doRequest(t, router, http.MethodGet,
		"/playlist/next?user_id=u1&channel_id=chill&energy_tier=low")
	assert.Equal(t, int64(1), store.loads.Load())

	code, _ := doRequest(t, router, http.MethodPost,
		"/strategy/invalidate?channel_id=chill&energy_tier=low")
	require.Equal(t, http.StatusOK, code)

	doRequest(t, router, http.MethodGet,
		"/playlist/next?user_id=u1&channel_id=chill&energy_tier=low")
	assert.Equal(t, int64(2), store.loads.Load())
}
