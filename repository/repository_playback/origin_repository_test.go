package repository_playback

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackflow-audio/trackflow/domain/domain_playback/playback_interface"
	"github.com/trackflow-audio/trackflow/domain/domain_playback/playback_models"
)

// mp3Payload 带ID3魔数的响应体，通过格式嗅探
var mp3Payload = append([]byte("ID3\x03\x00\x00\x00\x00\x00\x00"), make([]byte, 400)...)

func newOriginFor(serverURL string) playback_interface.ContentOrigin {
	return NewHTTPOrigin(nil, "channel_catalog_track", serverURL, "secret", nil)
}

func TestDeliverStreamsSniffedAudio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write(mp3Payload)
	}))
	defer server.Close()

	origin := newOriginFor(server.URL)
	stream, err := origin.Deliver(context.Background(), server.URL+"/a.mp3")
	require.NoError(t, err)
	defer func() { _ = stream.Close() }()

	assert.Equal(t, "audio/mpeg", stream.ContentType())

	// 嗅探消费的前缀必须原样回放
	body, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, mp3Payload, body)
}

func TestDeliverClassifiesAuthRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	origin := newOriginFor(server.URL)
	_, err := origin.Deliver(context.Background(), server.URL+"/a.mp3")
	require.Error(t, err)
	assert.Equal(t, playback_models.ErrKindAuth, playback_models.KindOf(err))
	assert.False(t, playback_models.KindOf(err).Retriable())
}

func TestDeliverClassifiesMissingCorsHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write(mp3Payload)
	}))
	defer server.Close()

	origin := newOriginFor(server.URL)
	_, err := origin.Deliver(context.Background(), server.URL+"/a.mp3")
	require.Error(t, err)
	assert.Equal(t, playback_models.ErrKindCors, playback_models.KindOf(err))
}

func TestDeliverClassifiesServerFailureAsNetwork(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	origin := newOriginFor(server.URL)
	_, err := origin.Deliver(context.Background(), server.URL+"/a.mp3")
	require.Error(t, err)
	assert.Equal(t, playback_models.ErrKindNetwork, playback_models.KindOf(err))
	assert.True(t, playback_models.KindOf(err).Retriable())
}

func TestDeliverClassifiesNonAudioBodyAsDecode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		_, _ = w.Write([]byte("<html>not audio</html>"))
	}))
	defer server.Close()

	origin := newOriginFor(server.URL)
	_, err := origin.Deliver(context.Background(), server.URL+"/a.mp3")
	require.Error(t, err)
	assert.Equal(t, playback_models.ErrKindDecode, playback_models.KindOf(err))
	assert.False(t, playback_models.KindOf(err).Retriable())
}

func TestDeliverClassifiesConnectionRefusedAsNetwork(t *testing.T) {
	origin := newOriginFor("http://127.0.0.1:1")
	_, err := origin.Deliver(context.Background(), "http://127.0.0.1:1/a.mp3")
	require.Error(t, err)
	assert.Equal(t, playback_models.ErrKindNetwork, playback_models.KindOf(err))
}

func TestOriginKeyIsHost(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	origin := newOriginFor(server.URL)
	parsed, err := url.Parse(server.URL)
	require.NoError(t, err)
	assert.Equal(t, parsed.Host, origin.OriginKey())
}
