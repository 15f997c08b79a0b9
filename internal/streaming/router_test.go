package streaming

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vodarr/vodarr/internal/config"
	"github.com/vodarr/vodarr/internal/models"
)

type routerFixture struct {
	router   *Router
	launcher *fakeLauncher
	file     *models.MediaFile
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	launcher := &fakeLauncher{}
	hls := NewHLSManager(launcher, t.TempDir(), testStreamingConfig(), config.DefaultPresets()["720p"], testLogger())
	t.Cleanup(hls.StopAll)

	classifier := NewClassifier(&fakeProber{}, nil, testLogger())
	router := NewRouter(classifier, hls, testLogger())

	file := &models.MediaFile{
		Path:       writeSourceFile(t, 2048),
		Container:  "mp4",
		VideoCodec: "h264",
		VideoLevel: 40,
		AudioCodec: "aac",
	}
	file.ID = models.NewULID()
	return &routerFixture{router: router, launcher: launcher, file: file}
}

func TestRouter_ExplicitDirectPlay(t *testing.T) {
	fx := newRouterFixture(t)

	plan, err := fx.router.Route(context.Background(), fx.file, "DIRECT_PLAY", "")
	require.NoError(t, err)
	assert.Equal(t, StrategyDirectPlay, plan.Strategy)
	assert.Contains(t, plan.MIMEType, "video/mp4")
	assert.Nil(t, plan.Session)
	assert.Empty(t, plan.RemuxArgs)
}

func TestRouter_ExplicitRemux(t *testing.T) {
	fx := newRouterFixture(t)

	plan, err := fx.router.Route(context.Background(), fx.file, "remux", "alice")
	require.NoError(t, err)
	assert.Equal(t, StrategyRemux, plan.Strategy)
	assert.Equal(t, "video/mp4", plan.MIMEType)
	assert.Contains(t, plan.RemuxArgs, "pipe:1")
	assert.Contains(t, plan.RemuxArgs, "copy")
	assert.Equal(t, 0, fx.launcher.launchCount(), "remux pipelines start at write time")
}

func TestRouter_ExplicitHLSStartsSession(t *testing.T) {
	fx := newRouterFixture(t)

	plan, err := fx.router.Route(context.Background(), fx.file, "HLS_COPY", "alice")
	require.NoError(t, err)
	require.NotNil(t, plan.Session)
	assert.Equal(t, StrategyHLSCopy, plan.Strategy)
	assert.Equal(t, 1, fx.launcher.launchCount())

	// Routing again attaches to the same session.
	again, err := fx.router.Route(context.Background(), fx.file, "HLS_COPY", "alice")
	require.NoError(t, err)
	assert.Equal(t, plan.Session.ID, again.Session.ID)
	assert.Equal(t, 1, fx.launcher.launchCount())
}

func TestRouter_SubprocessStrategiesRequireUser(t *testing.T) {
	fx := newRouterFixture(t)

	for _, strategy := range []string{"REMUX", "HLS_COPY", "TRANSCODE"} {
		_, err := fx.router.Route(context.Background(), fx.file, strategy, "")
		assert.ErrorIs(t, err, ErrUnauthorized, "strategy %s", strategy)
	}
	assert.Equal(t, 0, fx.launcher.launchCount())
}

func TestRouter_UnknownStrategyFallsBackToClassification(t *testing.T) {
	fx := newRouterFixture(t)

	// h264/aac/mp4 auto-detects as direct play; no user needed.
	plan, err := fx.router.Route(context.Background(), fx.file, "SPEEDY", "")
	require.NoError(t, err)
	assert.Equal(t, StrategyDirectPlay, plan.Strategy)

	// An undecodable source auto-detects as transcode.
	mkv := &models.MediaFile{
		Path:       fx.file.Path,
		Container:  "mkv",
		VideoCodec: "hevc",
		AudioCodec: "dts",
	}
	mkv.ID = models.NewULID()

	plan, err = fx.router.Route(context.Background(), mkv, "", "alice")
	require.NoError(t, err)
	assert.Equal(t, StrategyTranscode, plan.Strategy)
	require.NotNil(t, plan.Session)
}

func TestRouter_RemuxAutoDetect(t *testing.T) {
	fx := newRouterFixture(t)

	mkv := &models.MediaFile{
		Path:       fx.file.Path,
		Container:  "mkv",
		VideoCodec: "h264",
		AudioCodec: "aac",
	}
	mkv.ID = models.NewULID()

	plan, err := fx.router.Route(context.Background(), mkv, "", "alice")
	require.NoError(t, err)
	assert.Equal(t, StrategyRemux, plan.Strategy)
}

func TestRouter_DirectPlayMissingSource(t *testing.T) {
	fx := newRouterFixture(t)
	fx.file.Path = fx.file.Path + ".gone"

	_, err := fx.router.Route(context.Background(), fx.file, "DIRECT_PLAY", "")
	assert.ErrorIs(t, err, ErrSourceFileMissing)
}
