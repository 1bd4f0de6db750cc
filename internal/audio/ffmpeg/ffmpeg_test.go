package ffmpeg

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatienc/transcribe-cli/internal/config"
)

func TestArgsOpusInOgg(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.CONTAINER = "ogg"
	cfg.CODECS = "OPUS"
	cfg.BIT_RATE = 32

	args, err := Args(cfg, "in.wav", "out.ogg")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", "in.wav", "-ac", "1", "-ar", "16000",
		"-c:a", "libopus", "-b:a", "32k", "out.ogg",
	}, args)
}

func TestArgsDefaultCodecFollowsContainer(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.CONTAINER = "flac"

	args, err := Args(cfg, "in.wav", "out.flac")
	require.NoError(t, err)
	assert.Contains(t, args, "flac")
	assert.NotContains(t, args, "-b:a")
}

func TestArgsUnsupportedCodec(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.CODECS = "betamax"
	_, err := Args(cfg, "in.wav", "out.ogg")
	assert.Error(t, err)
}

func TestConvertMissingBinary(t *testing.T) {
	old := Binary
	Binary = "definitely-not-ffmpeg"
	t.Cleanup(func() { Binary = old })

	cfg := config.DefaultConfig()
	cfg.CONTAINER = "ogg"
	err := Convert(context.Background(), cfg, "in.wav", "out.ogg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found on PATH")
}
