package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/gatienc/transcribe-cli/internal/config"
	"github.com/gatienc/transcribe-cli/internal/logging"
)

// Binary is the converter executable looked up on PATH.
var Binary = "ffmpeg"

// Args builds the ffmpeg arguments that re-encode inPath into the configured
// codec and container at outPath.
func Args(cfg config.Config, inPath, outPath string) ([]string, error) {
	codec, withBitrate := config.Encoder(cfg.CODECS, config.ContainerExt(cfg.CONTAINER))
	if codec == "" {
		return nil, fmt.Errorf("unsupported codec: %s", cfg.CODECS)
	}
	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", inPath,
		"-ac", strconv.Itoa(cfg.Channels),
		"-ar", strconv.Itoa(cfg.SAMPLING_RATE),
		"-c:a", codec,
	}
	if withBitrate {
		args = append(args, "-b:a", fmt.Sprintf("%dk", cfg.BIT_RATE))
	}
	return append(args, outPath), nil
}

// Convert runs ffmpeg to re-encode inPath.
func Convert(ctx context.Context, cfg config.Config, inPath, outPath string) error {
	args, err := Args(cfg, inPath, outPath)
	if err != nil {
		return err
	}
	logging.NewLogger(ctx).WithField("component", "ffmpeg").Debugf("executing: %s %s", Binary, strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, Binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return fmt.Errorf("%s not found on PATH; install it or set CONTAINER to wav", Binary)
		}
		return fmt.Errorf("ffmpeg failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
