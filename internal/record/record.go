package record

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-audio/wav"
	"github.com/google/uuid"

	"github.com/gatienc/transcribe-cli/internal/config"
	"github.com/gatienc/transcribe-cli/internal/logging"
)

// TempPrefix marks files created by the recorder.
const TempPrefix = "RecordTemp_"

// StaleAfter is how long a temp recording must sit unmodified before
// CleanupTempFiles treats it as abandoned. A running recorder keeps its file fresh.
const StaleAfter = time.Minute

// ErrRecorderNotFound is returned when the capture utility is not installed.
var ErrRecorderNotFound = errors.New("recorder command not found")

// Result is returned when a recording completes or is canceled.
type Result struct {
	Path     string
	Duration time.Duration
	Canceled bool
}

// Recorder captures audio by running an external utility (arecord by default)
// until a key press stops or cancels it.
type Recorder struct {
	cfg       config.Config
	tempDir   string
	stopGrace time.Duration
	command   func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// New creates a recorder that writes its temp files into tempDir.
func New(cfg config.Config, tempDir string) *Recorder {
	return &Recorder{
		cfg:       cfg,
		tempDir:   tempDir,
		stopGrace: 3 * time.Second,
		command:   exec.CommandContext,
	}
}

// Args returns the recorder arguments for writing to path.
func (r *Recorder) Args(path string) []string {
	args := []string{}
	if r.cfg.Device != "" {
		args = append(args, "-D", r.cfg.Device)
	}
	return append(args,
		"-q",
		"-r", strconv.Itoa(r.cfg.SAMPLING_RATE),
		"-c", strconv.Itoa(r.cfg.Channels),
		"-f", r.cfg.SampleFormat,
		"-t", "wav",
		path,
	)
}

// Record starts the recorder and blocks until keys yields Enter (stop and
// keep), Escape/Ctrl+C (cancel and delete), the recorder exits on its own, or
// ctx is done.
func (r *Recorder) Record(ctx context.Context, keys io.Reader) (Result, error) {
	log := logging.NewLogger(ctx).WithField("component", "record")
	if r.tempDir != "" {
		if err := os.MkdirAll(r.tempDir, 0700); err != nil {
			return Result{}, fmt.Errorf("create temp dir: %w", err)
		}
	}
	path := r.tempPath()
	args := r.Args(path)
	log.Debugf("executing: %s %s", r.cfg.Recorder, strings.Join(args, " "))

	cmd := r.command(ctx, r.cfg.Recorder, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return Result{}, fmt.Errorf("%w: %s (install ALSA tools, e.g. `sudo apt-get install alsa-utils`)", ErrRecorderNotFound, r.cfg.Recorder)
		}
		return Result{}, fmt.Errorf("start %s: %w", r.cfg.Recorder, err)
	}
	start := time.Now()

	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()
	// The key reader is left blocked on its read if the recorder dies first;
	// the process exits on that error path anyway.
	events := make(chan keyEvent, 1)
	go readKeys(keys, events)

	var outcome Outcome
	select {
	case err := <-exited:
		_ = os.Remove(path)
		if ctx.Err() != nil {
			return Result{Canceled: true}, ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if err == nil {
			return Result{}, fmt.Errorf("%s exited before recording was stopped: %s", r.cfg.Recorder, msg)
		}
		return Result{}, fmt.Errorf("%s failed: %w: %s", r.cfg.Recorder, err, msg)
	case ev := <-events:
		if ev.err != nil {
			r.stop(cmd, exited)
			_ = os.Remove(path)
			return Result{}, fmt.Errorf("read key: %w", ev.err)
		}
		outcome = ev.outcome
	case <-ctx.Done():
		r.stop(cmd, exited)
		_ = os.Remove(path)
		return Result{Canceled: true}, ctx.Err()
	}

	elapsed := time.Since(start)
	r.stop(cmd, exited)

	if outcome == Cancel {
		if err := os.Remove(path); err == nil {
			log.Debugf("removed %s", path)
		}
		return Result{Canceled: true}, nil
	}

	if _, err := os.Stat(path); err != nil {
		return Result{}, fmt.Errorf("recording file missing: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return Result{Path: path, Duration: r.duration(ctx, path, elapsed)}, nil
}

func (r *Recorder) stop(cmd *exec.Cmd, exited <-chan error) {
	if cmd.Process == nil {
		return
	}
	// SIGINT lets arecord flush and close the WAV header properly.
	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		_ = cmd.Process.Kill()
	}
	select {
	case <-exited:
	case <-time.After(r.stopGrace):
		_ = cmd.Process.Kill()
		<-exited
	}
}

// duration prefers the WAV header and falls back to wall-clock time when the
// header is unreadable or implausible.
func (r *Recorder) duration(ctx context.Context, path string, elapsed time.Duration) time.Duration {
	d, err := WavDuration(path)
	if err != nil || d <= 0 || d > elapsed+5*time.Second {
		logging.NewLogger(ctx).WithField("component", "record").Debugf("using elapsed time for duration (header: %v, %v)", d, err)
		return elapsed
	}
	return d
}

// WavDuration reads the duration of the WAV file at path.
func WavDuration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return wav.NewDecoder(f).Duration()
}

func (r *Recorder) tempPath() string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
	dir := r.tempDir
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, TempPrefix+id+".wav")
}

// CleanupTempFiles removes recordings left behind by earlier runs. Files
// modified within StaleAfter may belong to another running session and are kept.
func CleanupTempFiles(ctx context.Context, dir string) {
	log := logging.NewLogger(ctx).WithField("component", "cleanup")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warnf("read dir '%s' failed: %v", dir, err)
		}
		return
	}
	cutoff := time.Now().Add(-StaleAfter)
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), TempPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := os.Remove(path); err != nil {
			log.Warnf("failed remove %s: %v", path, err)
		} else {
			log.Debugf("removed %s", path)
		}
	}
}
