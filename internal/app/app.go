package app

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/net/http2"

	"github.com/gatienc/transcribe-cli/internal/asr"
	"github.com/gatienc/transcribe-cli/internal/audio/ffmpeg"
	"github.com/gatienc/transcribe-cli/internal/chat"
	"github.com/gatienc/transcribe-cli/internal/clipboard"
	"github.com/gatienc/transcribe-cli/internal/config"
	"github.com/gatienc/transcribe-cli/internal/logging"
	"github.com/gatienc/transcribe-cli/internal/notify"
	"github.com/gatienc/transcribe-cli/internal/record"
)

const notifyTitle = "transcribe"

// Transcriber turns recorded audio into text. It also returns the raw response body.
type Transcriber interface {
	Transcribe(ctx context.Context, name string, audio []byte) (string, []byte, error)
}

// Rewriter sends literal text to the chat model.
type Rewriter interface {
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
	ChangeTone(ctx context.Context, text, tonePrompt string) (string, error)
}

// Recorder captures audio until keys signals stop or cancel.
type Recorder interface {
	Record(ctx context.Context, keys io.Reader) (record.Result, error)
}

// Clipboard copies text, or pastes it into the focused window.
type Clipboard interface {
	Copy(text string) error
	Paste(text string) error
}

// Deps are the collaborators of App. NewDefault wires the real ones.
type Deps struct {
	Transcriber Transcriber
	Rewriter    Rewriter
	Recorder    Recorder
	Clipboard   Clipboard
	Notify      func(title, message string) error
	Convert     func(ctx context.Context, cfg config.Config, inPath, outPath string) error
	// OpenKeys returns the key source used while recording and a func restoring the terminal.
	OpenKeys func() (io.Reader, func(), error)
	Stdin    io.Reader
	Stdout   io.Writer
	Stderr   io.Writer
}

// RecordOptions select what happens to a finished transcription besides printing it.
type RecordOptions struct {
	ToClipboard bool
	Paste       bool
}

// TranslateOptions hold the translate command input.
type TranslateOptions struct {
	Text           string
	TargetLanguage string
}

// ChangeToneOptions hold the change-tone command input.
type ChangeToneOptions struct {
	Text             string
	CustomTonePrompt string
}

// App drives the commands against its Deps.
type App struct {
	cfg   config.Config
	deps  Deps
	stdin *bufio.Reader
}

// New builds an App from explicit collaborators. It refuses to do so without
// an API key so no network call can be attempted unauthenticated.
func New(cfg config.Config, deps Deps) (*App, error) {
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}
	if deps.Stdin == nil {
		deps.Stdin = os.Stdin
	}
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	return &App{cfg: cfg, deps: deps, stdin: bufio.NewReader(deps.Stdin)}, nil
}

// NewDefault wires the HTTP clients, recorder, clipboard and notifier for cfg.
func NewDefault(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}
	config.InitCacheDir(&cfg, logging.Base().WithField("component", "config"))

	httpClient := newHTTPClient(cfg)
	asrClient, err := asr.New(cfg, httpClient)
	if err != nil {
		return nil, err
	}
	chatClient, err := chat.New(cfg, httpClient)
	if err != nil {
		return nil, err
	}
	return New(cfg, Deps{
		Transcriber: asrClient,
		Rewriter:    chatClient,
		Recorder:    record.New(cfg, config.TempDir(&cfg)),
		Clipboard:   systemClipboard{},
		Notify:      notify.Notify,
		Convert:     ffmpeg.Convert,
		OpenKeys:    openStdinKeys,
	})
}

// RunRecord records, transcribes and prints the transcription.
func RunRecord(ctx context.Context, cfg config.Config, opts RecordOptions) error {
	a, err := NewDefault(ctx, cfg)
	if err != nil {
		return err
	}
	return a.Record(ctx, opts)
}

// RunTranslate translates literal text.
func RunTranslate(ctx context.Context, cfg config.Config, opts TranslateOptions) error {
	a, err := NewDefault(ctx, cfg)
	if err != nil {
		return err
	}
	return a.Translate(ctx, opts)
}

// RunChangeTone rephrases literal text.
func RunChangeTone(ctx context.Context, cfg config.Config, opts ChangeToneOptions) error {
	a, err := NewDefault(ctx, cfg)
	if err != nil {
		return err
	}
	return a.ChangeTone(ctx, opts)
}

// Record captures audio until Enter or Escape, then transcribes it.
func (a *App) Record(ctx context.Context, opts RecordOptions) error {
	log := logging.NewLogger(ctx).WithField("component", "app")
	log.Infof("Using transcription model: %s", a.cfg.TranscriptionModelName())
	record.CleanupTempFiles(ctx, config.TempDir(&a.cfg))

	log.Infof("Recording... Press Enter to stop, Escape to cancel.")
	keys, restore, err := a.deps.OpenKeys()
	if err != nil {
		return fmt.Errorf("open terminal: %w", err)
	}
	res, err := a.deps.Recorder.Record(ctx, keys)
	restore()
	if err != nil {
		return fmt.Errorf("recording failed: %w", err)
	}
	log.Infof("Recording stopped.")
	if res.Canceled {
		log.Infof("Recording cancelled.")
		return nil
	}

	threshold := time.Duration(a.cfg.ConfirmAfterSeconds * float64(time.Second))
	if threshold > 0 && res.Duration > threshold {
		log.Warnf("Recording duration (%.2fs) is longer than %v seconds.", res.Duration.Seconds(), a.cfg.ConfirmAfterSeconds)
		if !a.confirm(ctx) {
			_ = os.Remove(res.Path)
			log.Infof("Recording deleted due to length.")
			return nil
		}
	}

	uploadPath := res.Path
	if config.NeedsConversion(&a.cfg) {
		uploadPath = strings.TrimSuffix(res.Path, filepath.Ext(res.Path)) + "." + config.ContainerExt(a.cfg.CONTAINER)
		if err := a.deps.Convert(ctx, a.cfg, res.Path, uploadPath); err != nil {
			// Fall back to the WAV so the recording is never lost.
			log.Warnf("Conversion to %s failed, uploading the WAV instead: %v", a.cfg.CONTAINER, err)
			_ = os.Remove(uploadPath)
			uploadPath = res.Path
		}
	}

	data, err := os.ReadFile(uploadPath)
	if err != nil {
		a.retain(ctx, res.Path, uploadPath, false, nil)
		return fmt.Errorf("read recording: %w", err)
	}
	text, raw, err := a.deps.Transcriber.Transcribe(ctx, uploadPath, data)
	a.retain(ctx, res.Path, uploadPath, err == nil, raw)
	if err != nil {
		a.notify(ctx, "Transcription failed")
		return fmt.Errorf("transcription failed: %w", err)
	}

	a.printBlock("Transcription", text)
	if opts.ToClipboard {
		if err := a.deps.Clipboard.Copy(text); err != nil {
			log.Errorf("Failed to copy to clipboard: %v", err)
		} else {
			log.Infof("Transcription copied to clipboard.")
		}
	}
	if opts.Paste {
		if err := a.deps.Clipboard.Paste(text); err != nil {
			log.Errorf("Failed to paste transcription: %v", err)
		}
	}
	a.notify(ctx, "Transcription ready")
	return nil
}

// Translate translates opts.Text and prints the result.
func (a *App) Translate(ctx context.Context, opts TranslateOptions) error {
	logging.NewLogger(ctx).WithField("component", "app").Infof("Using chat model: %s", a.cfg.ChatModelName())
	out, err := a.deps.Rewriter.Translate(ctx, opts.Text, opts.TargetLanguage)
	if err != nil {
		return fmt.Errorf("translation failed: %w", err)
	}
	a.printBlock(fmt.Sprintf("Translated Text (%s)", opts.TargetLanguage), out)
	a.notify(ctx, "Translation ready")
	return nil
}

// ChangeTone rephrases opts.Text and prints the result.
func (a *App) ChangeTone(ctx context.Context, opts ChangeToneOptions) error {
	logging.NewLogger(ctx).WithField("component", "app").Infof("Using chat model: %s", a.cfg.ChatModelName())
	out, err := a.deps.Rewriter.ChangeTone(ctx, opts.Text, opts.CustomTonePrompt)
	if err != nil {
		return fmt.Errorf("tone change failed: %w", err)
	}
	a.printBlock("Rephrased Text", out)
	a.notify(ctx, "Tone change ready")
	return nil
}

func (a *App) printBlock(title, text string) {
	fmt.Fprintf(a.deps.Stdout, "\n--- %s ---\n%s\n---------------------\n", title, text)
}

// confirm asks whether a long recording should be sent. Only "y" proceeds;
// "d" or a closed input deletes.
func (a *App) confirm(ctx context.Context) bool {
	log := logging.NewLogger(ctx).WithField("component", "app")
	for {
		fmt.Fprint(a.deps.Stderr, "Do you want to proceed with transcription (y) or delete the recording (d)? ")
		line, err := a.stdin.ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))
		switch {
		case answer == "y":
			return true
		case answer == "d":
			return false
		case errors.Is(err, io.EOF):
			log.Errorf("Input stream closed unexpectedly. Assuming 'd' for delete.")
			return false
		case err != nil:
			log.Errorf("An unexpected error occurred during user input: %v", err)
			return false
		}
		log.Warnf("Invalid input: %s. Please enter 'y' or 'd'.", answer)
	}
}

func (a *App) notify(ctx context.Context, message string) {
	if !a.cfg.Notification || a.deps.Notify == nil {
		return
	}
	if err := a.deps.Notify(notifyTitle, message); err != nil {
		logging.NewLogger(ctx).WithField("component", "notify").Debugf("notification failed: %v", err)
	}
}

// retain moves the recording, converted upload and raw response into the cache
// dir when KEEP_CACHE is set, and deletes the temp files otherwise.
func (a *App) retain(ctx context.Context, wavPath, outPath string, uploadOk bool, resBody []byte) {
	if !a.cfg.KeepCache || a.cfg.CacheDir == "" {
		_ = os.Remove(wavPath)
		if outPath != wavPath {
			_ = os.Remove(outPath)
		}
		return
	}

	log := logging.NewLogger(ctx).WithField("component", "cache")
	base := "audio-" + time.Now().Format("2006-01-02-15.04.05")
	for _, p := range uniquePaths(wavPath, outPath) {
		dst := filepath.Join(a.cfg.CacheDir, base+filepath.Ext(p))
		if err := os.Rename(p, dst); err != nil {
			log.Warnf("failed to move %s to %s: %v", p, dst, err)
			_ = os.Remove(p)
		}
	}
	if uploadOk && len(resBody) > 0 {
		jsonPath := filepath.Join(a.cfg.CacheDir, base+".json")
		if err := os.WriteFile(jsonPath, resBody, 0644); err != nil {
			log.Warnf("failed to write json to %s: %v", jsonPath, err)
		}
	}
}

func uniquePaths(paths ...string) []string {
	out := make([]string, 0, len(paths))
	seen := map[string]bool{}
	for _, p := range paths {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func newHTTPClient(cfg config.Config) *http.Client {
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if !cfg.VerifySSL {
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	if cfg.EnableHTTP2 {
		_ = http2.ConfigureTransport(tr)
	}
	return &http.Client{
		Transport: tr,
		Timeout:   time.Duration(cfg.RequestTimeout) * time.Second,
	}
}

type systemClipboard struct{}

func (systemClipboard) Copy(text string) error  { return clipboard.Copy(text) }
func (systemClipboard) Paste(text string) error { return clipboard.Paste(text) }

func openStdinKeys() (io.Reader, func(), error) {
	t, err := record.OpenTerminal(os.Stdin)
	if err != nil {
		return nil, nil, err
	}
	restoreLog := func() {}
	if t.Raw() {
		restoreLog = logging.RawTerminal()
	}
	return t, func() {
		restoreLog()
		_ = t.Restore()
	}, nil
}
