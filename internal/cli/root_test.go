package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatienc/transcribe-cli/internal/app"
	"github.com/gatienc/transcribe-cli/internal/config"
)

type captured struct {
	cfg        config.Config
	record     *app.RecordOptions
	translate  *app.TranslateOptions
	changeTone *app.ChangeToneOptions
}

func run(t *testing.T, args ...string) (*captured, string, error) {
	t.Helper()
	t.Setenv(config.APIKeyEnv, "sk-test")

	c := &captured{}
	h := Handlers{
		Record: func(ctx context.Context, cfg config.Config, opts app.RecordOptions) error {
			c.cfg, c.record = cfg, &opts
			return nil
		},
		Translate: func(ctx context.Context, cfg config.Config, opts app.TranslateOptions) error {
			c.cfg, c.translate = cfg, &opts
			return nil
		},
		ChangeTone: func(ctx context.Context, cfg config.Config, opts app.ChangeToneOptions) error {
			c.cfg, c.changeTone = cfg, &opts
			return nil
		},
	}

	cmd := NewRootCommand(h)
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	// Point at a dotenv file that does not exist so a developer's .env is ignored.
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env")}, args...))
	err := cmd.ExecuteContext(context.Background())
	return c, out.String(), err
}

func TestTranslateDefaultsToEnglish(t *testing.T) {
	c, _, err := run(t, "translate", "Bonjour")
	require.NoError(t, err)
	require.NotNil(t, c.translate)
	assert.Equal(t, "Bonjour", c.translate.Text)
	assert.Equal(t, "English", c.translate.TargetLanguage)
	assert.Equal(t, "sk-test", c.cfg.APIKey)
	assert.Equal(t, config.DefaultChatModel, c.cfg.ChatModelName())
}

func TestTranslateTargetLanguage(t *testing.T) {
	c, _, err := run(t, "translate", "Hello", "--target-language", "French")
	require.NoError(t, err)
	assert.Equal(t, "French", c.translate.TargetLanguage)
}

func TestTranslateRequiresOneArgument(t *testing.T) {
	c, _, err := run(t, "translate")
	require.Error(t, err)
	assert.Nil(t, c.translate)
}

func TestLargeModelSwitchesModels(t *testing.T) {
	c, _, err := run(t, "--large-model", "translate", "Hello")
	require.NoError(t, err)
	assert.Equal(t, config.LargeChatModel, c.cfg.ChatModelName())
	assert.Equal(t, config.LargeTranscriptionModel, c.cfg.TranscriptionModelName())
}

func TestChangeToneRequiresPrompt(t *testing.T) {
	c, _, err := run(t, "change-tone", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "custom-tone-prompt")
	assert.Nil(t, c.changeTone)
}

func TestChangeTonePassesPrompt(t *testing.T) {
	c, _, err := run(t, "change-tone", "hi", "--custom-tone-prompt", "Make it formal")
	require.NoError(t, err)
	assert.Equal(t, "hi", c.changeTone.Text)
	assert.Equal(t, "Make it formal", c.changeTone.CustomTonePrompt)
}

func TestRecordFlags(t *testing.T) {
	c, _, err := run(t, "record")
	require.NoError(t, err)
	assert.False(t, c.record.ToClipboard)
	assert.False(t, c.record.Paste)

	c, _, err = run(t, "record", "--to-clipboard", "--language", "fr")
	require.NoError(t, err)
	assert.True(t, c.record.ToClipboard)
	assert.Equal(t, "fr", c.cfg.Language)
}

func TestInvalidLogLevelRejected(t *testing.T) {
	c, _, err := run(t, "--log-level", "loud", "record")
	require.Error(t, err)
	assert.Nil(t, c.record)
}

func TestConfigFileIsApplied(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"CHAT_MODEL":"custom-chat"}`), 0600))

	c, _, err := run(t, "--config", path, "translate", "Hello")
	require.NoError(t, err)
	assert.Equal(t, "custom-chat", c.cfg.ChatModelName())
}

func TestInitConfigWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	_, out, err := run(t, "init-config", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().ChatModel, cfg.ChatModel)

	_, _, err = run(t, "init-config", path)
	require.Error(t, err)
}
