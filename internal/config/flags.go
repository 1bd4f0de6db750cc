package config

import (
	"github.com/spf13/pflag"
)

// Flag names shared by the CLI and ApplyFlags.
const (
	FlagLargeModel     = "large-model"
	FlagLanguage       = "language"
	FlagLogLevel       = "log-level"
	FlagRequestTimeout = "request-timeout"
	FlagMaxRetry       = "max-retry"
	FlagDevice         = "device"
	FlagCacheDir       = "cache-dir"
	FlagKeepCache      = "keep-cache"
	FlagNotification   = "notification"
)

// FlagValues holds the targets of the config-overriding flags. Whether a value
// was set by the user is tracked by the FlagSet itself.
type FlagValues struct {
	LargeModel     bool
	Language       string
	LogLevel       string
	RequestTimeout int
	MaxRetry       int
	Device         string
	CacheDir       string
	KeepCache      bool
	Notification   bool
}

// BindFlags registers the config-overriding flags on fs.
func BindFlags(fs *pflag.FlagSet) *FlagValues {
	fv := &FlagValues{}
	def := DefaultConfig()

	fs.BoolVar(&fv.LargeModel, FlagLargeModel, false, "use larger, more capable (and potentially more expensive) models")
	fs.StringVar(&fv.Language, FlagLanguage, def.Language, "language hint for transcription (e.g. en, fr)")
	fs.StringVar(&fv.LogLevel, FlagLogLevel, def.LogLevel, "log level (debug, info, warn, error)")
	fs.IntVar(&fv.RequestTimeout, FlagRequestTimeout, def.RequestTimeout, "request timeout in seconds")
	fs.IntVar(&fv.MaxRetry, FlagMaxRetry, def.MaxRetry, "max transcription upload attempts")
	fs.StringVar(&fv.Device, FlagDevice, def.Device, "capture device passed to the recorder")
	fs.StringVar(&fv.CacheDir, FlagCacheDir, def.CacheDir, "directory for temporary and retained recordings")
	fs.BoolVar(&fv.KeepCache, FlagKeepCache, def.KeepCache, "keep recordings and raw responses in --cache-dir")
	fs.BoolVar(&fv.Notification, FlagNotification, def.Notification, "show a desktop notification when a result is ready")

	return fv
}

// ApplyFlags applies flags the user explicitly changed to the config.
func ApplyFlags(cfg *Config, fs *pflag.FlagSet, fv *FlagValues) {
	if fs.Changed(FlagLargeModel) {
		cfg.LargeModel = fv.LargeModel
	}
	if fs.Changed(FlagLanguage) {
		cfg.Language = fv.Language
	}
	if fs.Changed(FlagLogLevel) {
		cfg.LogLevel = fv.LogLevel
	}
	if fs.Changed(FlagRequestTimeout) {
		cfg.RequestTimeout = fv.RequestTimeout
	}
	if fs.Changed(FlagMaxRetry) {
		cfg.MaxRetry = fv.MaxRetry
	}
	if fs.Changed(FlagDevice) {
		cfg.Device = fv.Device
	}
	if fs.Changed(FlagCacheDir) {
		cfg.CacheDir = fv.CacheDir
	}
	if fs.Changed(FlagKeepCache) {
		cfg.KeepCache = fv.KeepCache
	}
	if fs.Changed(FlagNotification) {
		cfg.Notification = fv.Notification
	}
}
