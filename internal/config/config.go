package config

import (
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/go-logr/logr"
	"github.com/spf13/viper"
)

// FileEntry is one (source, destination) pair from the manifest's files
// list.
type FileEntry struct {
	Source      string `yaml:"source" mapstructure:"source"`
	Destination string `yaml:"destination" mapstructure:"destination"`
}

// BiosBootConfig mirrors the manifest's bios_boot block.
type BiosBootConfig struct {
	BootCatalog        string `yaml:"boot_catalog" mapstructure:"boot_catalog"`
	BootImage          string `yaml:"boot_image" mapstructure:"boot_image"`
	DestinationInISO   string `yaml:"destination_in_iso" mapstructure:"destination_in_iso"`
	PatchBootInfoTable bool   `yaml:"patch_boot_info_table" mapstructure:"patch_boot_info_table"`
}

// UefiBootConfig mirrors the manifest's uefi_boot block.
type UefiBootConfig struct {
	BootImage        string `yaml:"boot_image" mapstructure:"boot_image"`
	KernelImage      string `yaml:"kernel_image" mapstructure:"kernel_image"`
	DestinationInISO string `yaml:"destination_in_iso" mapstructure:"destination_in_iso"`
}

// Config is the build manifest: the set of files to place in the image,
// optional boot configuration, the hybrid flag, and where to write the
// result.
type Config struct {
	Files       []FileEntry     `yaml:"files" mapstructure:"files"`
	BiosBoot    *BiosBootConfig `yaml:"bios_boot" mapstructure:"bios_boot"`
	UefiBoot    *UefiBootConfig `yaml:"uefi_boot" mapstructure:"uefi_boot"`
	IsIsohybrid bool            `yaml:"is_isohybrid" mapstructure:"is_isohybrid"`
	Output      string          `yaml:"output" mapstructure:"output"`
	LogLevel    string          `yaml:"log_level" mapstructure:"log_level"`

	Log logr.Logger `yaml:"-" mapstructure:"-"`
}

// NewConfig loads the build manifest the way the corpus's services load
// their own YAML config: viper locates and parses the file, environment
// variables override any key, and fsnotify keeps the in-memory Config
// current if the manifest changes underneath a long-running process.
func NewConfig() (conf *Config, err error) {
	conf = &Config{}

	viper.SetConfigName("fullerene")

	viper.AddConfigPath("/app/")
	viper.AddConfigPath("/config/")
	viper.AddConfigPath(".")

	viper.SetDefault("is_isohybrid", false)
	viper.SetDefault("output", "image.iso")
	viper.SetDefault("log_level", "info")

	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("config: unable to read config: %s", err.Error())
	}

	for _, key := range viper.AllKeys() {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := viper.BindEnv(key, envKey); err != nil {
			log.Fatalf("config: unable to bind env: %s", err.Error())
		}
	}

	err = loadConfig(conf)
	if err != nil {
		return
	}

	conf.Log = defaultLogger(conf.LogLevel)

	viper.WatchConfig()
	viper.OnConfigChange(func(_ fsnotify.Event) {
		_ = loadConfig(conf)
	})

	return
}

func loadConfig(conf *Config) (err error) {
	if err = viper.MergeInConfig(); err != nil {
		return nil
	}
	return viper.Unmarshal(conf)
}

// defaultLogger uses the slog logr implementation, truncating source file
// and function paths to their last three path segments for readability.
func defaultLogger(level string) logr.Logger {
	customAttr := func(_ []string, a slog.Attr) slog.Attr {
		if a.Key == slog.SourceKey {
			ss, ok := a.Value.Any().(*slog.Source)
			if !ok || ss == nil {
				return a
			}
			f := strings.Split(ss.Function, "/")
			if len(f) > 3 {
				ss.Function = filepath.Join(f[len(f)-3:]...)
			}
			p := strings.Split(ss.File, "/")
			if len(p) > 3 {
				ss.File = filepath.Join(p[len(p)-3:]...)
			}
			return a
		}
		return a
	}
	opts := &slog.HandlerOptions{AddSource: true, ReplaceAttr: customAttr}
	switch level {
	case "debug":
		opts.Level = slog.LevelDebug
	default:
		opts.Level = slog.LevelInfo
	}
	l := slog.New(slog.NewJSONHandler(os.Stdout, opts))
	return logr.FromSlogHandler(l.Handler())
}
