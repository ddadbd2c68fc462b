// Package config loads subtran settings from a config file and SUBTRAN_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/valpere/subtran/internal/coordinator"
	"github.com/valpere/subtran/internal/detector"
	"github.com/valpere/subtran/internal/dispatcher"
	"github.com/valpere/subtran/internal/translator"
)

const EnvPrefix = "SUBTRAN"

var Services = []string{"xfyun", "google", "mymemory"}

type Config struct {
	Translation TranslationConfig       `mapstructure:"translation"`
	Xfyun       translator.XfyunConfig  `mapstructure:"xfyun"`
	Google      translator.GoogleConfig `mapstructure:"google"`
	MyMemory    MyMemoryConfig          `mapstructure:"mymemory"`
	Display     DisplayConfig           `mapstructure:"display"`
	Network     NetworkConfig           `mapstructure:"network"`
	Glossary    GlossaryConfig          `mapstructure:"glossary"`
	Log         LogConfig               `mapstructure:"log"`
}

type TranslationConfig struct {
	Service         string        `mapstructure:"service"`
	PrimaryLang     string        `mapstructure:"primary_lang"`
	SecondaryLang   string        `mapstructure:"secondary_lang"`
	DefaultFrom     string        `mapstructure:"default_from"`
	DefaultTo       string        `mapstructure:"default_to"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxAttempts     int           `mapstructure:"max_attempts"`
	RetryDelay      time.Duration `mapstructure:"retry_delay"`
	MaxInFlight     int64         `mapstructure:"max_in_flight"`
	ValidateResults bool          `mapstructure:"validate_results"`
}

type MyMemoryConfig struct {
	Email string `mapstructure:"email"`
}

type DisplayConfig struct {
	YPosition   int           `mapstructure:"y_position"`
	Height      int           `mapstructure:"height"`
	TopColor    string        `mapstructure:"top_color"`
	BottomColor string        `mapstructure:"bottom_color"`
	Timeout     time.Duration `mapstructure:"timeout"`
	SourceSlot  string        `mapstructure:"source_slot"`
}

type NetworkConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type GlossaryConfig struct {
	Path        string   `mapstructure:"path"`
	SearchPaths []string `mapstructure:"search_paths"`
	Watch       bool     `mapstructure:"watch"`
	DB          string   `mapstructure:"db"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	Dir   string `mapstructure:"dir"`
}

// DefaultGlossaryDB is where the glossary commands and the server both keep
// database terms unless glossary.db says otherwise. An empty glossary.db
// disables the database.
const DefaultGlossaryDB = "./data/subtran.db"

func Default() Config {
	return Config{
		Translation: TranslationConfig{
			Service:       "xfyun",
			PrimaryLang:   string(detector.Chinese),
			SecondaryLang: string(detector.English),
			DefaultFrom:   string(detector.Chinese),
			DefaultTo:     string(detector.English),
			Timeout:       translator.DefaultTimeout,
			MaxAttempts:   1,
			RetryDelay:    500 * time.Millisecond,
			MaxInFlight:   8,
		},
		Xfyun: translator.XfyunConfig{Host: "itrans.xfyun.cn"},
		Display: DisplayConfig{
			YPosition:   1000,
			Height:      200,
			TopColor:    "white",
			BottomColor: "yellow",
			Timeout:     6 * time.Second,
			SourceSlot:  string(detector.Top),
		},
		Network: NetworkConfig{Host: "0.0.0.0", Port: 4321},
		Glossary: GlossaryConfig{
			Path:        "translations.txt",
			SearchPaths: defaultSearchPaths(),
			Watch:       true,
			DB:          DefaultGlossaryDB,
		},
		Log: LogConfig{Level: "info"},
	}
}

func defaultSearchPaths() []string {
	var dirs []string
	if wd, err := os.Getwd(); err == nil {
		dirs = append(dirs, wd)
	}
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	return dirs
}

// NewViper returns a viper instance with every default registered and
// SUBTRAN_* environment overrides enabled, e.g. SUBTRAN_XFYUN_APP_ID.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("translation.service", d.Translation.Service)
	v.SetDefault("translation.primary_lang", d.Translation.PrimaryLang)
	v.SetDefault("translation.secondary_lang", d.Translation.SecondaryLang)
	v.SetDefault("translation.default_from", d.Translation.DefaultFrom)
	v.SetDefault("translation.default_to", d.Translation.DefaultTo)
	v.SetDefault("translation.timeout", d.Translation.Timeout)
	v.SetDefault("translation.max_attempts", d.Translation.MaxAttempts)
	v.SetDefault("translation.retry_delay", d.Translation.RetryDelay)
	v.SetDefault("translation.max_in_flight", d.Translation.MaxInFlight)
	v.SetDefault("translation.validate_results", d.Translation.ValidateResults)

	v.SetDefault("xfyun.host", d.Xfyun.Host)
	v.SetDefault("xfyun.app_id", "")
	v.SetDefault("xfyun.api_key", "")
	v.SetDefault("xfyun.secret", "")
	v.SetDefault("google.credentials", "")
	v.SetDefault("google.project_id", "")
	v.SetDefault("mymemory.email", "")

	v.SetDefault("display.y_position", d.Display.YPosition)
	v.SetDefault("display.height", d.Display.Height)
	v.SetDefault("display.top_color", d.Display.TopColor)
	v.SetDefault("display.bottom_color", d.Display.BottomColor)
	v.SetDefault("display.timeout", d.Display.Timeout)
	v.SetDefault("display.source_slot", d.Display.SourceSlot)

	v.SetDefault("network.host", d.Network.Host)
	v.SetDefault("network.port", d.Network.Port)

	v.SetDefault("glossary.path", d.Glossary.Path)
	v.SetDefault("glossary.search_paths", d.Glossary.SearchPaths)
	v.SetDefault("glossary.watch", d.Glossary.Watch)
	v.SetDefault("glossary.db", d.Glossary.DB)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.dir", d.Log.Dir)
}

// Load unmarshals v into a Config and validates it.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	known := false
	for _, s := range Services {
		if c.Translation.Service == s {
			known = true
		}
	}
	if !known {
		errs = append(errs, fmt.Errorf("translation.service %q is not one of %s", c.Translation.Service, strings.Join(Services, ", ")))
	}

	if _, err := c.DetectorConfig(); err != nil {
		errs = append(errs, err)
	}
	if c.Translation.Timeout <= 0 {
		errs = append(errs, errors.New("translation.timeout must be positive"))
	}
	if c.Translation.MaxAttempts < 1 {
		errs = append(errs, errors.New("translation.max_attempts must be at least 1"))
	}
	if c.Translation.RetryDelay < 0 {
		errs = append(errs, errors.New("translation.retry_delay must not be negative"))
	}
	if c.Translation.MaxInFlight < 1 {
		errs = append(errs, errors.New("translation.max_in_flight must be at least 1"))
	}
	if c.Display.Timeout <= 0 {
		errs = append(errs, errors.New("display.timeout must be positive"))
	}
	if c.Display.Height <= 0 {
		errs = append(errs, errors.New("display.height must be positive"))
	}
	if s := detector.Slot(c.Display.SourceSlot); s != detector.Top && s != detector.Bottom {
		errs = append(errs, fmt.Errorf("display.source_slot %q must be top or bottom", c.Display.SourceSlot))
	}
	if c.Network.Port < 1 || c.Network.Port > 65535 {
		errs = append(errs, fmt.Errorf("network.port %d out of range", c.Network.Port))
	}

	return errors.Join(errs...)
}

// DetectorConfig resolves the language codes of the translation section.
func (c Config) DetectorConfig() (detector.Config, error) {
	langs := make([]detector.Lang, 4)
	for i, raw := range []string{
		c.Translation.PrimaryLang, c.Translation.SecondaryLang,
		c.Translation.DefaultFrom, c.Translation.DefaultTo,
	} {
		l, ok := detector.Parse(raw)
		if !ok {
			return detector.Config{}, fmt.Errorf("unsupported language code %q", raw)
		}
		langs[i] = l
	}
	if langs[0] == langs[1] {
		return detector.Config{}, fmt.Errorf("primary and secondary language must differ, both are %s", langs[0])
	}
	return detector.Config{
		Primary:     langs[0],
		Secondary:   langs[1],
		DefaultFrom: langs[2],
		DefaultTo:   langs[3],
		SourceSlot:  detector.Slot(c.Display.SourceSlot),
	}, nil
}

func (c Config) DispatcherConfig() dispatcher.Config {
	return dispatcher.Config{
		Timeout:     c.Translation.Timeout,
		MaxAttempts: c.Translation.MaxAttempts,
		RetryDelay:  c.Translation.RetryDelay,
		MaxInFlight: c.Translation.MaxInFlight,
	}
}

func (c Config) DisplayDefaults() coordinator.Display {
	return coordinator.Display{
		YPosition:   c.Display.YPosition,
		Height:      c.Display.Height,
		TopColor:    c.Display.TopColor,
		BottomColor: c.Display.BottomColor,
		Timeout:     c.Display.Timeout,
	}
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Network.Host, c.Network.Port)
}
