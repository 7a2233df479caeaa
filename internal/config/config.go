// Package config binds flags, environment and .env values into a Config.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "FOLIO"

type Config struct {
	Addr          string
	ImagesDir     string
	StaticDir     string
	PublicURL     string
	ContentPath   string
	DBPath        string
	CacheSize     int
	AdminUsername string
	AdminPassword string
	Debug         bool
}

var ErrInvalid = errors.New("config: invalid")

// BindFlags registers the server flags on fs and binds them into v.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	fs.String("addr", ":8080", "listen address")
	fs.String("images-dir", "./images", "directory served under /images")
	fs.String("static-dir", "./static", "directory served under /static")
	fs.String("public-url", "", "base path prefixed to every image source")
	fs.String("content", "", "content YAML file (default: bundled content)")
	fs.String("db", "folio.db", "sqlite database for visitor and asset telemetry")
	fs.Int("cache-size", 256, "resolved image cache entries")
	fs.Bool("debug", false, "run gin in debug mode")

	for _, name := range []string{"addr", "images-dir", "static-dir", "public-url", "content", "db", "cache-size", "debug"} {
		if err := v.BindPFlag(key(name), fs.Lookup(name)); err != nil {
			return err
		}
	}
	return nil
}

// New returns a viper instance reading FOLIO_* environment variables.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("port", "PORT")
	v.SetDefault("admin_username", "admin")
	v.SetDefault("admin_password", "admin123")
	return v
}

// Load reads the bound values. PORT, when set, overrides the port of addr.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Addr:          v.GetString("addr"),
		ImagesDir:     v.GetString("images_dir"),
		StaticDir:     v.GetString("static_dir"),
		PublicURL:     strings.TrimSuffix(v.GetString("public_url"), "/"),
		ContentPath:   v.GetString("content"),
		DBPath:        v.GetString("db"),
		CacheSize:     v.GetInt("cache_size"),
		AdminUsername: v.GetString("admin_username"),
		AdminPassword: v.GetString("admin_password"),
		Debug:         v.GetBool("debug"),
	}
	if port := v.GetString("port"); port != "" {
		cfg.Addr = ":" + port
	}
	if cfg.Addr == "" {
		return cfg, fmt.Errorf("%w: empty listen address", ErrInvalid)
	}
	if cfg.ImagesDir == "" {
		return cfg, fmt.Errorf("%w: empty images dir", ErrInvalid)
	}
	if cfg.CacheSize < 0 {
		return cfg, fmt.Errorf("%w: negative cache size %d", ErrInvalid, cfg.CacheSize)
	}
	return cfg, nil
}

// UsingDefaultAdmin reports whether the admin credentials were never set.
func (c Config) UsingDefaultAdmin() bool {
	return c.AdminUsername == "admin" && c.AdminPassword == "admin123"
}

func key(flag string) string {
	return strings.ReplaceAll(flag, "-", "_")
}
