// Copyright 2026 Harald Albrecht.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the server configuration from defaults, an optional
// configuration file, and environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/thediveo/ssrserve/logging"
)

// EnvPrefix prefixes all environment variables overriding configuration
// settings, such as SSRSERVE_SERVER_ADDR for "server.addr".
const EnvPrefix = "SSRSERVE"

// DevOriginEnv names the environment variable that, when set, switches the
// server into development mode, getting the shell and all static assets from
// the client development server at this origin.
const DevOriginEnv = "CLIENT_DEV_ORIGIN"

type (
	Server struct {
		Addr            string
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
	}

	Client struct {
		Dir           string // client build output serving static assets.
		Index         string // shell, relative to Dir.
		DevOrigin     string
		WatchTemplate bool
	}

	GitHub struct {
		APIURL      string
		AccessToken string
		Timeout     time.Duration
	}

	Render struct {
		PrefetchTimeout time.Duration
	}

	Log struct {
		Verbose bool
		JSON    bool
	}
)

// Config is the complete server configuration.
type Config struct {
	Server Server
	Client Client
	GitHub GitHub
	Render Render
	Log    Log
}

// DevOriginURL returns the parsed client development server origin, or nil if
// not in development mode.
func (c *Config) DevOriginURL() (*url.URL, error) {
	if c.Client.DevOrigin == "" {
		return nil, nil
	}
	u, err := url.Parse(c.Client.DevOrigin)
	if err != nil {
		return nil, fmt.Errorf("invalid client dev origin: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid client dev origin %q: scheme and host required",
			c.Client.DevOrigin)
	}
	return u, nil
}

// Validate checks for settings that cannot work.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr must not be empty")
	}
	if c.Client.Index == "" {
		return errors.New("client.index must not be empty")
	}
	if c.GitHub.Timeout <= 0 {
		return errors.New("github.timeout must be positive")
	}
	if c.Render.PrefetchTimeout <= 0 {
		return errors.New("render.prefetchtimeout must be positive")
	}
	_, err := c.DevOriginURL()
	return err
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8888")
	v.SetDefault("server.writetimeout", 30*time.Second)
	v.SetDefault("server.shutdowntimeout", 5*time.Second)
	v.SetDefault("client.dir", "client")
	v.SetDefault("client.index", "index.html")
	v.SetDefault("client.devorigin", "")
	v.SetDefault("client.watchtemplate", false)
	v.SetDefault("github.apiurl", "https://api.github.com")
	v.SetDefault("github.accesstoken", "")
	v.SetDefault("github.timeout", 10*time.Second)
	v.SetDefault("render.prefetchtimeout", 15*time.Second)
	v.SetDefault("log.verbose", false)
	v.SetDefault("log.json", false)
}

// Loader loads the configuration and optionally keeps watching its file for
// changes.
type Loader struct {
	v    *viper.Viper
	path string

	mu        sync.RWMutex
	cfg       *Config
	callbacks []func(*Config)
}

// NewLoader returns a loader for the configuration file at path; the file is
// optional and path might be empty. The file format is derived from the file
// extension, such as ".toml" or ".yaml".
func NewLoader(path string) *Loader {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("client.devorigin", EnvPrefix+"_CLIENT_DEVORIGIN", DevOriginEnv)
	if path != "" {
		v.SetConfigFile(path)
	}
	return &Loader{v: v, path: path}
}

// Load reads the configuration, returning it after validation.
func (l *Loader) Load() (*Config, error) {
	if l.path != "" {
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	cfg, err := l.unmarshal()
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.cfg = cfg
	l.mu.Unlock()
	return cfg, nil
}

// Config returns the most recently loaded configuration, or nil if none has
// been loaded yet.
func (l *Loader) Config() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg
}

// OnChange registers a callback to be called with the new configuration after
// the watched configuration file changed.
func (l *Loader) OnChange(callback func(*Config)) {
	l.mu.Lock()
	l.callbacks = append(l.callbacks, callback)
	l.mu.Unlock()
}

// Watch starts watching the configuration file, if any, reloading the
// configuration whenever it changes. Invalid changes get logged and ignored.
func (l *Loader) Watch(log *slog.Logger) {
	if l.path == "" {
		return
	}
	if log == nil {
		log = logging.Discard()
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		log.Info("config file changed", slog.String("file", e.Name))
		cfg, err := l.unmarshal()
		if err != nil {
			log.Error("failed to reload config", slog.String("error", err.Error()))
			return
		}
		l.mu.Lock()
		l.cfg = cfg
		callbacks := make([]func(*Config), len(l.callbacks))
		copy(callbacks, l.callbacks)
		l.mu.Unlock()
		for _, callback := range callbacks {
			callback(cfg)
		}
	})
	l.v.WatchConfig()
}

func (l *Loader) unmarshal() (*Config, error) {
	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load is a convenience for loading the configuration once, without watching.
func Load(path string) (*Config, error) {
	return NewLoader(path).Load()
}
