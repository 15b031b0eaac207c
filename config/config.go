// Copyright 2014 Google Inc. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads godavd's runtime configuration from a file, the
// environment, and flags, via viper.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Backend selects which resource backend godavd serves.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendDisk   Backend = "disk"
)

// Config is godavd's full runtime configuration.
type Config struct {
	ListenAddr  string        `mapstructure:"listen_addr"`
	MetricsAddr string        `mapstructure:"metrics_addr"`
	Backend     Backend       `mapstructure:"backend"`
	RootDir     string        `mapstructure:"root_dir"`
	MinLockTTL  time.Duration `mapstructure:"min_lock_ttl"`
	MaxLockTTL  time.Duration `mapstructure:"max_lock_ttl"`
	ReadOnly    bool          `mapstructure:"read_only"`
	Debug       bool          `mapstructure:"debug"`
}

// Defaults returns the configuration used when no file, flag, or environment
// variable overrides a given key.
func Defaults() Config {
	return Config{
		ListenAddr:  ":8080",
		MetricsAddr: ":9090",
		Backend:     BackendMemory,
		RootDir:     ".",
		MinLockTTL:  20 * time.Second,
		MaxLockTTL:  5 * time.Minute,
		ReadOnly:    false,
		Debug:       false,
	}
}

// Load builds a viper instance seeded with Defaults, bound to the
// GODAV_-prefixed environment and the given flag set, and reads an optional
// config file (name "godavd", searched as .yaml/.json/.toml in cfgPaths).
func Load(flags *pflag.FlagSet, cfgPaths ...string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GODAV")
	v.AutomaticEnv()

	def := Defaults()
	v.SetDefault("listen_addr", def.ListenAddr)
	v.SetDefault("metrics_addr", def.MetricsAddr)
	v.SetDefault("backend", string(def.Backend))
	v.SetDefault("root_dir", def.RootDir)
	v.SetDefault("min_lock_ttl", def.MinLockTTL)
	v.SetDefault("max_lock_ttl", def.MaxLockTTL)
	v.SetDefault("read_only", def.ReadOnly)
	v.SetDefault("debug", def.Debug)

	// BindPFlags would register each flag under its own dash-cased name
	// (listen-addr), which doesn't match the underscored mapstructure keys
	// above; bind each flag explicitly onto the key it overrides instead.
	flagKeys := map[string]string{
		"listen-addr":  "listen_addr",
		"metrics-addr": "metrics_addr",
		"backend":      "backend",
		"root-dir":     "root_dir",
		"min-lock-ttl": "min_lock_ttl",
		"max-lock-ttl": "max_lock_ttl",
		"read-only":    "read_only",
		"debug":        "debug",
	}
	if flags != nil {
		for flagName, key := range flagKeys {
			f := flags.Lookup(flagName)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return Config{}, fmt.Errorf("bind flag %s: %w", flagName, err)
			}
		}
	}

	v.SetConfigName("godavd")
	for _, p := range cfgPaths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}
