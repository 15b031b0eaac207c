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

// Command godavd serves a WebDAV (RFC 4918 class 1/2) endpoint over HTTP,
// backed by either an in-memory or on-disk resource tree.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	w "github.com/omarbenhamid/godav"
	"github.com/omarbenhamid/godav/config"
	"github.com/omarbenhamid/godav/diskfs"
	"github.com/omarbenhamid/godav/htmlindex"
	"github.com/omarbenhamid/godav/memfs"
	"github.com/omarbenhamid/godav/metrics"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "godavd",
		Short: "Serve a WebDAV endpoint over HTTP",
		RunE:  runServe,
	}

	flags := cmd.Flags()
	flags.String("listen-addr", "", "address to listen on for DAV traffic (overrides config/env)")
	flags.String("metrics-addr", "", "address to listen on for /metrics (overrides config/env)")
	flags.String("backend", "", "resource backend: memory or disk")
	flags.String("root-dir", "", "root directory for the disk backend")
	flags.Duration("min-lock-ttl", 0, "minimum LOCK/refresh timeout, clamped to this floor (overrides config/env)")
	flags.Duration("max-lock-ttl", 0, "maximum LOCK/refresh timeout, clamped to this ceiling (overrides config/env)")
	flags.Bool("read-only", false, "serve a read-only ACL regardless of backend")
	flags.Bool("debug", false, "serialize and log every request")
	cmd.Flags().String("config-path", ".", "directory to search for godavd.yaml")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Flags().GetString("config-path")
	cfg, err := config.Load(cmd.Flags(), cfgPath, "/etc/godavd")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	var fs w.FileSystem
	switch cfg.Backend {
	case config.BackendDisk:
		fs, err = diskfs.New(cfg.RootDir)
		if err != nil {
			return fmt.Errorf("init disk backend: %w", err)
		}
	default:
		fs = memfs.NewMemFS(logger.Named("memfs"))
	}

	acl := w.FullACL
	if cfg.ReadOnly {
		acl = w.ReadOnlyACL
	}

	reg := prometheus.NewRegistry()
	rec := metrics.NewRecorder(reg)

	handler := w.NewWebDAV(fs,
		w.WithACL(w.StaticACL{ACL: acl}),
		w.WithLogger(logger.Named("dav")),
		w.WithMetrics(rec),
		w.WithCollectionRenderer(htmlindex.Renderer{}),
		w.WithLockTTLBounds(cfg.MinLockTTL, cfg.MaxLockTTL),
	)
	handler.Debug = cfg.Debug

	errCh := make(chan error, 2)
	go func() {
		logger.Info("serving dav", zap.String("addr", cfg.ListenAddr))
		errCh <- http.ListenAndServe(cfg.ListenAddr, handler)
	}()
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		logger.Info("serving metrics", zap.String("addr", cfg.MetricsAddr))
		errCh <- http.ListenAndServe(cfg.MetricsAddr, mux)
	}()
	return <-errCh
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
