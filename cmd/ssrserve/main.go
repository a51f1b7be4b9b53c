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

// ssrserve serves the server-side rendered application together with its star
// count function endpoint.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/thediveo/ssrserve"
	"github.com/thediveo/ssrserve/config"
	"github.com/thediveo/ssrserve/github"
	"github.com/thediveo/ssrserve/logging"
	"github.com/thediveo/ssrserve/pages"
	"github.com/thediveo/ssrserve/ssr"
)

func main() {
	configPath := flag.String("config", "", "optional configuration file (TOML, YAML, JSON)")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	if err := run(*configPath, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "ssrserve: %s\n", err)
		os.Exit(1)
	}
}

func run(configPath string, verbose bool) error {
	loader := config.NewLoader(configPath)
	cfg, err := loader.Load()
	if err != nil {
		return err
	}
	var level slog.LevelVar
	log := logging.New(logging.Options{
		Verbose: cfg.Log.Verbose || verbose,
		JSON:    cfg.Log.JSON,
		Level:   &level,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	fetcher := github.NewFetcher(
		github.NewClient(
			github.WithAPIURL(cfg.GitHub.APIURL),
			github.WithAccessToken(cfg.GitHub.AccessToken)),
		github.WithTimeout(cfg.GitHub.Timeout),
		github.WithLogger(log))
	rt, err := pages.NewRouter(fetcher)
	if err != nil {
		return err
	}

	devOrigin, err := cfg.DevOriginURL()
	if err != nil {
		return err
	}
	handlerOpts := []ssrserve.HandlerOption{ssrserve.WithLogger(log)}
	var tmpl *ssr.Template
	if devOrigin != nil {
		log.Info("development mode", slog.String("origin", devOrigin.String()))
		tmpl = ssr.NewTemplate(ssr.OriginSource{Origin: devOrigin.String()})
		handlerOpts = append(handlerOpts, ssrserve.WithDevOrigin(devOrigin))
	} else {
		assets := os.DirFS(cfg.Client.Dir)
		tmpl = ssr.NewTemplate(ssr.FSSource{FS: assets, Name: cfg.Client.Index})
		handlerOpts = append(handlerOpts, ssrserve.WithStaticAssets(assets))
		if cfg.Client.WatchTemplate {
			if err := tmpl.Watch(ctx, filepath.Join(cfg.Client.Dir, cfg.Client.Index), log); err != nil {
				return fmt.Errorf("cannot watch shell template: %w", err)
			}
		}
	}
	loader.OnChange(reloader(&level, tmpl, verbose, log))
	loader.Watch(log)

	renderer := ssr.NewRenderer(rt, tmpl,
		ssr.WithLogger(log),
		ssr.WithPrefetchTimeout(cfg.Render.PrefetchTimeout))

	srv := ssrserve.NewServer(cfg.Server.Addr,
		ssrserve.NewMux(
			ssrserve.NewHandler(renderer, handlerOpts...),
			ssrserve.NewStarCountHandler(fetcher, log)),
		ssrserve.WithServerLogger(log),
		ssrserve.WithWriteTimeout(cfg.Server.WriteTimeout),
		ssrserve.WithShutdownTimeout(cfg.Server.ShutdownTimeout))
	if err := srv.Start(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		log.Info("signal received")
	case err := <-srv.Done():
		if err != nil {
			return err
		}
		return errors.New("server stopped unexpectedly")
	}
	return srv.Stop(context.Background())
}

// reloader returns the callback applying a changed configuration: the log
// verbosity applies immediately and the shell gets reloaded to pick up a
// changed client build. Everything else needs a restart.
func reloader(level *slog.LevelVar, tmpl *ssr.Template, verbose bool, log *slog.Logger) func(*config.Config) {
	return func(changed *config.Config) {
		level.Set(logging.LevelFor(changed.Log.Verbose || verbose))
		tmpl.Invalidate()
		log.Info("configuration reloaded",
			slog.Bool("verbose", changed.Log.Verbose || verbose))
	}
}
