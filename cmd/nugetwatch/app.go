package main

import (
	"context"
	"fmt"

	"github.com/obentoo/nugetwatch/internal/common/config"
	"github.com/obentoo/nugetwatch/internal/common/httpclient"
	"github.com/obentoo/nugetwatch/internal/common/logger"
	"github.com/obentoo/nugetwatch/internal/notify"
	"github.com/obentoo/nugetwatch/internal/registry"
	"github.com/obentoo/nugetwatch/internal/state"
	"github.com/obentoo/nugetwatch/internal/watch"
)

// newHTTPClient returns the client shared by the registry and the webhook.
func newHTTPClient(cfg *config.Config) *httpclient.Client {
	hcfg := httpclient.DefaultConfig()
	hcfg.Timeout = cfg.HTTPTimeout
	return httpclient.NewWithConfig(hcfg)
}

// newWatcher wires the registry, state store and notifier for cfg.
// The caller owns the returned store and must close it.
func newWatcher(ctx context.Context, cfg *config.Config, opts ...watch.Option) (*watch.Watcher, state.Store, error) {
	store, err := state.Open(ctx, cfg.StorageConnectionString, cfg.Container)
	if err != nil {
		return nil, nil, fmt.Errorf("opening state store: %w", err)
	}

	hc := newHTTPClient(cfg)
	reg := registry.NewClient(cfg.SearchURL, hc)
	hook := notify.NewWebhook(cfg.AlertEndpoint, hc)
	logger.Debug("Querying %s, notifications go to %s", cfg.SearchURL, hook.Endpoint())

	opts = append([]watch.Option{watch.WithLogger(logger.Default())}, opts...)
	return watch.New(cfg, reg, store, hook, opts...), store, nil
}
