package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"go-offline-cache/internal/client"
	"go-offline-cache/internal/config"
	"go-offline-cache/internal/models"
)

const (
	eventsPath        = "/_offline/events"
	defaultRetryDelay = 5 * time.Second
)

func newWatchCmd(opts *globalOptions) *cobra.Command {
	var (
		proxyAddr  string
		retryDelay time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow a running proxy like an open page and reload it on controller changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(opts.verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			manifest, err := loadManifest(opts)
			if err != nil {
				return err
			}
			w, err := newPageWatcher(proxyAddr, manifest, logger)
			if err != nil {
				return err
			}
			w.retryDelay = retryDelay

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return w.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&proxyAddr, "proxy", "http://localhost:8080", "base URL of the running proxy")
	cmd.Flags().DurationVar(&retryDelay, "retry", defaultRetryDelay, "delay before reconnecting a dropped events stream")
	return cmd
}

// loadManifest reads the precache manifest from the config file
func loadManifest(opts *globalOptions) ([]string, error) {
	overrides, err := config.LoadEnv()
	if err != nil {
		return nil, err
	}
	configPath := opts.configPath
	if configPath == "" {
		configPath = overrides.ConfigFile
	}
	cfg, err := config.LoadConfig(configPath, overrides, zap.NewNop())
	if err != nil {
		return nil, err
	}
	return cfg.Manifest, nil
}

// pageWatcher plays the part of an open page: it listens on the events
// stream and, when a new generation takes control, requests the page's
// same-origin manifest entries again through the proxy.
type pageWatcher struct {
	proxy      *url.URL
	eventsURL  string
	pages      []string
	client     *http.Client
	logger     *zap.Logger
	retryDelay time.Duration

	// onReload is called after every reload with the number of pages fetched
	onReload func(fetched int)
}

func newPageWatcher(proxyAddr string, manifest []string, logger *zap.Logger) (*pageWatcher, error) {
	proxy, err := url.Parse(proxyAddr)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy address: %w", err)
	}
	if proxy.Scheme != "http" && proxy.Scheme != "https" {
		return nil, fmt.Errorf("invalid proxy address %q: scheme must be http or https", proxyAddr)
	}

	// Cross-origin entries would need CONNECT through the proxy; pages only
	// reload their own documents.
	var pages []string
	for _, entry := range manifest {
		if strings.HasPrefix(entry, "/") && !strings.HasPrefix(entry, "//") {
			pages = append(pages, entry)
		}
	}

	return &pageWatcher{
		proxy:      proxy,
		eventsURL:  proxy.ResolveReference(&url.URL{Path: eventsPath}).String(),
		pages:      pages,
		client:     &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
		retryDelay: defaultRetryDelay,
	}, nil
}

// Run follows the events stream until ctx is done. Each reload starts a
// new page with a fresh stream; dropped streams are retried.
func (w *pageWatcher) Run(ctx context.Context) error {
	w.logger.Info("Watching proxy", zap.String("events", w.eventsURL), zap.Int("pages", len(w.pages)))

	for {
		pageCtx, closePage := context.WithCancel(ctx)
		reloader := client.NewReloader(w.eventsURL, func() {
			w.reload(ctx)
			closePage()
		}, w.logger)
		reloader.OnNotification(func(n models.Notification) {
			w.logger.Info("Notification",
				zap.String("title", n.Title),
				zap.String("body", n.Body),
				zap.String("tag", n.Tag))
		})

		err := reloader.Run(pageCtx)
		closePage()

		if ctx.Err() != nil {
			return nil
		}
		if reloader.Reloaded() {
			continue
		}
		if err != nil {
			w.logger.Warn("Events stream failed", zap.Error(err), zap.Duration("retry", w.retryDelay))
		} else {
			w.logger.Info("Events stream closed", zap.Duration("retry", w.retryDelay))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(w.retryDelay):
		}
	}
}

func (w *pageWatcher) reload(ctx context.Context) {
	fetched := 0
	for _, page := range w.pages {
		ref, err := url.Parse(page)
		if err != nil {
			w.logger.Warn("Skipping invalid page", zap.String("page", page), zap.Error(err))
			continue
		}
		target := w.proxy.ResolveReference(ref).String()
		if err := w.fetch(ctx, target); err != nil {
			w.logger.Warn("Reload request failed", zap.String("url", target), zap.Error(err))
			continue
		}
		fetched++
	}
	w.logger.Info("Page reloaded", zap.Int("fetched", fetched), zap.Int("pages", len(w.pages)))
	if w.onReload != nil {
		w.onReload(fetched)
	}
}

func (w *pageWatcher) fetch(ctx context.Context, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
