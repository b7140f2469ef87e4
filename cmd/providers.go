package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"

	sfmt "github.com/samber/slog-formatter"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"go.uber.org/fx"

	"github.com/huzilerz/session-core/config"
	"github.com/huzilerz/session-core/infra/pubsub"
	"github.com/huzilerz/session-core/infra/pubsub/factory"
	"github.com/huzilerz/session-core/infra/pubsub/factory/amqp"
	"github.com/huzilerz/session-core/infra/pubsub/factory/gochannel"
	"github.com/huzilerz/session-core/infra/storage"
	"github.com/huzilerz/session-core/internal/client/api"
	"github.com/huzilerz/session-core/internal/crosstab"
	"github.com/huzilerz/session-core/internal/entitlement"
	"github.com/huzilerz/session-core/internal/session"
	"github.com/huzilerz/session-core/internal/token"
	"github.com/huzilerz/session-core/internal/workspace"
)

func ProvideLogger(cfg *config.Config, lc fx.Lifecycle) (*slog.Logger, error) {
	logSettings := cfg.Log

	if !logSettings.Console && logSettings.File == "" {
		logSettings.Console = true
	}

	level := parseLevel(logSettings.Level)
	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handlers []slog.Handler

	if logSettings.Console {
		var h slog.Handler
		if logSettings.JSON {
			h = slog.NewJSONHandler(os.Stdout, opts)
		} else {
			h = console(os.Stdout, level)
		}
		handlers = append(handlers, h)
	}

	// File Handler
	if logSettings.File != "" {
		f, err := os.OpenFile(logSettings.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}

		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return f.Close()
			},
		})

		var h slog.Handler
		if logSettings.JSON {
			h = slog.NewJSONHandler(f, opts)
		} else {
			h = slog.NewTextHandler(f, opts)
		}
		handlers = append(handlers, h)
	}

	var finalHandler slog.Handler
	if len(handlers) == 0 {
		finalHandler = slog.NewTextHandler(os.Stdout, opts)
	} else if len(handlers) == 1 {
		finalHandler = handlers[0]
	} else {
		finalHandler = MultiHandler(handlers...)
	}

	logger := slog.New(finalHandler)
	slog.SetDefault(logger)

	return logger, nil
}

func parseLevel(input string) (level slog.Level) {
	err := level.UnmarshalText([]byte(input))
	if err != nil {
		// default: info
		level = slog.LevelInfo
	}
	return // level
}

func console(output *os.File, verbose slog.Level) slog.Handler {
	colorize, _ := strconv.ParseBool(
		os.Getenv("HUZILERZ_LOG_COLOR"),
	)
	if colorize {
		colorize = isatty.IsTerminal(
			output.Fd(),
		)
	}
	return sfmt.NewFormatterHandler(
		sfmt.ErrorFormatter("err"),
		sfmt.ErrorFormatter("error"),
	)(
		tint.NewHandler(output, &tint.Options{
			AddSource:  false,
			Level:      verbose.Level(),
			TimeFormat: "Jan 02 15:04:05.000", // time.StampMilli,
			NoColor:    !colorize,
		}),
	)
}

type multiHandler struct {
	handlers []slog.Handler
}

func MultiHandler(handlers ...slog.Handler) slog.Handler {
	return &multiHandler{handlers: handlers}
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, hh := range h.handlers {
		if hh.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, hh := range h.handlers {
		if hh.Enabled(ctx, r.Level) {
			_ = hh.Handle(ctx, r)
		}
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newHandlers := make([]slog.Handler, len(h.handlers))
	for i, hh := range h.handlers {
		newHandlers[i] = hh.WithAttrs(attrs)
	}
	return &multiHandler{handlers: newHandlers}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	newHandlers := make([]slog.Handler, len(h.handlers))
	for i, hh := range h.handlers {
		newHandlers[i] = hh.WithGroup(name)
	}
	return &multiHandler{handlers: newHandlers}
}

func ProvidePubSub(cfg *config.Config, l *slog.Logger, lc fx.Lifecycle) (pubsub.Provider, error) {

	var (
		pubsubConfig  = cfg.Pubsub
		loggerAdapter = watermill.NewSlogLogger(l)
		pubsubFactory factory.Factory
		err           error
	)

	switch pubsubConfig.Driver {
	case "channel", "":
		pubsubFactory = gochannel.NewFactory(loggerAdapter)
	case "amqp":
		pubsubFactory, err = amqp.NewFactory(pubsubConfig.URL, loggerAdapter)
		if err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("pubsub driver not supported")
	}

	provider, err := pubsub.NewDefaultProvider(pubsubFactory, cfg.Service.Id)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return provider.Close()
		},
	})

	return provider, nil
}

func ProvideStorage(cfg *config.Config, lc fx.Lifecycle) (storage.Store, error) {
	switch cfg.Storage.Driver {
	case "file", "":
		return storage.NewFile(cfg.Storage.Path)
	case "memory":
		return storage.NewMemory(), nil
	case "redis":
		store, err := storage.NewRedis(cfg.Storage.URL)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return store.Close()
			},
		})
		return store, nil
	}
	return nil, errors.New("storage driver not supported")
}

func ProvideAPIClient(cfg *config.Config, l *slog.Logger) (*api.Client, error) {
	return api.NewClient(api.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
	}, l)
}

func ProvideTokenCodec(cfg *config.Config) *token.Codec {
	return token.InsecureCodec(
		token.WithSkew(cfg.Session.RefreshSkew),
	)
}

func ProvideSynchronizer(cfg *config.Config, bus pubsub.Provider, l *slog.Logger) *crosstab.Synchronizer {
	return crosstab.New(bus, l,
		crosstab.WithTopic(cfg.Pubsub.Topic),
		crosstab.WithTTL(cfg.Session.BroadcastTTL),
	)
}

func ProvideWorkspaceTracker(client *api.Client, store storage.Store, l *slog.Logger) *workspace.Tracker {
	return workspace.NewTracker(client, store, l)
}

func ProvideEntitlementCache(cfg *config.Config, client *api.Client, store storage.Store, l *slog.Logger) *entitlement.Cache {
	return entitlement.NewCache(client, store, l,
		entitlement.WithMemoryTTL(cfg.Session.EntitlementTTL),
	)
}

func ProvideSessionAPI(client *api.Client) session.API {
	return client
}
