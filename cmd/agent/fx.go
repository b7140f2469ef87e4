package agent

import (
	"context"

	"go.uber.org/fx"

	"github.com/huzilerz/session-core/cmd"
	"github.com/huzilerz/session-core/config"
	"github.com/huzilerz/session-core/internal/client/api"
	"github.com/huzilerz/session-core/internal/crosstab"
	"github.com/huzilerz/session-core/internal/session"
)

func NewApp(cfg *config.Config) *fx.App {
	return fx.New(
		fx.Provide(
			func() *config.Config { return cfg },
			cmd.ProvideLogger,
			cmd.ProvidePubSub,
			cmd.ProvideStorage,
			cmd.ProvideAPIClient,
			cmd.ProvideTokenCodec,
			cmd.ProvideSynchronizer,
			cmd.ProvideWorkspaceTracker,
			cmd.ProvideEntitlementCache,
			cmd.ProvideSessionAPI,
		),
		session.Module,
		fx.Invoke(run),
	)
}

// run wires the store into the client header contract, joins
// the cross-surface bus and restores any prior session.
func run(lc fx.Lifecycle, client *api.Client, store *session.Store, sync *crosstab.Synchronizer, sd fx.Shutdowner) {

	// the store both consumes the client and supplies its
	// authorization headers ; bind after construction
	client.Bind(store)

	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := sync.Run(ctx, store.ApplyRemote); err != nil {
					_ = sd.Shutdown()
				}
			}()
			go store.AutoRefresh(ctx)
			go func() {
				_ = store.RestoreSession(ctx)
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
