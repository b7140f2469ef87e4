// Package workspace tracks the active tenant context: the
// durable workspace id survives page reloads independently of
// the in-memory session, and every switch or restoration runs
// under its own single-flight guard.
package workspace

import (
	"context"
	"log/slog"

	"github.com/huzilerz/session-core/infra/storage"
	"github.com/huzilerz/session-core/internal/flight"
	"github.com/huzilerz/session-core/internal/model"
)

// Durable key holding the active workspace id
const StorageKey = "huzilerz:workspace:current"

// single-flight operation kinds
const (
	kindSwitch  = "switch"
	kindRestore = "restore"
)

// API. Workspace switch endpoint consumer.
type API interface {
	SwitchWorkspace(ctx context.Context, id string) (*model.WorkspaceContext, error)
}

// Tracker. Active workspace persistence + switch mediation.
type Tracker struct {
	api    API
	store  storage.Store
	flight flight.Group[*model.WorkspaceContext]
	logs   *slog.Logger
}

func NewTracker(api API, store storage.Store, logs *slog.Logger) *Tracker {
	if logs == nil {
		logs = slog.Default()
	}
	return &Tracker{
		api:   api,
		store: store,
		logs:  logs,
	}
}

// Switch issues the switch call for [id] and, on success,
// persists the id durably. Two switches never overlap: every
// concurrent caller of the same target joins one in-flight
// request. Failure leaves durable state untouched ; rollback
// of the in-memory context is the session store's concern.
func (t *Tracker) Switch(ctx context.Context, id string) (*model.WorkspaceContext, error) {
	return t.flight.Do(ctx, kindSwitch+":"+id, func(ctx context.Context) (*model.WorkspaceContext, error) {
		next, err := t.api.SwitchWorkspace(ctx, id)
		if err != nil {
			return nil, err
		}
		t.persist(ctx, next.ID)
		return next, nil
	})
}

// Leave clears the active context durably. Not undoable.
func (t *Tracker) Leave(ctx context.Context) {
	if t.store == nil {
		return
	}
	if err := t.store.Del(ctx, StorageKey); err != nil {
		t.logs.WarnContext(ctx, "workspace: durable clear failed",
			"error", err,
		)
	}
}

// PersistedID returns the durable workspace id, if any.
func (t *Tracker) PersistedID(ctx context.Context) string {
	if t.store == nil {
		return ""
	}
	id, err := t.store.Get(ctx, StorageKey)
	if err != nil {
		if !storage.IsNotFound(err) {
			t.logs.WarnContext(ctx, "workspace: durable read failed",
				"error", err,
			)
		}
		return ""
	}
	return id
}

// Restore attempts exactly one switch call for the durable
// workspace id. Parallel restoration attempts from several
// mounted components collapse into one network call. On
// failure the durable id is cleared rather than retried ;
// (nil, nil) means "nothing to restore".
func (t *Tracker) Restore(ctx context.Context) (*model.WorkspaceContext, error) {
	id := t.PersistedID(ctx)
	if id == "" {
		return nil, nil
	}
	restored, err := t.flight.Do(ctx, kindRestore, func(ctx context.Context) (*model.WorkspaceContext, error) {
		return t.api.SwitchWorkspace(ctx, id)
	})
	if err != nil {
		t.logs.WarnContext(ctx, "workspace: restoration failed ; clearing durable id",
			"workspace_id", id,
			"error", err,
		)
		t.Leave(ctx)
		return nil, err
	}
	return restored, nil
}

func (t *Tracker) persist(ctx context.Context, id string) {
	if t.store == nil || id == "" {
		return
	}
	if err := t.store.Set(ctx, StorageKey, id); err != nil {
		t.logs.WarnContext(ctx, "workspace: durable write failed",
			"workspace_id", id,
			"error", err,
		)
	}
}
