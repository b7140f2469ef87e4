package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/huzilerz/session-core/infra/storage"
	"github.com/huzilerz/session-core/internal/client/api"
	"github.com/huzilerz/session-core/internal/errors"
	"github.com/huzilerz/session-core/internal/model"
	"github.com/huzilerz/session-core/internal/token"
	"github.com/huzilerz/session-core/internal/workspace"
)

// bearerFor fabricates a decodable (unverified) JWS compact
// token for [userID] expiring in [expiresIn] seconds.
func bearerFor(t *testing.T, userID int64, expiresIn int64, version string) string {
	t.Helper()
	claims := model.Claims{
		UserID:    userID,
		Email:     "owner@shop.test",
		Username:  "owner",
		IssuedAt:  time.Now().Unix(),
		ExpiresAt: time.Now().Add(time.Duration(expiresIn) * time.Second).Unix(),
		Type:      model.TokenTypeAccess,
		TokenID:   "jti-test",
	}
	if version != "" {
		claims.Subscription = &model.SubscriptionClaims{
			Tier:                "pro",
			Status:              "active",
			CapabilitiesVersion: version,
		}
	}
	payload, err := json.Marshal(&claims)
	if err != nil {
		t.Fatalf("marshal claims: %v", err)
	}
	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`)) +
		"." + enc.EncodeToString(payload) +
		"." + enc.EncodeToString([]byte("sig"))
}

// fakeBackend implements the session API and the workspace
// tracker API with programmable outcomes and gates.
type fakeBackend struct {
	mu sync.Mutex

	loginRes *api.AuthResult
	loginErr error

	refreshRes   *api.TokenResult
	refreshErr   error
	refreshCalls atomic.Int32
	refreshGate  chan struct{} // block refresh until closed, if set
	refreshBusy  chan struct{} // closed once the first refresh entered

	switchRes   map[string]*model.WorkspaceContext
	switchErr   error
	switchCalls atomic.Int32
	switchGate  chan struct{}
	switchBusy  chan struct{}

	capsRes *model.EntitlementSnapshot

	logoutCalls atomic.Int32
}

func (f *fakeBackend) Login(_ context.Context, _ model.Credentials) (*api.AuthResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loginRes, f.loginErr
}

func (f *fakeBackend) Register(ctx context.Context, _ model.Registration) (*api.AuthResult, error) {
	return f.Login(ctx, model.Credentials{})
}

func (f *fakeBackend) Refresh(_ context.Context) (*api.TokenResult, error) {
	if f.refreshCalls.Add(1) == 1 && f.refreshBusy != nil {
		close(f.refreshBusy)
	}
	if f.refreshGate != nil {
		<-f.refreshGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshRes, f.refreshErr
}

func (f *fakeBackend) Logout(_ context.Context) error {
	f.logoutCalls.Add(1)
	return nil
}

func (f *fakeBackend) SwitchWorkspace(_ context.Context, id string) (*model.WorkspaceContext, error) {
	if f.switchCalls.Add(1) == 1 && f.switchBusy != nil {
		close(f.switchBusy)
	}
	if f.switchGate != nil {
		<-f.switchGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.switchErr != nil {
		return nil, f.switchErr
	}
	if ws, ok := f.switchRes[id]; ok {
		return ws.Clone(), nil
	}
	return nil, errors.NotFound(errors.Status(errors.StatusNotFound))
}

func (f *fakeBackend) Capabilities(_ context.Context) (*model.EntitlementSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.capsRes == nil {
		return nil, errors.NotFound()
	}
	return f.capsRes.Clone(), nil
}

func newTestStore(t *testing.T, backend *fakeBackend) *Store {
	t.Helper()
	store, err := NewStore(StoreOptions{
		Client: backend,
		Codec:  token.InsecureCodec(),
		Workspaces: workspace.NewTracker(
			backend, storage.NewMemory(), nil,
		),
	})
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return store
}

func authResult(t *testing.T, userID int64, workspaces ...model.WorkspaceSummary) *api.AuthResult {
	t.Helper()
	return &api.AuthResult{
		Token:     bearerFor(t, userID, 900, "v1_xyz"),
		ExpiresIn: 900,
		User: model.User{
			ID:       userID,
			Email:    "owner@shop.test",
			Username: "owner",
		},
		Workspaces: workspaces,
	}
}

func login(t *testing.T, store *Store, backend *fakeBackend, workspaces ...model.WorkspaceSummary) {
	t.Helper()
	backend.mu.Lock()
	backend.loginRes = authResult(t, 42, workspaces...)
	backend.mu.Unlock()
	if err := store.Login(context.Background(), model.Credentials{Email: "owner@shop.test"}); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
}

// checkInvariant: authenticated ⇔ token ≠ nil ∧ user ≠ nil.
func checkInvariant(t *testing.T, snap Snapshot) {
	t.Helper()
	authed := snap.Status == StatusAuthenticated
	if authed != (snap.Token != nil) || authed != (snap.User != nil) {
		t.Errorf("invariant broken: status=%s token=%v user=%v",
			snap.Status, snap.Token != nil, snap.User != nil)
	}
}

func TestLoginAuthenticated(t *testing.T) {
	backend := &fakeBackend{}
	store := newTestStore(t, backend)

	login(t, store, backend, model.WorkspaceSummary{ID: "ws-1", Name: "Main"})

	snap := store.Snapshot()
	checkInvariant(t, snap)
	if snap.Status != StatusAuthenticated {
		t.Fatalf("status = %s, want authenticated", snap.Status)
	}
	if snap.User.ID != 42 {
		t.Errorf("user.ID = %d, want 42", snap.User.ID)
	}
	if snap.Claims == nil || snap.Claims.CapabilitiesVersion() != "v1_xyz" {
		t.Errorf("claims version = %v, want v1_xyz", snap.Claims)
	}
	if len(snap.Workspaces) != 1 || snap.Workspaces[0].ID != "ws-1" {
		t.Errorf("available workspaces = %v", snap.Workspaces)
	}
}

func TestLoginFailure(t *testing.T) {
	backend := &fakeBackend{
		loginErr: errors.Unauthorized(errors.Message("bad credentials")),
	}
	store := newTestStore(t, backend)

	if err := store.Login(context.Background(), model.Credentials{}); err == nil {
		t.Fatal("Login() expected error")
	}
	snap := store.Snapshot()
	checkInvariant(t, snap)
	if snap.Status != StatusError {
		t.Errorf("status = %s, want error", snap.Status)
	}
	if snap.LastError == "" {
		t.Error("LastError not retained")
	}
}

func TestRefreshPreservesWorkspace(t *testing.T) {
	backend := &fakeBackend{
		switchRes: map[string]*model.WorkspaceContext{
			"ws-1": {ID: "ws-1", Name: "Main", Role: "owner", Permissions: []string{"catalog.write"}},
		},
	}
	store := newTestStore(t, backend)
	login(t, store, backend, model.WorkspaceSummary{ID: "ws-1"})

	if _, err := store.SwitchWorkspace(context.Background(), "ws-1"); err != nil {
		t.Fatalf("SwitchWorkspace() error = %v", err)
	}
	before := store.Snapshot()

	backend.mu.Lock()
	backend.refreshRes = &api.TokenResult{
		Token:     bearerFor(t, 42, 900, "v2_abc"),
		ExpiresIn: 900,
	}
	backend.mu.Unlock()

	if err := store.RefreshSafe(context.Background()); err != nil {
		t.Fatalf("RefreshSafe() error = %v", err)
	}
	after := store.Snapshot()
	checkInvariant(t, after)
	if after.Token.Token == before.Token.Token {
		t.Error("token not replaced by refresh")
	}
	if !after.Workspace.Equal(before.Workspace) {
		t.Errorf("workspace clobbered by refresh: %+v != %+v", after.Workspace, before.Workspace)
	}
}

func TestConcurrentRefreshSingleFlight(t *testing.T) {
	backend := &fakeBackend{
		refreshGate: make(chan struct{}),
		refreshBusy: make(chan struct{}),
	}
	store := newTestStore(t, backend)
	login(t, store, backend)

	backend.mu.Lock()
	backend.refreshRes = &api.TokenResult{
		Token:     bearerFor(t, 42, 900, "v1_xyz"),
		ExpiresIn: 900,
	}
	backend.mu.Unlock()

	const callers = 6
	var (
		wg     sync.WaitGroup
		faults [callers]error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		faults[0] = store.RefreshSafe(context.Background())
	}()
	<-backend.refreshBusy

	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			faults[i] = store.RefreshSafe(context.Background())
		}(i)
	}
	time.Sleep(100 * time.Millisecond) // let every caller join the ticket
	close(backend.refreshGate)
	wg.Wait()

	if n := backend.refreshCalls.Load(); n != 1 {
		t.Errorf("refresh network calls = %d, want 1", n)
	}
	for i, err := range faults {
		if err != nil {
			t.Errorf("caller %d error = %v", i, err)
		}
	}
}

func TestLogoutWinsOverInflightRefresh(t *testing.T) {
	backend := &fakeBackend{
		refreshGate: make(chan struct{}),
		refreshBusy: make(chan struct{}),
	}
	store := newTestStore(t, backend)
	login(t, store, backend)

	backend.mu.Lock()
	backend.refreshRes = &api.TokenResult{
		Token:     bearerFor(t, 42, 900, "v1_xyz"),
		ExpiresIn: 900,
	}
	backend.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- store.RefreshSafe(context.Background())
	}()
	<-backend.refreshBusy

	// logout while the refresh is suspended on the network
	store.Logout(context.Background())
	if got := store.Status(); got != StatusIdle {
		t.Fatalf("status after logout = %s, want idle", got)
	}

	// the refresh resolves successfully ; its result MUST be
	// discarded — it may not resurrect the session
	close(backend.refreshGate)
	<-done

	snap := store.Snapshot()
	checkInvariant(t, snap)
	if snap.Status != StatusIdle {
		t.Errorf("status after stale refresh = %s, want idle", snap.Status)
	}
}

func TestRefreshFailureForcesLogout(t *testing.T) {
	backend := &fakeBackend{
		refreshErr: errors.Unauthorized(errors.Message("refresh cookie revoked")),
	}
	store := newTestStore(t, backend)
	login(t, store, backend)

	if err := store.RefreshSafe(context.Background()); err == nil {
		t.Fatal("RefreshSafe() expected error")
	}
	snap := store.Snapshot()
	checkInvariant(t, snap)
	if snap.Status != StatusIdle {
		t.Errorf("status = %s, want idle after terminal refresh failure", snap.Status)
	}
}

func TestRestoreSessionSilentIdle(t *testing.T) {
	backend := &fakeBackend{
		refreshErr: errors.Unauthorized(errors.Message("no refresh cookie")),
	}
	store := newTestStore(t, backend)

	// expected, non-error outcome for a never-logged-in visitor
	if err := store.RestoreSession(context.Background()); err != nil {
		t.Fatalf("RestoreSession() error = %v, want nil", err)
	}
	snap := store.Snapshot()
	checkInvariant(t, snap)
	if snap.Status != StatusIdle {
		t.Errorf("status = %s, want idle", snap.Status)
	}
	if !snap.Initialized {
		t.Error("session not marked initialized")
	}
}

func TestRestoreSessionFromRefresh(t *testing.T) {
	backend := &fakeBackend{
		refreshRes: &api.TokenResult{
			Token:     "", // filled below
			ExpiresIn: 900,
		},
	}
	backend.refreshRes.Token = bearerFor(t, 42, 900, "v1_xyz")
	store := newTestStore(t, backend)

	if err := store.RestoreSession(context.Background()); err != nil {
		t.Fatalf("RestoreSession() error = %v", err)
	}
	snap := store.Snapshot()
	checkInvariant(t, snap)
	if snap.Status != StatusAuthenticated {
		t.Fatalf("status = %s, want authenticated", snap.Status)
	}
	if snap.User.ID != 42 || snap.User.Email != "owner@shop.test" {
		t.Errorf("identity not rebuilt from claims: %+v", snap.User)
	}
}

func TestSnapshotDeepCopy(t *testing.T) {
	backend := &fakeBackend{}
	store := newTestStore(t, backend)
	login(t, store, backend)

	snap := store.Snapshot()
	if snap.Claims == nil || snap.Claims.Subscription == nil {
		t.Fatalf("claims = %+v, want subscription grant", snap.Claims)
	}
	// mutating the copy must not reach the live session
	snap.Claims.Subscription.CapabilitiesVersion = "mutated"
	snap.User.Email = "mutated@shop.test"

	fresh := store.Snapshot()
	if got := fresh.Claims.CapabilitiesVersion(); got != "v1_xyz" {
		t.Errorf("claims version = %q, want v1_xyz", got)
	}
	if fresh.User.Email != "owner@shop.test" {
		t.Errorf("user email = %q, want owner@shop.test", fresh.User.Email)
	}
}

func TestPatchUser(t *testing.T) {
	backend := &fakeBackend{}
	store := newTestStore(t, backend)

	// no-op on an idle session
	email := "new@shop.test"
	store.PatchUser(model.UserPatch{Email: &email})
	if snap := store.Snapshot(); snap.User != nil {
		t.Fatalf("user = %+v on idle session", snap.User)
	}

	login(t, store, backend)
	store.PatchUser(model.UserPatch{Email: &email})
	snap := store.Snapshot()
	if snap.User.Email != email {
		t.Errorf("email = %q, want %q", snap.User.Email, email)
	}
	// untouched fields survive
	if snap.User.ID != 42 || snap.User.Username != "owner" {
		t.Errorf("identity clobbered: %+v", snap.User)
	}
}

func TestPredicatesNeverThrow(t *testing.T) {
	backend := &fakeBackend{}
	store := newTestStore(t, backend)

	// idle session: every predicate answers false
	if store.HasPermission("catalog.write") {
		t.Error("HasPermission() = true on idle session")
	}
	if store.Can("deployment_allowed") {
		t.Error("Can() = true on idle session")
	}
	if store.BearerToken() != "" || store.WorkspaceID() != "" {
		t.Error("credentials non-empty on idle session")
	}
}
