package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	httpadapter "github.com/aretw0/espalier/pkg/adapters/http"
	"github.com/aretw0/espalier/pkg/adapters/memory"
	"github.com/aretw0/espalier/pkg/flow"
	"github.com/aretw0/espalier/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wizard builds a two-step flow: the first POST records the completion URL,
// the second POST finishes the flow.
func wizard(t *testing.T) *flow.Registry {
	t.Helper()

	account := flow.NewLeaf("account",
		flow.WithHandler(func(in *flow.Instance, w http.ResponseWriter, r *http.Request) (flow.Outcome, error) {
			if r.Method == http.MethodPost {
				in.State().OnComplete = "/done"
				in.State().Set("email", r.PostFormValue("email"))
				return flow.Completed{}, nil
			}
			return flow.RespondText("account"), nil
		}))
	confirm := flow.NewLeaf("confirm",
		flow.WithHandler(func(in *flow.Instance, w http.ResponseWriter, r *http.Request) (flow.Outcome, error) {
			if r.Method == http.MethodPost {
				return flow.Completed{}, nil
			}
			return flow.RespondText("confirm %s", in.State().GetString("email")), nil
		}))

	signup := flow.NewBranch("signup",
		flow.WithChildren(account, confirm),
		flow.WithTransition(flow.NextSibling()))

	reg := flow.NewRegistry()
	require.NoError(t, reg.RegisterEntryPoint(signup))
	return reg
}

func newServer(t *testing.T) (http.Handler, *session.Manager) {
	t.Helper()
	sessions := session.NewManager(memory.NewStore())
	handler, err := httpadapter.NewHandler(wizard(t), sessions)
	require.NoError(t, err)
	return handler, sessions
}

func get(handler http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func postForm(handler http.Handler, target string, form url.Values) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, target, nil)
	r.PostForm = form
	handler.ServeHTTP(w, r)
	return w
}

// sessionOf extracts the session identifier from a Location header.
func sessionOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	return loc.Query().Get("_id")
}

func TestServer_EntryCreatesSessionAndRedirects(t *testing.T) {
	handler, sessions := newServer(t)

	w := get(handler, "/flows/signup/account")
	require.Equal(t, http.StatusFound, w.Code)

	id := sessionOf(t, w)
	require.True(t, session.ValidID(id))

	// The session is already persisted; following the redirect renders.
	_, err := sessions.Load(context.Background(), id)
	require.NoError(t, err)

	w = get(handler, w.Header().Get("Location"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "account", w.Body.String())
}

func TestServer_NonEntryRequiresSession(t *testing.T) {
	handler, _ := newServer(t)

	w := get(handler, "/flows/signup/confirm")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_MalformedSessionRejectedWithoutStoreAccess(t *testing.T) {
	store := &probeStore{inner: memory.NewStore()}
	sessions := session.NewManager(store)
	handler, err := httpadapter.NewHandler(wizard(t), sessions)
	require.NoError(t, err)

	w := get(handler, "/flows/signup/account?_id=../../etc/passwd")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, store.calls())
}

func TestServer_UnknownSessionAtNonEntry(t *testing.T) {
	handler, _ := newServer(t)

	w := get(handler, "/flows/signup/confirm?_id="+session.NewID())
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_StaleSessionAtEntryStartsOver(t *testing.T) {
	handler, _ := newServer(t)

	stale := session.NewID()
	w := get(handler, "/flows/signup/account?_id="+stale)
	require.Equal(t, http.StatusFound, w.Code)

	fresh := sessionOf(t, w)
	require.True(t, session.ValidID(fresh))
	assert.NotEqual(t, stale, fresh)
}

func TestServer_FullWalk(t *testing.T) {
	handler, sessions := newServer(t)
	ctx := context.Background()

	// Enter the flow.
	w := get(handler, "/flows/signup/account")
	require.Equal(t, http.StatusFound, w.Code)
	id := sessionOf(t, w)

	// Submit the first step.
	w = postForm(handler, "/flows/signup/account?_id="+id, url.Values{"email": {"x@example.com"}})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/flows/signup/confirm?_id="+id, w.Header().Get("Location"))

	// The state written at the first step is visible at the second.
	w = get(handler, w.Header().Get("Location"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "confirm x@example.com", w.Body.String())

	// Finish; the session is cleaned up.
	w = postForm(handler, "/flows/signup/confirm?_id="+id, url.Values{})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/done", w.Header().Get("Location"))

	_, err := sessions.Load(ctx, id)
	assert.ErrorIs(t, err, flow.ErrSessionNotFound)
}

// probeStore counts accesses to the wrapped store.
type probeStore struct {
	inner interface {
		Save(ctx context.Context, sessionID string, st *flow.State) error
		Load(ctx context.Context, sessionID string) (*flow.State, error)
		Delete(ctx context.Context, sessionID string) error
		List(ctx context.Context) ([]string, error)
	}
	mu sync.Mutex
	n  int
}

func (p *probeStore) count() {
	p.mu.Lock()
	p.n++
	p.mu.Unlock()
}

func (p *probeStore) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.n
}

func (p *probeStore) Save(ctx context.Context, sessionID string, st *flow.State) error {
	p.count()
	return p.inner.Save(ctx, sessionID, st)
}

func (p *probeStore) Load(ctx context.Context, sessionID string) (*flow.State, error) {
	p.count()
	return p.inner.Load(ctx, sessionID)
}

func (p *probeStore) Delete(ctx context.Context, sessionID string) error {
	p.count()
	return p.inner.Delete(ctx, sessionID)
}

func (p *probeStore) List(ctx context.Context) ([]string, error) {
	p.count()
	return p.inner.List(ctx)
}
