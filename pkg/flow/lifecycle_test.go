package flow_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aretw0/espalier/pkg/flow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSessionID = "cafe0000cafe0000cafe0000cafe0000"

// recordingStore captures the life cycle's persistence calls.
type recordingStore struct {
	saved   map[string]*flow.State
	deleted []string
}

func newRecordingStore() *recordingStore {
	return &recordingStore{saved: make(map[string]*flow.State)}
}

func (r *recordingStore) Save(ctx context.Context, sessionID string, st *flow.State) error {
	r.saved[sessionID] = st
	return nil
}

func (r *recordingStore) Delete(ctx context.Context, sessionID string) error {
	r.deleted = append(r.deleted, sessionID)
	return nil
}

// signupRegistry builds a three-step wizard whose leaves echo their name on
// GET and complete on POST.
func signupRegistry(t *testing.T) *flow.Registry {
	t.Helper()

	step := func(name string) *flow.Leaf {
		return flow.NewLeaf(name,
			flow.WithHandler(func(in *flow.Instance, w http.ResponseWriter, r *http.Request) (flow.Outcome, error) {
				if r.Method == http.MethodPost {
					return flow.Completed{}, nil
				}
				return flow.RespondText("step: %s", name), nil
			}))
	}

	signup := flow.NewBranch("signup",
		flow.WithChildren(step("account"), step("profile"), step("confirm")),
		flow.WithTransition(flow.NextSibling()))

	reg := flow.NewRegistry()
	require.NoError(t, reg.RegisterEntryPoint(signup))
	require.NoError(t, reg.Bind())
	return reg
}

func handleAt(t *testing.T, reg *flow.Registry, name, method string, st *flow.State, store flow.Saver) (*httptest.ResponseRecorder, error) {
	t.Helper()
	p, err := reg.PositionByName(name)
	require.NoError(t, err)

	in := p.NewInstance(st)
	r := httptest.NewRequest(method, "http://example.com"+p.RoutePattern()+"?_id="+st.ID, nil)
	w := httptest.NewRecorder()
	return w, in.Handle(w, r, store)
}

func TestHandle_GetRendersAndPersists(t *testing.T) {
	reg := signupRegistry(t)
	store := newRecordingStore()
	st := flow.NewState(testSessionID)

	w, err := handleAt(t, reg, "signup/account", http.MethodGet, st, store)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "step: account", w.Body.String())

	// A rendered GET is remembered and the state written back.
	require.Len(t, st.History, 1)
	assert.Equal(t, "signup/account", st.History[0].Position)
	assert.Contains(t, store.saved, testSessionID)
	assert.Empty(t, store.deleted)
}

func TestHandle_PostAdvancesToNextSibling(t *testing.T) {
	reg := signupRegistry(t)
	store := newRecordingStore()
	st := flow.NewState(testSessionID)

	w, err := handleAt(t, reg, "signup/account", http.MethodPost, st, store)
	require.NoError(t, err)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/flows/signup/profile?_id="+testSessionID, w.Header().Get("Location"))

	// Redirects are never recorded in the history.
	assert.Empty(t, st.History)
	assert.Contains(t, store.saved, testSessionID)
}

func TestHandle_FinalStepCompletesFlow(t *testing.T) {
	reg := signupRegistry(t)
	store := newRecordingStore()
	st := flow.NewState(testSessionID)
	st.OnComplete = "/done"

	w, err := handleAt(t, reg, "signup/confirm", http.MethodPost, st, store)
	require.NoError(t, err)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/done", w.Header().Get("Location"))

	// Completion cleans up instead of persisting.
	assert.Equal(t, []string{testSessionID}, store.deleted)
	assert.Empty(t, store.saved)
}

func TestHandle_CompletionWithoutDestination(t *testing.T) {
	reg := signupRegistry(t)
	store := newRecordingStore()
	st := flow.NewState(testSessionID)

	_, err := handleAt(t, reg, "signup/confirm", http.MethodPost, st, store)

	var missing *flow.MissingCompletionError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "signup/confirm", missing.Position)
	assert.Empty(t, store.deleted)
}

func TestHandle_CompletionWithoutTransitionPolicy(t *testing.T) {
	leaf := flow.NewLeaf("only",
		flow.WithHandler(func(in *flow.Instance, w http.ResponseWriter, r *http.Request) (flow.Outcome, error) {
			return flow.Completed{}, nil
		}))
	root := flow.NewBranch("bare", flow.WithChildren(leaf, flow.NewLeaf("other")))

	reg := flow.NewRegistry()
	require.NoError(t, reg.RegisterEntryPoint(root))
	require.NoError(t, reg.Bind())

	st := flow.NewState(testSessionID)
	_, err := handleAt(t, reg, "bare/only", http.MethodPost, st, newRecordingStore())

	var missing *flow.MissingTransitionError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "bare", missing.Branch)
}

func TestHandle_GotoRedirectsToSibling(t *testing.T) {
	jump := flow.NewLeaf("jump",
		flow.WithHandler(func(in *flow.Instance, w http.ResponseWriter, r *http.Request) (flow.Outcome, error) {
			return flow.Goto{Target: "landing"}, nil
		}))
	landing := flow.NewLeaf("landing")
	root := flow.NewBranch("hop",
		flow.WithChildren(jump, landing),
		flow.WithTransition(flow.NextSibling()))

	reg := flow.NewRegistry()
	require.NoError(t, reg.RegisterEntryPoint(root))
	require.NoError(t, reg.Bind())

	st := flow.NewState(testSessionID)
	store := newRecordingStore()
	w, err := handleAt(t, reg, "hop/jump", http.MethodPost, st, store)
	require.NoError(t, err)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/flows/hop/landing?_id="+testSessionID, w.Header().Get("Location"))
	assert.Contains(t, store.saved, testSessionID)
}

func TestHandle_PreconditionShortCircuits(t *testing.T) {
	handled := false
	guarded := flow.NewLeaf("guarded",
		flow.WithPreconditions(flow.RequireValue("auth", "/login")),
		flow.WithHandler(func(in *flow.Instance, w http.ResponseWriter, r *http.Request) (flow.Outcome, error) {
			handled = true
			return flow.RespondText("secret"), nil
		}))
	root := flow.NewBranch("area",
		flow.WithChildren(guarded),
		flow.WithTransition(flow.NextSibling()))

	reg := flow.NewRegistry()
	require.NoError(t, reg.RegisterEntryPoint(root))
	require.NoError(t, reg.Bind())

	st := flow.NewState(testSessionID)
	w, err := handleAt(t, reg, "area/guarded", http.MethodGet, st, newRecordingStore())
	require.NoError(t, err)

	assert.False(t, handled)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
	assert.Empty(t, st.History)

	// With the guard satisfied the leaf runs normally.
	st.Set("auth", true)
	w, err = handleAt(t, reg, "area/guarded", http.MethodGet, st, newRecordingStore())
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, "secret", w.Body.String())
}

// gatekeeper intercepts every request under its branch during PREPARING.
type gatekeeper struct{}

func (gatekeeper) Prepare(in *flow.Instance, r *http.Request) (flow.Outcome, error) {
	if in.State().GetString("mode") == "closed" {
		return flow.Redirect{URL: "/closed"}, nil
	}
	return nil, nil
}

func TestHandle_PrepareSkipsDispatch(t *testing.T) {
	handled := false
	inner := flow.NewLeaf("inner",
		flow.WithHandler(func(in *flow.Instance, w http.ResponseWriter, r *http.Request) (flow.Outcome, error) {
			handled = true
			return flow.RespondText("inner"), nil
		}))
	root := flow.NewBranch("gated",
		flow.WithStep(func() any { return gatekeeper{} }),
		flow.WithChildren(inner),
		flow.WithTransition(flow.NextSibling()))

	reg := flow.NewRegistry()
	require.NoError(t, reg.RegisterEntryPoint(root))
	require.NoError(t, reg.Bind())

	st := flow.NewState(testSessionID)
	st.Set("mode", "closed")

	w, err := handleAt(t, reg, "gated/inner", http.MethodGet, st, newRecordingStore())
	require.NoError(t, err)

	assert.False(t, handled)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/closed", w.Header().Get("Location"))

	// Nothing rendered, nothing remembered.
	assert.Empty(t, st.History)
}

// rewriter overrides the default branch resolution during RESOLVING.
type rewriter struct{}

func (rewriter) HandleOutcome(in *flow.Instance, out flow.Outcome) (flow.Outcome, error) {
	if _, done := out.(flow.Completed); done {
		return flow.Redirect{URL: "/custom"}, nil
	}
	return out, nil
}

func TestHandle_OutcomeHandlerOverridesTransition(t *testing.T) {
	leaf := flow.NewLeaf("end",
		flow.WithHandler(func(in *flow.Instance, w http.ResponseWriter, r *http.Request) (flow.Outcome, error) {
			return flow.Completed{}, nil
		}))
	// No transition policy: the branch step's outcome handler takes over.
	root := flow.NewBranch("custom",
		flow.WithStep(func() any { return rewriter{} }),
		flow.WithChildren(leaf))

	reg := flow.NewRegistry()
	require.NoError(t, reg.RegisterEntryPoint(root))
	require.NoError(t, reg.Bind())

	st := flow.NewState(testSessionID)
	w, err := handleAt(t, reg, "custom/end", http.MethodPost, st, newRecordingStore())
	require.NoError(t, err)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/custom", w.Header().Get("Location"))
}

func TestHandle_DefaultLeafDispatch(t *testing.T) {
	bare := flow.NewLeaf("bare")
	root := flow.NewBranch("plain",
		flow.WithChildren(bare, flow.NewLeaf("after")),
		flow.WithTransition(flow.NextSibling()))

	reg := flow.NewRegistry()
	require.NoError(t, reg.RegisterEntryPoint(root))
	require.NoError(t, reg.Bind())

	st := flow.NewState(testSessionID)
	store := newRecordingStore()

	// A GET renders a minimal page.
	w, err := handleAt(t, reg, "plain/bare", http.MethodGet, st, store)
	require.NoError(t, err)
	assert.Equal(t, "bare\n", w.Body.String())

	// A POST reports completion and the transition advances.
	w, err = handleAt(t, reg, "plain/bare", http.MethodPost, st, store)
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/flows/plain/after?_id="+testSessionID, w.Header().Get("Location"))
}
