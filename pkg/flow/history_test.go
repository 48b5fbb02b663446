package flow_test

import (
	"net/http"
	"testing"

	"github.com/aretw0/espalier/pkg/flow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// historyRegistry is a wizard with a non-revisitable middle step.
func historyRegistry(t *testing.T) *flow.Registry {
	t.Helper()

	page := func(name string, opts ...flow.Option) *flow.Leaf {
		opts = append(opts, flow.WithHandler(func(in *flow.Instance, w http.ResponseWriter, r *http.Request) (flow.Outcome, error) {
			if r.Method == http.MethodPost {
				return flow.Completed{}, nil
			}
			return flow.RespondText("%s", name), nil
		}))
		return flow.NewLeaf(name, opts...)
	}

	root := flow.NewBranch("wizard",
		flow.WithChildren(
			page("intro"),
			page("secret", flow.WithSkipOnBack()),
			page("outro"),
		),
		flow.WithTransition(flow.NextSibling()))

	reg := flow.NewRegistry()
	require.NoError(t, reg.RegisterEntryPoint(root))
	require.NoError(t, reg.Bind())
	return reg
}

func TestHistory_SkipOnBackIsNeverRecorded(t *testing.T) {
	reg := historyRegistry(t)
	store := newRecordingStore()
	st := flow.NewState(testSessionID)

	for _, name := range []string{"wizard/intro", "wizard/secret", "wizard/outro"} {
		_, err := handleAt(t, reg, name, http.MethodGet, st, store)
		require.NoError(t, err)
	}

	require.Len(t, st.History, 2)
	assert.Equal(t, "wizard/intro", st.History[0].Position)
	assert.Equal(t, "wizard/outro", st.History[1].Position)
}

func TestHistory_RepeatVisitDoesNotGrow(t *testing.T) {
	reg := historyRegistry(t)
	store := newRecordingStore()
	st := flow.NewState(testSessionID)

	for i := 0; i < 3; i++ {
		_, err := handleAt(t, reg, "wizard/intro", http.MethodGet, st, store)
		require.NoError(t, err)
	}

	assert.Len(t, st.History, 1)
}

func TestHistory_BackSkipsNonRevisitableStep(t *testing.T) {
	reg := historyRegistry(t)
	store := newRecordingStore()
	st := flow.NewState(testSessionID)

	for _, name := range []string{"wizard/intro", "wizard/secret", "wizard/outro"} {
		_, err := handleAt(t, reg, name, http.MethodGet, st, store)
		require.NoError(t, err)
	}

	p, err := reg.PositionByName("wizard/outro")
	require.NoError(t, err)

	back, err := p.NewInstance(st).BackURL()
	require.NoError(t, err)
	assert.Equal(t, "/flows/wizard/intro?_id="+testSessionID, back)
}

func TestHistory_BackFromFirstStepStaysPut(t *testing.T) {
	reg := historyRegistry(t)
	st := flow.NewState(testSessionID)

	p, err := reg.PositionByName("wizard/intro")
	require.NoError(t, err)

	back, err := p.NewInstance(st).BackURL()
	require.NoError(t, err)
	assert.Equal(t, "/flows/wizard/intro?_id="+testSessionID, back)
}
