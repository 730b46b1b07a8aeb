package provision

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realgarit/intuneup"
	"github.com/realgarit/intuneup/internal/appcontext"
	"github.com/realgarit/intuneup/internal/cmd/globals"
	"github.com/realgarit/intuneup/pkg/policy"
)

type createCall struct {
	category policy.Category
	payload  policy.RawPolicy
}

type fakeAPI struct {
	mu      sync.Mutex
	creates []createCall
	patches int
}

func (f *fakeAPI) Fetch(context.Context, policy.Category) ([]policy.RawPolicy, error) {
	return nil, nil
}

func (f *fakeAPI) Create(_ context.Context, category policy.Category, payload policy.RawPolicy) (policy.RawPolicy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, createCall{category: category, payload: payload})
	created := payload.Clone()
	created["id"] = "created-1"
	return created, nil
}

func (f *fakeAPI) Patch(context.Context, policy.Category, string, policy.Patch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches++
	return nil
}

func newMock(t *testing.T, api *fakeAPI) *appcontext.Mock {
	t.Helper()
	logger := zerolog.Nop()
	build := func(extra ...intuneup.Option) (intuneup.Client, error) {
		base := []intuneup.Option{
			intuneup.WithPolicyAPI(api),
			intuneup.WithLogger(&logger),
			intuneup.WithCustomerName("contoso"),
		}
		return intuneup.New(append(base, extra...)...)
	}
	return &appcontext.Mock{
		ClientFunc:            func() (intuneup.Client, error) { return build() },
		ClientWithOptionsFunc: build,
	}
}

func execute(t *testing.T, app appcontext.Interface, args ...string) (string, error) {
	t.Helper()
	root := &cobra.Command{Use: "intuneup", SilenceUsage: true, SilenceErrors: true}
	root.AddGroup(&cobra.Group{ID: "management", Title: "Management Commands:"})
	globals.AddFlags(root)
	root.AddCommand(NewCommand(app))

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs(append([]string{"provision"}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

type outcomeView struct {
	Operation string           `json:"operation"`
	Category  string           `json:"category"`
	PolicyID  string           `json:"policyId"`
	Applied   bool             `json:"applied"`
	Created   policy.RawPolicy `json:"created"`
}

func TestProvisionCreatesOnePolicy(t *testing.T) {
	api := &fakeAPI{}

	out, err := execute(t, newMock(t, api), "updateRing", "--name", "fabrikam", "-o", "json")
	require.NoError(t, err)

	require.Len(t, api.creates, 1)
	assert.Zero(t, api.patches)
	assert.Equal(t, policy.UpdateRing, api.creates[0].category)
	assert.Equal(t, "default_aad_fabrikam_win-update", api.creates[0].payload.DisplayName())
	assert.Empty(t, api.creates[0].payload.ID())

	var got outcomeView
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "create", got.Operation)
	assert.Equal(t, "updateRing", got.Category)
	assert.Equal(t, "created-1", got.PolicyID)
	assert.True(t, got.Applied)
	assert.Equal(t, "default_aad_fabrikam_win-update", got.Created.DisplayName())
}

func TestProvisionDefaultsToCustomerName(t *testing.T) {
	api := &fakeAPI{}

	_, err := execute(t, newMock(t, api), "featureUpdate", "-o", "json")
	require.NoError(t, err)
	require.Len(t, api.creates, 1)
	assert.Equal(t, "default_aad_contoso_win-feature", api.creates[0].payload.DisplayName())

	api.creates = nil
	_, err = execute(t, newMock(t, api), "expeditePolicy", "--customer", "northwind", "-o", "json")
	require.NoError(t, err)
	require.Len(t, api.creates, 1)
	assert.Equal(t, "default_aad_northwind_win-expedite", api.creates[0].payload.DisplayName())
}

func TestProvisionRejectsUnknownCategory(t *testing.T) {
	api := &fakeAPI{}

	_, err := execute(t, newMock(t, api), "bogus")
	require.Error(t, err)
	assert.Empty(t, api.creates)
}
