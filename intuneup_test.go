package intuneup_test

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realgarit/intuneup"
	"github.com/realgarit/intuneup/pkg/errors"
	"github.com/realgarit/intuneup/pkg/golden"
	"github.com/realgarit/intuneup/pkg/logging"
	"github.com/realgarit/intuneup/pkg/policy"
	"github.com/realgarit/intuneup/pkg/remediate"
)

// fakeAPI stores policies per category and records writes.
type fakeAPI struct {
	mu        sync.Mutex
	stored    map[policy.Category][]policy.RawPolicy
	fetchErr  map[policy.Category]error
	patches   map[string]policy.Patch
	created   []policy.RawPolicy
	fetches   int
	patchGate chan struct{}
	patching  chan struct{}
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		stored:   map[policy.Category][]policy.RawPolicy{},
		fetchErr: map[policy.Category]error{},
		patches:  map[string]policy.Patch{},
	}
}

func (f *fakeAPI) add(category policy.Category, p policy.RawPolicy) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stored[category] = append(f.stored[category], p)
}

func (f *fakeAPI) Fetch(_ context.Context, category policy.Category) ([]policy.RawPolicy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if err := f.fetchErr[category]; err != nil {
		return nil, err
	}
	out := make([]policy.RawPolicy, 0, len(f.stored[category]))
	for _, p := range f.stored[category] {
		out = append(out, p.Clone())
	}
	return out, nil
}

func (f *fakeAPI) Create(_ context.Context, category policy.Category, payload policy.RawPolicy) (policy.RawPolicy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	created := payload.Clone()
	created[policy.FieldID] = "created-" + category.String()
	f.created = append(f.created, created)
	f.stored[category] = append(f.stored[category], created.Clone())
	return created, nil
}

func (f *fakeAPI) Patch(_ context.Context, category policy.Category, id string, payload policy.Patch) error {
	if f.patching != nil {
		f.patching <- struct{}{}
	}
	if f.patchGate != nil {
		<-f.patchGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches[id] = payload
	for _, p := range f.stored[category] {
		if p.ID() == id {
			for k, v := range payload {
				p[k] = policy.DeepCopy(v)
			}
		}
	}
	return nil
}

// fakeInvalidator counts invalidations.
type fakeInvalidator struct {
	mu         sync.Mutex
	categories []policy.Category
	all        int
}

func (f *fakeInvalidator) Invalidate(category policy.Category) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.categories = append(f.categories, category)
}

func (f *fakeInvalidator) InvalidateAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.all++
}

// fakeDiscovery returns fixed values or errors.
type fakeDiscovery struct {
	version, release, tenant string
	err                      error
	calls                    int
	mu                       sync.Mutex
}

func (f *fakeDiscovery) count() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
}

func (f *fakeDiscovery) LatestFeatureUpdateVersion(context.Context) (string, error) {
	f.count()
	return f.version, f.err
}

func (f *fakeDiscovery) LatestQualityUpdateRelease(context.Context) (string, error) {
	f.count()
	return f.release, f.err
}

func (f *fakeDiscovery) OrganizationName(context.Context) (string, error) {
	f.count()
	return f.tenant, f.err
}

func compliant(category policy.Category, id string) policy.RawPolicy {
	p := golden.New().Definition(category).Payload()
	p[policy.FieldID] = id
	return p
}

func newClient(t *testing.T, api *fakeAPI, opts ...intuneup.Option) intuneup.Client {
	t.Helper()
	all := append([]intuneup.Option{
		intuneup.WithPolicyAPI(api),
		intuneup.WithLogger(logging.NewNopLogger()),
	}, opts...)
	c, err := intuneup.New(all...)
	require.NoError(t, err)
	return c
}

func TestNewRequiresToken(t *testing.T) {
	_, err := intuneup.New(intuneup.WithLogger(logging.NewNopLogger()))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrTokenRequired)

	var cfgErr *errors.ConfigError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opt  intuneup.Option
	}{
		{"nil api", intuneup.WithPolicyAPI(nil)},
		{"zero concurrency", intuneup.WithConcurrency(0)},
		{"negative rate", intuneup.WithWriteRateLimit(-1, 1)},
		{"zero timeout", intuneup.WithHTTPTimeout(0)},
		{"empty base url", intuneup.WithGraphBaseURL("")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := intuneup.New(intuneup.WithAccessToken("token"), tt.opt)
			require.Error(t, err)
			assert.True(t, errors.IsValidationError(err))
		})
	}
}

func TestGoldenUsesDiscovery(t *testing.T) {
	d := &fakeDiscovery{version: "Windows 11, version 26H1", release: "2026-03-10T00:00:00Z"}
	c := newClient(t, newFakeAPI(), intuneup.WithDiscovery(d), intuneup.WithCustomerName("contoso"))

	r := c.Golden(context.Background())
	assert.Equal(t, "Windows 11, version 26H1", r.FeatureUpdateVersion())
	assert.Equal(t, "2026-03-10T00:00:00Z", r.QualityUpdateRelease())
	assert.Equal(t, "contoso", r.CustomerName())
}

func TestGoldenFallsBackWhenDiscoveryFails(t *testing.T) {
	log := logging.NewTestLogger(t)
	d := &fakeDiscovery{err: errors.WrapDiscovery("featureUpdateVersion", stderrors.New("forbidden"))}
	c := newClient(t, newFakeAPI(), intuneup.WithDiscovery(d), intuneup.WithLogger(log.Logger))

	r := c.Golden(context.Background())
	assert.Equal(t, golden.DefaultFeatureUpdateVersion, r.FeatureUpdateVersion())
	assert.Equal(t, golden.DefaultQualityUpdateRelease, r.QualityUpdateRelease())
	assert.Equal(t, golden.DefaultCustomerName, r.CustomerName())
	log.AssertContains(t, "Using fallback feature update version")
}

func TestGoldenPinnedValuesSkipDiscovery(t *testing.T) {
	d := &fakeDiscovery{version: "ignored", release: "ignored"}
	c := newClient(t, newFakeAPI(),
		intuneup.WithDiscovery(d),
		intuneup.WithFeatureUpdateVersion("Windows 11, version 24H2"),
		intuneup.WithQualityUpdateRelease("2025-11-11T00:00:00Z"),
	)

	r := c.Golden(context.Background())
	assert.Equal(t, "Windows 11, version 24H2", r.FeatureUpdateVersion())
	assert.Equal(t, "2025-11-11T00:00:00Z", r.QualityUpdateRelease())
	assert.Zero(t, d.calls)
}

func TestReconcile(t *testing.T) {
	api := newFakeAPI()
	api.add(policy.UpdateRing, compliant(policy.UpdateRing, "ring-ok"))
	drifted := compliant(policy.UpdateRing, "ring-drift")
	drifted["deadlineGracePeriodInDays"] = float64(3)
	api.add(policy.UpdateRing, drifted)

	c := newClient(t, api)
	var flagged []string
	c.OnNonCompliant(func(r policy.Result) { flagged = append(flagged, r.PolicyID) })

	results, err := c.Reconcile(context.Background(), policy.UpdateRing)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].IsFullyCompliant)
	assert.False(t, results[1].IsFullyCompliant)
	assert.Equal(t, []string{"ring-drift"}, flagged)
}

func TestReconcileUnknownCategory(t *testing.T) {
	c := newClient(t, newFakeAPI())
	_, err := c.Reconcile(context.Background(), policy.Category("bogus"))
	assert.ErrorIs(t, err, errors.ErrUnknownCategory)
}

func TestReconcileAllIsolatesCategoryFailures(t *testing.T) {
	api := newFakeAPI()
	api.add(policy.UpdateRing, compliant(policy.UpdateRing, "ring-1"))
	api.add(policy.FeatureUpdate, compliant(policy.FeatureUpdate, "feature-1"))
	api.fetchErr[policy.ExpediteProfile] = errors.NewAPIError("graph", 503, "unavailable")

	d := &fakeDiscovery{tenant: "Contoso Ltd"}
	c := newClient(t, api, intuneup.WithDiscovery(d))

	report := c.ReconcileAll(context.Background())
	require.Len(t, report.Categories, len(policy.Categories()))
	assert.Equal(t, "Contoso Ltd", report.Tenant)
	assert.Equal(t, golden.DefaultFeatureUpdateVersion, report.FeatureUpdateVersion)

	for _, cr := range report.Categories {
		if cr.Category == policy.ExpediteProfile {
			require.Error(t, cr.Err)
			assert.True(t, errors.IsServiceUnavailable(cr.Err))
			assert.NotEmpty(t, cr.Error)
			continue
		}
		assert.NoError(t, cr.Err, cr.Category)
	}

	err := report.Err()
	require.Error(t, err)
	var catErr *errors.CategoryError
	require.True(t, errors.As(err, &catErr))
	assert.Equal(t, policy.ExpediteProfile.String(), catErr.Category)

	assert.Equal(t, 2, report.Summary.Policies)
	assert.Equal(t, 2, report.Summary.Compliant)
	assert.Len(t, report.Results(), 2)
}

func TestRemediateWritesAndNotifies(t *testing.T) {
	api := newFakeAPI()
	drifted := compliant(policy.FeatureUpdate, "feature-1")
	drifted["installFeatureUpdatesOptional"] = true
	api.add(policy.FeatureUpdate, drifted)
	inv := &fakeInvalidator{}

	c := newClient(t, api, intuneup.WithInvalidator(inv))
	var remediated []remediate.Outcome
	c.OnRemediated(func(o remediate.Outcome) { remediated = append(remediated, o) })

	results, err := c.Reconcile(context.Background(), policy.FeatureUpdate)
	require.NoError(t, err)
	require.Len(t, results, 1)

	outcome, err := c.Remediate(context.Background(), results[0])
	require.NoError(t, err)
	assert.True(t, outcome.Applied)
	assert.Equal(t, policy.Patch{"installFeatureUpdatesOptional": false}, api.patches["feature-1"])
	require.NotNil(t, outcome.Refreshed)
	assert.True(t, outcome.Refreshed.IsFullyCompliant)
	assert.Equal(t, []policy.Category{policy.FeatureUpdate}, inv.categories)
	require.Len(t, remediated, 1)
	assert.Equal(t, "feature-1", remediated[0].PolicyID)
}

func TestRemediateRejectsConcurrentSamePolicy(t *testing.T) {
	api := newFakeAPI()
	drifted := compliant(policy.FeatureUpdate, "feature-1")
	drifted["installFeatureUpdatesOptional"] = true
	api.add(policy.FeatureUpdate, drifted)
	api.patchGate = make(chan struct{})
	api.patching = make(chan struct{}, 1)

	c := newClient(t, api, intuneup.WithRefreshAfterWrite(false))
	results, err := c.Reconcile(context.Background(), policy.FeatureUpdate)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := c.Remediate(context.Background(), results[0])
		done <- err
	}()
	<-api.patching

	_, err = c.Remediate(context.Background(), results[0])
	assert.ErrorIs(t, err, errors.ErrRemediationInFlight)

	close(api.patchGate)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("first remediation did not finish")
	}
	assert.Len(t, api.patches, 1)
}

func TestRemediateAllSkipsCompliant(t *testing.T) {
	api := newFakeAPI()
	api.add(policy.UpdateRing, compliant(policy.UpdateRing, "ring-ok"))
	drifted := compliant(policy.UpdateRing, "ring-drift")
	drifted["userPauseAccess"] = "enabled"
	api.add(policy.UpdateRing, drifted)

	c := newClient(t, api)
	results, err := c.Reconcile(context.Background(), policy.UpdateRing)
	require.NoError(t, err)

	reports := c.RemediateAll(context.Background(), results)
	require.Len(t, reports, 1)
	assert.Equal(t, "ring-drift", reports[0].PolicyID)
	require.NoError(t, reports[0].Err)
	assert.True(t, reports[0].Outcome.Applied)
	assert.Equal(t, policy.Patch{
		"userPauseAccess":     "disabled",
		policy.FieldODataType: policy.UpdateRing.ODataType(),
	}, api.patches["ring-drift"])
	assert.NotContains(t, api.patches, "ring-ok")
}

func TestPlanDoesNotWrite(t *testing.T) {
	api := newFakeAPI()
	drifted := compliant(policy.QualityUpdatePolicy, "hotpatch-1")
	drifted["hotpatchEnabled"] = false
	api.add(policy.QualityUpdatePolicy, drifted)

	c := newClient(t, api)
	results, err := c.Reconcile(context.Background(), policy.QualityUpdatePolicy)
	require.NoError(t, err)

	p := c.Plan(context.Background(), results[0])
	assert.Equal(t, policy.Patch{
		"hotpatchEnabled":     true,
		policy.FieldODataType: policy.QualityUpdatePolicy.ODataType(),
	}, p)
	assert.Empty(t, api.patches)
}

func TestProvision(t *testing.T) {
	api := newFakeAPI()
	c := newClient(t, api, intuneup.WithCustomerName("contoso"))
	var provisioned []remediate.Outcome
	c.OnProvisioned(func(o remediate.Outcome) { provisioned = append(provisioned, o) })

	outcome, err := c.Provision(context.Background(), policy.UpdateRing, "")
	require.NoError(t, err)
	assert.Equal(t, "created-updateRing", outcome.PolicyID)
	require.Len(t, api.created, 1)
	assert.Equal(t, "default_aad_contoso_win-update", api.created[0].DisplayName())
	require.Len(t, provisioned, 1)

	_, err = c.Provision(context.Background(), policy.Category("bogus"), "x")
	assert.ErrorIs(t, err, errors.ErrUnknownCategory)
	assert.Len(t, api.created, 1)
}

func TestInvalidatePrefersInvalidateAll(t *testing.T) {
	inv := &fakeInvalidator{}
	c := newClient(t, newFakeAPI(), intuneup.WithInvalidator(inv))
	c.Invalidate()
	assert.Equal(t, 1, inv.all)
	assert.Empty(t, inv.categories)
}

func TestGraphStackEndToEnd(t *testing.T) {
	feature := compliant(policy.FeatureUpdate, "feature-1")
	var (
		mu     sync.Mutex
		auth   []string
		gets   int
		patchd map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		auth = append(auth, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/beta/deviceManagement/windowsFeatureUpdateProfiles":
			gets++
			_ = json.NewEncoder(w).Encode(map[string]any{"value": []any{feature}})
		case r.Method == http.MethodPatch && r.URL.Path == "/beta/deviceManagement/windowsFeatureUpdateProfiles/feature-1":
			_ = json.NewDecoder(r.Body).Decode(&patchd)
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":"ResourceNotFound","message":"not here"}}`))
		}
	}))
	defer srv.Close()

	c, err := intuneup.New(
		intuneup.WithAccessToken("opaque-token"),
		intuneup.WithGraphBaseURL(srv.URL+"/beta"),
		intuneup.WithGraphV1BaseURL(srv.URL+"/v1.0"),
		intuneup.WithWriteRateLimit(0, 0),
		intuneup.WithLogger(logging.NewNopLogger()),
	)
	require.NoError(t, err)

	results, err := c.Reconcile(context.Background(), policy.FeatureUpdate)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].IsFullyCompliant)

	// A second pass is served from the cache.
	_, err = c.Reconcile(context.Background(), policy.FeatureUpdate)
	require.NoError(t, err)

	drifted := results[0]
	drifted.IsFullyCompliant = false
	drifted.Fields = []policy.FieldResult{{
		Field:       "installFeatureUpdatesOptional",
		Expected:    false,
		Actual:      true,
		IsPatchable: true,
	}}
	outcome, err := c.Remediate(context.Background(), drifted)
	require.NoError(t, err)
	assert.True(t, outcome.Applied)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, map[string]any{"installFeatureUpdatesOptional": false}, patchd)
	// The write invalidated the collection, so the refresh fetched again.
	assert.Equal(t, 2, gets)
	for _, h := range auth {
		assert.Equal(t, "Bearer opaque-token", h)
	}
}
