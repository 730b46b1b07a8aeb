package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realgarit/intuneup/internal/transport"
	"github.com/realgarit/intuneup/pkg/errors"
	"github.com/realgarit/intuneup/pkg/logging"
	"github.com/realgarit/intuneup/pkg/policy"
)

type recorded struct {
	method string
	path   string
	query  string
	body   map[string]any
}

type fakeGraph struct {
	mu       sync.Mutex
	requests []recorded
	handler  func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeGraph) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := recorded{method: r.Method, path: r.URL.Path, query: r.URL.Query().Encode()}
	data, _ := io.ReadAll(r.Body)
	if len(data) > 0 {
		_ = json.Unmarshal(data, &rec.body)
	}
	// Handlers read the body again.
	r.Body = io.NopCloser(bytes.NewReader(data))
	f.mu.Lock()
	f.requests = append(f.requests, rec)
	f.mu.Unlock()
	f.handler(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestGraph(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*Client, *fakeGraph) {
	t.Helper()
	fake := &fakeGraph{handler: handler}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	tc := transport.New(&transport.BearerAuth{}, transport.NewStaticToken("opaque"),
		transport.WithLogger(logging.NewNopLogger()),
		transport.WithWriteRateLimit(0, 0),
		transport.WithService("graph"),
	)
	return New(tc,
		WithBaseURL(server.URL+"/beta/"),
		WithV1BaseURL(server.URL+"/v1.0"),
		WithLogger(logging.NewNopLogger()),
	), fake
}

func TestFetchUpdateRingsFiltersCollection(t *testing.T) {
	c, fake := newTestGraph(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"value": []any{
			map[string]any{"id": "ring-1", "displayName": "default_aad_contoso_win-update", "qualityUpdatesDeferralPeriodInDays": 7},
		}})
	})

	got, err := c.Fetch(context.Background(), policy.UpdateRing)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ring-1", got[0].ID())
	assert.Equal(t, float64(7), got[0]["qualityUpdatesDeferralPeriodInDays"])

	require.Len(t, fake.requests, 1)
	assert.Equal(t, "/beta/deviceManagement/deviceConfigurations", fake.requests[0].path)
	assert.Contains(t, fake.requests[0].query, "isof")
}

func TestFetchFollowsNextLink(t *testing.T) {
	var serverURL string
	c, fake := newTestGraph(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("$skiptoken") == "" {
			writeJSON(w, http.StatusOK, map[string]any{
				"value":           []any{map[string]any{"id": "a"}},
				"@odata.nextLink": serverURL + r.URL.Path + "?$skiptoken=2",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"value": []any{map[string]any{"id": "b"}}})
	})
	serverURL = c.baseURL[:len(c.baseURL)-len("/beta")]

	got, err := c.Fetch(context.Background(), policy.FeatureUpdate)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[1].ID())
	assert.Len(t, fake.requests, 2)
	assert.Equal(t, "/beta/deviceManagement/windowsFeatureUpdateProfiles", fake.requests[0].path)
}

func TestFetchEmptyCollection(t *testing.T) {
	c, _ := newTestGraph(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"value": []any{}})
	})
	got, err := c.Fetch(context.Background(), policy.ExpediteProfile)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFetchTransportError(t *testing.T) {
	c, _ := newTestGraph(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]any{"error": map[string]any{"code": "Forbidden", "message": "missing scope"}})
	})
	_, err := c.Fetch(context.Background(), policy.QualityUpdatePolicy)

	var apiErr *errors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "/beta/deviceManagement/windowsQualityUpdatePolicies", apiErr.Endpoint)

	_, err = c.Fetch(context.Background(), "bogus")
	assert.ErrorIs(t, err, errors.ErrUnknownCategory)
}

func TestCreate(t *testing.T) {
	c, fake := newTestGraph(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		body["id"] = "new-id"
		writeJSON(w, http.StatusCreated, body)
	})

	created, err := c.Create(context.Background(), policy.FeatureUpdate, policy.RawPolicy{
		"@odata.type": "#microsoft.graph.windowsFeatureUpdateProfile",
		"displayName": "default_aad_contoso_win-feature",
	})
	require.NoError(t, err)
	assert.Equal(t, "new-id", created.ID())
	assert.Equal(t, "default_aad_contoso_win-feature", created.DisplayName())
	require.Len(t, fake.requests, 1)
	assert.Equal(t, http.MethodPost, fake.requests[0].method)
	assert.Equal(t, "/beta/deviceManagement/windowsFeatureUpdateProfiles", fake.requests[0].path)
	assert.Equal(t, "default_aad_contoso_win-feature", fake.requests[0].body["displayName"])
}

func TestPatch(t *testing.T) {
	c, fake := newTestGraph(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	err := c.Patch(context.Background(), policy.UpdateRing, "ring 1", policy.Patch{
		"@odata.type":     "#microsoft.graph.windowsUpdateForBusinessConfiguration",
		"driversExcluded": false,
	})
	require.NoError(t, err)
	require.Len(t, fake.requests, 1)
	assert.Equal(t, http.MethodPatch, fake.requests[0].method)
	assert.Equal(t, "/beta/deviceManagement/deviceConfigurations/ring 1", fake.requests[0].path)
	assert.Equal(t, false, fake.requests[0].body["driversExcluded"])

	err = c.Patch(context.Background(), policy.UpdateRing, "", policy.Patch{"a": 1})
	assert.True(t, errors.IsValidationError(err))
	assert.Len(t, fake.requests, 1)
}

func TestDiscovery(t *testing.T) {
	c, fake := newTestGraph(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v1.0/organization":
			writeJSON(w, http.StatusOK, map[string]any{"value": []any{map[string]any{"displayName": "Contoso"}}})
		case r.URL.Path == "/beta/admin/windows/updates/catalog/entries":
			entry := map[string]any{"version": "Windows 11, version 26H1", "releaseDateTime": "2026-03-10T00:00:00Z"}
			writeJSON(w, http.StatusOK, map[string]any{"value": []any{entry}})
		default:
			http.NotFound(w, r)
		}
	})

	version, err := c.LatestFeatureUpdateVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Windows 11, version 26H1", version)

	release, err := c.LatestQualityUpdateRelease(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2026-03-10T00:00:00Z", release)

	name, err := c.OrganizationName(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Contoso", name)

	require.Len(t, fake.requests, 3)
	assert.Contains(t, fake.requests[0].query, "%24orderby=releaseDateTime+desc")
	assert.Contains(t, fake.requests[0].query, "%24top=1")
	assert.Contains(t, fake.requests[1].query, "isExpeditable")
}

func TestDiscoveryFailures(t *testing.T) {
	c, _ := newTestGraph(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1.0/organization" {
			writeJSON(w, http.StatusOK, map[string]any{"value": []any{}})
			return
		}
		writeJSON(w, http.StatusForbidden, map[string]any{"error": map[string]any{"message": "WindowsUpdates.ReadWrite.All required"}})
	})

	_, err := c.LatestFeatureUpdateVersion(context.Background())
	assert.ErrorIs(t, err, errors.ErrDiscoveryUnavailable)
	var apiErr *errors.APIError
	assert.ErrorAs(t, err, &apiErr)

	_, err = c.LatestQualityUpdateRelease(context.Background())
	assert.ErrorIs(t, err, errors.ErrDiscoveryUnavailable)

	_, err = c.OrganizationName(context.Background())
	assert.ErrorIs(t, err, errors.ErrDiscoveryUnavailable)
	assert.True(t, errors.IsNotFound(err))
}

func TestEncodeQuery(t *testing.T) {
	assert.Equal(t, "", encodeQuery(nil))
	assert.Equal(t,
		"?$filter=isof%28%27x%27%29&$orderby=releaseDateTime%20desc",
		encodeQuery([]queryParam{{"$filter", "isof('x')"}, {"$orderby", "releaseDateTime desc"}}),
	)
}
