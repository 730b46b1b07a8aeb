package golden_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realgarit/intuneup/pkg/golden"
	"github.com/realgarit/intuneup/pkg/policy"
)

func TestFallbacks(t *testing.T) {
	r := golden.New()
	assert.Equal(t, golden.DefaultCustomerName, r.CustomerName())

	name, ok := r.Definition(policy.UpdateRing).Get("displayName")
	require.True(t, ok)
	assert.Equal(t, "default_aad_kunde_win-update", name)

	version, ok := r.Definition(policy.FeatureUpdate).Get("featureUpdateVersion")
	require.True(t, ok)
	assert.Equal(t, "Windows 11, version 25H2", version)

	settings, ok := r.Definition(policy.ExpediteProfile).Get("expeditedUpdateSettings")
	require.True(t, ok)
	assert.Equal(t, golden.DefaultQualityUpdateRelease, settings.(map[string]any)["qualityUpdateRelease"])
}

func TestEmptyOptionsKeepFallbacks(t *testing.T) {
	r := golden.New(
		golden.WithCustomerName("  "),
		golden.WithFeatureUpdateVersion(""),
		golden.WithQualityUpdateRelease(""),
	)
	assert.Equal(t, golden.DefaultCustomerName, r.CustomerName())
	assert.Equal(t, golden.DefaultFeatureUpdateVersion, r.FeatureUpdateVersion())
	assert.Equal(t, golden.DefaultQualityUpdateRelease, r.QualityUpdateRelease())
}

func TestParameterizedRegistry(t *testing.T) {
	r := golden.New(
		golden.WithCustomerName("contoso"),
		golden.WithFeatureUpdateVersion("Windows 11, version 26H1"),
		golden.WithQualityUpdateRelease("2026-03-10T00:00:00Z"),
	)

	name, _ := r.Definition(policy.UpdateRing).Get("displayName")
	assert.Equal(t, "default_aad_contoso_win-update", name)

	version, _ := r.Definition(policy.FeatureUpdate).Get("featureUpdateVersion")
	assert.Equal(t, "Windows 11, version 26H1", version)

	expedite := r.Definition(policy.ExpediteProfile)
	name, _ = expedite.Get("displayName")
	assert.Equal(t, "Expedite - 2026.03 B Security Update", name)
	settings, _ := expedite.Get("expeditedUpdateSettings")
	assert.Equal(t, "2026-03-10T00:00:00Z", settings.(map[string]any)["qualityUpdateRelease"])
}

func TestUpdateRingDeclarationOrder(t *testing.T) {
	want := []string{
		"@odata.type", "displayName", "description",
		"microsoftUpdateServiceAllowed", "driversExcluded",
		"qualityUpdatesDeferralPeriodInDays", "featureUpdatesDeferralPeriodInDays",
		"allowWindows11Upgrade", "featureUpdatesRollbackWindowInDays",
		"businessReadyUpdatesOnly", "automaticUpdateMode", "installationSchedule",
		"userPauseAccess", "userWindowsUpdateScanAccess",
		"useDeadlineForFeatureUpdates", "deadlineForFeatureUpdatesInDays",
		"useDeadlineForQualityUpdates", "deadlineForQualityUpdatesInDays",
		"deadlineGracePeriodInDays", "autoRestartNotificationDismissal",
	}
	assert.Equal(t, want, golden.New().Definition(policy.UpdateRing).Names())
}

func TestDefinitionsAreImmutable(t *testing.T) {
	r := golden.New()
	def := r.Definition(policy.UpdateRing)

	schedule, _ := def.Get("installationSchedule")
	schedule.(map[string]any)["activeHoursStart"] = "00:00:00"

	payload := def.Payload()
	payload["qualityUpdatesDeferralPeriodInDays"] = 0

	fields := def.Fields()
	fields[0].Value = "mutated"

	again, _ := r.Definition(policy.UpdateRing).Get("installationSchedule")
	assert.Equal(t, "06:00:00.0000000", again.(map[string]any)["activeHoursStart"])
	deferral, _ := r.Definition(policy.UpdateRing).Get("qualityUpdatesDeferralPeriodInDays")
	assert.Equal(t, 7, deferral)
	odataType, _ := r.Definition(policy.UpdateRing).Get("@odata.type")
	assert.Equal(t, policy.UpdateRing.ODataType(), odataType)
}

func TestEveryCategoryHasDefinition(t *testing.T) {
	r := golden.New()
	for _, c := range policy.Categories() {
		def := r.Definition(c)
		assert.Equal(t, c, def.Category())
		odataType, ok := def.Get("@odata.type")
		require.True(t, ok, c)
		assert.Equal(t, c.ODataType(), odataType)
	}
	assert.Zero(t, r.Definition("unknown").Len())
}

func TestQualityUpdateApprovalSettings(t *testing.T) {
	settings, ok := golden.New().Definition(policy.QualityUpdatePolicy).Get("approvalSettings")
	require.True(t, ok)
	want := []any{
		map[string]any{
			"windowsQualityUpdateCadence":  "monthly",
			"windowsQualityUpdateCategory": "security",
			"approvalMethodType":           "automatic",
			"deferredDeploymentInDay":      0,
		},
		map[string]any{
			"windowsQualityUpdateCadence":  "outOfBand",
			"windowsQualityUpdateCategory": "security",
			"approvalMethodType":           "manual",
			"deferredDeploymentInDay":      0,
		},
	}
	assert.Empty(t, cmp.Diff(want, settings))
}

func TestDisplayName(t *testing.T) {
	r := golden.New(golden.WithCustomerName("contoso"))
	assert.Equal(t, "default_aad_fabrikam_win-update", r.DisplayName(policy.UpdateRing, "fabrikam"))
	assert.Equal(t, "default_aad_fabrikam_win-feature", r.DisplayName(policy.FeatureUpdate, "fabrikam"))
	assert.Equal(t, "default_aad_fabrikam_win-expedite", r.DisplayName(policy.ExpediteProfile, "fabrikam"))
	assert.Equal(t, "default_aad_fabrikam_win-hotpatch", r.DisplayName(policy.QualityUpdatePolicy, "fabrikam"))
	assert.Equal(t, "default_aad_contoso_win-update", r.DisplayName(policy.UpdateRing, ""))
}

func TestProvisionPayload(t *testing.T) {
	r := golden.New()
	payload := r.ProvisionPayload(policy.FeatureUpdate, "fabrikam")
	assert.Equal(t, "default_aad_fabrikam_win-feature", payload.DisplayName())
	assert.Equal(t, policy.FeatureUpdate.ODataType(), payload.ODataType())
	assert.Empty(t, payload.ID())
	assert.Equal(t, false, payload["installFeatureUpdatesOptional"])
}

func TestExpediteDisplayName(t *testing.T) {
	assert.Equal(t, "Expedite - 2026.02 B Security Update", golden.ExpediteDisplayName("2026-02-10T00:00:00Z"))
	assert.Equal(t, "Expedite - 2025.11 B Security Update", golden.ExpediteDisplayName("2025-11-11"))
	assert.Equal(t, "Expedite - next", golden.ExpediteDisplayName("next"))
}
