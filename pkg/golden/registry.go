// Package golden holds the golden standard every policy is reconciled
// against. A Registry is built once per reconciliation run from the values
// discovered for that run and is immutable afterwards.
package golden

import (
	"fmt"
	"strings"
	"time"

	"github.com/realgarit/intuneup/pkg/policy"
)

// Fallbacks used when a discovery feed yields nothing.
const (
	DefaultCustomerName         = "kunde"
	DefaultFeatureUpdateVersion = "Windows 11, version 25H2"
	DefaultQualityUpdateRelease = "2026-02-10T00:00:00Z"
)

// Descriptions written on provisioned policies.
const (
	updateRingDescription    = "Standardized Update Ring via InTuneUp"
	featureUpdateDescription = "Standardized Feature Update via InTuneUp"
	expediteDescription      = "Emergency hotpatch expedite"
	hotpatchDescription      = "Hotpatch quality updates via InTuneUp"
)

// Registry maps every category to its golden definition.
type Registry struct {
	customerName         string
	featureUpdateVersion string
	qualityUpdateRelease string

	definitions map[policy.Category]Definition
}

// Option configures a Registry.
type Option func(*Registry)

// WithCustomerName sets the customer fragment used in display names.
// Empty values keep the fallback.
func WithCustomerName(name string) Option {
	return func(r *Registry) {
		if name = strings.TrimSpace(name); name != "" {
			r.customerName = name
		}
	}
}

// WithFeatureUpdateVersion sets the target feature update version.
func WithFeatureUpdateVersion(version string) Option {
	return func(r *Registry) {
		if version = strings.TrimSpace(version); version != "" {
			r.featureUpdateVersion = version
		}
	}
}

// WithQualityUpdateRelease sets the quality update release to expedite.
func WithQualityUpdateRelease(release string) Option {
	return func(r *Registry) {
		if release = strings.TrimSpace(release); release != "" {
			r.qualityUpdateRelease = release
		}
	}
}

// New builds a registry. Options that are absent or empty fall back to the
// static literals above.
func New(opts ...Option) *Registry {
	r := &Registry{
		customerName:         DefaultCustomerName,
		featureUpdateVersion: DefaultFeatureUpdateVersion,
		qualityUpdateRelease: DefaultQualityUpdateRelease,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.definitions = map[policy.Category]Definition{
		policy.UpdateRing:          r.updateRing(),
		policy.FeatureUpdate:       r.featureUpdate(),
		policy.ExpediteProfile:     r.expediteProfile(),
		policy.QualityUpdatePolicy: r.qualityUpdatePolicy(),
	}
	return r
}

// Definition returns the golden definition of category. Unknown categories
// yield an empty definition.
func (r *Registry) Definition(category policy.Category) Definition {
	if d, ok := r.definitions[category]; ok {
		return d
	}
	return newDefinition(category)
}

// CustomerName returns the customer fragment in use.
func (r *Registry) CustomerName() string { return r.customerName }

// FeatureUpdateVersion returns the feature update version in use.
func (r *Registry) FeatureUpdateVersion() string { return r.featureUpdateVersion }

// QualityUpdateRelease returns the quality update release in use.
func (r *Registry) QualityUpdateRelease() string { return r.qualityUpdateRelease }

// DisplayName renders the provisioning name default_aad_<name>_<suffix>.
// An empty name uses the registry's customer fragment.
func (r *Registry) DisplayName(category policy.Category, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = r.customerName
	}
	return fmt.Sprintf("default_aad_%s_%s", name, category.NameSuffix())
}

// ProvisionPayload returns the create payload for category with the display
// name rendered from name.
func (r *Registry) ProvisionPayload(category policy.Category, name string) policy.RawPolicy {
	return r.Definition(category).WithDisplayName(r.DisplayName(category, name)).Payload()
}

func (r *Registry) updateRing() Definition {
	c := policy.UpdateRing
	return newDefinition(c,
		Field{policy.FieldODataType, c.ODataType()},
		Field{policy.FieldDisplayName, r.DisplayName(c, "")},
		Field{policy.FieldDescription, updateRingDescription},
		Field{"microsoftUpdateServiceAllowed", true},
		Field{"driversExcluded", false},
		Field{"qualityUpdatesDeferralPeriodInDays", 7},
		Field{"featureUpdatesDeferralPeriodInDays", 90},
		Field{"allowWindows11Upgrade", true},
		Field{"featureUpdatesRollbackWindowInDays", 60},
		Field{"businessReadyUpdatesOnly", "businessReadyOnly"},
		Field{"automaticUpdateMode", "autoInstallAndRebootAtMaintenanceTime"},
		Field{policy.FieldInstallationSchedule, map[string]any{
			policy.FieldODataType: policy.ActiveHoursInstallType,
			"activeHoursStart":    "06:00:00.0000000",
			"activeHoursEnd":      "19:00:00.0000000",
		}},
		Field{"userPauseAccess", "disabled"},
		Field{"userWindowsUpdateScanAccess", "enabled"},
		Field{"useDeadlineForFeatureUpdates", true},
		Field{"deadlineForFeatureUpdatesInDays", 14},
		Field{"useDeadlineForQualityUpdates", true},
		Field{"deadlineForQualityUpdatesInDays", 7},
		Field{"deadlineGracePeriodInDays", 1},
		Field{"autoRestartNotificationDismissal", "automatic"},
	)
}

func (r *Registry) featureUpdate() Definition {
	c := policy.FeatureUpdate
	return newDefinition(c,
		Field{policy.FieldODataType, c.ODataType()},
		Field{policy.FieldDisplayName, r.DisplayName(c, "")},
		Field{policy.FieldDescription, featureUpdateDescription},
		Field{"featureUpdateVersion", r.featureUpdateVersion},
		Field{"installFeatureUpdatesOptional", false},
	)
}

func (r *Registry) expediteProfile() Definition {
	c := policy.ExpediteProfile
	return newDefinition(c,
		Field{policy.FieldODataType, c.ODataType()},
		Field{policy.FieldDisplayName, ExpediteDisplayName(r.qualityUpdateRelease)},
		Field{policy.FieldDescription, expediteDescription},
		Field{policy.FieldExpeditedUpdateSettings, map[string]any{
			policy.FieldODataType:   policy.ExpeditedUpdateSettingsType,
			"qualityUpdateRelease":  r.qualityUpdateRelease,
			"daysUntilForcedReboot": 1,
		}},
	)
}

func (r *Registry) qualityUpdatePolicy() Definition {
	c := policy.QualityUpdatePolicy
	return newDefinition(c,
		Field{policy.FieldODataType, c.ODataType()},
		Field{policy.FieldDisplayName, r.DisplayName(c, "")},
		Field{policy.FieldDescription, hotpatchDescription},
		Field{"hotpatchEnabled", true},
		Field{policy.FieldApprovalSettings, []any{
			approvalSetting("monthly", "automatic"),
			approvalSetting("outOfBand", "manual"),
		}},
	)
}

func approvalSetting(cadence, method string) map[string]any {
	return map[string]any{
		"windowsQualityUpdateCadence":  cadence,
		"windowsQualityUpdateCategory": "security",
		"approvalMethodType":           method,
		"deferredDeploymentInDay":      0,
	}
}

// ExpediteDisplayName renders "Expedite - YYYY.MM B Security Update" for a
// release timestamp. Unparseable releases are used verbatim.
func ExpediteDisplayName(release string) string {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, release); err == nil {
			return fmt.Sprintf("Expedite - %s B Security Update", t.UTC().Format("2006.01"))
		}
	}
	return fmt.Sprintf("Expedite - %s", release)
}
