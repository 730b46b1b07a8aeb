package policy

import (
	"fmt"
	"strings"
)

// Discriminators of the structured sub-objects.
const (
	ActiveHoursInstallType      = "#microsoft.graph.windowsUpdateActiveHoursInstall"
	ScheduledInstallType        = "#microsoft.graph.windowsUpdateScheduledInstall"
	ExpeditedUpdateSettingsType = "#microsoft.graph.expeditedWindowsQualityUpdateSettings"
)

// InstallSchedule is the installationSchedule variant of an update ring.
type InstallSchedule interface {
	isInstallSchedule()
	// Describe renders the variant for diagnostics.
	Describe() string
}

// ActiveHoursInstall installs outside an active-hours window.
type ActiveHoursInstall struct {
	Start string
	End   string
}

func (ActiveHoursInstall) isInstallSchedule() {}

// Describe implements InstallSchedule.
func (a ActiveHoursInstall) Describe() string {
	return fmt.Sprintf("active hours %s-%s", a.Start, a.End)
}

// ScheduledInstall installs on a fixed day and time.
type ScheduledInstall struct {
	Day  string
	Time string
}

func (ScheduledInstall) isInstallSchedule() {}

// Describe implements InstallSchedule.
func (s ScheduledInstall) Describe() string {
	return fmt.Sprintf("scheduled install %s at %s", s.Day, s.Time)
}

// DecodeInstallSchedule decodes an installationSchedule value by its
// discriminator. Key shape is never consulted.
func DecodeInstallSchedule(v any) (InstallSchedule, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	switch normalizeType(m[FieldODataType]) {
	case normalizeType(ActiveHoursInstallType):
		return ActiveHoursInstall{
			Start: stringField(m, "activeHoursStart"),
			End:   stringField(m, "activeHoursEnd"),
		}, true
	case normalizeType(ScheduledInstallType):
		return ScheduledInstall{
			Day:  stringField(m, "scheduledInstallDay"),
			Time: stringField(m, "scheduledInstallTime"),
		}, true
	}
	return nil, false
}

// ExpeditedSettings is the expeditedUpdateSettings object of an expedite profile.
type ExpeditedSettings struct {
	QualityUpdateRelease  any
	DaysUntilForcedReboot any
}

// DecodeExpeditedSettings extracts the expedite leaves. Missing leaves stay nil.
func DecodeExpeditedSettings(v any) (ExpeditedSettings, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return ExpeditedSettings{}, false
	}
	return ExpeditedSettings{
		QualityUpdateRelease:  m["qualityUpdateRelease"],
		DaysUntilForcedReboot: m["daysUntilForcedReboot"],
	}, true
}

func normalizeType(v any) string {
	s, _ := v.(string)
	return strings.ToLower(strings.TrimPrefix(s, "#"))
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
