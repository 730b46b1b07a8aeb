package policy

import "strings"

// Structured sub-object fields and their leaves.
const (
	FieldInstallationSchedule    = "installationSchedule"
	FieldExpeditedUpdateSettings = "expeditedUpdateSettings"
	FieldApprovalSettings        = "approvalSettings"

	LeafActiveHoursStart      = "installationSchedule.activeHoursStart"
	LeafActiveHoursEnd        = "installationSchedule.activeHoursEnd"
	LeafQualityUpdateRelease  = "expeditedUpdateSettings.qualityUpdateRelease"
	LeafDaysUntilForcedReboot = "expeditedUpdateSettings.daysUntilForcedReboot"
)

// protected fields are never compared and never written by a patch.
var protected = map[string]bool{
	FieldID:          true,
	FieldODataType:   true,
	FieldDisplayName: true,
	FieldDescription: true,
}

// structured maps each sub-object field to the leaves it expands into.
var structured = map[string][]string{
	FieldInstallationSchedule:    {LeafActiveHoursStart, LeafActiveHoursEnd},
	FieldExpeditedUpdateSettings: {LeafQualityUpdateRelease, LeafDaysUntilForcedReboot},
}

// readOnly lists fields the service refuses to change through a patch.
var readOnly = map[Category]map[string]bool{
	QualityUpdatePolicy: {FieldApprovalSettings: true},
}

// IsProtected reports whether field is identity or naming data.
func IsProtected(field string) bool {
	return protected[field]
}

// IsStructured reports whether field is a sub-object compared leaf by leaf.
func IsStructured(field string) bool {
	_, ok := structured[field]
	return ok
}

// Excluded reports whether field is skipped on the scalar comparison path.
func Excluded(field string) bool {
	return IsProtected(field) || IsStructured(field)
}

// Leaves returns the dotted leaf paths of a structured field.
func Leaves(field string) []string {
	return append([]string(nil), structured[field]...)
}

// ParentOf returns the structured parent of a dotted leaf path. ok is false
// for plain fields and for dotted paths that are not documented leaves.
func ParentOf(path string) (string, bool) {
	parent, _, found := strings.Cut(path, ".")
	if !found {
		return "", false
	}
	for _, leaf := range structured[parent] {
		if leaf == path {
			return parent, true
		}
	}
	return "", false
}

// ReadOnlyAtWrite reports whether the service rejects writes of field for category.
func ReadOnlyAtWrite(category Category, field string) bool {
	return readOnly[category][field]
}
