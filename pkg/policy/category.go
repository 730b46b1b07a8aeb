// Package policy holds the data model shared by the reconciliation engine:
// policy categories, raw policies as fetched from Graph, the structured
// sub-object variants, comparison results and patches.
package policy

import (
	"fmt"
	"strings"

	"github.com/realgarit/intuneup/pkg/errors"
)

// Category identifies one of the Windows Update policy kinds managed by Intune.
type Category string

// Category values.
const (
	UpdateRing          Category = "updateRing"
	FeatureUpdate       Category = "featureUpdate"
	ExpediteProfile     Category = "expeditePolicy"
	QualityUpdatePolicy Category = "qualityUpdatePolicy"
)

// categoryInfo describes how a category maps onto Graph.
type categoryInfo struct {
	odataType     string
	collection    string
	filter        string
	discriminated bool
	suffix        string
	label         string
}

var categories = map[Category]categoryInfo{
	UpdateRing: {
		odataType:     "#microsoft.graph.windowsUpdateForBusinessConfiguration",
		collection:    "/deviceManagement/deviceConfigurations",
		filter:        "isof('microsoft.graph.windowsUpdateForBusinessConfiguration')",
		discriminated: true,
		suffix:        "win-update",
		label:         "update ring",
	},
	FeatureUpdate: {
		odataType:  "#microsoft.graph.windowsFeatureUpdateProfile",
		collection: "/deviceManagement/windowsFeatureUpdateProfiles",
		suffix:     "win-feature",
		label:      "feature update",
	},
	ExpediteProfile: {
		odataType:  "#microsoft.graph.windowsQualityUpdateProfile",
		collection: "/deviceManagement/windowsQualityUpdateProfiles",
		suffix:     "win-expedite",
		label:      "expedite profile",
	},
	QualityUpdatePolicy: {
		odataType:     "#microsoft.graph.windowsQualityUpdatePolicy",
		collection:    "/deviceManagement/windowsQualityUpdatePolicies",
		discriminated: true,
		suffix:        "win-hotpatch",
		label:         "quality update policy",
	},
}

// Categories returns every category in reporting order.
func Categories() []Category {
	return []Category{UpdateRing, FeatureUpdate, ExpediteProfile, QualityUpdatePolicy}
}

// String returns the category identifier.
func (c Category) String() string {
	return string(c)
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	_, ok := categories[c]
	return ok
}

// ODataType returns the Graph type discriminator for the category.
func (c Category) ODataType() string {
	return categories[c].odataType
}

// Collection returns the Graph collection path relative to the API root.
func (c Category) Collection() string {
	return categories[c].collection
}

// Filter returns the OData $filter needed to narrow a shared collection,
// or the empty string when the collection holds only this category.
func (c Category) Filter() string {
	return categories[c].filter
}

// RequiresWriteDiscriminator reports whether every write for the category
// must carry @odata.type.
func (c Category) RequiresWriteDiscriminator() bool {
	return categories[c].discriminated
}

// NameSuffix returns the token appended to provisioned display names.
func (c Category) NameSuffix() string {
	return categories[c].suffix
}

// Label returns a human readable name.
func (c Category) Label() string {
	if info, ok := categories[c]; ok {
		return info.label
	}
	return string(c)
}

// ParseCategory resolves a category name or alias, case-insensitively.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "updatering", "update-ring", "ring", "rings":
		return UpdateRing, nil
	case "featureupdate", "feature-update", "feature", "features":
		return FeatureUpdate, nil
	case "expeditepolicy", "expediteprofile", "expedite", "expedites":
		return ExpediteProfile, nil
	case "qualityupdatepolicy", "quality-update-policy", "quality", "hotpatch":
		return QualityUpdatePolicy, nil
	}
	return "", fmt.Errorf("%w: %q", errors.ErrUnknownCategory, s)
}
