package policy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/realgarit/intuneup/pkg/policy"
)

func TestFieldRules(t *testing.T) {
	for _, f := range []string{"id", "@odata.type", "displayName", "description"} {
		assert.True(t, policy.IsProtected(f), f)
		assert.True(t, policy.Excluded(f), f)
	}
	for _, f := range []string{"installationSchedule", "expeditedUpdateSettings"} {
		assert.False(t, policy.IsProtected(f), f)
		assert.True(t, policy.IsStructured(f), f)
		assert.True(t, policy.Excluded(f), f)
		assert.Len(t, policy.Leaves(f), 2)
	}
	assert.False(t, policy.Excluded("qualityUpdatesDeferralPeriodInDays"))
	assert.False(t, policy.IsStructured("approvalSettings"))
}

func TestParentOf(t *testing.T) {
	parent, ok := policy.ParentOf(policy.LeafActiveHoursStart)
	assert.True(t, ok)
	assert.Equal(t, "installationSchedule", parent)

	parent, ok = policy.ParentOf(policy.LeafDaysUntilForcedReboot)
	assert.True(t, ok)
	assert.Equal(t, "expeditedUpdateSettings", parent)

	_, ok = policy.ParentOf("installationSchedule.scheduledInstallDay")
	assert.False(t, ok)
	_, ok = policy.ParentOf("hotpatchEnabled")
	assert.False(t, ok)
	_, ok = policy.ParentOf("foo.bar")
	assert.False(t, ok)
}

func TestReadOnlyAtWrite(t *testing.T) {
	assert.True(t, policy.ReadOnlyAtWrite(policy.QualityUpdatePolicy, "approvalSettings"))
	assert.False(t, policy.ReadOnlyAtWrite(policy.QualityUpdatePolicy, "hotpatchEnabled"))
	assert.False(t, policy.ReadOnlyAtWrite(policy.UpdateRing, "approvalSettings"))
}

func TestLeavesReturnsCopy(t *testing.T) {
	leaves := policy.Leaves("installationSchedule")
	leaves[0] = "mutated"
	assert.Equal(t, policy.LeafActiveHoursStart, policy.Leaves("installationSchedule")[0])
}
