package compare_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/realgarit/intuneup/pkg/compare"
	"github.com/realgarit/intuneup/pkg/policy"
)

func sampleValues() []any {
	return []any{
		nil,
		true,
		false,
		7,
		float64(7.5),
		"businessReadyOnly",
		"",
		map[string]any{},
		map[string]any{
			"@odata.type":      "#microsoft.graph.windowsUpdateActiveHoursInstall",
			"activeHoursStart": "06:00:00",
			"activeHoursEnd":   "19:00:00",
		},
		[]any{},
		[]any{
			map[string]any{"approvalType": "automatic", "deferredDeploymentInDay": 0},
			map[string]any{"approvalType": "manual", "deferredDeploymentInDay": 0},
		},
		policy.RawPolicy{"nested": map[string]any{"list": []any{1, "two", nil}}},
	}
}

func TestEqualReflexive(t *testing.T) {
	for _, v := range sampleValues() {
		assert.True(t, compare.Equal(v, v), "%#v", v)
	}
}

func TestEqualSymmetric(t *testing.T) {
	values := sampleValues()
	for _, a := range values {
		for _, b := range values {
			assert.Equal(t, compare.Equal(a, b), compare.Equal(b, a), "%#v vs %#v", a, b)
		}
	}
}

func TestEqualExtraKeyIsUnequal(t *testing.T) {
	small := map[string]any{"activeHoursStart": "06:00:00", "activeHoursEnd": "19:00:00"}
	big := map[string]any{"activeHoursStart": "06:00:00", "activeHoursEnd": "19:00:00", "extra": nil}
	assert.False(t, compare.Equal(small, big))
	assert.False(t, compare.Equal(big, small))
}

func TestEqualRules(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"nil vs nil", nil, nil, true},
		{"nil vs zero", nil, 0, false},
		{"nil vs empty string", nil, "", false},
		{"nil map vs nil", map[string]any(nil), nil, true},
		{"int vs float64", 7, float64(7), true},
		{"int vs json number", 7, json.Number("7"), true},
		{"float vs json number", 7.5, json.Number("7.5"), true},
		{"different numbers", 7, 3, false},
		{"number vs string", 7, "7", false},
		{"bool vs string", true, "true", false},
		{"map vs scalar", map[string]any{}, "x", false},
		{"map vs slice", map[string]any{}, []any{}, false},
		{"same key set", map[string]any{"a": 1, "b": "x"}, map[string]any{"b": "x", "a": float64(1)}, true},
		{"different value", map[string]any{"a": 1}, map[string]any{"a": 2}, false},
		{"different keys", map[string]any{"a": 1}, map[string]any{"b": 1}, false},
		{"typed map", policy.RawPolicy{"a": true}, map[string]any{"a": true}, true},
		{"slice positionwise", []any{1, 2}, []any{1, 2}, true},
		{"slice reordered", []any{1, 2}, []any{2, 1}, false},
		{"slice length", []any{1}, []any{1, 1}, false},
		{"typed slice", []string{"a"}, []any{"a"}, true},
		{"nested", []any{map[string]any{"x": []any{1}}}, []any{map[string]any{"x": []any{float64(1)}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, compare.Equal(tt.a, tt.b))
		})
	}
}

func TestNormalizeTimeOfDay(t *testing.T) {
	assert.Equal(t, "19:00:00", compare.NormalizeTimeOfDay("19:00:00.0000000"))
	assert.Equal(t, "06:00:00", compare.NormalizeTimeOfDay("06:00:00"))
	assert.Equal(t, "06:00:00", compare.NormalizeTimeOfDay("06:00:00.5"))
	assert.Equal(t, "Windows 11, version 25H2", compare.NormalizeTimeOfDay("Windows 11, version 25H2"))
	assert.Equal(t, "", compare.NormalizeTimeOfDay(""))

	assert.True(t, compare.Equal(
		compare.NormalizeTimeValue("19:00:00.0000000"),
		compare.NormalizeTimeValue("19:00:00"),
	))
	assert.False(t, compare.Equal(
		compare.NormalizeTimeValue("06:00:00"),
		compare.NormalizeTimeValue("07:00:00"),
	))
	assert.Nil(t, compare.NormalizeTimeValue(nil))
}
