package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/natek434/gardenit/models"
)

func TestValidateCreateRuleRequestSchedule(t *testing.T) {
	vs := NewValidationService()

	valid := models.CreateRuleRequest{
		Name:     "morning.digest",
		Type:     "time",
		Schedule: "FREQ=DAILY;BYHOUR=7;BYMINUTE=0",
		Params:   map[string]interface{}{"actions": []interface{}{}},
	}
	assert.Empty(t, vs.ValidateStruct(valid))

	// Empty schedule passes validation; the rule service decides
	// whether the rule type requires one.
	valid.Schedule = ""
	assert.Empty(t, vs.ValidateStruct(valid))
}

func TestValidateCreateRuleRequestRejectsBadSchedule(t *testing.T) {
	vs := NewValidationService()

	for _, expr := range []string{
		"FREQ=MONTHLY;BYHOUR=7",
		"FREQ=DAILY;BYHOUR=25",
		"FREQ=WEEKLY;BYDAY=XX",
		"BYHOUR=7", // no FREQ
	} {
		req := models.CreateRuleRequest{
			Name:     "bad.schedule",
			Type:     "time",
			Schedule: expr,
			Params:   map[string]interface{}{"actions": []interface{}{}},
		}
		errs := vs.ValidateStruct(req)
		require.NotEmpty(t, errs, "expected %q to be rejected", expr)
		assert.Equal(t, "recurrence", errs[0].Tag)
		assert.Equal(t, "Invalid recurrence expression", errs[0].Message)
	}
}

func TestValidateUpdateRuleRequestSchedule(t *testing.T) {
	vs := NewValidationService()

	bad := "FREQ=HOURLY"
	errs := vs.ValidateStruct(models.UpdateRuleRequest{Schedule: &bad})
	require.NotEmpty(t, errs)
	assert.Equal(t, "recurrence", errs[0].Tag)

	good := "FREQ=WEEKLY;BYDAY=SU;BYHOUR=16"
	assert.Empty(t, vs.ValidateStruct(models.UpdateRuleRequest{Schedule: &good}))
}
