package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SyndewTech/Oluso-sub010/pkg/journey"
)

type fakeTOTPLookup struct {
	secret   string
	enrolled bool
}

func (f *fakeTOTPLookup) TOTPSecret(context.Context, string, string) (string, bool, error) {
	return f.secret, f.enrolled, nil
}

func TestMfa_SkipsWhenNotEnrolled(t *testing.T) {
	h := &Mfa{Secrets: &fakeTOTPLookup{enrolled: false}}
	outcome, err := h.Execute(&journey.ExecContext{
		Context: context.Background(), JourneyData: map[string]any{"user_id": "alice"}, UserInput: map[string]any{},
	})
	require.NoError(t, err)
	assert.Equal(t, journey.OutcomeSuccess, outcome.Kind)
}

func TestMfa_RequiresInputWhenNoCode(t *testing.T) {
	h := &Mfa{Secrets: &fakeTOTPLookup{secret: "JBSWY3DPEHPK3PXP", enrolled: true}}
	outcome, err := h.Execute(&journey.ExecContext{
		Context: context.Background(), JourneyData: map[string]any{"user_id": "alice"}, UserInput: map[string]any{},
	})
	require.NoError(t, err)
	assert.Equal(t, journey.OutcomeRequireInput, outcome.Kind)
}

func TestMfa_ValidatesCorrectCode(t *testing.T) {
	fixedNow := time.Unix(59, 0).UTC()
	secret := base32FromHex(t, "3132333435363738393031323334353637383930")

	h := &Mfa{
		Secrets: &fakeTOTPLookup{secret: secret, enrolled: true},
		Now:     func() time.Time { return fixedNow },
	}
	outcome, err := h.Execute(&journey.ExecContext{
		Context:     context.Background(),
		JourneyData: map[string]any{"user_id": "alice"},
		UserInput:   map[string]any{"code": "287082"},
	})
	require.NoError(t, err)
	assert.Equal(t, journey.OutcomeSuccess, outcome.Kind)
	assert.Equal(t, []string{"otp"}, outcome.Outputs["amr"])
}

func TestMfa_RejectsWrongCode(t *testing.T) {
	fixedNow := time.Unix(59, 0).UTC()
	secret := base32FromHex(t, "3132333435363738393031323334353637383930")

	h := &Mfa{
		Secrets: &fakeTOTPLookup{secret: secret, enrolled: true},
		Now:     func() time.Time { return fixedNow },
	}
	outcome, err := h.Execute(&journey.ExecContext{
		Context:     context.Background(),
		JourneyData: map[string]any{"user_id": "alice"},
		UserInput:   map[string]any{"code": "000000"},
	})
	require.NoError(t, err)
	assert.Equal(t, journey.OutcomeRequireInput, outcome.Kind)
	assert.Equal(t, "invalid_code", outcome.ViewModel["error"])
}
