package entity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func knownIDs(ids ...string) func(string) bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return func(id string) bool { return set[id] }
}

func TestParsePolicyKind(t *testing.T) {
	tests := []struct {
		input string
		want  PolicyKind
	}{
		{"", PolicySingle},
		{"single", PolicySingle},
		{"Fallback", PolicyFallback},
		{"single_with_fallback", PolicyFallback},
		{"choice", PolicyUserChoice},
		{"user_choice", PolicyUserChoice},
		{" broadcast ", PolicyBroadcast},
	}
	for _, tt := range tests {
		got, err := ParsePolicyKind(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}

	_, err := ParsePolicyKind("round-robin")
	assert.Error(t, err)
}

func TestDispatchPolicyValidate(t *testing.T) {
	known := knownIDs("gemini", "imagen", "dalle")

	tests := []struct {
		name    string
		policy  DispatchPolicy
		wantErr bool
	}{
		{"single ok", DispatchPolicy{Kind: PolicySingle, Primary: "gemini"}, false},
		{"single missing", DispatchPolicy{Kind: PolicySingle}, true},
		{"single unknown", DispatchPolicy{Kind: PolicySingle, Primary: "midjourney"}, true},
		{"fallback ok", DispatchPolicy{Kind: PolicyFallback, Primary: "gemini", Secondary: "dalle"}, false},
		{"fallback same twice", DispatchPolicy{Kind: PolicyFallback, Primary: "gemini", Secondary: "gemini"}, true},
		{"fallback no secondary", DispatchPolicy{Kind: PolicyFallback, Primary: "gemini"}, true},
		{"choice ok", DispatchPolicy{Kind: PolicyUserChoice, Providers: []string{"gemini", "dalle"}}, false},
		{"choice empty", DispatchPolicy{Kind: PolicyUserChoice}, true},
		{"broadcast duplicate", DispatchPolicy{Kind: PolicyBroadcast, Providers: []string{"imagen", "imagen"}}, true},
		{"broadcast unknown", DispatchPolicy{Kind: PolicyBroadcast, Providers: []string{"imagen", "sdxl"}}, true},
		{"bogus kind", DispatchPolicy{Kind: "lottery", Primary: "gemini"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate(known)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	err := DispatchPolicy{Kind: PolicySingle, Primary: "midjourney"}.Validate(known)
	assert.True(t, errors.Is(err, ErrUnknownProvider))
}
