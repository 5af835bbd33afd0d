package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"sylvie@bloom.sh", true},
		{"a.b+tag@example.co.uk", true},
		{"", false},
		{"no-at-sign", false},
		{"two@@bloom.sh", false},
		{"spaces in@bloom.sh", false},
		{"sylvie@mailinator.com", false}, // disposable domain
		{"sylvie@yopmail.com", false},
		{strings.Repeat("a", 250) + "@bloom.sh", false},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			err := validateEmail(tt.email)
			if tt.valid {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestValidateNamespace(t *testing.T) {
	tests := []struct {
		namespace string
		valid     bool
	}{
		{"sylvie", true},
		{"abc4", true},
		{"a2c4e6", true},
		{strings.Repeat("a", 20), true},
		{"abc", false},                       // too short
		{strings.Repeat("a", 21), false},     // too long
		{"Sylvie", false},                    // uppercase
		{"syl-vie", false},                   // hyphen
		{"syl vie", false},                   // space
		{"sylvie!", false},                   // punctuation
		{"admin", false},                     // reserved
		{"bloom", false},                     // reserved
		{"support", false},                   // reserved
	}
	for _, tt := range tests {
		t.Run(tt.namespace, func(t *testing.T) {
			err := validateNamespace(tt.namespace)
			if tt.valid {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestValidateName(t *testing.T) {
	require.NoError(t, validateName("Sylvie"))
	require.NoError(t, validateName(strings.Repeat("a", 42)))
	require.Error(t, validateName("ab"))
	require.Error(t, validateName(strings.Repeat("a", 43)))
}

func TestValidateDescription(t *testing.T) {
	require.NoError(t, validateDescription(""))
	require.NoError(t, validateDescription(strings.Repeat("a", 420)))
	require.Error(t, validateDescription(strings.Repeat("a", 421)))
}

func TestNormalize(t *testing.T) {
	require.Equal(t, "sylvie@bloom.sh", normalizeEmail("  Sylvie@Bloom.SH "))
	require.Equal(t, "sylvie", normalizeUsername(" Sylvie "))
}
