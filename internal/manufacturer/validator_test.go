package manufacturer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate_CanonicalCasing(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		want      string
	}{
		{"all lower", "apr", "APR"},
		{"all upper", "MISHIMOTO", "Mishimoto"},
		{"mixed", "awe tuning", "AWE Tuning"},
		{"exact", "034Motorsport", "034Motorsport"},
		{"surrounding whitespace", "  stoptech  ", "StopTech"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Validate(tt.candidate)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidate_RejectsRetailers(t *testing.T) {
	for _, candidate := range []string{"ECS Tuning", "ecs tuning", "FCP EURO", "amazon", "eBay"} {
		got, ok := Validate(candidate)
		assert.False(t, ok, "retailer %q must be rejected", candidate)
		assert.Empty(t, got)
	}
}

func TestValidate_AcceptsUnknownUnchanged(t *testing.T) {
	got, ok := Validate("Garage Built Fabrication")
	assert.True(t, ok)
	assert.Equal(t, "Garage Built Fabrication", got)
}

func TestLookup_Website(t *testing.T) {
	m, ok := Lookup("öhlins")
	assert.True(t, ok)
	assert.Equal(t, "Öhlins", m.Name)
	assert.Equal(t, "https://ohlins.com", m.Website)

	_, ok = Lookup("not a brand")
	assert.False(t, ok)
}

func TestIsRetailer(t *testing.T) {
	assert.True(t, IsRetailer("summit racing"))
	assert.False(t, IsRetailer("Borla"))
}
