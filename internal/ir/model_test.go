package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		in        string
		actor     string
		port      string
		expectErr bool
	}{
		{"A.out", "A", "out", false},
		{"in", "", "in", false},
		{" B.in ", "B", "in", false},
		{"outer.inner.p", "outer.inner", "p", false},
		{"", "", "", true},
		{".p", "", "", true},
		{"A.", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			actor, port, err := ParseEndpoint(tt.in)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.actor, actor)
			assert.Equal(t, tt.port, port)
		})
	}
}

func TestProfileComposite(t *testing.T) {
	p := &Profile{
		Name:  "child",
		Ports: []PortSpec{{Name: "in", Direction: DirectionInput, Rate: 2}},
		FiringFunctions: []FiringFunction{
			{Ports: []FiringPort{{Name: "in", Rate: 2, Input: true}}},
		},
	}

	a := p.Composite("C")
	assert.Equal(t, "C", a.Name)
	assert.Equal(t, KindComposite, a.EffectiveKind())
	assert.Equal(t, 2, a.FiringFunctions[0].Rate("in"))
	assert.Equal(t, 0, a.FiringFunctions[0].Rate("missing"))

	a.Ports[0].Rate = 9
	assert.Equal(t, 2, p.Ports[0].Rate, "Composite copies ports")
}

func TestEffectiveKindDefaultsToAtomic(t *testing.T) {
	assert.Equal(t, KindAtomic, ActorSpec{Name: "x"}.EffectiveKind())
	assert.Equal(t, KindRelay, ActorSpec{Name: "x", Kind: KindRelay}.EffectiveKind())
}
