package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	for _, debug := range []bool{true, false} {
		l, err := New(debug)
		require.NoError(t, err)
		require.NotNil(t, l)
		assert.Equal(t, debug, l.Core().Enabled(-1)) // zapcore.DebugLevel
	}
}

func TestMaskEmail(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"alice@example.com": "a***@example.com",
		"a@x.com":           "a***@x.com",
		"@x.com":            "***",
		"no-at-sign":        "***",
		"":                  "***",
	}
	for in, want := range cases {
		assert.Equal(t, want, MaskEmail(in), in)
	}
}
