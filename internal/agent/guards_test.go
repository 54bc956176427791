package agent

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAssertGuardsPassesForUneditedConstants(t *testing.T) {
	require.NoError(t, AssertGuards())
}
