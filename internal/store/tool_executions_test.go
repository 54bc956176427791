package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRecordToolExecutionSucceeds(t *testing.T) {
	s := newTestStore(t)
	confirmed := true

	err := s.RecordToolExecution(context.Background(), ToolExecution{
		SessionID:     "s1",
		ToolName:      "shell_execute",
		InputPreview:  "ls -la",
		OutputPreview: "total 0",
		SafetyTier:    "AUTO",
		UserConfirmed: &confirmed,
		Duration:      50 * time.Millisecond,
	})
	require.NoError(t, err)
}
