package llm

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThinkingBudget(t *testing.T) {
	assert.Equal(t, int64(0), thinkingBudget(Settings{}))
	assert.Equal(t, int64(1024), thinkingBudget(Settings{ReasoningSummary: ReasoningSummaryConcise}))
	assert.Equal(t, int64(2048), thinkingBudget(Settings{ReasoningSummary: ReasoningSummaryAuto}))
	assert.Equal(t, int64(4096), thinkingBudget(Settings{ReasoningSummary: ReasoningSummaryDetailed}))
	assert.Equal(t, int64(0), thinkingBudget(Settings{ReasoningSummary: "verbose"}))
}

func TestTrimHistory_DisabledIsIdentity(t *testing.T) {
	msgs := []Message{{Role: RoleUser, Content: "x", ImagePNG: "a"}, {Role: RoleTool, ImagePNG: "b"}, {Role: RoleTool, ImagePNG: "c"}}
	assert.Equal(t, msgs, TrimHistory(msgs, ""))
	assert.Equal(t, msgs, TrimHistory(msgs, TruncationDisabled))
}

func TestTrimHistory_KeepsRecentScreenshots(t *testing.T) {
	msgs := []Message{{Role: RoleUser, Content: "start"}}
	for i := 0; i < 4; i++ {
		msgs = append(msgs,
			Message{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: fmt.Sprint(i), Name: "computer"}}},
			Message{Role: RoleTool, ToolCallID: fmt.Sprint(i), ImagePNG: fmt.Sprintf("png-%d", i)},
		)
	}

	out := TrimHistory(msgs, TruncationAuto)
	require.Len(t, out, len(msgs))
	assert.Equal(t, "", out[2].ImagePNG)
	assert.Equal(t, "(screenshot omitted)", out[2].Content)
	assert.Equal(t, "", out[4].ImagePNG)
	assert.Equal(t, "png-2", out[6].ImagePNG)
	assert.Equal(t, "png-3", out[8].ImagePNG)
	assert.Equal(t, "png-0", msgs[2].ImagePNG, "input is not modified")
}

func TestTrimHistory_DropsOldestTurns(t *testing.T) {
	msgs := []Message{{Role: RoleUser, Content: "start"}}
	for i := 0; i < 50; i++ {
		msgs = append(msgs,
			Message{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: fmt.Sprint(i), Name: "computer"}}},
			Message{Role: RoleTool, ToolCallID: fmt.Sprint(i), Content: "ok"},
		)
	}

	out := TrimHistory(msgs, TruncationAuto)
	assert.LessOrEqual(t, len(out), maxHistoryMessages)
	assert.Equal(t, "start", out[0].Content)
	assert.Equal(t, RoleAssistant, out[1].Role, "tail starts with the call, not an orphaned result")
	assert.Equal(t, msgs[len(msgs)-1], out[len(out)-1])
	assert.Len(t, msgs, 101, "input is not modified")
}
