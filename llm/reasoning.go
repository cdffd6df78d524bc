package llm

import "strings"

const (
	ReasoningSummaryAuto     = "auto"
	ReasoningSummaryConcise  = "concise"
	ReasoningSummaryDetailed = "detailed"

	TruncationAuto     = "auto"
	TruncationDisabled = "disabled"
)

// History limits applied under TruncationAuto.
const (
	maxHistoryMessages = 60
	keepRecentImages   = 2
)

// ReasoningBlock is one provider thinking block and the signature that must
// accompany it when it is sent back.
type ReasoningBlock struct {
	Text      string `json:"text"`
	Signature string `json:"signature,omitempty"`
}

// thinkingBudget maps a reasoning summary level to an extended thinking
// token budget. Zero disables thinking. 1024 is the smallest budget the
// Anthropic API accepts.
func thinkingBudget(s Settings) int64 {
	switch s.ReasoningSummary {
	case ReasoningSummaryConcise:
		return 1024
	case ReasoningSummaryAuto:
		return 2048
	case ReasoningSummaryDetailed:
		return 4096
	default:
		return 0
	}
}

// reasoningEffort returns the effort to send for model. An explicit
// ReasoningEffort wins; otherwise a summary level is translated, but only for
// reasoning models since other chat models reject the parameter.
func reasoningEffort(s Settings, model string) string {
	if s.ReasoningEffort != "" {
		return s.ReasoningEffort
	}
	if !isReasoningModel(model) {
		return ""
	}
	switch s.ReasoningSummary {
	case ReasoningSummaryConcise:
		return "low"
	case ReasoningSummaryAuto:
		return "medium"
	case ReasoningSummaryDetailed:
		return "high"
	default:
		return ""
	}
}

func isReasoningModel(model string) bool {
	m := strings.ToLower(model)
	for _, prefix := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(m, prefix) {
			return true
		}
	}
	return false
}

// TrimHistory applies a truncation policy to the conversation sent to the
// model. Under TruncationAuto only the newest keepRecentImages attachments are
// kept, and when the history exceeds maxHistoryMessages the oldest turns are
// dropped. The first message (the run input) always survives and the kept tail
// starts at an assistant message so no tool result loses its call. Any other
// policy returns messages unchanged. The input slice is never modified.
func TrimHistory(messages []Message, policy string) []Message {
	if policy != TruncationAuto || len(messages) == 0 {
		return messages
	}

	out := messages
	if len(messages) > maxHistoryMessages {
		cut := len(messages) - maxHistoryMessages + 1
		for cut < len(messages) && messages[cut].Role != RoleAssistant {
			cut++
		}
		out = make([]Message, 0, 1+len(messages)-cut)
		out = append(out, messages[0])
		out = append(out, messages[cut:]...)
	} else {
		out = append([]Message(nil), messages...)
	}

	images := 0
	for i := len(out) - 1; i >= 0; i-- {
		if out[i].ImagePNG == "" {
			continue
		}
		images++
		if images > keepRecentImages {
			out[i].ImagePNG = ""
			if out[i].Content == "" {
				out[i].Content = "(screenshot omitted)"
			}
		}
	}
	return out
}
