package responder

import (
	"fmt"
	"strings"

	"github.com/richinex/abbot/model"
)

// ResponseInstruction closes every first request so the model answers in
// the command format and nothing else.
const ResponseInstruction = "Respond ONLY with the JSON object containing your thought and action."

// FormatFirstRequest renders an inbound chat message as the first request
// of a turn: who sent it, what they said, and the response instruction.
func FormatFirstRequest(msg model.ChatMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s says:\n", msg.From)
	b.WriteString(strings.TrimSpace(msg.Text))
	b.WriteString("\n\n")
	b.WriteString(ResponseInstruction)
	return b.String()
}
