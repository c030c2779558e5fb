package scoring

import (
	"fmt"
	"strings"

	"github.com/leadgate/leadgate/internal/core"
)

// systemInstruction is the fixed rubric for the scoring model. Evidence
// precedence matters more than any individual field: agent notes taken
// after a meeting outweigh the call summary, which outweighs pipeline
// status, which outweighs raw attempt counts.
const systemInstruction = `You are a sales lead qualification assistant. Score the lead's buying intent on a scale of 1 to 5, where 1 means no intent and 5 means ready to buy.

Weigh the evidence in this order of precedence:
1. Client notes written after a meeting are the strongest signal.
2. The call summary or transcript is the next strongest.
3. Pipeline status and the last call outcome come after that.
4. Attempt and booking counts are the weakest signal.

A missing field is neutral evidence. Never penalize a lead for a field that is empty.

Reply with a single digit from 1 to 5 and nothing else.`

// BuildPrompt renders the lead as the fixed-order labeled text block
// sent as the user turn. Field order is stable so scores stay
// comparable across requests.
func BuildPrompt(lead *core.Lead) string {
	if lead == nil {
		lead = &core.Lead{}
	}

	var b strings.Builder
	writeField(&b, "Status", lead.Status)
	writeField(&b, "Last Outcome", lead.LastOutcome)
	writeField(&b, "Call Summary", lead.CallSummary)
	writeField(&b, "Interest", lead.Interest)
	writeField(&b, "Context", lead.Context)
	writeField(&b, "Attempts", fmt.Sprintf("%d", lead.Attempts))
	writeField(&b, "Bookings", fmt.Sprintf("%d", lead.Bookings))
	writeField(&b, "Booked Time", lead.BookedTime)
	writeField(&b, "Client Notes", lead.ClientNotes)
	return strings.TrimRight(b.String(), "\n")
}

func writeField(b *strings.Builder, label, value string) {
	b.WriteString(label)
	b.WriteString(": ")
	b.WriteString(strings.TrimSpace(value))
	b.WriteString("\n")
}
