package advisory

import (
	"fmt"
	"strings"

	"github.com/sells-group/followup-cli/internal/model"
)

// Section labels the model is asked to emit.
const (
	LabelDiagnosis = "DIAGNOSIS"
	LabelStrategy  = "STRATEGY"
	LabelAction    = "RECOMMENDED ACTION"
)

// Prompt is a system/user message pair sent to a Generator.
type Prompt struct {
	System string
	User   string
}

const directorPersona = `You are a senior sales director with many years of experience in high-ticket B2B sales. You coach salespeople on how to run their next follow-up with a prospect so the deal moves toward closing.

Be direct and professional. Skip introductions and pleasantries, but give real strategic substance in every section.`

const outputContract = `Answer with exactly three sections, in this order, each starting on its own line with its label followed by a colon:

DIAGNOSIS: a short paragraph (3-4 sentences) on where the deal stands, what the client is likely feeling and the main obstacle.
STRATEGY: the approach for the next follow-up, including a persuasive, ready-to-send message.
RECOMMENDED ACTION: the concrete goal of this contact and how to steer it toward closing.`

const strictReminder = `Your previous answer could not be parsed. Reply again using ONLY the three labels DIAGNOSIS:, STRATEGY: and RECOMMENDED ACTION:, each exactly once, each at the start of a line, with no other headings, numbering or text before the first label.`

// BuildPrompt renders the advisory prompt for req. knowledge is optional
// company material appended to the system prompt. strict adds a formatting
// reminder used after a malformed answer.
func BuildPrompt(req model.AdvisoryRequest, knowledge string, strict bool) Prompt {
	var sys strings.Builder
	sys.WriteString(directorPersona)
	if knowledge != "" {
		sys.WriteString("\n\nCOMPANY KNOWLEDGE (ground your advice in the products, services and methods described here):\n")
		sys.WriteString(knowledge)
	} else {
		sys.WriteString("\n\nNo company material is available; rely on proven B2B sales practice.")
	}

	var u strings.Builder
	fmt.Fprintf(&u, "Give strategic guidance to the salesperson %q.\n\n", req.Owner)
	u.WriteString("CONTEXT:\n")
	if req.DealName != "" {
		fmt.Fprintf(&u, "- Deal: %s\n", req.DealName)
	}
	fmt.Fprintf(&u, "- Company: %s\n", req.Company)
	fmt.Fprintf(&u, "- Pipeline phase: %s\n", req.Phase)
	fmt.Fprintf(&u, "- Next step: follow-up #%d (current temperature: %s)\n\n", req.NextIndex, req.CurrentTemperature().Label())

	u.WriteString("HISTORY:\n")
	if len(req.History) == 0 {
		u.WriteString("No follow-up recorded yet; this is the start of prospecting.\n")
	}
	for _, s := range req.History {
		fmt.Fprintf(&u, "Follow-up %d (temperature: %s): %s\n", s.Index, s.Temperature.Label(), strings.TrimSpace(s.Description))
	}

	u.WriteString("\n")
	u.WriteString(outputContract)
	if strict {
		u.WriteString("\n\n")
		u.WriteString(strictReminder)
	}

	return Prompt{System: sys.String(), User: u.String()}
}
