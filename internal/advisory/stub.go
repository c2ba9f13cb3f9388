package advisory

import (
	"context"
	"fmt"
	"regexp"
)

var _ Generator = (*StubGenerator)(nil)

var nextStepRe = regexp.MustCompile(`follow-up #(\d+)`)

// StubGenerator implements Generator with a canned, well-formed answer. It is
// used for offline runs and never touches the network.
type StubGenerator struct{}

// Generate implements Generator.
func (StubGenerator) Generate(_ context.Context, modelID string, p Prompt) (Completion, error) {
	next := "1"
	if m := nextStepRe.FindStringSubmatch(p.User); m != nil {
		next = m[1]
	}
	text := fmt.Sprintf(`DIAGNOSIS: Offline analysis. The lead is waiting on follow-up %[1]s and no model was consulted.
STRATEGY: Review the previous contacts and prepare a short, value-focused message for follow-up %[1]s.
RECOMMENDED ACTION: Schedule follow-up %[1]s and confirm a concrete next step with the client.`, next)
	if modelID == "" {
		modelID = "offline-stub"
	}
	return Completion{Text: text, Model: modelID}, nil
}
