// Package advisory produces next-follow-up recommendations from a language
// model, with caching, retries and rate shaping around the endpoint.
package advisory

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/sells-group/followup-cli/internal/model"
)

type canonicalSlot struct {
	Index       int    `json:"i"`
	Temperature string `json:"t"`
	Description string `json:"d"`
}

type canonicalRequest struct {
	Company string          `json:"c"`
	Phase   string          `json:"p"`
	Owner   string          `json:"o"`
	History []canonicalSlot `json:"h"`
	Next    int             `json:"n"`
}

// Fingerprint is the cache key of a request: a SHA-256 over the JSON form of
// company, phase, owner, the populated history and the next index, with all
// text whitespace-normalized. The deal name is not part of it.
func Fingerprint(req model.AdvisoryRequest) string {
	c := canonicalRequest{
		Company: squash(req.Company),
		Phase:   squash(req.Phase),
		Owner:   squash(req.Owner),
		History: make([]canonicalSlot, 0, len(req.History)),
		Next:    req.NextIndex,
	}
	for _, s := range req.History {
		if !s.Populated() {
			continue
		}
		c.History = append(c.History, canonicalSlot{
			Index:       s.Index,
			Temperature: string(model.ParseTemperature(string(s.Temperature))),
			Description: squash(s.Description),
		})
	}

	// Marshal of plain strings and ints cannot fail.
	b, _ := json.Marshal(c)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
