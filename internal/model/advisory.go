package model

// Source tells where an advisory came from.
type Source string

const (
	SourceCache Source = "cache"
	SourceLive  Source = "live"
)

// AdvisoryRequest is the lead snapshot sent to the model: the populated
// history up to the last completed follow-up plus the follow-up to plan.
type AdvisoryRequest struct {
	// DealName is prompt context only; it does not take part in the
	// fingerprint.
	DealName  string         `json:"deal_name,omitempty"`
	Company   string         `json:"company"`
	Phase     string         `json:"phase"`
	Owner     string         `json:"owner"`
	History   []FollowUpSlot `json:"history"`
	NextIndex int            `json:"next_index"`
}

// NewAdvisoryRequest builds the request for l at position p.
func NewAdvisoryRequest(l Lead, p Position) AdvisoryRequest {
	history := make([]FollowUpSlot, 0, p.LastCompleted)
	for i := 1; i <= p.LastCompleted && i <= MaxFollowUps; i++ {
		history = append(history, l.Slot(i))
	}
	return AdvisoryRequest{
		DealName:  l.DealName,
		Company:   l.Company,
		Phase:     l.Phase,
		Owner:     l.Owner,
		History:   history,
		NextIndex: p.Next,
	}
}

// CurrentTemperature is the temperature of the most recent history entry.
func (r AdvisoryRequest) CurrentTemperature() Temperature {
	if len(r.History) == 0 {
		return TemperatureUnset
	}
	return r.History[len(r.History)-1].Temperature
}

// AdvisoryResult is the model's recommendation for the next follow-up.
type AdvisoryResult struct {
	Diagnosis         string `json:"diagnosis" yaml:"diagnosis"`
	Strategy          string `json:"strategy" yaml:"strategy"`
	RecommendedAction string `json:"recommended_action" yaml:"recommended_action"`
	Source            Source `json:"source" yaml:"source"`
	Model             string `json:"model,omitempty" yaml:"model,omitempty"`
	// Degraded is set when the response could not be split into sections;
	// Strategy then holds the raw model text.
	Degraded bool `json:"degraded,omitempty" yaml:"degraded,omitempty"`
}
