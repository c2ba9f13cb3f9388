package model

import "strings"

// MaxFollowUps is the number of follow-up slots a CRM row carries.
const MaxFollowUps = 5

// Temperature is the rating a salesperson gave a follow-up. Canonical values
// are Hot, Warm and Cold; any other non-empty label is kept verbatim.
type Temperature string

const (
	TemperatureUnset Temperature = ""
	TemperatureHot   Temperature = "Hot"
	TemperatureWarm  Temperature = "Warm"
	TemperatureCold  Temperature = "Cold"
)

var temperatureAliases = map[string]Temperature{
	"hot":    TemperatureHot,
	"quente": TemperatureHot,
	"warm":   TemperatureWarm,
	"morno":  TemperatureWarm,
	"morna":  TemperatureWarm,
	"cold":   TemperatureCold,
	"frio":   TemperatureCold,
	"fria":   TemperatureCold,
}

// ParseTemperature maps a raw cell value to a Temperature. Matching is
// case-insensitive; unrecognized labels pass through trimmed.
func ParseTemperature(raw string) Temperature {
	label := strings.Join(strings.Fields(raw), " ")
	if label == "" {
		return TemperatureUnset
	}
	if t, ok := temperatureAliases[strings.ToLower(label)]; ok {
		return t
	}
	return Temperature(label)
}

// Label returns a display label, "Unset" for the zero value.
func (t Temperature) Label() string {
	if t == TemperatureUnset {
		return "Unset"
	}
	return string(t)
}

// FollowUpSlot is one recorded interaction with a lead.
type FollowUpSlot struct {
	Index       int         `json:"index" yaml:"index"`
	Temperature Temperature `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
}

// Populated reports whether the slot has a non-blank description.
func (s FollowUpSlot) Populated() bool {
	return strings.TrimSpace(s.Description) != ""
}

// Lead is one CRM opportunity with its follow-up history.
type Lead struct {
	DealName  string                     `json:"deal_name" yaml:"deal_name"`
	Company   string                     `json:"company" yaml:"company"`
	Phase     string                     `json:"phase" yaml:"phase"`
	Owner     string                     `json:"owner" yaml:"owner"`
	FollowUps [MaxFollowUps]FollowUpSlot `json:"follow_ups" yaml:"follow_ups"`
}

// NewLead returns a Lead with every slot indexed and unpopulated.
func NewLead(dealName, company, phase, owner string) Lead {
	l := Lead{DealName: dealName, Company: company, Phase: phase, Owner: owner}
	for i := range l.FollowUps {
		l.FollowUps[i].Index = i + 1
	}
	return l
}

// Slot returns the follow-up with the given 1-based index.
func (l Lead) Slot(index int) FollowUpSlot {
	return l.FollowUps[index-1]
}

// Position locates a lead in its follow-up sequence.
type Position struct {
	// LastCompleted is the last follow-up of the contiguous populated prefix
	// (0 when none).
	LastCompleted int `json:"last_completed" yaml:"last_completed"`
	// Next is the follow-up to recommend; MaxFollowUps+1 means exhausted.
	Next int `json:"next" yaml:"next"`
}

// Exhausted reports whether every follow-up slot has been used.
func (p Position) Exhausted() bool {
	return p.Next > MaxFollowUps
}

// CurrentTemperature returns the temperature of the last completed
// follow-up, or Unset when none has been completed.
func (l Lead) CurrentTemperature(p Position) Temperature {
	if p.LastCompleted < 1 {
		return TemperatureUnset
	}
	return l.Slot(p.LastCompleted).Temperature
}
