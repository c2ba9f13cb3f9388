package report

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/followup-cli/internal/model"
)

func outcome(row int, owner, phase string, status model.OutcomeStatus, completed int) model.Outcome {
	l := model.NewLead("deal-"+owner, "Company "+owner, phase, owner)
	for i := 1; i <= completed; i++ {
		l.FollowUps[i-1].Temperature = model.TemperatureHot
		l.FollowUps[i-1].Description = "contact"
	}
	o := model.Outcome{
		Row:      row,
		Lead:     l,
		Position: model.Position{LastCompleted: completed, Next: completed + 1},
		Status:   status,
	}
	switch status {
	case model.OutcomeRecommended:
		o.Advisory = &model.AdvisoryResult{
			Diagnosis:         "cooling off",
			Strategy:          "send a case study",
			RecommendedAction: "book a call",
			Source:            model.SourceLive,
		}
	case model.OutcomeFailed:
		o.ErrorKind = model.ErrorKindAdvisoryUnavailable
		o.Error = "advisory unavailable (rate limited)"
	}
	return o
}

func testBatch() *model.Batch {
	return &model.Batch{
		ID:         "b-1",
		Source:     "export.xlsx",
		StartedAt:  time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2026, 3, 2, 9, 1, 0, 0, time.UTC),
		Outcomes: []model.Outcome{
			outcome(1, "Bruno", "Proposta", model.OutcomeRecommended, 1),
			outcome(2, "Ana", "Negociação", model.OutcomeExhausted, 5),
			outcome(3, "Ana", "Reunião agendada", model.OutcomeRecommended, 0),
			outcome(4, "Ana", "Proposta", model.OutcomeFailed, 2),
			outcome(5, "", "Proposta", model.OutcomeRecommended, 1),
		},
	}
}

func TestOptions_Visible(t *testing.T) {
	opts := Options{HiddenPhases: DefaultHiddenPhases}
	assert.False(t, opts.Visible(outcome(1, "Ana", "REUNIAO marcada", model.OutcomeRecommended, 0)))
	assert.False(t, opts.Visible(outcome(1, "Ana", "Oportunidade", model.OutcomeRecommended, 0)))
	assert.True(t, opts.Visible(outcome(1, "Ana", "Proposta", model.OutcomeRecommended, 0)))

	byOwner := Options{Owner: "ana"}
	assert.True(t, byOwner.Visible(outcome(1, "Ana", "Proposta", model.OutcomeRecommended, 0)))
	assert.False(t, byOwner.Visible(outcome(1, "Bruno", "Proposta", model.OutcomeRecommended, 0)))
}

func TestDashboard(t *testing.T) {
	v := Dashboard(testBatch(), Options{HiddenPhases: DefaultHiddenPhases})

	assert.Equal(t, "b-1", v.BatchID)
	assert.Equal(t, 1, v.Hidden)
	assert.Equal(t, 4, v.Summary.Total)
	assert.Equal(t, 2, v.Summary.Recommended)
	assert.Equal(t, 1, v.Summary.Exhausted)
	assert.Equal(t, 1, v.Summary.Failed)

	require.Len(t, v.Owners, 3)
	assert.Equal(t, "Ana", v.Owners[0].Owner)
	assert.Equal(t, "Bruno", v.Owners[1].Owner)
	assert.Equal(t, UnassignedOwner, v.Owners[2].Owner)

	ana := v.Owners[0]
	assert.Equal(t, 2, ana.Total)
	assert.Equal(t, 1, ana.Exhausted)
	assert.Equal(t, 1, ana.Failed)
	assert.Equal(t, map[string]int{"Hot": 2}, ana.Temperatures)
	assert.Equal(t, 2, ana.Outcomes[0].Row)
	assert.Equal(t, 4, ana.Outcomes[1].Row)

	g, ok := v.Owner("BRUNO")
	require.True(t, ok)
	assert.Equal(t, 1, g.Recommended)
	_, ok = v.Owner("Carla")
	assert.False(t, ok)
}

func TestDashboard_OwnerSpellingsShareGroup(t *testing.T) {
	b := &model.Batch{ID: "b-2", Outcomes: []model.Outcome{
		outcome(1, "Ana", "Proposta", model.OutcomeRecommended, 1),
		outcome(2, "ANA ", "Proposta", model.OutcomeFailed, 2),
		outcome(3, "Âna", "Proposta", model.OutcomeRecommended, 0),
		outcome(4, "bruno", "Proposta", model.OutcomeRecommended, 1),
	}}

	v := Dashboard(b, Options{})
	require.Len(t, v.Owners, 2)
	assert.Equal(t, "Ana", v.Owners[0].Owner)
	assert.Equal(t, 3, v.Owners[0].Total)
	assert.Equal(t, 1, v.Owners[0].Failed)
	assert.Equal(t, "bruno", v.Owners[1].Owner)

	g, ok := v.Owner("ana")
	require.True(t, ok)
	assert.Equal(t, []int{1, 2, 3}, []int{g.Outcomes[0].Row, g.Outcomes[1].Row, g.Outcomes[2].Row})
}

func TestDashboard_Empty(t *testing.T) {
	v := Dashboard(&model.Batch{ID: "empty"}, Options{})
	assert.Empty(t, v.Owners)
	assert.NotNil(t, v.Owners)
	assert.Equal(t, 0, v.Summary.Total)
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, testBatch(), Options{HiddenPhases: DefaultHiddenPhases}))
	out := buf.String()

	assert.Contains(t, out, "# Follow-up Advisory Report\n")
	assert.Contains(t, out, "Source: export.xlsx")
	assert.Contains(t, out, "- Leads: 4")
	assert.Contains(t, out, "- Hidden by filters: 1")
	assert.Contains(t, out, "## Ana\n")
	assert.Contains(t, out, "### Company Bruno")
	assert.Contains(t, out, "**Diagnosis:** cooling off")
	assert.Contains(t, out, "**Recommended action:** book a call")
	assert.Contains(t, out, "all 5 completed")
	assert.Contains(t, out, "## Failures\n- Row 4 (deal-Ana): advisory_unavailable")
	assert.NotContains(t, out, "Reunião agendada")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("## Ana")), bytes.Index(buf.Bytes(), []byte("## Bruno")))
}

func TestWriteMarkdown_OwnerFilterAndDegraded(t *testing.T) {
	b := testBatch()
	b.Outcomes[0].Advisory = &model.AdvisoryResult{Strategy: "free-form answer", Degraded: true, Source: model.SourceLive}

	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, b, Options{Owner: "Bruno"}))
	out := buf.String()

	assert.Contains(t, out, "# Follow-up Advisory Report: Bruno")
	assert.Contains(t, out, "free-form answer")
	assert.NotContains(t, out, "## Ana")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, testBatch(), Options{}))

	var v View
	require.NoError(t, json.Unmarshal(buf.Bytes(), &v))
	assert.Equal(t, "b-1", v.BatchID)
	assert.Equal(t, 5, v.Summary.Total)
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, testBatch(), Options{Owner: "Ana"}))

	var v map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &v))
	assert.Equal(t, "b-1", v["batch_id"])
	assert.Contains(t, buf.String(), "recommended_action: book a call")
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, testBatch(), Options{HiddenPhases: DefaultHiddenPhases}))

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)
	sh := f.Sheets[0]
	require.Len(t, sh.Rows, 5)

	assert.Equal(t, "Owner", sh.Rows[0].Cells[1].String())
	// Ana's exhausted lead comes first and has no next follow-up.
	assert.Equal(t, "2", sh.Rows[1].Cells[0].String())
	assert.Equal(t, "", sh.Rows[1].Cells[7].String())
	assert.Equal(t, "exhausted", sh.Rows[1].Cells[8].String())
	// Bruno's recommendation.
	assert.Equal(t, "Bruno", sh.Rows[3].Cells[1].String())
	assert.Equal(t, "2", sh.Rows[3].Cells[7].String())
	assert.Equal(t, "book a call", sh.Rows[3].Cells[11].String())
}
