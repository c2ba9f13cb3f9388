package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/followup-cli/internal/advisory"
	"github.com/sells-group/followup-cli/internal/model"
	"github.com/sells-group/followup-cli/internal/report"
	"github.com/sells-group/followup-cli/internal/resilience"
)

const exportCSV = "deal_name,company,phase,owner,followup_1_temperature,followup_1_description\n" +
	"Fleet renewal,Acme,Proposta,Ana,Morno,Sent the proposal\n" +
	"Pilot,Globex,Negociação,Bruno,Quente,Asked for a discount\n" +
	"Cold lead,Initech,Oportunidade,Ana,,\n"

func newTestServer(t *testing.T) (*Server, *Registry) {
	t.Helper()
	adv, err := advisory.NewAdvisor(advisory.StubGenerator{}, nil, advisory.Options{
		Models: []string{"offline-stub"},
		Retry:  resilience.FixedDelay(1, 0),
	})
	require.NoError(t, err)
	reg := NewRegistry(time.Hour)
	return New(adv, reg, Config{HiddenPhases: report.DefaultHiddenPhases, Concurrency: 2}), reg
}

func uploadRequest(t *testing.T, filename, content string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/batches", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) report.View {
	t.Helper()
	var v report.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func upload(t *testing.T, h http.Handler) report.View {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "export.csv", exportCSV, nil))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeView(t, rec)
}

func TestCreateBatch(t *testing.T) {
	srv, reg := newTestServer(t)
	h := srv.Handler()

	v := upload(t, h)
	assert.NotEmpty(t, v.BatchID)
	assert.Equal(t, "export.csv", v.Source)
	assert.Equal(t, 2, v.Summary.Total)
	assert.Equal(t, 1, v.Hidden)
	require.Len(t, v.Owners, 2)
	assert.Equal(t, "Ana", v.Owners[0].Owner)
	assert.Equal(t, "Bruno", v.Owners[1].Owner)
	assert.Equal(t, 1, reg.Len())

	out := v.Owners[0].Outcomes[0]
	assert.Equal(t, model.OutcomeRecommended, out.Status)
	require.NotNil(t, out.Advisory)
	assert.Contains(t, out.Advisory.RecommendedAction, "follow-up 2")
}

func TestCreateBatch_LimitField(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, uploadRequest(t, "export.csv", exportCSV, map[string]string{"limit": "1"}))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, decodeView(t, rec).Summary.Total)
}

func TestCreateBatch_BadRequests(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  string
		fields   map[string]string
	}{
		{"missing file", "", "", nil},
		{"unsupported extension", "export.pdf", "x", nil},
		{"bad limit", "export.csv", exportCSV, map[string]string{"limit": "-1"}},
		{"empty file", "export.csv", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, reg := newTestServer(t)
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, uploadRequest(t, tt.filename, tt.content, tt.fields))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
			assert.Equal(t, 0, reg.Len())
		})
	}
}

func TestCreateBatch_SchemaError(t *testing.T) {
	srv, reg := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, uploadRequest(t, "export.csv", "deal_name,company\nA,B\n", nil))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body struct {
		Error   string   `json:"error"`
		Missing []string `json:"missing_columns"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Missing, "owner")
	assert.Contains(t, body.Missing, "followup_1_temperature")
	assert.Equal(t, 0, reg.Len())
}

func TestCreateBatch_TooLarge(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.cfg.MaxUploadBytes = 64
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, uploadRequest(t, "export.csv", strings.Repeat(exportCSV, 10), nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetBatch(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()
	id := upload(t, h).BatchID

	t.Run("default hides early phases", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/batches/"+id, nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, decodeView(t, rec).Hidden)
	})

	t.Run("all shows every phase", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/batches/"+id+"?all=true", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		v := decodeView(t, rec)
		assert.Equal(t, 0, v.Hidden)
		assert.Equal(t, 2, v.Owners[0].Total)
	})

	t.Run("owner filter", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/batches/"+id+"?owner=bruno", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		v := decodeView(t, rec)
		require.Len(t, v.Owners, 1)
		assert.Equal(t, "Bruno", v.Owners[0].Owner)
	})

	t.Run("unknown id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/batches/nope", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestGetOwner(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()
	id := upload(t, h).BatchID

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/batches/"+id+"/owners/ANA", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var g report.OwnerGroup
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &g))
	assert.Equal(t, "Ana", g.Owner)
	assert.Equal(t, 1, g.Recommended)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/batches/"+id+"/owners/Carla", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetReport(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()
	id := upload(t, h).BatchID

	t.Run("markdown", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/batches/"+id+"/report?format=md", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/markdown")
		assert.Contains(t, rec.Body.String(), "Fleet renewal")
	})

	t.Run("xlsx", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/batches/"+id+"/report?format=xlsx", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Disposition"), id)
		f, err := xlsx.OpenBinary(rec.Body.Bytes())
		require.NoError(t, err)
		_, ok := f.Sheet["Advisories"]
		assert.True(t, ok)
	})

	t.Run("unknown format", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/batches/"+id+"/report?format=pdf", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegistry_Expiry(t *testing.T) {
	reg := NewRegistry(time.Minute)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return now }

	reg.Put(&model.Batch{ID: "a"})
	_, ok := reg.Get("a")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = reg.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, reg.Len())
	assert.Equal(t, 1, reg.Sweep())
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_ZeroTTLKeepsForever(t *testing.T) {
	reg := NewRegistry(0)
	now := time.Now()
	reg.now = func() time.Time { return now }
	reg.Put(&model.Batch{ID: "a"})
	now = now.Add(24 * 365 * time.Hour)
	_, ok := reg.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 0, reg.Sweep())
}
