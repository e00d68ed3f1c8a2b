package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusCreated, map[string]string{"id": "abc"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":"abc"}`, rec.Body.String())
}

func TestJSONError(t *testing.T) {
	rec := httptest.NewRecorder()
	JSONError(rec, http.StatusNotFound, "Crew member not found")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Crew member not found"}`, rec.Body.String())
}

func TestNewPaginationMeta(t *testing.T) {
	m := newPaginationMeta(2, 20, 45)
	assert.Equal(t, 2, m.Page)
	assert.Equal(t, 20, m.Limit)
	assert.Equal(t, 45, m.Total)
	assert.Equal(t, 3, m.TotalPages)

	// An empty result set still reports one page.
	m = newPaginationMeta(1, 20, 0)
	assert.Equal(t, 1, m.TotalPages)

	// Exact multiple does not round up an extra page.
	m = newPaginationMeta(1, 20, 40)
	assert.Equal(t, 2, m.TotalPages)
}

func TestDocTypeCatalog(t *testing.T) {
	h := NewDocTypeHandler()

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/document-types", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []docTypeInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 7)

	byType := map[string]docTypeInfo{}
	for _, d := range body.Data {
		byType[d.Type] = d
	}

	assert.True(t, byType["passport"].Critical)
	assert.True(t, byType["cdc"].Critical)
	assert.True(t, byType["medical"].Critical)
	assert.False(t, byType["aoa"].Critical)

	assert.True(t, byType["coc"].OfficerOnly)
	assert.False(t, byType["passport"].OfficerOnly)

	assert.False(t, byType["photo"].HasExpiry)
	assert.False(t, byType["nok"].HasExpiry)
	assert.True(t, byType["medical"].HasExpiry)

	assert.True(t, byType["aoa"].Tracked)
	assert.False(t, byType["photo"].Tracked)

	assert.Equal(t, "Continuous Discharge Certificate", byType["cdc"].DisplayName)
}
