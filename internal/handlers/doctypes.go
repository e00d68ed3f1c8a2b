package handlers

import (
	"net/http"

	"github.com/fullahead747-jpg/SeaCrewManager-sub001/internal/compliance"
)

// DocTypeHandler serves the document-type catalog. The set is fixed by the
// compliance engine, so the catalog is static.
type DocTypeHandler struct{}

// NewDocTypeHandler creates a new DocTypeHandler.
func NewDocTypeHandler() *DocTypeHandler {
	return &DocTypeHandler{}
}

// docTypeInfo describes one document type to the client.
type docTypeInfo struct {
	Type        string `json:"type"`
	DisplayName string `json:"displayName"`
	HasExpiry   bool   `json:"hasExpiry"`
	Tracked     bool   `json:"tracked"`  // contributes to the compliance summary
	Critical    bool   `json:"critical"` // gates sign-on for every rank
	OfficerOnly bool   `json:"officerOnly"`
}

// List handles GET /api/document-types
func (h *DocTypeHandler) List(w http.ResponseWriter, r *http.Request) {
	critical := map[string]bool{}
	for _, t := range compliance.CriticalDocTypes {
		critical[t] = true
	}
	tracked := map[string]bool{}
	for _, t := range compliance.TrackedTypes {
		tracked[t] = true
	}

	all := []string{
		compliance.TypePassport,
		compliance.TypeCDC,
		compliance.TypeCOC,
		compliance.TypeMedical,
		compliance.TypeAOA,
		compliance.TypePhoto,
		compliance.TypeNOK,
	}

	catalog := make([]docTypeInfo, 0, len(all))
	for _, t := range all {
		catalog = append(catalog, docTypeInfo{
			Type:        t,
			DisplayName: compliance.DisplayName(t),
			HasExpiry:   t != compliance.TypePhoto && t != compliance.TypeNOK,
			Tracked:     tracked[t],
			Critical:    critical[t],
			OfficerOnly: t == compliance.TypeCOC,
		})
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"data": catalog,
	})
}
