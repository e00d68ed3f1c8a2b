package models

// Vessel represents a vessel record.
type Vessel struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	IMONumber  *string `json:"imoNumber,omitempty"`
	Flag       *string `json:"flag,omitempty"`
	VesselType *string `json:"vesselType,omitempty"` // e.g. "Bulk Carrier", "Tanker"
	CreatedAt  string  `json:"createdAt"`
	UpdatedAt  string  `json:"updatedAt"`
}

// VesselSummary includes the current onboard crew count per vessel.
type VesselSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Flag         string `json:"flag"`
	OnboardCount int    `json:"onboardCount"`
}

// CreateVesselRequest defines the accepted fields for vessel creation/update.
type CreateVesselRequest struct {
	Name       string  `json:"name"`
	IMONumber  *string `json:"imoNumber,omitempty"`
	Flag       *string `json:"flag,omitempty"`
	VesselType *string `json:"vesselType,omitempty"`
}

// Validate checks required vessel fields.
func (r *CreateVesselRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.Name == "" {
		errors["name"] = "Vessel name is required"
	}
	return errors
}
