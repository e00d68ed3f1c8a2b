package models

import (
	"time"

	"github.com/fullahead747-jpg/SeaCrewManager-sub001/internal/compliance"
)

// CrewMember represents a seafarer record in the database.
type CrewMember struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Rank          string    `json:"rank"`
	Nationality   *string   `json:"nationality,omitempty"`
	Mobile        string    `json:"mobile"`
	DateOfBirth   *string   `json:"dateOfBirth,omitempty"`
	PhotoURL      *string   `json:"photoUrl,omitempty"`
	Status        string    `json:"status"`             // onBoard, onShore
	VesselID      *string   `json:"vesselId,omitempty"` // set while onBoard
	NokName       *string   `json:"nokName,omitempty"`
	NokRelation   *string   `json:"nokRelation,omitempty"`
	NokPhone      *string   `json:"nokPhone,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// CrewWithCompliance includes the active contract context and the computed
// compliance summary for crew list rows. The summary is computed by the
// compliance engine on every read — never stored.
type CrewWithCompliance struct {
	CrewMember
	VesselName      *string            `json:"vesselName,omitempty"`
	ContractID      *string            `json:"contractId,omitempty"`
	ContractEndDate *string            `json:"contractEndDate,omitempty"`
	Compliance      compliance.Summary `json:"compliance"`
}

// CrewDetail is the full profile returned by GET /api/crew/{id}.
type CrewDetail struct {
	CrewMember
	ActiveContract *ContractWithVessel      `json:"activeContract,omitempty"`
	Progress       compliance.Progress      `json:"contractProgress"`
	Documents      []DocumentWithCompliance `json:"documents"`
}

// CreateCrewRequest holds the fields needed to create a crew member.
type CreateCrewRequest struct {
	Name        string  `json:"name"`
	Rank        string  `json:"rank"`
	Nationality *string `json:"nationality,omitempty"`
	Mobile      string  `json:"mobile"`
	DateOfBirth *string `json:"dateOfBirth,omitempty"`
	PhotoURL    string  `json:"photoUrl,omitempty"`
	NokName     *string `json:"nokName,omitempty"`
	NokRelation *string `json:"nokRelation,omitempty"`
	NokPhone    *string `json:"nokPhone,omitempty"`
}

// UpdateCrewRequest holds the fields that can be updated.
type UpdateCrewRequest struct {
	Name        *string `json:"name,omitempty"`
	Rank        *string `json:"rank,omitempty"`
	Nationality *string `json:"nationality,omitempty"`
	Mobile      *string `json:"mobile,omitempty"`
	DateOfBirth *string `json:"dateOfBirth,omitempty"`
	PhotoURL    *string `json:"photoUrl,omitempty"`
	NokName     *string `json:"nokName,omitempty"`
	NokRelation *string `json:"nokRelation,omitempty"`
	NokPhone    *string `json:"nokPhone,omitempty"`
}

// SignOnRequest starts the onShore → onBoard transition.
type SignOnRequest struct {
	ContractID        string `json:"contractId"`
	Reason            string `json:"reason"`
	AcknowledgeRunway bool   `json:"acknowledgeRunway"`
}

// SignOffRequest starts the onBoard → onShore transition.
type SignOffRequest struct {
	Reason           string `json:"reason"`
	CompleteContract bool   `json:"completeContract"` // false → terminate instead
}

// StatusHistoryEntry is one audit record of a crew status transition.
type StatusHistoryEntry struct {
	ID         string    `json:"id"`
	CrewID     string    `json:"crewId"`
	FromStatus string    `json:"fromStatus"`
	ToStatus   string    `json:"toStatus"`
	Reason     string    `json:"reason"`
	VesselID   *string   `json:"vesselId,omitempty"`
	ContractID *string   `json:"contractId,omitempty"`
	ChangedBy  *string   `json:"changedBy,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Validate checks if the create request contains valid data.
func (r *CreateCrewRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if len(r.Name) < 2 || len(r.Name) > 100 {
		errors["name"] = "Name must be between 2 and 100 characters"
	}
	if len(r.Rank) < 2 {
		errors["rank"] = "Rank is required (min 2 characters)"
	}

	return errors
}

// Validate requires a contract and a substantive reason for signing on.
func (r *SignOnRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.ContractID == "" {
		errors["contractId"] = "Contract is required"
	}
	if len(r.Reason) < 10 {
		errors["reason"] = "Reason must be at least 10 characters"
	}

	return errors
}

// Validate requires a substantive reason for signing off.
func (r *SignOffRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if len(r.Reason) < 10 {
		errors["reason"] = "Reason must be at least 10 characters"
	}

	return errors
}
