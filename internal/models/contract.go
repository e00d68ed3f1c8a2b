package models

import (
	"time"

	"github.com/fullahead747-jpg/SeaCrewManager-sub001/internal/compliance"
)

// Contract represents one period of sea service for a crew member aboard
// one vessel.
type Contract struct {
	ID            string    `json:"id"`
	CrewID        string    `json:"crewId"`
	VesselID      string    `json:"vesselId"`
	StartDate     string    `json:"startDate"`
	EndDate       string    `json:"endDate"`
	DurationDays  int       `json:"durationDays"`
	Status        string    `json:"status"` // active, completed, terminated
	FilePath      *string   `json:"filePath,omitempty"` // signed AOA scan
	SignOnReason  *string   `json:"signOnReason,omitempty"`
	SignOffReason *string   `json:"signOffReason,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// ContractWithVessel includes the vessel and crew names for list views.
type ContractWithVessel struct {
	Contract
	VesselName string `json:"vesselName"`
	CrewName   string `json:"crewName"`
	CrewRank   string `json:"crewRank"`
}

// ContractWithProgress adds the computed progress for detail views.
type ContractWithProgress struct {
	ContractWithVessel
	Progress compliance.Progress `json:"progress"`
}

// CreateContractRequest assigns a new contract to a crew member. When both
// endDate and durationDays are supplied, the end date is recomputed as
// startDate + durationDays.
type CreateContractRequest struct {
	VesselID     string  `json:"vesselId"`
	StartDate    string  `json:"startDate"`
	EndDate      string  `json:"endDate,omitempty"`
	DurationDays int     `json:"durationDays,omitempty"`
	FilePath     *string `json:"filePath,omitempty"`
}

// UpdateContractStatusRequest moves a contract to completed or terminated.
type UpdateContractStatusRequest struct {
	Status string  `json:"status"`
	Reason *string `json:"reason,omitempty"`
}

// Validate checks the create request and the date invariants.
func (r *CreateContractRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.VesselID == "" {
		errors["vesselId"] = "Vessel is required"
	}
	start := compliance.ParseDate(r.StartDate)
	if start == nil {
		errors["startDate"] = "A valid start date is required"
	}
	if r.EndDate == "" && r.DurationDays <= 0 {
		errors["endDate"] = "Either an end date or a duration is required"
	}
	if r.EndDate != "" {
		end := compliance.ParseDate(r.EndDate)
		if end == nil {
			errors["endDate"] = "End date is not a valid date"
		} else if start != nil && r.DurationDays <= 0 && !end.After(*start) {
			errors["endDate"] = "End date must be after the start date"
		}
	}

	return errors
}

// Validate restricts status transitions to the terminal states.
func (r *UpdateContractStatusRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.Status != compliance.ContractCompleted && r.Status != compliance.ContractTerminated {
		errors["status"] = "Status must be 'completed' or 'terminated'"
	}
	return errors
}
