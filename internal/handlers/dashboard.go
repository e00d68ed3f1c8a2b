package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fullahead747-jpg/SeaCrewManager-sub001/internal/compliance"
	"github.com/fullahead747-jpg/SeaCrewManager-sub001/internal/ctxkeys"
	"github.com/fullahead747-jpg/SeaCrewManager-sub001/internal/database"
	"github.com/fullahead747-jpg/SeaCrewManager-sub001/internal/models"
)

// DashboardHandler handles dashboard-related HTTP requests. All document
// statuses it reports come from the compliance engine at request time.
type DashboardHandler struct {
	db database.Service
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(db database.Service) *DashboardHandler {
	return &DashboardHandler{db: db}
}

// dashboardCrew is the minimal crew row the dashboard aggregates over.
type dashboardCrew struct {
	ID         string
	Name       string
	Rank       string
	Status     string
	VesselID   *string
	VesselName *string
}

// loadFleet fetches every crew member in scope plus their documents and
// active contracts, the inputs for all engine-driven aggregation.
func loadFleet(ctx context.Context, pool *pgxpool.Pool) ([]dashboardCrew, map[string][]compliance.Record, map[string]activeContractRow, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	scope := ctxkeys.GetVesselScope(ctx)
	if scope != nil {
		where += " AND (cm.vessel_id IS NULL OR cm.vessel_id = ANY($1))"
		args = append(args, scope)
	}

	rows, err := pool.Query(ctx, `
		SELECT cm.id::text, cm.name, cm.rank, cm.status, cm.vessel_id::text, v.name
		FROM crew_members cm
		LEFT JOIN vessels v ON v.id = cm.vessel_id
		`+where, args...)
	if err != nil {
		return nil, nil, nil, err
	}
	defer rows.Close()

	crew := []dashboardCrew{}
	crewIDs := []string{}
	for rows.Next() {
		var c dashboardCrew
		if err := rows.Scan(&c.ID, &c.Name, &c.Rank, &c.Status, &c.VesselID, &c.VesselName); err != nil {
			return nil, nil, nil, err
		}
		crew = append(crew, c)
		crewIDs = append(crewIDs, c.ID)
	}
	rows.Close()

	records, err := loadDocumentRecords(ctx, pool, crewIDs)
	if err != nil {
		return nil, nil, nil, err
	}
	contracts, err := loadActiveContracts(ctx, pool, crewIDs)
	if err != nil {
		return nil, nil, nil, err
	}
	return crew, records, contracts, nil
}

// ── GetMetrics ─────────────────────────────────────────────────

// GetMetrics handles GET /api/dashboard/metrics
func (h *DashboardHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	crew, records, contracts, err := loadFleet(ctx, pool)
	if err != nil {
		log.Printf("Error loading fleet for metrics: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch metrics")
		return
	}

	now := time.Now()
	metrics := models.DashboardMetrics{}
	metrics.TotalCrew = len(crew)

	for _, c := range crew {
		switch c.Status {
		case compliance.CrewOnBoard:
			metrics.OnBoard++
		case compliance.CrewOnShore:
			metrics.OnShore++
		}

		var active *activeContractRow
		if ac, ok := contracts[c.ID]; ok {
			active = &ac
			metrics.ActiveContracts++
			if end := compliance.ParseDate(ac.EndDate); end != nil {
				start := compliance.ParseDate(ac.StartDate)
				progress := compliance.ContractProgress(start, end, compliance.ContractActive, c.Status, now)
				if progress.State == compliance.StateActive && progress.RemainingDays <= compliance.ExpiringSoonDays {
					metrics.ContractsEnding++
				}
			}
		}

		cm := models.CrewMember{Status: c.Status}
		summary := summarizeCrew(&cm, records[c.ID], active, now)
		metrics.ExpiredDocuments += summary.ExpiredCount
		metrics.ExpiringDocuments += summary.ExpiringCount
		metrics.ValidDocuments += len(compliance.TrackedTypes) - summary.ExpiredCount - summary.ExpiringCount - summary.MissingCount - summary.RunwayCount
	}

	JSON(w, http.StatusOK, metrics)
}

// ── GetExpiryAlerts ────────────────────────────────────────────

// GetExpiryAlerts handles GET /api/dashboard/expiring
// Lists documents and active contracts whose expiry is past or within the
// 30-day window, most urgent first.
func (h *DashboardHandler) GetExpiryAlerts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	crew, records, contracts, err := loadFleet(ctx, pool)
	if err != nil {
		log.Printf("Error loading fleet for alerts: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch alerts")
		return
	}

	now := time.Now()
	alerts := []models.ExpiryAlert{}

	for _, c := range crew {
		var active *activeContractRow
		var refEnd *time.Time
		contractFile := ""
		if ac, ok := contracts[c.ID]; ok {
			active = &ac
			refEnd = compliance.ParseDate(ac.EndDate)
			if ac.FilePath != nil {
				contractFile = *ac.FilePath
			}
		}
		onShore := c.Status == compliance.CrewOnShore

		vesselName := ""
		if c.VesselName != nil {
			vesselName = *c.VesselName
		}

		for _, t := range compliance.TrackedTypes {
			rec := compliance.MatchRecord(records[c.ID], t)
			var eval compliance.Evaluation
			if t == compliance.TypeAOA {
				eval = compliance.EvaluateAOA(rec, contractFile, refEnd, onShore, now)
			} else {
				eval = compliance.EvaluateRecord(rec, refEnd, onShore, now)
			}

			if eval.Status != compliance.StatusExpired && eval.Status != compliance.StatusExpiring {
				continue
			}

			a := models.ExpiryAlert{
				Kind:         "document",
				CrewID:       c.ID,
				CrewName:     c.Name,
				CrewRank:     c.Rank,
				VesselName:   vesselName,
				DocumentType: t,
				Status:       eval.Status,
			}
			if rec != nil {
				a.EntityID = rec.ID
				if rec.ExpiryDate != nil {
					a.ExpiryDate = rec.ExpiryDate.Format("2006-01-02")
				}
			}
			if eval.DaysUntilExpiry != nil {
				a.DaysLeft = *eval.DaysUntilExpiry
			}
			alerts = append(alerts, a)
		}

		// Contract ending soon
		if active != nil && refEnd != nil {
			start := compliance.ParseDate(active.StartDate)
			progress := compliance.ContractProgress(start, refEnd, compliance.ContractActive, c.Status, now)
			if progress.State == compliance.StateActive && progress.Urgency != compliance.UrgencyNormal {
				alerts = append(alerts, models.ExpiryAlert{
					Kind:       "contract",
					EntityID:   active.ID,
					CrewID:     c.ID,
					CrewName:   c.Name,
					CrewRank:   c.Rank,
					VesselName: active.VesselName,
					ExpiryDate: active.EndDate,
					DaysLeft:   progress.RemainingDays,
					Status:     progress.Urgency,
				})
			}
		}
	}

	// Most urgent first
	for i := 1; i < len(alerts); i++ {
		for j := i; j > 0 && alerts[j].DaysLeft < alerts[j-1].DaysLeft; j-- {
			alerts[j], alerts[j-1] = alerts[j-1], alerts[j]
		}
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"data":  alerts,
		"total": len(alerts),
	})
}

// ── GetFleetSummary ────────────────────────────────────────────

// GetFleetSummary handles GET /api/dashboard/fleet
func (h *DashboardHandler) GetFleetSummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	where := "WHERE 1=1"
	args := []interface{}{}
	argIdx := 1
	where, args, _ = appendVesselScope(ctx, where, args, argIdx, "v.id")

	rows, err := pool.Query(ctx, `
		SELECT v.id, v.name, COALESCE(v.flag, ''),
			COUNT(cm.id) FILTER (WHERE cm.status = 'onBoard') AS onboard_count
		FROM vessels v
		LEFT JOIN crew_members cm ON cm.vessel_id = v.id
		`+where+`
		GROUP BY v.id, v.name, v.flag
		ORDER BY onboard_count DESC
	`, args...)
	if err != nil {
		log.Printf("Error fetching fleet summary: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch fleet summary")
		return
	}
	defer rows.Close()

	vessels := []models.VesselSummary{}
	for rows.Next() {
		var vs models.VesselSummary
		if err := rows.Scan(&vs.ID, &vs.Name, &vs.Flag, &vs.OnboardCount); err != nil {
			log.Printf("Error scanning vessel summary: %v", err)
			continue
		}
		vessels = append(vessels, vs)
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"data": vessels,
	})
}

// ── GetComplianceStats ─────────────────────────────────────────

// GetComplianceStats handles GET /api/dashboard/compliance
// Fleet-wide compliance posture: status distribution, per-vessel breakdown,
// and the expired documents of crew currently at sea.
func (h *DashboardHandler) GetComplianceStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	crew, records, contracts, err := loadFleet(ctx, pool)
	if err != nil {
		log.Printf("Error loading fleet for compliance stats: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch compliance stats")
		return
	}

	now := time.Now()
	stats := models.ComplianceStats{
		TotalCrew:         len(crew),
		DocumentsByStatus: make(map[string]int),
		VesselBreakdown:   []models.VesselCompliance{},
		CriticalAlerts:    []models.ExpiryAlert{},
	}

	byVessel := map[string]*models.VesselCompliance{}
	vesselOrder := []string{}
	withFile := 0

	for _, c := range crew {
		var refEnd *time.Time
		contractFile := ""
		if ac, ok := contracts[c.ID]; ok {
			refEnd = compliance.ParseDate(ac.EndDate)
			if ac.FilePath != nil {
				contractFile = *ac.FilePath
			}
		}
		onShore := c.Status == compliance.CrewOnShore

		var vc *models.VesselCompliance
		if c.Status == compliance.CrewOnBoard && c.VesselID != nil {
			vc = byVessel[*c.VesselID]
			if vc == nil {
				name := ""
				if c.VesselName != nil {
					name = *c.VesselName
				}
				vc = &models.VesselCompliance{VesselID: *c.VesselID, VesselName: name}
				byVessel[*c.VesselID] = vc
				vesselOrder = append(vesselOrder, *c.VesselID)
			}
			vc.OnboardCount++
		}

		for _, t := range compliance.TrackedTypes {
			stats.TotalDocuments++
			rec := compliance.MatchRecord(records[c.ID], t)
			var eval compliance.Evaluation
			if t == compliance.TypeAOA {
				eval = compliance.EvaluateAOA(rec, contractFile, refEnd, onShore, now)
			} else {
				eval = compliance.EvaluateRecord(rec, refEnd, onShore, now)
			}
			stats.DocumentsByStatus[eval.Status]++

			if eval.Status != compliance.StatusMissing {
				withFile++
			}

			if vc != nil {
				switch eval.Status {
				case compliance.StatusExpired:
					vc.ExpiredCount++
				case compliance.StatusExpiring, compliance.StatusContractBlock:
					vc.ExpiringCount++
				case compliance.StatusMissing:
					vc.MissingCount++
				}
			}

			// Expired papers at sea are the critical list
			if c.Status == compliance.CrewOnBoard && eval.Status == compliance.StatusExpired {
				a := models.ExpiryAlert{
					Kind:         "document",
					CrewID:       c.ID,
					CrewName:     c.Name,
					CrewRank:     c.Rank,
					DocumentType: t,
					Status:       eval.Status,
				}
				if c.VesselName != nil {
					a.VesselName = *c.VesselName
				}
				if rec != nil {
					a.EntityID = rec.ID
					if rec.ExpiryDate != nil {
						a.ExpiryDate = rec.ExpiryDate.Format("2006-01-02")
					}
				}
				if eval.DaysUntilExpiry != nil {
					a.DaysLeft = *eval.DaysUntilExpiry
				}
				stats.CriticalAlerts = append(stats.CriticalAlerts, a)
			}
		}
	}

	if stats.TotalDocuments > 0 {
		stats.CompletionRate = float64(withFile) / float64(stats.TotalDocuments) * 100
	}
	for _, id := range vesselOrder {
		stats.VesselBreakdown = append(stats.VesselBreakdown, *byVessel[id])
	}

	JSON(w, http.StatusOK, stats)
}
