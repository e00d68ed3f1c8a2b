package cron

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/fullahead747-jpg/SeaCrewManager-sub001/internal/compliance"
	"github.com/fullahead747-jpg/SeaCrewManager-sub001/internal/database"
)

// StartNotifier launches a background goroutine that runs once per day
// (and once immediately) to generate compliance notifications: documents
// expiring or expired, and contracts nearing their end date.
func StartNotifier(db database.Service) {
	go func() {
		runCycle(db)

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		for range ticker.C {
			runCycle(db)
		}
	}()

	log.Println("[cron] compliance notifier started – runs every 24 h")
}

// crewRow is one crew member with the context the engine evaluates against.
type crewRow struct {
	ID           string
	Name         string
	Status       string
	VesselID     *string
	VesselName   *string
	ContractID   *string
	ContractEnd  *string
	ContractFile *string
}

// runCycle evaluates the whole fleet and inserts a notification for each
// document or contract that needs attention. Notifications are de-duplicated
// by (user_id, entity_type, entity_id) on the same day.
func runCycle(db database.Service) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	pool := db.GetPool()
	now := time.Now()

	// ─── 1. Fetch crew with their active contract context ──────────────
	rows, err := pool.Query(ctx, `
		SELECT cm.id::text, cm.name, cm.status, cm.vessel_id::text, v.name,
			c.id::text, c.end_date::text, c.file_path
		FROM crew_members cm
		LEFT JOIN vessels v ON v.id = cm.vessel_id
		LEFT JOIN contracts c ON c.crew_member_id = cm.id AND c.status = 'active'
	`)
	if err != nil {
		log.Printf("[cron] error querying crew: %v", err)
		return
	}
	defer rows.Close()

	var crew []crewRow
	var crewIDs []string
	for rows.Next() {
		var c crewRow
		if err := rows.Scan(
			&c.ID, &c.Name, &c.Status, &c.VesselID, &c.VesselName,
			&c.ContractID, &c.ContractEnd, &c.ContractFile,
		); err != nil {
			log.Printf("[cron] scan error: %v", err)
			continue
		}
		crew = append(crew, c)
		crewIDs = append(crewIDs, c.ID)
	}
	rows.Close()

	if len(crew) == 0 {
		log.Println("[cron] no crew members found")
		return
	}

	// ─── 2. Load all documents, keyed by crew ──────────────────────────
	docRows, err := pool.Query(ctx, `
		SELECT crew_member_id::text, id::text, document_type, expiry_date::text,
			COALESCE(file_path, ''), updated_at
		FROM documents
		WHERE crew_member_id = ANY($1::uuid[])
	`, crewIDs)
	if err != nil {
		log.Printf("[cron] error querying documents: %v", err)
		return
	}
	defer docRows.Close()

	records := map[string][]compliance.Record{}
	for docRows.Next() {
		var crewID string
		var rec compliance.Record
		var expiry *string
		if err := docRows.Scan(&crewID, &rec.ID, &rec.Type, &expiry, &rec.FilePath, &rec.UpdatedAt); err != nil {
			log.Printf("[cron] scan error: %v", err)
			continue
		}
		if expiry != nil {
			rec.ExpiryDate = compliance.ParseDate(*expiry)
		}
		records[crewID] = append(records[crewID], rec)
	}
	docRows.Close()

	// ─── 3. Evaluate and insert notifications ──────────────────────────
	inserted := 0
	today := now.Format("2006-01-02")

	notify := func(vesselID *string, title, message, nType, entityType, entityID string) {
		for _, userID := range recipients(ctx, db, vesselID) {
			var exists bool
			_ = pool.QueryRow(ctx, `
				SELECT EXISTS(
					SELECT 1 FROM notifications
					WHERE user_id     = $1
					  AND entity_type = $2
					  AND entity_id   = $3
					  AND created_at::date = $4::date
				)
			`, userID, entityType, entityID, today).Scan(&exists)
			if exists {
				continue
			}

			_, err := pool.Exec(ctx, `
				INSERT INTO notifications (user_id, title, message, type, entity_type, entity_id)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, userID, title, message, nType, entityType, entityID)
			if err != nil {
				log.Printf("[cron] insert notification error: %v", err)
				continue
			}
			inserted++
		}
	}

	for _, c := range crew {
		var refEnd *time.Time
		contractFile := ""
		if c.ContractEnd != nil {
			refEnd = compliance.ParseDate(*c.ContractEnd)
		}
		if c.ContractFile != nil {
			contractFile = *c.ContractFile
		}
		onShore := c.Status == compliance.CrewOnShore

		vesselLabel := "on shore"
		if c.VesselName != nil {
			vesselLabel = *c.VesselName
		}

		for _, t := range compliance.TrackedTypes {
			rec := compliance.MatchRecord(records[c.ID], t)
			var eval compliance.Evaluation
			if t == compliance.TypeAOA {
				eval = compliance.EvaluateAOA(rec, contractFile, refEnd, onShore, now)
			} else {
				eval = compliance.EvaluateRecord(rec, refEnd, onShore, now)
			}

			entityID := c.ID + ":" + t
			if rec != nil {
				entityID = rec.ID
			}
			display := compliance.DisplayName(t)

			switch eval.Status {
			case compliance.StatusExpired:
				overdue := 0
				if eval.DaysUntilExpiry != nil {
					overdue = -*eval.DaysUntilExpiry
				}
				notify(c.VesselID,
					fmt.Sprintf("%s – EXPIRED", display),
					fmt.Sprintf("%s (%s): %s expired %d days ago.", c.Name, vesselLabel, display, overdue),
					"document_expired", "document", entityID)

			case compliance.StatusExpiring:
				daysLeft := 0
				if eval.DaysUntilExpiry != nil {
					daysLeft = *eval.DaysUntilExpiry
				}
				notify(c.VesselID,
					fmt.Sprintf("%s – Expiring Soon", display),
					fmt.Sprintf("%s (%s): %s expires in %d days. Please renew promptly.", c.Name, vesselLabel, display, daysLeft),
					"document_expiring", "document", entityID)

			case compliance.StatusContractBlock:
				notify(c.VesselID,
					fmt.Sprintf("%s – Lapses Before Contract End", display),
					fmt.Sprintf("%s (%s): %s expires before the current contract ends.", c.Name, vesselLabel, display),
					"document_contract_block", "document", entityID)

			case compliance.StatusRunwayAlert:
				notify(c.VesselID,
					fmt.Sprintf("%s – Short Runway", display),
					fmt.Sprintf("%s (%s): %s remains valid only briefly past the current contract.", c.Name, vesselLabel, display),
					"document_runway_alert", "document", entityID)
			}
		}

		// Contract ending soon
		if c.ContractID != nil && refEnd != nil && c.Status == compliance.CrewOnBoard {
			remaining := int(refEnd.Sub(now).Hours() / 24)
			if remaining >= 0 && remaining <= compliance.ExpiringSoonDays {
				notify(c.VesselID,
					"Contract Ending Soon",
					fmt.Sprintf("%s (%s): contract ends in %d days. Plan the relief.", c.Name, vesselLabel, remaining),
					"contract_ending", "contract", *c.ContractID)
			}
		}
	}

	log.Printf("[cron] compliance check complete – %d new notifications for %d crew", inserted, len(crew))
}

// recipients resolves who should hear about an alert: users assigned to the
// vessel, plus every admin.
func recipients(ctx context.Context, db database.Service, vesselID *string) []string {
	pool := db.GetPool()

	ids := []string{}
	seen := map[string]bool{}

	adminRows, err := pool.Query(ctx,
		`SELECT id::text FROM users WHERE role IN ('admin', 'super_admin')`)
	if err == nil {
		defer adminRows.Close()
		for adminRows.Next() {
			var id string
			if adminRows.Scan(&id) == nil && !seen[id] {
				ids = append(ids, id)
				seen[id] = true
			}
		}
	}

	if vesselID != nil {
		vesselRows, err := pool.Query(ctx,
			`SELECT user_id::text FROM user_vessels WHERE vessel_id = $1`, *vesselID)
		if err == nil {
			defer vesselRows.Close()
			for vesselRows.Next() {
				var id string
				if vesselRows.Scan(&id) == nil && !seen[id] {
					ids = append(ids, id)
					seen[id] = true
				}
			}
		}
	}

	return ids
}
