package handlers

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fullahead747-jpg/SeaCrewManager-sub001/internal/ctxkeys"
)

// appendVesselScope adds a vessel_id scope filter to a dynamic WHERE clause.
// colExpr is the SQL column expression to filter on (e.g. "c.vessel_id", "v.id").
// If the user has global scope (admin/super_admin), nothing is added.
func appendVesselScope(ctx context.Context, where string, args []interface{}, argIdx int, colExpr string) (string, []interface{}, int) {
	scope := ctxkeys.GetVesselScope(ctx)
	if scope == nil {
		return where, args, argIdx
	}
	where += fmt.Sprintf(" AND %s = ANY($%d)", colExpr, argIdx)
	args = append(args, scope)
	argIdx++
	return where, args, argIdx
}

// checkVesselAccess verifies that the given vesselID is within the user's scope.
func checkVesselAccess(ctx context.Context, vesselID string) bool {
	scope := ctxkeys.GetVesselScope(ctx)
	if scope == nil {
		return true
	}
	for _, id := range scope {
		if id == vesselID {
			return true
		}
	}
	return false
}

// checkCrewAccess looks up the crew member's current vessel and checks scope.
// Crew without a vessel assignment (on shore, no active contract) are visible
// to every authenticated user.
func checkCrewAccess(ctx context.Context, pool *pgxpool.Pool, crewID string) bool {
	if ctxkeys.IsGlobalScope(ctx) {
		return true
	}
	var vesselID *string
	err := pool.QueryRow(ctx,
		"SELECT vessel_id::text FROM crew_members WHERE id = $1",
		crewID,
	).Scan(&vesselID)
	if err != nil {
		return false
	}
	if vesselID == nil {
		return true
	}
	return checkVesselAccess(ctx, *vesselID)
}

// checkDocumentAccess looks up the document's crew member → vessel and checks scope.
func checkDocumentAccess(ctx context.Context, pool *pgxpool.Pool, documentID string) bool {
	if ctxkeys.IsGlobalScope(ctx) {
		return true
	}
	var crewID string
	err := pool.QueryRow(ctx,
		"SELECT crew_member_id::text FROM documents WHERE id = $1",
		documentID,
	).Scan(&crewID)
	if err != nil {
		return false
	}
	return checkCrewAccess(ctx, pool, crewID)
}

// checkContractAccess looks up the contract's vessel and checks scope.
func checkContractAccess(ctx context.Context, pool *pgxpool.Pool, contractID string) bool {
	if ctxkeys.IsGlobalScope(ctx) {
		return true
	}
	var vesselID string
	err := pool.QueryRow(ctx,
		"SELECT vessel_id::text FROM contracts WHERE id = $1",
		contractID,
	).Scan(&vesselID)
	if err != nil {
		return false
	}
	return checkVesselAccess(ctx, vesselID)
}
