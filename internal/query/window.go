package query

import (
	"fmt"
	"time"

	"github.com/diamondlab/unicorn/internal/domain"
)

// nonAtBatOutcomes are plate-appearance outcomes excluded from at-bat
// windows before ranking.
const nonAtBatOutcomes = "('walk','hit_by_pitch','sac_fly','sac_bunt','catcher_interference')"

// windowCTE renders the bounded row-set restriction for a pattern as a CTE
// named "windowed". Every form joins the per-game calendar and flattens
// game_date and venue_id into the row set, so filters and override
// expressions address calendar columns bare.
//
// Forms:
//
//	none        - all rows up to and including as-of
//	last_n_days - inclusive calendar range [as_of-(n-1), as_of]
//	last_n_pa   - the N most recent plate appearances per entity, ranked by
//	              game_date desc, game_id desc, pa_id desc
//	last_n_ab   - last_n_pa with non-at-bat outcomes excluded before ranking
func windowCTE(w *domain.Window, baseTable, entityCol string, asOf time.Time) (string, []any) {
	base := fmt.Sprintf(
		"SELECT f.*, g.game_date, g.venue_id FROM %s f JOIN games g ON g.game_id = f.game_id WHERE g.game_date <= ?",
		baseTable,
	)

	if w == nil {
		return "WITH windowed AS (" + base + ")", []any{domain.DateOnly(asOf)}
	}

	switch w.Kind {
	case domain.WindowLastNDays:
		from := asOf.AddDate(0, 0, -(w.N - 1))
		return "WITH windowed AS (" + base + " AND g.game_date >= ?)",
			[]any{domain.DateOnly(asOf), domain.DateOnly(from)}

	case domain.WindowLastNPA, domain.WindowLastNAB:
		// DENSE_RANK over (game_date desc, game_id desc, pa_id desc) gives
		// every pitch of a plate appearance the same recency rank, so the
		// window counts PAs whether the base table is pitch-level or
		// PA-level. pa_id is only unique within a game; the game_id
		// tie-break keeps doubleheader PAs distinct.
		where := ""
		if w.Kind == domain.WindowLastNAB {
			where = " AND COALESCE(f.pa_outcome, '') NOT IN " + nonAtBatOutcomes
		}
		cte := fmt.Sprintf(
			"WITH ranked AS (SELECT f.*, g.game_date, g.venue_id, "+
				"DENSE_RANK() OVER (PARTITION BY f.%s ORDER BY g.game_date DESC, f.game_id DESC, f.pa_id DESC) AS pa_recency "+
				"FROM %s f JOIN games g ON g.game_id = f.game_id WHERE g.game_date <= ?%s), "+
				"windowed AS (SELECT * FROM ranked WHERE pa_recency <= ?)",
			entityCol, baseTable, where,
		)
		return cte, []any{domain.DateOnly(asOf), w.N}
	}

	// Unknown kinds are rejected by the validator; fall back to the unbounded
	// form so a stale template cannot panic the run.
	return "WITH windowed AS (" + base + ")", []any{domain.DateOnly(asOf)}
}
