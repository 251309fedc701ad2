package access

import "time"

// farFuture stands in for a missing bound when taking the tighter of two
// expiry caps. It never leaks into results.
var farFuture = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

// recordWindow computes the window a single link record grants on its own.
// Access cannot predate the latest of the three link creations; the tighter
// of the whitelist and user-link expiries caps it. A record with neither
// expiry set grants indefinite access (nil expiry).
func recordWindow(rec LinkRecord) AccessWindow {
	start := rec.Whitelist.CreatedAt
	if rec.UserLink.CreatedAt.After(start) {
		start = rec.UserLink.CreatedAt
	}
	if rec.ChargePointLink.CreatedAt.After(start) {
		start = rec.ChargePointLink.CreatedAt
	}

	var expiry *time.Time
	if rec.Whitelist.ExpiresAt != nil || rec.UserLink.ExpiresAt != nil {
		bound := farFuture
		if rec.Whitelist.ExpiresAt != nil {
			bound = *rec.Whitelist.ExpiresAt
		}
		if rec.UserLink.ExpiresAt != nil && rec.UserLink.ExpiresAt.Before(bound) {
			bound = *rec.UserLink.ExpiresAt
		}
		expiry = &bound
	}

	return AccessWindow{
		Start:              start,
		Expiry:             expiry,
		PaidByOrganization: rec.Whitelist.PaidByOrganization,
	}
}

// merge widens the aggregate window with one more record window. The merge is
// commutative and associative: start takes the minimum, expiry takes the
// maximum of bounds with "unbounded" as the absorbing element, and one paying
// whitelist is enough to mark the aggregate paid. Order of application
// therefore never changes the result.
func merge(agg, rec AccessWindow) AccessWindow {
	if rec.Start.Before(agg.Start) {
		agg.Start = rec.Start
	}
	switch {
	case agg.Expiry == nil || rec.Expiry == nil:
		agg.Expiry = nil
	case rec.Expiry.After(*agg.Expiry):
		agg.Expiry = rec.Expiry
	}
	agg.PaidByOrganization = agg.PaidByOrganization || rec.PaidByOrganization
	return agg
}

// ResolveWindows folds the link records into one AccessWindow per distinct
// charge point reference. Rows keep the order in which each charge point
// first appeared in the input, so identical inputs yield identical output.
// An empty input yields an empty slice, not an error.
func ResolveWindows(records []LinkRecord) []AllowedChargePoint {
	index := make(map[string]int, len(records))
	rows := make([]AllowedChargePoint, 0, len(records))

	for _, rec := range records {
		window := recordWindow(rec)
		ref := rec.ChargePoint.Reference
		if i, ok := index[ref]; ok {
			rows[i].Access = merge(rows[i].Access, window)
			continue
		}
		index[ref] = len(rows)
		rows = append(rows, AllowedChargePoint{
			ChargePoint: rec.ChargePoint,
			Access:      window,
		})
	}
	return rows
}
