package pg

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"voltaccess.org/internal/access"
)

const linkJoins = `
	from whitelist_users wu
	join whitelists w on w.id = wu.whitelist_id
	join whitelist_charge_points wcp on wcp.whitelist_id = w.id
	join charge_points cp on cp.id = wcp.charge_point_id
	join organizations o on o.id = cp.organization_id
	join charge_point_statuses s on s.id = cp.status_id`

var linkSortColumns = map[string]string{
	"reference": "cp.reference",
	"address":   "cp.address",
	"zip_code":  "cp.zip_code",
	"city":      "cp.city",
}

// linkConditions builds the WHERE clause shared by QueryLinks and the
// distinct count. The cutoff comparison is inclusive: a link expiring on the
// cutoff day is still returned.
func linkConditions(filter access.LinkFilter) (string, []any) {
	conds := []string{"wu.user_id = $1"}
	args := []any{filter.UserID}

	if !filter.CutoffDate.IsZero() {
		args = append(args, filter.CutoffDate)
		n := len(args)
		conds = append(conds,
			fmt.Sprintf("(wu.expires_at is null or wu.expires_at >= $%d)", n),
			fmt.Sprintf("(w.expires_at is null or w.expires_at >= $%d)", n),
		)
	}
	if filter.PaidByOrganization != nil {
		args = append(args, *filter.PaidByOrganization)
		conds = append(conds, fmt.Sprintf("w.paid_by_organization = $%d", len(args)))
	}
	for _, c := range []struct {
		column string
		value  string
	}{
		{"cp.address", filter.Address},
		{"cp.zip_code", filter.ZipCode},
		{"cp.city", filter.City},
		{"s.code", filter.StatusCode},
	} {
		if strings.TrimSpace(c.value) == "" {
			continue
		}
		args = append(args, "%"+strings.TrimSpace(c.value)+"%")
		conds = append(conds, fmt.Sprintf("%s ilike $%d", c.column, len(args)))
	}

	return "where " + strings.Join(conds, " and "), args
}

func normalizePage(page access.Page, sortColumns map[string]string, defaultSort, defaultOrder string) (string, int, int) {
	limit := page.Limit
	if limit <= 0 || limit > 1000 {
		limit = 10
	}
	offset := page.Offset
	if offset < 0 {
		offset = 0
	}
	column, ok := sortColumns[page.Sort]
	if !ok {
		column = sortColumns[defaultSort]
	}
	order := strings.ToLower(page.Order)
	if order != "asc" && order != "desc" {
		order = defaultOrder
	}
	return column + " " + order, limit, offset
}

// QueryLinks returns the flat join tuples for one user, pre-filtered by the
// cutoff date; the resolution engine folds them.
func (s *Store) QueryLinks(ctx context.Context, filter access.LinkFilter, page access.Page) ([]access.LinkRecord, error) {
	where, args := linkConditions(filter)
	orderBy, limit, offset := normalizePage(page, linkSortColumns, "reference", "asc")
	args = append(args, limit, offset)

	query := `
	select
		wu.whitelist_id, wu.user_id, wu.created_at, wu.expires_at,
		w.id, w.organization_id, w.label, w.paid_by_organization, w.created_at, w.expires_at,
		wcp.whitelist_id, wcp.charge_point_id, wcp.created_at,
		cp.id, cp.reference, cp.organization_id, o.name, cp.address, cp.zip_code, cp.city,
		s.code, s.label` +
		linkJoins + "\n\t" + where +
		fmt.Sprintf("\n\torder by %s\n\tlimit $%d offset $%d", orderBy, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []access.LinkRecord
	for rows.Next() {
		var (
			rec         access.LinkRecord
			userExpires sql.NullTime
			wlExpires   sql.NullTime
		)
		if err := rows.Scan(
			&rec.UserLink.WhitelistID, &rec.UserLink.UserID, &rec.UserLink.CreatedAt, &userExpires,
			&rec.Whitelist.ID, &rec.Whitelist.OrganizationID, &rec.Whitelist.Label,
			&rec.Whitelist.PaidByOrganization, &rec.Whitelist.CreatedAt, &wlExpires,
			&rec.ChargePointLink.WhitelistID, &rec.ChargePointLink.ChargePointID, &rec.ChargePointLink.CreatedAt,
			&rec.ChargePoint.ID, &rec.ChargePoint.Reference, &rec.ChargePoint.OrganizationID,
			&rec.ChargePoint.Organization, &rec.ChargePoint.Address, &rec.ChargePoint.ZipCode,
			&rec.ChargePoint.City, &rec.ChargePoint.StatusCode, &rec.ChargePoint.StatusLabel,
		); err != nil {
			return nil, err
		}
		rec.UserLink.ExpiresAt = timePtr(userExpires)
		rec.Whitelist.ExpiresAt = timePtr(wlExpires)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CountDistinctChargePoints counts the charge points matching the filter,
// independent of how many whitelist paths reach them.
func (s *Store) CountDistinctChargePoints(ctx context.Context, filter access.LinkFilter) (int, error) {
	where, args := linkConditions(filter)
	query := `select count(distinct cp.id)` + linkJoins + "\n\t" + where

	var total int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}
