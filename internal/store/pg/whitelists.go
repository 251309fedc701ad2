package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"voltaccess.org/internal/access"
)

const whitelistColumns = `id, organization_id, label, paid_by_organization, created_at, expires_at`

var whitelistSortColumns = map[string]string{
	"label":      "label",
	"created_at": "created_at",
	"expires_at": "expires_at",
}

// Create inserts a whitelist row.
func (s *Store) Create(ctx context.Context, wl *access.Whitelist) error {
	_, err := s.db.ExecContext(ctx, `
		insert into whitelists(id, organization_id, label, paid_by_organization, created_at, expires_at)
		values ($1,$2,$3,$4,$5,$6)
	`, wl.ID, wl.OrganizationID, wl.Label, wl.PaidByOrganization, wl.CreatedAt, nullTime(wl.ExpiresAt))
	return err
}

// Find loads one whitelist by id.
func (s *Store) Find(ctx context.Context, id string) (*access.Whitelist, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+whitelistColumns+` from whitelists where id=$1`, id)
	return scanWhitelist(row)
}

// FindByLabel loads one whitelist by its organization-unique label.
func (s *Store) FindByLabel(ctx context.Context, organizationID, label string) (*access.Whitelist, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+whitelistColumns+` from whitelists where organization_id=$1 and label=$2`,
		organizationID, label)
	return scanWhitelist(row)
}

func scanWhitelist(row *sql.Row) (*access.Whitelist, error) {
	var (
		wl      access.Whitelist
		expires sql.NullTime
	)
	err := row.Scan(&wl.ID, &wl.OrganizationID, &wl.Label, &wl.PaidByOrganization, &wl.CreatedAt, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, access.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	wl.ExpiresAt = timePtr(expires)
	return &wl, nil
}

// Update persists label, paid_by_organization and expires_at.
func (s *Store) Update(ctx context.Context, wl *access.Whitelist) error {
	res, err := s.db.ExecContext(ctx, `
		update whitelists set label=$2, paid_by_organization=$3, expires_at=$4
		where id=$1
	`, wl.ID, wl.Label, wl.PaidByOrganization, nullTime(wl.ExpiresAt))
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return access.ErrNotFound
	}
	return nil
}

// Delete removes the whitelist and both link tables in one transaction.
func (s *Store) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `delete from whitelist_users where whitelist_id=$1`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `delete from whitelist_charge_points where whitelist_id=$1`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `delete from whitelists where id=$1`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// List returns the organization's whitelists with the matching total.
func (s *Store) List(ctx context.Context, filter access.WhitelistFilter, page access.Page) ([]*access.Whitelist, int, error) {
	conds := []string{"organization_id = $1"}
	args := []any{filter.OrganizationID}
	if strings.TrimSpace(filter.Label) != "" {
		args = append(args, "%"+strings.TrimSpace(filter.Label)+"%")
		conds = append(conds, fmt.Sprintf("label ilike $%d", len(args)))
	}
	where := "where " + strings.Join(conds, " and ")

	var total int
	if err := s.db.QueryRowContext(ctx,
		`select count(*) from whitelists `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	orderBy, limit, offset := normalizePage(page, whitelistSortColumns, "created_at", "desc")
	args = append(args, limit, offset)
	rows, err := s.db.QueryContext(ctx,
		`select `+whitelistColumns+` from whitelists `+where+
			fmt.Sprintf(" order by %s limit $%d offset $%d", orderBy, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []*access.Whitelist
	for rows.Next() {
		var (
			wl      access.Whitelist
			expires sql.NullTime
		)
		if err := rows.Scan(&wl.ID, &wl.OrganizationID, &wl.Label, &wl.PaidByOrganization, &wl.CreatedAt, &expires); err != nil {
			return nil, 0, err
		}
		wl.ExpiresAt = timePtr(expires)
		result = append(result, &wl)
	}
	return result, total, rows.Err()
}

// ChargePointCount returns how many charge points a whitelist exposes.
func (s *Store) ChargePointCount(ctx context.Context, whitelistID string) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx,
		`select count(*) from whitelist_charge_points where whitelist_id=$1`, whitelistID).Scan(&total)
	return total, err
}

// ListUsers returns either the linked users of a whitelist or the
// organization's users not yet linked.
func (s *Store) ListUsers(ctx context.Context, whitelistID, organizationID string, member bool, page access.Page) ([]access.MemberUser, int, error) {
	if member {
		return s.listMemberUsers(ctx, whitelistID, page)
	}
	return s.listCandidateUsers(ctx, whitelistID, organizationID, page)
}

func (s *Store) listMemberUsers(ctx context.Context, whitelistID string, page access.Page) ([]access.MemberUser, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx,
		`select count(*) from whitelist_users where whitelist_id=$1`, whitelistID).Scan(&total); err != nil {
		return nil, 0, err
	}

	_, limit, offset := normalizePage(page, map[string]string{"email": "u.email"}, "email", "asc")
	rows, err := s.db.QueryContext(ctx, `
		select u.id, u.email, wu.created_at, wu.expires_at
		from whitelist_users wu
		join users u on u.id = wu.user_id
		where wu.whitelist_id=$1
		order by u.email asc
		limit $2 offset $3
	`, whitelistID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []access.MemberUser
	for rows.Next() {
		var (
			m       access.MemberUser
			created sql.NullTime
			expires sql.NullTime
		)
		if err := rows.Scan(&m.UserID, &m.Email, &created, &expires); err != nil {
			return nil, 0, err
		}
		m.CreatedAt = timePtr(created)
		m.ExpiresAt = timePtr(expires)
		result = append(result, m)
	}
	return result, total, rows.Err()
}

func (s *Store) listCandidateUsers(ctx context.Context, whitelistID, organizationID string, page access.Page) ([]access.MemberUser, int, error) {
	const candidateWhere = `
		where u.organization_id=$1
		and u.id not in (select user_id from whitelist_users where whitelist_id=$2)`

	var total int
	if err := s.db.QueryRowContext(ctx,
		`select count(*) from users u`+candidateWhere, organizationID, whitelistID).Scan(&total); err != nil {
		return nil, 0, err
	}

	_, limit, offset := normalizePage(page, map[string]string{"email": "u.email"}, "email", "asc")
	rows, err := s.db.QueryContext(ctx,
		`select u.id, u.email from users u`+candidateWhere+` order by u.email asc limit $3 offset $4`,
		organizationID, whitelistID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []access.MemberUser
	for rows.Next() {
		var m access.MemberUser
		if err := rows.Scan(&m.UserID, &m.Email); err != nil {
			return nil, 0, err
		}
		result = append(result, m)
	}
	return result, total, rows.Err()
}

// ListChargePoints mirrors ListUsers for charge point links.
func (s *Store) ListChargePoints(ctx context.Context, whitelistID, organizationID string, member bool, page access.Page) ([]access.MemberChargePoint, int, error) {
	if member {
		return s.listMemberChargePoints(ctx, whitelistID, page)
	}
	return s.listCandidateChargePoints(ctx, whitelistID, organizationID, page)
}

const chargePointColumns = `cp.id, cp.reference, cp.organization_id, o.name, cp.address, cp.zip_code, cp.city, s.code, s.label`

const chargePointJoins = `
	join organizations o on o.id = cp.organization_id
	join charge_point_statuses s on s.id = cp.status_id`

func (s *Store) listMemberChargePoints(ctx context.Context, whitelistID string, page access.Page) ([]access.MemberChargePoint, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx,
		`select count(*) from whitelist_charge_points where whitelist_id=$1`, whitelistID).Scan(&total); err != nil {
		return nil, 0, err
	}

	_, limit, offset := normalizePage(page, map[string]string{"reference": "cp.reference"}, "reference", "asc")
	rows, err := s.db.QueryContext(ctx, `
		select `+chargePointColumns+`, wcp.created_at
		from whitelist_charge_points wcp
		join charge_points cp on cp.id = wcp.charge_point_id`+chargePointJoins+`
		where wcp.whitelist_id=$1
		order by cp.reference asc
		limit $2 offset $3
	`, whitelistID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	return scanMemberChargePoints(rows, total, true)
}

func (s *Store) listCandidateChargePoints(ctx context.Context, whitelistID, organizationID string, page access.Page) ([]access.MemberChargePoint, int, error) {
	const candidateWhere = `
		where cp.organization_id=$1
		and cp.id not in (select charge_point_id from whitelist_charge_points where whitelist_id=$2)`

	var total int
	if err := s.db.QueryRowContext(ctx,
		`select count(*) from charge_points cp`+candidateWhere, organizationID, whitelistID).Scan(&total); err != nil {
		return nil, 0, err
	}

	_, limit, offset := normalizePage(page, map[string]string{"reference": "cp.reference"}, "reference", "asc")
	rows, err := s.db.QueryContext(ctx,
		`select `+chargePointColumns+` from charge_points cp`+chargePointJoins+candidateWhere+
			` order by cp.reference asc limit $3 offset $4`,
		organizationID, whitelistID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	return scanMemberChargePoints(rows, total, false)
}

func scanMemberChargePoints(rows *sql.Rows, total int, linked bool) ([]access.MemberChargePoint, int, error) {
	var result []access.MemberChargePoint
	for rows.Next() {
		var (
			m        access.MemberChargePoint
			linkedAt sql.NullTime
		)
		dest := []any{
			&m.ID, &m.Reference, &m.OrganizationID, &m.Organization,
			&m.Address, &m.ZipCode, &m.City, &m.StatusCode, &m.StatusLabel,
		}
		if linked {
			dest = append(dest, &linkedAt)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, 0, err
		}
		m.LinkedAt = timePtr(linkedAt)
		result = append(result, m)
	}
	return result, total, rows.Err()
}

// UpsertUserLink inserts or refreshes a (whitelist, user) link.
func (s *Store) UpsertUserLink(ctx context.Context, link access.WhitelistUser) error {
	_, err := s.db.ExecContext(ctx, `
		insert into whitelist_users(whitelist_id, user_id, created_at, expires_at)
		values ($1,$2,$3,$4)
		on conflict (whitelist_id, user_id) do update
		set expires_at = excluded.expires_at
	`, link.WhitelistID, link.UserID, link.CreatedAt, nullTime(link.ExpiresAt))
	return err
}

// RemoveUserLink deletes a link; absent links are a no-op.
func (s *Store) RemoveUserLink(ctx context.Context, whitelistID, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`delete from whitelist_users where whitelist_id=$1 and user_id=$2`, whitelistID, userID)
	return err
}

// UpsertChargePointLink inserts a (whitelist, charge point) link.
func (s *Store) UpsertChargePointLink(ctx context.Context, link access.WhitelistChargePoint) error {
	_, err := s.db.ExecContext(ctx, `
		insert into whitelist_charge_points(whitelist_id, charge_point_id, created_at)
		values ($1,$2,$3)
		on conflict (whitelist_id, charge_point_id) do nothing
	`, link.WhitelistID, link.ChargePointID, link.CreatedAt)
	return err
}

// RemoveChargePointLink deletes a link; absent links are a no-op.
func (s *Store) RemoveChargePointLink(ctx context.Context, whitelistID, chargePointID string) error {
	_, err := s.db.ExecContext(ctx,
		`delete from whitelist_charge_points where whitelist_id=$1 and charge_point_id=$2`, whitelistID, chargePointID)
	return err
}
