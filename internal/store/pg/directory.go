package pg

import (
	"context"
	"fmt"
	"strings"

	"voltaccess.org/internal/access"
	"voltaccess.org/internal/auth"
)

const employeeJoins = `
	from users u
	join user_roles ur on ur.user_id = u.id
	join roles r on r.id = ur.role_id`

var employeeSortColumns = map[string]string{
	"email":  "u.email",
	"status": "u.status",
}

func employeeConditions(filter access.EmployeeFilter) (string, []any) {
	conds := []string{"u.organization_id = $1", "r.name = $2"}
	args := []any{filter.OrganizationID, auth.RoleEmployee}

	if v := strings.TrimSpace(filter.Email); v != "" {
		args = append(args, "%"+v+"%")
		conds = append(conds, fmt.Sprintf("u.email ilike $%d", len(args)))
	}
	if v := strings.TrimSpace(filter.Status); v != "" {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf("u.status = $%d", len(args)))
	}
	return " where " + strings.Join(conds, " and "), args
}

// ListEmployees lists the organization's employee accounts with their
// materialized role sets.
func (s *Store) ListEmployees(ctx context.Context, filter access.EmployeeFilter, page access.Page) ([]access.Employee, int, error) {
	where, args := employeeConditions(filter)

	var total int
	if err := s.db.QueryRowContext(ctx,
		`select count(distinct u.id)`+employeeJoins+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	orderBy, limit, offset := normalizePage(page, employeeSortColumns, "email", "asc")
	query := `select distinct u.id, u.email, u.status` + employeeJoins + where +
		` order by ` + orderBy +
		fmt.Sprintf(` limit $%d offset $%d`, len(args)+1, len(args)+2)

	rows, err := s.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var employees []access.Employee
	for rows.Next() {
		var e access.Employee
		if err := rows.Scan(&e.ID, &e.Email, &e.Status); err != nil {
			return nil, 0, err
		}
		employees = append(employees, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range employees {
		roles, err := s.userRoles(ctx, employees[i].ID)
		if err != nil {
			return nil, 0, err
		}
		employees[i].Roles = roles
	}
	return employees, total, nil
}

// ChargePointStatistics counts the organization's charge points grouped by
// status. Statuses with no charge points are omitted.
func (s *Store) ChargePointStatistics(ctx context.Context, organizationID string) ([]access.ChargePointStatistic, error) {
	rows, err := s.db.QueryContext(ctx, `
		select st.code, st.label, count(cp.id)
		from charge_point_statuses st
		join charge_points cp on cp.status_id = st.id
		where cp.organization_id = $1
		group by st.code, st.label
		order by st.code asc
	`, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []access.ChargePointStatistic
	for rows.Next() {
		var st access.ChargePointStatistic
		if err := rows.Scan(&st.StatusCode, &st.StatusLabel, &st.Count); err != nil {
			return nil, err
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}
