package store

import (
	"context"
	"database/sql"
	"strings"

	"hrms/internal/models"
)

// ListEmployees evaluates a filter/sort/page specification against the
// employee table. Filters apply in a fixed order, the sort is stable with
// ascending id breaking ties, and a page beyond the last one yields an empty
// data slice with the total unchanged.
func (s *Store) ListEmployees(ctx context.Context, q models.EmployeeQuery) (models.PaginatedEmployees, error) {
	where := []string{}
	args := []any{}
	if q.Search != "" {
		needle := strings.ToLower(q.Search)
		where = append(where, `(instr(lower(first_name || ' ' || last_name), ?) > 0 OR instr(lower(email), ?) > 0)`)
		args = append(args, needle, needle)
	}
	if q.Department != "" {
		where = append(where, `department=?`)
		args = append(args, q.Department)
	}
	if q.Status != "" {
		where = append(where, `status=?`)
		args = append(args, q.Status)
	}
	if q.JoinDateFrom != "" {
		where = append(where, `join_date>=?`)
		args = append(args, q.JoinDateFrom)
	}
	if q.JoinDateTo != "" {
		where = append(where, `join_date<=?`)
		args = append(args, q.JoinDateTo)
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM employees`+cond, args...).Scan(&total); err != nil {
		return models.PaginatedEmployees{}, err
	}

	sortExpr := `lower(first_name || ' ' || last_name)`
	if q.SortBy == models.SortByJoinDate {
		sortExpr = `join_date`
	}
	dir := "ASC"
	if q.SortOrder == models.SortDesc {
		dir = "DESC"
	}

	listArgs := append(args, q.Limit, (q.Page-1)*q.Limit)
	rows, err := s.db.QueryContext(ctx,
		employeeColumns+cond+` ORDER BY `+sortExpr+` `+dir+`, id ASC LIMIT ? OFFSET ?`,
		listArgs...,
	)
	if err != nil {
		return models.PaginatedEmployees{}, err
	}
	defer rows.Close()

	data := []models.Employee{}
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return models.PaginatedEmployees{}, err
		}
		data = append(data, e)
	}
	if err := rows.Err(); err != nil {
		return models.PaginatedEmployees{}, err
	}

	totalPages := (total + q.Limit - 1) / q.Limit
	if totalPages < 1 {
		totalPages = 1
	}
	return models.PaginatedEmployees{
		Data:       data,
		Total:      total,
		Page:       q.Page,
		Limit:      q.Limit,
		TotalPages: totalPages,
	}, nil
}

const employeeColumns = `SELECT id,first_name,last_name,email,mobile,department,role,join_date,salary,address,status,profile_picture FROM employees`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(r rowScanner) (models.Employee, error) {
	var e models.Employee
	var picture sql.NullString
	err := r.Scan(&e.ID, &e.FirstName, &e.LastName, &e.Email, &e.Mobile, &e.Department, &e.Role, &e.JoinDate, &e.Salary, &e.Address, &e.Status, &picture)
	if err != nil {
		return models.Employee{}, err
	}
	if picture.Valid && picture.String != "" {
		v := picture.String
		e.ProfilePicture = &v
	}
	return e, nil
}

func (s *Store) GetEmployee(ctx context.Context, id int64) (models.Employee, error) {
	e, err := scanEmployee(s.db.QueryRowContext(ctx, employeeColumns+` WHERE id=?`, id))
	if err == sql.ErrNoRows {
		return models.Employee{}, ErrNotFound
	}
	if err != nil {
		return models.Employee{}, err
	}
	return e, nil
}

func (s *Store) CreateEmployee(ctx context.Context, e models.Employee) (models.Employee, error) {
	taken, err := s.employeeEmailTaken(ctx, e.Email, 0)
	if err != nil {
		return models.Employee{}, err
	}
	if taken {
		return models.Employee{}, ErrConflict
	}
	var picture any
	if e.ProfilePicture != nil {
		picture = *e.ProfilePicture
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO employees(first_name,last_name,email,mobile,department,role,join_date,salary,address,status,profile_picture) VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
		e.FirstName, e.LastName, e.Email, e.Mobile, e.Department, e.Role, e.JoinDate, e.Salary, e.Address, e.Status, picture,
	)
	if err != nil {
		// The unique index on lower(email) is the authoritative check; the
		// probe above only exists to give callers a clean conflict error
		// without a constraint message.
		if isUniqueViolation(err) {
			return models.Employee{}, ErrConflict
		}
		return models.Employee{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Employee{}, err
	}
	e.ID = id
	return e, nil
}

func (s *Store) UpdateEmployee(ctx context.Context, id int64, patch models.EmployeePatch) (models.Employee, error) {
	e, err := s.GetEmployee(ctx, id)
	if err != nil {
		return models.Employee{}, err
	}
	if patch.Email != nil {
		taken, err := s.employeeEmailTaken(ctx, *patch.Email, id)
		if err != nil {
			return models.Employee{}, err
		}
		if taken {
			return models.Employee{}, ErrConflict
		}
		e.Email = *patch.Email
	}
	if patch.FirstName != nil {
		e.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		e.LastName = *patch.LastName
	}
	if patch.Mobile != nil {
		e.Mobile = *patch.Mobile
	}
	if patch.Department != nil {
		e.Department = *patch.Department
	}
	if patch.Role != nil {
		e.Role = *patch.Role
	}
	if patch.JoinDate != nil {
		e.JoinDate = *patch.JoinDate
	}
	if patch.Salary != nil {
		e.Salary = *patch.Salary
	}
	if patch.Address != nil {
		e.Address = *patch.Address
	}
	if patch.Status != nil {
		e.Status = *patch.Status
	}
	if patch.ProfilePicture != nil {
		v := *patch.ProfilePicture
		if v == "" {
			e.ProfilePicture = nil
		} else {
			e.ProfilePicture = &v
		}
	}
	var picture any
	if e.ProfilePicture != nil {
		picture = *e.ProfilePicture
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE employees SET first_name=?,last_name=?,email=?,mobile=?,department=?,role=?,join_date=?,salary=?,address=?,status=?,profile_picture=? WHERE id=?`,
		e.FirstName, e.LastName, e.Email, e.Mobile, e.Department, e.Role, e.JoinDate, e.Salary, e.Address, e.Status, picture, id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Employee{}, ErrConflict
		}
		return models.Employee{}, err
	}
	return e, nil
}

func (s *Store) DeleteEmployee(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM employees WHERE id=?`, id)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) CountEmployees(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM employees`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) DashboardStats(ctx context.Context) (models.DashboardStats, error) {
	stats := models.DashboardStats{ByDepartment: map[models.Department]int{}}
	rows, err := s.db.QueryContext(ctx, `SELECT department, status, COUNT(1) FROM employees GROUP BY department, status`)
	if err != nil {
		return models.DashboardStats{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var dept models.Department
		var status models.EmployeeStatus
		var count int
		if err := rows.Scan(&dept, &status, &count); err != nil {
			return models.DashboardStats{}, err
		}
		stats.TotalEmployees += count
		stats.ByDepartment[dept] += count
		if status == models.EmployeeActive {
			stats.Active += count
		} else {
			stats.Inactive += count
		}
	}
	return stats, rows.Err()
}

func (s *Store) employeeEmailTaken(ctx context.Context, email string, excludeID int64) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM employees WHERE lower(email)=lower(?) AND id<>?`,
		strings.TrimSpace(email), excludeID,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
