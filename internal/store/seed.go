package store

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"hrms/internal/models"
)

// Demo accounts installed by SeedDemo. Passwords are hashed by the caller so
// the store stays free of crypto concerns.
var demoUsers = []struct {
	Username string
	Password string
	Role     models.Role
	FullName string
	Email    string
}{
	{"admin", "admin123", models.RoleAdmin, "System Administrator", "admin@minihrms.com"},
	{"manager", "manager123", models.RoleManager, "John Manager", "manager@minihrms.com"},
	{"employee", "employee123", models.RoleEmployee, "Jane Employee", "employee@minihrms.com"},
}

var seedFirstNames = []string{
	"James", "Mary", "Robert", "Patricia", "John", "Jennifer", "Michael", "Linda",
	"David", "Elizabeth", "William", "Barbara", "Richard", "Susan", "Joseph", "Jessica",
	"Thomas", "Sarah", "Charles", "Karen", "Christopher", "Lisa", "Daniel", "Nancy",
	"Matthew", "Betty", "Anthony", "Margaret", "Mark", "Sandra", "Donald", "Ashley",
	"Steven", "Kimberly", "Paul", "Emily", "Andrew", "Donna",
}

var seedLastNames = []string{
	"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis",
	"Rodriguez", "Martinez", "Hernandez", "Lopez", "Gonzalez", "Wilson", "Anderson",
	"Thomas", "Taylor", "Moore", "Jackson", "Martin", "Lee", "Perez", "Thompson",
	"White", "Harris", "Sanchez", "Clark", "Ramirez", "Lewis", "Robinson", "Walker",
	"Young", "Allen", "King", "Wright", "Scott", "Torres", "Nguyen",
}

var seedStreets = []string{"Main", "Oak", "Pine", "Maple", "Cedar"}
var seedSuffixes = []string{"St", "Ave", "Blvd", "Rd", "Dr"}
var seedCities = []string{"New York", "Los Angeles", "Chicago", "Houston", "Phoenix"}

// DemoEmployees returns the deterministic demo dataset: 38 generated records
// with the first five as managers and roughly 15% inactive, plus two
// near-duplicate "James Smith" records for search testing.
func DemoEmployees() []models.Employee {
	rng := rand.New(rand.NewSource(42))
	departments := []models.Department{models.DepartmentIT, models.DepartmentHR, models.DepartmentFinance, models.DepartmentSales}
	roles := []models.EmployeeRole{models.EmployeeRoleEmployee, models.EmployeeRoleManager}

	out := make([]models.Employee, 0, 40)
	for i := 0; i < 38; i++ {
		first := seedFirstNames[rng.Intn(len(seedFirstNames))]
		last := seedLastNames[rng.Intn(len(seedLastNames))]
		role := roles[rng.Intn(len(roles))]
		if i < 5 {
			role = models.EmployeeRoleManager
		}
		status := models.EmployeeActive
		if rng.Float64() <= 0.15 {
			status = models.EmployeeInactive
		}
		suffix := ""
		if i > 0 {
			suffix = fmt.Sprintf("%d", i)
		}
		out = append(out, models.Employee{
			FirstName:  first,
			LastName:   last,
			Email:      fmt.Sprintf("%s.%s%s@company.com", strings.ToLower(first), strings.ToLower(last), suffix),
			Mobile:     fmt.Sprintf("%03d%07d", rng.Intn(900)+100, rng.Intn(9000000)+1000000),
			Department: departments[rng.Intn(len(departments))],
			Role:       role,
			JoinDate:   randomSeedDate(rng),
			Salary:     float64(rng.Intn(150000-35000) + 35000),
			Address: fmt.Sprintf("%d %s %s, %s",
				rng.Intn(9999)+1,
				seedStreets[rng.Intn(len(seedStreets))],
				seedSuffixes[rng.Intn(len(seedSuffixes))],
				seedCities[rng.Intn(len(seedCities))]),
			Status: status,
		})
	}

	out = append(out, models.Employee{
		FirstName: "James", LastName: "Smith",
		Email: "james.smith.senior@company.com", Mobile: "5559876543",
		Department: models.DepartmentIT, Role: models.EmployeeRoleManager,
		JoinDate: "2019-06-15", Salary: 125000,
		Address: "100 Tech Park, San Francisco", Status: models.EmployeeActive,
	})
	out = append(out, models.Employee{
		FirstName: "James", LastName: "Smithson",
		Email: "james.smithson@company.com", Mobile: "5551234567",
		Department: models.DepartmentSales, Role: models.EmployeeRoleEmployee,
		JoinDate: "2023-03-20", Salary: 55000,
		Address: "200 Commerce St, Boston", Status: models.EmployeeActive,
	})
	return out
}

func randomSeedDate(rng *rand.Rand) string {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	days := int(end.Sub(start).Hours() / 24)
	return start.AddDate(0, 0, rng.Intn(days+1)).Format("2006-01-02")
}

// SeedDemo installs the demo users and employees when the store is empty.
// hashSecret is injected so the store does not depend on the auth package.
func (s *Store) SeedDemo(ctx context.Context, hashSecret func(string) (string, error)) error {
	userCount, err := s.CountUsers(ctx)
	if err != nil {
		return err
	}
	if userCount == 0 {
		for _, u := range demoUsers {
			hash, err := hashSecret(u.Password)
			if err != nil {
				return err
			}
			if _, err := s.CreateUser(ctx, u.Username, hash, u.Role, u.FullName, u.Email); err != nil {
				return err
			}
		}
	}

	empCount, err := s.CountEmployees(ctx)
	if err != nil {
		return err
	}
	if empCount > 0 {
		return nil
	}
	for _, e := range DemoEmployees() {
		if _, err := s.CreateEmployee(ctx, e); err != nil {
			return err
		}
	}
	return nil
}
