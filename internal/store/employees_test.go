package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"hrms/internal/db"
	"hrms/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	sqdb, err := db.OpenSQLite(filepath.Join(t.TempDir(), "app.db"), 1, 1, time.Minute)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sqdb.Close() })
	if err := db.ApplyMigrationFile(sqdb, filepath.Join("..", "..", "migrations", "001_init.sql")); err != nil {
		t.Fatalf("apply migration: %v", err)
	}
	return New(sqdb)
}

func mustCreateEmployee(t *testing.T, st *Store, first, last, email string, dept models.Department, join string) models.Employee {
	t.Helper()
	e, err := st.CreateEmployee(context.Background(), models.Employee{
		FirstName:  first,
		LastName:   last,
		Email:      email,
		Department: dept,
		Role:       models.EmployeeRoleEmployee,
		JoinDate:   join,
		Salary:     50000,
		Address:    "1 Test Way",
		Status:     models.EmployeeActive,
	})
	if err != nil {
		t.Fatalf("create employee %s: %v", email, err)
	}
	return e
}

func defaultQuery() models.EmployeeQuery {
	return models.EmployeeQuery{SortBy: models.SortByFullName, SortOrder: models.SortAsc, Page: 1, Limit: 10}
}

func TestListEmployeesTiesBreakByAscendingID(t *testing.T) {
	st := newTestStore(t)
	a := mustCreateEmployee(t, st, "James", "Smith", "first@corp.test", models.DepartmentIT, "2020-01-01")
	b := mustCreateEmployee(t, st, "James", "Smith", "second@corp.test", models.DepartmentHR, "2020-01-01")
	mustCreateEmployee(t, st, "Amy", "Adams", "amy@corp.test", models.DepartmentIT, "2021-01-01")

	for i := 0; i < 3; i++ {
		page, err := st.ListEmployees(context.Background(), defaultQuery())
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		ids := make([]int64, 0, len(page.Data))
		for _, e := range page.Data {
			ids = append(ids, e.ID)
		}
		if len(ids) != 3 || ids[1] != a.ID || ids[2] != b.ID {
			t.Fatalf("run %d: ids = %v, want Amy then %d then %d", i, ids, a.ID, b.ID)
		}
	}

	// The same tie order holds under a descending sort: only the key flips,
	// never the tie-break.
	q := defaultQuery()
	q.SortOrder = models.SortDesc
	page, err := st.ListEmployees(context.Background(), q)
	if err != nil {
		t.Fatalf("list desc: %v", err)
	}
	if page.Data[0].ID != a.ID || page.Data[1].ID != b.ID {
		t.Errorf("desc order ids = %d,%d, want %d,%d", page.Data[0].ID, page.Data[1].ID, a.ID, b.ID)
	}
}

func TestListEmployeesSortIsCaseInsensitive(t *testing.T) {
	st := newTestStore(t)
	mustCreateEmployee(t, st, "aaron", "zimmer", "az@corp.test", models.DepartmentIT, "2020-01-01")
	mustCreateEmployee(t, st, "Abigail", "Young", "ay@corp.test", models.DepartmentIT, "2020-01-01")

	page, err := st.ListEmployees(context.Background(), defaultQuery())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Data[0].FirstName != "aaron" {
		t.Errorf("first = %s, want aaron before Abigail regardless of case", page.Data[0].FirstName)
	}
}

func TestListEmployeesTotalPagesLaw(t *testing.T) {
	st := newTestStore(t)
	for i := 0; i < 21; i++ {
		mustCreateEmployee(t, st, fmt.Sprintf("E%02d", i), "Num", fmt.Sprintf("e%02d@corp.test", i), models.DepartmentIT, "2020-01-01")
	}

	cases := []struct {
		limit, wantPages int
	}{{10, 3}, {7, 3}, {21, 1}, {100, 1}}
	for _, tc := range cases {
		q := defaultQuery()
		q.Limit = tc.limit
		page, err := st.ListEmployees(context.Background(), q)
		if err != nil {
			t.Fatalf("list limit %d: %v", tc.limit, err)
		}
		if page.TotalPages != tc.wantPages {
			t.Errorf("limit %d: totalPages = %d, want %d", tc.limit, page.TotalPages, tc.wantPages)
		}
	}

	// An empty result set still reports one page.
	q := defaultQuery()
	q.Search = "no such person"
	page, err := st.ListEmployees(context.Background(), q)
	if err != nil {
		t.Fatalf("list empty: %v", err)
	}
	if page.Total != 0 || page.TotalPages != 1 {
		t.Errorf("empty set: total %d totalPages %d", page.Total, page.TotalPages)
	}
	if page.Data == nil {
		t.Error("data should be an empty slice, not nil")
	}
}

func TestListEmployeesPageBeyondRange(t *testing.T) {
	st := newTestStore(t)
	for i := 0; i < 5; i++ {
		mustCreateEmployee(t, st, fmt.Sprintf("E%d", i), "Num", fmt.Sprintf("e%d@corp.test", i), models.DepartmentIT, "2020-01-01")
	}
	q := defaultQuery()
	q.Page = 4
	page, err := st.ListEmployees(context.Background(), q)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Data) != 0 || page.Total != 5 || page.Page != 4 {
		t.Errorf("page = %+v", page)
	}
}

func TestCreateEmployeeDuplicateEmail(t *testing.T) {
	st := newTestStore(t)
	mustCreateEmployee(t, st, "Ann", "One", "ann@corp.test", models.DepartmentIT, "2020-01-01")

	_, err := st.CreateEmployee(context.Background(), models.Employee{
		FirstName: "Ann", LastName: "Two", Email: "ANN@CORP.TEST",
		Department: models.DepartmentHR, Role: models.EmployeeRoleEmployee,
		JoinDate: "2021-01-01", Address: "x", Status: models.EmployeeActive,
	})
	if err != ErrConflict {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestUpdateEmployeeEmailConflictExcludesSelf(t *testing.T) {
	st := newTestStore(t)
	a := mustCreateEmployee(t, st, "Ann", "One", "ann@corp.test", models.DepartmentIT, "2020-01-01")
	mustCreateEmployee(t, st, "Ben", "Two", "ben@corp.test", models.DepartmentIT, "2020-01-01")

	// Re-submitting the record's own email, with different casing, is fine.
	own := "ANN@corp.test"
	if _, err := st.UpdateEmployee(context.Background(), a.ID, models.EmployeePatch{Email: &own}); err != nil {
		t.Fatalf("own email update: %v", err)
	}

	theirs := "ben@corp.test"
	if _, err := st.UpdateEmployee(context.Background(), a.ID, models.EmployeePatch{Email: &theirs}); err != ErrConflict {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestUpdateEmployeeClearsProfilePicture(t *testing.T) {
	st := newTestStore(t)
	e := mustCreateEmployee(t, st, "Pic", "Holder", "pic@corp.test", models.DepartmentIT, "2020-01-01")

	uri := "data:image/png;base64,iVBORw0KGgo="
	updated, err := st.UpdateEmployee(context.Background(), e.ID, models.EmployeePatch{ProfilePicture: &uri})
	if err != nil {
		t.Fatalf("set picture: %v", err)
	}
	if updated.ProfilePicture == nil || *updated.ProfilePicture != uri {
		t.Fatalf("picture = %v", updated.ProfilePicture)
	}

	empty := ""
	updated, err = st.UpdateEmployee(context.Background(), e.ID, models.EmployeePatch{ProfilePicture: &empty})
	if err != nil {
		t.Fatalf("clear picture: %v", err)
	}
	if updated.ProfilePicture != nil {
		t.Errorf("picture not cleared: %v", *updated.ProfilePicture)
	}
	got, err := st.GetEmployee(context.Background(), e.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ProfilePicture != nil {
		t.Errorf("stored picture not cleared")
	}
}

func TestCreateEmployeeAssignsMaxPlusOne(t *testing.T) {
	st := newTestStore(t)
	mustCreateEmployee(t, st, "A", "One", "a@corp.test", models.DepartmentIT, "2020-01-01")
	b := mustCreateEmployee(t, st, "B", "Two", "b@corp.test", models.DepartmentIT, "2020-01-01")

	if err := st.DeleteEmployee(context.Background(), b.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	// With the highest id gone, the next record takes its place.
	c := mustCreateEmployee(t, st, "C", "Three", "c@corp.test", models.DepartmentIT, "2020-01-01")
	if c.ID != b.ID {
		t.Errorf("id = %d, want %d", c.ID, b.ID)
	}
}

func TestDeleteEmployeeMissing(t *testing.T) {
	st := newTestStore(t)
	if err := st.DeleteEmployee(context.Background(), 12345); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func hashForTest(plain string) (string, error) { return "hash:" + plain, nil }

func TestSeedDemoPopulatesAndStaysIdempotent(t *testing.T) {
	st := newTestStore(t)
	if err := st.SeedDemo(context.Background(), hashForTest); err != nil {
		t.Fatalf("seed: %v", err)
	}

	users, err := st.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("users = %d, want 3", len(users))
	}
	total, err := st.CountEmployees(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if total != 40 {
		t.Fatalf("employees = %d, want 40", total)
	}

	// A second run must not duplicate anything.
	if err := st.SeedDemo(context.Background(), hashForTest); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	if total, _ = st.CountEmployees(context.Background()); total != 40 {
		t.Errorf("employees after reseed = %d", total)
	}
}

// The filtered listing must agree with filtering the full data set by hand,
// across every page of a realistic seeded database.
func TestListEmployeesMatchesManualFilterOverSeedData(t *testing.T) {
	st := newTestStore(t)
	if err := st.SeedDemo(context.Background(), hashForTest); err != nil {
		t.Fatalf("seed: %v", err)
	}

	all := []models.Employee{}
	q := defaultQuery()
	q.Limit = 100
	page, err := st.ListEmployees(context.Background(), q)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	all = append(all, page.Data...)
	if len(all) != 40 {
		t.Fatalf("full listing = %d rows", len(all))
	}

	want := []models.Employee{}
	for _, e := range all {
		if e.Department == models.DepartmentIT && e.Status == models.EmployeeActive {
			want = append(want, e)
		}
	}
	sort.SliceStable(want, func(i, j int) bool {
		a := strings.ToLower(want[i].FullName())
		b := strings.ToLower(want[j].FullName())
		if a != b {
			return a < b
		}
		return want[i].ID < want[j].ID
	})

	got := []models.Employee{}
	fq := defaultQuery()
	fq.Department = models.DepartmentIT
	fq.Status = models.EmployeeActive
	for p := 1; ; p++ {
		fq.Page = p
		page, err := st.ListEmployees(context.Background(), fq)
		if err != nil {
			t.Fatalf("list page %d: %v", p, err)
		}
		if page.Total != len(want) {
			t.Fatalf("total = %d, want %d", page.Total, len(want))
		}
		got = append(got, page.Data...)
		if p >= page.TotalPages {
			break
		}
	}
	if len(got) != len(want) {
		t.Fatalf("collected %d rows, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i].ID {
			t.Fatalf("row %d: id %d, want %d", i, got[i].ID, want[i].ID)
		}
	}
}

func TestSeedDataSupportsNamesakeSearch(t *testing.T) {
	st := newTestStore(t)
	if err := st.SeedDemo(context.Background(), hashForTest); err != nil {
		t.Fatalf("seed: %v", err)
	}

	q := defaultQuery()
	q.Search = "james smith"
	q.Limit = 100
	page, err := st.ListEmployees(context.Background(), q)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	found := map[string]bool{}
	for _, e := range page.Data {
		found[e.Email] = true
	}
	if !found["james.smith.senior@company.com"] || !found["james.smithson@company.com"] {
		t.Errorf("namesake records missing from search results: %v", found)
	}
}
