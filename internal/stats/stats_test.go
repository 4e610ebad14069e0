package stats

import (
	"testing"
	"time"

	"moneynest/internal/models"
)

func money(v int64) *models.Money {
	m := models.Money(v)
	return &m
}

func id(v int64) *int64 {
	return &v
}

var fixedNow = time.Date(2024, time.March, 14, 15, 30, 0, 0, time.UTC) // a Thursday

func TestComputeTotals(t *testing.T) {
	transactions := []models.Transaction{
		{Amount: 1000, Type: models.TypeIncome, Date: "2024-03-01"},
		{Amount: -300, Type: models.TypeExpense, Date: "2024-03-02"},
		{Amount: -200, Type: models.TypeExpense, Date: "2024-03-03"},
	}

	s := Compute(transactions, nil, fixedNow)

	if s.TotalIncome != 1000 {
		t.Errorf("TotalIncome = %d, want 1000", s.TotalIncome)
	}
	if s.TotalExpense != 500 {
		t.Errorf("TotalExpense = %d, want 500", s.TotalExpense)
	}
	if s.Balance != 500 {
		t.Errorf("Balance = %d, want 500", s.Balance)
	}
	if s.TransactionCount != 3 {
		t.Errorf("TransactionCount = %d, want 3", s.TransactionCount)
	}
}

func TestComputeMonthlyIsPeriodScoped(t *testing.T) {
	categories := []models.Category{
		{ID: 1, Name: "Groceries", Type: models.TypeExpense, BudgetLimit: money(10000)},
		{ID: 2, Name: "Rent", Type: models.TypeExpense, BudgetLimit: money(50000)},
		{ID: 3, Name: "Fun", Type: models.TypeExpense},
		{ID: 4, Name: "Salary", Type: models.TypeIncome, BudgetLimit: money(99999)},
	}
	transactions := []models.Transaction{
		{CategoryID: 1, Amount: 8500, Type: models.TypeExpense, Date: "2024-03-10"},
		{CategoryID: 1, Amount: 4000, Type: models.TypeExpense, Date: "2024-02-28"},
		{CategoryID: 2, Amount: 50000, Type: models.TypeExpense, Date: "2024-03-01"},
		{CategoryID: 3, Amount: 700, Type: models.TypeExpense, Date: "2024-03-31"},
		{CategoryID: 4, Amount: 200000, Type: models.TypeIncome, Date: "2024-03-01"},
	}

	s := Compute(transactions, categories, fixedNow)

	if s.MonthlyBudget != 60000 {
		t.Errorf("MonthlyBudget = %d, want 60000 (income budgets excluded)", s.MonthlyBudget)
	}
	if s.MonthlySpent != 59200 {
		t.Errorf("MonthlySpent = %d, want 59200", s.MonthlySpent)
	}
	if s.TotalExpense != 63200 {
		t.Errorf("TotalExpense = %d, want 63200 (lifetime)", s.TotalExpense)
	}
	if s.Balance != 200000-63200 {
		t.Errorf("Balance = %d, want %d", s.Balance, 200000-63200)
	}

	want := map[int64]struct {
		spent   models.Money
		percent int
		level   Level
	}{
		1: {8500, 85, LevelWarning},
		2: {50000, 100, LevelDanger},
		3: {700, 0, LevelNone},
		4: {0, 0, LevelNone},
	}
	if len(s.Categories) != len(want) {
		t.Fatalf("got %d category usages, want %d", len(s.Categories), len(want))
	}
	for _, u := range s.Categories {
		w := want[u.CategoryID]
		if u.CurrentSpent != w.spent || u.Percent != w.percent || u.Level != w.level {
			t.Errorf("category %d: got spent=%d percent=%d level=%s, want %d/%d/%s",
				u.CategoryID, u.CurrentSpent, u.Percent, u.Level, w.spent, w.percent, w.level)
		}
	}
}

func TestComputeEmpty(t *testing.T) {
	s := Compute(nil, nil, fixedNow)
	if s.Balance != 0 || s.MonthlySpent != 0 || s.MonthlyBudget != 0 {
		t.Errorf("expected zero summary, got %+v", s)
	}
	if s.Categories == nil {
		t.Error("Categories should be an empty slice, not nil")
	}
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		percent int
		want    Level
	}{
		{0, LevelNone},
		{79, LevelNone},
		{80, LevelWarning},
		{99, LevelWarning},
		{100, LevelDanger},
		{250, LevelDanger},
	}

	for _, tt := range tests {
		if got := LevelFor(tt.percent); got != tt.want {
			t.Errorf("LevelFor(%d) = %s, want %s", tt.percent, got, tt.want)
		}
	}
}

func TestPeriodBounds(t *testing.T) {
	tests := []struct {
		period    models.Period
		now       time.Time
		wantStart string
		wantEnd   string
	}{
		{models.PeriodWeekly, fixedNow, "2024-03-11", "2024-03-18"},
		{models.PeriodWeekly, time.Date(2024, 3, 17, 23, 0, 0, 0, time.UTC), "2024-03-11", "2024-03-18"},
		{models.PeriodWeekly, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), "2024-03-11", "2024-03-18"},
		{models.PeriodMonthly, fixedNow, "2024-03-01", "2024-04-01"},
		{models.PeriodMonthly, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), "2024-12-01", "2025-01-01"},
		{models.PeriodYearly, fixedNow, "2024-01-01", "2025-01-01"},
	}

	for _, tt := range tests {
		t.Run(string(tt.period)+" "+tt.now.Format(models.DateLayout), func(t *testing.T) {
			start, end := PeriodBounds(tt.period, tt.now)
			if got := start.Format(models.DateLayout); got != tt.wantStart {
				t.Errorf("start = %s, want %s", got, tt.wantStart)
			}
			if got := end.Format(models.DateLayout); got != tt.wantEnd {
				t.Errorf("end = %s, want %s", got, tt.wantEnd)
			}
		})
	}
}

func TestLimitUsage(t *testing.T) {
	transactions := []models.Transaction{
		{UserID: 1, CategoryID: 10, Amount: 3000, Type: models.TypeExpense, Date: "2024-03-11"},
		{UserID: 2, CategoryID: 10, Amount: 2000, Type: models.TypeExpense, Date: "2024-03-14"},
		{UserID: 1, CategoryID: 11, Amount: 1500, Type: models.TypeExpense, Date: "2024-03-12"},
		{UserID: 1, CategoryID: 10, Amount: 9999, Type: models.TypeExpense, Date: "2024-03-10"},
		{UserID: 1, CategoryID: 10, Amount: 5000, Type: models.TypeIncome, Date: "2024-03-12"},
	}

	tests := []struct {
		name      string
		limit     models.SpendingLimit
		wantSpent models.Money
		wantAlert bool
	}{
		{
			name:      "whole family weekly",
			limit:     models.SpendingLimit{LimitAmount: 10000, Period: models.PeriodWeekly, AlertThreshold: 80},
			wantSpent: 6500,
		},
		{
			name:      "category weekly",
			limit:     models.SpendingLimit{CategoryID: id(10), LimitAmount: 5000, Period: models.PeriodWeekly, AlertThreshold: 80},
			wantSpent: 5000,
			wantAlert: true,
		},
		{
			name:      "member monthly",
			limit:     models.SpendingLimit{UserID: id(1), LimitAmount: 20000, Period: models.PeriodMonthly, AlertThreshold: 50},
			wantSpent: 14499,
			wantAlert: true,
		},
		{
			name:      "category and member",
			limit:     models.SpendingLimit{CategoryID: id(10), UserID: id(2), LimitAmount: 4000, Period: models.PeriodYearly, AlertThreshold: 80},
			wantSpent: 2000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := LimitUsage(tt.limit, transactions, fixedNow)
			if status.Spent != tt.wantSpent {
				t.Errorf("Spent = %d, want %d", status.Spent, tt.wantSpent)
			}
			if status.Alert != tt.wantAlert {
				t.Errorf("Alert = %v, want %v (percent %d)", status.Alert, tt.wantAlert, status.Percent)
			}
			if status.Remaining < 0 {
				t.Errorf("Remaining must not be negative, got %d", status.Remaining)
			}
		})
	}
}

func TestLimitUsagePeriodLabels(t *testing.T) {
	status := LimitUsage(models.SpendingLimit{LimitAmount: 100, Period: models.PeriodWeekly, AlertThreshold: 80}, nil, fixedNow)
	if status.PeriodStart != "2024-03-11" || status.PeriodEnd != "2024-03-17" {
		t.Errorf("period = %s..%s, want 2024-03-11..2024-03-17", status.PeriodStart, status.PeriodEnd)
	}
	if status.Remaining != 100 {
		t.Errorf("Remaining = %d, want 100", status.Remaining)
	}
}

func TestCache(t *testing.T) {
	cache, err := NewCache(time.Minute)
	if err != nil {
		t.Fatalf("NewCache failed: %v", err)
	}
	defer cache.Close()

	personal := models.PersonalScope(7)
	family := models.FamilyScope(7)

	cache.Set(personal, cache.Generation(personal), Summary{Balance: 42})

	if got, ok := cache.Get(personal); !ok || got.Balance != 42 {
		t.Fatalf("Get(personal) = %+v, %v", got, ok)
	}
	if _, ok := cache.Get(family); ok {
		t.Error("family scope with the same id must not share the personal entry")
	}

	cache.Invalidate(personal)
	if _, ok := cache.Get(personal); ok {
		t.Error("entry should be gone after Invalidate")
	}
}

func TestCacheDropsSummaryFromBeforeInvalidate(t *testing.T) {
	cache, err := NewCache(time.Minute)
	if err != nil {
		t.Fatalf("NewCache failed: %v", err)
	}
	defer cache.Close()

	scope := models.FamilyScope(3)
	stale := cache.Generation(scope)

	// A mutation lands while the summary is being computed.
	cache.Invalidate(scope)

	if cache.Set(scope, stale, Summary{Balance: 1}) {
		t.Error("Set() with a superseded generation should be refused")
	}
	if _, ok := cache.Get(scope); ok {
		t.Fatal("stale summary must not be served")
	}

	if !cache.Set(scope, cache.Generation(scope), Summary{Balance: 2}) {
		t.Fatal("Set() with the current generation should store")
	}
	if got, ok := cache.Get(scope); !ok || got.Balance != 2 {
		t.Errorf("Get() = %+v, %v, want balance 2", got, ok)
	}

	if cache.Generation(models.PersonalScope(3)) != 0 {
		t.Error("invalidating a family scope must not bump the personal scope")
	}
}

func TestNilCache(t *testing.T) {
	var cache *Cache
	if cache.Set(models.PersonalScope(1), cache.Generation(models.PersonalScope(1)), Summary{}) {
		t.Error("nil cache should not store")
	}
	if _, ok := cache.Get(models.PersonalScope(1)); ok {
		t.Error("nil cache should never hit")
	}
	cache.Invalidate(models.PersonalScope(1))
	cache.Close()
}
