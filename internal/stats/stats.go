// Package stats derives dashboard figures from ledger contents. Nothing
// computed here is ever stored.
package stats

import (
	"time"

	"moneynest/internal/models"
)

// Level is the budget warning badge of a category
type Level string

const (
	LevelNone    Level = "none"
	LevelWarning Level = "warning"
	LevelDanger  Level = "danger"
)

// WarningPercent is the budget usage at which a category turns to warning
const WarningPercent = 80

// CategoryUsage is one category's spending in the current month
type CategoryUsage struct {
	CategoryID   int64            `json:"categoryId"`
	Name         string           `json:"name"`
	Type         models.EntryType `json:"type"`
	BudgetLimit  *models.Money    `json:"budgetLimit"`
	CurrentSpent models.Money     `json:"currentSpent"`
	Percent      int              `json:"percent"`
	Level        Level            `json:"level"`
}

// Summary holds the dashboard statistics of one ledger
type Summary struct {
	TotalIncome      models.Money    `json:"totalIncome"`
	TotalExpense     models.Money    `json:"totalExpense"`
	Balance          models.Money    `json:"balance"`
	MonthlyBudget    models.Money    `json:"monthlyBudget"`
	MonthlySpent     models.Money    `json:"monthlySpent"`
	TransactionCount int             `json:"transactionCount"`
	Categories       []CategoryUsage `json:"categories"`
}

// Compute aggregates transactions and categories of one ledger. Income,
// expense and balance are lifetime figures; monthly figures and per-category
// usage cover the calendar month containing now.
func Compute(transactions []models.Transaction, categories []models.Category, now time.Time) Summary {
	monthStart, monthEnd := PeriodBounds(models.PeriodMonthly, now)

	s := Summary{TransactionCount: len(transactions)}
	spentByCategory := make(map[int64]models.Money)

	for i := range transactions {
		tx := &transactions[i]
		amount := tx.Amount.Abs()

		switch tx.Type {
		case models.TypeIncome:
			s.TotalIncome += amount
		case models.TypeExpense:
			s.TotalExpense += amount
			if within(tx.Day(), monthStart, monthEnd) {
				s.MonthlySpent += amount
				spentByCategory[tx.CategoryID] += amount
			}
		}
	}
	s.Balance = s.TotalIncome - s.TotalExpense

	s.Categories = make([]CategoryUsage, 0, len(categories))
	for _, c := range categories {
		usage := CategoryUsage{
			CategoryID:  c.ID,
			Name:        c.Name,
			Type:        c.Type,
			BudgetLimit: c.BudgetLimit,
			Level:       LevelNone,
		}
		if c.Type == models.TypeExpense {
			usage.CurrentSpent = spentByCategory[c.ID]
			if c.BudgetLimit != nil {
				s.MonthlyBudget += *c.BudgetLimit
				usage.Percent = Percent(usage.CurrentSpent, *c.BudgetLimit)
				usage.Level = LevelFor(usage.Percent)
			}
		}
		s.Categories = append(s.Categories, usage)
	}

	return s
}

// Percent returns spent as a whole percentage of limit, rounded down.
// A non-positive limit yields 0.
func Percent(spent, limit models.Money) int {
	if limit <= 0 {
		return 0
	}
	return int(int64(spent) * 100 / int64(limit))
}

// LevelFor maps a usage percentage to a warning level
func LevelFor(percent int) Level {
	switch {
	case percent >= 100:
		return LevelDanger
	case percent >= WarningPercent:
		return LevelWarning
	default:
		return LevelNone
	}
}

// LimitStatus is the consumption of a spending limit in its current period
type LimitStatus struct {
	Limit       models.SpendingLimit `json:"limit"`
	Spent       models.Money         `json:"spent"`
	Remaining   models.Money         `json:"remaining"`
	Percent     int                  `json:"percent"`
	Alert       bool                 `json:"alert"`
	PeriodStart string               `json:"periodStart"`
	PeriodEnd   string               `json:"periodEnd"`
}

// LimitUsage sums the EXPENSE transactions that count against limit within
// its period containing now, honoring the optional category and user filters.
func LimitUsage(limit models.SpendingLimit, transactions []models.Transaction, now time.Time) LimitStatus {
	start, end := PeriodBounds(limit.Period, now)

	var spent models.Money
	for i := range transactions {
		tx := &transactions[i]
		if tx.Type != models.TypeExpense {
			continue
		}
		if limit.CategoryID != nil && tx.CategoryID != *limit.CategoryID {
			continue
		}
		if limit.UserID != nil && tx.UserID != *limit.UserID {
			continue
		}
		if !within(tx.Day(), start, end) {
			continue
		}
		spent += tx.Amount.Abs()
	}

	remaining := limit.LimitAmount - spent
	if remaining < 0 {
		remaining = 0
	}
	percent := Percent(spent, limit.LimitAmount)

	return LimitStatus{
		Limit:       limit,
		Spent:       spent,
		Remaining:   remaining,
		Percent:     percent,
		Alert:       percent >= limit.AlertThreshold,
		PeriodStart: start.Format(models.DateLayout),
		PeriodEnd:   end.AddDate(0, 0, -1).Format(models.DateLayout),
	}
}

// PeriodBounds returns the half-open [start, end) calendar range of period
// containing now. Weeks start on Monday. Unknown periods fall back to monthly.
func PeriodBounds(period models.Period, now time.Time) (time.Time, time.Time) {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	switch period {
	case models.PeriodWeekly:
		offset := (int(today.Weekday()) + 6) % 7
		start := today.AddDate(0, 0, -offset)
		return start, start.AddDate(0, 0, 7)
	case models.PeriodYearly:
		start := time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(1, 0, 0)
	default:
		start := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0)
	}
}

func within(day, start, end time.Time) bool {
	return !day.IsZero() && !day.Before(start) && day.Before(end)
}
