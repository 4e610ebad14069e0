package service

import (
	"context"
	"testing"
	"time"

	"moneynest/internal/models"
)

func TestSpendingLimits(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	family, admin, member := setupFamily(t, env)
	scope := models.FamilyScope(family.ID)
	env.limits.now = func() time.Time { return time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC) }

	food := expenseCategory(t, env, admin, scope, "Food")
	salary, err := env.ledger.CreateCategory(ctx, admin, scope, models.CategoryInput{Name: "Salary", Type: models.TypeIncome})
	if err != nil {
		t.Fatalf("CreateCategory failed: %v", err)
	}
	record(t, env, member, scope, food.ID, 4000, "2024-03-12")
	record(t, env, admin, scope, food.ID, 1000, "2024-03-13")
	record(t, env, member, scope, food.ID, 7000, "2024-02-01")

	// Non-admins see nothing
	_, err = env.limits.ListLimits(ctx, member, family.ID)
	assertKind(t, err, ErrForbidden)
	_, err = env.limits.CreateLimit(ctx, member, family.ID, models.SpendingLimitInput{LimitAmount: 100, Period: models.PeriodMonthly})
	assertKind(t, err, ErrForbidden)

	_, err = env.limits.CreateLimit(ctx, admin, family.ID, models.SpendingLimitInput{CategoryID: &salary.ID, LimitAmount: 100, Period: models.PeriodMonthly})
	if !isValidation(err) {
		t.Errorf("income category should be rejected, got %v", err)
	}
	stranger := env.user(t, "Stranger")
	_, err = env.limits.CreateLimit(ctx, admin, family.ID, models.SpendingLimitInput{UserID: &stranger, LimitAmount: 100, Period: models.PeriodMonthly})
	if !isValidation(err) {
		t.Errorf("non-member user should be rejected, got %v", err)
	}
	_, err = env.limits.CreateLimit(ctx, admin, family.ID, models.SpendingLimitInput{LimitAmount: 100, Period: "DAILY"})
	if !isValidation(err) {
		t.Errorf("unknown period should be rejected, got %v", err)
	}

	weekly, err := env.limits.CreateLimit(ctx, admin, family.ID, models.SpendingLimitInput{
		CategoryID: &food.ID, LimitAmount: 5000, Period: models.PeriodWeekly,
	})
	if err != nil {
		t.Fatalf("CreateLimit failed: %v", err)
	}
	if weekly.AlertThreshold != models.DefaultAlertThreshold {
		t.Errorf("AlertThreshold = %d, want default %d", weekly.AlertThreshold, models.DefaultAlertThreshold)
	}

	threshold := 50
	forMember, err := env.limits.CreateLimit(ctx, admin, family.ID, models.SpendingLimitInput{
		UserID: &member, LimitAmount: 20000, Period: models.PeriodYearly, AlertThreshold: &threshold,
	})
	if err != nil {
		t.Fatalf("CreateLimit failed: %v", err)
	}

	statuses, err := env.limits.ListLimits(ctx, admin, family.ID)
	if err != nil {
		t.Fatalf("ListLimits failed: %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("expected 2 limits, got %d", len(statuses))
	}
	byID := map[int64]int{}
	for i, s := range statuses {
		byID[s.Limit.ID] = i
	}

	w := statuses[byID[weekly.ID]]
	if w.Spent != 5000 || !w.Alert || w.Remaining != 0 {
		t.Errorf("weekly status: %+v", w)
	}
	m := statuses[byID[forMember.ID]]
	if m.Spent != 11000 || !m.Alert || m.Percent != 55 {
		t.Errorf("member yearly status: %+v", m)
	}

	assertKind(t, env.limits.DeleteLimit(ctx, member, family.ID, weekly.ID), ErrForbidden)
	if err := env.limits.DeleteLimit(ctx, admin, family.ID, weekly.ID); err != nil {
		t.Fatalf("DeleteLimit failed: %v", err)
	}
	assertKind(t, env.limits.DeleteLimit(ctx, admin, family.ID, weekly.ID), ErrLimitNotFound)

	// A limit of another family is not addressable through this one
	other, err := env.family.CreateFamily(ctx, admin, "Other")
	if err != nil {
		t.Fatalf("CreateFamily failed: %v", err)
	}
	assertKind(t, env.limits.DeleteLimit(ctx, admin, other.ID, forMember.ID), ErrNotFound)
}
