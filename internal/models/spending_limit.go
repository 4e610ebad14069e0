package models

import "time"

// Period is the window a spending limit is measured over
type Period string

const (
	PeriodWeekly  Period = "WEEKLY"
	PeriodMonthly Period = "MONTHLY"
	PeriodYearly  Period = "YEARLY"
)

// DefaultAlertThreshold is the usage percentage that triggers an alert when none is given
const DefaultAlertThreshold = 80

// SpendingLimit caps family spending, optionally for one category and/or one member
type SpendingLimit struct {
	ID             int64     `json:"id"`
	FamilyID       int64     `json:"familyId"`
	CategoryID     *int64    `json:"categoryId"`
	UserID         *int64    `json:"userId"`
	LimitAmount    Money     `json:"limitAmount"`
	Period         Period    `json:"period"`
	AlertThreshold int       `json:"alertThreshold"`
	CreatedAt      time.Time `json:"createdAt"`
}

// SpendingLimitInput is the body of a spending limit create request
type SpendingLimitInput struct {
	CategoryID     *int64 `json:"categoryId" validate:"omitempty,gt=0"`
	UserID         *int64 `json:"userId" validate:"omitempty,gt=0"`
	LimitAmount    Money  `json:"limitAmount" validate:"gt=0"`
	Period         Period `json:"period" validate:"required,oneof=WEEKLY MONTHLY YEARLY"`
	AlertThreshold *int   `json:"alertThreshold" validate:"omitempty,min=1,max=100"`
}
