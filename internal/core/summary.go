package core

import "time"

// TopExpense is one entry of the dashboard's highest-amount list.
type TopExpense struct {
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	Amount Money     `json:"amount"`
	Date   time.Time `json:"date"`
}

// MonthTotal is one sparse bucket of the trailing-12-month summary, keyed by
// "YYYY-MM" in UTC.
type MonthTotal struct {
	Month string `json:"month"`
	Total Money  `json:"total"`
}

// Dashboard is the on-demand aggregate for one owner.
type Dashboard struct {
	TotalExpenses        Money        `json:"total_expenses"`
	CurrentMonthExpenses Money        `json:"current_month_expenses"`
	TopExpenses          []TopExpense `json:"top_5_expenses"`
	MonthlySummary       []MonthTotal `json:"monthly_summary"`
}
