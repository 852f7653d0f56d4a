package finance

import (
	"fmt"
	"time"
)

// DueDateStatus buckets an installment by how close it is to its due date.
type DueDateStatus string

const (
	DueDateOverdue DueDateStatus = "overdue"
	DueDateToday   DueDateStatus = "due_today"
	DueDateSoon    DueDateStatus = "due_soon"
	DueDateOK      DueDateStatus = "ok"
)

// dueSoonWindowDays is how many days ahead an installment is flagged as
// approaching its due date.
const dueSoonWindowDays = 3

// DueDateClassification pairs the status bucket with the user-facing label.
type DueDateClassification struct {
	Status       DueDateStatus `json:"status"`
	DaysUntilDue int           `json:"days_until_due"`
	Label        string        `json:"label"`
}

// TruncateToDay normalizes a timestamp to UTC midnight so day arithmetic is
// immune to time-of-day and timezone drift.
func TruncateToDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysUntilDue returns the whole-day distance from today to the due date.
// Negative means the due date has passed.
func DaysUntilDue(dueDate, today time.Time) int {
	diff := TruncateToDay(dueDate).Sub(TruncateToDay(today))
	return int(diff.Hours() / 24)
}

// ClassifyDueDate maps a days-until-due count to a status bucket and label.
func ClassifyDueDate(daysUntilDue int) DueDateClassification {
	c := DueDateClassification{DaysUntilDue: daysUntilDue}

	switch {
	case daysUntilDue < 0:
		c.Status = DueDateOverdue
		c.Label = fmt.Sprintf("Vencido há %d %s", -daysUntilDue, pluralDays(-daysUntilDue))
	case daysUntilDue == 0:
		c.Status = DueDateToday
		c.Label = "Vence hoje"
	case daysUntilDue <= dueSoonWindowDays:
		c.Status = DueDateSoon
		if daysUntilDue == 1 {
			c.Label = "Falta 1 dia"
		} else {
			c.Label = fmt.Sprintf("Faltam %d dias", daysUntilDue)
		}
	default:
		c.Status = DueDateOK
		c.Label = "Em dia"
	}

	return c
}

// ClassifyInstallmentDueDate classifies an installment's due date relative to
// a reference date.
func ClassifyInstallmentDueDate(dueDate, referenceDate time.Time) DueDateClassification {
	return ClassifyDueDate(DaysUntilDue(dueDate, referenceDate))
}

func pluralDays(n int) string {
	if n == 1 {
		return "dia"
	}
	return "dias"
}
