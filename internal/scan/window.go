package scan

import (
	"time"

	"eventscan/internal/models"
)

// Window holds the three calendar dates a run looks at.
type Window struct {
	Yesterday string
	Today     string
	Tomorrow  string
}

// NewWindow derives the window from ref using UTC calendar days.
func NewWindow(ref time.Time) Window {
	day := ref.UTC()
	return Window{
		Yesterday: day.AddDate(0, 0, -1).Format(models.DateLayout),
		Today:     day.Format(models.DateLayout),
		Tomorrow:  day.AddDate(0, 0, 1).Format(models.DateLayout),
	}
}
