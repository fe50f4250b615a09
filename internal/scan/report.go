package scan

import "eventscan/internal/models"

// AssembleReport builds the run summary; nil buckets serialize as empty lists.
func AssembleReport(runID string, window Window, yesterday, today, tomorrow []*models.Booking, payouts, charges []models.Outcome) *models.RunReport {
	nonNil := func(b []*models.Booking) []*models.Booking {
		if b == nil {
			return []*models.Booking{}
		}
		return b
	}

	return &models.RunReport{
		YesterdayEvents: nonNil(yesterday),
		TodayEvents:     nonNil(today),
		TomorrowEvents:  nonNil(tomorrow),
		Metadata: models.RunMetadata{
			RunID:         runID,
			YesterdayDate: window.Yesterday,
			TodayDate:     window.Today,
			TomorrowDate:  window.Tomorrow,
			TotalEvents:   len(yesterday) + len(today) + len(tomorrow),
		},
		Payouts: payouts,
		Charges: charges,
	}
}
