package ingest

import (
	"time"

	errs "tikscraper/pkg/errors"
)

// DateLayout is the format of --from-date
const DateLayout = "2006-01-02"

// ResolveCutoff returns midnight UTC of fromDate when it is set, otherwise
// midnight UTC of the day days before now
func ResolveCutoff(fromDate string, days int, now time.Time) (time.Time, error) {
	if fromDate != "" {
		t, err := time.ParseInLocation(DateLayout, fromDate, time.UTC)
		if err != nil {
			return time.Time{}, errs.Wrap(errs.ErrorTypeConfig, err, "invalid date %q, use YYYY-MM-DD", fromDate)
		}
		return t, nil
	}
	if days < 0 {
		return time.Time{}, errs.New(errs.ErrorTypeConfig, "days cannot be negative")
	}

	d := now.UTC().AddDate(0, 0, -days)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), nil
}
