package dirstat

import "time"

type calendarDate struct {
	year  int
	month time.Month
	day   int
}

// blacklistedDates are days some filesystems report for files with broken
// timestamps. Samples on these days are treated as unreadable.
var blacklistedDates = []calendarDate{
	{year: 2098, month: time.January, day: 1},
}

// Sanitized returns a copy of the sample with timestamps on blacklisted dates
// cleared.
func (s Sample) Sanitized() Sample {
	s.Created = dropBlacklisted(s.Created)
	s.Accessed = dropBlacklisted(s.Accessed)
	s.Modified = dropBlacklisted(s.Modified)

	return s
}

func dropBlacklisted(ts time.Time) time.Time {
	if ts.IsZero() {
		return ts
	}

	year, month, day := ts.UTC().Date()

	for _, d := range blacklistedDates {
		if d.year == year && d.month == month && d.day == day {
			return time.Time{}
		}
	}

	return ts
}
