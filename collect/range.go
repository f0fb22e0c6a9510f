package collect

import "time"

// DateRange is an inclusive span of trading dates.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Empty reports whether there is nothing left to fetch.
func (r DateRange) Empty() bool {
	return r.Start.After(r.End)
}

// requiredRange computes the span a collector still needs. Backfill starts
// at the requested start (or the configured default) regardless of the
// watermark; daily mode resumes the day after the watermark, or at the
// default start when the pair has never been collected. A watermark at or
// beyond end yields an empty range and the collector performs zero fetches.
func requiredRange(mode Mode, watermark time.Time, haveWatermark bool, requestedStart, defaultStart, end time.Time) DateRange {
	if mode == ModeBackfill {
		start := dateOf(requestedStart)
		if start.IsZero() {
			start = defaultStart
		}
		return DateRange{Start: start, End: end}
	}

	start := defaultStart
	if haveWatermark {
		start = watermark.AddDate(0, 0, 1)
	}
	return DateRange{Start: start, End: end}
}
