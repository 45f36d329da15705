package habits

import "time"

const dateLayout = "2006-01-02"

// ComputeStreaks derives the current and longest runs of consecutive
// smoke-free days from a date-ascending history. The current streak counts a
// run ending today or yesterday; a run that stopped earlier has been broken.
func ComputeStreaks(history []CheckIn, today time.Time) (current, longest int) {
	days := make(map[string]bool, len(history))
	for _, c := range history {
		days[c.Date] = c.SmokeFree
	}

	// Longest run anywhere in the history.
	run := 0
	var prev time.Time
	for _, c := range history {
		d, err := time.Parse(dateLayout, c.Date)
		if err != nil || !c.SmokeFree {
			run = 0
			continue
		}
		if run > 0 && d.Sub(prev) == 24*time.Hour {
			run++
		} else {
			run = 1
		}
		prev = d
		if run > longest {
			longest = run
		}
	}

	// Current run: walk backwards from today, allowing the day itself to be
	// unlogged yet (counting starts at yesterday then).
	day := today.Truncate(24 * time.Hour)
	if !days[day.Format(dateLayout)] {
		day = day.AddDate(0, 0, -1)
	}
	for days[day.Format(dateLayout)] {
		current++
		day = day.AddDate(0, 0, -1)
	}
	return current, longest
}

// MoneySaved estimates savings since the quit date given the consumption the
// user reported during onboarding.
func MoneySaved(quitDate, now time.Time, packsPerDay, pricePerPack float64) float64 {
	if now.Before(quitDate) || packsPerDay <= 0 || pricePerPack <= 0 {
		return 0
	}
	days := now.Sub(quitDate).Hours() / 24
	return days * packsPerDay * pricePerPack
}
