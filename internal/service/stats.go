package service

import (
	"fmt"
	"math"
	"time"

	"github.com/victor-igor/wacrm-backend/internal/model"
)

// Window bounds aggregation to created_at in [Start, End], inclusive.
type Window struct {
	Start time.Time
	End   time.Time
}

// HourBucket is one hour-of-day slot in the daily activity histogram.
type HourBucket struct {
	Hour      string `json:"hour"`
	Sent      int    `json:"sent"`
	Delivered int    `json:"delivered"`
	Failed    int    `json:"failed"`
}

// VariationStats is the per-message-variation performance rollup.
type VariationStats struct {
	Content   string `json:"content"`
	Total     int    `json:"total"`
	Delivered int    `json:"delivered"`
	Failed    int    `json:"failed"`
}

// CampaignStats is the chart-ready aggregation of a campaign's log history.
type CampaignStats struct {
	Campaign   *model.Campaign  `json:"campaign,omitempty"`
	Total      int              `json:"total"`
	Delivered  int              `json:"delivered"`
	Failed     int              `json:"failed"`
	Pending    int              `json:"pending"`
	Hourly     []HourBucket     `json:"hourly"`
	Variations []VariationStats `json:"variations"`
}

// Aggregate folds log entries into summary counters, a zero-filled 24-bucket
// hour-of-day histogram and per-variation buckets. It is a pure function:
// identical input always yields identical output.
func Aggregate(campaign *model.Campaign, logs []model.CampaignLogEntry, window *Window) CampaignStats {
	stats := CampaignStats{
		Campaign: campaign,
		Hourly:   make([]HourBucket, 24),
	}
	for h := range stats.Hourly {
		stats.Hourly[h].Hour = fmt.Sprintf("%02d:00", h)
	}

	varIndex := map[string]int{}

	for _, entry := range logs {
		if window != nil {
			if entry.CreatedAt.Before(window.Start) || entry.CreatedAt.After(window.End) {
				continue
			}
		}

		stats.Total++
		delivered := entry.Status.IsDelivered()
		failed := entry.Status == model.LogStatusFailed
		if delivered {
			stats.Delivered++
		}
		if failed {
			stats.Failed++
		}

		hour := entry.CreatedAt.Hour()
		stats.Hourly[hour].Sent++
		if delivered {
			stats.Hourly[hour].Delivered++
		}
		if failed {
			stats.Hourly[hour].Failed++
		}

		key := entry.VariationKey()
		if key == model.DefaultMessageContent && campaign != nil && len(campaign.MessageVariations) > 0 {
			key = campaign.MessageVariations[0]
		}
		idx, seen := varIndex[key]
		if !seen {
			idx = len(stats.Variations)
			varIndex[key] = idx
			stats.Variations = append(stats.Variations, VariationStats{Content: key})
		}
		stats.Variations[idx].Total++
		if delivered {
			stats.Variations[idx].Delivered++
		}
		if failed {
			stats.Variations[idx].Failed++
		}
	}

	// Inconsistent inputs could push this negative; clamp for display.
	stats.Pending = stats.Total - stats.Delivered - stats.Failed
	if stats.Pending < 0 {
		stats.Pending = 0
	}
	return stats
}

// Percent renders part of total as a rounded percentage, with 0 for an empty
// total rather than a division by zero.
func Percent(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}

// EndOfDay widens a bare date to its last representable instant, so a
// user-picked end date is inclusive.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}
