package output

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/leadgate/leadgate/internal/core/store"
)

// RateLimitTable renders stored rate-limit windows as an ASCII table.
func RateLimitTable(entries []store.RateLimitEntry) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Client Key", "Count", "Resets At"})

	for _, entry := range entries {
		t.AppendRow(table.Row{
			entry.ClientKey,
			entry.State.Count,
			entry.State.ResetAt.UTC().Format(time.RFC3339),
		})
	}

	t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d entr(ies)", len(entries))})
	return t.Render()
}

// CacheTable renders cached response summaries as an ASCII table.
func CacheTable(entries []store.CacheEntrySummary) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Key", "Generation", "Status", "Size", "Fetched At"})

	for _, entry := range entries {
		t.AppendRow(table.Row{
			entry.Key,
			entry.Generation,
			entry.StatusCode,
			formatSize(entry.Size),
			entry.FetchedAt.UTC().Format(time.RFC3339),
		})
	}

	t.AppendFooter(table.Row{"", "", "", "", fmt.Sprintf("%d entr(ies)", len(entries))})
	return t.Render()
}

func formatSize(size int64) string {
	switch {
	case size >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(size)/(1<<20))
	case size >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(size)/(1<<10))
	default:
		return fmt.Sprintf("%d B", size)
	}
}
