package cmd

import (
	"fmt"
	"sort"
	"time"

	"github.com/rubiojr/fulltext/pkg/core"
	"github.com/rubiojr/fulltext/pkg/storage"
)

// formatNumber formats a number with K/M suffixes for readability
func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	} else if n < 1000000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	} else {
		return fmt.Sprintf("%.1fM", float64(n)/1000000)
	}
}

// formatBytes formats a byte count with KB/MB suffixes
func formatBytes(n int64) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d B", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	}
}

// formatTime formats a time relative to now or as an absolute date
func formatTime(t time.Time) string {
	now := time.Now()
	diff := now.Sub(t)

	// If it's within the last day, show relative time
	if diff < 24*time.Hour {
		if diff < time.Hour {
			minutes := int(diff.Minutes())
			if minutes < 1 {
				return "just now"
			}
			return fmt.Sprintf("%d minutes ago", minutes)
		}
		hours := int(diff.Hours())
		return fmt.Sprintf("%d hours ago", hours)
	}

	// If it's within the last week, show days ago
	if diff < 7*24*time.Hour {
		days := int(diff.Hours() / 24)
		return fmt.Sprintf("%d days ago", days)
	}

	// Otherwise show the date
	if t.Year() == now.Year() {
		return t.Format("Jan 2, 15:04")
	}
	return t.Format("Jan 2, 2006")
}

// formatStats formats storage statistics for display
func formatStats(stats map[string]*storage.Stats) {
	fmt.Printf("📊 Storage Statistics\n")
	fmt.Printf("═══════════════════════\n\n")

	totalPages := 0
	for _, s := range stats {
		totalPages += s.Pages
	}

	fmt.Printf("Total pages: %s\n", formatNumber(totalPages))
	fmt.Printf("Total datasets: %d\n\n", len(stats))

	if len(stats) == 0 {
		fmt.Printf("No datasets loaded yet.\n")
		return
	}

	var names []string
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Printf("Dataset Details:\n")
	fmt.Printf("────────────────\n")

	for i, name := range names {
		if i > 0 {
			fmt.Printf("\n")
		}
		ds := stats[name]

		fmt.Printf("📁 %s\n", name)
		fmt.Printf("   Records: %s\n", formatNumber(ds.Records))
		fmt.Printf("   Pages:   %s", formatNumber(ds.Pages))
		if totalPages > 0 {
			fmt.Printf(" (%.1f%%)", float64(ds.Pages)/float64(totalPages)*100)
		}
		fmt.Printf("\n")

		for _, g := range core.AllGranularities {
			if n, ok := ds.Annotations[g.Name()]; ok {
				fmt.Printf("   %-8s %s\n", granularityLabel(g)+":", formatNumber(n))
			}
		}

		fmt.Printf("   Text:    %s (%s stored)\n", formatBytes(ds.TextBytes), formatBytes(ds.StoredBytes))
		if ds.LastUpdated != nil {
			fmt.Printf("   Updated: %s\n", formatTime(*ds.LastUpdated))
		}
	}
}
