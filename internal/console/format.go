package console

import (
	"fmt"
	"time"

	"github.com/cenkalti/rainview/internal/rpctypes"
)

// Widths of the columns after the name, including separators.
const fixedColumns = 1 + 20 + 1 + 6 + 1 + 10 + 1 + 10 + 1 + 8

func nameWidth(width int) int {
	w := width - fixedColumns
	if w < 10 {
		w = 10
	}
	return w
}

func header(width int) string {
	return fmt.Sprintf("%-*s %-20s %6s %10s %10s %8s", nameWidth(width), "Name", "State", "Prog", "Down", "Up", "ETA")
}

func formatRow(t *rpctypes.Torrent, width int) string {
	nw := nameWidth(width)
	return fmt.Sprintf("%-*s %-20s %5.1f%% %10s %10s %8s",
		nw, truncate(t.Name, nw),
		t.State,
		t.Progress*100,
		formatRate(t.DownloadRate),
		formatRate(t.UploadRate),
		formatETA(t.ETA),
	)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

func formatRate(bps int) string {
	switch {
	case bps <= 0:
		return "-"
	case bps < 1<<10:
		return fmt.Sprintf("%d B/s", bps)
	case bps < 1<<20:
		return fmt.Sprintf("%.1f KiB/s", float64(bps)/(1<<10))
	default:
		return fmt.Sprintf("%.1f MiB/s", float64(bps)/(1<<20))
	}
}

func formatETA(eta *int) string {
	if eta == nil {
		return "∞"
	}
	return (time.Duration(*eta) * time.Second).String()
}
