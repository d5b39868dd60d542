package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/couchcryptid/seismic-intensity/internal/domain"
)

var resultHeaders = table.Row{"Station", "Event", "Status", "PGA (gal)", "PGV (cm/s)", "I", "Class", "Note"}

// renderResults lays out one row per station event in aggregate order.
func renderResults(batch *domain.Batch, colorize bool) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(resultHeaders)

	for _, r := range batch.Results {
		row := table.Row{r.StationID, r.EventID, statusText(r.Status, colorize), "", "", "", "", note(r)}
		if r.Computed() {
			row[3] = strconv.FormatFloat(r.CombinedPGAGal, 'f', 2, 64)
			row[4] = strconv.FormatFloat(r.CombinedPGVCMS, 'f', 2, 64)
			row[5] = strconv.FormatFloat(r.IntensityValue, 'f', 1, 64)
			row[6] = strconv.FormatFloat(r.IntensityClass, 'f', 0, 64)
		}
		tw.AppendRow(row)
	}

	configs := make([]table.ColumnConfig, 0, len(resultHeaders))
	for i := range resultHeaders {
		align := text.AlignLeft
		if i >= 3 && i <= 6 {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

func statusText(s domain.Status, colorize bool) string {
	if !colorize {
		return string(s)
	}
	switch s {
	case domain.StatusSuccess:
		return text.FgGreen.Sprint(s)
	case domain.StatusPartial:
		return text.FgYellow.Sprint(s)
	default:
		return text.FgRed.Sprint(s)
	}
}

func note(r domain.IntensityResult) string {
	switch {
	case r.Status == domain.StatusFailed:
		return fmt.Sprintf("%s at %s: %s", r.ErrorKind, r.FailedStage, r.ErrorDetail)
	case r.ErrorDetail != "":
		return r.ErrorDetail
	case r.OutOfRange:
		return "clamped to scale"
	}
	return ""
}

func summaryLine(s domain.Summary) string {
	line := fmt.Sprintf("%d station events: %d succeeded, %d partial, %d failed", s.Total, s.Succeeded, s.Partial, s.Failed)
	if s.MaxStationID != "" {
		line += fmt.Sprintf("; max class %g at %s", s.MaxClass, s.MaxStationID)
	}
	return line
}

func shouldColorize(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
