// package formatter renders queue listings as text, Markdown and CSV, and reads CSV exports back
package formatter

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/desertthunder/ytq/internal/models"
	"github.com/desertthunder/ytq/internal/shared"
)

var csvHeaders = []string{"Position", "ID", "Title", "URL", "Service", "Duration", "AddedBy", "UserID", "ETA"}

// Row is one entry with its position and the seconds until it starts playing.
type Row struct {
	Position   int          `json:"position"`
	ETASeconds int          `json:"eta_seconds"`
	Entry      models.Entry `json:"entry"`
}

// Rows computes positions and ETAs. Position 0 starts now; every later entry waits for the
// cumulative duration of the entries before it.
func Rows(entries []models.Entry) []Row {
	rows := make([]Row, len(entries))
	eta := 0
	for i, e := range entries {
		rows[i] = Row{Position: i, ETASeconds: eta, Entry: e}
		eta += e.Info.LengthSeconds
	}
	return rows
}

// FormatDuration renders seconds as m:ss or h:mm:ss.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h, m, s := seconds/3600, (seconds%3600)/60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func trackLength(info models.BasicInfo) string {
	if info.IsLive {
		return "LIVE"
	}
	return FormatDuration(info.LengthSeconds)
}

func total(entries []models.Entry) int {
	n := 0
	for _, e := range entries {
		n += e.Info.LengthSeconds
	}
	return n
}

// QueueToText renders a snapshot as a numbered plain-text listing. With playing set, position 0
// is shown as the current track.
func QueueToText(snap *models.Snapshot, playing bool) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Queue: %s\n", snap.SessionID)
	fmt.Fprintf(&buf, "Tracks: %d (%s)\n", len(snap.Entries), FormatDuration(total(snap.Entries)))
	if modes := modeList(snap); modes != "" {
		fmt.Fprintf(&buf, "Modes: %s\n", modes)
	}
	buf.WriteString("\n")

	if len(snap.Entries) == 0 {
		buf.WriteString("The queue is empty.\n")
		return buf.Bytes()
	}

	for _, row := range Rows(snap.Entries) {
		e := row.Entry
		if row.Position == 0 && playing {
			fmt.Fprintf(&buf, "Now playing: %s [%s] (added by %s)\n", e.Info.Title, trackLength(e.Info), e.AddedBy.DisplayName)
			continue
		}
		fmt.Fprintf(&buf, "%3d. %s [%s] (added by %s, in %s)\n",
			row.Position, e.Info.Title, trackLength(e.Info), e.AddedBy.DisplayName, FormatDuration(row.ETASeconds))
	}

	return buf.Bytes()
}

func modeList(snap *models.Snapshot) string {
	var modes []string
	if snap.Fairness {
		modes = append(modes, "fairness")
	}
	if snap.QueueLoop {
		modes = append(modes, "queue loop")
	}
	if snap.TrackLoop {
		modes = append(modes, "track loop")
	}
	if snap.AutoContinue {
		modes = append(modes, "auto-continue")
	}
	return strings.Join(modes, ", ")
}

// QueueToMarkdown renders a snapshot as a Markdown list with links.
func QueueToMarkdown(snap *models.Snapshot) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# Queue %s\n\n", snap.SessionID)
	fmt.Fprintf(&buf, "**Tracks**: %d\n", len(snap.Entries))
	fmt.Fprintf(&buf, "**Length**: %s\n\n", FormatDuration(total(snap.Entries)))

	buf.WriteString("## Tracks\n\n")
	for _, row := range Rows(snap.Entries) {
		e := row.Entry
		fmt.Fprintf(&buf, "%d. [%s](%s) [%s] added by %s\n", row.Position+1, e.Info.Title, e.Info.URL, trackLength(e.Info), e.AddedBy.DisplayName)
	}

	return buf.Bytes()
}

// QueueToCSV converts entries to CSV with a header row.
func QueueToCSV(entries []models.Entry) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(csvHeaders); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, row := range Rows(entries) {
		e := row.Entry
		record := []string{
			strconv.Itoa(row.Position),
			e.ID,
			e.Info.Title,
			e.Info.URL,
			e.Info.ServiceID,
			strconv.Itoa(e.Info.LengthSeconds),
			e.AddedBy.DisplayName,
			e.AddedBy.UserID,
			strconv.Itoa(row.ETASeconds),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// RefsFromCSV reads a CSV export back into references that carry their metadata. Only the URL
// column is required; rows without a URL are returned as nil so ingestion counts them as skipped.
func RefsFromCSV(r io.Reader) ([]*models.Ref, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read CSV header: %w", shared.ErrInvalidInput, err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	urlCol, ok := cols["url"]
	if !ok {
		return nil, fmt.Errorf("%w: CSV has no URL column", shared.ErrInvalidInput)
	}
	field := func(record []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var refs []*models.Ref
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
		}
		if urlCol >= len(record) || strings.TrimSpace(record[urlCol]) == "" {
			refs = append(refs, nil)
			continue
		}

		ref := &models.Ref{URL: strings.TrimSpace(record[urlCol]), Hint: field(record, "service")}
		if title := field(record, "title"); title != "" {
			seconds, _ := strconv.Atoi(field(record, "duration"))
			ref.Known = &models.BasicInfo{
				Title:         title,
				URL:           ref.URL,
				ServiceID:     ref.Hint,
				LengthSeconds: seconds,
			}
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// WriteExport renders a snapshot in format (text, md or csv) and writes it to path.
func WriteExport(snap *models.Snapshot, format, path string) error {
	data, err := Export(snap, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return nil
}

// Export renders a snapshot in format (text, md or csv).
func Export(snap *models.Snapshot, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", "text", "txt":
		return QueueToText(snap, false), nil
	case "md", "markdown":
		return QueueToMarkdown(snap), nil
	case "csv":
		return QueueToCSV(snap.Entries)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}
