package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Report formats.
const (
	ReportJSON = "json"
	ReportCSV  = "csv"
	ReportText = "text"
)

type reportItem struct {
	File       string `json:"file"`
	Output     string `json:"output,omitempty"`
	Format     string `json:"format,omitempty"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	InputSize  int64  `json:"input_size"`
	OutputSize int64  `json:"output_size,omitempty"`
	Reduction  int    `json:"reduction_percent"`
	Downscaled bool   `json:"downscaled,omitempty"`
	Error      string `json:"error,omitempty"`
	ErrorCode  string `json:"error_code,omitempty"`
}

func (r *Result) reportItems() []reportItem {
	errs := make(map[int]ItemError, len(r.Errors))
	for _, e := range r.Errors {
		errs[e.Index] = e
	}

	items := make([]reportItem, len(r.Files))
	for i, file := range r.Files {
		item := reportItem{File: file}
		if i < len(r.InputSizes) {
			item.InputSize = r.InputSizes[i]
		}
		if i < len(r.Outputs) {
			item.Output = r.Outputs[i]
		}
		if res := r.Results[i]; res != nil {
			item.Format = res.Format.Label()
			item.Width = res.Width
			item.Height = res.Height
			item.OutputSize = res.ByteSize
			item.Reduction = res.Reduction(item.InputSize)
			item.Downscaled = res.Downscaled
		} else if e, ok := errs[i]; ok {
			item.Error = e.Message
			item.ErrorCode = e.Code
		}
		items[i] = item
	}
	return items
}

// formatBatchResults renders r in format; unknown formats fall back to text.
func formatBatchResults(r *Result, format string) (string, error) {
	switch format {
	case ReportJSON:
		return formatJSON(r)
	case ReportCSV:
		return formatCSV(r)
	default:
		return formatText(r)
	}
}

func formatJSON(r *Result) (string, error) {
	report := struct {
		JobID      string       `json:"job_id"`
		Status     Status       `json:"status"`
		DurationMs int64        `json:"duration_ms"`
		Workers    int          `json:"workers"`
		Images     []reportItem `json:"images"`
	}{
		JobID:      r.JobID,
		Status:     r.Status,
		DurationMs: r.Duration.Milliseconds(),
		Workers:    r.WorkerCount,
		Images:     r.reportItems(),
	}

	bts, err := json.MarshalIndent(report, "", "  ")
	return string(bts), err
}

func formatCSV(r *Result) (string, error) {
	var output strings.Builder
	writer := csv.NewWriter(&output)

	header := []string{"file", "output", "format", "width", "height", "input_size", "output_size", "reduction_percent", "downscaled", "error"}
	if err := writer.Write(header); err != nil {
		return "", err
	}
	for _, item := range r.reportItems() {
		row := []string{
			item.File,
			item.Output,
			item.Format,
			strconv.Itoa(item.Width),
			strconv.Itoa(item.Height),
			strconv.FormatInt(item.InputSize, 10),
			strconv.FormatInt(item.OutputSize, 10),
			strconv.Itoa(item.Reduction),
			strconv.FormatBool(item.Downscaled),
			item.Error,
		}
		if err := writer.Write(row); err != nil {
			return "", err
		}
	}
	writer.Flush()
	return output.String(), writer.Error()
}

func formatText(r *Result) (string, error) {
	title := cases.Title(language.English)
	var output strings.Builder
	for i, item := range r.reportItems() {
		if i > 0 {
			output.WriteString("\n")
		}
		output.WriteString(fmt.Sprintf("# %s\n", item.File))
		if item.Error != "" {
			output.WriteString(fmt.Sprintf("Error (%s): %s\n", title.String(strings.ReplaceAll(item.ErrorCode, "_", " ")), item.Error))
			continue
		}
		output.WriteString(fmt.Sprintf("Format: %s\n", item.Format))
		output.WriteString(fmt.Sprintf("Size: %dx%d\n", item.Width, item.Height))
		output.WriteString(fmt.Sprintf("Bytes: %d -> %d (%d%%)\n", item.InputSize, item.OutputSize, item.Reduction))
		if item.Downscaled {
			output.WriteString("Downscaled: yes\n")
		}
		if item.Output != "" {
			output.WriteString(fmt.Sprintf("Output: %s\n", item.Output))
		}
	}
	return output.String(), nil
}
