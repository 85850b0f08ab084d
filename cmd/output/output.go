// Package output provides functions to print messages with optional color formatting
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/oar-cd/berth/domain"
)

const (
	Plain   = color.FgWhite
	Success = color.FgGreen
	Warning = color.FgYellow
	Error   = color.FgRed
)

const timeFormat = "2006-01-02 15:04:05"

var maybeColorize func(kind color.Attribute, tmpl string, a ...any) string

// InitColors sets up color functions based on environment
func InitColors(isColorDisabled bool) {
	if color.NoColor || isColorDisabled {
		maybeColorize = func(kind color.Attribute, tmpl string, a ...any) string {
			return fmt.Sprintf(tmpl, a...)
		}
	} else {
		maybeColorize = func(kind color.Attribute, tmpl string, a ...any) string {
			return color.New(kind).SprintfFunc()(tmpl, a...)
		}
	}
}

// PrintMessage formats a message with color (if enabled) and a trailing newline
func PrintMessage(kind color.Attribute, tmpl string, a ...any) string {
	if maybeColorize == nil || kind == Plain {
		return fmt.Sprintf(tmpl+"\n", a...)
	}
	return fmt.Sprintln(maybeColorize(kind, tmpl, a...))
}

// Fprint writes a formatted message of the given kind to w.
func Fprint(w io.Writer, kind color.Attribute, tmpl string, a ...any) error {
	if w == nil {
		return nil
	}
	_, err := fmt.Fprint(w, PrintMessage(kind, tmpl, a...))
	return err
}

func FprintPlain(cmd *cobra.Command, tmpl string, a ...any) error {
	return Fprint(cmd.OutOrStdout(), Plain, tmpl, a...)
}

func FprintSuccess(cmd *cobra.Command, tmpl string, a ...any) error {
	return Fprint(cmd.OutOrStdout(), Success, tmpl, a...)
}

func FprintWarning(cmd *cobra.Command, tmpl string, a ...any) error {
	return Fprint(cmd.OutOrStdout(), Warning, tmpl, a...)
}

func FprintError(cmd *cobra.Command, tmpl string, a ...any) error {
	return Fprint(cmd.ErrOrStderr(), Error, tmpl, a...)
}

func PrintTable(header []string, data [][]string) (string, error) {
	buf := strings.Builder{}

	table := tablewriter.NewTable(
		&buf,
		tablewriter.WithRenderer(renderer.NewBlueprint(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Lines: tw.Lines{
					ShowHeaderLine: tw.Off,
				},
				Separators: tw.Separators{
					BetweenColumns: tw.Off,
				},
			},
		})),
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Alignment: tw.CellAlignment{PerColumn: []tw.Align{tw.AlignRight, tw.AlignLeft}},
			},
		}))

	if len(header) > 0 {
		table.Header(header)
	}

	if err := table.Bulk(data); err != nil {
		return "", fmt.Errorf("bulk adding data to table: %w", err)
	}

	if err := table.Render(); err != nil {
		return "", fmt.Errorf("rendering table: %w", err)
	}

	return buf.String(), nil
}

// PrintRunDetails renders one journaled run followed by its stages.
func PrintRunDetails(run *domain.Run) (string, error) {
	finished := "-"
	if !run.FinishedAt.IsZero() {
		finished = run.FinishedAt.Format(timeFormat)
	}
	data := [][]string{
		{"ID", run.ID.String()},
		{"Service", run.ServiceName},
		{"Commit", formatCommitDetails(run.Commit)},
		{"Outcome", run.Outcome.String()},
		{"Started At", run.StartedAt.Format(timeFormat)},
		{"Finished At", finished},
		{"Duration", formatDuration(run.Duration())},
	}
	if run.Error != "" {
		data = append(data, []string{"Error", run.Error})
	}

	details, err := PrintTable([]string{}, data)
	if err != nil {
		return "", fmt.Errorf("printing run details table: %w", err)
	}

	if len(run.Stages) == 0 {
		return details + "\n" + PrintMessage(Plain, "No stages recorded."), nil
	}

	stages, err := PrintStageList(run.Stages)
	if err != nil {
		return "", err
	}
	return details + "\n" + stages, nil
}

func PrintRunList(runs []*domain.Run) (string, error) {
	if len(runs) == 0 {
		return PrintMessage(Plain, "No runs recorded."), nil
	}

	header := []string{"ID", "Commit", "Outcome", "Started At", "Duration", "Error"}
	var data [][]string
	for _, run := range runs {
		data = append(data, []string{
			run.ID.String(),
			formatCommitHash(run.Commit),
			run.Outcome.String(),
			run.StartedAt.Format(timeFormat),
			formatDuration(run.Duration()),
			truncateString(run.Error, 40),
		})
	}

	table, err := PrintTable(header, data)
	if err != nil {
		return "", fmt.Errorf("printing run list table: %w", err)
	}
	return table, nil
}

func PrintStageList(stages []domain.StageRecord) (string, error) {
	header := []string{"#", "Stage", "Status", "Duration", "Message"}
	var data [][]string
	for _, stage := range stages {
		data = append(data, []string{
			fmt.Sprintf("%d", stage.Position),
			stage.Name,
			stage.Status.String(),
			formatDuration(stage.Duration),
			truncateString(stage.Message, 60),
		})
	}

	table, err := PrintTable(header, data)
	if err != nil {
		return "", fmt.Errorf("printing stage list table: %w", err)
	}
	return table, nil
}

// PrintKeyValues renders key/value pairs, masking the values of keys flagged as sensitive.
func PrintKeyValues(pairs [][2]string, sensitive func(key string) bool) (string, error) {
	data := make([][]string, 0, len(pairs))
	for _, kv := range pairs {
		value := kv[1]
		if sensitive != nil && sensitive(kv[0]) {
			value = maskSensitiveValue(value)
		}
		data = append(data, []string{kv[0], value})
	}
	return PrintTable([]string{}, data)
}

func maskSensitiveValue(value string) string {
	switch {
	case value == "":
		return "(not set)"
	case len(value) <= 2:
		return strings.Repeat("*", len(value))
	case len(value) <= 8:
		return value[:1] + strings.Repeat("*", len(value)-2) + value[len(value)-1:]
	default:
		return value[:3] + strings.Repeat("*", len(value)-6) + value[len(value)-3:]
	}
}

func formatCommitDetails(commit string) string {
	if commit == "" {
		return "(no commits)"
	}
	if len(commit) <= 8 {
		return commit
	}
	return fmt.Sprintf("%s (%s)", commit[:8], commit)
}

func formatCommitHash(commit string) string {
	if commit == "" {
		return "-"
	}
	if len(commit) <= 8 {
		return commit
	}
	return commit[:8]
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Millisecond).String()
}

func truncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return strings.Repeat(".", maxLength)
	}
	return s[:maxLength-3] + "..."
}

// CLI flag for disabling color output

// NoColor is a flag that can be used to disable colored output in the CLI.
var NoColor = &noColorFlag{set: false}

type noColorFlag struct {
	set bool
}

func (f *noColorFlag) Set(value string) error {
	// This is a boolean flag, so we ignore the value and just mark it as set
	f.set = true
	return nil
}

func (f *noColorFlag) String() string {
	if f.set {
		return "true"
	}
	return "false"
}

func (f *noColorFlag) Type() string {
	return "bool"
}

// IsSet returns true if the --no-color flag was explicitly set
func (f *noColorFlag) IsSet() bool {
	return f.set
}

// IsBoolFlag tells pflag this is a boolean flag (no argument required)
func (f *noColorFlag) IsBoolFlag() bool {
	return true
}
