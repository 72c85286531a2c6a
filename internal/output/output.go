// Package output renders command-line results.
package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/teslashibe/go-voiceorder/pkg/order"
	"github.com/teslashibe/go-voiceorder/pkg/pipeline"
)

// UI provides colored output and respects verbose mode.
type UI struct {
	Verbose bool
	Out     io.Writer
	ErrOut  io.Writer
}

// New creates a UI with default stdout/stderr writers.
func New() *UI {
	return &UI{
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	}
}

var (
	infoPrefix    = color.New(color.FgHiBlue).Sprint("i")
	successPrefix = color.New(color.FgHiGreen).Sprint("✓")
	warningPrefix = color.New(color.FgHiYellow).Sprint("⚠")
	errorPrefix   = color.New(color.FgHiRed).Sprint("✗")
	verbosePrefix = color.New(color.FgHiBlue).Sprint("  →")
	cyan          = color.New(color.FgHiCyan).SprintFunc()
	green         = color.New(color.FgHiGreen).SprintFunc()
	yellow        = color.New(color.FgHiYellow).SprintFunc()
	red           = color.New(color.FgHiRed).SprintFunc()
)

// StatusColor returns the pipeline status colored for the terminal.
func StatusColor(s pipeline.Status) string {
	switch s {
	case pipeline.StatusCompleted:
		return green(s.String())
	case pipeline.StatusFailed:
		return red(s.String())
	case pipeline.StatusIdle:
		return s.String()
	default:
		return yellow(s.String())
	}
}

func (u *UI) Info(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", infoPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Success(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", successPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Warning(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", warningPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Error(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", errorPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) VerboseLog(format string, a ...any) {
	if u.Verbose {
		fmt.Fprintf(u.Out, "%s %s\n", verbosePrefix, fmt.Sprintf(format, a...))
	}
}

// Table creates a new tablewriter configured with consistent styling.
func (u *UI) Table(headers []string) *tablewriter.Table {
	table := tablewriter.NewTable(u.Out,
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Lines:      tw.LinesNone,
				Separators: tw.SeparatorsNone,
			},
		}),
		tablewriter.WithPadding(tw.Padding{Left: "", Right: "  "}),
	)
	table.Header(headers)
	return table
}

// Run prints the outcome of a run.
func (u *UI) Run(run *pipeline.Run) {
	if run == nil {
		return
	}
	u.VerboseLog("run %s %s", run.ID, StatusColor(run.Status))
	if run.Transcript != "" {
		u.Info("you: %s", run.Transcript)
	}
	switch run.Status {
	case pipeline.StatusCompleted:
		if run.AssistantText != "" {
			u.Success("%s", cyan(run.AssistantText))
		}
	case pipeline.StatusFailed:
		if run.Failure != nil {
			u.Error("%s (%s)", run.Failure.Message, run.Failure.Kind)
		}
	}
}

// Cart prints cart lines and the total.
func (u *UI) Cart(lines []order.CartLine) {
	if len(lines) == 0 {
		u.Info("cart is empty")
		return
	}
	table := u.Table([]string{"ITEM", "OPTIONS", "QTY", "UNIT", "SUBTOTAL"})
	for _, l := range lines {
		_ = table.Append([]string{
			l.Name,
			formatChoices(l.Options),
			strconv.Itoa(l.Quantity),
			l.UnitPrice.String(),
			l.Subtotal().String(),
		})
	}
	_ = table.Render()
	fmt.Fprintf(u.Out, "%s %s\n", green("total"), order.Total(lines))
}

// Menu prints catalog items with their options.
func (u *UI) Menu(items []order.ItemDefinition) {
	if len(items) == 0 {
		u.Info("catalog is empty")
		return
	}
	table := u.Table([]string{"ITEM", "PRICE", "OPTIONS"})
	for _, item := range items {
		_ = table.Append([]string{item.Name, item.BasePrice.String(), formatOptions(item.Options)})
	}
	_ = table.Render()
}

func formatChoices(c order.Choices) string {
	var parts []string
	for _, cat := range order.Categories {
		if label, ok := c[cat]; ok {
			parts = append(parts, label)
		}
	}
	return strings.Join(parts, ", ")
}

func formatOptions(opts map[order.Category][]order.Option) string {
	cats := make([]string, 0, len(opts))
	for cat := range opts {
		cats = append(cats, string(cat))
	}
	sort.Strings(cats)

	var parts []string
	for _, cat := range cats {
		var labels []string
		for _, o := range opts[order.Category(cat)] {
			if o.PriceDelta != 0 {
				labels = append(labels, fmt.Sprintf("%s(+%s)", o.Label, o.PriceDelta))
			} else {
				labels = append(labels, o.Label)
			}
		}
		parts = append(parts, cat+": "+strings.Join(labels, "/"))
	}
	return strings.Join(parts, "; ")
}
