package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/smartfarm/advisor/internal/domain"
	"github.com/smartfarm/advisor/internal/offline"
	"gopkg.in/yaml.v3"
)

const (
	formatHuman = "human"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

type printer struct {
	format string
	out    io.Writer
	errOut io.Writer
}

func newPrinter(format string, out io.Writer, errOut io.Writer) (*printer, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case "":
		format = formatHuman
	case formatHuman, formatJSON, formatYAML:
	default:
		return nil, usageErrorf("invalid_output", "unsupported output format %q (human, json, yaml)", format)
	}
	return &printer{format: format, out: out, errOut: errOut}, nil
}

// print writes value as JSON or YAML, or calls human for the default format.
func (p *printer) print(value any, human func(w io.Writer)) error {
	switch p.format {
	case formatJSON:
		encoder := json.NewEncoder(p.out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(value)
	case formatYAML:
		generic, err := toGeneric(value)
		if err != nil {
			return err
		}
		encoded, err := yaml.Marshal(generic)
		if err != nil {
			return err
		}
		_, err = p.out.Write(encoded)
		return err
	default:
		human(p.out)
		return nil
	}
}

// toGeneric round-trips value through JSON so YAML keys follow the json tags.
func toGeneric(value any) (any, error) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(encoded, &generic); err != nil {
		return nil, err
	}
	return generic, nil
}

type cliError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Status    int    `json:"status,omitempty"`
	Details   string `json:"details,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func describeError(err error) cliError {
	var apiErr *apiError
	var usageErr *usageError
	switch {
	case errors.As(err, &apiErr):
		return cliError{
			Code:      apiErr.Code,
			Message:   apiErr.Message,
			Status:    apiErr.Status,
			Details:   apiErr.Details,
			RequestID: apiErr.RequestID,
		}
	case errors.As(err, &usageErr):
		return cliError{Code: usageErr.code, Message: usageErr.message}
	default:
		return cliError{Code: "request_failed", Message: err.Error()}
	}
}

func (p *printer) printError(err error) {
	described := describeError(err)
	if p.format != formatHuman {
		_ = p.print(map[string]cliError{"error": described}, nil)
		return
	}

	red := color.New(color.FgRed, color.Bold)
	red.Fprintf(p.errOut, "Error: %s", described.Message)
	if described.Status > 0 {
		fmt.Fprintf(p.errOut, " (%s, status %d)", described.Code, described.Status)
	}
	fmt.Fprintln(p.errOut)
	if described.Details != "" {
		fmt.Fprintf(p.errOut, "   %s\n", color.HiBlackString(described.Details))
	}
}

type queuedNotice struct {
	Queued   bool   `json:"queued"`
	ID       string `json:"id"`
	Endpoint string `json:"endpoint"`
	Reason   string `json:"reason"`
}

func (p *printer) printQueued(queued *queuedError) error {
	notice := queuedNotice{Queued: true, ID: queued.ID, Endpoint: queued.Endpoint, Reason: queued.Cause.Error()}
	return p.print(notice, func(w io.Writer) {
		color.New(color.FgYellow, color.Bold).Fprintln(w, "📥 OFFLINE: request queued")
		fmt.Fprintf(w, "   %s %s will be sent when the server is reachable (id %s)\n", "POST", notice.Endpoint, notice.ID)
		fmt.Fprintf(w, "   %s\n", color.HiBlackString("Run 'smartfarm queue flush' or 'smartfarm watch' to replay"))
	})
}

func humanHealth(health domain.HealthResponse) func(w io.Writer) {
	return func(w io.Writer) {
		color.New(color.FgGreen, color.Bold).Fprintf(w, "● %s", health.Status)
		fmt.Fprintf(w, "  %s\n", health.Timestamp)
	}
}

func humanCapabilities(caps domain.Capabilities) func(w io.Writer) {
	return func(w io.Writer) {
		cyan := color.New(color.FgCyan, color.Bold)
		cyan.Fprintf(w, "Provider: ")
		fmt.Fprintln(w, caps.Provider)
		cyan.Fprintln(w, "Languages:")
		for _, language := range caps.Languages {
			fmt.Fprintf(w, "   %s  %s\n", language.Code, language.Name)
		}
		cyan.Fprintln(w, "Activities:")
		for _, activity := range caps.Activities {
			fmt.Fprintf(w, "   %s\n", activity)
		}
	}
}

func humanAdvisory(result domain.AdvisoryResult) func(w io.Writer) {
	return func(w io.Writer) {
		green := color.New(color.FgGreen, color.Bold)
		cyan := color.New(color.FgCyan, color.Bold)
		white := color.New(color.FgWhite, color.Bold)

		fmt.Fprintln(w)
		green.Fprintln(w, "🌿 DISEASE IDENTIFIED:")
		fmt.Fprintf(w, "   %s (%d%% confidence)\n", result.Disease, result.Confidence)
		severityColor(result.Severity).Fprintf(w, "   Severity: %s\n", strings.ToUpper(string(result.Severity)))
		if result.AffectedArea != "" {
			fmt.Fprintf(w, "   Affected area: %s\n", result.AffectedArea)
		}
		for _, symptom := range result.Symptoms {
			fmt.Fprintf(w, "   • %s\n", symptom)
		}
		fmt.Fprintln(w)

		writeList(w, cyan, "💊 IMMEDIATE ACTIONS:", result.Treatment.Immediate)
		writeList(w, cyan, "🛡  PREVENTION:", result.Treatment.Preventive)
		writeList(w, cyan, "🌱 ORGANIC OPTIONS:", result.Treatment.Organic)

		fmt.Fprintf(w, "📉 Estimated loss: %s   Timeline: %s\n\n", result.EstimatedLoss, result.Timeline)

		if result.LocalizedText != "" {
			white.Fprintf(w, "📄 SUMMARY (%s):\n", result.Language)
			fmt.Fprintln(w, indent(result.LocalizedText, "   "))
			fmt.Fprintln(w)
		}
		footer(w)
	}
}

func humanChat(resp domain.ChatResponse) func(w io.Writer) {
	return func(w io.Writer) {
		fmt.Fprintln(w, resp.Response)
		if len(resp.FollowUpQuestions) > 0 {
			fmt.Fprintln(w)
			writeList(w, color.New(color.FgCyan, color.Bold), "💬 YOU COULD ALSO ASK:", resp.FollowUpQuestions)
		}
	}
}

func humanWeather(advice domain.WeatherAdvisory) func(w io.Writer) {
	return func(w io.Writer) {
		green := color.New(color.FgGreen, color.Bold)
		yellow := color.New(color.FgYellow, color.Bold)
		cyan := color.New(color.FgCyan, color.Bold)

		fmt.Fprintln(w)
		green.Fprintln(w, "🚜 RECOMMENDATION:")
		fmt.Fprintf(w, "   %s\n", advice.Recommendation)
		fmt.Fprintf(w, "   Optimal timing: %s\n\n", color.GreenString(advice.OptimalTiming))
		writeList(w, yellow, "⚠️  RISKS:", advice.Risks)
		if advice.Reasoning != "" {
			cyan.Fprintln(w, "🧭 REASONING:")
			fmt.Fprintln(w, indent(advice.Reasoning, "   "))
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "⛅ %s\n", advice.WeatherSummary)
		footer(w)
	}
}

func humanQueue(requests []offline.QueuedRequest, now time.Time) func(w io.Writer) {
	return func(w io.Writer) {
		if len(requests) == 0 {
			fmt.Fprintln(w, "Offline queue is empty")
			return
		}
		for _, request := range requests {
			age := now.Sub(time.UnixMilli(request.Timestamp)).Truncate(time.Second)
			fmt.Fprintf(w, "%s  %s %s  queued %s ago", color.CyanString(request.ID), request.Method, request.Endpoint, age)
			if request.Attempts > 0 {
				fmt.Fprintf(w, "  attempts=%d", request.Attempts)
			}
			fmt.Fprintln(w)
			if request.LastError != "" {
				fmt.Fprintf(w, "   %s\n", color.HiBlackString(request.LastError))
			}
		}
	}
}

func humanReport(report offline.Report) func(w io.Writer) {
	return func(w io.Writer) {
		fmt.Fprintf(w, "%s %d  %s %d  %s %d  skipped %d  remaining %d\n",
			color.GreenString("delivered"), len(report.Delivered),
			color.RedString("failed"), len(report.Failed),
			color.YellowString("expired"), len(report.Expired),
			report.Skipped, report.Remaining)
	}
}

func severityColor(severity domain.Severity) *color.Color {
	switch severity {
	case domain.SeveritySevere:
		return color.New(color.FgRed, color.Bold)
	case domain.SeverityModerate:
		return color.New(color.FgYellow)
	case domain.SeverityMild:
		return color.New(color.FgGreen)
	default:
		return color.New(color.FgWhite)
	}
}

func writeList(w io.Writer, heading *color.Color, title string, items []string) {
	if len(items) == 0 {
		return
	}
	heading.Fprintln(w, title)
	for i, item := range items {
		fmt.Fprintf(w, "   %d. %s\n", i+1, item)
	}
	fmt.Fprintln(w)
}

func indent(text string, prefix string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}

func footer(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("─", 80))
	fmt.Fprintf(w, "💡 %s\n", color.HiBlackString("Run with -o json or -o yaml for machine-readable output"))
}
