package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/the-glossary-must-flow/internal/engine"
	"github.com/Veraticus/the-glossary-must-flow/internal/model"
	"github.com/mattn/go-runewidth"
	"github.com/schollz/progressbar/v3"
)

// Reporter renders engine progress as a progress bar and prints the final
// summary.
type Reporter struct {
	writer io.Writer
	bar    *progressbar.ProgressBar
	logger *slog.Logger
	total  int
	mu     sync.Mutex
}

// NewReporter creates a reporter writing to writer.
func NewReporter(writer io.Writer, logger *slog.Logger) *Reporter {
	if writer == nil {
		writer = os.Stderr
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{writer: writer, logger: logger}
}

// Listener returns the engine listener that drives the reporter.
func (r *Reporter) Listener() engine.Listener {
	return engine.Listener{
		OnProgress: r.progress,
		OnError: func(err error) {
			r.logger.Warn("Run reported an error", "error", err)
		},
	}
}

func (r *Reporter) initBar(total int) {
	r.total = total
	r.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(r.writer),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionSetDescription("[cyan][bold]Extracting terms...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

func (r *Reporter) progress(state model.RunState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.bar == nil || r.total != state.TotalLineCount {
		r.initBar(state.TotalLineCount)
	}
	r.bar.Describe(fmt.Sprintf("[cyan][bold]Round %d[reset]", state.Round+1))
	if err := r.bar.Set(state.ProcessedLineCount); err != nil {
		r.logger.Warn("Failed to update progress bar", "error", err)
	}
}

// Finish closes the bar and prints the run summary.
func (r *Reporter) Finish(res engine.Result, output string) {
	r.mu.Lock()
	if r.bar != nil {
		if err := r.bar.Finish(); err != nil {
			r.logger.Warn("Failed to finish progress bar", "error", err)
		}
		r.bar = nil
	}
	r.mu.Unlock()

	if _, err := fmt.Fprintln(r.writer, "\n"+Summary(res, output)); err != nil {
		r.logger.Warn("Failed to write summary", "error", err)
	}
}

// Summary renders a boxed report of a finished run.
func Summary(res engine.Result, output string) string {
	s := res.State
	elapsed := time.Duration(s.ElapsedSeconds * float64(time.Second)).Round(time.Second)

	var b strings.Builder
	fmt.Fprintf(&b, "%s Statistics:\n", ChartIcon)
	fmt.Fprintf(&b, "  • Lines processed: %d / %d\n", s.ProcessedLineCount, s.TotalLineCount)
	fmt.Fprintf(&b, "  • Excluded: %d by rule, %d by language, %d duplicates\n",
		res.Filter.RuleExcluded, res.Filter.LanguageExcluded, res.Filter.Duplicated)
	fmt.Fprintf(&b, "  • Rounds: %d\n", s.Round)
	fmt.Fprintf(&b, "  • Tokens: %d in / %d out %s\n", s.TotalInputTokens, s.TotalOutputTokens, RobotIcon)
	fmt.Fprintf(&b, "  • Time taken: %s\n", elapsed)
	fmt.Fprintf(&b, "  • Glossary entries: %d\n", len(res.Glossary))
	if output != "" {
		fmt.Fprintf(&b, "  • Written to: %s\n", output)
	}

	var status string
	switch res.Outcome {
	case model.OutcomeDone:
		status = FormatSuccess("Extraction complete")
	case model.OutcomeStopped:
		status = FormatWarning("Extraction stopped. Resume with: glossa extract --resume")
	default:
		status = FormatError(fmt.Sprintf("Round budget spent with %d lines left", len(res.Remaining)))
	}
	b.WriteString("\n" + status)
	if res.Outcome == model.OutcomeFailed {
		writeRemaining(&b, res.Remaining)
	}

	return RenderBox("Run "+shortID(s.RunID), b.String())
}

// Remaining-item listing limits.
const (
	maxRemainingShown = 10
	remainingWidth    = 40
)

func writeRemaining(b *strings.Builder, items []model.TextItem) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s Unprocessed lines:\n", WarningIcon)
	for i, item := range items {
		if i == maxRemainingShown {
			fmt.Fprintf(b, "  … and %d more\n", len(items)-maxRemainingShown)
			break
		}
		fmt.Fprintf(b, "  • %s #%d %s\n", item.FilePath, item.ID,
			runewidth.Truncate(item.SourceText, remainingWidth, "…"))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
