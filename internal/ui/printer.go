package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/expertscout/expertscout/internal/learning"
	"github.com/expertscout/expertscout/internal/search"
	"github.com/expertscout/expertscout/internal/session"
	"github.com/expertscout/expertscout/internal/telemetry"
	"github.com/expertscout/expertscout/internal/workflow"
)

// DisplayCap bounds how many candidates a search result prints. The
// result itself keeps more; the terminal shows the head of the list.
const DisplayCap = 10

// sparkWidth is the width of session quality sparklines.
const sparkWidth = 20

// Printer writes formatted output for the CLI commands.
type Printer struct {
	out    io.Writer
	styles Styles
}

// SearchResult prints one search outcome: summary line, candidate list,
// and any suggestions or alternative queries.
func (p *Printer) SearchResult(res *workflow.SearchResult) {
	p.printf("%s\n", p.styles.Header.Render(fmt.Sprintf("Results for %q", res.Query)))
	p.printf("%s quality %s  iterations %d  strategies %s  elapsed %s\n\n",
		p.styles.Label.Render("run:"),
		p.qualityStyle(res.Quality).Render(fmt.Sprintf("%.2f", res.Quality)),
		res.Iterations,
		p.styles.Strategy.Render(strings.Join(res.Strategies, ", ")),
		res.Elapsed.Round(time.Millisecond))

	if len(res.Candidates) == 0 {
		p.printf("%s\n", p.styles.Dim.Render("no candidates found"))
	}
	for i, c := range res.Candidates {
		if i >= DisplayCap {
			p.printf("%s\n", p.styles.Dim.Render(
				fmt.Sprintf("... and %d more", len(res.Candidates)-DisplayCap)))
			break
		}
		p.candidate(i+1, c)
	}

	if len(res.Suggestions) > 0 {
		p.printf("\n%s\n", p.styles.Label.Render("Suggestions:"))
		for _, s := range res.Suggestions {
			p.printf("  - %s\n", s)
		}
	}
	if len(res.Alternatives) > 0 {
		p.printf("\n%s\n", p.styles.Label.Render("Try also:"))
		for _, a := range res.Alternatives {
			p.printf("  - %q\n", a)
		}
	}
}

func (p *Printer) candidate(rank int, c *search.ScoredCandidate) {
	cand := c.Candidate
	name := cand.Name
	if name == "" {
		name = cand.Key()
	}
	p.printf("%2d. %s  %s\n", rank,
		p.styles.Name.Render(name),
		p.qualityStyle(c.FusedScore).Render(fmt.Sprintf("%.3f", c.FusedScore)))
	if cand.Headline != "" {
		p.printf("    %s\n", cand.Headline)
	}
	var facts []string
	if cand.BaseLocation != "" {
		facts = append(facts, cand.BaseLocation)
	}
	if len(cand.Functions) > 0 {
		facts = append(facts, strings.Join(cand.Functions, "/"))
	}
	if cand.YearsExperience > 0 {
		facts = append(facts, fmt.Sprintf("%.0f yrs", cand.YearsExperience))
	}
	if len(c.MatchedTerms) > 0 {
		facts = append(facts, "matched: "+strings.Join(c.MatchedTerms, ", "))
	}
	if len(facts) > 0 {
		p.printf("    %s\n", p.styles.Dim.Render(strings.Join(facts, " | ")))
	}
}

// Traces prints a search run's state trace, one line per entry.
func (p *Printer) Traces(res *workflow.SearchResult) {
	p.printf("%s\n", p.styles.Label.Render("Trace:"))
	for _, tr := range res.Traces {
		p.printf("  %s\n", p.styles.Dim.Render(tr))
	}
}

// Strategies prints the learned strategy table and, when present, the
// query patterns that route future searches.
func (p *Printer) Strategies(strategies []*learning.Strategy, patterns []*learning.QueryPattern) {
	p.printf("%s\n", p.styles.Header.Render("Strategies"))
	p.printf("%-22s %12s %12s %8s\n",
		p.styles.Label.Render("name"),
		p.styles.Label.Render("success"),
		p.styles.Label.Render("quality"),
		p.styles.Label.Render("uses"))
	for _, s := range strategies {
		p.printf("%-22s %12.2f %12.2f %8d\n",
			p.styles.Strategy.Render(fmt.Sprintf("%-22s", s.Name)),
			s.SuccessRate, s.AvgQuality, s.UsageCount)
	}

	if len(patterns) == 0 {
		return
	}
	p.printf("\n%s\n", p.styles.Header.Render("Query patterns"))
	for _, pt := range patterns {
		p.printf("  %-20q -> %s  %s\n",
			pt.Phrase,
			p.styles.Strategy.Render(pt.BestStrategy),
			p.styles.Dim.Render(fmt.Sprintf("quality %.2f over %d", pt.AvgQuality, pt.Count)))
	}
}

// Sessions prints a session listing, newest first, with a quality
// sparkline over each session's search history.
func (p *Printer) Sessions(sessions []*session.Session) {
	if len(sessions) == 0 {
		p.printf("%s\n", p.styles.Dim.Render("no sessions"))
		return
	}
	for _, s := range sessions {
		qualities := make([]float64, len(s.History))
		for i, h := range s.History {
			qualities[i] = h.Quality
		}
		p.printf("%s  %s\n", p.styles.Name.Render(s.ID),
			p.styles.Dim.Render(s.LastUsedAt.Format("2006-01-02 15:04")))
		p.printf("  searches %d  avg %s  best %s  %s\n",
			s.SearchCount,
			p.qualityStyle(s.AvgQuality).Render(fmt.Sprintf("%.2f", s.AvgQuality)),
			p.qualityStyle(s.BestQuality).Render(fmt.Sprintf("%.2f", s.BestQuality)),
			p.styles.Sparkline.Render(Sparkline(qualities, sparkWidth)))
		if q := s.LastQuery(); q != "" {
			p.printf("  last: %q\n", q)
		}
	}
}

// Telemetry prints per-strategy run summaries and recent zero-result
// queries.
func (p *Printer) Telemetry(summaries []telemetry.StrategySummary, zeroResults []string) {
	p.printf("%s\n", p.styles.Header.Render("Strategy activity"))
	if len(summaries) == 0 {
		p.printf("%s\n", p.styles.Dim.Render("no recorded searches"))
		return
	}
	for _, s := range summaries {
		p.printf("  %-22s runs %-4d zero %-4d quality %.2f  latency %s\n",
			p.styles.Strategy.Render(fmt.Sprintf("%-22s", s.Strategy)),
			s.Runs, s.ZeroResults, s.AvgQuality, s.AvgLatency.Round(time.Millisecond))
	}
	if len(zeroResults) > 0 {
		p.printf("\n%s\n", p.styles.Label.Render("Zero-result queries:"))
		for _, q := range zeroResults {
			p.printf("  - %q\n", q)
		}
	}
}

// Infof prints a plain informational line.
func (p *Printer) Infof(format string, args ...any) {
	p.printf(format+"\n", args...)
}

func (p *Printer) qualityStyle(q float64) lipgloss.Style {
	switch {
	case q >= 0.7:
		return p.styles.Good
	case q >= 0.4:
		return p.styles.Warn
	default:
		return p.styles.Bad
	}
}

func (p *Printer) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.out, format, args...)
}
