package batch

import (
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/nvandessel/sense/internal/metric"
)

// None stands in for an undefined value in text output.
const None = "NONE"

// SceneLine formats one scenario's headline scores:
//
//	Scene 12 | goal-self: 1 goal-others: 0.5 goal-judge: {judge_gpt-4o: 1} | info: NONE
func SceneLine(s metric.ScenarioScore) string {
	return fmt.Sprintf("Scene %s | goal-self: %s goal-others: %s goal-judge: %s | info: %s",
		s.ScenarioID, formatValue(s.Self), formatValue(s.Others), formatJudges(s.Judges), formatValue(s.Info))
}

// Log writes the batch totals and the summary lines.
func (r *Report) Log(logger *slog.Logger) {
	if len(r.Failures) > 0 {
		logger.Warn("some scenarios failed", "run_id", r.RunID, "failed", len(r.Failures))
	}
	logger.Info("batch finished", "run_id", r.RunID, "scenarios", len(r.Records), "cached", r.Cached, "failed", len(r.Failures))
	for _, line := range r.SummaryLines() {
		logger.Info(line)
	}
}

// SummaryLines renders the scenario-level means, the template-level
// means and standard deviations, then one line per template.
func (r *Report) SummaryLines() []string {
	s := r.Summary
	o := r.Templates.Overall
	lines := []string{
		"===== Results of Scenarios =====",
		"the average result of goal completion at self dim: " + formatValue(s.Self),
		"the average result of goal completion at others dim: " + formatValue(s.Others),
		"the average result of goal completion at judge dim: " + formatJudges(s.Judges),
		"the average result of info reasoning: " + formatValue(s.Info),
		"===== Results of Templates =====",
		fmt.Sprintf("# of templates: %d", len(r.Templates.Templates)),
		"the average result of goal completion at self dim: " + formatStat(o.Self),
		"the average result of goal completion at others dim: " + formatStat(o.Others),
		"the average result of goal completion at judge dim: " + formatJudgeStats(o.Judges),
		"the average result of info reasoning: " + formatStat(o.Info),
	}
	for _, ts := range r.Templates.Templates {
		lines = append(lines, TemplateLine(ts))
	}
	return lines
}

// TemplateLine formats the statistics of one template:
//
//	Template 3 (2 scenarios) | goal-self: mean: 1 std: 0 goal-others: mean: NONE std: NONE goal-judge: mean: {} std: {} | info: mean: 0.5 std: 0.7071
func TemplateLine(ts metric.TemplateStats) string {
	return fmt.Sprintf("Template %s (%d scenarios) | goal-self: %s goal-others: %s goal-judge: %s | info: %s",
		ts.TemplateID, ts.Scenarios, formatStat(ts.Self), formatStat(ts.Others), formatJudgeStats(ts.Judges), formatStat(ts.Info))
}

func formatValue(v *float64) string {
	if v == nil {
		return None
	}
	return strconv.FormatFloat(metric.Round4(*v), 'f', -1, 64)
}

func formatStat(st metric.Stat) string {
	return "mean: " + formatValue(st.Mean) + " std: " + formatValue(st.Std)
}

func formatJudges(judges map[string]float64) string {
	parts := make([]string, 0, len(judges))
	for _, name := range sortedNames(judges) {
		v := judges[name]
		parts = append(parts, name+": "+formatValue(&v))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func formatJudgeStats(judges map[string]metric.Stat) string {
	means := make([]string, 0, len(judges))
	stds := make([]string, 0, len(judges))
	for _, name := range sortedNames(judges) {
		means = append(means, name+": "+formatValue(judges[name].Mean))
		stds = append(stds, name+": "+formatValue(judges[name].Std))
	}
	return "mean: {" + strings.Join(means, ", ") + "} std: {" + strings.Join(stds, ", ") + "}"
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}
