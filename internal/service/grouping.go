package service

import (
	"github.com/jamditis/class/internal/dto"
)

// Student group names.
const (
	GroupAtRisk          = "at_risk"
	GroupHighPerformers  = "high_performers"
	GroupSolidPerformers = "solid_performers"
	GroupImproving       = "improving"
	GroupStruggling      = "struggling"
	GroupInconsistent    = "inconsistent"
)

// GroupNames lists every student group in display order.
var GroupNames = []string{GroupHighPerformers, GroupSolidPerformers, GroupImproving, GroupStruggling, GroupInconsistent, GroupAtRisk}

// GroupingThresholds tunes how students are placed into groups.
// SubmissionRate is a ratio in [0,1]; percentages and trends are in points.
type GroupingThresholds struct {
	AtRiskSubmissionRate float64
	DecliningTrend       float64
	HighPerformer        float64
	SolidPerformer       float64
	ImprovingTrend       float64
	Struggling           float64
	Variance             float64
}

// DefaultGroupingThresholds returns the stock thresholds.
func DefaultGroupingThresholds() GroupingThresholds {
	return GroupingThresholds{
		AtRiskSubmissionRate: 0.5,
		DecliningTrend:       -10,
		HighPerformer:        90,
		SolidPerformer:       80,
		ImprovingTrend:       10,
		Struggling:           70,
		Variance:             200,
	}
}

// performance is the per-student input to grouping.
type performance struct {
	Overall        float64
	Trend          float64
	Variance       float64
	SubmissionRate float64
}

type groupRule struct {
	name    string
	matches func(p performance, t GroupingThresholds) bool
}

// groupRules are evaluated in order; the first match wins.
var groupRules = []groupRule{
	{GroupAtRisk, func(p performance, t GroupingThresholds) bool { return p.SubmissionRate < t.AtRiskSubmissionRate }},
	{GroupAtRisk, func(p performance, t GroupingThresholds) bool { return p.Trend < t.DecliningTrend }},
	{GroupHighPerformers, func(p performance, t GroupingThresholds) bool { return p.Overall >= t.HighPerformer }},
	{GroupSolidPerformers, func(p performance, t GroupingThresholds) bool { return p.Overall >= t.SolidPerformer }},
	{GroupImproving, func(p performance, t GroupingThresholds) bool { return p.Trend > t.ImprovingTrend }},
	{GroupStruggling, func(p performance, t GroupingThresholds) bool { return p.Overall < t.Struggling }},
	{GroupInconsistent, func(p performance, t GroupingThresholds) bool { return p.Variance > t.Variance }},
}

func classify(p performance, t GroupingThresholds) string {
	for _, rule := range groupRules {
		if rule.matches(p, t) {
			return rule.name
		}
	}
	return GroupSolidPerformers
}

// trendOf is the mean of the last three percentages minus the mean of the first three.
func trendOf(percentages []float64) float64 {
	if len(percentages) < 3 {
		return 0
	}
	return mean(percentages[len(percentages)-3:]) - mean(percentages[:3])
}

// varianceOf is the population variance of percentages.
func varianceOf(percentages []float64) float64 {
	if len(percentages) < 2 {
		return 0
	}
	m := mean(percentages)
	total := 0.0
	for _, p := range percentages {
		total += (p - m) * (p - m)
	}
	return total / float64(len(percentages))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

func emptyGroups() dto.StudentGroupsResponse {
	groups := make(dto.StudentGroupsResponse, len(GroupNames))
	for _, name := range GroupNames {
		groups[name] = []dto.StudentGroupMember{}
	}
	return groups
}
