package metric

import (
	"slices"
	"strings"

	"github.com/nvandessel/sense/internal/models"
)

// Affirmative is the token that marks a goal answer as achieved.
const Affirmative = "Yes"

// ScoreGoalAnswer scores a raw answer 1 when it contains Affirmative
// (case-sensitive), else 0.
func ScoreGoalAnswer(answer string) int {
	if strings.Contains(answer, Affirmative) {
		return 1
	}
	return 0
}

// GoalMetric reduces goal answers to goal, actor and scenario scores.
type GoalMetric struct{}

// Compute scores answers. actorOrder fixes the summation order across
// actors; actors missing from it are appended in name order. judgeNames
// must be in judge registration order, matching the order of judge answers.
func (GoalMetric) Compute(answers models.GoalAnswers, actorOrder, judgeNames []string) *models.GoalMetrics {
	out := &models.GoalMetrics{
		Actors:     make(map[string]*models.ActorGoalMetrics, len(answers)),
		JudgeNames: slices.Clone(judgeNames),
	}

	var selfs, others, avgs, majorities []float64
	perJudge := make([][]float64, len(judgeNames))
	for _, name := range ordered(answers, actorOrder) {
		am := scoreActor(answers[name], judgeNames)
		out.Actors[name] = am

		if am.Self != nil {
			selfs = append(selfs, *am.Self)
		}
		if am.Others != nil {
			others = append(others, *am.Others)
		}
		if am.JudgeAvg != nil {
			avgs = append(avgs, *am.JudgeAvg)
			majorities = append(majorities, *am.JudgeMajority)
			for j, jn := range judgeNames {
				perJudge[j] = append(perJudge[j], am.Judges[jn])
			}
		}
	}

	out.Self = meanPtr(selfs)
	out.Others = meanPtr(others)
	out.JudgeAvg = meanPtr(avgs)
	out.JudgeMajority = meanPtr(majorities)
	if out.JudgeAvg != nil {
		out.Judges = make(map[string]float64, len(judgeNames))
		for j, jn := range judgeNames {
			out.Judges[jn] = Mean(perJudge[j])
		}
	}
	return out
}

func scoreActor(goals map[string]map[models.Dimension][]string, judgeNames []string) *models.ActorGoalMetrics {
	am := &models.ActorGoalMetrics{Goals: make(map[string]*models.GoalScore, len(goals))}

	n := len(judgeNames)
	var selfs, others, avgs, majorities []float64
	perJudge := make([][]float64, n)
	for _, goal := range sortedKeys(goals) {
		gs := scoreGoal(goals[goal], n)
		am.Goals[goal] = gs

		if gs.Self != nil {
			selfs = append(selfs, *gs.Self)
		}
		if gs.Others != nil {
			others = append(others, *gs.Others)
		}
		if len(gs.Judge) == n+2 {
			for j := range n {
				perJudge[j] = append(perJudge[j], gs.Judge[j])
			}
			avgs = append(avgs, gs.Judge[n])
			majorities = append(majorities, gs.Judge[n+1])
		}
	}

	am.Self = meanPtr(selfs)
	am.Others = meanPtr(others)
	am.JudgeAvg = meanPtr(avgs)
	am.JudgeMajority = meanPtr(majorities)
	if am.JudgeAvg != nil {
		am.Judges = make(map[string]float64, n)
		for j, jn := range judgeNames {
			am.Judges[jn] = Mean(perJudge[j])
		}
	}
	return am
}

// scoreGoal scores one goal. Judge answers arrive question by question,
// each block holding one answer per judge; a judge's score is the mean
// over its answers. The trailing mean and mode are taken over every
// judge answer, so with several questions the mode is still a vote of
// binary scores.
func scoreGoal(dims map[models.Dimension][]string, judges int) *models.GoalScore {
	gs := &models.GoalScore{}
	if ans := dims[models.DimensionSelf]; len(ans) > 0 {
		gs.Self = ptr(Mean(binary(ans)))
	}
	if ans := dims[models.DimensionOthers]; len(ans) > 0 {
		gs.Others = ptr(Mean(binary(ans)))
	}
	if ans := dims[models.DimensionJudge]; len(ans) > 0 && judges > 0 {
		all := binary(ans)
		perJudge := make([][]float64, judges)
		for i, s := range all {
			perJudge[i%judges] = append(perJudge[i%judges], s)
		}
		scores := make([]float64, judges, judges+2)
		for j := range judges {
			scores[j] = Mean(perJudge[j])
		}
		gs.Judge = append(scores, Mean(all), Mode(all))
	}
	return gs
}

func binary(answers []string) []float64 {
	out := make([]float64, len(answers))
	for i, a := range answers {
		out[i] = float64(ScoreGoalAnswer(a))
	}
	return out
}

func ordered[V any](m map[string]V, order []string) []string {
	out := make([]string, 0, len(m))
	seen := make(map[string]bool, len(m))
	for _, name := range order {
		if _, ok := m[name]; ok && !seen[name] {
			out = append(out, name)
			seen[name] = true
		}
	}
	var rest []string
	for name := range m {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	slices.Sort(rest)
	return append(out, rest...)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
