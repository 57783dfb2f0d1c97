package metric

import (
	"slices"

	"github.com/nvandessel/sense/internal/models"
)

// ScenarioScore is the headline score of one finished scenario.
// Nil fields mean the scenario had no such dimension.
type ScenarioScore struct {
	ScenarioID string             `json:"scene_id"`
	TemplateID string             `json:"template_id,omitempty"`
	Self       *float64           `json:"self,omitempty"`
	Others     *float64           `json:"others,omitempty"`
	Judges     map[string]float64 `json:"judges,omitempty"`
	Info       *float64           `json:"info,omitempty"`
}

// ScoreOf extracts the headline score of a record.
func ScoreOf(rec *models.ScoreRecord) ScenarioScore {
	s := ScenarioScore{ScenarioID: rec.ScenarioID.String(), TemplateID: rec.TemplateID}
	if gm := rec.GoalMetrics; gm != nil {
		s.Self = gm.Self
		s.Others = gm.Others
		s.Judges = gm.Judges
	}
	if rec.InfoMetrics != nil {
		s.Info = ptr(rec.InfoMetrics.Avg)
	}
	return s
}

// Stat is a mean and sample standard deviation. Nil means undefined.
type Stat struct {
	Mean *float64 `json:"mean"`
	Std  *float64 `json:"std"`
}

func statOf(xs []float64) Stat {
	st := Stat{Mean: meanPtr(xs)}
	if std, ok := SampleStd(xs); ok {
		st.Std = &std
	}
	return st
}

// TemplateStats aggregates the scenarios generated from one template.
type TemplateStats struct {
	TemplateID string          `json:"template_id"`
	Scenarios  int             `json:"scenarios"`
	Self       Stat            `json:"self"`
	Others     Stat            `json:"others"`
	Judges     map[string]Stat `json:"judges,omitempty"`
	Info       Stat            `json:"info"`
}

// TemplateReport is the template-level view of a batch: one entry per
// template, and the means of the defined template means and deviations.
type TemplateReport struct {
	Templates []TemplateStats `json:"templates"`
	Overall   TemplateStats   `json:"overall"`
}

// Summary holds scenario-level means over a batch.
type Summary struct {
	Scenarios int                `json:"scenarios"`
	Self      *float64           `json:"self,omitempty"`
	Others    *float64           `json:"others,omitempty"`
	Judges    map[string]float64 `json:"judges,omitempty"`
	Info      *float64           `json:"info,omitempty"`
}

// Summarize averages each dimension over the scenarios that have it.
func Summarize(scores []ScenarioScore) Summary {
	c := collect(scores)
	sum := Summary{
		Scenarios: len(scores),
		Self:      meanPtr(c.self),
		Others:    meanPtr(c.others),
		Info:      meanPtr(c.info),
	}
	if len(c.judgeOrder) > 0 {
		sum.Judges = make(map[string]float64, len(c.judgeOrder))
		for _, j := range c.judgeOrder {
			sum.Judges[j] = Mean(c.judges[j])
		}
	}
	return sum
}

// AggregateTemplates groups scores by template. Scenarios without a
// template id form a group of their own. Scenarios without info
// questions are left out of the info statistics.
func AggregateTemplates(scores []ScenarioScore) TemplateReport {
	groups := make(map[string][]ScenarioScore)
	for _, s := range scores {
		key := s.TemplateID
		if key == "" {
			key = s.ScenarioID
		}
		groups[key] = append(groups[key], s)
	}

	var rep TemplateReport
	var selfM, selfS, othersM, othersS, infoM, infoS []float64
	judgeM := make(map[string][]float64)
	judgeS := make(map[string][]float64)
	var judgeOrder []string

	for _, id := range sortedKeys(groups) {
		c := collect(groups[id])
		ts := TemplateStats{
			TemplateID: id,
			Scenarios:  len(groups[id]),
			Self:       statOf(c.self),
			Others:     statOf(c.others),
			Info:       statOf(c.info),
		}
		if len(c.judgeOrder) > 0 {
			ts.Judges = make(map[string]Stat, len(c.judgeOrder))
			for _, j := range c.judgeOrder {
				st := statOf(c.judges[j])
				ts.Judges[j] = st
				if !slices.Contains(judgeOrder, j) {
					judgeOrder = append(judgeOrder, j)
				}
				appendStat(st, judgeM, judgeS, j)
			}
		}
		rep.Templates = append(rep.Templates, ts)

		selfM, selfS = appendDefined(ts.Self, selfM, selfS)
		othersM, othersS = appendDefined(ts.Others, othersM, othersS)
		infoM, infoS = appendDefined(ts.Info, infoM, infoS)
	}

	rep.Overall = TemplateStats{
		TemplateID: "overall",
		Scenarios:  len(scores),
		Self:       Stat{Mean: meanPtr(selfM), Std: meanPtr(selfS)},
		Others:     Stat{Mean: meanPtr(othersM), Std: meanPtr(othersS)},
		Info:       Stat{Mean: meanPtr(infoM), Std: meanPtr(infoS)},
	}
	if len(judgeOrder) > 0 {
		rep.Overall.Judges = make(map[string]Stat, len(judgeOrder))
		for _, j := range judgeOrder {
			rep.Overall.Judges[j] = Stat{Mean: meanPtr(judgeM[j]), Std: meanPtr(judgeS[j])}
		}
	}
	return rep
}

func appendDefined(st Stat, means, stds []float64) ([]float64, []float64) {
	if st.Mean != nil {
		means = append(means, *st.Mean)
	}
	if st.Std != nil {
		stds = append(stds, *st.Std)
	}
	return means, stds
}

func appendStat(st Stat, means, stds map[string][]float64, key string) {
	means[key], stds[key] = appendDefined(st, means[key], stds[key])
}

type collected struct {
	self, others, info []float64
	judges             map[string][]float64
	judgeOrder         []string
}

func collect(scores []ScenarioScore) collected {
	c := collected{judges: make(map[string][]float64)}
	for _, s := range scores {
		if s.Self != nil {
			c.self = append(c.self, *s.Self)
		}
		if s.Others != nil {
			c.others = append(c.others, *s.Others)
		}
		if s.Info != nil {
			c.info = append(c.info, *s.Info)
		}
		for _, j := range sortedKeys(s.Judges) {
			if _, seen := c.judges[j]; !seen {
				c.judgeOrder = append(c.judgeOrder, j)
			}
			c.judges[j] = append(c.judges[j], s.Judges[j])
		}
	}
	return c
}
