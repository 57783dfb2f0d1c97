package metric

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nvandessel/sense/internal/models"
)

// Option alphabets. Index i of each labels option i.
const (
	UpperAlphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	LowerAlphabet  = "abcdefghijklmnopqrstuvwxyz"
	NumberAlphabet = "123456789"
)

// Alphabets returns the alphabets allowed for style.
func Alphabets(style models.MarkStyle) []string {
	switch style {
	case models.MarkUpper:
		return []string{UpperAlphabet}
	case models.MarkLower:
		return []string{LowerAlphabet}
	case models.MarkNumber:
		return []string{NumberAlphabet}
	default:
		return []string{LowerAlphabet, UpperAlphabet, NumberAlphabet}
	}
}

var markClass = map[models.MarkStyle]string{
	models.MarkAll:    `1-9A-Za-z`,
	models.MarkUpper:  `A-Z`,
	models.MarkLower:  `a-z`,
	models.MarkNumber: `1-9`,
}

// ChoiceResult is the outcome of matching one multiple-choice answer.
// A MatchFormatError result has no predicted option and scores 0.
type ChoiceResult struct {
	Kind      models.MatchKind
	Predicted *int
	Correct   bool
}

// Score returns 1 for a correct answer, else 0.
func (r ChoiceResult) Score() float64 {
	if r.Correct {
		return 1
	}
	return 0
}

// ChoiceMetric matches free-text answers against labelled options.
type ChoiceMetric struct {
	style  models.MarkStyle
	marker *regexp.Regexp
	prefix *regexp.Regexp
	index  map[rune]int
}

// NewChoiceMetric builds the matcher for style.
func NewChoiceMetric(style models.MarkStyle) (*ChoiceMetric, error) {
	if !style.Valid() {
		return nil, &models.ConfigurationError{
			Field:  "option_mark",
			Reason: fmt.Sprintf("unsupported marker style %q (valid: all, upper, lower, number)", style),
		}
	}
	class := markClass[style]
	m := &ChoiceMetric{
		style:  style,
		marker: regexp.MustCompile(`\(([` + class + `])\)`),
		prefix: regexp.MustCompile(`^[` + class + `][.)]`),
		index:  make(map[rune]int),
	}
	for _, ab := range Alphabets(style) {
		for i, r := range ab {
			m.index[r] = i
		}
	}
	return m, nil
}

// Judge resolves prediction to an option index and compares it with
// answer. Rules, first match wins:
//  1. a bracketed marker such as "(B)"; the first marker counts
//  2. a lone option character, optionally followed by "."
//  3. option text: equal to the answer, the only option contained in
//     the answer, or the only option containing the answer
//
// Anything else is a format error.
func (m *ChoiceMetric) Judge(prediction string, answer int, options []string) ChoiceResult {
	p := strings.TrimSpace(prediction)

	if sm := m.marker.FindStringSubmatch(p); sm != nil {
		return m.result(models.MatchMarker, m.index[rune(sm[1][0])], answer)
	}

	if r := []rune(p); len(r) == 1 || (len(r) == 2 && r[1] == '.') {
		if idx, ok := m.index[r[0]]; ok {
			return m.result(models.MatchSingle, idx, answer)
		}
		return ChoiceResult{Kind: models.MatchFormatError}
	}

	if idx, ok := m.matchOption(p, options); ok {
		return m.result(models.MatchOption, idx, answer)
	}
	return ChoiceResult{Kind: models.MatchFormatError}
}

func (m *ChoiceMetric) result(kind models.MatchKind, idx, answer int) ChoiceResult {
	return ChoiceResult{Kind: kind, Predicted: &idx, Correct: idx == answer}
}

func (m *ChoiceMetric) matchOption(p string, options []string) (int, bool) {
	if p == "" || len(options) == 0 {
		return 0, false
	}
	if loc := m.prefix.FindStringIndex(p); loc != nil && len(p) > loc[1] {
		p = strings.TrimSpace(p[loc[1]:])
	}

	for i, opt := range options {
		if opt == "" {
			continue
		}
		if opt == p {
			return i, true
		}
		if strings.Contains(p, opt) && !anyOther(options, i, func(o string) bool { return strings.Contains(p, o) }) {
			return i, true
		}
		if strings.Contains(opt, p) && !anyOther(options, i, func(o string) bool { return strings.Contains(o, p) }) {
			return i, true
		}
	}
	return 0, false
}

func anyOther(options []string, skip int, pred func(string) bool) bool {
	for i, o := range options {
		if i != skip && o != "" && pred(o) {
			return true
		}
	}
	return false
}

// InfoMetric scores private-info answers.
type InfoMetric struct {
	Choice *ChoiceMetric
}

// Compute matches every answer against its question and averages
// correctness per actor, then across actors. Metrics are nil when no
// question was answered.
func (im InfoMetric) Compute(answers map[string][]string, questions map[string][]models.InfoQuestion, actorOrder []string) (map[string][]models.InfoResult, *models.InfoMetrics) {
	results := make(map[string][]models.InfoResult, len(answers))
	metrics := &models.InfoMetrics{Actors: make(map[string]float64, len(answers))}

	var actorScores []float64
	for _, name := range ordered(answers, actorOrder) {
		qs := questions[name]
		ans := answers[name]
		if len(ans) > len(qs) {
			ans = ans[:len(qs)]
		}
		if len(ans) == 0 {
			continue
		}

		res := make([]models.InfoResult, len(ans))
		scores := make([]float64, len(ans))
		for i, a := range ans {
			cr := im.Choice.Judge(a, qs[i].AnswerLabel, qs[i].Options)
			res[i] = models.InfoResult{Answer: a, Match: cr.Kind, Predicted: cr.Predicted, Correct: cr.Correct}
			scores[i] = cr.Score()
		}
		results[name] = res
		metrics.Actors[name] = Mean(scores)
		actorScores = append(actorScores, metrics.Actors[name])
	}

	if len(actorScores) == 0 {
		return results, nil
	}
	metrics.Avg = Mean(actorScores)
	return results, metrics
}
