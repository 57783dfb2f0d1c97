package dataset

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"

	"github.com/nvandessel/sense/internal/metric"
	"github.com/nvandessel/sense/internal/models"
)

// QuestionInstruction precedes every rendered multiple-choice question.
const QuestionInstruction = "Please answer the question and only output your choice.\n"

// RenderQuestion labels the options of q with the alphabet of style:
//
//	Please answer the question and only output your choice.
//	<question> Options: (A) first; (B) second.
//
// MarkAll picks one alphabet at random from rng for the whole question.
func RenderQuestion(q models.InfoQuestion, style models.MarkStyle, rng *rand.Rand) (string, error) {
	if !style.Valid() {
		return "", &models.ConfigurationError{Field: "option_mark", Reason: fmt.Sprintf("unsupported marker style %q", style)}
	}
	alphabets := metric.Alphabets(style)
	alphabet := alphabets[0]
	if len(alphabets) > 1 {
		alphabet = alphabets[rng.IntN(len(alphabets))]
	}

	var b strings.Builder
	b.WriteString(QuestionInstruction)
	b.WriteString(q.Question)
	if len(q.Options) == 0 {
		return b.String(), nil
	}
	if len(q.Options) > len(alphabet) {
		return "", &models.ConfigurationError{
			Field:  "info_question",
			Reason: fmt.Sprintf("%d options exceed the %d labels of marker style %q", len(q.Options), len(alphabet), style),
		}
	}

	b.WriteString(" Options: ")
	for i, opt := range q.Options {
		fmt.Fprintf(&b, "(%c) %s", alphabet[i], opt)
		if i == len(q.Options)-1 {
			b.WriteByte('.')
		} else {
			b.WriteString("; ")
		}
	}
	return b.String(), nil
}

// placeholder matches $$, $name and ${name}.
var placeholder = regexp.MustCompile(`\$(?:(\$)|([_a-zA-Z][_a-zA-Z0-9]*)|\{([_a-zA-Z][_a-zA-Z0-9]*)\})`)

// FillTemplate substitutes $name and ${name} placeholders from vars. "$$"
// yields a literal "$". Placeholders without a value are left as written.
func FillTemplate(tpl string, vars map[string]string) string {
	return placeholder.ReplaceAllStringFunc(tpl, func(m string) string {
		sub := placeholder.FindStringSubmatch(m)
		if sub[1] != "" {
			return "$"
		}
		name := sub[2]
		if name == "" {
			name = sub[3]
		}
		if v, ok := vars[name]; ok {
			return v
		}
		return m
	})
}

// PersonaVars are the values available to a participant prompt template.
type PersonaVars struct {
	Name        string
	Profile     string
	SocialGoals []string
	PrivateInfo string
	Background  string
	Description string
}

// Map returns the template variables. Goals are joined by spaces and an
// empty private info becomes "N/A".
func (v PersonaVars) Map() map[string]string {
	info := v.PrivateInfo
	if info == "" {
		info = "N/A"
	}
	return map[string]string{
		"name":         v.Name,
		"profile":      v.Profile,
		"social_goal":  strings.Join(v.SocialGoals, " "),
		"private_info": info,
		"background":   v.Background,
		"desc":         v.Description,
	}
}
