// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fill

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/nateginn/chiron/pkg/types"
)

// RuleInput carries everything a fill rule may draw on: the raw
// transcript and the extracted keywords grouped by label.
type RuleInput struct {
	Transcript string
	Buckets    map[types.KeywordLabel][]string
}

// Rule produces replacement text for one placeholder token. The boolean
// reports whether the rule applied; chained rules fall through to the
// next on false.
type Rule interface {
	Apply(in RuleInput) (string, bool)
}

// RuleFunc adapts a function to the Rule interface.
type RuleFunc func(in RuleInput) (string, bool)

// Apply implements Rule.
func (f RuleFunc) Apply(in RuleInput) (string, bool) { return f(in) }

// bucket applies format to the named keyword bucket when it is non-empty.
func bucket(label types.KeywordLabel, format func([]string) string) Rule {
	return RuleFunc(func(in RuleInput) (string, bool) {
		items := in.Buckets[label]
		if len(items) == 0 {
			return "", false
		}
		return format(items), true
	})
}

// search returns the first capture group of pattern found in the
// transcript, trimmed.
func search(pattern string) Rule {
	re := regexp.MustCompile(pattern)
	return RuleFunc(func(in RuleInput) (string, bool) {
		m := re.FindStringSubmatch(in.Transcript)
		if m == nil {
			return "", false
		}
		text := strings.TrimSpace(m[1])
		return text, text != ""
	})
}

// literal always applies, yielding a fixed default string.
func literal(s string) Rule {
	return RuleFunc(func(RuleInput) (string, bool) { return s, true })
}

// first chains rules: the first one that applies wins.
func first(rules ...Rule) Rule {
	return RuleFunc(func(in RuleInput) (string, bool) {
		for _, r := range rules {
			if text, ok := r.Apply(in); ok {
				return text, true
			}
		}
		return "", false
	})
}

// joinList formats items per English list conventions: one item verbatim,
// "A and B" for two, "A, B, and C" for three or more.
func joinList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	}
	return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
}

// numberedList formats a single item verbatim, or numbers each item on
// its own line.
func numberedList(items []string) string {
	if len(items) == 1 {
		return items[0]
	}
	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(strconv.Itoa(i+1) + ". " + item)
	}
	return b.String()
}

// testsPerformed formats the TEST bucket as a performed-tests sentence.
func testsPerformed(items []string) string {
	if len(items) == 1 {
		return items[0] + " was performed"
	}
	return joinList(items) + " were performed"
}

// findingsText correlates anatomy terms with problem terms: an anatomy
// term whose co-occurring problem appears as a whole word in the
// transcript reads "<anatomy> shows <problem>", otherwise
// "<anatomy> appears normal". With no anatomy terms at all the problems
// are listed as evidence, and with neither the findings are negative.
func findingsText(in RuleInput) (string, bool) {
	anatomy := in.Buckets[types.LabelAnatomy]
	problems := in.Buckets[types.LabelProblem]

	if len(anatomy) == 0 && len(problems) == 0 {
		return "no significant findings", true
	}

	var findings []string
	for _, part := range anatomy {
		matched := false
		for _, problem := range problems {
			re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(problem) + `\b`)
			if re.MatchString(in.Transcript) {
				findings = append(findings, part+" shows "+problem)
				matched = true
			}
		}
		if !matched && part != "" {
			findings = append(findings, part+" appears normal")
		}
	}

	if len(findings) == 0 {
		if len(problems) > 0 {
			return "evidence of " + strings.Join(problems, ", "), true
		}
		return "no significant findings", true
	}
	return strings.Join(findings, "; "), true
}

// vitalTokens matches individual vital-sign readings when no "vital
// signs" block exists.
var (
	bpRe   = regexp.MustCompile(`(?i)(?:blood pressure|bp):? (\d+/\d+)`)
	hrRe   = regexp.MustCompile(`(?i)(?:heart rate|pulse|hr):? (\d+)`)
	tempRe = regexp.MustCompile(`(?i)(?:temperature|temp):? (\d+\.?\d*)`)
)

func vitalTokens(in RuleInput) (string, bool) {
	var vitals []string
	if m := bpRe.FindStringSubmatch(in.Transcript); m != nil {
		vitals = append(vitals, "BP "+m[1])
	}
	if m := hrRe.FindStringSubmatch(in.Transcript); m != nil {
		vitals = append(vitals, "HR "+m[1])
	}
	if m := tempRe.FindStringSubmatch(in.Transcript); m != nil {
		vitals = append(vitals, "Temp "+m[1]+"°F")
	}
	if len(vitals) == 0 {
		return "", false
	}
	return strings.Join(vitals, ", "), true
}

// fillRules is the closed placeholder vocabulary and its substitution
// rules, applied in this order to every template section.
var fillRules = []struct {
	Token string
	Rule  Rule
}{
	{"[SYMPTOMS]", first(
		bucket(types.LabelProblem, joinList),
		search(`(?i)(?:complain(?:s|ing|ed) of|(?:has|having|had) (?:a|an)|suffering from|experiencing) ([^.]*)`),
		literal("unspecified symptoms"),
	)},
	{"[HISTORY]", first(
		search(`(?i)(?:past medical history|pmh):? ([^.]*)`),
		search(`(?i)(?:history of|previously had|has had) ([^.]*)`),
		search(`(?i)(?:patient reports|patient states|patient notes) ([^.]*)`),
		literal("no significant past medical history"),
	)},
	{"[FINDINGS]", RuleFunc(findingsText)},
	{"[DIAGNOSIS]", first(
		bucket(types.LabelProblem, numberedList),
		search(`(?i)(?:diagnos(?:is|ed|e) (?:of|as|with)|impression:?|assessment:?) ([^.]*)`),
		literal("Diagnosis pending further evaluation"),
	)},
	{"[TREATMENT]", first(
		bucket(types.LabelTreatment, joinList),
		search(`(?i)(?:recommend(?:ed|ing)?|prescrib(?:ed|ing)?|start(?:ed|ing)?|plan:?) ([^.]*)`),
		literal("Supportive care and symptomatic treatment"),
	)},
	{"[TESTS]", first(
		bucket(types.LabelTest, testsPerformed),
		literal("No additional tests performed"),
	)},
	{"[VITALS]", first(
		search(`(?i)(?:vital signs|vitals):? ([^.]*)`),
		RuleFunc(vitalTokens),
		literal("Within normal limits"),
	)},
	{"[EXAM]", first(
		search(`(?i)(?:physical exam|examination|exam findings):? ([^.]*)`),
		literal("No abnormal findings"),
	)},
	{"[MEDICATIONS]", first(
		search(`(?i)(?:medications?|prescrib(?:e|ed|ing)|recommend(?:ed|ing)?) ([^.]*)`),
		literal("No medications prescribed"),
	)},
	{"[TIMEFRAME]", literal("2 weeks")},
	{"[ROM]", literal("within normal limits")},
	{"[NEURO_EXAM]", literal("Neurological examination is unremarkable")},
	{"[LUNG_EXAM]", literal("Clear to auscultation bilaterally")},
	{"[O2_SAT]", literal("98")},
}
