// Package fallback answers for the primary backend when it cannot. It keeps
// its own heuristic tables so it has no dependency on the classifiers or any
// external process.
package fallback

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"email-analyzer/internal/analysis"
	"email-analyzer/internal/common/logger"
)

const (
	Confidence = 0.65

	maxCategories = 3
	maxLabels     = 6
)

type table struct {
	name    string
	pattern *regexp.Regexp
}

func anyOf(terms ...string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(terms, "|") + `)\b`)
}

var categoryTable = []table{
	{"Work & Business", anyOf(`meetings?`, `projects?`, `budgets?`, `reports?`, `clients?`, `office`, `conference`, `deadline`, `team`)},
	{"Finance & Banking", anyOf(`bank`, `invoices?`, `payments?`, `account`, `credit`, `transactions?`, `tax`)},
	{"Personal & Family", anyOf(`family`, `birthday`, `wedding`, `friends?`, `dinner`, `weekend`)},
	{"Promotions & Marketing", anyOf(`sale`, `discount`, `offers?`, `coupon`, `unsubscribe`, `newsletter`)},
	{"Healthcare", anyOf(`doctor`, `hospital`, `medical`, `prescriptions?`, `health`, `appointment`)},
	{"Travel", anyOf(`flights?`, `hotel`, `booking`, `trip`, `travel`, `itinerary`)},
	{"Education", anyOf(`course`, `school`, `university`, `exams?`, `assignments?`, `class`)},
	{"Technology", anyOf(`software`, `servers?`, `system`, `update`, `password`, `security`, `bugs?`)},
	{"Shopping & Orders", anyOf(`orders?`, `shipping`, `delivery`, `package`, `purchase`, `receipt`)},
}

var intentTable = []table{
	{"urgent_action", anyOf(`urgent`, `asap`, `immediately`)},
	{"complaint", anyOf(`complaint`, `disappointed`, `unacceptable`, `frustrated`)},
	{"request", anyOf(`please`, `could you`, `can you`, `would you`)},
	{"scheduling", anyOf(`meeting`, `schedule`, `calendar`, `appointment`)},
	{"gratitude", anyOf(`thank`, `thanks`, `appreciate`)},
	{"inquiry", anyOf(`question`, `wondering`, `inquiry`)},
	{"follow_up", anyOf(`follow up`, `following up`, `checking in`)},
	{"confirmation", anyOf(`confirm`, `confirmed`, `confirmation`)},
	{"approval", anyOf(`approve`, `approval`)},
	{"notification", anyOf(`notice`, `notification`, `announcement`, `update`)},
}

var urgencyTable = []struct {
	level   analysis.Urgency
	pattern *regexp.Regexp
}{
	{analysis.UrgencyCritical, anyOf(`urgent`, `asap`, `emergency`, `immediately`, `critical`, `deadline today`)},
	{analysis.UrgencyHigh, anyOf(`important`, `priority`, `tomorrow`, `deadline`, `end of day`)},
	{analysis.UrgencyMedium, anyOf(`soon`, `this week`, `reminder`, `upcoming`)},
}

// entities are listed ahead of frequent words in the keywords.
var entities = []*regexp.Regexp{
	regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`),
	regexp.MustCompile(`\$\d+(?:,\d{3})*(?:\.\d{2})?`),
	regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b|\b(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]* \d{1,2}(?:st|nd|rd|th)?\b`),
	regexp.MustCompile(`\b[A-Z][a-z]+ [A-Z][a-z]+\b`),
	regexp.MustCompile(`\b[A-Z]{2,}\b`),
}

var structuralLabels = []table{
	{"Has Attachment", anyOf(`attach`, `attached`, `attachments?`, `enclosed`)},
	{"Multiple Recipients", regexp.MustCompile(`(?i)\b(?:cc|bcc)\s*:|\b(?:everyone|all of you|dear all|team)\b`)},
	{"Contains Date", regexp.MustCompile(`(?i)\b\d{1,2}/\d{1,2}/\d{2,4}\b|\b(?:monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)},
}

var (
	positive = anyOf(`thank`, `thanks`, `appreciate`, `great`, `excellent`, `happy`, `pleased`, `glad`, `wonderful`)
	negative = anyOf(`problem`, `issue`, `complaint`, `disappointed`, `angry`, `terrible`, `bad`, `wrong`, `failed`)
	tokens   = regexp.MustCompile(`[a-z]+`)
)

var stopwords = map[string]bool{
	"this": true, "that": true, "with": true, "from": true, "have": true, "will": true, "your": true,
	"about": true, "would": true, "could": true, "there": true, "their": true, "please": true, "thanks": true,
}

// Engine is the degraded-mode analyzer. Analyze never fails.
type Engine struct {
	logger  logger.Logger
	analyze func(text string) analysis.AnalysisResult
}

func New(log logger.Logger) *Engine {
	return &Engine{
		logger:  log.WithFields(map[string]interface{}{"component": "fallback"}),
		analyze: heuristics,
	}
}

// Analyze returns a bounded-confidence result marked reliable so callers can
// still act on it. If the heuristics themselves break, the zero-information
// default is returned instead, marked unreliable.
func (e *Engine) Analyze(subject, content string) (report analysis.Report) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("fallback heuristics failed", map[string]interface{}{
				"panic": fmt.Sprint(r),
			})
			def := analysis.DefaultResult()
			report = analysis.Report{
				Result: def,
				Validation: analysis.ValidationResult{
					Method:   analysis.MethodFallback,
					Score:    def.Confidence,
					Reliable: false,
					Feedback: "Fallback analysis failed, no classification available",
				},
			}
		}
	}()

	result := e.analyze(analysis.FullText(subject, content))
	return analysis.Report{
		Result: result,
		Validation: analysis.ValidationResult{
			Method:   analysis.MethodFallback,
			Score:    Confidence,
			Reliable: true,
			Feedback: "Analysis produced by fallback heuristics, primary backend unavailable",
		},
	}
}

func heuristics(text string) analysis.AnalysisResult {
	categories := categorize(text)
	intent := detectIntent(text)
	urgency := detectUrgency(text)

	flags := []analysis.RiskFlag{}
	if urgency == analysis.UrgencyCritical {
		flags = append(flags, analysis.RiskUrgentContent)
	}

	labels := suggestLabels(text, categories, intent, urgency)

	return analysis.AnalysisResult{
		Topic:           categories[0],
		Sentiment:       detectSentiment(text),
		Intent:          intent,
		Urgency:         urgency,
		Confidence:      Confidence,
		Categories:      categories,
		Keywords:        keywords(text),
		Reasoning:       "Fallback heuristic analysis (primary analysis backend unavailable)",
		SuggestedLabels: labels,
		RiskFlags:       flags,
	}
}

func categorize(text string) []string {
	type hit struct {
		name  string
		score int
	}
	var hits []hit
	for _, c := range categoryTable {
		if n := len(c.pattern.FindAllStringIndex(text, -1)); n > 0 {
			hits = append(hits, hit{c.name, n})
		}
	}
	if len(hits) == 0 {
		return []string{analysis.CategoryGeneral}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	out := make([]string, 0, maxCategories)
	for i := 0; i < len(hits) && i < maxCategories; i++ {
		out = append(out, hits[i].name)
	}
	return out
}

func detectSentiment(text string) analysis.Sentiment {
	pos := len(positive.FindAllStringIndex(text, -1))
	neg := len(negative.FindAllStringIndex(text, -1))
	switch {
	case pos > neg+1 || (neg == 0 && pos >= 1):
		return analysis.SentimentPositive
	case neg > pos+1 || (pos == 0 && neg >= 1):
		return analysis.SentimentNegative
	}
	return analysis.SentimentNeutral
}

func detectIntent(text string) string {
	best, bestScore, tied := analysis.IntentInformational, 0, false
	for _, t := range intentTable {
		n := len(t.pattern.FindAllStringIndex(text, -1))
		if n > bestScore {
			best, bestScore, tied = t.name, n, false
		} else if n == bestScore && n > 0 {
			tied = true
		}
	}
	if tied {
		return analysis.IntentInformational
	}
	return best
}

func detectUrgency(text string) analysis.Urgency {
	for _, tier := range urgencyTable {
		if tier.pattern.MatchString(text) {
			return tier.level
		}
	}
	return analysis.UrgencyLow
}

func keywords(text string) []string {
	out := make([]string, 0, analysis.MaxKeywords)
	for _, re := range entities {
		out = appendUnique(out, analysis.MaxKeywords, re.FindAllString(text, -1)...)
	}

	counts := map[string]int{}
	var order []string
	for _, w := range tokens.FindAllString(strings.ToLower(text), -1) {
		if len(w) < 4 || stopwords[w] {
			continue
		}
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	return appendUnique(out, analysis.MaxKeywords, order...)
}

func suggestLabels(text string, categories []string, intent string, urgency analysis.Urgency) []string {
	title := cases.Title(language.English)

	labels := appendUnique(make([]string, 0, maxLabels), maxLabels, categories...)
	if intent != analysis.IntentInformational {
		labels = appendUnique(labels, maxLabels, title.String(strings.ReplaceAll(intent, "_", " ")))
	}
	if urgency != analysis.UrgencyLow {
		labels = appendUnique(labels, maxLabels, title.String(string(urgency))+" Priority")
	}
	for _, l := range structuralLabels {
		if l.pattern.MatchString(text) {
			labels = appendUnique(labels, maxLabels, l.name)
		}
	}
	return labels
}

// appendUnique appends values not already present, stopping at limit.
func appendUnique(dst []string, limit int, values ...string) []string {
	for _, v := range values {
		if len(dst) >= limit {
			break
		}
		dup := false
		for _, d := range dst {
			if strings.EqualFold(d, v) {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, v)
		}
	}
	return dst
}
