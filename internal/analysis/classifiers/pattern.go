package classifiers

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"email-analyzer/internal/analysis"
)

const (
	PatternModel = "pattern"

	patternMaxCategories = 3
	patternMaxLabels     = 6
)

var patternCategories = []rule{
	{"Work & Business", words(`meetings?`, `projects?`, `budgets?`, `reports?`, `clients?`, `team`, `office`,
		`conference`, `presentation`, `quarterly`, `q[1-4]`, `colleagues?`, `manager`, `agenda`, `proposals?`,
		`contracts?`, `departmental`, `stakeholders?`, `review`)},
	{"Finance & Banking", words(`bank`, `banking`, `invoices?`, `payments?`, `account`, `credit`, `debit`,
		`transactions?`, `statement`, `tax(?:es)?`, `loan`, `mortgage`, `balance`, `salary`, `wire transfer`)},
	{"Personal & Family", words(`family`, `mom`, `dad`, `mother`, `father`, `sister`, `brother`, `birthday`,
		`wedding`, `friends?`, `kids`, `children`, `dinner`, `anniversary`, `weekend`)},
	{"Promotions & Marketing", words(`sale`, `discount`, `offers?`, `deals?`, `coupon`, `unsubscribe`,
		`newsletter`, `promo(?:tion)?`, `limited time`, `free shipping`, `subscribe`, `exclusive`)},
	{"Healthcare", words(`doctor`, `hospital`, `clinic`, `prescriptions?`, `medical`, `health`, `dentist`,
		`pharmacy`, `patient`, `symptoms?`, `lab results`)},
	{"Travel", words(`flights?`, `hotel`, `booking`, `reservation`, `itinerary`, `airport`, `trip`, `travel`,
		`passport`, `boarding pass`, `check-in`)},
	{"Education", words(`course`, `class(?:es)?`, `school`, `university`, `exams?`, `assignments?`, `lecture`,
		`homework`, `semester`, `tuition`, `students?`, `grades?`)},
	{"Technology", words(`software`, `servers?`, `bugs?`, `api`, `database`, `deploy(?:ment)?`, `system`,
		`password`, `login`, `security`, `outage`, `github`, `release`)},
	{"Shopping & Orders", words(`orders?`, `shipped`, `shipping`, `delivery`, `package`, `tracking`,
		`purchase`, `receipt`, `cart`, `refund`, `returns?`)},
}

var (
	patternPositive = words(`thank`, `thanks`, `appreciate`, `appreciated`, `great`, `excellent`, `wonderful`,
		`happy`, `pleased`, `glad`, `love`, `awesome`, `fantastic`, `congratulations`, `congrats`, `excited`,
		`delighted`, `well done`)
	patternNegative = words(`problem`, `issues?`, `complaint`, `disappointed`, `unhappy`, `angry`, `frustrated`,
		`terrible`, `awful`, `bad`, `poor`, `wrong`, `failed`, `failure`, `broken`, `unacceptable`,
		`unfortunately`, `hate`)
	positiveEmoji = regexp.MustCompile(`[\x{1F600}-\x{1F60D}\x{1F642}\x{1F44D}\x{2764}]`)
	negativeEmoji = regexp.MustCompile(`[\x{1F620}-\x{1F62D}\x{1F641}\x{1F44E}]`)
)

var patternIntents = []rule{
	{"request", words(`please`, `could you`, `can you`, `would you`, `kindly`, `request`, `need you to`)},
	{"inquiry", regexp.MustCompile(`(?i)\b(?:question|wondering|inquiry|curious|how do|what is)\b|\?`)},
	{"scheduling", words(`meeting`, `schedule[d]?`, `calendar`, `appointment`, `reschedule`, `availability`,
		`available`)},
	{"confirmation", words(`confirm`, `confirmed`, `confirmation`, `verify`, `verified`)},
	{"complaint", words(`complaint`, `complain`, `disappointed`, `unacceptable`, `frustrated`, `not happy`,
		`poor service`)},
	{"gratitude", words(`thank`, `thanks`, `grateful`, `appreciate`, `appreciated`)},
	{"urgent_action", words(`urgent`, `asap`, `immediately`, `action required`, `right away`)},
	{"follow_up", words(`follow up`, `following up`, `follow-up`, `checking in`, `circling back`)},
	{"notification", words(`notification`, `notice`, `alert`, `update`, `announcement`, `fyi`)},
	{"approval", words(`approve`, `approval`, `approved`, `sign off`, `authorize`, `authorization`)},
}

var patternUrgency = []struct {
	level   analysis.Urgency
	pattern *regexp.Regexp
}{
	{analysis.UrgencyCritical, words(`urgent`, `asap`, `as soon as possible`, `emergency`, `immediately`,
		`critical`, `deadline today`, `right away`)},
	{analysis.UrgencyHigh, words(`important`, `priority`, `tomorrow`, `end of day`, `eod`, `deadline`,
		`time-sensitive`, `action required`)},
	{analysis.UrgencyMedium, words(`soon`, `this week`, `reminder`, `upcoming`, `follow up`)},
}

var entityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b[A-Z][a-z]+ [A-Z][a-z]+\b`),
	regexp.MustCompile(`\b[A-Z]{2,}\b`),
	regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`),
	regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b|\b(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]* \d{1,2}(?:st|nd|rd|th)?\b`),
	regexp.MustCompile(`\$\d+(?:,\d{3})*(?:\.\d{2})?`),
}

var (
	attachmentPattern = words(`attach`, `attached`, `attachments?`, `enclosed`)
	recipientsPattern = regexp.MustCompile(`(?i)\b(?:cc|bcc)\s*:|\b(?:everyone|all of you|dear all|team)\b`)
	datePattern       = regexp.MustCompile(`(?i)\b\d{1,2}/\d{1,2}/\d{2,4}\b|\b(?:monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b|\b(?:january|february|march|april|may|june|july|august|september|october|november|december)\s+\d{1,2}\b`)
)

var patternStopwords = toSet(
	"about", "after", "again", "also", "been", "before", "being", "could", "does", "each", "from",
	"have", "here", "into", "just", "like", "more", "most", "much", "need", "only", "other", "over",
	"please", "should", "some", "such", "than", "that", "their", "them", "then", "there", "these",
	"they", "this", "those", "very", "were", "what", "when", "where", "which", "while", "will",
	"with", "would", "your", "yours", "regards", "thanks", "hello", "dear",
)

// Pattern is the primary rule-driven classifier.
type Pattern struct{}

func NewPattern() *Pattern {
	return &Pattern{}
}

func (p *Pattern) Name() string { return PatternModel }

func (p *Pattern) Analyze(_ context.Context, text string) (partial analysis.PartialResult) {
	defer func() {
		if r := recover(); r != nil {
			partial = analysis.DegradedPartial(PatternModel, fmt.Sprintf("pattern analysis failed: %v", r))
		}
	}()

	categories, _ := rank(patternCategories, text, patternMaxCategories)
	if len(categories) == 0 {
		categories = []string{analysis.CategoryGeneral}
	}
	intent := patternIntent(text)
	urgency := patternUrgencyOf(text)
	sentiment := patternSentiment(text)

	return analysis.PartialResult{
		Model:           PatternModel,
		Topic:           categories[0],
		Sentiment:       sentiment,
		Intent:          intent,
		Urgency:         urgency,
		Confidence:      patternConfidence(text),
		Categories:      categories,
		Keywords:        patternKeywords(text),
		SuggestedLabels: patternLabels(text, categories, intent, urgency),
		Reasoning: fmt.Sprintf("Pattern analysis: %s, %s sentiment, %s intent, %s urgency",
			strings.Join(categories, ", "), sentiment, intent, urgency),
	}
}

// patternSentiment needs a margin of two indicators to call a polarity, unless
// the other polarity is entirely absent.
func patternSentiment(text string) analysis.Sentiment {
	pos := count(patternPositive, text) + count(positiveEmoji, text)
	neg := count(patternNegative, text) + count(negativeEmoji, text)

	switch {
	case pos > neg+1 || (neg == 0 && pos >= 1):
		return analysis.SentimentPositive
	case neg > pos+1 || (pos == 0 && neg >= 1):
		return analysis.SentimentNegative
	default:
		return analysis.SentimentNeutral
	}
}

func patternConfidence(text string) float64 {
	conf := 0.6
	length := utf8.RuneCountInString(text)
	if length > 100 {
		conf += 0.1
	}
	if length > 500 {
		conf += 0.1
	}
	wordCount := len(strings.Fields(text))
	if wordCount > 20 {
		conf += 0.05
	}
	if wordCount > 100 {
		conf += 0.05
	}
	if conf > 0.95 {
		conf = 0.95
	}
	return conf
}

func patternKeywords(text string) []string {
	keywords := make([]string, 0, analysis.MaxKeywords)
	for _, re := range entityPatterns {
		keywords = appendUnique(keywords, analysis.MaxKeywords, re.FindAllString(text, -1)...)
	}
	return appendUnique(keywords, analysis.MaxKeywords, frequentWords(text, 4, patternStopwords)...)
}

// patternIntent picks the single highest-scoring intent. A tie at the top, or
// no match at all, is informational.
func patternIntent(text string) string {
	best, bestScore, tied := analysis.IntentInformational, 0, false
	for _, r := range patternIntents {
		n := count(r.pattern, text)
		switch {
		case n > bestScore:
			best, bestScore, tied = r.name, n, false
		case n == bestScore && n > 0:
			tied = true
		}
	}
	if tied {
		return analysis.IntentInformational
	}
	return best
}

func patternUrgencyOf(text string) analysis.Urgency {
	for _, tier := range patternUrgency {
		if tier.pattern.MatchString(text) {
			return tier.level
		}
	}
	return analysis.UrgencyLow
}

func patternLabels(text string, categories []string, intent string, urgency analysis.Urgency) []string {
	labels := appendUnique(make([]string, 0, patternMaxLabels), patternMaxLabels, categories...)
	if intent != analysis.IntentInformational {
		labels = appendUnique(labels, patternMaxLabels, humanize(intent))
	}
	if urgency != analysis.UrgencyLow {
		labels = appendUnique(labels, patternMaxLabels, humanize(string(urgency))+" Priority")
	}
	if attachmentPattern.MatchString(text) {
		labels = appendUnique(labels, patternMaxLabels, "Has Attachment")
	}
	if recipientsPattern.MatchString(text) {
		labels = appendUnique(labels, patternMaxLabels, "Multiple Recipients")
	}
	if datePattern.MatchString(text) {
		labels = appendUnique(labels, patternMaxLabels, "Contains Date")
	}
	return labels
}
