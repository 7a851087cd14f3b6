package triage

import "strings"

// FallbackVersion identifies the keyword tables below. It changes whenever a
// table changes and is independent of the prompt templates.
const FallbackVersion = "2026-09.1"

// issueKeyword maps an issue-indicating term to the category it suggests
type issueKeyword struct {
	Term     string
	Category IssueType
}

// issueKeywords is scanned when issue detection output cannot be parsed
var issueKeywords = []issueKeyword{
	{"crash", IssueTechnical},
	{"crashed", IssueTechnical},
	{"broken", IssueTechnical},
	{"bug", IssueTechnical},
	{"freeze", IssueTechnical},
	{"frozen", IssueTechnical},
	{"error", IssueTechnical},
	{"lagging", IssueTechnical},
	{"stuck", IssueTechnical},
	{"won't load", IssueTechnical},
	{"not loading", IssueTechnical},
	{"locked", IssueAccount},
	{"banned", IssueAccount},
	{"hacked", IssueAccount},
	{"can't log", IssueAccount},
	{"cannot log", IssueAccount},
	{"charged", IssueAccount},
	{"refund", IssueAccount},
	{"missing", IssueGameplay},
	{"lost", IssueGameplay},
	{"disappeared", IssueGameplay},
	{"didn't get", IssueGameplay},
	{"did not receive", IssueGameplay},
	{"never received", IssueGameplay},
	{"not received", IssueGameplay},
}

// keywordFallbackImpact is the impact assumed for a keyword-detected issue
const keywordFallbackImpact = ImpactModerate

// keywordFallbackConfidence is the confidence of a keyword-detected issue
const keywordFallbackConfidence = 0.8

// accessTerms trigger the locked-account override
var accessTerms = []string{
	"login",
	"log in",
	"log into",
	"logging in",
	"locked",
	"cannot",
	"can't",
	"cant ",
	"sign in",
	"signin",
}

// contradictionPhrases are scanned in the system-log annotation when claim
// validation output cannot be parsed
var contradictionPhrases = []string{
	"already received",
	"already claimed",
	"already delivered",
	"no evidence of",
	"no record of",
	"zero errors",
	"no errors",
	"successfully delivered",
	"was delivered",
	"were delivered",
	"delivered successfully",
	"claimed at",
	"session completed normally",
}

// contradictionFallbackConfidence is the confidence of a phrase-detected contradiction
const contradictionFallbackConfidence = 0.7

// sentimentFallback is used when sentiment output cannot be parsed
var sentimentFallback = SentimentResult{
	Tone:           ToneNeutral,
	Urgency:        UrgencyMedium,
	RepeatIssue:    false,
	IssueFrequency: FrequencyUnique,
}

// scanIssueKeywords returns the category of the first matching keyword
func scanIssueKeywords(message string) (IssueType, string, bool) {
	lower := strings.ToLower(message)
	for _, kw := range issueKeywords {
		if strings.Contains(lower, kw.Term) {
			return kw.Category, kw.Term, true
		}
	}
	return IssueNone, "", false
}

func containsAccessTerm(message string) bool {
	lower := strings.ToLower(message)
	for _, term := range accessTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// scanContradictions returns the contradiction phrases found in the annotation
func scanContradictions(annotation string) []string {
	lower := strings.ToLower(annotation)
	var found []string
	for _, phrase := range contradictionPhrases {
		if strings.Contains(lower, phrase) {
			found = append(found, phrase)
		}
	}
	return found
}
