package triage

import "github.com/guildcare/internal/llm"

const systemPrompt = `You are the support triage assistant for a mobile game. ` +
	`Answer with a single JSON object and nothing else unless asked for plain text.`

// Prompt markers are the first line of each template; they keep every task's
// prompt distinct even for identical inputs.
const (
	markerIssue     = "Task: issue_detection"
	markerSentiment = "Task: sentiment"
	markerClaim     = "Task: claim_validation"
	markerReasoning = "Task: reasoning"
)

var issueDetectionTask = llm.NewTask("issue_detection", systemPrompt, markerIssue+`
Decide whether the player message below describes a problem that could deserve compensation.

Categories: technical (crashes, bugs, loading, performance), account (login, locks, bans, purchases),
gameplay (missing rewards, lost progress, broken events).
Impact levels: minimal, minor, moderate, severe, critical.

Player message:
"""
{{.Message}}
"""

Respond with JSON:
{"detected": true|false, "issue_type": "technical|account|gameplay|null", "description": "one sentence",
 "player_impact": "minimal|minor|moderate|severe|critical|null", "confidence_score": 0.0-1.0}`, 0.1, 250)

var sentimentTask = llm.NewTask("sentiment", systemPrompt, markerSentiment+`
Classify the tone and urgency of the player message below.

Tones: neutral, frustrated, angry, confused, appreciative.
Urgency: low, medium, high.
Issue frequency: unique, uncommon, common, very_common.

Player message:
"""
{{.Message}}
"""

Respond with JSON:
{"tone": "...", "urgency": "...", "repeat_issue": true|false, "issue_frequency": "..."}`, 0.1, 150)

var claimValidationTask = llm.NewTask("claim_validation", systemPrompt, markerClaim+`
Compare the player's claim with the system log annotation. A contradiction means the logs show the
claimed problem did not happen (for example the reward was delivered, or no errors were recorded).

Reported issue: {{.IssueType}} ({{.Impact}}) - {{.Description}}

Player message:
"""
{{.Message}}
"""

System log annotation:
"""
{{.SystemLogs}}
"""

Respond with JSON:
{"contradiction_detected": true|false, "confidence_score": 0.0-1.0, "reasoning": "short explanation",
 "evidence_exists": true|false}`, 0.0, 250)

var reasoningTask = llm.NewTask("reasoning", "You write short, warm replies to players of a mobile game. Plain text only.", markerReasoning+`
Explain to the player, empathetically and in two or three sentences, why their report was placed in
compensation tier {{.Tier}}. Do not promise anything beyond the listed compensation and do not admit fault.

Issue: {{.IssueType}} ({{.Impact}}) - {{.Description}}
Player tone: {{.Tone}} (intensity {{.Intensity}}/10), urgency {{.Urgency}}{{if .RepeatIssue}}, repeat report{{end}}
Compensation: {{.Compensation}}
{{if .RequiresReview}}A support specialist will review the case before anything is granted.{{end}}`, 0.7, 200)

type issueInputs struct {
	Message string
}

type claimInputs struct {
	Message     string
	SystemLogs  string
	IssueType   string
	Impact      string
	Description string
}

type reasoningInputs struct {
	Tier           string
	IssueType      string
	Impact         string
	Description    string
	Tone           string
	Intensity      int
	Urgency        string
	RepeatIssue    bool
	Compensation   string
	RequiresReview bool
}
