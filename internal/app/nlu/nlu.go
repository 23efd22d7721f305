// Package nlu holds the deterministic keyword classifier and identity
// extractor used when the language model is unavailable. Both are pure
// functions and never fail.
package nlu

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tkc-cmd/rxvoice/internal/domain"
)

type keywordRule struct {
	intent  domain.Event
	phrases []string
}

// requestRules are checked before identity heuristics so that "I'm
// calling to refill my metformin" reads as a refill request, not a name.
var requestRules = []keywordRule{
	{domain.EventRefillRequest, []string{"refill", "refil", "more of my", "renew my prescription", "out of my"}},
	{domain.EventInteractionQuestion, []string{"interact", "interaction", "safe to take", "take together", "mix"}},
	{domain.EventAdministrationQuestion, []string{"how do i take", "how should i take", "when do i take", "with food", "side effect", "how to take"}},
}

// replyRules are checked after identity heuristics so that "yes, May 15
// 1965" reads as a date of birth, not a confirmation.
var replyRules = []keywordRule{
	{domain.EventGoodbye, []string{"goodbye", "bye", "that's all", "that is all", "nothing else", "hang up"}},
	{domain.EventConfirm, []string{"yes", "yeah", "yep", "correct", "that's right", "go ahead", "sure", "please do"}},
	{domain.EventDeny, []string{"no", "nope", "cancel", "not that", "never mind", "stop"}},
	{domain.EventGreeting, []string{"hello", "hi there", "good morning", "good afternoon", "good evening"}},
}

var (
	dobISO   = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	dobSlash = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	dobWords = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december)\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`)

	namePrefix = regexp.MustCompile(`(?i)\b(?:my name is|this is|i am|i'm)\s+([a-z]+(?:\s+[a-z]+){0,2})`)
)

var monthNumbers = map[string]int{
	"january": 1, "february": 2, "march": 3, "april": 4,
	"may": 5, "june": 6, "july": 7, "august": 8,
	"september": 9, "october": 10, "november": 11, "december": 12,
}

// Classify maps an utterance to an intent using keyword rules. It always
// returns a result; unmatched text classifies as unclear.
func Classify(text string) domain.IntentResult {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return domain.IntentResult{Intent: domain.EventUnclear, Confidence: 0}
	}

	if intent, ok := match(lower, requestRules); ok {
		return domain.IntentResult{Intent: intent, Confidence: 0.6}
	}
	if ExtractDOB(lower) != "" {
		return domain.IntentResult{Intent: domain.EventProvideDOB, Confidence: 0.7}
	}
	if namePrefix.MatchString(lower) {
		return domain.IntentResult{Intent: domain.EventProvideName, Confidence: 0.7}
	}
	if intent, ok := match(lower, replyRules); ok {
		return domain.IntentResult{Intent: intent, Confidence: 0.6}
	}
	return domain.IntentResult{Intent: domain.EventUnclear, Confidence: 0.2}
}

func match(lower string, rules []keywordRule) (domain.Event, bool) {
	for _, rule := range rules {
		for _, phrase := range rule.phrases {
			if strings.Contains(lower, phrase) {
				return rule.intent, true
			}
		}
	}
	return "", false
}

// ExtractDOB pulls a date of birth out of free text, normalized to
// YYYY-MM-DD. Returns "" when none is found.
func ExtractDOB(text string) string {
	if m := dobISO.FindStringSubmatch(text); m != nil {
		return m[0]
	}
	if m := dobSlash.FindStringSubmatch(text); m != nil {
		return fmt.Sprintf("%s-%s-%s", m[3], pad2(m[1]), pad2(m[2]))
	}
	if m := dobWords.FindStringSubmatch(text); m != nil {
		month := monthNumbers[strings.ToLower(m[1])]
		return fmt.Sprintf("%s-%02d-%s", m[3], month, pad2(m[2]))
	}
	return ""
}

// ExtractName pulls a spoken name out of phrases like "my name is John
// Smith". Returns "" when none is found.
func ExtractName(text string) string {
	m := namePrefix.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

var bareName = regexp.MustCompile(`^[a-zA-Z]+(?:\s+[a-zA-Z]+){1,2}$`)

// BareName treats a two-or-three-word alphabetic utterance as a stated
// name, for replies to a direct name prompt like "John Smith". Returns ""
// otherwise.
func BareName(text string) string {
	t := strings.TrimSpace(strings.Trim(strings.TrimSpace(text), ".,!?"))
	if bareName.MatchString(t) {
		return t
	}
	return ""
}

// ExtractPatientInfo runs both extractors over an utterance.
func ExtractPatientInfo(text string) domain.PatientInfo {
	info := domain.PatientInfo{DateOfBirth: ExtractDOB(text)}
	if name := ExtractName(text); name != "" {
		first, rest, ok := strings.Cut(name, " ")
		if ok {
			info.FirstName = first
			info.LastName = rest
		} else {
			info.FirstName = name
		}
	}
	return info
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
