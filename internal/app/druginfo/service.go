// Package druginfo carries the local drug-interaction rules and
// administration guides the phone line answers from.
package druginfo

import (
	"strings"
)

type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

type Alert struct {
	Severity Severity
	Summary  string
	Guidance string
}

type Guide struct {
	Medication      string
	Instructions    string
	SideEffects     []string
	WhenToSeekHelp  string
	FoodGuidance    string
	TimingGuidance  string
}

type rule struct {
	drugs              []string
	contraindicated    []string
	severity           Severity
	summary, guidance  string
}

// Service answers interaction and administration questions from a canned
// rule table. It stands in for a clinical drug-information feed.
type Service struct {
	rules  []rule
	guides map[string]Guide
}

func NewService() *Service {
	return &Service{
		rules: []rule{
			{
				drugs:           []string{"sertraline", "fluoxetine", "paroxetine"},
				contraindicated: []string{"phenelzine", "tranylcypromine"},
				severity:        SeverityHigh,
				summary:         "SSRI-MAOI interaction risk",
				guidance:        "Do not combine SSRIs with MAOIs. Risk of serotonin syndrome. Consult your prescriber immediately.",
			},
			{
				drugs:           []string{"ibuprofen", "naproxen", "diclofenac"},
				contraindicated: []string{"lisinopril", "enalapril", "losartan"},
				severity:        SeverityMedium,
				summary:         "NSAID-ACE inhibitor interaction",
				guidance:        "NSAIDs may reduce the effect of blood pressure medication and stress the kidneys. Monitor blood pressure.",
			},
			{
				drugs:           []string{"atorvastatin", "simvastatin", "lovastatin"},
				contraindicated: []string{"clarithromycin", "erythromycin", "ketoconazole"},
				severity:        SeverityMedium,
				summary:         "Statin-CYP3A4 inhibitor interaction",
				guidance:        "Strong CYP3A4 inhibitors can raise statin levels and the risk of muscle problems. A dose adjustment may be needed.",
			},
		},
		guides: map[string]Guide{
			"amoxicillin": {
				Medication:     "amoxicillin",
				Instructions:   "Take with or without food. Complete the full course even if feeling better.",
				SideEffects:    []string{"nausea", "diarrhea", "stomach upset", "rash"},
				WhenToSeekHelp: "Severe rash, difficulty breathing, severe diarrhea, or signs of allergic reaction.",
				TimingGuidance: "Take every 8 hours at evenly spaced intervals.",
			},
			"atorvastatin": {
				Medication:     "atorvastatin",
				Instructions:   "Take once daily, preferably in the evening. Can be taken with or without food.",
				SideEffects:    []string{"muscle aches", "headache", "nausea"},
				WhenToSeekHelp: "Unexplained muscle pain, weakness, or dark urine.",
				FoodGuidance:   "Avoid grapefruit and grapefruit juice.",
			},
			"lisinopril": {
				Medication:     "lisinopril",
				Instructions:   "Take once daily at the same time each day.",
				SideEffects:    []string{"dry cough", "dizziness", "headache", "fatigue"},
				WhenToSeekHelp: "Swelling of face or lips, fainting, or severe dizziness.",
			},
			"metformin": {
				Medication:     "metformin",
				Instructions:   "Take with meals to reduce stomach upset.",
				SideEffects:    []string{"nausea", "diarrhea", "metallic taste"},
				WhenToSeekHelp: "Unusual muscle pain, trouble breathing, or severe fatigue.",
				TimingGuidance: "Usually taken with breakfast and dinner.",
			},
		},
	}
}

// CheckAgainst returns every alert triggered by medication being taken
// alongside the given current medications.
func (s *Service) CheckAgainst(medication string, current []string) []Alert {
	med := strings.ToLower(strings.TrimSpace(medication))

	var alerts []Alert
	for _, r := range s.rules {
		if !contains(r.drugs, med) && !contains(r.contraindicated, med) {
			continue
		}
		for _, cur := range current {
			c := strings.ToLower(strings.TrimSpace(cur))
			if c == med {
				continue
			}
			if (contains(r.drugs, med) && contains(r.contraindicated, c)) ||
				(contains(r.contraindicated, med) && contains(r.drugs, c)) {
				alerts = append(alerts, Alert{Severity: r.severity, Summary: r.summary, Guidance: r.guidance})
				break
			}
		}
	}
	return alerts
}

// GuideFor returns the administration guide for a medication, if known.
func (s *Service) GuideFor(medication string) (Guide, bool) {
	g, ok := s.guides[strings.ToLower(strings.TrimSpace(medication))]
	return g, ok
}

// GuideInText scans free text for any medication with a known guide.
func (s *Service) GuideInText(text string) (Guide, bool) {
	lower := strings.ToLower(text)
	for name, g := range s.guides {
		if strings.Contains(lower, name) {
			return g, true
		}
	}
	return Guide{}, false
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
