package questions

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/bayb/pathway/internal/model"
)

// Answer field names read by gating predicates.
const (
	fieldHasPeriods           = "hasPeriods"
	fieldUsesPeriodTracker    = "usesPeriodTracker"
	fieldWantsDataIntegration = "wantsDataIntegration"
	fieldEnergyChanges        = "energyChanges"
	fieldChildren             = "children"
	fieldScanSchoolEmails     = "scanSchoolEmails"
	fieldWorkSituation        = "workSituation"
)

// fold lower-cases an answer for substring matching. A Caser is stateful,
// so one is built per call.
func fold(s string) string {
	return cases.Lower(language.Und).String(s)
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// mentions reports whether the answer to field contains any of words.
func mentions(a model.Answers, field string, words ...string) bool {
	return containsAny(fold(a.Get(field)), words...)
}

// denies reports whether field has been answered without any of words.
// An unanswered field never satisfies it.
func denies(a model.Answers, field string, words ...string) bool {
	v := fold(a.Get(field))
	if strings.TrimSpace(v) == "" {
		return false
	}
	return !containsAny(v, words...)
}

// Gating predicates shared by groups of questions.

func stillHasPeriods(a model.Answers) bool {
	return mentions(a, fieldHasPeriods, "yes", "yeah", "still")
}

func affirmsPeriods(a model.Answers) bool {
	return mentions(a, fieldHasPeriods, "yes", "yeah")
}

func tracksPeriods(a model.Answers) bool {
	return affirmsPeriods(a) && mentions(a, fieldUsesPeriodTracker, "yes", "yeah")
}

func wantsIntegration(a model.Answers) bool {
	return mentions(a, fieldWantsDataIntegration, "yes", "yeah")
}

func energyVaries(a model.Answers) bool {
	return affirmsPeriods(a) && mentions(a, fieldEnergyChanges, "yes", "yeah")
}

func hasChildren(a model.Answers) bool {
	return denies(a, fieldChildren, "no", "none", "don't")
}

func scansSchoolEmails(a model.Answers) bool {
	return denies(a, fieldChildren, "no", "none") && mentions(a, fieldScanSchoolEmails, "yes", "yeah")
}

func worksOutside(a model.Answers) bool {
	return mentions(a, fieldWorkSituation, "job", "work", "both")
}

// Conditions attached to catalog entries. They are shared values; the
// catalog never mutates them.
var (
	whenStillHasPeriods = &model.Condition{
		DependsOn: []string{fieldHasPeriods},
		Match:     stillHasPeriods,
	}
	whenTracksPeriods = &model.Condition{
		DependsOn: []string{fieldHasPeriods, fieldUsesPeriodTracker},
		Match:     tracksPeriods,
	}
	whenWantsIntegration = &model.Condition{
		DependsOn: []string{fieldWantsDataIntegration},
		Match:     wantsIntegration,
	}
	whenEnergyVaries = &model.Condition{
		DependsOn: []string{fieldHasPeriods, fieldEnergyChanges},
		Match:     energyVaries,
	}
	whenHasChildren = &model.Condition{
		DependsOn: []string{fieldChildren},
		Match:     hasChildren,
	}
	whenScansSchoolEmails = &model.Condition{
		DependsOn: []string{fieldChildren, fieldScanSchoolEmails},
		Match:     scansSchoolEmails,
	}
	whenWorksOutside = &model.Condition{
		DependsOn: []string{fieldWorkSituation},
		Match:     worksOutside,
	}
)
