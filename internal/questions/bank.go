// Package questions holds the onboarding question bank: every interview
// question in presentation order together with its gating predicate.
package questions

import (
	"errors"
	"fmt"

	"github.com/bayb/pathway/internal/model"
)

// Catalog returns the onboarding questions in catalog order. The slice is a
// fresh copy on every call.
func Catalog() []model.Question {
	return []model.Question{
		{
			ID:      "intro",
			Section: "Introduction",
			Field:   "ready",
			Text:    "Hello Gorgeous. I'm BAYB, your life's new chief operating officer. I'm so excited to get to know you, so let's dive into these questions that will assist me in getting to know you better. You merely tap the microphone to talk back to me when you answer. Are you ready?",
		},

		{
			ID:      "q1",
			Section: "Getting to Know You",
			Field:   "name",
			Text:    "What is your name darling?",
		},
		{
			ID:      "q2",
			Section: "Getting to Know You",
			Field:   "dateOfBirth",
			Text:    "What is your date of birth? You can say something like, March 16, 1970 or 3/16/70, either works.",
		},
		{
			ID:      "q3",
			Section: "Getting to Know You",
			Field:   "timezone",
			Text:    "What time zone are you in? I want to ensure I check in at the proper times.",
		},
		{
			ID:      "q4",
			Section: "Getting to Know You",
			Field:   "sleepSchedule",
			Text:    "What time do you typically go to bed in the evening and how many hours of sleep would you say you get?",
		},
		{
			ID:      "q5",
			Section: "Getting to Know You",
			Field:   "wakeTime",
			Text:    "What time do you typically get up in the morning?",
		},

		{
			ID:      "q6_intro",
			Section: "Hormonal Cycles",
			Field:   "cycles_intro",
			Text:    "Let's dive into some questions about your hormonal cycles.",
		},
		{
			ID:      "q6",
			Section: "Hormonal Cycles",
			Field:   "hasPeriods",
			Text:    "Are you currently still getting periods, yes or no?",
		},
		{
			ID:      "q7",
			Section: "Hormonal Cycles",
			Field:   "lastPeriodDate",
			When:    whenStillHasPeriods,
			Text:    "Tell me the date of the first day of your last period?",
		},
		{
			ID:      "q8",
			Section: "Hormonal Cycles",
			Field:   "periodFrequency",
			When:    whenStillHasPeriods,
			Text:    "What is the frequency of your period, meaning how often do you typically get them? You can say something like every 28 days or I don't know.",
		},
		{
			ID:      "q9",
			Section: "Hormonal Cycles",
			Field:   "periodDuration",
			When:    whenStillHasPeriods,
			Text:    "What is the typical duration of your period? You can say something like, I usually bleed for about 5 days.",
		},
		{
			ID:      "q10",
			Section: "Hormonal Cycles",
			Field:   "periodFlow",
			When:    whenStillHasPeriods,
			Text:    "What is the typical flow of your period? You can say something like, the first two days are heavy and the other days are light.",
		},
		{
			ID:      "q11",
			Section: "Hormonal Cycles",
			Field:   "periodsRegular",
			When:    whenStillHasPeriods,
			Text:    "Would you classify your periods as regular, meaning they come around the same frequency every month? You can say yes, no, or I don't know.",
		},
		{
			ID:      "q12",
			Section: "Hormonal Cycles",
			Field:   "usesPeriodTracker",
			When:    whenStillHasPeriods,
			Text:    "Do you currently use a period tracker app?",
		},
		{
			ID:      "q13",
			Section: "Hormonal Cycles",
			Field:   "wantsDataIntegration",
			When:    whenTracksPeriods,
			Text:    "Would you like instructions on how to download your data to integrate it with me? You can say yes or no.",
		},
		{
			ID:      "q13_instructions",
			Section: "Hormonal Cycles",
			Field:   "dataInstructions",
			When:    whenWantsIntegration,
			Text:    "Perfect! To export your data, open your period tracker app, go to settings, look for 'Export Data' or 'Download Data', and save the file. Then you can upload it in the BAYB integrations menu. Now let's continue.",
		},
		{
			ID:      "q14",
			Section: "Hormonal Cycles",
			Field:   "birthControlOrHRT",
			When:    whenStillHasPeriods,
			Text:    "Are you on any forms of birth control or hormonal replacement therapies?",
		},
		{
			ID:      "q15_intro",
			Section: "Hormonal Cycles",
			Field:   "cycle_effects_intro",
			When:    whenStillHasPeriods,
			Text:    "Now let's move onto how your cycle affects you.",
		},
		{
			ID:      "q15",
			Section: "Hormonal Cycles",
			Field:   "premenstrualSymptoms",
			When:    whenStillHasPeriods,
			Text:    "Do you experience any premenstrual symptoms, such as mood changes, anxiety, irritation, bloating, breast tenderness, cravings, or anything else? If so, please list each one.",
		},
		{
			ID:      "q16",
			Section: "Hormonal Cycles",
			Field:   "periodSymptoms",
			When:    whenStillHasPeriods,
			Text:    "List any symptoms you experience during your periods, like cramps, headaches, nausea, fatigue, etc.",
		},
		{
			ID:      "q17",
			Section: "Hormonal Cycles",
			Field:   "energyChanges",
			When:    whenStillHasPeriods,
			Text:    "Do you notice if your energy changes throughout your cycles, yes or no?",
		},
		{
			ID:      "q18",
			Section: "Hormonal Cycles",
			Field:   "mostEnergyPhase",
			When:    whenEnergyVaries,
			Text:    "Which part of your cycle do you feel you have the most energy?",
		},
		{
			ID:      "q19",
			Section: "Hormonal Cycles",
			Field:   "leastEnergyPhase",
			When:    whenEnergyVaries,
			Text:    "Which part of your cycle do you feel you have the least amount of energy?",
		},
		{
			ID:      "q20",
			Section: "Hormonal Cycles",
			Field:   "periodPainRating",
			When:    whenStillHasPeriods,
			Text:    "On a scale of 1 to 10, 1 being tolerable and 10 being excruciating, what number would you rate your pain while on your period?",
		},
		{
			ID:      "q21",
			Section: "Hormonal Cycles",
			Field:   "otherSymptoms",
			When:    whenStillHasPeriods,
			Text:    "Are there any other symptoms or patterns you would like me to track for you? If so, please list them.",
		},

		{
			ID:      "q22",
			Section: "Life & Family",
			Field:   "children",
			Text:    "Let's shift gears and look at life. Do you have children, if so how many, what are their ages and names?",
		},
		{
			ID:      "q23",
			Section: "Life & Family",
			Field:   "childcareResponsibilities",
			When:    whenHasChildren,
			Text:    "Please list all the responsibilities that fall onto your shoulders when it comes to managing the children.",
		},
		{
			ID:      "q24",
			Section: "Life & Family",
			Field:   "scanSchoolEmails",
			When:    whenHasChildren,
			Text:    "Do you get emails from the children's schools that you would like me to scan for you, to help you organize your children's lives into your own, such as their sports activities, extracurricular activities, school functions, etc.?",
		},
		{
			ID:      "q25",
			Section: "Life & Family",
			Field:   "childrenSchools",
			When:    whenScansSchoolEmails,
			Text:    "Please list the children's schools so that I may know which emails to look out for.",
		},
		{
			ID:      "q26",
			Section: "Life & Family",
			Field:   "readChildEvents",
			When:    whenScansSchoolEmails,
			Text:    "Would you like me to read to you the dates/times that involve one of your child's names so that I can discuss adding things within the emails to your family calendar?",
		},

		{
			ID:      "q27",
			Section: "Work & Productivity",
			Field:   "workSituation",
			Text:    "Do you primarily care for the household or do you also have a job outside the household?",
		},
		{
			ID:      "q28",
			Section: "Work & Productivity",
			Field:   "jobDetails",
			When:    whenWorksOutside,
			Text:    "What is that job, what are your typical working hours like 9-5, and how would you classify the stress level?",
		},
		{
			ID:      "q29",
			Section: "Work & Productivity",
			Field:   "leadershipRole",
			When:    whenWorksOutside,
			Text:    "Do you have responsibilities of being in a leadership position or managing other employees?",
		},
		{
			ID:      "q30",
			Section: "Work & Productivity",
			Field:   "jobSatisfaction",
			When:    whenWorksOutside,
			Text:    "Do you feel satisfied with your job?",
		},
		{
			ID:      "q31",
			Section: "Work & Productivity",
			Field:   "seekingProductivity",
			When:    whenWorksOutside,
			Text:    "Are you seeking to be more productive at work?",
		},
		{
			ID:      "q32",
			Section: "Work & Productivity",
			Field:   "productivityChallenges",
			When:    whenWorksOutside,
			Text:    "What would you say the biggest challenges are at work for productivity? What gets in the way of crushing your to-do list?",
		},
		{
			ID:      "q33",
			Section: "Work & Productivity",
			Field:   "mostFocusedTime",
			When:    whenWorksOutside,
			Text:    "When do you feel the most focused? In the morning, afternoon, or evening?",
		},
		{
			ID:      "q34",
			Section: "Work & Productivity",
			Field:   "taskOrganization",
			When:    whenWorksOutside,
			Text:    "How do you prefer to organize your tasks? Batching similar things together or mixing it up throughout the day?",
		},
		{
			ID:      "q35",
			Section: "Work & Productivity",
			Field:   "periodDeadlineStrategy",
			When:    whenWorksOutside,
			Text:    "If you're on your period or used to get periods but you have/had a deadline, how did you handle getting things done? Was or is there something specific that works for you?",
		},
		{
			ID:      "q36",
			Section: "Work & Productivity",
			Field:   "workCalendarIntegration",
			When:    whenWorksOutside,
			Text:    "Do you have a work calendar and if yes, would you like me to integrate your google or outlook calendar?",
		},
		{
			ID:      "q37",
			Section: "Work & Productivity",
			Field:   "calendarReminders",
			When:    whenWorksOutside,
			Text:    "Would you like daily reminders of items on your calendar for the day and/or for the next day?",
		},

		{
			ID:      "q38",
			Section: "Household Management",
			Field:   "householdResponsibilities",
			Text:    "Please list the responsibilities that fall onto your shoulders when it comes to household duties?",
		},
		{
			ID:      "q39",
			Section: "Household Management",
			Field:   "householdProductivity",
			Text:    "Are you looking to be more productive within the house? Such as meal prepping, organizing time to get things around the house done, etc.?",
		},

		{
			ID:      "q40_intro",
			Section: "Health & Wellness",
			Field:   "health_intro",
			Text:    "Let's dive into some health and wellness.",
		},
		{
			ID:      "q40",
			Section: "Health & Wellness",
			Field:   "workoutFrequency",
			Text:    "Do you work out regularly and if so, how often?",
		},
		{
			ID:      "q41",
			Section: "Health & Wellness",
			Field:   "fitnessGoals",
			Text:    "List your goals with fitness such as increasing productivity, losing weight, gaining muscle, etc.",
		},
		{
			ID:      "q42",
			Section: "Health & Wellness",
			Field:   "height",
			Text:    "How tall are you? You can say something like 5 foot 6 inches or 5-6.",
		},
		{
			ID:      "q43",
			Section: "Health & Wellness",
			Field:   "weight",
			Text:    "How much do you currently weigh?",
		},
		{
			ID:      "q44",
			Section: "Health & Wellness",
			Field:   "workoutTypes",
			Text:    "What types of ways do you move your body or work out?",
		},
		{
			ID:      "q45",
			Section: "Health & Wellness",
			Field:   "dietDescription",
			Text:    "How would you describe your current diet?",
		},
		{
			ID:      "q46",
			Section: "Health & Wellness",
			Field:   "nutritionGoals",
			Text:    "Do you have any nutrition goals, such as decreasing sugar intake, increasing protein or fiber, etc.?",
		},
		{
			ID:      "q47",
			Section: "Health & Wellness",
			Field:   "dietaryRestrictions",
			Text:    "Do you have any dietary restrictions?",
		},
		{
			ID:      "q48",
			Section: "Health & Wellness",
			Field:   "mealsPerDay",
			Text:    "How many meals do you eat in a day?",
		},
		{
			ID:      "q49",
			Section: "Health & Wellness",
			Field:   "snackingHabits",
			Text:    "Do you often snack? And if so, what kinds of snack foods do you eat?",
		},
		{
			ID:      "q50",
			Section: "Health & Wellness",
			Field:   "waterIntake",
			Text:    "How much water do you think you drink daily?",
		},

		{
			ID:      "q51_intro",
			Section: "Stress Management",
			Field:   "stress_intro",
			Text:    "Let's talk about stress.",
		},
		{
			ID:      "q51",
			Section: "Stress Management",
			Field:   "stressSources",
			Text:    "What are your main sources of stress right now?",
		},
		{
			ID:      "q52",
			Section: "Stress Management",
			Field:   "copingMechanisms",
			Text:    "What current coping mechanisms do you have in place and do you think they're working?",
		},
		{
			ID:      "q53",
			Section: "Stress Management",
			Field:   "calmingActivities",
			Text:    "What helps you feel calm and centered?",
		},

		{
			ID:      "q54_intro",
			Section: "Medical History",
			Field:   "medical_intro",
			Text:    "A few other items to cover. Don't worry we're almost done darling.",
		},
		{
			ID:      "q54",
			Section: "Medical History",
			Field:   "medicalDiagnoses",
			Text:    "Do you have any current medical diagnosis from a doctor, like hypertension, ADHD, etc? If so, please list them.",
		},
		{
			ID:      "q55",
			Section: "Medical History",
			Field:   "gynecologicalDiagnoses",
			Text:    "Do you have any current gynecological diagnosis such as PCOS, or endometriosis? If so, please list them.",
		},
		{
			ID:      "q56",
			Section: "Medical History",
			Field:   "medications",
			Text:    "Are you on any current medications? If yes, please list the name, the dose, and the frequency of each.",
		},
		{
			ID:      "q57",
			Section: "Medical History",
			Field:   "supplements",
			Text:    "Are you on any over the counter medications, like herbs or supplements? If so, please list the name, dosage, and frequency of each.",
		},
		{
			ID:      "q58",
			Section: "Medical History",
			Field:   "medicationReminders",
			Text:    "Would you like medication reminders? Such as, it's time to change your estradiol patch. If so, please list which medications you would like me to remind you to take and if you want the reminders daily, an hour before, right on time, etc? What would be the most helpful?",
		},
		{
			ID:      "q59",
			Section: "Medical History",
			Field:   "labResults",
			Text:    "Are there any lab results your doctor drew that you'd like to tell me, such as hemoglobin levels, vitamin D levels, thyroid levels, hormone levels? If so, please list each name and the result.",
		},

		{
			ID:      "q60_intro",
			Section: "Integrations",
			Field:   "integrations_intro",
			Text:    "Integrations:",
		},
		{
			ID:      "q60",
			Section: "Integrations",
			Field:   "otherIntegrations",
			Text:    "Are there any other integrations you would like to set up aside from Google or Outlook, such as Slack, Whoop, Fitbit, Or Oura Ring? Just let me know which one and I will let you know if we're able to integrate.",
		},
		{
			ID:      "q61",
			Section: "Integrations",
			Field:   "wantsInsights",
			Text:    "Would you like to receive insights from me, such as energy levels that could impact your calendar items or task list?",
		},

		{
			ID:      "q62_intro",
			Section: "Your Vision",
			Field:   "vision_intro",
			Text:    "Wonderful Darling. Sorry this was a bit tedious, the more I get to know you the more helpful I can be.",
		},
		{
			ID:      "q62",
			Section: "Your Vision",
			Field:   "visionOfSuccess",
			Text:    "Last item, I want you to fast forward 6 months from now and tell me what success looks like to you?",
		},

		{
			ID:      "completion",
			Section: "Welcome to BAYB",
			Field:   "completion",
			Text:    "Amazing. We already know how bad-ass you are, now is the time for me to help you by predicting patterns, offering suggestions, optimizing your schedule, and helping you work WITH your body, not against it. So, Welcome to BAYB, where women are building the world.",
		},
	}
}

// Sections returns the distinct section labels in catalog order.
func Sections(catalog []model.Question) []string {
	var sections []string
	seen := make(map[string]bool)
	for _, q := range catalog {
		if seen[q.Section] {
			continue
		}
		seen[q.Section] = true
		sections = append(sections, q.Section)
	}
	return sections
}

// ErrEmptyCatalog is returned by Validate for a catalog without questions.
var ErrEmptyCatalog = errors.New("catalog has no questions")

// Validate checks the authoring invariants of a catalog: it starts with the
// introduction, ids and answer fields are unique, and every condition reads
// only fields written by earlier questions.
func Validate(catalog []model.Question) error {
	if len(catalog) == 0 {
		return ErrEmptyCatalog
	}
	if catalog[0].ID != model.IntroID {
		return fmt.Errorf("first question is %q, want %q", catalog[0].ID, model.IntroID)
	}
	if catalog[0].Conditional() {
		return fmt.Errorf("introduction question must be unconditional")
	}

	ids := make(map[string]bool, len(catalog))
	written := make(map[string]bool, len(catalog))
	for i, q := range catalog {
		if q.ID == "" || q.Field == "" {
			return fmt.Errorf("question %d: id and field are required", i)
		}
		if ids[q.ID] {
			return fmt.Errorf("question %d: duplicate id %q", i, q.ID)
		}
		if written[q.Field] {
			return fmt.Errorf("question %s: duplicate field %q", q.ID, q.Field)
		}
		if q.When != nil {
			if q.When.Match == nil {
				return fmt.Errorf("question %s: condition without predicate", q.ID)
			}
			if len(q.When.DependsOn) == 0 {
				return fmt.Errorf("question %s: condition declares no dependencies", q.ID)
			}
			for _, dep := range q.When.DependsOn {
				if !written[dep] {
					return fmt.Errorf("question %s: condition reads %q before it is asked", q.ID, dep)
				}
			}
		}
		ids[q.ID] = true
		written[q.Field] = true
	}
	return nil
}
