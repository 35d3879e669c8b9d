package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/bayb/pathway/internal/model"
)

// ErrMissingUser is returned when an operation is called without a user ID.
var ErrMissingUser = errors.New("store: user ID is required")

const keyPrefix = "user:"

func answersKey(userID string) string     { return keyPrefix + userID + ":onboarding_answers" }
func fieldKey(userID, field string) string { return keyPrefix + userID + ":onboarding:" + field }
func completeKey(userID string) string    { return keyPrefix + userID + ":onboarding_complete" }
func completedAtKey(userID string) string { return keyPrefix + userID + ":onboarding_completed_at" }

// EncodeAnswers serializes answers as a JSON object.
func EncodeAnswers(a model.Answers) ([]byte, error) {
	if a == nil {
		a = model.Answers{}
	}
	return json.Marshal(a)
}

// DecodeAnswers parses a JSON object of answers.
func DecodeAnswers(data []byte) (model.Answers, error) {
	a := model.Answers{}
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	return a, nil
}

// Onboarding reads and writes users' onboarding answers on top of a KV.
type Onboarding struct {
	kv      KV
	catalog []model.Question
	now     func() time.Time
}

// NewOnboarding returns an Onboarding over kv. The catalog orders exported
// answers; it may be nil.
func NewOnboarding(kv KV, catalog []model.Question) *Onboarding {
	return &Onboarding{kv: kv, catalog: catalog, now: time.Now}
}

// SaveAnswer stores the latest snapshot of all answers and the single field
// that changed.
func (o *Onboarding) SaveAnswer(ctx context.Context, userID, field, value string, snapshot model.Answers) error {
	if userID == "" {
		return ErrMissingUser
	}
	if err := o.setAnswers(ctx, userID, snapshot); err != nil {
		return err
	}
	if field == "" {
		return nil
	}
	if err := o.setJSON(ctx, fieldKey(userID, field), value); err != nil {
		return fmt.Errorf("save field %s: %w", field, err)
	}
	return nil
}

// CompleteInterview stores the final snapshot and marks onboarding complete.
func (o *Onboarding) CompleteInterview(ctx context.Context, userID string, snapshot model.Answers) error {
	if userID == "" {
		return ErrMissingUser
	}
	if err := o.setAnswers(ctx, userID, snapshot); err != nil {
		return err
	}
	if err := o.setJSON(ctx, completeKey(userID), true); err != nil {
		return fmt.Errorf("mark complete: %w", err)
	}
	at := o.now().UTC().Format(time.RFC3339)
	if err := o.setJSON(ctx, completedAtKey(userID), at); err != nil {
		return fmt.Errorf("save completion time: %w", err)
	}
	return nil
}

// Status reports whether a user finished onboarding and what was answered.
// A user with no data has an empty, incomplete status.
func (o *Onboarding) Status(ctx context.Context, userID string) (model.OnboardingStatus, error) {
	st := model.OnboardingStatus{UserID: userID, Answers: model.Answers{}}
	if userID == "" {
		return st, ErrMissingUser
	}

	answers, err := o.Answers(ctx, userID)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return st, err
	default:
		st.Answers = answers
		st.HasAnswers = true
	}

	var complete bool
	if err := o.getJSON(ctx, completeKey(userID), &complete); err != nil && !errors.Is(err, ErrNotFound) {
		return st, fmt.Errorf("read completion flag: %w", err)
	}
	st.Complete = complete

	var at string
	if err := o.getJSON(ctx, completedAtKey(userID), &at); err != nil && !errors.Is(err, ErrNotFound) {
		return st, fmt.Errorf("read completion time: %w", err)
	}
	if at != "" {
		t, err := time.Parse(time.RFC3339, at)
		if err != nil {
			return st, fmt.Errorf("parse completion time %q: %w", at, err)
		}
		st.CompletedAt = &t
	}
	return st, nil
}

// Answers returns the stored answer snapshot, or ErrNotFound.
func (o *Onboarding) Answers(ctx context.Context, userID string) (model.Answers, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	data, err := o.kv.Get(ctx, answersKey(userID))
	if err != nil {
		return nil, err
	}
	return DecodeAnswers(data)
}

// Users returns the IDs of users with stored answers.
func (o *Onboarding) Users(ctx context.Context) ([]string, error) {
	keys, err := o.kv.Keys(ctx, answersKey("*"))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := make([]string, 0, len(keys))
	for _, k := range keys {
		id := strings.TrimSuffix(strings.TrimPrefix(k, keyPrefix), ":onboarding_answers")
		users = append(users, id)
	}
	return users, nil
}

// Export builds export-ready records for every user with stored answers.
func (o *Onboarding) Export(ctx context.Context) (model.OnboardingExport, error) {
	users, err := o.Users(ctx)
	if err != nil {
		return model.OnboardingExport{}, err
	}

	records := make([]model.OnboardingRecord, 0, len(users))
	for _, userID := range users {
		st, err := o.Status(ctx, userID)
		if err != nil {
			return model.OnboardingExport{}, fmt.Errorf("status for %s: %w", userID, err)
		}
		records = append(records, model.OnboardingRecord{
			UserID:      userID,
			Complete:    st.Complete,
			CompletedAt: st.CompletedAt,
			Answers:     o.orderAnswers(st.Answers),
		})
	}

	return model.OnboardingExport{
		ExportedAt: o.now().UTC(),
		Count:      len(records),
		Records:    records,
	}, nil
}

// orderAnswers lists answers in catalog order, followed by any fields the
// catalog does not know sorted by name.
func (o *Onboarding) orderAnswers(a model.Answers) []model.AnswerRecord {
	out := make([]model.AnswerRecord, 0, len(a))
	seen := make(map[string]bool, len(a))
	for _, q := range o.catalog {
		v, ok := a[q.Field]
		if !ok {
			continue
		}
		seen[q.Field] = true
		out = append(out, model.AnswerRecord{
			QuestionID: q.ID,
			Section:    q.Section,
			Field:      q.Field,
			Value:      v,
		})
	}

	var rest []string
	for field := range a {
		if !seen[field] {
			rest = append(rest, field)
		}
	}
	slices.Sort(rest)
	for _, field := range rest {
		out = append(out, model.AnswerRecord{Field: field, Value: a[field]})
	}
	return out
}

func (o *Onboarding) setAnswers(ctx context.Context, userID string, snapshot model.Answers) error {
	data, err := EncodeAnswers(snapshot)
	if err != nil {
		return err
	}
	if err := o.kv.Set(ctx, answersKey(userID), data); err != nil {
		return fmt.Errorf("save answers: %w", err)
	}
	return nil
}

func (o *Onboarding) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return o.kv.Set(ctx, key, data)
}

func (o *Onboarding) getJSON(ctx context.Context, key string, v any) error {
	data, err := o.kv.Get(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
