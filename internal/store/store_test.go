package store

import (
	"context"
	"encoding/json"
	"errors"
	"maps"
	"testing"
	"time"

	"github.com/bayb/pathway/internal/model"
	"github.com/bayb/pathway/internal/questions"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestOnboarding(t *testing.T) (*Onboarding, *Store) {
	t.Helper()
	s := newTestStore(t)
	o := NewOnboarding(s, questions.Catalog())
	o.now = func() time.Time { return time.Date(2026, 3, 8, 14, 30, 0, 0, time.UTC) }
	return o, s
}

func TestKVGetSet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.Set(ctx, "k", []byte(`"one"`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(ctx, "k", []byte(`"two"`)); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `"two"` {
		t.Errorf("expected overwritten value, got %s", got)
	}
}

func TestKVKeys(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, k := range []string{
		"user:b:onboarding_answers",
		"user:a:onboarding_answers",
		"user:a:onboarding:name",
		"user:a:onboarding_complete",
		"other",
	} {
		if err := s.Set(ctx, k, []byte("1")); err != nil {
			t.Fatalf("Set %s: %v", k, err)
		}
	}

	tests := []struct {
		pattern string
		want    []string
	}{
		{"user:*:onboarding_answers", []string{"user:a:onboarding_answers", "user:b:onboarding_answers"}},
		{"user:a:onboarding:*", []string{"user:a:onboarding:name"}},
		{"nothing*", nil},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			got, err := s.Keys(ctx, tt.pattern)
			if err != nil {
				t.Fatalf("Keys: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("key %d: expected %q, got %q", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestAnswersCodecRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   model.Answers
	}{
		{"empty", model.Answers{}},
		{"intro only", model.Answers{"ready": ""}},
		{"unicode and quotes", model.Answers{"name": "María \"Mimi\" O'Neil", "children": "two: Ana & Luis"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeAnswers(tt.in)
			if err != nil {
				t.Fatalf("EncodeAnswers: %v", err)
			}
			got, err := DecodeAnswers(data)
			if err != nil {
				t.Fatalf("DecodeAnswers: %v", err)
			}
			if !maps.Equal(got, tt.in) {
				t.Errorf("round trip: expected %v, got %v", tt.in, got)
			}
		})
	}

	if data, _ := EncodeAnswers(nil); string(data) != "{}" {
		t.Errorf("nil answers should encode as {}, got %s", data)
	}
	if _, err := DecodeAnswers([]byte("[1,2]")); err == nil {
		t.Error("expected error decoding a JSON array")
	}
}

func TestSaveAnswerKeyLayout(t *testing.T) {
	o, s := newTestOnboarding(t)
	ctx := context.Background()

	snapshot := model.Answers{"ready": "", "name": "Maria"}
	if err := o.SaveAnswer(ctx, "u1", "name", "Maria", snapshot); err != nil {
		t.Fatalf("SaveAnswer: %v", err)
	}

	raw, err := s.Get(ctx, "user:u1:onboarding_answers")
	if err != nil {
		t.Fatalf("Get answers: %v", err)
	}
	var stored map[string]string
	if err := json.Unmarshal(raw, &stored); err != nil {
		t.Fatalf("answers are not a JSON object: %v", err)
	}
	if !maps.Equal(stored, map[string]string(snapshot)) {
		t.Errorf("expected %v, got %v", snapshot, stored)
	}

	raw, err = s.Get(ctx, "user:u1:onboarding:name")
	if err != nil {
		t.Fatalf("Get field: %v", err)
	}
	if string(raw) != `"Maria"` {
		t.Errorf("expected JSON string, got %s", raw)
	}

	if _, err := s.Get(ctx, "user:u1:onboarding_complete"); !errors.Is(err, ErrNotFound) {
		t.Errorf("saving an answer must not mark completion, got %v", err)
	}
}

func TestMissingUser(t *testing.T) {
	o, _ := newTestOnboarding(t)
	ctx := context.Background()

	if err := o.SaveAnswer(ctx, "", "name", "x", nil); !errors.Is(err, ErrMissingUser) {
		t.Errorf("SaveAnswer: expected ErrMissingUser, got %v", err)
	}
	if err := o.CompleteInterview(ctx, "", nil); !errors.Is(err, ErrMissingUser) {
		t.Errorf("CompleteInterview: expected ErrMissingUser, got %v", err)
	}
	if _, err := o.Status(ctx, ""); !errors.Is(err, ErrMissingUser) {
		t.Errorf("Status: expected ErrMissingUser, got %v", err)
	}
}

func TestStatusLifecycle(t *testing.T) {
	o, s := newTestOnboarding(t)
	ctx := context.Background()

	st, err := o.Status(ctx, "u1")
	if err != nil {
		t.Fatalf("Status for new user: %v", err)
	}
	if st.Complete || st.HasAnswers || st.CompletedAt != nil || len(st.Answers) != 0 {
		t.Errorf("expected empty status, got %+v", st)
	}

	if err := o.SaveAnswer(ctx, "u1", "ready", "", model.Answers{"ready": ""}); err != nil {
		t.Fatalf("SaveAnswer: %v", err)
	}
	st, err = o.Status(ctx, "u1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !st.HasAnswers || st.Complete {
		t.Errorf("expected answers without completion, got %+v", st)
	}

	final := model.Answers{"ready": "", "name": "Maria", "hasPeriods": "no"}
	if err := o.CompleteInterview(ctx, "u1", final); err != nil {
		t.Fatalf("CompleteInterview: %v", err)
	}
	st, err = o.Status(ctx, "u1")
	if err != nil {
		t.Fatalf("Status after completion: %v", err)
	}
	if !st.Complete {
		t.Error("expected onboarding to be complete")
	}
	if st.CompletedAt == nil || !st.CompletedAt.Equal(o.now()) {
		t.Errorf("expected completion time %v, got %v", o.now(), st.CompletedAt)
	}
	if !maps.Equal(st.Answers, final) {
		t.Errorf("expected final answers %v, got %v", final, st.Answers)
	}

	raw, err := s.Get(ctx, "user:u1:onboarding_complete")
	if err != nil {
		t.Fatalf("Get complete flag: %v", err)
	}
	if string(raw) != "true" {
		t.Errorf("expected JSON true, got %s", raw)
	}
	raw, err = s.Get(ctx, "user:u1:onboarding_completed_at")
	if err != nil {
		t.Fatalf("Get completed at: %v", err)
	}
	if string(raw) != `"2026-03-08T14:30:00Z"` {
		t.Errorf("unexpected completion timestamp %s", raw)
	}
}

func TestAnswersNotFound(t *testing.T) {
	o, _ := newTestOnboarding(t)
	if _, err := o.Answers(context.Background(), "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestExport(t *testing.T) {
	o, _ := newTestOnboarding(t)
	ctx := context.Background()

	if err := o.SaveAnswer(ctx, "bea", "name", "Bea", model.Answers{"ready": "", "name": "Bea"}); err != nil {
		t.Fatalf("SaveAnswer: %v", err)
	}
	final := model.Answers{"name": "Ana", "ready": "yes", "legacy": "kept"}
	if err := o.CompleteInterview(ctx, "ana", final); err != nil {
		t.Fatalf("CompleteInterview: %v", err)
	}

	exp, err := o.Export(ctx)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if exp.Count != 2 || len(exp.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", exp.Count)
	}
	if !exp.ExportedAt.Equal(o.now()) {
		t.Errorf("unexpected export time %v", exp.ExportedAt)
	}

	ana := exp.Records[0]
	if ana.UserID != "ana" || !ana.Complete || ana.CompletedAt == nil {
		t.Errorf("unexpected first record %+v", ana)
	}
	wantFields := []string{"ready", "name", "legacy"}
	if len(ana.Answers) != len(wantFields) {
		t.Fatalf("expected %d answers, got %+v", len(wantFields), ana.Answers)
	}
	for i, f := range wantFields {
		if ana.Answers[i].Field != f {
			t.Errorf("answer %d: expected field %q, got %q", i, f, ana.Answers[i].Field)
		}
	}
	if ana.Answers[0].QuestionID != model.IntroID || ana.Answers[0].Section != "Introduction" {
		t.Errorf("expected catalog metadata on intro answer, got %+v", ana.Answers[0])
	}
	if ana.Answers[2].QuestionID != "" {
		t.Errorf("unknown field should carry no question id, got %+v", ana.Answers[2])
	}

	bea := exp.Records[1]
	if bea.UserID != "bea" || bea.Complete {
		t.Errorf("unexpected second record %+v", bea)
	}
}
