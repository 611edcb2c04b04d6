package ai

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func scoringTasks(n int) []TaskForScoring {
	tasks := make([]TaskForScoring, n)
	for i := range tasks {
		tasks[i] = TaskForScoring{ID: uuid.New(), Title: fmt.Sprintf("task %d", i)}
	}
	return tasks
}

func TestParseBulkResult_Valid(t *testing.T) {
	t.Parallel()

	tasks := scoringTasks(3)
	content := fmt.Sprintf(`{
		"scores": [
			{"task_id": %q, "score": 95, "bucket": "NOW", "reasoning": "urgent", "confidence": 0.9},
			{"task_id": %q, "score": 70, "bucket": "NEXT", "reasoning": "important", "confidence": 0.8},
			{"task_id": %q, "score": 30, "bucket": "LATER", "reasoning": "can wait", "confidence": 0.6}
		],
		"recommendations": {"now": [%q], "next": [%q], "later": [%q]},
		"overall_rationale": "focus on the deadline"
	}`, tasks[0].ID, tasks[1].ID, tasks[2].ID, tasks[0].ID, tasks[1].ID, tasks[2].ID)

	result, err := ParseBulkResult(content, tasks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Scores) != 3 {
		t.Errorf("expected 3 scores, got %d", len(result.Scores))
	}
	if len(result.Recommendations.Now) != 1 || result.Recommendations.Now[0] != tasks[0].ID {
		t.Errorf("unexpected NOW recommendation: %v", result.Recommendations.Now)
	}
	if result.OverallRationale != "focus on the deadline" {
		t.Errorf("unexpected rationale: %q", result.OverallRationale)
	}
}

func TestParseBulkResult_WrappedJSON(t *testing.T) {
	t.Parallel()

	tasks := scoringTasks(1)
	content := fmt.Sprintf("Here is the result:\n```json\n{\"scores\": [], \"recommendations\": {\"later\": [%q]}}\n```", tasks[0].ID)

	result, err := ParseBulkResult(content, tasks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Recommendations.Later) != 1 {
		t.Errorf("expected 1 LATER recommendation, got %d", len(result.Recommendations.Later))
	}
}

func TestParseBulkResult_Invalid(t *testing.T) {
	t.Parallel()

	tasks := scoringTasks(2)
	unknown := uuid.New()

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			"not json",
			"sorry, I cannot help with that",
			"invalid JSON",
		},
		{
			"unknown task in scores",
			fmt.Sprintf(`{"scores": [{"task_id": %q, "score": 50, "bucket": "LATER", "confidence": 0.5}], "recommendations": {}}`, unknown),
			"unknown task",
		},
		{
			"unknown task in recommendations",
			fmt.Sprintf(`{"scores": [], "recommendations": {"now": [%q]}}`, unknown),
			"unknown task",
		},
		{
			"score out of range",
			fmt.Sprintf(`{"scores": [{"task_id": %q, "score": 150, "bucket": "NOW", "confidence": 0.5}], "recommendations": {}}`, tasks[0].ID),
			"out of range",
		},
		{
			"bad bucket",
			fmt.Sprintf(`{"scores": [{"task_id": %q, "score": 50, "bucket": "URGENT", "confidence": 0.5}], "recommendations": {}}`, tasks[0].ID),
			"invalid bucket",
		},
		{
			"confidence out of range",
			fmt.Sprintf(`{"scores": [{"task_id": %q, "score": 50, "bucket": "NOW", "confidence": 1.5}], "recommendations": {}}`, tasks[0].ID),
			"out of range",
		},
		{
			"too many in NOW",
			fmt.Sprintf(`{"scores": [], "recommendations": {"now": [%q, %q]}}`, tasks[0].ID, tasks[1].ID),
			"maximum is 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseBulkResult(tt.content, tasks)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestParseSingleScore(t *testing.T) {
	t.Parallel()

	taskID := uuid.New()

	score, err := ParseSingleScore(`{"score": 80, "bucket": "NEXT", "reasoning": "moves the goal", "confidence": 0.7}`, taskID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score.TaskID != taskID {
		t.Errorf("expected task ID to be stamped onto score")
	}
	if score.Score != 80 || string(score.Bucket) != "NEXT" {
		t.Errorf("unexpected score: %+v", score)
	}

	if _, err := ParseSingleScore(`{"score": -1, "bucket": "NEXT", "confidence": 0.5}`, taskID); err == nil {
		t.Error("expected error for negative score")
	}
	if _, err := ParseSingleScore(`{"score": 50, "bucket": "WHENEVER", "confidence": 0.5}`, taskID); err == nil {
		t.Error("expected error for invalid bucket")
	}
}

func TestSanitizeAPIKey(t *testing.T) {
	t.Parallel()

	if got := SanitizeAPIKey(""); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
	if got := SanitizeAPIKey("short"); got != RedactedValue {
		t.Errorf("expected %q, got %q", RedactedValue, got)
	}
	got := SanitizeAPIKey("sk-1234567890abcdef")
	if !strings.HasPrefix(got, "sk-1") || !strings.HasSuffix(got, "cdef") {
		t.Errorf("unexpected sanitized key: %q", got)
	}
	if !strings.Contains(got, RedactedValue) {
		t.Errorf("expected middle to be redacted: %q", got)
	}
}
