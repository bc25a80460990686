package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectPlanningIntent(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    bool
	}{
		{"plan keyword", "이번 주말 데이트 계획 세워줘", true},
		{"recommend keyword", "홍대 맛집 추천해줘", true},
		{"course keyword", "성수동 데이트 코스 알려줘", true},
		{"make-it keyword", "강남에서 하루 짜줘", true},
		{"route keyword", "이태원 루트 부탁해", true},
		{"plan now sentinel", "PLAN_NOW", true},
		{"plain chat", "안녕하세요", false},
		{"empty message", "", false},
		{"english chat", "what should we eat", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectPlanningIntent(tt.message))
		})
	}
}

func TestCleanJSONResponse(t *testing.T) {
	t.Run("strips json code fence", func(t *testing.T) {
		in := "```json\n{\"a\": 1}\n```"
		assert.Equal(t, `{"a": 1}`, cleanJSONResponse(in))
	})

	t.Run("strips bare code fence", func(t *testing.T) {
		in := "```\n{\"a\": 1}\n```"
		assert.Equal(t, `{"a": 1}`, cleanJSONResponse(in))
	})

	t.Run("extracts object from surrounding prose", func(t *testing.T) {
		in := "Here is your plan:\n{\"plans\": []}\nHope that helps!"
		assert.Equal(t, `{"plans": []}`, cleanJSONResponse(in))
	})

	t.Run("keeps nested braces intact", func(t *testing.T) {
		in := `prefix {"outer": {"inner": 2}} suffix`
		assert.Equal(t, `{"outer": {"inner": 2}}`, cleanJSONResponse(in))
	})

	t.Run("returns input unchanged when no braces", func(t *testing.T) {
		assert.Equal(t, "no json here", cleanJSONResponse("no json here"))
	})
}

func TestCleanJSONArrayResponse(t *testing.T) {
	t.Run("strips fence around array", func(t *testing.T) {
		in := "```json\n[\"a\", \"b\"]\n```"
		assert.Equal(t, `["a", "b"]`, cleanJSONArrayResponse(in))
	})

	t.Run("extracts array from prose", func(t *testing.T) {
		in := "Queries: [\"Hongdae cafe\", \"Gangnam pasta\"] done"
		assert.Equal(t, `["Hongdae cafe", "Gangnam pasta"]`, cleanJSONArrayResponse(in))
	})

	t.Run("returns input unchanged when no brackets", func(t *testing.T) {
		assert.Equal(t, "nothing", cleanJSONArrayResponse("nothing"))
	})
}
