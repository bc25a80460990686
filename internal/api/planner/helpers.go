package planner

import "strings"

// GreetingSentinel is sent by the UI when the chat widget opens for the
// first time; it short-circuits to a fixed greeting with no model call.
const GreetingSentinel = "HELLO_DAISY"

// PlanNowSentinel is sent by the UI's "plan now" button and always
// classifies the turn as a planning request.
const PlanNowSentinel = "PLAN_NOW"

// planningKeywords are the Korean planning-intent markers: plan,
// recommend, course, "put it together", route.
var planningKeywords = []string{"계획", "추천", "코스", "짜줘", "루트"}

// DetectPlanningIntent classifies a user turn as a planning request or
// plain chat. Kept as a pure function so the heuristic can be tested and
// tuned in isolation from the call-making code.
func DetectPlanningIntent(message string) bool {
	if message == PlanNowSentinel {
		return true
	}
	for _, kw := range planningKeywords {
		if strings.Contains(message, kw) {
			return true
		}
	}
	return false
}

// cleanJSONResponse strips markdown code fences and surrounding prose from
// a model response, keeping the substring between the first '{' and the
// last '}'.
func cleanJSONResponse(response string) string {
	response = strings.TrimSpace(response)

	// Remove markdown code block markers
	if strings.HasPrefix(response, "```json") {
		response = strings.TrimPrefix(response, "```json")
	} else if strings.HasPrefix(response, "```") {
		response = strings.TrimPrefix(response, "```")
	}

	if strings.HasSuffix(response, "```") {
		response = strings.TrimSuffix(response, "```")
	}

	response = strings.TrimSpace(response)

	firstBrace := strings.Index(response, "{")
	if firstBrace == -1 {
		return response // No JSON found, return as is
	}

	lastBrace := strings.LastIndex(response, "}")
	if lastBrace == -1 || lastBrace <= firstBrace {
		return response // No valid JSON structure found
	}

	return strings.TrimSpace(response[firstBrace : lastBrace+1])
}

// cleanJSONArrayResponse is the array-shaped variant used for the derived
// search queries, keeping the substring between the first '[' and the
// last ']'.
func cleanJSONArrayResponse(response string) string {
	response = strings.TrimSpace(response)

	if strings.HasPrefix(response, "```json") {
		response = strings.TrimPrefix(response, "```json")
	} else if strings.HasPrefix(response, "```") {
		response = strings.TrimPrefix(response, "```")
	}
	if strings.HasSuffix(response, "```") {
		response = strings.TrimSuffix(response, "```")
	}

	response = strings.TrimSpace(response)

	firstBracket := strings.Index(response, "[")
	if firstBracket == -1 {
		return response
	}
	lastBracket := strings.LastIndex(response, "]")
	if lastBracket == -1 || lastBracket <= firstBracket {
		return response
	}

	return strings.TrimSpace(response[firstBracket : lastBracket+1])
}
