package planner

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/daisydate/go-date-course-planner/internal/types"
)

// fallbackSearchContext replaces the candidate list when the search phase
// fails end to end; the model is told to hedge instead of fabricating data.
const fallbackSearchContext = "Search failed. Try to recommend famous places if possible, but warn the user."

func formatHistory(history []types.HistoryMessage) string {
	lines := make([]string, 0, len(history))
	for _, msg := range history {
		lines = append(lines, fmt.Sprintf("%s: %s", msg.Role, msg.Content))
	}
	return strings.Join(lines, "\n")
}

// buildQueryPrompt asks the model to derive 4-5 Google Maps search queries
// from the conversation so far. Explicitly named places are priority one so
// the search phase actually finds them.
func buildQueryPrompt(userMessage, systemContext, historyText string) string {
	return fmt.Sprintf(`
            The user wants a complete date course.
            Analyze the CONVERSATION HISTORY and SYSTEM CONTEXT.
            Determine the Target Region (e.g. Gangnam, Hongdae). If not found, infer from user message.

            CRITICAL INSTRUCTION:
            If the user explicitly mentions specific place names (e.g., "I want to go to [Place Name]"),
            YOU MUST include that specific place name as one of the search queries to ensure it is found.

            Generate 4-5 Google Maps Search Queries to split across:
            1. **Specific Requested Places** (Priority 1)
            2. Restaurant (Meal)
            3. Cafe
            4. Activity (e.g. Workshop, Walk, Exhibition)

            System Context: %s
            Conversation History:
            %s
            Current Message: "%s"

            Return JSON ARRAY of strings only. Example: ["Yeonnam Toma Main Branch", "Sinseon Hwaro", "Hongdae quiet cafe"]
        `, systemContext, historyText, userMessage)
}

// candidateSummary is the compact projection of a candidate place that goes
// into the planning prompt. Opening hours are summarized and the photo is
// reduced to a presence flag to keep token usage down.
type candidateSummary struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Category     *string      `json:"category"`
	Rating       *float64     `json:"rating"`
	Count        *int         `json:"count"`
	Address      string       `json:"address"`
	Location     types.LatLng `json:"location"`
	OpenNow      *bool        `json:"openNow"`
	OpeningHours any          `json:"openingHours"`
	Photo        string       `json:"photo"`
}

// buildSearchContext serializes the fused candidate pool for the planning
// prompt. The model is instructed to choose only from this list.
func buildSearchContext(candidates []types.Place) (string, error) {
	summaries := make([]candidateSummary, 0, len(candidates))
	for _, p := range candidates {
		s := candidateSummary{
			ID:       p.ID,
			Title:    p.Title,
			Category: p.Category,
			Rating:   p.Rating,
			Count:    p.UserRatingCount,
			Address:  p.Address,
			Location: p.Location,
			OpenNow:  p.OpenNow,
			Photo:    "None",
		}
		if len(p.OpeningHours) > 0 {
			s.OpeningHours = p.OpeningHours
		} else {
			s.OpeningHours = "Unknown"
		}
		if p.PhotoURL != nil && *p.PhotoURL != "" {
			s.Photo = "Available"
		}
		summaries = append(summaries, s)
	}

	data, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize candidate places: %w", err)
	}

	return fmt.Sprintf(`
            AVAILABLE REAL PLACES (You MUST choose from this list for the plans):
            %s
            `, string(data)), nil
}

// buildPlanningPrompt builds the Daisy persona prompt covering both the
// chat-only and plan-generation paths. The same template serves both; the
// Intent line tells the model which mode applies.
func buildPlanningPrompt(userMessage, systemContext, historyText, searchContext string, transportMode types.TransportMode, isPlanningRequest bool) string {
	intent := "CHAT_ONLY"
	if isPlanningRequest {
		intent = "GENERATE_PLAN"
	}

	return fmt.Sprintf(`
        You are "Daisy" (데이지), a Date Course Planner AI.

        ⛔ CRITICAL: STRICT SCOPE ENFORCEMENT ⛔
        You are EXCLUSIVELY designed for:
        1. Creating date courses (데이트 코스 추천)
        2. Recommending activities and places for dates (활동 및 장소 추천)

        **STRICTLY PROHIBITED**:
        - All general questions (e.g., "What's the weather?", "Tell me a joke", "How are you?")
        - Coding, programming, or technical assistance
        - Math problems or calculations
        - Translation requests (unless directly related to finding date places)
        - General knowledge questions
        - Any other topics unrelated to date planning

        **If the user asks ANYTHING outside your scope**:
        - Politely decline: "죄송해요, 저는 데이트 코스 추천만 도와드릴 수 있어요! 데이트 계획에 대해 물어봐 주세요. 😊"
        - Do NOT attempt to answer the question
        - Do NOT generate any plans
        - Suggest date-related topics instead

        CONTEXT:
        - System: %s
        - Transport: %s (Even if this is 'car', the map path will be walking, but 'parkingInfo' is needed).
        - History:
        %s
        - User: %s
        - Intent: %s

        SEARCH RESULTS:
        %s

        INSTRUCTIONS:
        1. **CHAT ONLY**:
           - **NO GREETING REPETITION**: If there is conversation history, DO NOT say "안녕하세요" or introduce yourself again. You already greeted the user.
           - **NO REDUNDANT QUESTIONS**: Do NOT ask for information already provided in the CONTEXT (e.g., if 'Partner' is known, don't ask "Who are you with?").
           - **Use Context Intelligently**: If 'Partner' is 'Blind Date', implicitly suggest quiet/atmosphere-focused places. If 'Friend', suggest trendy/fun places.
           - Answer warmly but VERY concisely (Max 2 sentences).
           - Ask a *relevant* follow-up question based on what is missing (e.g., "Food preference" or "Vibe").

        2. **GENERATE PLAN**:
           - **Context-Aware**: Optimize the course for the Partner and Time (e.g., "Blind Date" -> Romantic/Quiet, "Friend" -> Hip/Active).
           - If user wants a plan, generate 3 distinct options (Plan A, B, C).
           - **Not necessary, but important**: The generated plans must avoid **OVERLAPPING** in their main places (Restaurants, Cafes, Activity Spots). VALIDATE that Plan B does not use places from Plan A, and Plan C does not use places from A or B.
           - **Flexible Length**: Each plan should have **3 to 6 steps** based on the flow (e.g. Meal->Cafe->Walk->Detail).
           - **Specific Request**: If user asked for "Peach Pudding", YOU MUST INCLUDE IT if found in Search Results.
           - **Data**: USE ONLY Real Data from Search Results.
           - **Time Check**: Check 'openingHours' of places. Ensure recommended places are OPEN at the likely visit time.
           - **Parking**: Include 'parkingInfo' if Transport is 'car'.
           - **Language**: Korean.

        Response Format (JSON):
        {
          "conversationResponse": "Concise (1-2 sentences) Korean response ending with a direct question.",
          "suggestedReplies": ["Keyword 1", "Keyword 2", "Keyword 3"], // Simple, clear keywords (e.g. "Gangnam", "Italian", "Quiet")
          "plans": [
            {
              "id": "A",
              "title": "Title",
              "description": "Summary",
              "totalDuration": "Estimate",
              "transportation": "%s",
              "parkingInfo": "Parking tips...",
              "steps": [
                 { "placeName": "...", "category": "...", "description": "...", "duration": "...", "location": { "lat": 0, "lng": 0 }, "detail": { "googlePlaceId": "..." } }
              ]
            }
          ]
        }
    `, systemContext, transportMode, historyText, userMessage, intent, searchContext, transportMode)
}
