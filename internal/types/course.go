package types

// StepCategory classifies a course step.
type StepCategory string

const (
	CategoryMeal          StepCategory = "Meal"
	CategoryCafe          StepCategory = "Cafe"
	CategoryActivity      StepCategory = "Activity"
	CategoryAccommodation StepCategory = "Accommodation"
)

// TransportMode is how the user plans to move between steps. Routing is
// always computed as pedestrian geometry regardless; the mode only drives
// presentation (parking info for "car").
type TransportMode string

const (
	TransportCar    TransportMode = "car"
	TransportPublic TransportMode = "public"
	TransportWalk   TransportMode = "walk"
)

// PlaceDetail is the rich detail block attached to a course step. The
// GooglePlaceID links the step back to the candidate it was assembled from.
type PlaceDetail struct {
	ImageURL      string   `json:"imageUrl,omitempty"`
	Rating        *float64 `json:"rating,omitempty"`
	ReviewCount   *int     `json:"reviewCount,omitempty"`
	PriceRange    string   `json:"priceRange,omitempty"`
	Reviews       []string `json:"reviews,omitempty"`
	OpeningHours  string   `json:"openingHours,omitempty"`
	BookingURL    string   `json:"bookingUrl,omitempty"`
	GooglePlaceID string   `json:"googlePlaceId,omitempty"`
}

// CourseStep is one place visit within a plan. DistanceFromPrev and
// TimeFromPrev are set on steps after the first; PathToNext is the route
// geometry from this step to the next and is set on non-terminal steps.
type CourseStep struct {
	PlaceName        string       `json:"placeName"`
	Category         StepCategory `json:"category"`
	Description      string       `json:"description"`
	Duration         string       `json:"duration"`
	Location         LatLng       `json:"location"`
	DistanceFromPrev string       `json:"distanceFromPrev,omitempty"`
	TimeFromPrev     string       `json:"timeFromPrev,omitempty"`
	PathToNext       []LatLng     `json:"pathToNext,omitempty"`
	Detail           *PlaceDetail `json:"detail,omitempty"`
}

// CoursePlan is one complete proposed itinerary (3-6 steps).
type CoursePlan struct {
	ID             string        `json:"id"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	TotalDuration  string        `json:"totalDuration"`
	Transportation TransportMode `json:"transportation"`
	Steps          []CourseStep  `json:"steps"`
	TotalDistance  string        `json:"totalDistance,omitempty"`
	ParkingInfo    string        `json:"parkingInfo,omitempty"`
}

// CourseResponse is the full chat-turn result returned to the client.
type CourseResponse struct {
	ConversationResponse string       `json:"conversationResponse"`
	Plans                []CoursePlan `json:"plans,omitempty"`
	SuggestedReplies     []string     `json:"suggestedReplies,omitempty"`
}

// HistoryMessage is one prior turn of the conversation, supplied by the
// caller on every request. The planner itself is stateless across calls.
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the payload of POST /api/v1/chat.
type ChatRequest struct {
	Message       string           `json:"message"`
	History       []HistoryMessage `json:"history,omitempty"`
	SystemContext string           `json:"systemContext,omitempty"`
	TransportMode TransportMode    `json:"transportMode,omitempty"`
}
