package eventcontext

// The classifiers below are ordered rule lists evaluated top to bottom, so
// they can be extended or replaced without touching control flow. Keyword
// tables keep the Japanese terms alongside English ones; they are matching
// data, not user-facing text.

// TypeRule maps a keyword set to an event type. First matching rule wins.
type TypeRule struct {
	Keywords []string
	Type     string
}

// DefaultTypeRules is the ranked event-type table.
func DefaultTypeRules() []TypeRule {
	return []TypeRule{
		{Keywords: []string{"会議", "ミーティング", "meeting"}, Type: "meeting"},
		{Keywords: []string{"面談", "面接", "interview"}, Type: "interview"},
		{Keywords: []string{"研修", "セミナー", "training"}, Type: "training"},
		{Keywords: []string{"プレゼン", "発表", "presentation"}, Type: "presentation"},
		{Keywords: []string{"会食", "飲み会", "dinner"}, Type: "social"},
		{Keywords: []string{"移動", "出張", "travel"}, Type: "travel"},
		{Keywords: []string{"締切", "deadline"}, Type: "deadline"},
	}
}

// TravelRule maps location keywords to a coarse travel-time estimate in
// minutes. First matching rule wins; unmatched locations fall back to
// defaultTravelMinutes.
type TravelRule struct {
	Keywords []string
	Minutes  int
}

// DefaultTravelRules is the coarse travel-time estimation table.
func DefaultTravelRules() []TravelRule {
	return []TravelRule{
		{Keywords: []string{"オンライン", "online", "zoom", "teams", "google meet", "meet.google", "skype", "webex"}, Minutes: 0},
		{Keywords: []string{"会議室", "オフィス", "office", "room"}, Minutes: 5},
		{Keywords: []string{"駅", "空港", "station", "airport"}, Minutes: 45},
	}
}

const defaultTravelMinutes = 30

// Keyword sets feeding the importance score and the preparation flag.
var (
	urgencyKeywords     = []string{"重要", "緊急", "至急", "urgent", "important", "critical"}
	authorityKeywords   = []string{"会議", "面談", "ceo", "役員", "board"}
	preparationKeywords = []string{"プレゼン", "発表", "presentation", "interview", "meeting", "training", "資料", "準備", "prepare"}
	// A bare "meet" would swallow physical locations like "Meeting Room 3",
	// so only the Google Meet spellings count as virtual.
	virtualKeywords = []string{"オンライン", "online", "zoom", "teams", "google meet", "meet.google", "skype", "webex"}
)

// DefaultEventType is used when no type rule matches.
const DefaultEventType = "general"
