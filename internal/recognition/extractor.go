package recognition

import (
	"regexp"
	"strings"
)

// Confidence levels assigned by the extractor. The values are coarse
// by design: the answer text carries no calibrated probability, so the
// extractor grades it into three bands that the decision engine keys
// off (below 0.3 never auto-approves, 0.6 is the default approval
// threshold).
const (
	ConfidenceKeywordMatch = 0.7
	ConfidenceNoMatch      = 0.5
	ConfidenceNegated      = 0.3
)

// Signal is the structured extraction from one model answer.
type Signal struct {
	EventType   string  `json:"event_type,omitempty"` // canonical category, empty when negated
	Confidence  float64 `json:"confidence"`
	Location    string  `json:"location,omitempty"`
	Description string  `json:"description"` // echo of the raw answer
}

// category pairs a canonical event type with its synonym keywords.
// Order matters: the first category with any matching keyword wins.
type category struct {
	name     string
	keywords []string
}

var categories = []category{
	{"debris", []string{
		"抛洒物", "垃圾", "杂物", "障碍物", "散落", "掉落",
		"debris", "litter", "obstruction", "fallen object", "spillage",
	}},
	{"accident", []string{
		"事故", "碰撞", "追尾", "刮擦", "侧翻", "撞车",
		"accident", "collision", "crash", "rear-end", "rollover",
	}},
	{"damage", []string{
		"损坏", "坑洞", "裂缝", "破损", "塌陷", "坑洼",
		"pothole", "crack", "damaged", "sinkhole", "road damage",
	}},
	{"parking", []string{
		"违停", "乱停", "占道", "违规停车",
		"illegal parking", "illegally parked", "double parked",
	}},
	{"other", []string{
		"异常", "故障", "堵塞", "拥堵",
		"congestion", "breakdown", "blockage", "anomaly",
	}},
}

// negationMarkers indicate the model saw nothing. Negation dominates:
// an answer like 未发现抛洒物 contains a category keyword but must not
// be treated as a detection.
var negationMarkers = []string{
	"没有", "无", "不存在", "未发现", "未看到", "看不到",
	"none", "not present", "no sign of", "nothing unusual", "not found",
}

// locationPatterns are tried in order; the first capture wins.
var locationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`位置[：:]\s*([^，。\n]+)`),
	regexp.MustCompile(`地点[：:]\s*([^，。\n]+)`),
	regexp.MustCompile(`在([^，。\n]+)(?:处|位置|地点)`),
	regexp.MustCompile(`(?i)location[：:]\s*([^,.\n]+)`),
	regexp.MustCompile(`(?i)\bat\s+(?:the\s+)?([^,.\n]+)`),
}

// ExtractSignal parses an unstructured model answer into a Signal. It
// never fails: malformed or empty text degrades to the no-match
// default. Only the model invocation itself can error, and that is the
// recognizer's concern.
func ExtractSignal(answer, question string) Signal {
	signal := Signal{
		Confidence:  ConfidenceNoMatch,
		Description: answer,
	}

	answerLower := strings.ToLower(answer)

	matched := ""
	for _, cat := range categories {
		for _, kw := range cat.keywords {
			if strings.Contains(answer, kw) || strings.Contains(answerLower, strings.ToLower(kw)) {
				matched = cat.name
				break
			}
		}
		if matched != "" {
			break
		}
	}

	negated := false
	for _, marker := range negationMarkers {
		if strings.Contains(answer, marker) || strings.Contains(answerLower, marker) {
			negated = true
			break
		}
	}

	switch {
	case negated:
		// Negation dominates any keyword match.
		signal.EventType = ""
		signal.Confidence = ConfidenceNegated
	case matched != "":
		signal.EventType = matched
		signal.Confidence = ConfidenceKeywordMatch
	default:
		signal.EventType = "other"
		signal.Confidence = ConfidenceNoMatch
	}

	signal.Location = extractLocation(answer)

	return signal
}

// extractLocation is best-effort and never fails the extraction.
func extractLocation(answer string) string {
	for _, pattern := range locationPatterns {
		if m := pattern.FindStringSubmatch(answer); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}
