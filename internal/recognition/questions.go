package recognition

// DefaultQuestion is asked when the submitter supplies no custom
// question. It targets road debris first because that is the most
// common and most actionable incident class, then opens to anything
// else unusual.
const DefaultQuestion = "图中公路上有没有抛洒物？如果有，请描述位置和类型。如果没有，请描述图中是否有其他交通异常情况。"

// PresetQuestions are per-category follow-up prompts for interactive
// recognition.
var PresetQuestions = map[string]string{
	"debris":   "图中公路上有没有抛洒物？如果有，请描述位置和类型。",
	"accident": "图中是否有交通事故？如果有，请描述事故类型和严重程度。",
	"damage":   "图中是否有道路损坏？如果有，请描述损坏位置和类型。",
	"parking":  "图中是否有车辆违停？如果有，请描述违停位置。",
	"other":    "图中是否有其他交通异常情况？请详细描述。",
}
