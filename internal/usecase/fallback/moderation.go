package fallback

import (
	"strings"

	"github.com/tenang-cloud/mindgate/internal/domain/answer"
)

// moderationText is the fixed reply for messages touching banned topics.
const moderationText = "Maaf, saya tidak dapat membahas topik tersebut. Mari kita fokus pada hal-hal yang dapat membantu kesehatan mental kamu. Bagaimana perasaanmu hari ini?"

// DefaultBannedWords lists topics the assistant refuses to discuss.
// Configurable per deployment; this is the shipped default.
var DefaultBannedWords = []string{
	"kafir", "bom", "gay", "lesbi", "trans", "transgender", "homo",
	"dick", "iblis", "lonte", "pokkai", "agama", "islam", "kristen",
	"buddha", "hindu", "konghucu", "yahudi", "genoshida", "genosida",
	"perang",
}

// Moderated reports whether the message contains any banned word.
func Moderated(message string, banned []string) bool {
	msg := strings.ToLower(message)
	for _, word := range banned {
		if word != "" && strings.Contains(msg, strings.ToLower(word)) {
			return true
		}
	}
	return false
}

// ModerationAnswer returns the canned refusal shown instead of querying
// the inference service.
func ModerationAnswer() answer.Answer {
	return answer.New(moderationText, 1, "moderation", nil, nil, nil)
}
