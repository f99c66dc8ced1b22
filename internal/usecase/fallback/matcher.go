package fallback

import (
	"math/rand"
	"regexp"
	"strings"
	"sync"

	"github.com/tenang-cloud/mindgate/internal/domain/answer"
)

// fallbackConfidence marks locally generated answers so clients can tell
// them from inference results.
const fallbackConfidence = 0.0

// Response categories decide which template set shapes the final text.
var categoryPatterns = []struct {
	category string
	pattern  *regexp.Regexp
}{
	{"validasi", regexp.MustCompile(`(?i)esteem|worth|insecure|imposter|self_care|self_blame|lack_of_support|depression|isolation|loneliness|validation|not valued|guilt|overthinking`)},
	{"motivasi", regexp.MustCompile(`(?i)motivation|burnout|loss|stuck|semangat|direction|purpose|motivasi`)},
	{"tips", regexp.MustCompile(`(?i)stress|anxiety|academic|pressure|procrastination|focus|structure|identity|deadline|financial|overwhelmed`)},
	{"edukasi", regexp.MustCompile(`(?i)reflection|refleksi|identity_crisis|about_mindfulness|use_cases|limitations|general_wellbeing_check|self_care_neglect`)},
	{"relasi", regexp.MustCompile(`(?i)relationship|peer|family|social|comparison|relasi|hubungan`)},
}

func categoryFor(intent string) string {
	for _, cp := range categoryPatterns {
		if cp.pattern.MatchString(intent) {
			return cp.category
		}
	}
	return "umum"
}

type template func(keyword, context, response string) string

var templates = map[string][]template{
	"motivasi": {
		func(k, ctx, resp string) string {
			return `Langkahmu menghadapi "` + k + `" sangat berani. ` + resp + ` Kadang memang berat, tapi ketekunanmu akan membuahkan hasil.`
		},
		func(k, ctx, resp string) string {
			return `Tidak semua orang berani terbuka soal "` + k + `". ` + ctx + ` ` + resp + ` Ingat, setiap usaha yang kamu lakukan itu penting.`
		},
		func(k, ctx, resp string) string {
			return `Menghadapi "` + k + `" memang tidak mudah. ` + ctx + ` Tapi kamu sudah membuktikan bisa bertahan. ` + resp
		},
		func(k, ctx, resp string) string {
			return `Kamu sudah membuktikan bahwa kamu tidak menyerah pada "` + k + `". ` + resp + ` Satu langkah kecil setiap hari tetap berarti.`
		},
	},
	"validasi": {
		func(k, ctx, resp string) string {
			return `Normal jika kamu merasa "` + k + `". ` + ctx + ` ` + resp + ` Perasaanmu sangat valid dan layak untuk diterima.`
		},
		func(k, ctx, resp string) string {
			return `Kamu tidak sendiri merasakan "` + k + `". ` + resp + ` Banyak orang juga pernah di posisi itu dan bisa melalui masa sulitnya.`
		},
		func(k, ctx, resp string) string {
			return `Mengakui perasaan seperti "` + k + `" adalah langkah awal yang baik. ` + resp + ` Jika ingin berbagi lebih dalam, aku siap mendengarkan.`
		},
		func(k, ctx, resp string) string {
			return `Kadang kita hanya ingin didengar saat merasa "` + k + `". ` + ctx + ` Aku di sini untukmu. ` + resp
		},
	},
	"tips": {
		func(k, ctx, resp string) string {
			return `Menghadapi "` + k + `" memang butuh strategi khusus. ` + ctx + ` ` + resp + ` Cobalah mulai dari langkah kecil yang bisa kamu lakukan sekarang.`
		},
		func(k, ctx, resp string) string {
			return `Jika "` + k + `" membuatmu kewalahan, jangan ragu minta bantuan atau dukungan. ` + resp
		},
		func(k, ctx, resp string) string {
			return `Saat kamu mengalami "` + k + `", penting untuk mengatur waktu istirahat dan menentukan prioritas. ` + resp
		},
		func(k, ctx, resp string) string {
			return `Tekanan karena "` + k + `" bisa diredakan dengan berbagi cerita ke teman atau mengatur napas dalam. ` + resp
		},
	},
	"edukasi": {
		func(k, ctx, resp string) string {
			return `Pertanyaanmu tentang "` + k + `" sangat bagus! ` + resp + ` Jika butuh penjelasan lebih detail, aku siap membantu.`
		},
		func(k, ctx, resp string) string {
			return `Info tentang "` + k + `" sangat penting untuk kesehatan mental. ` + ctx + ` ` + resp
		},
		func(k, ctx, resp string) string {
			return `Bertanya tentang "` + k + `" adalah bentuk kepedulian pada diri sendiri. ` + ctx + ` ` + resp
		},
	},
	"relasi": {
		func(k, ctx, resp string) string {
			return `Relasi soal "` + k + `" memang sering menyisakan perasaan campur aduk. ` + resp + ` Kamu berhak mendapat dukungan yang sehat.`
		},
		func(k, ctx, resp string) string {
			return `Permasalahan "` + k + `" itu wajar dalam hubungan. ` + ctx + ` ` + resp + ` Jangan ragu untuk terbuka pada orang terdekat.`
		},
		func(k, ctx, resp string) string {
			return `Terkadang, support system sangat berarti saat kamu berhadapan dengan "` + k + `". ` + ctx + ` ` + resp
		},
	},
	"umum": {
		func(k, ctx, resp string) string { return resp },
		func(k, ctx, resp string) string {
			return `Terima kasih sudah bercerita tentang "` + k + `". ` + resp
		},
		func(k, ctx, resp string) string {
			return `Aku paham kekhawatiranmu soal "` + k + `". ` + resp
		},
		func(k, ctx, resp string) string {
			return `Semoga jawaban ini bisa membantu kamu menghadapi "` + k + `". ` + resp
		},
	},
}

// Matcher answers messages from the keyword-indexed corpus. Safe for
// concurrent use; Reload swaps the corpus in place.
type Matcher struct {
	mu    sync.RWMutex
	index []indexEntry

	pick func(n int) int
}

// NewMatcher builds a matcher over the given corpus entries.
func NewMatcher(entries []Entry) *Matcher {
	return &Matcher{
		index: buildIndex(entries),
		pick:  rand.Intn,
	}
}

// Reload replaces the corpus. In-flight Match calls finish against the
// old index.
func (m *Matcher) Reload(entries []Entry) {
	index := buildIndex(entries)
	m.mu.Lock()
	m.index = index
	m.mu.Unlock()
}

// Size returns the number of indexed keywords.
func (m *Matcher) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.index)
}

// Match finds the longest corpus keyword contained in the message and
// shapes a templated answer for its intent category. Returns false when
// no keyword matches.
func (m *Matcher) Match(message string) (answer.Answer, bool) {
	msg := strings.ToLower(message)

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, entry := range m.index {
		if !strings.Contains(msg, entry.keyword) {
			continue
		}
		category := categoryFor(entry.intent)
		set := templates[category]
		text := set[m.pick(len(set))](entry.keyword, entry.context, entry.response)
		a := answer.New(
			text, fallbackConfidence, entry.intent,
			[]string{entry.keyword}, entry.followUps, entry.followUpAnswers,
		)
		return a, true
	}
	return answer.Answer{}, false
}
