package extract

import (
	"regexp"
	"strings"

	"github.com/kalambet/huntd/internal/mail"
)

var (
	displayNoiseRe = regexp.MustCompile(`(?i)\s+(hiring|team|recruiting|careers|jobs|notifications|via|bewerbermanagement|career).*`)
	closingRe      = regexp.MustCompile(`(?i)(mit freundlichen grüßen|herzliche grüße|best regards|kind regards|viele grüße|greetings),?\s*(?:[\r\n]+.*?){0,2}[\r\n]+(.+?)(?:[\r\n]|$)`)
	subjectNoiseRe = regexp.MustCompile(`(?i)\s+(application|role|job|position|update|candidates|ist\s+abgeschlossen|received|eingegangen|for\s+the|was\b).*`)
	punctRe        = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
	urlLikeRe      = regexp.MustCompile(`(?i)(https?://|www\.|@)`)
	replyPrefixRe  = regexp.MustCompile(`(?i)^(re|aw|fwd?):\s*`)
)

// signatureWindow bounds how much of the body tail is scanned for a
// closing signature.
const signatureWindow = 1000

// Heuristic derives a Record from sender, subject, and body text alone.
// It is deterministic, side-effect free, and never fails; it is the
// terminal fallback when every provider is unavailable.
type Heuristic struct {
	lex *Lexicon
}

// NewHeuristic creates a Heuristic over the given vocabulary.
func NewHeuristic(lex *Lexicon) *Heuristic {
	return &Heuristic{lex: lex}
}

// Extract derives a full Record from the message fields.
func (h *Heuristic) Extract(subject, sender, body string) Record {
	status := h.DetectStatus(subject, body)
	if status == "" {
		status = StatusCommunication
	}

	return Record{
		Company:     h.Company(sender, body, subject),
		Status:      status,
		Summary:     summaryFor(status, subject),
		IsRejection: status == StatusRejected,
	}
}

// Company derives an employer name from the sender header, falling back
// to the body signature and then subject-line patterns. Returns
// UnknownCompany when nothing credible is found.
func (h *Heuristic) Company(sender, body, subject string) string {
	company := UnknownCompany

	name, addr := mail.ParseSender(sender)
	domain := mail.Domain(addr)

	unreliable := false
	if domain != "" {
		if h.lex.IsExcludedDomain(domain) {
			unreliable = true
		} else {
			label := domain
			if i := strings.Index(domain, "."); i > 0 {
				label = domain[:i]
			}
			if h.lex.IsGenericName(label) || h.lex.IsPlatformName(label) || len(label) <= 2 {
				unreliable = true
			} else {
				company = capitalize(label)
			}
		}
	}

	if (unreliable || company == UnknownCompany) && name != "" {
		clean := strings.TrimSpace(displayNoiseRe.ReplaceAllString(name, ""))
		if clean != "" && !h.lex.IsGenericName(clean) && !h.lex.IsPlatformName(clean) && len(clean) > 2 {
			company = clean
		}
	}

	if company == UnknownCompany && body != "" {
		if c := h.companyFromSignature(body); c != "" {
			company = c
		}
	}

	if company == UnknownCompany && subject != "" {
		if c := h.companyFromSubject(subject); c != "" {
			company = c
		}
	}

	return company
}

// companyFromSignature scans the body tail for a closing phrase and takes
// the line that follows; as a last resort, the final non-empty line when
// it is neither a link nor a generic closer.
func (h *Heuristic) companyFromSignature(body string) string {
	tail := body
	if len(tail) > signatureWindow {
		tail = tail[len(tail)-signatureWindow:]
	}

	if m := closingRe.FindStringSubmatch(tail); m != nil {
		candidate := strings.TrimSpace(m[2])
		if plausibleSignatureLine(candidate) && !h.lex.IsGenericName(candidate) {
			return candidate
		}
	}

	lines := strings.Split(tail, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if plausibleSignatureLine(line) && !h.lex.IsGenericName(line) && !urlLikeRe.MatchString(line) {
			return line
		}
		break
	}
	return ""
}

func (h *Heuristic) companyFromSubject(subject string) string {
	for _, sp := range h.lex.SubjectPatterns {
		m := sp.Pattern.FindStringSubmatch(subject)
		if m == nil || sp.Group >= len(m) {
			continue
		}
		candidate := strings.TrimSpace(m[sp.Group])
		candidate = strings.TrimSpace(subjectNoiseRe.ReplaceAllString(candidate, ""))
		candidate = strings.TrimSpace(punctRe.ReplaceAllString(candidate, ""))
		if candidate != "" {
			return candidate
		}
	}
	return ""
}

// DetectStatus scans subject+body against the ordered keyword sets.
// Returns "" when no set matches.
func (h *Heuristic) DetectStatus(subject, body string) Status {
	text := strings.ToLower(subject + " " + body)

	for _, set := range []struct {
		words  []string
		status Status
	}{
		{h.lex.Keywords.Rejected, StatusRejected},
		{h.lex.Keywords.Offer, StatusOffer},
		{h.lex.Keywords.Interview, StatusInterview},
		{h.lex.Keywords.Assessment, StatusAssessment},
		{h.lex.Keywords.Applied, StatusApplied},
	} {
		for _, w := range set.words {
			if strings.Contains(text, strings.ToLower(w)) {
				return set.status
			}
		}
	}
	return ""
}

func summaryFor(status Status, subject string) string {
	clean := strings.TrimSpace(replyPrefixRe.ReplaceAllString(strings.TrimSpace(subject), ""))
	switch status {
	case StatusApplied:
		return "Application confirmed: " + clean
	case StatusRejected:
		return "Application rejected or closed: " + clean
	case StatusInterview:
		return "Interview/Meeting related: " + clean
	case StatusOffer:
		return "Job offer received: " + clean
	case StatusAssessment:
		return "Assessment/Test task: " + clean
	case StatusCommunication:
		return "General update: " + clean
	}
	return "Interaction: " + clean
}

func plausibleSignatureLine(s string) bool {
	return len(s) > 2 && len(s) < 50
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
