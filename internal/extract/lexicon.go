package extract

import (
	"regexp"
	"strings"
)

// SubjectPattern extracts a company name from a subject line. Group names
// the capture group holding the candidate.
type SubjectPattern struct {
	Pattern *regexp.Regexp
	Group   int
}

// StatusKeywords holds the ordered keyword sets used for status detection.
// Scanning order is rejected > offer > interview > assessment > applied;
// the first matching set wins.
type StatusKeywords struct {
	Rejected   []string
	Offer      []string
	Interview  []string
	Assessment []string
	Applied    []string
}

// Lexicon is the immutable domain vocabulary shared by the heuristic
// extractor, the correction pass, the entity resolver, and the process
// mutator. Construct once (DefaultLexicon or from config) and pass by
// pointer; never mutate after construction.
type Lexicon struct {
	// SharedPlatformDomains are mail domains operated by ATS vendors on
	// behalf of many employers. Useless for identity matching, but tier-6
	// resolution needs to positively recognize them.
	SharedPlatformDomains map[string]bool

	// PublicDomains are consumer webmail domains.
	PublicDomains map[string]bool

	// SharedEmails are well-known notification addresses that must never
	// be learned as company aliases.
	SharedEmails map[string]bool

	// GenericNames are display-name tokens that carry no employer identity.
	GenericNames map[string]bool

	// PlatformNames are ATS product names a provider may mistake for the
	// employer ("Workday" instead of the actual company).
	PlatformNames map[string]bool

	// CompanySuffixes are trailing corporate/location tokens stripped
	// iteratively during name normalization.
	CompanySuffixes []string

	// FillerWords are generic tokens removed before containment matching.
	FillerWords []string

	SubjectPatterns []SubjectPattern
	Keywords        StatusKeywords
}

// DefaultLexicon returns the built-in vocabulary.
func DefaultLexicon() *Lexicon {
	return &Lexicon{
		SharedPlatformDomains: toSet(
			"myworkdayjobs.com", "myworkday.com", "successfactors.eu",
			"successfactors.com", "greenhouse.io", "smartrecruiters.com",
			"lever.co", "ashby.io", "ashbyhq.com", "jobvite.com",
			"breezy.hr", "recruitee.com", "personio.de", "personio.com",
			"workable.com",
		),
		PublicDomains: toSet(
			"gmail.com", "yahoo.com", "outlook.com", "hotmail.com",
			"icloud.com", "me.com", "live.com", "msn.com",
			"web.de", "gmx.de", "t-online.de",
		),
		SharedEmails: toSet(
			"notifications@smartrecruiters.com",
			"no-reply@successfactors.com",
			"noreply@myworkday.com",
			"no-reply@greenhouse.io",
			"notifications@ashby.io",
		),
		GenericNames: toSet(
			"hiring", "team", "recruiting", "careers", "jobs",
			"notifications", "via", "bewerbermanagement", "career",
			"system", "hr", "human resources", "talent acquisition",
			"people team", "recruitment", "hiring team", "no-reply",
			"noreply",
		),
		PlatformNames: toSet(
			"workday", "greenhouse", "smartrecruiters", "lever", "ashby",
			"jobvite", "breezy", "recruitee", "personio", "workable",
			"successfactors", "sap",
		),
		CompanySuffixes: []string{
			"gmbh", "ag", "inc", "ltd", "co", "kg", "plc", "se", "corp",
			"corporation", "holding", "group", "germany", "deutschland",
			"berlin", "europe", "emea", "international", "solutions",
			"systems", "technology", "technologies", "successfactors",
			"workday", "greenhouse",
		},
		FillerWords: []string{
			"group", "systems", "solutions", "holding", "limited",
		},
		SubjectPatterns: []SubjectPattern{
			{Pattern: regexp.MustCompile(`(?i)your application (?:at|to|with|for) (.+)`), Group: 1},
			{Pattern: regexp.MustCompile(`(?i)deine bewerbung bei (.+)`), Group: 1},
			{Pattern: regexp.MustCompile(`(?i)ihre bewerbung bei (.+)`), Group: 1},
			{Pattern: regexp.MustCompile(`(?i)application (?:to|at) (.+?) was`), Group: 1},
			{Pattern: regexp.MustCompile(`(?i)thank you for applying (?:at|to|with) (.+)`), Group: 1},
		},
		Keywords: StatusKeywords{
			Rejected: []string{
				"regret", "unfortunately", "not moving forward",
				"other candidates", "declined", "leider", "absage",
				"nicht weiter",
			},
			Offer: []string{
				"offer", "pleased to offer", "congratulations",
				"vertragsangebot",
			},
			Interview: []string{
				"interview", "meet with", "schedule a time",
				"availability", "vorstellungsgespräch",
			},
			Assessment: []string{
				"assessment", "coding challenge", "take-home",
				"hackerrank", "codility", "eignungstest",
			},
			Applied: []string{
				"received", "thank you for applying",
				"application confirmation", "eingegangen",
				"bewerbung erhalten",
			},
		},
	}
}

// IsExcludedDomain reports whether domain carries no employer identity:
// either an ATS-operated shared domain or consumer webmail. Substring
// matching covers tenant subdomains like acme.wd3.myworkdayjobs.com.
func (l *Lexicon) IsExcludedDomain(domain string) bool {
	domain = strings.ToLower(domain)
	if l.PublicDomains[domain] {
		return true
	}
	return l.IsSharedPlatformDomain(domain)
}

// IsSharedPlatformDomain reports whether domain belongs to a shared ATS.
func (l *Lexicon) IsSharedPlatformDomain(domain string) bool {
	domain = strings.ToLower(domain)
	if l.SharedPlatformDomains[domain] {
		return true
	}
	for p := range l.SharedPlatformDomains {
		if strings.HasSuffix(domain, "."+p) {
			return true
		}
	}
	return false
}

// IsSharedEmail reports whether addr is a known multi-employer sender.
func (l *Lexicon) IsSharedEmail(addr string) bool {
	addr = strings.ToLower(strings.TrimSpace(addr))
	if l.SharedEmails[addr] {
		return true
	}
	if at := strings.LastIndex(addr, "@"); at >= 0 {
		return l.IsExcludedDomain(addr[at+1:])
	}
	return false
}

// IsGenericName reports whether name is a no-identity display-name token.
func (l *Lexicon) IsGenericName(name string) bool {
	return l.GenericNames[strings.ToLower(strings.TrimSpace(name))]
}

// IsPlatformName reports whether name is an ATS product name.
func (l *Lexicon) IsPlatformName(name string) bool {
	return l.PlatformNames[strings.ToLower(strings.TrimSpace(name))]
}

var namePunctRe = regexp.MustCompile(`[^\p{L}\p{N} ]+`)

// minCompareLen guards fuzzy name comparison against short-token false
// positives ("co" contained in "costco").
const minCompareLen = 4

// NormalizeCompany lowercases name, strips punctuation, collapses
// whitespace, and iteratively strips trailing corporate/location
// suffixes. Idempotent. A single-token name is never stripped to empty.
func (l *Lexicon) NormalizeCompany(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = namePunctRe.ReplaceAllString(s, " ")
	s = strings.Join(strings.Fields(s), " ")
	for {
		stripped := false
		for _, suf := range l.CompanySuffixes {
			if strings.HasSuffix(s, " "+suf) {
				s = strings.TrimSpace(strings.TrimSuffix(s, " "+suf))
				stripped = true
			}
		}
		if !stripped {
			return s
		}
	}
}

// CompanyNamesMatch reports whether two employer names plausibly refer to
// the same company: exact match after normalization, acronym match in
// either direction, or containment after filler-word removal. Symmetric.
func (l *Lexicon) CompanyNamesMatch(a, b string) bool {
	na, nb := l.NormalizeCompany(a), l.NormalizeCompany(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	if acronymMatch(na, nb) || acronymMatch(nb, na) {
		return true
	}
	if len(na) < minCompareLen || len(nb) < minCompareLen {
		return false
	}
	ca, cb := l.stripFiller(na), l.stripFiller(nb)
	if len(ca) < minCompareLen || len(cb) < minCompareLen {
		return false
	}
	return strings.Contains(ca, cb) || strings.Contains(cb, ca)
}

// acronymMatch reports whether acr equals the initials of name's words.
func acronymMatch(acr, name string) bool {
	if len(acr) < 2 || strings.Contains(acr, " ") {
		return false
	}
	words := strings.Fields(name)
	if len(words) < 2 || len(words) != len(acr) {
		return false
	}
	for i, w := range words {
		if acr[i] != w[0] {
			return false
		}
	}
	return true
}

func (l *Lexicon) stripFiller(name string) string {
	words := strings.Fields(name)
	kept := words[:0]
	for _, w := range words {
		filler := false
		for _, f := range l.FillerWords {
			if w == f {
				filler = true
				break
			}
		}
		if !filler {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

func toSet(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, s := range items {
		m[s] = true
	}
	return m
}
