package scraper

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// disciplineCode pairs an FFE two-letter code with its display name
// and the compiled pattern matching that code in context, ported from
// original_source/backend/services/scraper.py's FFE_DISCIPLINES table.
type disciplineCode struct {
	name    string
	pattern *regexp.Regexp
}

var disciplineCodes = func() []disciplineCode {
	codes := map[string]string{
		"AT": "Attelage", "CSO": "CSO", "CCE": "CCE", "DR": "Dressage",
		"HU": "Hunter", "EN": "Endurance", "WE": "Western", "VO": "Voltige",
		"EQ": "Équitation", "PO": "Pony Games",
	}
	// Fixed iteration order keeps extraction deterministic across runs.
	order := []string{"AT", "CSO", "CCE", "DR", "HU", "EN", "WE", "VO", "EQ", "PO"}
	out := make([]disciplineCode, 0, len(order))
	for _, code := range order {
		out = append(out, disciplineCode{
			name:    codes[code],
			pattern: regexp.MustCompile(`(?i)\b` + code + `\s+(?:Amateur|Club|Pro|Poney)`),
		})
	}
	return out
}()

// disciplineNames is the fallback full-name list, checked in order
// when no two-letter code pattern matches.
var disciplineNames = []string{
	"Attelage", "Dressage", "Hunter", "Endurance", "Western", "Voltige",
}

// nameExclusions blocks generic boilerplate strings the FFE site
// repeats on every page from being mistaken for an event name.
var nameExclusions = []string{"ffe compet", "ffecompet", "fiche concours"}

var (
	namePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)([A-ZÀ-Ÿ][^<\n]{10,80}?)\s*Organis[ée]\s+par`),
		regexp.MustCompile(`(?i)>([^<]*(?:Championnat|Grand Prix|Derby|Challenge)[^<]{5,50})<`),
		regexp.MustCompile(`(?i)Intitul[ée][^:]*:\s*([^<\n]+)`),
	}
	titlePattern = regexp.MustCompile(`(?i)^[^-]+-\s*([A-ZÀ-Ÿ][A-Za-zÀ-ÿ\s\-']+?)(?:\s*-|\s*$)`)
	addressPattern = regexp.MustCompile(`(\d{5}\s+[A-ZÀ-Ÿ][A-Za-zÀ-ÿ\s\-']+)`)
	datePattern    = regexp.MustCompile(`\d{2}/\d{2}/\d{4}`)
	organizerPattern = regexp.MustCompile(`(?i)Organisateur[^:]*:\s*([^<\n]+)`)
	contactEmailPattern = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)
	entryFeePattern     = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(?:€|EUR)`)
	maxParticipantsPattern = regexp.MustCompile(`(?i)(?:places?\s+limit[ée]es?\s+[àa]|maximum\s+de)\s+(\d+)\s+(?:participants?|chevaux|engag[ée]s?)`)

	openPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)[Oo]uvert(?:e)?(?:s)?\s+aux\s+engagements`),
		regexp.MustCompile(`(?i)[Ee]ngagements?\s+ouverts?`),
		regexp.MustCompile(`(?i)[Ii]nscriptions?\s+ouvertes?`),
	}
	demandePattern = regexp.MustCompile(`(?i)demande\s+de\s+participation`)
)

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func extractName(html string) string {
	for _, pat := range namePatterns {
		for _, match := range pat.FindAllStringSubmatch(html, -1) {
			if len(match) < 2 {
				continue
			}
			name := collapseSpace(strings.TrimSpace(match[1]))
			name = strings.ReplaceAll(name, "&amp;", "&")
			name = strings.ReplaceAll(name, "&#39;", "'")
			if len(name) <= 10 {
				continue
			}
			lower := strings.ToLower(name)
			excluded := false
			for _, excl := range nameExclusions {
				if strings.Contains(lower, excl) {
					excluded = true
					break
				}
			}
			if !excluded {
				return name
			}
		}
	}
	return ""
}

func extractVenue(doc *goquery.Document) string {
	if title := doc.Find("title").First().Text(); title != "" {
		if m := titlePattern.FindStringSubmatch(title); len(m) == 2 {
			venue := collapseSpace(strings.TrimSpace(m[1]))
			if len(venue) > 3 {
				return venue
			}
		}
	}
	body, _ := doc.Html()
	if m := addressPattern.FindStringSubmatch(body); len(m) == 2 {
		venue := collapseSpace(strings.TrimSpace(m[1]))
		if len(venue) > 5 {
			return venue
		}
	}
	return ""
}

// extractDates returns (start, end) as DD/MM/YYYY strings (not yet
// normalized to ISO); the first two dates on the page are taken to be
// the event's start and end, matching the FFE page layout.
func extractDates(html string) (string, string) {
	all := datePattern.FindAllString(html, -1)
	switch {
	case len(all) >= 2:
		return all[0], all[1]
	case len(all) == 1:
		return all[0], all[0]
	default:
		return "", ""
	}
}

func normalizeDate(d string) string {
	if d == "" {
		return ""
	}
	parts := strings.Split(d, "/")
	if len(parts) != 3 {
		return ""
	}
	day, month, year := parts[0], parts[1], parts[2]
	if len(day) == 1 {
		day = "0" + day
	}
	return year + "-" + month + "-" + day
}

func extractOrganizer(html string) string {
	if m := organizerPattern.FindStringSubmatch(html); len(m) == 2 {
		v := collapseSpace(strings.TrimSpace(m[1]))
		if len(v) > 2 {
			return v
		}
	}
	return ""
}

func extractContactEmail(html string) string {
	return contactEmailPattern.FindString(html)
}

func extractEntryFeeCents(html string) int {
	m := entryFeePattern.FindStringSubmatch(html)
	if len(m) != 2 {
		return 0
	}
	amount := strings.ReplaceAll(m[1], ",", ".")
	whole, frac, _ := strings.Cut(amount, ".")
	cents := 0
	for _, r := range whole {
		if r < '0' || r > '9' {
			return 0
		}
		cents = cents*10 + int(r-'0')
	}
	cents *= 100
	if frac != "" {
		if len(frac) > 2 {
			frac = frac[:2]
		}
		for len(frac) < 2 {
			frac += "0"
		}
		for _, r := range frac {
			if r < '0' || r > '9' {
				return cents
			}
		}
		tens := int(frac[0]-'0')*10 + int(frac[1]-'0')
		cents += tens
	}
	return cents
}

func extractMaxParticipants(html string) int {
	m := maxParticipantsPattern.FindStringSubmatch(html)
	if len(m) != 2 {
		return 0
	}
	n := 0
	for _, r := range m[1] {
		n = n*10 + int(r-'0')
	}
	return n
}

func extractDiscipline(html string) string {
	for _, dc := range disciplineCodes {
		if dc.pattern.MatchString(html) {
			return dc.name
		}
	}
	lower := strings.ToLower(html)
	for _, name := range disciplineNames {
		if strings.Contains(lower, strings.ToLower(name)) {
			return name
		}
	}
	return ""
}

func checkIsOpen(html string) bool {
	for _, pat := range openPatterns {
		if pat.MatchString(html) {
			return true
		}
	}
	return false
}

// checkIsDemande reports whether the page evidences the "demande de
// participation" variant of an opening, as opposed to plain
// "engagement" enrollment.
func checkIsDemande(html string) bool {
	return demandePattern.MatchString(html)
}
