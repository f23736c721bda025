// Package scraper fetches one FFE event page and extracts the
// structured fields the rest of the engine needs (spec.md §4.2),
// grounded on the teacher's pkg/health.HTTPChecker for the HTTP
// fetch idiom and on
// _examples/original_source/backend/services/scraper.py for the
// extraction patterns themselves.
package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/cyprienbrisset/ffemonitor/internal/domain"
	"github.com/cyprienbrisset/ffemonitor/internal/errs"
)

// Scraper fetches and parses one event page at a time. It holds no
// per-event state; callers provide the URL per call.
type Scraper struct {
	fetcher *httpFetcher
}

// New constructs a Scraper with the given per-request timeout.
func New(timeout time.Duration) *Scraper {
	return &Scraper{fetcher: newHTTPFetcher(timeout)}
}

// Fetch retrieves url and extracts a Snapshot. Network failures and
// unparseable HTML never propagate as errors the caller must branch
// on for control flow (spec.md invariant 4): Fetch has no error
// result, and any fetch failure yields a zero-value, not-open Snapshot.
func (s *Scraper) Fetch(ctx context.Context, url string) domain.Snapshot {
	html, err := s.fetcher.fetch(ctx, url)
	if err != nil {
		return domain.Snapshot{}
	}
	return parse(html)
}

// FetchStrict behaves like Fetch but surfaces the underlying fetch
// error, for callers (health checks, admin test endpoints) that need
// to distinguish "the site is down" from "the site returned nothing
// useful".
func (s *Scraper) FetchStrict(ctx context.Context, url string) (domain.Snapshot, error) {
	html, err := s.fetcher.fetch(ctx, url)
	if err != nil {
		return domain.Snapshot{}, errs.Transient(fmt.Sprintf("fetch %s", url), err)
	}
	return parse(html), nil
}

func parse(html string) domain.Snapshot {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return domain.Snapshot{}
	}

	name := extractName(html)
	venue := extractVenue(doc)
	startRaw, endRaw := extractDates(html)
	discipline := extractDiscipline(html)

	if name == "" && (venue != "" || discipline != "") {
		var parts []string
		if discipline != "" {
			parts = append(parts, discipline)
		}
		if venue != "" {
			parts = append(parts, venue)
		}
		name = strings.Join(parts, " - ")
	}

	isOpen := checkIsOpen(html)
	status := domain.StatusPrevisional
	if isOpen {
		status = domain.StatusEngagement
		if checkIsDemande(html) {
			status = domain.StatusDemande
		}
	}

	return domain.Snapshot{
		Name:            name,
		Venue:           venue,
		StartDate:       normalizeDate(startRaw),
		EndDate:         normalizeDate(endRaw),
		Discipline:      discipline,
		Status:          status,
		IsOpen:          isOpen,
		OrganizerName:   extractOrganizer(html),
		ContactEmail:    extractContactEmail(html),
		EntryFeeCents:   extractEntryFeeCents(html),
		MaxParticipants: extractMaxParticipants(html),
	}
}
