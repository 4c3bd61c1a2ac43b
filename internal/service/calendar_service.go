package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/palmhaven/booking-api/internal/ical"
	"github.com/palmhaven/booking-api/internal/models"
	"github.com/palmhaven/booking-api/internal/repository"
	"gorm.io/gorm"
)

// FeedSyncResult is the outcome of syncing one feed. Err is carried in the
// result, not returned, so one broken feed never aborts the others.
type FeedSyncResult struct {
	FeedID   uint   `json:"feed_id"`
	Platform string `json:"platform"`
	Imported int    `json:"imported"`
	Error    string `json:"error,omitempty"`
}

type SyncSummary struct {
	Imported int              `json:"imported"`
	Feeds    []FeedSyncResult `json:"feeds"`
}

type CalendarService interface {
	RegisterFeed(ctx context.Context, feed *models.CalendarFeed) error
	ListFeeds(ctx context.Context, propertyID uint) ([]models.CalendarFeed, error)
	// SyncFeed imports one feed and records the attempt on the feed row.
	// The returned result carries a per-feed error; the error return is
	// reserved for "feed does not exist".
	SyncFeed(ctx context.Context, feedID uint) (*FeedSyncResult, error)
	SyncProperty(ctx context.Context, propertyID uint) (*SyncSummary, error)
	SyncAll(ctx context.Context) (*SyncSummary, error)
	// ExportICS renders the property's active blocks as a VCALENDAR
	// document for subscription by external calendar apps.
	ExportICS(ctx context.Context, propertyID uint) (string, error)
	BlockedDates(ctx context.Context, propertyID uint) ([]models.BlockedDate, error)
}

type calendarService struct {
	feedRepo     repository.CalendarFeedRepository
	blockedRepo  repository.BlockedDateRepository
	propertyRepo repository.PropertyRepository
	httpClient   *http.Client
	namespace    string
	now          func() time.Time
}

func NewCalendarService(
	feedRepo repository.CalendarFeedRepository,
	blockedRepo repository.BlockedDateRepository,
	propertyRepo repository.PropertyRepository,
	fetchTimeout time.Duration,
	namespace string,
) CalendarService {
	return &calendarService{
		feedRepo:     feedRepo,
		blockedRepo:  blockedRepo,
		propertyRepo: propertyRepo,
		httpClient:   &http.Client{Timeout: fetchTimeout},
		namespace:    namespace,
		now:          time.Now,
	}
}

func (s *calendarService) RegisterFeed(ctx context.Context, feed *models.CalendarFeed) error {
	if _, err := s.propertyRepo.FindByID(ctx, feed.PropertyID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPropertyNotFound
		}
		return err
	}
	feed.IsActive = true
	feed.SyncStatus = models.SyncPending
	return s.feedRepo.Create(ctx, feed)
}

func (s *calendarService) ListFeeds(ctx context.Context, propertyID uint) ([]models.CalendarFeed, error) {
	return s.feedRepo.FindAll(ctx, propertyID)
}

func (s *calendarService) SyncFeed(ctx context.Context, feedID uint) (*FeedSyncResult, error) {
	feed, err := s.feedRepo.FindByID(ctx, feedID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFeedNotFound
		}
		return nil, err
	}
	result := s.syncOne(ctx, feed)
	return &result, nil
}

func (s *calendarService) SyncProperty(ctx context.Context, propertyID uint) (*SyncSummary, error) {
	feeds, err := s.feedRepo.FindActiveByProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	return s.syncFeeds(ctx, feeds), nil
}

func (s *calendarService) SyncAll(ctx context.Context) (*SyncSummary, error) {
	feeds, err := s.feedRepo.FindActive(ctx)
	if err != nil {
		return nil, err
	}
	return s.syncFeeds(ctx, feeds), nil
}

func (s *calendarService) syncFeeds(ctx context.Context, feeds []models.CalendarFeed) *SyncSummary {
	summary := &SyncSummary{}
	for i := range feeds {
		result := s.syncOne(ctx, &feeds[i])
		summary.Imported += result.Imported
		summary.Feeds = append(summary.Feeds, result)
	}
	return summary
}

// syncOne runs the fetch-parse-upsert cycle for one feed and records the
// outcome on the feed row. All failures are contained in the result.
func (s *calendarService) syncOne(ctx context.Context, feed *models.CalendarFeed) FeedSyncResult {
	result := FeedSyncResult{FeedID: feed.ID, Platform: feed.Platform}

	imported, err := s.importFeed(ctx, feed)
	result.Imported = imported
	at := s.now()
	if err != nil {
		result.Error = err.Error()
		log.Printf("[CalendarSync] feed %d (%s) failed: %v", feed.ID, feed.Platform, err)
		if recErr := s.feedRepo.RecordSyncResult(ctx, feed.ID, models.SyncFailed, err.Error(), at); recErr != nil {
			log.Printf("[CalendarSync] could not record failure for feed %d: %v", feed.ID, recErr)
		}
		return result
	}

	if recErr := s.feedRepo.RecordSyncResult(ctx, feed.ID, models.SyncSuccess, "", at); recErr != nil {
		log.Printf("[CalendarSync] could not record success for feed %d: %v", feed.ID, recErr)
	}
	log.Printf("[CalendarSync] feed %d (%s): %d new ranges", feed.ID, feed.Platform, imported)
	return result
}

func (s *calendarService) importFeed(ctx context.Context, feed *models.CalendarFeed) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return 0, &FetchError{URL: feed.URL, Cause: err}
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, &FetchError{URL: feed.URL, Cause: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, &FetchError{URL: feed.URL, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, &FetchError{URL: feed.URL, Cause: err}
	}

	events, err := ical.Parse(string(body))
	if err != nil {
		return 0, err
	}

	imported := 0
	for _, ev := range events {
		// The ledger works in whole nights. Floor the start to its date
		// and round a timed checkout up to the next day, so a partial-day
		// event over-blocks rather than under-blocks, and an exported
		// calendar re-imports to the same dates.
		start, end := floorToDate(ev.Start), ceilToDate(ev.End)
		// Zero-length ranges (missing DTEND) block nothing; skip them.
		if !start.Before(end) {
			continue
		}
		created, err := s.blockedRepo.UpsertForExternalEvent(ctx, feed.PropertyID, ev.UID, start, end, feed.Platform)
		if err != nil {
			return imported, fmt.Errorf("upsert event %q: %w", ev.UID, err)
		}
		if created {
			imported++
		}
	}
	return imported, nil
}

func (s *calendarService) ExportICS(ctx context.Context, propertyID uint) (string, error) {
	if _, err := s.propertyRepo.FindByID(ctx, propertyID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrPropertyNotFound
		}
		return "", err
	}
	blocks, err := s.blockedRepo.FindActiveByProperty(ctx, propertyID)
	if err != nil {
		return "", err
	}
	out := make([]ical.Block, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, ical.Block{
			ID:     b.ID,
			Start:  b.StartDate,
			End:    b.EndDate,
			Reason: b.Reason,
		})
	}
	return ical.Format(out, s.namespace, s.now()), nil
}

func floorToDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ceilToDate rounds a timed checkout up to the next day so the night it
// spills into stays blocked.
func ceilToDate(t time.Time) time.Time {
	d := floorToDate(t)
	if d.Equal(t.UTC()) {
		return d
	}
	return d.AddDate(0, 0, 1)
}

func (s *calendarService) BlockedDates(ctx context.Context, propertyID uint) ([]models.BlockedDate, error) {
	if _, err := s.propertyRepo.FindByID(ctx, propertyID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPropertyNotFound
		}
		return nil, err
	}
	return s.blockedRepo.FindActiveByProperty(ctx, propertyID)
}
