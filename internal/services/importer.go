package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"attendanceingest/internal/domain"
	"attendanceingest/internal/normalize"
)

// ImportMetrics observes import runs.
type ImportMetrics interface {
	RowResolved(strategy string, created bool)
	RunFinished(result *domain.ImportResult, err error)
}

type noopMetrics struct{}

func (noopMetrics) RowResolved(string, bool)                 {}
func (noopMetrics) RunFinished(*domain.ImportResult, error) {}

// Repositories groups the storage the importer works on. All of them must be bound to the
// session handed to NewImporter.
type Repositories struct {
	People      domain.PersonRepository
	Attendance  domain.AttendanceRepository
	InviteToken domain.InviteTokenRepository
	Events      domain.EventRepository
}

type importer struct {
	session   domain.StorageSession
	events    domain.EventRepository
	store     *PersonStore
	tokens    *TokenRegistry
	recorder  *AttendanceRecorder
	referrals *ReferralAttributor
	metrics   ImportMetrics
	cfg       ImportConfig
	now       func() time.Time
	logger    *slog.Logger
}

// ImporterOption customizes an importer.
type ImporterOption func(*importer)

// WithMetrics reports run and row observations to m.
func WithMetrics(m ImportMetrics) ImporterOption {
	return func(i *importer) {
		if m != nil {
			i.metrics = m
		}
	}
}

// WithClock replaces the wall clock used for class-year inference and timings.
func WithClock(now func() time.Time) ImporterOption {
	return func(i *importer) {
		if now != nil {
			i.now = now
		}
	}
}

// NewImporter wires the resolution pipeline over one storage session. Rows are processed one at
// a time in input order; concurrent imports must use separate sessions and must not target the
// same event.
func NewImporter(session domain.StorageSession, repos Repositories, cfg ImportConfig, logger *slog.Logger, opts ...ImporterOption) (domain.Importer, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("import config: %w", err)
	}
	matcher := NewMatcher(repos.People, cfg, logger)
	i := &importer{
		session:   session,
		events:    repos.Events,
		store:     NewPersonStore(repos.People, matcher, logger),
		tokens:    NewTokenRegistry(repos.InviteToken),
		recorder:  NewAttendanceRecorder(repos.Attendance, repos.People, repos.Events),
		referrals: NewReferralAttributor(repos.People, matcher, cfg, logger),
		metrics:   noopMetrics{},
		cfg:       cfg,
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Import runs every row of the request and then recomputes the event's aggregates. Any failure
// other than a recoverable connectivity loss rolls back the work since the last commit and is
// returned; earlier commits stay.
func (s *importer) Import(ctx context.Context, req domain.ImportRequest) (*domain.ImportResult, error) {
	res := &domain.ImportResult{
		RunID:     uuid.New(),
		EventID:   req.EventID,
		EventName: req.EventName,
		MatchedBy: make(map[string]int),
		StartedAt: s.now(),
	}
	logger := s.logger.With("run_id", res.RunID.String(), "event_id", req.EventID, "event_name", req.EventName)
	logger.Info("import started", "rows", len(req.Rows), "source", req.Source)

	baseReconnects := s.session.Reconnects()
	finish := func(err error) (*domain.ImportResult, error) {
		res.Reconnects = s.session.Reconnects() - baseReconnects
		res.Duration = s.now().Sub(res.StartedAt)
		if err != nil {
			if rbErr := s.session.Rollback(ctx); rbErr != nil {
				err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
			}
			logger.Error("import failed", "error", err, "processed", res.Processed)
		}
		s.metrics.RunFinished(res, err)
		return res, err
	}

	if err := s.session.EnsureAlive(ctx); err != nil {
		return finish(fmt.Errorf("open session: %w", err))
	}
	event, err := s.events.GetByID(ctx, req.EventID)
	if err != nil {
		return finish(fmt.Errorf("get event %d: %w", req.EventID, err))
	}
	if res.EventName == "" {
		res.EventName = event.Name
	}
	res.Classes.CutoffYear = s.cutoffYear(event)

	s.tokens.Reset()
	lastDurable := 0
	for _, raw := range req.Rows {
		if err := s.ensureAlive(ctx, logger, res.Processed-lastDurable); err != nil {
			return finish(err)
		}
		if err := s.processRow(ctx, logger, event, raw, res); err != nil {
			return finish(fmt.Errorf("row %d: %w", raw.Line, err))
		}
		res.Processed++

		switch {
		case res.Processed%s.cfg.RefreshInterval == 0:
			logger.Info("refreshing storage session", "processed", res.Processed)
			reconnects := s.session.Reconnects()
			if err := s.session.Refresh(ctx); err != nil {
				return finish(fmt.Errorf("refresh session: %w", err))
			}
			if s.session.Reconnects() != reconnects {
				s.tokens.Reset()
			}
			res.Refreshes++
			lastDurable = res.Processed
		case res.Processed%s.cfg.CommitInterval == 0:
			if err := s.session.Commit(ctx); err != nil {
				return finish(fmt.Errorf("commit: %w", err))
			}
			res.Commits++
			lastDurable = res.Processed
			logger.Info("import progress", "processed", res.Processed, "total", len(req.Rows))
		}
	}

	if err := s.session.Commit(ctx); err != nil {
		return finish(fmt.Errorf("commit rows: %w", err))
	}
	res.Commits++

	res.EventAttendance, res.PeopleRecounted, err = s.recorder.Finalize(ctx, req.EventID)
	if err != nil {
		return finish(err)
	}
	if err := s.session.Commit(ctx); err != nil {
		return finish(fmt.Errorf("commit aggregates: %w", err))
	}
	res.Commits++

	out, _ := finish(nil)
	logger.Info("import complete",
		"processed", res.Processed,
		"new_people", res.NewPeople,
		"new_contacts", res.NewContacts,
		"names_updated", res.NamesUpdated,
		"attendance_records", res.AttendanceRecords(),
		"attendance_inserted", res.AttendanceInserted,
		"checked_in", res.CheckedIn,
		"referrals_credited", res.ReferralsCredited,
		"event_attendance", res.EventAttendance,
		"people_recounted", res.PeopleRecounted,
		"reconnects", res.Reconnects,
		"duration", res.Duration,
	)
	return out, nil
}

// ensureAlive probes the session before a row. A reconnect silently drops the uncommitted rows,
// which only re-running the import restores.
func (s *importer) ensureAlive(ctx context.Context, logger *slog.Logger, uncommitted int) error {
	before := s.session.Reconnects()
	if err := s.session.EnsureAlive(ctx); err != nil {
		return fmt.Errorf("ensure session: %w", err)
	}
	if s.session.Reconnects() != before {
		s.tokens.Reset()
		logger.Warn("storage session was reopened, uncommitted rows were lost", "rows_lost", uncommitted)
	}
	return nil
}

func (s *importer) processRow(ctx context.Context, logger *slog.Logger, event *domain.Event, raw domain.RegistrationRow, res *domain.ImportResult) error {
	row := normalize.Row(raw, s.now())

	person, err := s.store.Resolve(ctx, row)
	if err != nil {
		return err
	}
	s.metrics.RowResolved(string(person.Match.Strategy), person.Created)
	res.MatchedBy[string(person.Match.Strategy)]++
	if person.Created {
		res.NewPeople++
	}
	if person.ContactUpdated {
		res.NewContacts++
	}
	if person.NamesUpdated {
		res.NamesUpdated++
	}

	tokenID, err := s.tokens.Resolve(ctx, event.ID, row.TrackingLink)
	if err != nil {
		return err
	}

	inserted, err := s.recorder.Record(ctx, &domain.Attendance{
		PersonID:      person.PersonID,
		EventID:       event.ID,
		RSVP:          row.RSVP,
		Approved:      row.Approved,
		CheckedIn:     row.CheckedIn,
		RSVPAt:        row.RSVPAt,
		InviteTokenID: tokenID,
	})
	if err != nil {
		return err
	}
	if inserted {
		res.AttendanceInserted++
	} else {
		res.AttendanceExisting++
	}

	if row.CheckedIn {
		res.CheckedIn++
		countClass(&res.Classes, row.ClassYear)

		ref, err := s.referrals.Attribute(ctx, person.PersonID, row)
		if err != nil {
			return err
		}
		if ref.Credited {
			res.ReferralsCredited++
		}
	}

	if s.cfg.LogPeople {
		logPerson(logger, person.PersonID, row)
	}
	return nil
}

// cutoffYear anchors the class breakdown on the event start, or on today for unscheduled events.
func (s *importer) cutoffYear(event *domain.Event) int {
	if event.StartsAt != nil {
		return normalize.UnderclassCutoffYear(*event.StartsAt)
	}
	return normalize.UnderclassCutoffYear(s.now())
}

func countClass(b *domain.ClassBreakdown, classYear *int) {
	switch {
	case classYear == nil:
		b.Unknown++
	case *classYear > b.CutoffYear:
		b.Underclass++
	default:
		b.Upperclass++
	}
}

// displayHiddenCodes are tracking values not worth showing as a referral code.
var displayHiddenCodes = map[string]struct{}{
	"default": {}, "email": {}, "txt": {}, "insta": {}, "maillist": {},
}

func logPerson(logger *slog.Logger, personID int64, row domain.NormalizedRow) {
	referral := "N/A"
	if _, hidden := displayHiddenCodes[strings.ToLower(row.TrackingLink)]; row.TrackingLink != "" && !hidden {
		referral = row.TrackingLink
	} else if row.Referral != "" {
		referral = row.Referral
	}
	status := "no-show"
	if row.CheckedIn {
		status = "attended"
	}
	email := row.PrimaryEmail
	if email == "" {
		email = "no email"
	}
	logger.Info("person",
		"person_id", personID,
		"name", row.FirstName+" "+row.LastName,
		"email", email,
		"status", status,
		"referral", referral,
	)
}
