package services

import (
	"context"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"attendanceingest/internal/domain"
)

type attKey struct {
	personID int64
	eventID  int64
}

// memState is everything the fake database holds; cloning it is a snapshot.
type memState struct {
	people     map[int64]domain.Person
	attendance map[attKey]domain.Attendance
	tokens     map[tokenKey]domain.InviteToken
	events     map[int64]domain.Event
	nextPerson int64
	nextToken  int64
}

func (s memState) clone() memState {
	return memState{
		people:     maps.Clone(s.people),
		attendance: maps.Clone(s.attendance),
		tokens:     maps.Clone(s.tokens),
		events:     maps.Clone(s.events),
		nextPerson: s.nextPerson,
		nextToken:  s.nextToken,
	}
}

// memStore is an in-memory implementation of every repository the importer uses.
type memStore struct {
	st    memState
	errs   map[string]error // method name -> error to return
	failAt map[string]int   // method name -> only fail on this call number
	calls  map[string]int
}

func newMemStore() *memStore {
	return &memStore{
		st: memState{
			people:     make(map[int64]domain.Person),
			attendance: make(map[attKey]domain.Attendance),
			tokens:     make(map[tokenKey]domain.InviteToken),
			events:     make(map[int64]domain.Event),
		},
		errs:   make(map[string]error),
		failAt: make(map[string]int),
		calls:  make(map[string]int),
	}
}

func (m *memStore) hit(method string) error {
	m.calls[method]++
	if n, ok := m.failAt[method]; ok && n != m.calls[method] {
		return nil
	}
	return m.errs[method]
}

func (m *memStore) addPerson(p domain.Person) int64 {
	m.st.nextPerson++
	p.ID = m.st.nextPerson
	m.st.people[p.ID] = p
	return p.ID
}

func (m *memStore) addEvent(id int64, name string, start *time.Time) {
	m.st.events[id] = domain.Event{ID: id, Name: name, StartsAt: start}
}

func (m *memStore) person(id int64) domain.Person {
	return m.st.people[id]
}

func (m *memStore) personIDs() []int64 {
	return slices.Sorted(maps.Keys(m.st.people))
}

func (m *memStore) attendanceFor(personID int64) []domain.Attendance {
	var out []domain.Attendance
	for k, a := range m.st.attendance {
		if k.personID == personID {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b domain.Attendance) int { return int(a.EventID - b.EventID) })
	return out
}

// PersonRepository

func (m *memStore) Create(ctx context.Context, p *domain.Person) error {
	if err := m.hit("Create"); err != nil {
		return err
	}
	p.ID = m.addPerson(domain.Person{
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Gender:    p.Gender,
		School:    p.School,
		ClassYear: p.ClassYear,
	})
	return nil
}

func (m *memStore) GetByID(ctx context.Context, id int64) (*domain.Person, error) {
	if err := m.hit("GetByID"); err != nil {
		return nil, err
	}
	p, ok := m.st.people[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (m *memStore) FindIDByEmail(ctx context.Context, email string) (int64, error) {
	if err := m.hit("FindIDByEmail"); err != nil {
		return 0, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	for _, id := range m.personIDs() {
		p := m.st.people[id]
		if (p.SchoolEmail != nil && strings.ToLower(*p.SchoolEmail) == email) ||
			(p.PersonalEmail != nil && strings.ToLower(*p.PersonalEmail) == email) {
			return id, nil
		}
	}
	return 0, domain.ErrNotFound
}

func (m *memStore) FindIDByPhone(ctx context.Context, phone string) (int64, error) {
	if err := m.hit("FindIDByPhone"); err != nil {
		return 0, err
	}
	for _, id := range m.personIDs() {
		if p := m.st.people[id]; p.PhoneNumber != nil && *p.PhoneNumber == strings.TrimSpace(phone) {
			return id, nil
		}
	}
	return 0, domain.ErrNotFound
}

func (m *memStore) FindByExactName(ctx context.Context, firstName, lastName string) ([]domain.PersonName, error) {
	if err := m.hit("FindByExactName"); err != nil {
		return nil, err
	}
	var out []domain.PersonName
	for _, id := range m.personIDs() {
		p := m.st.people[id]
		if strings.EqualFold(p.FirstName, firstName) && strings.EqualFold(p.LastName, lastName) {
			out = append(out, domain.PersonName{ID: id, FirstName: p.FirstName, LastName: p.LastName})
		}
	}
	return out, nil
}

func (m *memStore) ListNames(ctx context.Context) ([]domain.PersonName, error) {
	if err := m.hit("ListNames"); err != nil {
		return nil, err
	}
	var out []domain.PersonName
	for _, id := range m.personIDs() {
		p := m.st.people[id]
		out = append(out, domain.PersonName{ID: id, FirstName: p.FirstName, LastName: p.LastName})
	}
	return out, nil
}

func (m *memStore) FillContact(ctx context.Context, id int64, u domain.ContactUpdate) error {
	if err := m.hit("FillContact"); err != nil {
		return err
	}
	p, ok := m.st.people[id]
	if !ok {
		return domain.ErrNotFound
	}
	if p.SchoolEmail == nil {
		p.SchoolEmail = u.SchoolEmail
	}
	if p.PersonalEmail == nil {
		p.PersonalEmail = u.PersonalEmail
	}
	if p.PhoneNumber == nil {
		p.PhoneNumber = u.PhoneNumber
	}
	m.st.people[id] = p
	return nil
}

func (m *memStore) UpdateNames(ctx context.Context, id int64, u domain.NameUpdate) error {
	if err := m.hit("UpdateNames"); err != nil {
		return err
	}
	p, ok := m.st.people[id]
	if !ok {
		return domain.ErrNotFound
	}
	if u.FirstName != nil {
		p.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		p.LastName = *u.LastName
	}
	m.st.people[id] = p
	return nil
}

func (m *memStore) IncrementReferralCount(ctx context.Context, id int64) error {
	if err := m.hit("IncrementReferralCount"); err != nil {
		return err
	}
	p, ok := m.st.people[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.ReferralCount++
	m.st.people[id] = p
	return nil
}

func (m *memStore) recountPeople(eventID int64) int {
	touched := map[int64]bool{}
	for k := range m.st.attendance {
		if k.eventID == eventID {
			touched[k.personID] = true
		}
	}
	for id := range touched {
		count := 0
		for k, a := range m.st.attendance {
			if k.personID == id && a.CheckedIn {
				count++
			}
		}
		p := m.st.people[id]
		p.EventAttendanceCount = count
		m.st.people[id] = p
	}
	return len(touched)
}

// memPeople adapts memStore to domain.PersonRepository, whose RecountAttendance differs from
// the event repository's.
type memPeople struct{ *memStore }

func (p memPeople) RecountAttendance(ctx context.Context, eventID int64) (int, error) {
	if err := p.hit("RecountPeople"); err != nil {
		return 0, err
	}
	return p.recountPeople(eventID), nil
}

// AttendanceRepository

func (m *memStore) Insert(ctx context.Context, a *domain.Attendance) (bool, error) {
	if err := m.hit("Insert"); err != nil {
		return false, err
	}
	k := attKey{a.PersonID, a.EventID}
	if _, ok := m.st.attendance[k]; ok {
		return false, nil
	}
	row := *a
	row.IsFirstEvent = false
	m.st.attendance[k] = row
	return true, nil
}

func (m *memStore) ListCheckedInEvents(ctx context.Context, personID int64) ([]domain.CheckedInEvent, error) {
	if err := m.hit("ListCheckedInEvents"); err != nil {
		return nil, err
	}
	var out []domain.CheckedInEvent
	for k, a := range m.st.attendance {
		if k.personID == personID && a.CheckedIn {
			out = append(out, domain.CheckedInEvent{EventID: k.eventID, StartsAt: m.st.events[k.eventID].StartsAt})
		}
	}
	slices.SortFunc(out, func(a, b domain.CheckedInEvent) int {
		switch {
		case a.StartsAt != nil && b.StartsAt == nil:
			return -1
		case a.StartsAt == nil && b.StartsAt != nil:
			return 1
		case a.StartsAt != nil && !a.StartsAt.Equal(*b.StartsAt):
			return a.StartsAt.Compare(*b.StartsAt)
		}
		return int(a.EventID - b.EventID)
	})
	return out, nil
}

func (m *memStore) MarkFirstEvent(ctx context.Context, personID, eventID int64) error {
	if err := m.hit("MarkFirstEvent"); err != nil {
		return err
	}
	for k, a := range m.st.attendance {
		if k.personID == personID {
			a.IsFirstEvent = k.eventID == eventID
			m.st.attendance[k] = a
		}
	}
	return nil
}

// memEvents adapts memStore to domain.EventRepository.
type memEvents struct{ *memStore }

func (e memEvents) GetByID(ctx context.Context, id int64) (*domain.Event, error) {
	if err := e.hit("GetEvent"); err != nil {
		return nil, err
	}
	ev, ok := e.st.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &ev, nil
}

func (e memEvents) RecountAttendance(ctx context.Context, id int64) (int, error) {
	if err := e.hit("RecountEvent"); err != nil {
		return 0, err
	}
	ev, ok := e.st.events[id]
	if !ok {
		return 0, domain.ErrNotFound
	}
	count := 0
	for k, a := range e.st.attendance {
		if k.eventID == id && a.CheckedIn {
			count++
		}
	}
	ev.Attendance = count
	e.st.events[id] = ev
	return count, nil
}

// memTokens adapts memStore to domain.InviteTokenRepository.
type memTokens struct{ *memStore }

func (t memTokens) GetByValue(ctx context.Context, eventID int64, value string) (*domain.InviteToken, error) {
	if err := t.hit("GetToken"); err != nil {
		return nil, err
	}
	tok, ok := t.st.tokens[tokenKey{eventID, value}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &tok, nil
}

func (t memTokens) Create(ctx context.Context, tok *domain.InviteToken) error {
	if err := t.hit("CreateToken"); err != nil {
		return err
	}
	t.st.nextToken++
	tok.ID = t.st.nextToken
	t.st.tokens[tokenKey{tok.EventID, tok.Value}] = *tok
	return nil
}

func (m *memStore) repositories() Repositories {
	return Repositories{
		People:      memPeople{m},
		Attendance:  m,
		InviteToken: memTokens{m},
		Events:      memEvents{m},
	}
}

// fakeSession keeps a committed snapshot of the store. Rollback and simulated connection loss
// restore it.
type fakeSession struct {
	store      *memStore
	saved      memState
	probes     int
	dropAt     map[int]bool // EnsureAlive call number -> simulate a lost connection
	commits    int
	refreshes  int
	rollbacks  int
	reconnects int
	probeErr   error
}

func newFakeSession(store *memStore) *fakeSession {
	return &fakeSession{store: store, saved: store.st.clone(), dropAt: map[int]bool{}}
}

func (s *fakeSession) EnsureAlive(ctx context.Context) error {
	s.probes++
	if s.probeErr != nil {
		return s.probeErr
	}
	if s.dropAt[s.probes] {
		s.store.st = s.saved.clone()
		s.reconnects++
	}
	return nil
}

func (s *fakeSession) Commit(ctx context.Context) error {
	s.saved = s.store.st.clone()
	s.commits++
	return nil
}

func (s *fakeSession) Refresh(ctx context.Context) error {
	s.saved = s.store.st.clone()
	s.refreshes++
	return nil
}

func (s *fakeSession) Rollback(ctx context.Context) error {
	s.store.st = s.saved.clone()
	s.rollbacks++
	return nil
}

func (s *fakeSession) Reconnects() int {
	return s.reconnects
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func timePtr(t time.Time) *time.Time { return &t }
