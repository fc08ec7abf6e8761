package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/noah-isme/alumnos-crm-api/internal/models"
	"github.com/noah-isme/alumnos-crm-api/pkg/mail"
)

var errBoom = errors.New("boom")

type studentStore struct {
	mu        sync.Mutex
	items     map[int64]*models.Student
	nextID    int64
	listErr   error
	updateErr map[int64]error
	updates   int
}

func newStudentStore(students ...models.Student) *studentStore {
	s := &studentStore{items: map[int64]*models.Student{}, updateErr: map[int64]error{}}
	for i := range students {
		st := students[i]
		s.items[st.ID] = &st
		if st.ID > s.nextID {
			s.nextID = st.ID
		}
	}
	return s
}

func (s *studentStore) get(id int64) models.Student {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.items[id]
}

func (s *studentStore) FindByID(_ context.Context, id int64) (*models.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *st
	return &cp, nil
}

func (s *studentStore) FindByEmail(_ context.Context, email string) (*models.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.items {
		if st.Email == email {
			cp := *st
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *studentStore) sorted() []models.Student {
	out := make([]models.Student, 0, len(s.items))
	for _, st := range s.items {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *studentStore) ListByStatus(_ context.Context, statuses []models.StudentStatus) ([]models.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []models.Student
	for _, st := range s.sorted() {
		for _, status := range statuses {
			if st.Status == status {
				out = append(out, st)
				break
			}
		}
	}
	return out, nil
}

func (s *studentStore) ListAll(_ context.Context) ([]models.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.sorted(), nil
}

func (s *studentStore) List(_ context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	all, err := s.ListAll(context.Background())
	if err != nil {
		return nil, 0, err
	}
	return all, len(all), nil
}

func (s *studentStore) Create(_ context.Context, student *models.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.items {
		if st.Email == student.Email {
			return &pq.Error{Code: "23505"}
		}
	}
	s.nextID++
	student.ID = s.nextID
	student.CreatedAt = time.Now().UTC()
	cp := *student
	s.items[student.ID] = &cp
	return nil
}

func (s *studentStore) Update(_ context.Context, student *models.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *student
	s.items[student.ID] = &cp
	return nil
}

func (s *studentStore) UpdateStatus(_ context.Context, id int64, status models.StudentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.updateErr[id]; err != nil {
		return err
	}
	st, ok := s.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	st.Status = status
	s.updates++
	return nil
}

func (s *studentStore) TouchLastInteraction(_ context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	at = at.UTC()
	st.LastInteractionAt = &at
	return nil
}

func (s *studentStore) UpsertByEmail(_ context.Context, student *models.Student) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.items {
		if st.Email == student.Email {
			status := st.Status
			if student.Status == models.StudentStatusInactive {
				status = models.StudentStatusInactive
			}
			student.ID = st.ID
			student.Status = status
			cp := *student
			s.items[st.ID] = &cp
			return false, nil
		}
	}
	s.nextID++
	student.ID = s.nextID
	cp := *student
	s.items[student.ID] = &cp
	return true, nil
}

func (s *studentStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

type linkStore struct {
	mu        sync.Mutex
	items     []models.MagicLink
	students  *studentStore
	createErr error
	// duplicates makes the next n creates fail with a unique violation.
	duplicates int
	lookups    int
}

func newLinkStore(students *studentStore) *linkStore {
	return &linkStore{students: students}
}

func (l *linkStore) Create(_ context.Context, link *models.MagicLink) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.createErr != nil {
		return l.createErr
	}
	if l.duplicates > 0 {
		l.duplicates--
		return &pq.Error{Code: "23505"}
	}
	for _, existing := range l.items {
		if existing.Token == link.Token {
			return &pq.Error{Code: "23505"}
		}
	}
	link.ID = int64(len(l.items) + 1)
	l.items = append(l.items, *link)
	return nil
}

func (l *linkStore) FindByToken(_ context.Context, token string) (*models.MagicLinkWithStudent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lookups++
	for _, link := range l.items {
		if link.Token == token {
			out := &models.MagicLinkWithStudent{MagicLink: link}
			if l.students != nil {
				if st, ok := l.students.items[link.StudentID]; ok {
					out.StudentName = st.FullName
					out.StudentEmail = st.Email
					out.StudentStatus = st.Status
				}
			}
			return out, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (l *linkStore) MarkCompleted(_ context.Context, token string, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.items {
		if l.items[i].Token == token {
			l.items[i].Status = models.MagicLinkStatusCompleted
			if l.items[i].CompletedAt == nil {
				at := at.UTC()
				l.items[i].CompletedAt = &at
			}
		}
	}
	return nil
}

func (l *linkStore) ListByStudent(_ context.Context, studentID int64, limit int) ([]models.MagicLink, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.MagicLink
	for i := len(l.items) - 1; i >= 0 && len(out) < limit; i-- {
		if l.items[i].StudentID == studentID {
			out = append(out, l.items[i])
		}
	}
	return out, nil
}

func (l *linkStore) ListAll(_ context.Context, limit int) ([]models.MagicLinkWithStudent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.MagicLinkWithStudent
	for i := len(l.items) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, models.MagicLinkWithStudent{MagicLink: l.items[i]})
	}
	return out, nil
}

type reportStore struct {
	mu        sync.Mutex
	items     []models.WeeklyReport
	listErr   map[int64]error
	createErr error
}

func newReportStore(reports ...models.WeeklyReport) *reportStore {
	return &reportStore{items: reports, listErr: map[int64]error{}}
}

func (r *reportStore) Create(_ context.Context, report *models.WeeklyReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	report.ID = int64(len(r.items) + 1)
	r.items = append(r.items, *report)
	return nil
}

func (r *reportStore) ListByStudent(_ context.Context, studentID int64, limit int) ([]models.WeeklyReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.listErr[studentID]; err != nil {
		return nil, err
	}
	var out []models.WeeklyReport
	for _, rep := range r.items {
		if rep.StudentID == studentID {
			out = append(out, rep)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *reportStore) ListAll(_ context.Context, limit int) ([]models.WeeklyReportWithStudent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.WeeklyReportWithStudent
	for _, rep := range r.items {
		out = append(out, models.WeeklyReportWithStudent{WeeklyReport: rep})
	}
	return out, nil
}

type staticConfig struct {
	cfg models.SystemConfig
}

func (c staticConfig) Get(context.Context) models.SystemConfig {
	return c.cfg
}

func defaultConfig() staticConfig {
	return staticConfig{cfg: models.DefaultSystemConfig()}
}

type senderStub struct {
	mu       sync.Mutex
	messages []mail.Message
	// fail marks recipients whose delivery is rejected.
	fail     map[string]bool
	err      error
	deadline bool
}

func (s *senderStub) Name() string { return "stub" }

func (s *senderStub) Send(ctx context.Context, msg mail.Message) (mail.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := ctx.Deadline(); ok {
		s.deadline = true
	}
	s.messages = append(s.messages, msg)
	if s.err != nil {
		return mail.Result{}, s.err
	}
	if s.fail[msg.To] {
		return mail.Result{Success: false, Detail: "rejected by provider"}, nil
	}
	return mail.Result{Success: true, ProviderID: "msg-" + msg.To}, nil
}

type sequenceTokens struct {
	tokens []string
	next   int
}

func (s *sequenceTokens) Generate() (string, error) {
	if s.next >= len(s.tokens) {
		return "", errBoom
	}
	t := s.tokens[s.next]
	s.next++
	return t, nil
}

type recordedEvent struct {
	Type string
	Data interface{}
}

type publisherStub struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *publisherStub) Publish(_ context.Context, eventType string, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{Type: eventType, Data: data})
}

func (p *publisherStub) Close() {}

func (p *publisherStub) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}
