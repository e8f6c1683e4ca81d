package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"classroom_api/internal/model"
	"classroom_api/internal/notification"
	"classroom_api/internal/repository"
)

type memOtpRepo struct {
	mu     sync.Mutex
	users  map[int]bool
	codes  []model.OtpCode
	nextID int64
	err    error
}

func newMemOtpRepo(userIDs ...int) *memOtpRepo {
	r := &memOtpRepo{users: map[int]bool{}}
	for _, id := range userIDs {
		r.users[id] = true
	}
	return r
}

func (r *memOtpRepo) ReplaceActive(ctx context.Context, code *model.OtpCode, beforeCommit func(ctx context.Context) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if !r.users[code.UserID] {
		return repository.ErrNotFound
	}
	if beforeCommit != nil {
		if err := beforeCommit(ctx); err != nil {
			return err
		}
	}
	for i := range r.codes {
		c := &r.codes[i]
		if c.UserID == code.UserID && c.Purpose == code.Purpose && !c.Consumed {
			c.Consumed = true
			at := code.CreatedAt
			c.ConsumedAt = &at
		}
	}
	r.nextID++
	code.ID = r.nextID
	r.codes = append(r.codes, *code)
	return nil
}

func (r *memOtpRepo) UpdateLatest(_ context.Context, userID int, purpose string, fn func(code *model.OtpCode) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := -1
	for i, c := range r.codes {
		if c.UserID != userID || c.Purpose != purpose {
			continue
		}
		if idx == -1 || c.CreatedAt.After(r.codes[idx].CreatedAt) ||
			(c.CreatedAt.Equal(r.codes[idx].CreatedAt) && c.ID > r.codes[idx].ID) {
			idx = i
		}
	}
	if idx == -1 {
		return fn(nil)
	}
	c := r.codes[idx]
	err := fn(&c)
	r.codes[idx] = c
	return err
}

func (r *memOtpRepo) PurgeStale(_ context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (r *memOtpRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.codes)
}

func (r *memOtpRepo) outstanding(userID int, purpose string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.codes {
		if c.UserID == userID && c.Purpose == purpose && !c.Consumed {
			n++
		}
	}
	return n
}

type memCooldown struct {
	mu       sync.Mutex
	held     map[string]bool
	released []string
}

func newMemCooldown() *memCooldown {
	return &memCooldown{held: map[string]bool{}}
}

func (c *memCooldown) Acquire(_ context.Context, key string, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.held[key] {
		return false, nil
	}
	c.held[key] = true
	return true, nil
}

func (c *memCooldown) Release(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.held, key)
	c.released = append(c.released, key)
	return nil
}

type recordingMailer struct {
	mu    sync.Mutex
	tasks []notification.OtpEmailTask
	err   error
}

func (m *recordingMailer) EnqueueOtpEmail(_ context.Context, task notification.OtpEmailTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.tasks = append(m.tasks, task)
	return nil
}

func (m *recordingMailer) last() notification.OtpEmailTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tasks[len(m.tasks)-1]
}

// fakeClock is advanced manually by tests
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// sequenceCodes returns the given codes in order, then repeats the last one
func sequenceCodes(codes ...string) func(int) (string, error) {
	i := 0
	return func(int) (string, error) {
		c := codes[i]
		if i < len(codes)-1 {
			i++
		}
		return c, nil
	}
}

type memUserRepo struct {
	mu       sync.Mutex
	byID     map[int]*model.User
	nextID   int
	verified map[int]bool
}

func newMemUserRepo(users ...*model.User) *memUserRepo {
	r := &memUserRepo{byID: map[int]*model.User{}, verified: map[int]bool{}}
	for _, u := range users {
		r.byID[u.ID] = u
		if u.ID > r.nextID {
			r.nextID = u.ID
		}
	}
	return r
}

func (r *memUserRepo) CreateWithProfile(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	r.nextID++
	user.ID = r.nextID
	cp := *user
	r.byID[user.ID] = &cp
	return nil
}

func (r *memUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if r.byID[id].Email == email {
			cp := *r.byID[id]
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) FindByID(_ context.Context, id int) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) UpdatePassword(_ context.Context, id int, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (r *memUserRepo) MarkEmailVerified(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.EmailVerified = true
	return nil
}

func (r *memUserRepo) List(_ context.Context, f model.UserFilters) ([]model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := []model.User{}
	for _, id := range ids {
		u := r.byID[id]
		if u.Status == model.StatusDeleted {
			continue
		}
		if f.Role != nil && u.Role != *f.Role {
			continue
		}
		if f.Status != nil && u.Status != *f.Status {
			continue
		}
		if f.Search != nil && !strings.Contains(strings.ToLower(u.Email+" "+u.FirstName+" "+u.LastName), strings.ToLower(*f.Search)) {
			continue
		}
		out = append(out, *u)
	}
	return out, nil
}

func (r *memUserRepo) UpdateDetails(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[user.ID]
	if !ok || u.Status == model.StatusDeleted {
		return repository.ErrNotFound
	}
	u.FirstName, u.LastName, u.PhoneNumber = user.FirstName, user.LastName, user.PhoneNumber
	return nil
}

func (r *memUserRepo) UpdateStatus(_ context.Context, id int, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok || u.Status == model.StatusDeleted {
		return repository.ErrNotFound
	}
	u.Status = status
	return nil
}

func (r *memUserRepo) SoftDelete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok || u.Status == model.StatusDeleted {
		return repository.ErrNotFound
	}
	u.Status = model.StatusDeleted
	u.Email = fmt.Sprintf("deleted-%d@example.com", id)
	u.FirstName, u.LastName, u.PhoneNumber = "Deleted", "User", nil
	return nil
}

type memProfileRepo struct {
	mu         sync.Mutex
	teachers   map[int]*model.TeacherProfile
	students   map[int]*model.StudentProfile
	saveCalls  int
	studentIDs map[string]int
}

func newMemProfileRepo() *memProfileRepo {
	return &memProfileRepo{
		teachers:   map[int]*model.TeacherProfile{},
		students:   map[int]*model.StudentProfile{},
		studentIDs: map[string]int{},
	}
}

func (r *memProfileRepo) FindTeacherProfile(_ context.Context, userID int) (*model.TeacherProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.teachers[userID], nil
}

func (r *memProfileRepo) FindStudentProfile(_ context.Context, userID int) (*model.StudentProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.students[userID], nil
}

func (r *memProfileRepo) SaveTeacherOnboarding(_ context.Context, p *model.TeacherProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saveCalls++
	p.OnboardingCompleted = true
	cp := *p
	r.teachers[p.UserID] = &cp
	return nil
}

func (r *memProfileRepo) SaveStudentOnboarding(_ context.Context, p *model.StudentProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saveCalls++
	if p.StudentID != nil {
		if owner, ok := r.studentIDs[*p.StudentID]; ok && owner != p.UserID {
			return repository.ErrDuplicate
		}
		r.studentIDs[*p.StudentID] = p.UserID
	}
	p.OnboardingCompleted = true
	cp := *p
	r.students[p.UserID] = &cp
	return nil
}

func (r *memProfileRepo) IsOnboardingComplete(_ context.Context, userID int, role string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch role {
	case model.RoleTeacher:
		p := r.teachers[userID]
		return p != nil && p.OnboardingCompleted, nil
	case model.RoleStudent:
		p := r.students[userID]
		return p != nil && p.OnboardingCompleted, nil
	}
	return true, nil
}
