package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"icodses/backend/internal/model"
	"icodses/backend/internal/repository"
	pkgerrors "icodses/backend/pkg/errors"
	"icodses/backend/pkg/mailer"
)

// ── 内存存储 ──
// 所有 mock repo 共享同一份数据，便于联表查询

type memStore struct {
	mu sync.Mutex

	users       map[uint]*model.User
	papers      map[uint]*model.Paper
	assignments []*model.Assignment
	reviews     []*model.Review
	outbox      []*model.OutboxMessage

	nextID uint

	failPaperStatus  bool
	failOutboxCreate bool

	blobReads int // 返回了非空摘要内容的论文读取次数
}

// paperCopy 复制论文；withBlob 为 false 时模拟只查元数据
func (s *memStore) paperCopy(p *model.Paper, withBlob bool) model.Paper {
	cp := *p
	if !withBlob {
		cp.AbstractBlob = nil
	} else if len(p.AbstractBlob) > 0 {
		s.blobReads++
	}
	return cp
}

func newMemStore() *memStore {
	return &memStore{
		users:  make(map[uint]*model.User),
		papers: make(map[uint]*model.Paper),
		nextID: 100,
	}
}

func (s *memStore) id() uint {
	s.nextID++
	return s.nextID
}

func (s *memStore) repository() *repository.Repository {
	return &repository.Repository{
		User:       &mockUserRepo{s},
		Paper:      &mockPaperRepo{s},
		Assignment: &mockAssignmentRepo{s},
		Review:     &mockReviewRepo{s},
		Outbox:     &mockOutboxRepo{s},
	}
}

// ── 测试数据 ──

func (s *memStore) addUser(id uint, name, email string, role model.Role, track string) *model.User {
	u := &model.User{ID: id, Name: name, Email: email, Role: role, Track: track}
	s.users[id] = u
	return u
}

func (s *memStore) addPaper(id uint, title string, authors []model.Author, created time.Time) *model.Paper {
	raw, _ := model.EncodeAuthors(authors)
	email := ""
	if len(authors) > 0 {
		email = authors[0].Email
	}
	p := &model.Paper{
		ID:      id,
		UserID:  1,
		Title:   title,
		Authors: raw,
		Email:   email,
		Status:  model.StatusSubmitted,
	}
	p.CreatedAt = created
	p.UpdatedAt = created
	s.papers[id] = p
	return p
}

func (s *memStore) addAssignment(paperID, reviewerID uint) *model.Assignment {
	a := &model.Assignment{ID: s.id(), PaperID: paperID, ReviewerID: reviewerID, AssignedAt: time.Now()}
	s.assignments = append(s.assignments, a)
	return a
}

// ── Mock UserRepository ──

type mockUserRepo struct{ s *memStore }

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	for _, u := range m.s.users {
		if u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.ID == 0 {
		user.ID = m.s.id()
	}
	m.s.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id uint) (*model.User, error) {
	if u, ok := m.s.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	m.s.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) ListByRole(_ context.Context, role model.Role) ([]model.User, error) {
	var result []model.User
	for _, u := range m.s.users {
		if u.Role == role {
			result = append(result, *u)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *mockUserRepo) DeleteReviewer(_ context.Context, id uint) (int64, error) {
	if u, ok := m.s.users[id]; ok && u.Role == model.RoleReviewer {
		delete(m.s.users, id)
		return 1, nil
	}
	return 0, nil
}

// ── Mock PaperRepository ──

type mockPaperRepo struct{ s *memStore }

func (m *mockPaperRepo) Create(_ context.Context, paper *model.Paper) error {
	if paper.ID == 0 {
		paper.ID = m.s.id()
	}
	if paper.CreatedAt.IsZero() {
		paper.CreatedAt = time.Now()
		paper.UpdatedAt = paper.CreatedAt
	}
	m.s.papers[paper.ID] = paper
	return nil
}

func (m *mockPaperRepo) GetByID(_ context.Context, id uint) (*model.Paper, error) {
	if p, ok := m.s.papers[id]; ok {
		cp := m.s.paperCopy(p, true)
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPaperRepo) GetMeta(_ context.Context, id uint) (*model.Paper, error) {
	if p, ok := m.s.papers[id]; ok {
		cp := m.s.paperCopy(p, false)
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPaperRepo) sorted(keep func(p *model.Paper) bool) []model.Paper {
	var result []model.Paper
	for _, p := range m.s.papers {
		if keep(p) {
			result = append(result, *p)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result
}

func (m *mockPaperRepo) ListByUser(_ context.Context, userID uint) ([]model.Paper, error) {
	return m.sorted(func(p *model.Paper) bool { return p.UserID == userID }), nil
}

func (m *mockPaperRepo) ListAll(_ context.Context) ([]model.Paper, error) {
	return m.sorted(func(*model.Paper) bool { return true }), nil
}

func (m *mockPaperRepo) ListUnassigned(_ context.Context, f repository.PaperFilter) ([]model.Paper, error) {
	return m.sorted(func(p *model.Paper) bool {
		for _, a := range m.s.assignments {
			if a.PaperID == p.ID {
				return false
			}
		}
		return matchPaper(p, f)
	}), nil
}

func (m *mockPaperRepo) UpdateStatus(_ context.Context, id uint, status model.PaperStatus) error {
	if m.s.failPaperStatus {
		return errors.New("papers 表写入失败")
	}
	p, ok := m.s.papers[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.Status = status
	p.UpdatedAt = time.Now()
	return nil
}

func (m *mockPaperRepo) NextReviewSeq(_ context.Context, id uint) (int64, error) {
	p, ok := m.s.papers[id]
	if !ok {
		return 0, gorm.ErrRecordNotFound
	}
	p.ReviewSeq++
	return p.ReviewSeq, nil
}

func (m *mockPaperRepo) CountByCountry(_ context.Context) ([]repository.GroupCount, error) {
	return m.countBy(func(p *model.Paper) string { return p.Country }), nil
}

func (m *mockPaperRepo) CountByState(_ context.Context) ([]repository.GroupCount, error) {
	return m.countBy(func(p *model.Paper) string { return p.State }), nil
}

func (m *mockPaperRepo) countBy(key func(p *model.Paper) string) []repository.GroupCount {
	counts := make(map[string]int64)
	for _, p := range m.s.papers {
		if k := key(p); k != "" {
			counts[k]++
		}
	}
	result := make([]repository.GroupCount, 0, len(counts))
	for name, n := range counts {
		result = append(result, repository.GroupCount{Name: name, Count: n})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Name < result[j].Name
	})
	return result
}

func matchPaper(p *model.Paper, f repository.PaperFilter) bool {
	if f.FromDate != nil && p.CreatedAt.Before(*f.FromDate) {
		return false
	}
	if f.ToDate != nil && !p.CreatedAt.Before(f.ToDate.AddDate(0, 0, 1)) {
		return false
	}
	if len(f.PaperTracks) > 0 && !contains(f.PaperTracks, p.Tracks) {
		return false
	}
	return true
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// ── Mock AssignmentRepository ──

type mockAssignmentRepo struct{ s *memStore }

func (m *mockAssignmentRepo) withRefs(a *model.Assignment, withBlob bool) model.Assignment {
	cp := *a
	if p, ok := m.s.papers[a.PaperID]; ok {
		pc := m.s.paperCopy(p, withBlob)
		cp.Paper = &pc
	}
	if u, ok := m.s.users[a.ReviewerID]; ok {
		uc := *u
		cp.Reviewer = &uc
	}
	return cp
}

func (m *mockAssignmentRepo) Create(_ context.Context, a *model.Assignment) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, cur := range m.s.assignments {
		if cur.PaperID == a.PaperID && cur.ReviewerID == a.ReviewerID {
			return gorm.ErrDuplicatedKey
		}
	}
	a.ID = m.s.id()
	cp := *a
	m.s.assignments = append(m.s.assignments, &cp)
	return nil
}

func (m *mockAssignmentRepo) Exists(_ context.Context, paperID, reviewerID uint) (bool, error) {
	for _, a := range m.s.assignments {
		if a.PaperID == paperID && a.ReviewerID == reviewerID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockAssignmentRepo) GetFirstByPaper(_ context.Context, paperID uint) (*model.Assignment, error) {
	var first *model.Assignment
	for _, a := range m.s.assignments {
		if a.PaperID == paperID && (first == nil || a.ID < first.ID) {
			first = a
		}
	}
	if first == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *first
	return &cp, nil
}

func (m *mockAssignmentRepo) filter(withBlob bool, keep func(a *model.Assignment) bool) []model.Assignment {
	var result []model.Assignment
	for _, a := range m.s.assignments {
		if keep(a) {
			result = append(result, m.withRefs(a, withBlob))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (m *mockAssignmentRepo) ListByPaper(_ context.Context, paperID uint) ([]model.Assignment, error) {
	return m.filter(false, func(a *model.Assignment) bool { return a.PaperID == paperID }), nil
}

func (m *mockAssignmentRepo) ListByPaperIDs(_ context.Context, ids []uint) ([]model.Assignment, error) {
	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return m.filter(false, func(a *model.Assignment) bool { return set[a.PaperID] }), nil
}

func (m *mockAssignmentRepo) ListByReviewer(_ context.Context, reviewerID uint) ([]model.Assignment, error) {
	return m.filter(true, func(a *model.Assignment) bool { return a.ReviewerID == reviewerID }), nil
}

func (m *mockAssignmentRepo) ListWithPapers(_ context.Context) ([]model.Assignment, error) {
	return m.filter(false, func(*model.Assignment) bool { return true }), nil
}

func (m *mockAssignmentRepo) List(_ context.Context, f repository.PaperFilter) ([]model.AssignmentDetail, error) {
	var rows []model.AssignmentDetail
	for _, a := range m.s.assignments {
		p, okP := m.s.papers[a.PaperID]
		u, okU := m.s.users[a.ReviewerID]
		if !okP || !okU || !matchPaper(p, f) {
			continue
		}
		if len(f.ReviewerTracks) > 0 && !contains(f.ReviewerTracks, u.Track) {
			continue
		}
		rows = append(rows, model.AssignmentDetail{
			AssignmentID:  a.ID,
			PaperID:       p.ID,
			ReviewerID:    u.ID,
			PaperTitle:    p.Title,
			PaperTracks:   p.Tracks,
			PaperCreated:  p.CreatedAt,
			ReviewerName:  u.Name,
			ReviewerEmail: u.Email,
			ReviewerTrack: u.Track,
			AssignedAt:    a.AssignedAt,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].PaperTitle != rows[j].PaperTitle {
			return rows[i].PaperTitle < rows[j].PaperTitle
		}
		return rows[i].AssignmentID < rows[j].AssignmentID
	})
	return rows, nil
}

func (m *mockAssignmentRepo) UpdateReviewer(_ context.Context, a *model.Assignment, newID uint) error {
	for _, cur := range m.s.assignments {
		if cur.PaperID == a.PaperID && cur.ReviewerID == newID {
			return gorm.ErrDuplicatedKey
		}
	}
	for _, cur := range m.s.assignments {
		if cur.ID == a.ID && cur.ReviewerID == a.ReviewerID {
			cur.ReviewerID = newID
			return nil
		}
	}
	return pkgerrors.ErrOptimisticLock
}

func (m *mockAssignmentRepo) remove(drop func(a *model.Assignment) bool) int64 {
	var kept []*model.Assignment
	var n int64
	for _, a := range m.s.assignments {
		if drop(a) {
			n++
			continue
		}
		kept = append(kept, a)
	}
	m.s.assignments = kept
	return n
}

func (m *mockAssignmentRepo) DeleteByPaper(_ context.Context, paperID uint) (int64, error) {
	return m.remove(func(a *model.Assignment) bool { return a.PaperID == paperID }), nil
}

func (m *mockAssignmentRepo) DeleteByReviewer(_ context.Context, reviewerID uint) (int64, error) {
	return m.remove(func(a *model.Assignment) bool { return a.ReviewerID == reviewerID }), nil
}

// ── Mock ReviewRepository ──

type mockReviewRepo struct{ s *memStore }

func (m *mockReviewRepo) withReviewer(r *model.Review) model.Review {
	cp := *r
	if u, ok := m.s.users[r.ReviewerID]; ok {
		uc := *u
		cp.Reviewer = &uc
	}
	return cp
}

func (m *mockReviewRepo) Upsert(_ context.Context, review *model.Review) error {
	for _, r := range m.s.reviews {
		if r.PaperID == review.PaperID && r.ReviewerID == review.ReviewerID {
			r.Status = review.Status
			r.Comments = review.Comments
			r.Seq = review.Seq
			r.ReviewedAt = review.ReviewedAt
			review.ID = r.ID
			return nil
		}
	}
	review.ID = m.s.id()
	cp := *review
	m.s.reviews = append(m.s.reviews, &cp)
	return nil
}

func (m *mockReviewRepo) Latest(_ context.Context, paperID uint) (*model.Review, error) {
	var list []model.Review
	for _, r := range m.s.reviews {
		if r.PaperID == paperID {
			list = append(list, m.withReviewer(r))
		}
	}
	if latest := model.LatestReview(list); latest != nil {
		return latest, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockReviewRepo) ListByPaperIDs(_ context.Context, ids []uint) ([]model.Review, error) {
	var result []model.Review
	for _, r := range m.s.reviews {
		for _, id := range ids {
			if r.PaperID == id {
				result = append(result, m.withReviewer(r))
			}
		}
	}
	return result, nil
}

func (m *mockReviewRepo) ListByReviewer(_ context.Context, reviewerID uint) ([]model.Review, error) {
	var result []model.Review
	for _, r := range m.s.reviews {
		if r.ReviewerID == reviewerID {
			result = append(result, *r)
		}
	}
	return result, nil
}

func (m *mockReviewRepo) DeleteByReviewer(_ context.Context, reviewerID uint) (int64, error) {
	var kept []*model.Review
	var n int64
	for _, r := range m.s.reviews {
		if r.ReviewerID == reviewerID {
			n++
			continue
		}
		kept = append(kept, r)
	}
	m.s.reviews = kept
	return n, nil
}

// ── Mock OutboxRepository ──

type mockOutboxRepo struct{ s *memStore }

func (m *mockOutboxRepo) Create(_ context.Context, msg *model.OutboxMessage) error {
	if m.s.failOutboxCreate {
		return errors.New("notification_outbox 表写入失败")
	}
	msg.ID = m.s.id()
	if msg.Status == "" {
		msg.Status = model.OutboxPending
	}
	cp := *msg
	m.s.outbox = append(m.s.outbox, &cp)
	return nil
}

func (m *mockOutboxRepo) ClaimDue(_ context.Context, now time.Time, limit int) ([]model.OutboxMessage, error) {
	var result []model.OutboxMessage
	for _, msg := range m.s.outbox {
		if msg.Status == model.OutboxPending && !msg.NextAttemptAt.After(now) {
			result = append(result, *msg)
			if len(result) == limit {
				break
			}
		}
	}
	return result, nil
}

func (m *mockOutboxRepo) find(id uint) *model.OutboxMessage {
	for _, msg := range m.s.outbox {
		if msg.ID == id {
			return msg
		}
	}
	return nil
}

func (m *mockOutboxRepo) Lease(_ context.Context, ids []uint, until time.Time) error {
	for _, id := range ids {
		if msg := m.find(id); msg != nil && msg.Status == model.OutboxPending {
			msg.NextAttemptAt = until
		}
	}
	return nil
}

func (m *mockOutboxRepo) MarkSent(_ context.Context, id uint, at time.Time) error {
	msg := m.find(id)
	if msg == nil {
		return gorm.ErrRecordNotFound
	}
	msg.Status = model.OutboxSent
	msg.Attempts++
	msg.SentAt = &at
	return nil
}

func (m *mockOutboxRepo) MarkRetry(_ context.Context, id uint, attempts int, next time.Time, lastErr string) error {
	msg := m.find(id)
	if msg == nil {
		return gorm.ErrRecordNotFound
	}
	msg.Attempts = attempts
	msg.NextAttemptAt = next
	msg.LastError = &lastErr
	return nil
}

func (m *mockOutboxRepo) MarkFailed(_ context.Context, id uint, attempts int, lastErr string) error {
	msg := m.find(id)
	if msg == nil {
		return gorm.ErrRecordNotFound
	}
	msg.Status = model.OutboxFailed
	msg.Attempts = attempts
	msg.LastError = &lastErr
	return nil
}

func (m *mockOutboxRepo) CountPending(_ context.Context) (int64, error) {
	var n int64
	for _, msg := range m.s.outbox {
		if msg.Status == model.OutboxPending {
			n++
		}
	}
	return n, nil
}

// ── Mock Mailer ──

type recordingMailer struct {
	mu     sync.Mutex
	sent   []mailer.Message
	fail   map[string]bool          // 收件人 -> 总是失败
	err    error                    // 非 nil 时所有发送失败
	onSend func(msg mailer.Message) // 每次成功发送后回调
}

func newRecordingMailer() *recordingMailer {
	return &recordingMailer{fail: make(map[string]bool)}
}

func (m *recordingMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.fail[msg.To] {
		return errors.New("smtp: 550 mailbox unavailable")
	}
	m.sent = append(m.sent, msg)
	if m.onSend != nil {
		m.onSend(msg)
	}
	return nil
}

func (m *recordingMailer) recipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sent))
	for _, msg := range m.sent {
		out = append(out, msg.To)
	}
	return out
}

// ── Mock TokenBlacklist ──

type mockBlacklist struct {
	tokens map[string]time.Duration
}

func (m *mockBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	m.tokens[jti] = ttl
	return nil
}
