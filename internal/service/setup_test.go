package service

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"icodses/backend/config"
	"icodses/backend/internal/model"
	"icodses/backend/pkg/jwt"
)

var (
	adminCaller    = Caller{ID: 1, Role: model.RoleAdmin}
	authorCaller   = Caller{ID: 2, Role: model.RoleUser}
	reviewerCaller = Caller{ID: 7, Role: model.RoleReviewer, Track: "AI"}
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{FrontendURL: "http://localhost:5173"},
		Auth: config.AuthConfig{
			JWTSecret:      "unit-test-secret-0123456789",
			AccessTokenTTL: time.Hour,
			Issuer:         "icodses-test",
		},
		Mail:   config.MailConfig{MaxAttempts: 2, RetryBackoff: time.Millisecond},
		Outbox: config.OutboxConfig{BatchSize: 10, MaxAttempts: 3, BaseBackoff: 30 * time.Second},
		Upload: config.UploadConfig{MaxAbstractBytes: 1024},
	}
}

type testEnv struct {
	cfg    *config.Config
	store  *memStore
	mailer *recordingMailer
	tokens *mockBlacklist
	svc    *Service
}

// setupTestEnv 管理员 1、作者 2、审稿人 7/8、非审稿人 9；论文 3 与 9
func setupTestEnv(t *testing.T, mutate ...func(c *config.Config)) *testEnv {
	t.Helper()

	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}

	store := newMemStore()
	store.addUser(1, "Admin", "admin@nec.org", model.RoleAdmin, "")
	store.addUser(2, "Asha Rao", "asha@example.com", model.RoleUser, "")
	store.addUser(7, "Reviewer Seven", "r7@nec.org", model.RoleReviewer, "AI")
	store.addUser(8, "Reviewer Eight", "r8@nec.org", model.RoleReviewer, "Networks")
	store.addUser(9, "Plain User", "plain@example.com", model.RoleUser, "")

	authors := []model.Author{
		{Name: "Asha Rao", Email: "asha@example.com"},
		{Name: "Ravi K", Email: "ravi@example.com"},
	}
	p3 := store.addPaper(3, "Graph Sparsification", authors, time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local))
	p3.Tracks = "AI"
	p3.Country, p3.State = "India", "Kerala"
	p9 := store.addPaper(9, "Edge Caching", authors, time.Date(2026, 3, 12, 18, 30, 0, 0, time.Local))
	p9.Tracks = "Networks"
	p9.Country, p9.State = "India", "Goa"

	m := newRecordingMailer()
	tokens := &mockBlacklist{tokens: make(map[string]time.Duration)}

	svc := NewService(cfg, store.repository(), Deps{
		JWT:    jwt.NewManager(&cfg.Auth),
		Tokens: tokens,
		Mailer: m,
	}, zap.NewNop())

	return &testEnv{cfg: cfg, store: store, mailer: m, tokens: tokens, svc: svc}
}

func strPtr(s string) *string { return &s }
