package access

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/bigkaa/cleancity/portal/internal/domain/rbac"
	"github.com/bigkaa/cleancity/portal/internal/session"
)

// stubSource — SessionSource с изменяемым снимком.
type stubSource struct {
	mu      sync.Mutex
	snap    session.Snapshot
	settled chan struct{}
}

func (s *stubSource) Snapshot() session.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

func (s *stubSource) WaitSettled(ctx context.Context) error {
	if s.settled == nil {
		return nil
	}
	select {
	case <-s.settled:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *stubSource) set(snap session.Snapshot) {
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name         string
		snap         session.Snapshot
		requireAdmin bool
		want         Decision
	}{
		{"загрузка", session.Snapshot{Loading: true}, false, Wait},
		{"загрузка admin с известной ролью", session.Snapshot{UserID: "u", Role: rbac.RoleAdmin, Loading: true}, true, Wait},
		{"аноним", session.Snapshot{}, false, Deny},
		{"аноним на admin", session.Snapshot{}, true, Deny},
		{"citizen", session.Snapshot{UserID: "u", Role: rbac.RoleCitizen}, false, Allow},
		{"citizen на admin", session.Snapshot{UserID: "u", Role: rbac.RoleCitizen}, true, Deny},
		{"admin", session.Snapshot{UserID: "u", Role: rbac.RoleAdmin}, true, Allow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGate(&stubSource{snap: tt.snap})
			if got := g.Decide(tt.requireAdmin); got != tt.want {
				t.Errorf("Decide(%v) = %s, ожидалось %s", tt.requireAdmin, got, tt.want)
			}
		})
	}
}

func TestGate_NotCached(t *testing.T) {
	src := &stubSource{snap: session.Snapshot{UserID: "u", Role: rbac.RoleAdmin}}
	g := NewGate(src)
	if !g.IsAdmin() {
		t.Fatal("IsAdmin() = false для admin")
	}

	src.set(session.Snapshot{})
	if g.IsAdmin() || g.IsAuthenticated() {
		t.Error("Gate вернул устаревшее решение после выхода")
	}
}

func TestGate_Await(t *testing.T) {
	src := &stubSource{snap: session.Snapshot{Loading: true}, settled: make(chan struct{})}
	g := NewGate(src)

	// Загрузка не успевает — Wait.
	if got := g.Await(context.Background(), false, 20*time.Millisecond); got != Wait {
		t.Errorf("Await() = %s, ожидался wait", got)
	}

	go func() {
		src.set(session.Snapshot{UserID: "u", Role: rbac.RoleCitizen})
		close(src.settled)
	}()
	if got := g.Await(context.Background(), false, time.Second); got != Allow {
		t.Errorf("Await() = %s, ожидался allow", got)
	}
}

// recordingResponder запоминает, какой ответ был выбран.
type recordingResponder struct {
	waited bool
	denied *DenyReason
}

func (r *recordingResponder) Waiting(w http.ResponseWriter, _ *http.Request) {
	r.waited = true
	w.WriteHeader(http.StatusOK)
}

func (r *recordingResponder) Denied(w http.ResponseWriter, req *http.Request, reason DenyReason) {
	r.denied = &reason
	http.Redirect(w, req, "/login", http.StatusSeeOther)
}

func TestMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		snap       session.Snapshot
		admin      bool
		wantNext   bool
		wantWait   bool
		wantReason *DenyReason
	}{
		{name: "citizen на странице пользователя", snap: session.Snapshot{UserID: "u", Role: rbac.RoleCitizen}, wantNext: true},
		{name: "аноним", snap: session.Snapshot{}, wantReason: ptr(ReasonAnonymous)},
		{name: "citizen в админке", snap: session.Snapshot{UserID: "u", Role: rbac.RoleCitizen}, admin: true, wantReason: ptr(ReasonNotAdmin)},
		{name: "admin в админке", snap: session.Snapshot{UserID: "u", Role: rbac.RoleAdmin}, admin: true, wantNext: true},
		{name: "загрузка", snap: session.Snapshot{Loading: true}, wantWait: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &stubSource{snap: tt.snap, settled: make(chan struct{})}
			resp := &recordingResponder{}
			m := Middleware{
				GateFor:     func(*http.Request) *Gate { return NewGate(src) },
				Responder:   resp,
				WaitTimeout: 10 * time.Millisecond,
			}

			called := false
			next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })
			h := m.RequireAuth(next)
			if tt.admin {
				h = m.RequireAdmin(next)
			}

			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

			if called != tt.wantNext {
				t.Errorf("next вызван = %v, ожидалось %v", called, tt.wantNext)
			}
			if resp.waited != tt.wantWait {
				t.Errorf("Waiting вызван = %v, ожидалось %v", resp.waited, tt.wantWait)
			}
			if (tt.wantReason == nil) != (resp.denied == nil) || (tt.wantReason != nil && *tt.wantReason != *resp.denied) {
				t.Errorf("Denied reason = %v, ожидалось %v", resp.denied, tt.wantReason)
			}
		})
	}
}

func ptr[T any](v T) *T { return &v }
