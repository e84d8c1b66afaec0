// Пакет repotest — in-memory реализации репозиториев для unit-тестов
// сервисов и обработчиков.
package repotest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bigkaa/cleancity/portal/internal/domain/model"
	"github.com/bigkaa/cleancity/portal/internal/domain/rbac"
	"github.com/bigkaa/cleancity/portal/internal/repository"
)

// DB — общее in-memory состояние всех репозиториев.
// Поля Fail* подставляют ошибку в соответствующую операцию.
type DB struct {
	mu  sync.Mutex
	seq int
	now time.Time

	Profiles    map[string]*model.Profile
	Roles       map[string]map[rbac.Role]bool
	Reports     []*model.IssueReport
	Waste       []*model.WasteEntry
	Balances    map[string]*model.UserPoints
	Txs         []*model.PointTransaction
	Rewards     map[string]*model.Reward
	Redemptions []*model.Redemption
	Points      map[string]*model.CollectionPoint

	FailReportCreate error
	FailCredit       error
	FailRole         error
	FailCount        error
}

// New создаёт пустое состояние.
func New() *DB {
	return &DB{
		now:      time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Profiles: make(map[string]*model.Profile),
		Roles:    make(map[string]map[rbac.Role]bool),
		Balances: make(map[string]*model.UserPoints),
		Rewards:  make(map[string]*model.Reward),
		Points:   make(map[string]*model.CollectionPoint),
	}
}

// nextID выдаёт детерминированный идентификатор; вызывается под mu.
func (db *DB) nextID() string {
	db.seq++
	return fmt.Sprintf("00000000-0000-4000-8000-%012d", db.seq)
}

// tick сдвигает часы, чтобы сортировка по времени была однозначной.
func (db *DB) tick() time.Time {
	db.now = db.now.Add(time.Second)
	return db.now
}

// AddProfile создаёт профиль со счётом баллов.
func (db *DB) AddProfile(userID, email, name string, balance int) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.Profiles[userID] = &model.Profile{UserID: userID, Email: email, DisplayName: name}
	db.Balances[userID] = &model.UserPoints{UserID: userID, Balance: balance, LifetimeEarned: balance}
}

// AddReward добавляет позицию каталога.
func (db *DB) AddReward(rw model.Reward) {
	db.mu.Lock()
	defer db.mu.Unlock()
	r := rw
	db.Rewards[r.ID] = &r
}

// AddPoint добавляет пункт приёма.
func (db *DB) AddPoint(cp model.CollectionPoint) {
	db.mu.Lock()
	defer db.mu.Unlock()
	p := cp
	db.Points[p.ID] = &p
}

// BalanceOf возвращает текущий баланс (0, если счёта нет).
func (db *DB) BalanceOf(userID string) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	if b, ok := db.Balances[userID]; ok {
		return b.Balance
	}
	return 0
}

// snapshot копирует изменяемое состояние для отката транзакции.
func (db *DB) snapshot() *DB {
	db.mu.Lock()
	defer db.mu.Unlock()
	cp := &DB{
		seq:         db.seq,
		now:         db.now,
		Reports:     append([]*model.IssueReport(nil), db.Reports...),
		Waste:       append([]*model.WasteEntry(nil), db.Waste...),
		Txs:         append([]*model.PointTransaction(nil), db.Txs...),
		Redemptions: append([]*model.Redemption(nil), db.Redemptions...),
		Balances:    make(map[string]*model.UserPoints, len(db.Balances)),
		Rewards:     make(map[string]*model.Reward, len(db.Rewards)),
	}
	for k, v := range db.Balances {
		b := *v
		cp.Balances[k] = &b
	}
	for k, v := range db.Rewards {
		r := *v
		cp.Rewards[k] = &r
	}
	return cp
}

func (db *DB) restore(s *DB) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.seq, db.now = s.seq, s.now
	db.Reports, db.Waste, db.Txs, db.Redemptions = s.Reports, s.Waste, s.Txs, s.Redemptions
	db.Balances, db.Rewards = s.Balances, s.Rewards
}

// --- UnitOfWork ---

// UnitOfWork откатывает все изменения, если fn вернула ошибку.
type UnitOfWork struct{ DB *DB }

func (u UnitOfWork) Do(ctx context.Context, fn func(r repository.TxRepos) error) error {
	saved := u.DB.snapshot()
	err := fn(repository.TxRepos{
		Waste:   Waste{u.DB},
		Points:  Points{u.DB},
		Rewards: Rewards{u.DB},
	})
	if err != nil {
		u.DB.restore(saved)
	}
	return err
}

// --- Profiles ---

// Profiles — repository.ProfileRepository.
type Profiles struct{ DB *DB }

func (r Profiles) Get(_ context.Context, userID string) (*model.Profile, error) {
	r.DB.mu.Lock()
	defer r.DB.mu.Unlock()
	p, ok := r.DB.Profiles[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r Profiles) Ensure(ctx context.Context, p *model.Profile) (*model.Profile, error) {
	r.DB.mu.Lock()
	if _, ok := r.DB.Profiles[p.UserID]; !ok {
		np := *p
		np.CreatedAt, np.UpdatedAt = r.DB.now, r.DB.now
		r.DB.Profiles[p.UserID] = &np
	}
	if _, ok := r.DB.Balances[p.UserID]; !ok {
		r.DB.Balances[p.UserID] = &model.UserPoints{UserID: p.UserID}
	}
	r.DB.mu.Unlock()
	return r.Get(ctx, p.UserID)
}

func (r Profiles) Update(_ context.Context, userID string, upd model.ProfileUpdate) error {
	r.DB.mu.Lock()
	defer r.DB.mu.Unlock()
	p, ok := r.DB.Profiles[userID]
	if !ok {
		return repository.ErrNotFound
	}
	if upd.DisplayName != nil {
		p.DisplayName = *upd.DisplayName
	}
	if upd.City != nil {
		p.City = *upd.City
	}
	if upd.Region != nil {
		p.Region = *upd.Region
	}
	p.UpdatedAt = r.DB.tick()
	return nil
}

func (r Profiles) Count(context.Context) (int, error) {
	r.DB.mu.Lock()
	defer r.DB.mu.Unlock()
	if r.DB.FailCount != nil {
		return 0, r.DB.FailCount
	}
	return len(r.DB.Profiles), nil
}

// --- Roles ---

// Roles — repository.RoleRepository.
type Roles struct{ DB *DB }

func (r Roles) HasRole(_ context.Context, userID string, role rbac.Role) (bool, error) {
	if !role.IsValid() {
		return false, fmt.Errorf("%w: %q", rbac.ErrUnknownRole, role)
	}
	r.DB.mu.Lock()
	defer r.DB.mu.Unlock()
	if r.DB.FailRole != nil {
		return false, r.DB.FailRole
	}
	return r.DB.Roles[userID][role], nil
}

func (r Roles) Grant(_ context.Context, userID string, role rbac.Role) error {
	if !role.IsValid() {
		return fmt.Errorf("%w: %q", rbac.ErrUnknownRole, role)
	}
	r.DB.mu.Lock()
	defer r.DB.mu.Unlock()
	if r.DB.Roles[userID] == nil {
		r.DB.Roles[userID] = make(map[rbac.Role]bool)
	}
	r.DB.Roles[userID][role] = true
	return nil
}

// --- Reports ---

// Reports — repository.ReportRepository.
type Reports struct{ DB *DB }

func (r Reports) Create(_ context.Context, rep *model.IssueReport) error {
	r.DB.mu.Lock()
	defer r.DB.mu.Unlock()
	if r.DB.FailReportCreate != nil {
		return r.DB.FailReportCreate
	}
	rep.ID = r.DB.nextID()
	rep.Status = model.ReportPending
	rep.CreatedAt = r.DB.tick()
	rep.UpdatedAt = rep.CreatedAt
	cp := *rep
	r.DB.Reports = append(r.DB.Reports, &cp)
	return nil
}

func (r Reports) GetByID(_ context.Context, id string) (*model.IssueReport, error) {
	r.DB.mu.Lock()
	defer r.DB.mu.Unlock()
	for _, rep := range r.DB.Reports {
		if rep.ID == id {
			cp := *rep
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r Reports) filter(match func(*model.IssueReport) bool) []*model.IssueReport {
	var out []*model.IssueReport
	for i := len(r.DB.Reports) - 1; i >= 0; i-- {
		if rep := r.DB.Reports[i]; match(rep) {
			cp := *rep
			out = append(out, &cp)
		}
	}
	return out
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func (r Reports) ListByUser(_ context.Context, userID string, limit, offset int) ([]*model.IssueReport, error) {
	r.DB.mu.Lock()
	defer r.DB.mu.Unlock()
	return page(r.filter(func(rep *model.IssueReport) bool { return rep.UserID == userID }), limit, offset), nil
}

func (r Reports) List(_ context.Context, status *model.ReportStatus, limit, offset int) ([]*model.IssueReport, error) {
	r.DB.mu.Lock()
	defer r.DB.mu.Unlock()
	return page(r.filter(func(rep *model.IssueReport) bool {
		return status == nil || rep.Status == *status
	}), limit, offset), nil
}

func (r Reports) Count(_ context.Context, status *model.ReportStatus) (int, error) {
	r.DB.mu.Lock()
	defer r.DB.mu.Unlock()
	return len(r.filter(func(rep *model.IssueReport) bool {
		return status == nil || rep.Status == *status
	})), nil
}

func (r Reports) UpdateStatus(_ context.Context, id string, status model.ReportStatus, note string) (*model.IssueReport, error) {
	r.DB.mu.Lock()
	defer r.DB.mu.Unlock()
	for _, rep := range r.DB.Reports {
		if rep.ID == id {
			rep.Status, rep.AdminNote = status, note
			rep.UpdatedAt = r.DB.tick()
			cp := *rep
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r Reports) CountByStatus(context.Context) (map[model.ReportStatus]int, error) {
	r.DB.mu.Lock()
	defer r.DB.mu.Unlock()
	out := make(map[model.ReportStatus]int, len(model.ReportStatuses))
	for _, st := range model.ReportStatuses {
		out[st] = 0
	}
	for _, rep := range r.DB.Reports {
		out[rep.Status]++
	}
	return out, nil
}

// --- Waste ---

// Waste — repository.WasteRepository.
type Waste struct{ DB *DB }

func (r Waste) Create(_ context.Context, e *model.WasteEntry) error {
	r.DB.mu.Lock()
	defer r.DB.mu.Unlock()
	if e.CollectionPointID != nil {
		if _, ok := r.DB.Points[*e.CollectionPointID]; !ok {
			return fmt.Errorf("%w: пункт приёма", repository.ErrNotFound)
		}
	}
	e.ID = r.DB.nextID()
	e.CreatedAt = r.DB.tick()
	cp := *e
	r.DB.Waste = append(r.DB.Waste, &cp)
	return nil
}

func (r Waste) ListByUser(_ context.Context, userID string, limit, offset int) ([]*model.WasteEntry, error) {
	r.DB.mu.Lock()
	defer r.DB.mu.Unlock()
	var out []*model.WasteEntry
	for i := len(r.DB.Waste) - 1; i >= 0; i-- {
		if e := r.DB.Waste[i]; e.UserID == userID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return page(out, limit, offset), nil
}

func (r Waste) totals(match func(*model.WasteEntry) bool) []model.WasteTotal {
	sums := make(map[model.WasteType]float64)
	for _, e := range r.DB.Waste {
		if match(e) {
			sums[e.WasteType] += e.WeightKg
		}
	}
	out := make([]model.WasteTotal, 0, len(sums))
	for t, kg := range sums {
		out = append(out, model.WasteTotal{WasteType: t, WeightKg: kg})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WasteType < out[j].WasteType })
	return out
}

func (r Waste) TotalsByUser(_ context.Context, userID string) ([]model.WasteTotal, error) {
	r.DB.mu.Lock()
	defer r.DB.mu.Unlock()
	return r.totals(func(e *model.WasteEntry) bool { return e.UserID == userID }), nil
}

func (r Waste) Totals(context.Context) ([]model.WasteTotal, error) {
	r.DB.mu.Lock()
	defer r.DB.mu.Unlock()
	return r.totals(func(*model.WasteEntry) bool { return true }), nil
}

// --- Points ---

// Points — repository.PointsRepository.
type Points struct{ DB *DB }

func (r Points) Get(_ context.Context, userID string) (*model.UserPoints, error) {
	r.DB.mu.Lock()
	defer r.DB.mu.Unlock()
	b, ok := r.DB.Balances[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r Points) GetForUpdate(ctx context.Context, userID string) (*model.UserPoints, error) {
	return r.Get(ctx, userID)
}

func (r Points) Credit(_ context.Context, userID string, amount int) error {
	r.DB.mu.Lock()
	defer r.DB.mu.Unlock()
	if r.DB.FailCredit != nil {
		return r.DB.FailCredit
	}
	b, ok := r.DB.Balances[userID]
	if !ok {
		return repository.ErrNotFound
	}
	b.Balance += amount
	b.LifetimeEarned += amount
	return nil
}

func (r Points) Debit(_ context.Context, userID string, amount int) error {
	r.DB.mu.Lock()
	defer r.DB.mu.Unlock()
	b, ok := r.DB.Balances[userID]
	if !ok || b.Balance < amount {
		return fmt.Errorf("%w: недостаточно баллов", repository.ErrConflict)
	}
	b.Balance -= amount
	return nil
}

func (r Points) AddTransaction(_ context.Context, t *model.PointTransaction) error {
	r.DB.mu.Lock()
	defer r.DB.mu.Unlock()
	t.ID = r.DB.nextID()
	t.CreatedAt = r.DB.tick()
	cp := *t
	r.DB.Txs = append(r.DB.Txs, &cp)
	return nil
}

func (r Points) ListTransactions(_ context.Context, userID string, limit int) ([]*model.PointTransaction, error) {
	r.DB.mu.Lock()
	defer r.DB.mu.Unlock()
	var out []*model.PointTransaction
	for i := len(r.DB.Txs) - 1; i >= 0; i-- {
		if t := r.DB.Txs[i]; t.UserID == userID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return page(out, limit, 0), nil
}

func (r Points) Totals(context.Context) (issued, redeemed int, err error) {
	r.DB.mu.Lock()
	defer r.DB.mu.Unlock()
	for _, t := range r.DB.Txs {
		switch t.Kind {
		case model.TransactionEarn:
			issued += t.Amount
		case model.TransactionRedeem:
			redeemed -= t.Amount
		}
	}
	return issued, redeemed, nil
}

// --- Rewards ---

// Rewards — repository.RewardRepository.
type Rewards struct{ DB *DB }

func (r Rewards) List(_ context.Context, activeOnly bool) ([]*model.Reward, error) {
	r.DB.mu.Lock()
	defer r.DB.mu.Unlock()
	var out []*model.Reward
	for _, rw := range r.DB.Rewards {
		if activeOnly && !rw.Active {
			continue
		}
		cp := *rw
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PointsCost != out[j].PointsCost {
			return out[i].PointsCost < out[j].PointsCost
		}
		return out[i].Title < out[j].Title
	})
	return out, nil
}

func (r Rewards) GetByID(_ context.Context, id string) (*model.Reward, error) {
	r.DB.mu.Lock()
	defer r.DB.mu.Unlock()
	rw, ok := r.DB.Rewards[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *rw
	return &cp, nil
}

func (r Rewards) GetForUpdate(ctx context.Context, id string) (*model.Reward, error) {
	return r.GetByID(ctx, id)
}

func (r Rewards) DecrementStock(_ context.Context, id string) error {
	r.DB.mu.Lock()
	defer r.DB.mu.Unlock()
	rw, ok := r.DB.Rewards[id]
	if !ok || rw.Stock <= 0 {
		return fmt.Errorf("%w: позиция закончилась", repository.ErrConflict)
	}
	rw.Stock--
	return nil
}

func (r Rewards) CreateRedemption(_ context.Context, red *model.Redemption) error {
	r.DB.mu.Lock()
	defer r.DB.mu.Unlock()
	red.ID = r.DB.nextID()
	red.RedeemedAt = r.DB.tick()
	cp := *red
	r.DB.Redemptions = append(r.DB.Redemptions, &cp)
	return nil
}

func (r Rewards) ListRedemptions(_ context.Context, userID string, limit int) ([]*model.Redemption, error) {
	r.DB.mu.Lock()
	defer r.DB.mu.Unlock()
	var out []*model.Redemption
	for i := len(r.DB.Redemptions) - 1; i >= 0; i-- {
		if red := r.DB.Redemptions[i]; red.UserID == userID {
			cp := *red
			out = append(out, &cp)
		}
	}
	return page(out, limit, 0), nil
}

func (r Rewards) CountRedemptions(context.Context) (int, error) {
	r.DB.mu.Lock()
	defer r.DB.mu.Unlock()
	return len(r.DB.Redemptions), nil
}

// --- CollectionPoints ---

// CollectionPoints — repository.CollectionPointRepository.
type CollectionPoints struct{ DB *DB }

func (r CollectionPoints) List(_ context.Context, city string) ([]*model.CollectionPoint, error) {
	r.DB.mu.Lock()
	defer r.DB.mu.Unlock()
	var out []*model.CollectionPoint
	for _, cp := range r.DB.Points {
		if city == "" || cp.City == city {
			c := *cp
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].City != out[j].City {
			return out[i].City < out[j].City
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r CollectionPoints) GetByID(_ context.Context, id string) (*model.CollectionPoint, error) {
	r.DB.mu.Lock()
	defer r.DB.mu.Unlock()
	cp, ok := r.DB.Points[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *cp
	return &c, nil
}

func (r CollectionPoints) Cities(context.Context) ([]string, error) {
	r.DB.mu.Lock()
	defer r.DB.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for _, cp := range r.DB.Points {
		if !seen[cp.City] {
			seen[cp.City] = true
			out = append(out, cp.City)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Проверки соответствия интерфейсам.
var (
	_ repository.UnitOfWork                = UnitOfWork{}
	_ repository.ProfileRepository         = Profiles{}
	_ repository.RoleRepository            = Roles{}
	_ repository.ReportRepository          = Reports{}
	_ repository.WasteRepository           = Waste{}
	_ repository.PointsRepository          = Points{}
	_ repository.RewardRepository          = Rewards{}
	_ repository.CollectionPointRepository = CollectionPoints{}
)
