package throttle

import (
	"testing"
	"time"

	"github.com/example/wildsearch/pkg/models"
)

// ----- Fake log store -----

type fakeLogStore struct {
	entries []models.LogCommandItem

	countChatID  int64
	countCommand models.Command
	countStatus  models.LogStatus
	countSince   time.Time
}

func (f *fakeLogStore) CountSince(chatID int64, command models.Command, status models.LogStatus, since time.Time) (int, error) {
	f.countChatID, f.countCommand, f.countStatus, f.countSince = chatID, command, status, since

	n := 0
	for _, e := range f.entries {
		if e.ChatID == chatID && e.Command == command.Slug() && e.Status == string(status) && !e.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (f *fakeLogStore) OldestSince(chatID int64, command models.Command, status models.LogStatus, since time.Time) (*models.LogCommandItem, error) {
	var oldest *models.LogCommandItem
	for i := range f.entries {
		e := &f.entries[i]
		if e.ChatID != chatID || e.Command != command.Slug() || e.Status != string(status) || e.CreatedAt.Before(since) {
			continue
		}
		if oldest == nil || e.CreatedAt.Before(oldest.CreatedAt) {
			oldest = e
		}
	}
	return oldest, nil
}

func (f *fakeLogStore) add(chatID int64, status models.LogStatus, createdAt time.Time) {
	f.entries = append(f.entries, models.LogCommandItem{
		ChatID:    chatID,
		Command:   models.CommandWBCatalog.Slug(),
		Status:    string(status),
		CreatedAt: createdAt,
	})
}

func newGuardAt(logs LogStore, now time.Time) *Guard {
	g := NewGuard(logs)
	g.now = func() time.Time { return now }
	return g
}

func testUser(limit int) *models.User {
	return &models.User{ChatID: 383716, DailyCatalogRequestsLimit: limit}
}

// ----- Tests -----

func TestCanAdmit_NoHistory(t *testing.T) {
	now := time.Date(2030, 1, 15, 1, 30, 0, 0, time.UTC)
	g := newGuardAt(&fakeLogStore{}, now)
	user := testUser(5)

	ok, err := g.CanAdmit(user)
	if err != nil {
		t.Fatalf("CanAdmit: %v", err)
	}
	if !ok {
		t.Fatal("user with no history must be admitted")
	}

	remaining, err := g.Remaining(user)
	if err != nil {
		t.Fatalf("Remaining: %v", err)
	}
	if remaining != 5 {
		t.Fatalf("Remaining = %d, want full limit 5", remaining)
	}
}

func TestCanAdmit_BlockedUser(t *testing.T) {
	now := time.Date(2030, 1, 15, 1, 30, 0, 0, time.UTC)
	g := newGuardAt(&fakeLogStore{}, now)
	user := testUser(5)
	user.CatalogRequestsBlocked = true

	ok, err := g.CanAdmit(user)
	if err != nil {
		t.Fatalf("CanAdmit: %v", err)
	}
	if ok {
		t.Fatal("blocked user must never be admitted")
	}
}

func TestCanAdmit_ExactLimitRejectsNext(t *testing.T) {
	now := time.Date(2030, 1, 15, 12, 0, 0, 0, time.UTC)
	logs := &fakeLogStore{}
	user := testUser(5)

	for i := 0; i < 4; i++ {
		logs.add(user.ChatID, models.LogStatusSuccess, now.Add(-time.Duration(i+1)*time.Hour))
	}

	g := newGuardAt(logs, now)
	if ok, _ := g.CanAdmit(user); !ok {
		t.Fatal("4 of 5 requests used, 5th must be admitted")
	}

	logs.add(user.ChatID, models.LogStatusSuccess, now.Add(-30*time.Minute))
	if ok, _ := g.CanAdmit(user); ok {
		t.Fatal("limit of 5 reached, 6th attempt must be rejected")
	}
}

func TestCanAdmit_OnlySuccessCounts(t *testing.T) {
	now := time.Date(2030, 1, 15, 12, 0, 0, 0, time.UTC)
	logs := &fakeLogStore{}
	user := testUser(5)

	for i := 0; i < 3; i++ {
		logs.add(user.ChatID, models.LogStatusSuccess, now.Add(-time.Hour))
	}
	// Failed attempts and unresolved entries must not consume quota.
	logs.add(user.ChatID, models.LogStatusTooLongQueue, now.Add(-time.Hour))
	logs.add(user.ChatID, models.LogStatus(""), now.Add(-time.Hour))
	logs.add(user.ChatID, models.LogStatusPending, now.Add(-time.Hour))

	g := newGuardAt(logs, now)
	remaining, err := g.Remaining(user)
	if err != nil {
		t.Fatalf("Remaining: %v", err)
	}
	if remaining != 2 {
		t.Fatalf("Remaining = %d, want 2 (only success entries count)", remaining)
	}
}

func TestCanAdmit_SlidingWindow(t *testing.T) {
	logs := &fakeLogStore{}
	user := testUser(3)

	logs.add(user.ChatID, models.LogStatusSuccess, time.Date(2030, 6, 15, 1, 20, 0, 0, time.UTC))
	logs.add(user.ChatID, models.LogStatusSuccess, time.Date(2030, 6, 15, 1, 30, 0, 0, time.UTC))
	logs.add(user.ChatID, models.LogStatusSuccess, time.Date(2030, 6, 15, 1, 40, 0, 0, time.UTC))

	// One second before the oldest entry leaves the window.
	g := newGuardAt(logs, time.Date(2030, 6, 16, 1, 19, 59, 0, time.UTC))
	if ok, _ := g.CanAdmit(user); ok {
		t.Fatal("window still holds 3 entries, must be rejected")
	}

	// One second after it has aged out.
	g = newGuardAt(logs, time.Date(2030, 6, 16, 1, 20, 1, 0, time.UTC))
	if ok, _ := g.CanAdmit(user); !ok {
		t.Fatal("oldest entry aged out, must be admitted again")
	}
}

func TestNextFreeAt_UnderQuota(t *testing.T) {
	now := time.Date(2030, 1, 15, 1, 30, 0, 0, time.UTC)
	logs := &fakeLogStore{}
	user := testUser(5)
	logs.add(user.ChatID, models.LogStatusSuccess, now.Add(-time.Hour))

	g := newGuardAt(logs, now)
	at, err := g.NextFreeAt(user)
	if err != nil {
		t.Fatalf("NextFreeAt: %v", err)
	}
	if at.After(now) {
		t.Fatalf("NextFreeAt = %v, must not be later than now %v", at, now)
	}
}

func TestNextFreeAt_OverQuota(t *testing.T) {
	logs := &fakeLogStore{}
	user := testUser(5)

	logs.add(user.ChatID, models.LogStatusSuccess, time.Date(2030, 6, 15, 1, 20, 0, 0, time.UTC))
	logs.add(user.ChatID, models.LogStatusSuccess, time.Date(2030, 6, 15, 1, 30, 0, 0, time.UTC))
	for i := 0; i < 3; i++ {
		logs.add(user.ChatID, models.LogStatusSuccess, time.Date(2030, 6, 15, 1, 40, 0, 0, time.UTC))
	}

	now := time.Date(2030, 6, 15, 2, 0, 0, 0, time.UTC)
	g := newGuardAt(logs, now)

	at, err := g.NextFreeAt(user)
	if err != nil {
		t.Fatalf("NextFreeAt: %v", err)
	}
	want := time.Date(2030, 6, 16, 1, 20, 0, 0, time.UTC)
	if !at.Equal(want) {
		t.Fatalf("NextFreeAt = %v, want oldest+24h %v", at, want)
	}
	if !at.After(now) {
		t.Fatal("NextFreeAt for an over-quota user must be in the future")
	}
}

func TestRemaining_NegativeAfterLimitLowered(t *testing.T) {
	now := time.Date(2030, 1, 15, 12, 0, 0, 0, time.UTC)
	logs := &fakeLogStore{}
	user := testUser(2)

	for i := 0; i < 4; i++ {
		logs.add(user.ChatID, models.LogStatusSuccess, now.Add(-time.Hour))
	}

	g := newGuardAt(logs, now)
	remaining, err := g.Remaining(user)
	if err != nil {
		t.Fatalf("Remaining: %v", err)
	}
	if remaining != -2 {
		t.Fatalf("Remaining = %d, want -2", remaining)
	}
}

func TestWindowQuery_UsesSuccessAndCommand(t *testing.T) {
	now := time.Date(2030, 1, 15, 12, 0, 0, 0, time.UTC)
	logs := &fakeLogStore{}
	g := newGuardAt(logs, now)

	if _, err := g.CanAdmit(testUser(5)); err != nil {
		t.Fatalf("CanAdmit: %v", err)
	}
	if logs.countCommand != models.CommandWBCatalog {
		t.Fatalf("counted command %q, want wb_catalog", logs.countCommand)
	}
	if logs.countStatus != models.LogStatusSuccess {
		t.Fatalf("counted status %q, want success", logs.countStatus)
	}
	if want := now.Add(-Window); !logs.countSince.Equal(want) {
		t.Fatalf("window start %v, want %v", logs.countSince, want)
	}
}
