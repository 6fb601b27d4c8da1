package report

import (
	"context"
	"testing"
	"time"
)

// fakeRepo is an in-memory Repository for service tests.
type fakeRepo struct {
	reports map[int64]*Report
	nextID  int64

	failInsert bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{reports: make(map[int64]*Report), nextID: 1}
}

func (f *fakeRepo) EnsureSchema(ctx context.Context) error        { return nil }
func (f *fakeRepo) MigrateLegacySchema(ctx context.Context) error { return nil }

func (f *fakeRepo) Insert(ctx context.Context, r *Report) (int64, error) {
	if f.failInsert {
		return 0, context.DeadlineExceeded
	}
	id := f.nextID
	f.nextID++
	stored := *r
	stored.ID = id
	stored.CreatedAt = time.Now()
	f.reports[id] = &stored
	return id, nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id int64) (*Report, error) {
	r, ok := f.reports[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRepo) List(ctx context.Context, filter *ListFilter) ([]*Summary, error) {
	var out []*Summary
	for _, r := range f.reports {
		out = append(out, &Summary{ID: r.ID, PlayerName: r.PlayerName, Description: r.Description, Status: r.Status, CreatedAt: r.CreatedAt})
	}
	return out, nil
}

func (f *fakeRepo) Count(ctx context.Context, statusFilter string) (int, error) {
	return len(f.reports), nil
}

func (f *fakeRepo) GetComments(ctx context.Context, id int64) ([]string, error) {
	r, ok := f.reports[id]
	if !ok {
		return nil, ErrReportNotFound
	}
	if r.Comments == "" {
		return []string{}, nil
	}
	return []string{r.Comments}, nil
}

func (f *fakeRepo) AppendComment(ctx context.Context, id int64, line string) error {
	r, ok := f.reports[id]
	if !ok {
		return ErrReportNotFound
	}
	if r.Comments == "" {
		r.Comments = line
	} else {
		r.Comments += "\n" + line
	}
	return nil
}

func (f *fakeRepo) SetStatus(ctx context.Context, id int64, status Status, handler string) (Status, error) {
	r, ok := f.reports[id]
	if !ok {
		return "", ErrReportNotFound
	}
	old := r.Status
	r.Status = status
	r.Handler = handler
	return old, nil
}

func (f *fakeRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := f.reports[id]; !ok {
		return ErrReportNotFound
	}
	delete(f.reports, id)
	return nil
}

// statusChange records one NotifyStatusChange call.
type statusChange struct {
	id       int64
	from, to Status
	actor    string
}

// fakeNotifier records every dispatched notification.
type fakeNotifier struct {
	submissions   []int64
	statusChanges []statusChange
	comments      []string
	deletions     []int64
}

func (f *fakeNotifier) NotifySubmission(r *Report, id int64) bool {
	f.submissions = append(f.submissions, id)
	return true
}

func (f *fakeNotifier) NotifyStatusChange(id int64, oldStatus, newStatus Status, actor string) {
	f.statusChanges = append(f.statusChanges, statusChange{id: id, from: oldStatus, to: newStatus, actor: actor})
}

func (f *fakeNotifier) NotifyComment(id int64, author, text string) {
	f.comments = append(f.comments, text)
}

func (f *fakeNotifier) NotifyDeletion(r *Report, actor string) {
	f.deletions = append(f.deletions, r.ID)
}

func newTestService() (*Service, *fakeRepo, *fakeNotifier) {
	repo := newFakeRepo()
	notifier := &fakeNotifier{}
	return NewService(repo, notifier), repo, notifier
}

func seedReport(repo *fakeRepo) int64 {
	id, _ := repo.Insert(context.Background(), &Report{
		PlayerName:  "Steve",
		PlayerUUID:  "c06f8906-4c8a-4911-9c29-ea1dbd1aab82",
		Description: "Floor is missing near spawn",
		World:       "overworld",
		X:           12.5, Y: 64, Z: -3.25,
		Status: StatusOpen,
	})
	return id
}

func TestSubmitPersistsAndNotifies(t *testing.T) {
	svc, repo, notifier := newTestService()

	resp, err := svc.Submit(context.Background(), &SubmitRequest{
		PlayerName:  "Steve",
		PlayerUUID:  "c06f8906-4c8a-4911-9c29-ea1dbd1aab82",
		Description: "Floor is missing near spawn",
		World:       "overworld",
		X:           12.5, Y: 64, Z: -3.25,
		GameMode: "SURVIVAL",
		Health:   20,
		Level:    5,
	}, "203.0.113.9")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if resp.ID <= 0 {
		t.Fatalf("submit returned id %d, want positive", resp.ID)
	}
	if resp.Status != StatusOpen {
		t.Fatalf("new report status = %q, want OPEN", resp.Status)
	}
	if !resp.Relayed {
		t.Fatal("submission should have been relayed")
	}

	stored := repo.reports[resp.ID]
	if stored == nil {
		t.Fatal("report not persisted")
	}
	if stored.IPAddress != "203.0.113.9" {
		t.Fatalf("stored ip = %q", stored.IPAddress)
	}
	if stored.Inventory != "Empty" {
		t.Fatalf("empty inventory should default to %q, got %q", "Empty", stored.Inventory)
	}
	if len(notifier.submissions) != 1 || notifier.submissions[0] != resp.ID {
		t.Fatalf("submission notifications = %v", notifier.submissions)
	}
}

func TestSubmitStorageFailure(t *testing.T) {
	svc, repo, notifier := newTestService()
	repo.failInsert = true

	if _, err := svc.Submit(context.Background(), &SubmitRequest{}, "203.0.113.9"); err == nil {
		t.Fatal("submit should report the storage failure")
	}
	if len(notifier.submissions) != 0 {
		t.Fatal("failed submission must not notify")
	}
}

func TestUpdateStatusNotifiesWithOldAndNew(t *testing.T) {
	svc, repo, notifier := newTestService()
	id := seedReport(repo)

	ok, err := svc.UpdateStatus(context.Background(), id, StatusResolved, "staffA")
	if err != nil || !ok {
		t.Fatalf("update status: ok=%v err=%v", ok, err)
	}

	if repo.reports[id].Status != StatusResolved {
		t.Fatalf("status = %q, want RESOLVED", repo.reports[id].Status)
	}
	if repo.reports[id].Handler != "staffA" {
		t.Fatalf("handler = %q, want staffA", repo.reports[id].Handler)
	}
	if len(notifier.statusChanges) != 1 {
		t.Fatalf("got %d status notifications, want exactly 1", len(notifier.statusChanges))
	}
	sc := notifier.statusChanges[0]
	if sc.id != id || sc.from != StatusOpen || sc.to != StatusResolved || sc.actor != "staffA" {
		t.Fatalf("notification = %+v", sc)
	}
}

func TestUpdateStatusNonexistent(t *testing.T) {
	svc, repo, notifier := newTestService()

	ok, err := svc.UpdateStatus(context.Background(), 999, StatusResolved, "staffA")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("update of nonexistent report reported success")
	}
	if len(repo.reports) != 0 {
		t.Fatal("update must not create a row")
	}
	if len(notifier.statusChanges) != 0 {
		t.Fatal("nonexistent report must not notify")
	}
}

func TestUpdateStatusNoOpTransitionStillNotifies(t *testing.T) {
	svc, repo, notifier := newTestService()
	id := seedReport(repo)

	ok, err := svc.UpdateStatus(context.Background(), id, StatusOpen, "staffA")
	if err != nil || !ok {
		t.Fatalf("no-op transition: ok=%v err=%v", ok, err)
	}
	if len(notifier.statusChanges) != 1 {
		t.Fatal("no-op transition should still notify")
	}
	if sc := notifier.statusChanges[0]; sc.from != StatusOpen || sc.to != StatusOpen {
		t.Fatalf("notification = %+v", sc)
	}
}

func TestAddComment(t *testing.T) {
	svc, repo, notifier := newTestService()
	id := seedReport(repo)

	ok, err := svc.AddComment(context.Background(), id, "staffB", "cannot reproduce")
	if err != nil || !ok {
		t.Fatalf("add comment: ok=%v err=%v", ok, err)
	}

	comments, _ := repo.GetComments(context.Background(), id)
	if len(comments) != 1 {
		t.Fatalf("comments = %v", comments)
	}
	line := comments[0]
	if want := "staffB: cannot reproduce"; len(line) < len(want) || line[len(line)-len(want):] != want {
		t.Fatalf("comment line %q does not end with %q", line, want)
	}
	if line[0] != '[' {
		t.Fatalf("comment line %q missing timestamp prefix", line)
	}
	if len(notifier.comments) != 1 {
		t.Fatal("comment should notify once")
	}

	ok, err = svc.AddComment(context.Background(), 999, "staffB", "lost")
	if err != nil || ok {
		t.Fatalf("comment on nonexistent report: ok=%v err=%v", ok, err)
	}
}

func TestRequestDeleteTwoPhase(t *testing.T) {
	svc, repo, notifier := newTestService()
	id := seedReport(repo)

	// First call records a pending entry and leaves the report intact.
	resp, err := svc.RequestDelete(context.Background(), "staff-uuid", id, "staffA")
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if resp.Deleted || !resp.Pending {
		t.Fatalf("first call resp = %+v", resp)
	}
	if resp.Report == nil || resp.Report.ID != id {
		t.Fatalf("pending response should carry the report snapshot, got %+v", resp.Report)
	}
	if _, ok := repo.reports[id]; !ok {
		t.Fatal("report deleted on first call")
	}

	// Matching second call performs the delete.
	resp, err = svc.RequestDelete(context.Background(), "staff-uuid", id, "staffA")
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if !resp.Deleted {
		t.Fatalf("second call resp = %+v", resp)
	}
	if _, ok := repo.reports[id]; ok {
		t.Fatal("report still present after confirmed delete")
	}
	if len(notifier.deletions) != 1 || notifier.deletions[0] != id {
		t.Fatalf("deletion notifications = %v", notifier.deletions)
	}

	// A fresh request after deletion reports not-found.
	if _, err := svc.RequestDelete(context.Background(), "staff-uuid", id, "staffA"); err != ErrReportNotFound {
		t.Fatalf("expected ErrReportNotFound, got %v", err)
	}
}

func TestRequestDeleteDifferentIDRepointsPending(t *testing.T) {
	svc, repo, notifier := newTestService()
	first := seedReport(repo)
	second := seedReport(repo)

	if resp, _ := svc.RequestDelete(context.Background(), "staff-uuid", first, "staffA"); !resp.Pending {
		t.Fatal("first call should record pending")
	}

	// Second call names a different report: pending repoints, nothing
	// is deleted.
	resp, err := svc.RequestDelete(context.Background(), "staff-uuid", second, "staffA")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Deleted || !resp.Pending {
		t.Fatalf("mismatched id resp = %+v", resp)
	}
	if len(repo.reports) != 2 {
		t.Fatal("no report should have been deleted")
	}

	// Confirming the new id now deletes it.
	resp, err = svc.RequestDelete(context.Background(), "staff-uuid", second, "staffA")
	if err != nil || !resp.Deleted {
		t.Fatalf("confirm repointed id: resp=%+v err=%v", resp, err)
	}
	if _, ok := repo.reports[first]; !ok {
		t.Fatal("original report should survive")
	}
	if len(notifier.deletions) != 1 {
		t.Fatalf("deletions = %v", notifier.deletions)
	}
}

func TestRequestDeleteExpires(t *testing.T) {
	svc, repo, _ := newTestService()
	id := seedReport(repo)

	clock := &fakeServiceClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	svc.pending.now = clock.now

	if resp, _ := svc.RequestDelete(context.Background(), "staff-uuid", id, "staffA"); !resp.Pending {
		t.Fatal("first call should record pending")
	}

	clock.advance(DeleteConfirmWindow + time.Second)
	svc.pending.sweep()

	// The window elapsed: this call starts a fresh pending entry
	// instead of confirming.
	resp, err := svc.RequestDelete(context.Background(), "staff-uuid", id, "staffA")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Deleted || !resp.Pending {
		t.Fatalf("post-expiry call resp = %+v", resp)
	}
	if _, ok := repo.reports[id]; !ok {
		t.Fatal("report must survive an expired confirmation")
	}
}

func TestRequestDeleteExpiryIsLazyToo(t *testing.T) {
	svc, repo, _ := newTestService()
	id := seedReport(repo)

	clock := &fakeServiceClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	svc.pending.now = clock.now

	svc.RequestDelete(context.Background(), "staff-uuid", id, "staffA")
	clock.advance(DeleteConfirmWindow + time.Second)

	// No sweep ran; the stale entry must still not confirm.
	resp, err := svc.RequestDelete(context.Background(), "staff-uuid", id, "staffA")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Deleted {
		t.Fatal("stale pending entry confirmed a delete")
	}
}

func TestForceDeleteBypassesConfirmation(t *testing.T) {
	svc, repo, notifier := newTestService()
	id := seedReport(repo)

	if err := svc.ForceDelete(context.Background(), id, "staffA"); err != nil {
		t.Fatalf("force delete: %v", err)
	}
	if _, ok := repo.reports[id]; ok {
		t.Fatal("report still present after force delete")
	}
	if len(notifier.deletions) != 1 {
		t.Fatal("force delete should notify once")
	}

	if err := svc.ForceDelete(context.Background(), 999, "staffA"); err != ErrReportNotFound {
		t.Fatalf("expected ErrReportNotFound, got %v", err)
	}
}

type fakeServiceClock struct {
	t time.Time
}

func (c *fakeServiceClock) now() time.Time {
	return c.t
}

func (c *fakeServiceClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}
