package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagwright/tagwright-server/internal/domain"
	domainerrors "github.com/tagwright/tagwright-server/internal/errors"
	"github.com/tagwright/tagwright-server/internal/jobs"
	"github.com/tagwright/tagwright-server/internal/metrics"
	"github.com/tagwright/tagwright-server/internal/sse"
	"github.com/tagwright/tagwright-server/internal/store"
	"github.com/tagwright/tagwright-server/internal/store/sqlite"
	"github.com/tagwright/tagwright-server/internal/taxonomy"
)

var errInjected = errors.New("injected failure")

// faults counts down injected failures per store operation.
type faults struct {
	mu        sync.Mutex
	remaining map[string]int
}

func (f *faults) set(op string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.remaining == nil {
		f.remaining = make(map[string]int)
	}
	f.remaining[op] = n
}

func (f *faults) hit(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.remaining[op] == 0 {
		return nil
	}
	f.remaining[op]--
	return errInjected
}

// faultyStore fails selected operations, including inside transactions.
type faultyStore struct {
	store.Store
	faults *faults
}

func (s faultyStore) InTx(ctx context.Context, fn func(tx store.Store) error) error {
	return s.Store.InTx(ctx, func(tx store.Store) error {
		return fn(faultyStore{Store: tx, faults: s.faults})
	})
}

func (s faultyStore) AddImpliedPostTag(ctx context.Context, antecedent, consequent string) (int64, error) {
	if err := s.faults.hit("AddImpliedPostTag"); err != nil {
		return 0, err
	}
	return s.Store.AddImpliedPostTag(ctx, antecedent, consequent)
}

func (s faultyStore) CreateForumPost(ctx context.Context, post *domain.ForumPost) error {
	if err := s.faults.hit("CreateForumPost"); err != nil {
		return err
	}
	return s.Store.CreateForumPost(ctx, post)
}

func (s faultyStore) CreateNotification(ctx context.Context, n *domain.Notification) error {
	if err := s.faults.hit("CreateNotification"); err != nil {
		return err
	}
	return s.Store.CreateNotification(ctx, n)
}

// recordingEmitter keeps emitted SSE events.
type recordingEmitter struct {
	mu     sync.Mutex
	events []sse.Event
}

func (r *recordingEmitter) Emit(event any) {
	if e, ok := event.(sse.Event); ok {
		r.mu.Lock()
		r.events = append(r.events, e)
		r.mu.Unlock()
	}
}

func (r *recordingEmitter) types() []sse.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sse.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type testEnv struct {
	db      *sqlite.Store
	faults  *faults
	events  *recordingEmitter
	metrics *metrics.Prometheus
	svc     *BulkUpdateService
	admin   *domain.User
	member  *domain.User
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDB(t *testing.T) *sqlite.Store {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() }) //nolint:errcheck // Test cleanup
	return db
}

func newTestEnv(t *testing.T, runner jobs.Runner) *testEnv {
	t.Helper()

	logger := testLogger()
	env := &testEnv{
		db:      newTestDB(t),
		faults:  &faults{},
		events:  &recordingEmitter{},
		metrics: metrics.NewPrometheus(),
	}
	if runner == nil {
		runner = jobs.NewInline(logger)
	}

	st := faultyStore{Store: env.db, faults: env.faults}
	validator := &taxonomy.Validator{}
	env.svc = NewBulkUpdateService(
		st,
		runner,
		NewApplier(st, validator, env.metrics, logger),
		NewForumService(st, "[bulk]", logger),
		NewNotifier(st, env.events, logger),
		validator,
		env.events,
		env.metrics,
		logger,
	)

	env.admin = createUser(t, env.db, "albert", domain.LevelAdmin)
	env.member = createUser(t, env.db, "bob", domain.LevelMember)
	return env
}

func createUser(t *testing.T, db store.Store, name string, level domain.Level) *domain.User {
	t.Helper()
	now := time.Now()
	u := &domain.User{
		ID:        "user-" + name,
		Name:      name,
		Level:     level,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, db.CreateUser(context.Background(), u))
	return u
}

func createPost(t *testing.T, db store.Store, tags ...string) *domain.Post {
	t.Helper()
	p := &domain.Post{Tags: tags}
	require.NoError(t, db.CreatePost(context.Background(), p))
	return p
}

func createRelation(t *testing.T, db store.Store, kind domain.RelationKind, antecedent, consequent string) *domain.TagRelation {
	t.Helper()
	rel := &domain.TagRelation{Kind: kind, AntecedentName: antecedent, ConsequentName: consequent}
	require.NoError(t, db.CreateTagRelation(context.Background(), rel))
	return rel
}

func listRelations(t *testing.T, db store.Store, kind domain.RelationKind) []*domain.TagRelation {
	t.Helper()
	rels, err := db.ListTagRelations(context.Background(), kind, store.RelationFilter{})
	require.NoError(t, err)
	return rels
}

func postTags(t *testing.T, db store.Store, id int64) []string {
	t.Helper()
	p, err := db.GetPost(context.Background(), id)
	require.NoError(t, err)
	return p.Tags
}

func requireCode(t *testing.T, err error, code domainerrors.Code) *domainerrors.Error {
	t.Helper()
	require.Error(t, err)
	var derr *domainerrors.Error
	require.True(t, errors.As(err, &derr), "expected domain error, got %v", err)
	require.Equal(t, code, derr.Code, derr.Message)
	return derr
}

func (env *testEnv) create(t *testing.T, requester *domain.User, title, text string) *domain.BulkUpdateRequest {
	t.Helper()
	bur, err := env.svc.Create(context.Background(), requester, CreateParams{Title: title, Reason: "cleanup", Script: text})
	require.NoError(t, err)
	return bur
}

func TestBulkUpdateService_Create(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	bur, err := env.svc.Create(ctx, env.member, CreateParams{
		Title:  "merge aaa",
		Reason: "zzz",
		Script: "CREATE ALIAS Aaa -> Bbb\n\nimply ccc -> ddd",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.BulkUpdateRequestPending, bur.Status)
	assert.Equal(t, "create alias aaa -> bbb\ncreate implication ccc -> ddd", bur.Script)
	assert.Equal(t, "bob", bur.UserName)
	assert.Empty(t, bur.ApproverID)

	topic, err := env.db.GetForumTopic(ctx, bur.ForumTopicID)
	require.NoError(t, err)
	assert.Equal(t, "[bulk] merge aaa", topic.Title)
	require.Len(t, topic.Posts, 1)
	assert.Equal(t, bur.ForumPostID, topic.Posts[0].ID)
	assert.Contains(t, topic.Posts[0].Body, bur.Tag())
	assert.Contains(t, topic.Posts[0].Body, "zzz")
	assert.Contains(t, topic.Posts[0].Body, "[code]create alias aaa -> bbb")

	assert.Equal(t, []sse.EventType{sse.EventBulkUpdateRequestCreated}, env.events.types())

	// Nothing is applied before approval.
	assert.Empty(t, listRelations(t, env.db, domain.RelationAlias))
}

func TestBulkUpdateService_CreateInExistingTopic(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	topic := &domain.ForumTopic{CreatorID: env.admin.ID, Title: "[bulk] hoge"}
	require.NoError(t, env.db.CreateForumTopic(ctx, topic))

	bur, err := env.svc.Create(ctx, env.admin, CreateParams{
		Title:        "[bulk] hoge",
		Script:       "create alias AAA -> BBB",
		ForumTopicID: topic.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, topic.ID, bur.ForumTopicID)

	got, err := env.db.GetForumTopic(ctx, topic.ID)
	require.NoError(t, err)
	assert.Equal(t, "[bulk] hoge", got.Title)
	assert.Len(t, got.Posts, 1)

	_, err = env.svc.Create(ctx, env.admin, CreateParams{Title: "x", Script: "imply a -> b", ForumTopicID: 999})
	requireCode(t, err, domainerrors.CodeNotFound)
}

func TestBulkUpdateService_CreateRejectsExistingReverseAlias(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	createRelation(t, env.db, domain.RelationAlias, "aaa", "bbb")

	_, err := env.svc.Create(ctx, env.admin, CreateParams{Title: "t", Script: "create alias bbb -> aaa"})

	derr := requireCode(t, err, domainerrors.CodeValidation)
	assert.Equal(t, []string{"A tag alias for aaa already exists (create alias bbb -> aaa)"}, derr.Details)

	assert.Len(t, listRelations(t, env.db, domain.RelationAlias), 1)
	page, err := env.svc.Search(ctx, SearchParams{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}

func TestBulkUpdateService_CreateRejectsRedundantImplication(t *testing.T) {
	env := newTestEnv(t, nil)
	createRelation(t, env.db, domain.RelationImplication, "a", "b")
	createRelation(t, env.db, domain.RelationImplication, "b", "c")

	_, err := env.svc.Create(context.Background(), env.admin, CreateParams{Title: "t", Script: "imply a -> c"})

	derr := requireCode(t, err, domainerrors.CodeValidation)
	assert.Equal(t, []string{"a already implies c through another implication (create implication a -> c)"}, derr.Details)
}

func TestBulkUpdateService_CreateRejectsScriptsThatCannotApplyInOrder(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	createRelation(t, env.db, domain.RelationImplication, "a", "b")
	createRelation(t, env.db, domain.RelationImplication, "b", "c")

	scripts := []string{
		"create alias aaa -> bbb\ncreate alias bbb -> aaa",
		"create alias bbb -> ccc\ncreate alias aaa -> bbb",
		"imply a -> c\nunimply b -> c",
	}
	for _, text := range scripts {
		_, err := env.svc.Create(ctx, env.admin, CreateParams{Title: "t", Script: text})
		requireCode(t, err, domainerrors.CodeValidation)
	}

	page, err := env.svc.Search(ctx, SearchParams{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)

	// The same changes in an applicable order go through.
	bur := env.create(t, env.admin, "t", "unimply b -> c\nimply a -> c\ncreate alias aaa -> bbb\ncreate alias bbb -> ccc")
	approved, err := env.svc.Approve(ctx, env.admin, bur.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BulkUpdateRequestApproved, approved.Status)

	alias, err := env.db.GetActiveTagAlias(ctx, "aaa")
	require.NoError(t, err)
	assert.Equal(t, "ccc", alias.ConsequentName)
}

func TestBulkUpdateService_CreateInputErrors(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	_, err := env.svc.Create(ctx, env.member, CreateParams{Title: "t", Script: "create alias a -> b\nnonsense here\nimply"})
	derr := requireCode(t, err, domainerrors.CodeValidation)
	assert.Equal(t, "script could not be parsed", derr.Message)
	assert.Len(t, derr.Details, 2)

	_, err = env.svc.Create(ctx, env.member, CreateParams{Title: "", Script: "imply a -> b"})
	requireCode(t, err, domainerrors.CodeValidation)

	_, err = env.svc.Create(ctx, env.member, CreateParams{Title: "t", Script: "# only a comment"})
	derr = requireCode(t, err, domainerrors.CodeValidation)
	assert.Equal(t, "script is empty", derr.Message)
}

func TestBulkUpdateService_Preview(t *testing.T) {
	env := newTestEnv(t, nil)
	createRelation(t, env.db, domain.RelationAlias, "aaa", "bbb")

	p, err := env.svc.Preview(context.Background(), "Create Alias BBB -> aaa\ncategory xyz -> META")
	require.NoError(t, err)

	assert.Equal(t, "create alias bbb -> aaa\ncategory xyz -> meta", p.Script)
	assert.Equal(t, []string{"aaa", "bbb", "xyz"}, p.Tags)
	require.Len(t, p.Actions, 2)
	assert.Equal(t, PreviewAction{Kind: "create_alias", Text: "create alias bbb -> aaa"}, p.Actions[0])
	assert.False(t, p.Valid())
	require.Len(t, p.Errors, 1)
	assert.Equal(t, "A tag alias for aaa already exists", p.Errors[0].Message)
}

func TestBulkUpdateService_Approve(t *testing.T) {
	runners := map[string]func(t *testing.T) jobs.Runner{
		"inline": func(t *testing.T) jobs.Runner {
			return jobs.NewInline(testLogger())
		},
		"pool": func(t *testing.T) jobs.Runner {
			p := jobs.NewPool(2, 4, testLogger())
			p.Start()
			t.Cleanup(p.Stop)
			return p
		},
	}

	for name, newRunner := range runners {
		t.Run(name, func(t *testing.T) {
			env := newTestEnv(t, newRunner(t))
			ctx := context.Background()
			post := createPost(t, env.db, "foo", "aaa")

			bur := env.create(t, env.member, "cleanup", "create alias foo -> bar\ncreate implication bar -> baz\nmass update aaa -> bbb")

			approved, err := env.svc.Approve(ctx, env.admin, bur.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.BulkUpdateRequestApproved, approved.Status)
			assert.Equal(t, env.admin.ID, approved.ApproverID)
			assert.Equal(t, "albert", approved.ApproverName)

			alias, err := env.db.GetActiveTagAlias(ctx, "foo")
			require.NoError(t, err)
			assert.Equal(t, "bar", alias.ConsequentName)
			assert.Equal(t, env.admin.ID, alias.ApproverID)
			assert.Equal(t, env.member.ID, alias.CreatorID)
			assert.Equal(t, bur.ID, alias.BulkUpdateRequestID)

			imp, err := env.db.GetActiveTagRelation(ctx, domain.RelationImplication, "bar", "baz")
			require.NoError(t, err)
			assert.Equal(t, env.admin.ID, imp.ApproverID)

			assert.Equal(t, []string{"bar", "baz", "bbb"}, postTags(t, env.db, post.ID))

			topic, err := env.db.GetForumTopic(ctx, bur.ForumTopicID)
			require.NoError(t, err)
			assert.Equal(t, "[APPROVED] [bulk] cleanup", topic.Title)
			require.Len(t, topic.Posts, 2)
			assert.Contains(t, topic.Posts[0].Body, "approved")
			assert.Contains(t, topic.Posts[0].Body, "@albert")
			assert.Equal(t, ApprovalNotice(bur, env.admin), topic.Posts[1].Body)

			// The requester is told; the approver is not.
			bobs, err := env.db.ListNotifications(ctx, env.member.ID, store.PaginationParams{})
			require.NoError(t, err)
			require.Len(t, bobs, 1)
			assert.Equal(t, env.admin.ID, bobs[0].FromUserID)
			alberts, err := env.db.ListNotifications(ctx, env.admin.ID, store.PaginationParams{})
			require.NoError(t, err)
			assert.Empty(t, alberts)

			assert.Contains(t, env.events.types(), sse.EventBulkUpdateRequestApproved)
		})
	}
}

func TestBulkUpdateService_ApproveOwnRequestSendsNoNotification(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	bur := env.create(t, env.admin, "t", "create alias aaa -> bbb")

	_, err := env.svc.Approve(ctx, env.admin, bur.ID)
	require.NoError(t, err)

	list, err := env.db.ListNotifications(ctx, env.admin.ID, store.PaginationParams{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestBulkUpdateService_ApproveCategory(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	_, err := env.db.EnsureTag(ctx, "tagme")
	require.NoError(t, err)

	bur := env.create(t, env.admin, "t", "category tagme -> meta\ncategory new_tag -> artist")
	_, err = env.svc.Approve(ctx, env.admin, bur.ID)
	require.NoError(t, err)

	tag, err := env.db.GetTag(ctx, "tagme")
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryMeta, tag.Category)

	tag, err = env.db.GetTag(ctx, "new_tag")
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryArtist, tag.Category)
}

func TestBulkUpdateService_ApproveRetriesAfterActionFailure(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	post := createPost(t, env.db, "foo", "aaa")
	bur := env.create(t, env.member, "t", "create alias foo -> bar\ncreate implication bar -> baz\nmass update aaa -> bbb")

	env.faults.set("AddImpliedPostTag", 1)

	_, err := env.svc.Approve(ctx, env.admin, bur.ID)
	derr := requireCode(t, err, domainerrors.CodeConflict)
	assert.ErrorIs(t, err, errInjected)
	assert.Equal(t, fmt.Sprintf("bulk update request #%d was not applied: 1 of 3 actions failed", bur.ID), err.Error())

	results, ok := derr.Details.([]ActionResult)
	require.True(t, ok)
	require.Len(t, results, 3)
	assert.Equal(t, OutcomeApplied, results[0].Outcome)
	assert.Equal(t, OutcomeFailed, results[1].Outcome)
	assert.Contains(t, results[1].Reason, "injected failure")
	assert.Equal(t, OutcomeApplied, results[2].Outcome)

	stored, err := env.svc.Get(ctx, bur.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BulkUpdateRequestPending, stored.Status)
	assert.Empty(t, stored.ApproverID)

	topic, err := env.db.GetForumTopic(ctx, bur.ForumTopicID)
	require.NoError(t, err)
	assert.Len(t, topic.Posts, 1, "no notice while pending")
	assert.Contains(t, env.events.types(), sse.EventBulkUpdateRequestFailed)

	approved, err := env.svc.Approve(ctx, env.admin, bur.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BulkUpdateRequestApproved, approved.Status)

	assert.Len(t, listRelations(t, env.db, domain.RelationAlias), 1)
	assert.Len(t, listRelations(t, env.db, domain.RelationImplication), 1)
	assert.Equal(t, []string{"bar", "baz", "bbb"}, postTags(t, env.db, post.ID))
}

func TestBulkUpdateService_ApproveRollsBackWhenForumFails(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	bur := env.create(t, env.member, "t", "create alias aaa -> bbb\nimply bbb -> ccc")

	env.faults.set("CreateForumPost", 1)

	_, err := env.svc.Approve(ctx, env.admin, bur.ID)
	require.ErrorIs(t, err, errInjected)

	stored, err := env.svc.Get(ctx, bur.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BulkUpdateRequestPending, stored.Status)

	// The script itself was committed and is not applied twice on retry.
	assert.Len(t, listRelations(t, env.db, domain.RelationAlias), 1)

	_, err = env.svc.Approve(ctx, env.admin, bur.ID)
	require.NoError(t, err)

	assert.Len(t, listRelations(t, env.db, domain.RelationAlias), 1)
	assert.Len(t, listRelations(t, env.db, domain.RelationImplication), 1)

	topic, err := env.db.GetForumTopic(ctx, bur.ForumTopicID)
	require.NoError(t, err)
	assert.Len(t, topic.Posts, 2)
}

func TestBulkUpdateService_ApproveRollsBackWhenNotificationFails(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	bur := env.create(t, env.member, "t", "create alias aaa -> bbb")
	before := len(env.events.types())

	env.faults.set("CreateNotification", 1)

	_, err := env.svc.Approve(ctx, env.admin, bur.ID)
	require.ErrorIs(t, err, errInjected)

	stored, err := env.svc.Get(ctx, bur.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BulkUpdateRequestPending, stored.Status)
	assert.Empty(t, stored.ApproverID)

	topic, err := env.db.GetForumTopic(ctx, bur.ForumTopicID)
	require.NoError(t, err)
	assert.Len(t, topic.Posts, 1, "approval notice rolled back")
	assert.False(t, strings.HasPrefix(topic.Title, "[APPROVED]"))
	assert.NotContains(t, env.events.types()[before:], sse.EventBulkUpdateRequestApproved)
	assert.NotContains(t, env.events.types()[before:], sse.EventNotification)

	approved, err := env.svc.Approve(ctx, env.admin, bur.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BulkUpdateRequestApproved, approved.Status)
	assert.Len(t, listRelations(t, env.db, domain.RelationAlias), 1)

	bobs, err := env.db.ListNotifications(ctx, env.member.ID, store.PaginationParams{})
	require.NoError(t, err)
	assert.Len(t, bobs, 1)
	assert.Contains(t, env.events.types(), sse.EventNotification)
}

func TestBulkUpdateService_RejectRollsBackWhenNotificationFails(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	bur := env.create(t, env.member, "t", "create alias aaa -> bbb")

	env.faults.set("CreateNotification", 1)

	_, err := env.svc.Reject(ctx, env.admin, bur.ID)
	require.ErrorIs(t, err, errInjected)

	stored, err := env.svc.Get(ctx, bur.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BulkUpdateRequestPending, stored.Status)
}

func TestBulkUpdateService_CreateRollsBackWhenNotificationFails(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	env.faults.set("CreateNotification", 1)

	_, err := env.svc.Create(ctx, env.member, CreateParams{Title: "t", Reason: "ping @albert", Script: "create alias aaa -> bbb"})
	require.ErrorIs(t, err, errInjected)

	page, err := env.svc.Search(ctx, SearchParams{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
	assert.Empty(t, env.events.types())
}

func TestBulkUpdateService_ApproveSeesExternalChanges(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	bur := env.create(t, env.member, "t", "create alias aaa -> bbb")

	// Someone else aliases the antecedent between creation and approval.
	createRelation(t, env.db, domain.RelationAlias, "aaa", "ccc")

	_, err := env.svc.Approve(ctx, env.admin, bur.ID)
	derr := requireCode(t, err, domainerrors.CodeConflict)
	results := derr.Details.([]ActionResult)
	assert.Equal(t, "A tag alias for aaa already exists (create alias aaa -> bbb)", results[0].Reason)

	stored, err := env.svc.Get(ctx, bur.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BulkUpdateRequestPending, stored.Status)
}

func TestBulkUpdateService_ConcurrentApprovalsOfTheSameAlias(t *testing.T) {
	pool := jobs.NewPool(2, 4, testLogger())
	pool.Start()
	t.Cleanup(pool.Stop)

	env := newTestEnv(t, pool)
	ctx := context.Background()
	first := env.create(t, env.member, "one", "create alias aaa -> bbb")
	second := env.create(t, env.member, "two", "create alias aaa -> bbb")

	ids := []int64{first.ID, second.ID}
	errs := make([]error, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = env.svc.Approve(ctx, env.admin, id)
		}()
	}
	wg.Wait()

	var approved, pending int
	for i, id := range ids {
		stored, err := env.svc.Get(ctx, id)
		require.NoError(t, err)

		switch stored.Status {
		case domain.BulkUpdateRequestApproved:
			approved++
			assert.NoError(t, errs[i])
		case domain.BulkUpdateRequestPending:
			pending++
			derr := requireCode(t, errs[i], domainerrors.CodeConflict)
			results, ok := derr.Details.([]ActionResult)
			require.True(t, ok)
			require.Len(t, results, 1)
			assert.Equal(t, OutcomeFailed, results[0].Outcome)
		default:
			t.Fatalf("unexpected status %s", stored.Status)
		}
	}
	assert.Equal(t, 1, approved)
	assert.Equal(t, 1, pending)

	active, err := env.db.ListTagRelations(ctx, domain.RelationAlias, store.RelationFilter{Status: domain.RelationActive})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "bbb", active[0].ConsequentName)
}

func TestBulkUpdateService_ApproveGuards(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	bur := env.create(t, env.member, "t", "create alias aaa -> bbb")

	_, err := env.svc.Approve(ctx, env.member, bur.ID)
	requireCode(t, err, domainerrors.CodeForbidden)

	_, err = env.svc.Approve(ctx, env.admin, 999)
	requireCode(t, err, domainerrors.CodeNotFound)

	_, err = env.svc.Approve(ctx, env.admin, bur.ID)
	require.NoError(t, err)

	_, err = env.svc.Approve(ctx, env.admin, bur.ID)
	requireCode(t, err, domainerrors.CodeConflict)
	_, err = env.svc.Reject(ctx, env.admin, bur.ID)
	requireCode(t, err, domainerrors.CodeConflict)
}

func TestBulkUpdateService_Reject(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	bur := env.create(t, env.member, "t", "create alias aaa -> bbb")

	_, err := env.svc.Reject(ctx, env.member, bur.ID)
	requireCode(t, err, domainerrors.CodeForbidden)

	rejected, err := env.svc.Reject(ctx, env.admin, bur.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BulkUpdateRequestRejected, rejected.Status)
	assert.Equal(t, "albert", rejected.ApproverName)

	assert.Empty(t, listRelations(t, env.db, domain.RelationAlias))

	topic, err := env.db.GetForumTopic(ctx, bur.ForumTopicID)
	require.NoError(t, err)
	require.Len(t, topic.Posts, 2)
	assert.Contains(t, topic.Posts[0].Body, "rejected")
	assert.Contains(t, topic.Posts[0].Body, "@albert")
	assert.True(t, strings.HasPrefix(topic.Title, "[REJECTED] "))

	_, err = env.svc.Approve(ctx, env.admin, bur.ID)
	requireCode(t, err, domainerrors.CodeConflict)
	assert.Equal(t, float64(1), metricValue(t, env.metrics, "rejected"))
}

func metricValue(t *testing.T, p *metrics.Prometheus, status string) float64 {
	t.Helper()
	families, err := p.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != "tagwright_bur_transitions_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "status" && l.GetValue() == status {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestBulkUpdateService_Update(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	bur := env.create(t, env.member, "t", "create alias aaa -> bbb")

	script := "Imply X -> Y"
	title := "renamed"
	updated, err := env.svc.Update(ctx, env.member, bur.ID, UpdateParams{Script: &script, Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "create implication x -> y", updated.Script)
	assert.Equal(t, "renamed", updated.Title)

	post, err := env.db.GetForumPost(ctx, bur.ForumPostID)
	require.NoError(t, err)
	assert.Contains(t, post.Body, "create implication x -> y")

	other := createUser(t, env.db, "carol", domain.LevelBuilder)
	_, err = env.svc.Update(ctx, other, bur.ID, UpdateParams{Title: &title})
	requireCode(t, err, domainerrors.CodeForbidden)

	bad := "imply x -> x"
	_, err = env.svc.Update(ctx, env.member, bur.ID, UpdateParams{Script: &bad})
	requireCode(t, err, domainerrors.CodeValidation)

	_, err = env.svc.Reject(ctx, env.admin, bur.ID)
	require.NoError(t, err)
	_, err = env.svc.Update(ctx, env.admin, bur.ID, UpdateParams{Title: &title})
	requireCode(t, err, domainerrors.CodeConflict)
}

func TestBulkUpdateService_Search(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	bur1 := env.create(t, env.admin, "foo", "create alias aaa -> bbb")
	bur2 := env.create(t, env.admin, "bar", "create implication bbb -> ccc")
	bur3 := env.create(t, env.member, "baz", "create implication ddd -> eee")
	_, err := env.svc.Approve(ctx, env.admin, bur1.ID)
	require.NoError(t, err)

	ids := func(p *store.Page[*domain.BulkUpdateRequest]) []int64 {
		out := make([]int64, len(p.Items))
		for i, b := range p.Items {
			out[i] = b.ID
		}
		return out
	}

	page, err := env.svc.Search(ctx, SearchParams{})
	require.NoError(t, err)
	assert.Equal(t, []int64{bur1.ID, bur3.ID, bur2.ID}, ids(page))

	page, err = env.svc.Search(ctx, SearchParams{RequesterName: "albert", ApproverName: "albert", Status: "approved"})
	require.NoError(t, err)
	assert.Equal(t, []int64{bur1.ID}, ids(page))

	page, err = env.svc.Search(ctx, SearchParams{Status: "pending"})
	require.NoError(t, err)
	assert.Equal(t, []int64{bur3.ID, bur2.ID}, ids(page))

	page, err = env.svc.Search(ctx, SearchParams{RequesterName: "BOB"})
	require.NoError(t, err)
	assert.Equal(t, []int64{bur3.ID}, ids(page))

	_, err = env.svc.Search(ctx, SearchParams{Status: "done"})
	requireCode(t, err, domainerrors.CodeValidation)
}
