package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"redesocial/internal/cache"
	"redesocial/internal/model"
	"redesocial/internal/queue"
	"redesocial/internal/repository"
)

// =============================================================================
// MOCK REPOSITORIES
// =============================================================================
//
// Each mock implements a repository interface with optional fn fields; a nil
// field falls back to a harmless default so tests only spell out what they
// exercise.

type mockUserRepository struct {
	createFn           func(ctx context.Context, user *model.User) error
	getByIDFn          func(ctx context.Context, id int64) (*model.User, error)
	getByUsernameFn    func(ctx context.Context, username string) (*model.User, error)
	getByLoginFn       func(ctx context.Context, login string) (*model.User, error)
	existsByEmailFn    func(ctx context.Context, email string) (bool, error)
	existsByUsernameFn func(ctx context.Context, username string) (bool, error)
	updateProfileFn    func(ctx context.Context, userID int64, req *model.UpdateProfileRequest) (*model.User, error)
	updateUsernameFn   func(ctx context.Context, userID int64, username string, changedAt time.Time) error
	updateAvatarFn     func(ctx context.Context, userID int64, url, key string) error
	getCountsFn        func(ctx context.Context, userID int64) (*repository.GraphCounts, error)

	created []*model.User
}

func (m *mockUserRepository) Create(ctx context.Context, user *model.User) error {
	m.created = append(m.created, user)
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.getByUsernameFn != nil {
		return m.getByUsernameFn(ctx, username)
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepository) GetByLogin(ctx context.Context, login string) (*model.User, error) {
	if m.getByLoginFn != nil {
		return m.getByLoginFn(ctx, login)
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if m.existsByEmailFn != nil {
		return m.existsByEmailFn(ctx, email)
	}
	return false, nil
}

func (m *mockUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	if m.existsByUsernameFn != nil {
		return m.existsByUsernameFn(ctx, username)
	}
	return false, nil
}

func (m *mockUserRepository) UpdateProfile(ctx context.Context, userID int64, req *model.UpdateProfileRequest) (*model.User, error) {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, userID, req)
	}
	return &model.User{ID: userID}, nil
}

func (m *mockUserRepository) UpdateUsername(ctx context.Context, userID int64, username string, changedAt time.Time) error {
	if m.updateUsernameFn != nil {
		return m.updateUsernameFn(ctx, userID, username, changedAt)
	}
	return nil
}

func (m *mockUserRepository) UpdateAvatar(ctx context.Context, userID int64, url, key string) error {
	if m.updateAvatarFn != nil {
		return m.updateAvatarFn(ctx, userID, url, key)
	}
	return nil
}

func (m *mockUserRepository) GetCounts(ctx context.Context, userID int64) (*repository.GraphCounts, error) {
	if m.getCountsFn != nil {
		return m.getCountsFn(ctx, userID)
	}
	return &repository.GraphCounts{}, nil
}

// usersByID answers GetByID from a fixed set.
func usersByID(users ...*model.User) func(ctx context.Context, id int64) (*model.User, error) {
	return func(ctx context.Context, id int64) (*model.User, error) {
		for _, u := range users {
			if u.ID == id {
				cp := *u
				return &cp, nil
			}
		}
		return nil, model.ErrUserNotFound
	}
}

type mockFollowRepository struct {
	edges map[[2]int64]bool

	getFollowersFn func(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserListItem, *time.Time, error)
}

func newMockFollowRepository() *mockFollowRepository {
	return &mockFollowRepository{edges: map[[2]int64]bool{}}
}

func (m *mockFollowRepository) Create(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) (bool, error) {
	key := [2]int64{followerID, followeeID}
	if m.edges[key] {
		return false, nil
	}
	m.edges[key] = true
	return true, nil
}

func (m *mockFollowRepository) Delete(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) (bool, error) {
	key := [2]int64{followerID, followeeID}
	if !m.edges[key] {
		return false, nil
	}
	delete(m.edges, key)
	return true, nil
}

func (m *mockFollowRepository) Exists(ctx context.Context, followerID, followeeID int64) (bool, error) {
	return m.edges[[2]int64{followerID, followeeID}], nil
}

func (m *mockFollowRepository) GetFollowers(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserListItem, *time.Time, error) {
	if m.getFollowersFn != nil {
		return m.getFollowersFn(ctx, userID, cursor, limit)
	}
	return nil, nil, nil
}

func (m *mockFollowRepository) GetFollowing(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserListItem, *time.Time, error) {
	return nil, nil, nil
}

func (m *mockFollowRepository) GetFollowerIDs(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	for k := range m.edges {
		if k[1] == userID {
			ids = append(ids, k[0])
		}
	}
	return ids, nil
}

type mockFavoriteRepository struct {
	set map[[2]int64]bool
}

func (m *mockFavoriteRepository) Add(ctx context.Context, userID, favoriteID int64) (bool, error) {
	key := [2]int64{userID, favoriteID}
	if m.set[key] {
		return false, nil
	}
	m.set[key] = true
	return true, nil
}

func (m *mockFavoriteRepository) Remove(ctx context.Context, userID, favoriteID int64) (bool, error) {
	key := [2]int64{userID, favoriteID}
	existed := m.set[key]
	delete(m.set, key)
	return existed, nil
}

func (m *mockFavoriteRepository) List(ctx context.Context, userID int64) ([]model.UserListItem, error) {
	var items []model.UserListItem
	for k := range m.set {
		if k[0] == userID {
			items = append(items, model.UserListItem{UserSummary: model.UserSummary{ID: k[1]}})
		}
	}
	return items, nil
}

// mockFriendRepository keeps requests and friendships in memory.
type mockFriendRepository struct {
	requests    map[[2]int64]bool
	friendships map[[2]int64]bool
}

func newMockFriendRepository() *mockFriendRepository {
	return &mockFriendRepository{requests: map[[2]int64]bool{}, friendships: map[[2]int64]bool{}}
}

func (m *mockFriendRepository) CreateRequest(ctx context.Context, tx *sqlx.Tx, requesterID, recipientID int64) (bool, error) {
	key := [2]int64{requesterID, recipientID}
	if m.requests[key] {
		return false, nil
	}
	m.requests[key] = true
	return true, nil
}

func (m *mockFriendRepository) DeleteRequest(ctx context.Context, tx *sqlx.Tx, requesterID, recipientID int64) (bool, error) {
	key := [2]int64{requesterID, recipientID}
	existed := m.requests[key]
	delete(m.requests, key)
	return existed, nil
}

func (m *mockFriendRepository) RequestExists(ctx context.Context, tx *sqlx.Tx, requesterID, recipientID int64) (bool, error) {
	return m.requests[[2]int64{requesterID, recipientID}], nil
}

func (m *mockFriendRepository) AreFriends(ctx context.Context, tx *sqlx.Tx, userID, otherID int64) (bool, error) {
	return m.friendships[[2]int64{userID, otherID}], nil
}

func (m *mockFriendRepository) CreateFriendship(ctx context.Context, tx *sqlx.Tx, userID, otherID int64) error {
	m.friendships[[2]int64{userID, otherID}] = true
	m.friendships[[2]int64{otherID, userID}] = true
	return nil
}

func (m *mockFriendRepository) DeleteFriendship(ctx context.Context, tx *sqlx.Tx, userID, otherID int64) (bool, error) {
	existed := m.friendships[[2]int64{userID, otherID}]
	delete(m.friendships, [2]int64{userID, otherID})
	delete(m.friendships, [2]int64{otherID, userID})
	return existed, nil
}

func (m *mockFriendRepository) ListIncomingRequests(ctx context.Context, recipientID int64) ([]model.FriendRequest, error) {
	var reqs []model.FriendRequest
	for k := range m.requests {
		if k[1] == recipientID {
			reqs = append(reqs, model.FriendRequest{RequesterID: k[0], RecipientID: k[1]})
		}
	}
	return reqs, nil
}

func (m *mockFriendRepository) ListFriends(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserListItem, *time.Time, error) {
	var items []model.UserListItem
	for k := range m.friendships {
		if k[0] == userID {
			items = append(items, model.UserListItem{UserSummary: model.UserSummary{ID: k[1]}})
		}
	}
	return items, nil, nil
}

// mockPostRepository stores posts and likes in memory.
type mockPostRepository struct {
	posts        map[int64]*model.Post
	likes        map[[2]int64]bool
	nextID       int64
	commentDelta map[int64]int

	getFeedFn            func(ctx context.Context, userID int64, after *repository.FeedKey, limit int) ([]model.Post, error)
	addLikeFn            func(ctx context.Context, postID, userID int64) (bool, error)
	timelineEntriesFn    func(ctx context.Context, userID int64, limit int) ([]cache.TimelineEntry, error)
	incrementCommentsErr error
}

func newMockPostRepository(posts ...*model.Post) *mockPostRepository {
	m := &mockPostRepository{
		posts:        map[int64]*model.Post{},
		likes:        map[[2]int64]bool{},
		nextID:       100,
		commentDelta: map[int64]int{},
	}
	for _, p := range posts {
		m.posts[p.ID] = p
	}
	return m
}

func (m *mockPostRepository) Create(ctx context.Context, post *model.Post) error {
	m.nextID++
	post.ID = m.nextID
	post.CreatedAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	cp := *post
	m.posts[post.ID] = &cp
	return nil
}

func (m *mockPostRepository) GetByID(ctx context.Context, postID int64) (*model.Post, error) {
	p, ok := m.posts[postID]
	if !ok {
		return nil, model.ErrPostNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockPostRepository) GetByIDs(ctx context.Context, postIDs []int64) ([]model.Post, error) {
	var out []model.Post
	for _, id := range postIDs {
		if p, ok := m.posts[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockPostRepository) Delete(ctx context.Context, postID int64) error {
	if _, ok := m.posts[postID]; !ok {
		return model.ErrPostNotFound
	}
	delete(m.posts, postID)
	return nil
}

func (m *mockPostRepository) ListByUser(ctx context.Context, userID int64, offset, limit int) ([]model.Post, error) {
	var out []model.Post
	for _, p := range m.posts {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	if offset >= len(out) {
		return []model.Post{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockPostRepository) CountByUser(ctx context.Context, userID int64) (int, error) {
	n := 0
	for _, p := range m.posts {
		if p.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (m *mockPostRepository) GetFeed(ctx context.Context, userID int64, after *repository.FeedKey, limit int) ([]model.Post, error) {
	if m.getFeedFn != nil {
		return m.getFeedFn(ctx, userID, after, limit)
	}
	return nil, nil
}

func (m *mockPostRepository) GetRecentPostsByUser(ctx context.Context, userID int64, limit int) ([]cache.TimelineEntry, error) {
	return nil, nil
}

func (m *mockPostRepository) GetTimelineEntries(ctx context.Context, userID int64, limit int) ([]cache.TimelineEntry, error) {
	if m.timelineEntriesFn != nil {
		return m.timelineEntriesFn(ctx, userID, limit)
	}
	return nil, nil
}

func (m *mockPostRepository) CheckLikes(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error) {
	out := map[int64]bool{}
	for _, id := range postIDs {
		if m.likes[[2]int64{id, userID}] {
			out[id] = true
		}
	}
	return out, nil
}

func (m *mockPostRepository) AddLike(ctx context.Context, tx *sqlx.Tx, postID, userID int64) (bool, error) {
	if m.addLikeFn != nil {
		return m.addLikeFn(ctx, postID, userID)
	}
	key := [2]int64{postID, userID}
	if m.likes[key] {
		return false, nil
	}
	m.likes[key] = true
	return true, nil
}

func (m *mockPostRepository) RemoveLike(ctx context.Context, tx *sqlx.Tx, postID, userID int64) (bool, error) {
	key := [2]int64{postID, userID}
	existed := m.likes[key]
	delete(m.likes, key)
	return existed, nil
}

func (m *mockPostRepository) IncrementLikeCount(ctx context.Context, tx *sqlx.Tx, postID int64, delta int) (int, error) {
	p, ok := m.posts[postID]
	if !ok {
		return 0, model.ErrPostNotFound
	}
	p.LikeCount += delta
	if p.LikeCount < 0 {
		p.LikeCount = 0
	}
	return p.LikeCount, nil
}

func (m *mockPostRepository) IncrementCommentCount(ctx context.Context, tx *sqlx.Tx, postID int64, delta int) error {
	if m.incrementCommentsErr != nil {
		return m.incrementCommentsErr
	}
	m.commentDelta[postID] += delta
	return nil
}

// mockCommentRepository stores comments and likes in memory.
type mockCommentRepository struct {
	comments map[int64]*model.Comment
	likes    map[[2]int64]bool
	nextID   int64

	listTopLevelFn func(ctx context.Context, postID int64, sort string, offset, limit int) ([]model.Comment, error)
	listRepliesFn  func(ctx context.Context, parentIDs []int64) ([]model.Comment, error)
	countFn        func(ctx context.Context, postID int64) (int, error)
	addLikeFn      func(ctx context.Context, commentID, userID int64) (bool, error)
}

func newMockCommentRepository(comments ...*model.Comment) *mockCommentRepository {
	m := &mockCommentRepository{
		comments: map[int64]*model.Comment{},
		likes:    map[[2]int64]bool{},
		nextID:   500,
	}
	for _, c := range comments {
		m.comments[c.ID] = c
	}
	return m
}

func (m *mockCommentRepository) Create(ctx context.Context, tx *sqlx.Tx, comment *model.Comment) error {
	m.nextID++
	comment.ID = m.nextID
	comment.Status = model.CommentStatusActive
	cp := *comment
	m.comments[comment.ID] = &cp
	return nil
}

func (m *mockCommentRepository) GetByID(ctx context.Context, commentID int64) (*model.Comment, error) {
	c, ok := m.comments[commentID]
	if !ok {
		return nil, model.ErrCommentNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockCommentRepository) Update(ctx context.Context, commentID int64, content string) (*model.Comment, error) {
	c, ok := m.comments[commentID]
	if !ok {
		return nil, model.ErrCommentNotFound
	}
	c.Content = content
	cp := *c
	return &cp, nil
}

func (m *mockCommentRepository) Delete(ctx context.Context, tx *sqlx.Tx, commentID int64) (int, error) {
	if _, ok := m.comments[commentID]; !ok {
		return 0, model.ErrCommentNotFound
	}
	n := 0
	for id, c := range m.comments {
		if id == commentID || (c.ParentCommentID != nil && *c.ParentCommentID == commentID) {
			delete(m.comments, id)
			n++
		}
	}
	return n, nil
}

func (m *mockCommentRepository) ListTopLevel(ctx context.Context, postID int64, sort string, offset, limit int) ([]model.Comment, error) {
	if m.listTopLevelFn != nil {
		return m.listTopLevelFn(ctx, postID, sort, offset, limit)
	}
	var out []model.Comment
	for _, c := range m.sorted() {
		if c.PostID == postID && c.ParentCommentID == nil {
			out = append(out, c)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// sorted returns the stored comments ordered by id.
func (m *mockCommentRepository) sorted() []model.Comment {
	out := make([]model.Comment, 0, len(m.comments))
	for _, c := range m.comments {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *mockCommentRepository) CountTopLevel(ctx context.Context, postID int64) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx, postID)
	}
	n := 0
	for _, c := range m.comments {
		if c.PostID == postID && c.ParentCommentID == nil {
			n++
		}
	}
	return n, nil
}

func (m *mockCommentRepository) ListReplies(ctx context.Context, parentIDs []int64) ([]model.Comment, error) {
	if m.listRepliesFn != nil {
		return m.listRepliesFn(ctx, parentIDs)
	}
	parents := make(map[int64]bool, len(parentIDs))
	for _, id := range parentIDs {
		parents[id] = true
	}
	var out []model.Comment
	for _, c := range m.sorted() {
		if c.ParentCommentID != nil && parents[*c.ParentCommentID] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockCommentRepository) AddLike(ctx context.Context, tx *sqlx.Tx, commentID, userID int64) (bool, error) {
	if m.addLikeFn != nil {
		return m.addLikeFn(ctx, commentID, userID)
	}
	key := [2]int64{commentID, userID}
	if m.likes[key] {
		return false, nil
	}
	m.likes[key] = true
	return true, nil
}

func (m *mockCommentRepository) RemoveLike(ctx context.Context, tx *sqlx.Tx, commentID, userID int64) (bool, error) {
	key := [2]int64{commentID, userID}
	existed := m.likes[key]
	delete(m.likes, key)
	return existed, nil
}

func (m *mockCommentRepository) IncrementLikeCount(ctx context.Context, tx *sqlx.Tx, commentID int64, delta int) (int, error) {
	c, ok := m.comments[commentID]
	if !ok {
		return 0, model.ErrCommentNotFound
	}
	c.LikeCount += delta
	return c.LikeCount, nil
}

type mockNotificationRepository struct {
	createFn   func(ctx context.Context, in model.NotificationInput) (*model.Notification, error)
	markReadFn func(ctx context.Context, recipientID, notificationID int64) (bool, error)
	deleteFn   func(ctx context.Context, recipientID, notificationID int64) (bool, error)
	listFn     func(ctx context.Context, recipientID int64, limit int) ([]model.Notification, error)

	created []model.NotificationInput
}

func (m *mockNotificationRepository) Create(ctx context.Context, in model.NotificationInput) (*model.Notification, error) {
	m.created = append(m.created, in)
	if m.createFn != nil {
		return m.createFn(ctx, in)
	}
	return &model.Notification{
		ID:          int64(len(m.created)),
		RecipientID: in.RecipientID,
		SenderID:    in.SenderID,
		Type:        in.Type,
		Content:     in.Content,
		Related:     in.Related,
	}, nil
}

func (m *mockNotificationRepository) ListForRecipient(ctx context.Context, recipientID int64, limit int) ([]model.Notification, error) {
	if m.listFn != nil {
		return m.listFn(ctx, recipientID, limit)
	}
	return nil, nil
}

func (m *mockNotificationRepository) CountUnread(ctx context.Context, recipientID int64) (int, error) {
	return 0, nil
}

func (m *mockNotificationRepository) MarkRead(ctx context.Context, recipientID, notificationID int64) (bool, error) {
	if m.markReadFn != nil {
		return m.markReadFn(ctx, recipientID, notificationID)
	}
	return true, nil
}

func (m *mockNotificationRepository) MarkAllRead(ctx context.Context, recipientID int64) (int64, error) {
	return 0, nil
}

func (m *mockNotificationRepository) Delete(ctx context.Context, recipientID, notificationID int64) (bool, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, recipientID, notificationID)
	}
	return true, nil
}

// =============================================================================
// COLLABORATOR FAKES
// =============================================================================

type recordingNotifier struct {
	mu   sync.Mutex
	sent []model.NotificationInput
}

func (r *recordingNotifier) Notify(ctx context.Context, in model.NotificationInput) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, in)
}

type recordingPublisher struct {
	events []queue.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, stream string, event queue.Event) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.events = append(p.events, event)
	return "1-0", nil
}

func (p *recordingPublisher) types() []string {
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

// newTxDB returns a sqlx handle whose transactions are scripted by mock.
func newTxDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

// expectTxs scripts n committed transactions.
func expectTxs(mock sqlmock.Sqlmock, n int) {
	for i := 0; i < n; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}
}
