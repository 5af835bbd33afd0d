package services

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/bloomlabs/bloom/internal/common"
	"github.com/bloomlabs/bloom/internal/dbx"
	"github.com/bloomlabs/bloom/internal/logging"
	"github.com/bloomlabs/bloom/internal/server/config"
	"github.com/bloomlabs/bloom/internal/server/drivers/queue"
	"github.com/bloomlabs/bloom/internal/server/drivers/storage"
	"github.com/bloomlabs/bloom/internal/server/models"
	"github.com/bloomlabs/bloom/internal/server/repositories/groups"
	"github.com/bloomlabs/bloom/internal/server/repositories/namespaces"
	"github.com/bloomlabs/bloom/internal/server/repositories/sessions"
	"github.com/bloomlabs/bloom/internal/server/repositories/users"
	"github.com/google/uuid"
)

// In-memory repositories. The service under test talks to them through the
// same interfaces as the Postgres implementations; the DBTX handed in is
// ignored, so transactional flows run against a mocked *sql.DB that accepts
// any number of Begin/Commit/Rollback.

type fakeRepos struct {
	users      *fakeUsersRepo
	sessions   *fakeSessionsRepo
	namespaces *fakeNamespacesRepo
	groups     *fakeGroupsRepo
}

func newFakeRepos() *fakeRepos {
	return &fakeRepos{
		users:      newFakeUsersRepo(),
		sessions:   newFakeSessionsRepo(),
		namespaces: newFakeNamespacesRepo(),
		groups:     newFakeGroupsRepo(),
	}
}

func (f *fakeRepos) RunMigrations(ctx context.Context, db *sql.DB) error { return nil }
func (f *fakeRepos) Users(db dbx.DBTX) users.Repository                  { return f.users }
func (f *fakeRepos) Sessions(db dbx.DBTX) sessions.Repository            { return f.sessions }
func (f *fakeRepos) Namespaces(db dbx.DBTX) namespaces.Repository        { return f.namespaces }
func (f *fakeRepos) Groups(db dbx.DBTX) groups.Repository                { return f.groups }

type fakeUsersRepo struct {
	mu            sync.Mutex
	users         map[uuid.UUID]models.User
	pendingUsers  map[uuid.UUID]models.PendingUser
	pendingEmails map[uuid.UUID]models.PendingEmail
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{
		users:         map[uuid.UUID]models.User{},
		pendingUsers:  map[uuid.UUID]models.PendingUser{},
		pendingEmails: map[uuid.UUID]models.PendingEmail{},
	}
}

func (r *fakeUsersRepo) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = *user
	return nil
}

func (r *fakeUsersRepo) Update(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = *user
	return nil
}

func (r *fakeUsersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.users[id]; ok {
		u := user
		return &u, nil
	}
	return nil, common.ErrNotFound
}

func (r *fakeUsersRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeUsersRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Username == username {
			u := user
			return &u, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeUsersRepo) FindByUsernames(ctx context.Context, usernames []string) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	found := []models.User{}
	for _, username := range usernames {
		for _, user := range r.users {
			if user.Username == username {
				found = append(found, user)
			}
		}
	}
	return found, nil
}

func (r *fakeUsersRepo) Count(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.users)), nil
}

func (r *fakeUsersRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
	return nil
}

func (r *fakeUsersRepo) CreatePendingUser(ctx context.Context, pendingUser *models.PendingUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pendingUsers[pendingUser.ID] = *pendingUser
	return nil
}

func (r *fakeUsersRepo) FindPendingUserByID(ctx context.Context, id uuid.UUID) (*models.PendingUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if pendingUser, ok := r.pendingUsers[id]; ok {
		p := pendingUser
		return &p, nil
	}
	return nil, common.ErrNotFound
}

func (r *fakeUsersRepo) UpdatePendingUser(ctx context.Context, pendingUser *models.PendingUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pendingUsers[pendingUser.ID] = *pendingUser
	return nil
}

func (r *fakeUsersRepo) DeletePendingUser(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pendingUsers, id)
	return nil
}

func (r *fakeUsersRepo) DeletePendingUsersCreatedBefore(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for id, pendingUser := range r.pendingUsers {
		if pendingUser.CreatedAt.Before(before) {
			delete(r.pendingUsers, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *fakeUsersRepo) CreatePendingEmail(ctx context.Context, pendingEmail *models.PendingEmail) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pendingEmails[pendingEmail.ID] = *pendingEmail
	return nil
}

func (r *fakeUsersRepo) FindPendingEmailByID(ctx context.Context, id uuid.UUID) (*models.PendingEmail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if pendingEmail, ok := r.pendingEmails[id]; ok {
		p := pendingEmail
		return &p, nil
	}
	return nil, common.ErrNotFound
}

func (r *fakeUsersRepo) UpdatePendingEmail(ctx context.Context, pendingEmail *models.PendingEmail) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pendingEmails[pendingEmail.ID] = *pendingEmail
	return nil
}

func (r *fakeUsersRepo) DeletePendingEmail(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pendingEmails, id)
	return nil
}

func (r *fakeUsersRepo) DeletePendingEmailsCreatedBefore(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for id, pendingEmail := range r.pendingEmails {
		if pendingEmail.CreatedAt.Before(before) {
			delete(r.pendingEmails, id)
			deleted++
		}
	}
	return deleted, nil
}

type fakeSessionsRepo struct {
	mu              sync.Mutex
	sessions        map[uuid.UUID]models.Session
	pendingSessions map[uuid.UUID]models.PendingSession
}

func newFakeSessionsRepo() *fakeSessionsRepo {
	return &fakeSessionsRepo{
		sessions:        map[uuid.UUID]models.Session{},
		pendingSessions: map[uuid.UUID]models.PendingSession{},
	}
}

func (r *fakeSessionsRepo) Create(ctx context.Context, session *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = *session
	return nil
}

func (r *fakeSessionsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if session, ok := r.sessions[id]; ok {
		s := session
		return &s, nil
	}
	return nil, common.ErrNotFound
}

func (r *fakeSessionsRepo) FindByUserID(ctx context.Context, userID uuid.UUID) ([]models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	found := []models.Session{}
	for _, session := range r.sessions {
		if session.UserID == userID {
			found = append(found, session)
		}
	}
	return found, nil
}

func (r *fakeSessionsRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *fakeSessionsRepo) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, session := range r.sessions {
		if session.UserID == userID {
			delete(r.sessions, id)
		}
	}
	return nil
}

func (r *fakeSessionsRepo) CreatePendingSession(ctx context.Context, pendingSession *models.PendingSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pendingSessions[pendingSession.ID] = *pendingSession
	return nil
}

func (r *fakeSessionsRepo) FindPendingSessionByID(ctx context.Context, id uuid.UUID) (*models.PendingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if pendingSession, ok := r.pendingSessions[id]; ok {
		p := pendingSession
		return &p, nil
	}
	return nil, common.ErrNotFound
}

func (r *fakeSessionsRepo) UpdatePendingSession(ctx context.Context, pendingSession *models.PendingSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pendingSessions[pendingSession.ID] = *pendingSession
	return nil
}

func (r *fakeSessionsRepo) DeletePendingSession(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pendingSessions, id)
	return nil
}

func (r *fakeSessionsRepo) DeletePendingSessionsCreatedBefore(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for id, pendingSession := range r.pendingSessions {
		if pendingSession.CreatedAt.Before(before) {
			delete(r.pendingSessions, id)
			deleted++
		}
	}
	return deleted, nil
}

type fakeNamespacesRepo struct {
	mu         sync.Mutex
	namespaces map[uuid.UUID]models.Namespace
}

func newFakeNamespacesRepo() *fakeNamespacesRepo {
	return &fakeNamespacesRepo{namespaces: map[uuid.UUID]models.Namespace{}}
}

func (r *fakeNamespacesRepo) Create(ctx context.Context, namespace *models.Namespace) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.namespaces[namespace.ID] = *namespace
	return nil
}

func (r *fakeNamespacesRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Namespace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if namespace, ok := r.namespaces[id]; ok {
		n := namespace
		return &n, nil
	}
	return nil, common.ErrNotFound
}

func (r *fakeNamespacesRepo) FindByPath(ctx context.Context, path string) (*models.Namespace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, namespace := range r.namespaces {
		if namespace.Path == path {
			n := namespace
			return &n, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeNamespacesRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.namespaces, id)
	return nil
}

type membershipKey struct {
	userID  uuid.UUID
	groupID uuid.UUID
}

type fakeGroupsRepo struct {
	mu          sync.Mutex
	groups      map[uuid.UUID]models.Group
	memberships map[membershipKey]models.GroupMembership
	invitations map[uuid.UUID]models.GroupInvitation
	users       *fakeUsersRepo
}

func newFakeGroupsRepo() *fakeGroupsRepo {
	return &fakeGroupsRepo{
		groups:      map[uuid.UUID]models.Group{},
		memberships: map[membershipKey]models.GroupMembership{},
		invitations: map[uuid.UUID]models.GroupInvitation{},
	}
}

func (r *fakeGroupsRepo) Create(ctx context.Context, group *models.Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups[group.ID] = *group
	return nil
}

func (r *fakeGroupsRepo) Update(ctx context.Context, group *models.Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups[group.ID] = *group
	return nil
}

func (r *fakeGroupsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if group, ok := r.groups[id]; ok {
		g := group
		return &g, nil
	}
	return nil, common.ErrNotFound
}

func (r *fakeGroupsRepo) FindByNamespaceID(ctx context.Context, namespaceID uuid.UUID) (*models.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, group := range r.groups {
		if group.NamespaceID == namespaceID {
			g := group
			return &g, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeGroupsRepo) FindForUser(ctx context.Context, userID uuid.UUID) ([]models.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	found := []models.Group{}
	for key, membership := range r.memberships {
		if membership.UserID == userID {
			if group, ok := r.groups[key.groupID]; ok {
				found = append(found, group)
			}
		}
	}
	return found, nil
}

func (r *fakeGroupsRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.groups, id)
	return nil
}

func (r *fakeGroupsRepo) CreateMembership(ctx context.Context, membership *models.GroupMembership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.memberships[membershipKey{membership.UserID, membership.GroupID}] = *membership
	return nil
}

func (r *fakeGroupsRepo) FindMembership(ctx context.Context, userID, groupID uuid.UUID) (*models.GroupMembership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if membership, ok := r.memberships[membershipKey{userID, groupID}]; ok {
		m := membership
		return &m, nil
	}
	return nil, common.ErrNotFound
}

func (r *fakeGroupsRepo) FindMembershipForNamespace(ctx context.Context, userID, namespaceID uuid.UUID) (*models.GroupMembership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, group := range r.groups {
		if group.NamespaceID != namespaceID {
			continue
		}
		if membership, ok := r.memberships[membershipKey{userID, group.ID}]; ok {
			m := membership
			return &m, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeGroupsRepo) DeleteMembership(ctx context.Context, userID, groupID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.memberships, membershipKey{userID, groupID})
	return nil
}

func (r *fakeGroupsRepo) DeleteMembershipsByGroupID(ctx context.Context, groupID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.memberships {
		if key.groupID == groupID {
			delete(r.memberships, key)
		}
	}
	return nil
}

func (r *fakeGroupsRepo) CountAdmins(ctx context.Context, groupID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for key, membership := range r.memberships {
		if key.groupID == groupID && membership.Role == models.GroupRoleAdministrator {
			count++
		}
	}
	return count, nil
}

func (r *fakeGroupsRepo) CountMembers(ctx context.Context, groupID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for key := range r.memberships {
		if key.groupID == groupID {
			count++
		}
	}
	return count, nil
}

func (r *fakeGroupsRepo) FindMembers(ctx context.Context, groupID uuid.UUID) ([]models.GroupMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	members := []models.GroupMember{}
	for key, membership := range r.memberships {
		if key.groupID != groupID {
			continue
		}
		member := models.GroupMember{
			UserID:   membership.UserID,
			JoinedAt: membership.JoinedAt,
			Role:     membership.Role,
		}
		if r.users != nil {
			if user, err := r.users.FindByID(ctx, membership.UserID); err == nil {
				member.Username = user.Username
				member.Name = user.Name
				member.AvatarID = user.AvatarID
			}
		}
		members = append(members, member)
	}
	return members, nil
}

func (r *fakeGroupsRepo) CreateInvitation(ctx context.Context, invitation *models.GroupInvitation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invitations[invitation.ID] = *invitation
	return nil
}

func (r *fakeGroupsRepo) FindInvitationByID(ctx context.Context, id uuid.UUID) (*models.GroupInvitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if invitation, ok := r.invitations[id]; ok {
		i := invitation
		return &i, nil
	}
	return nil, common.ErrNotFound
}

func (r *fakeGroupsRepo) FindInvitationForInvitee(ctx context.Context, groupID, inviteeID uuid.UUID) (*models.GroupInvitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, invitation := range r.invitations {
		if invitation.GroupID == groupID && invitation.InviteeID == inviteeID {
			i := invitation
			return &i, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeGroupsRepo) FindInvitationsByGroupID(ctx context.Context, groupID uuid.UUID) ([]models.GroupInvitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	found := []models.GroupInvitation{}
	for _, invitation := range r.invitations {
		if invitation.GroupID == groupID {
			found = append(found, invitation)
		}
	}
	return found, nil
}

func (r *fakeGroupsRepo) FindInvitationsForInvitee(ctx context.Context, inviteeID uuid.UUID) ([]models.GroupInvitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	found := []models.GroupInvitation{}
	for _, invitation := range r.invitations {
		if invitation.InviteeID == inviteeID {
			found = append(found, invitation)
		}
	}
	return found, nil
}

func (r *fakeGroupsRepo) DeleteInvitation(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.invitations, id)
	return nil
}

func (r *fakeGroupsRepo) DeleteInvitationsByGroupID(ctx context.Context, groupID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, invitation := range r.invitations {
		if invitation.GroupID == groupID {
			delete(r.invitations, id)
		}
	}
	return nil
}

// newTestDB returns a mocked *sql.DB that tolerates any sequence of
// transactions. The fakes ignore the handle, so only Begin/Commit/Rollback
// ever reach the mock.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	mock.MatchExpectationsInOrder(false)
	for i := 0; i < 32; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
		mock.ExpectRollback()
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	return cfg
}

type testEnv struct {
	repos        *fakeRepos
	queue        *queue.MockQueue
	storage      *storage.MockStorage
	userService  *UserService
	groupService *GroupService
	namespaces   *NamespaceService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)
	repos := newFakeRepos()
	repos.groups.users = repos.users
	cfg := testConfig()
	logger := testLogger()
	q := queue.NewMockQueue()
	st := storage.NewMockStorage()

	userService, err := NewUserService(db, repos, cfg, logger, q, st)
	if err != nil {
		t.Fatalf("NewUserService error: %v", err)
	}

	namespaceService := NewNamespaceService(repos)
	groupService := NewGroupService(db, repos, cfg, logger, q, namespaceService)

	return &testEnv{
		repos:        repos,
		queue:        q,
		storage:      st,
		userService:  userService,
		groupService: groupService,
		namespaces:   namespaceService,
	}
}
