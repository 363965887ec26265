package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"redesocial/internal/model"
	"redesocial/internal/repository"
)

// UserService handles accounts: registration, login and profile changes.
type UserService struct {
	repo    repository.UserRepository
	follows repository.FollowRepository
	auth    *AuthService
	media   *MediaService
	now     func() time.Time
}

func NewUserService(
	repo repository.UserRepository,
	follows repository.FollowRepository,
	auth *AuthService,
	media *MediaService,
) *UserService {
	return &UserService{
		repo:    repo,
		follows: follows,
		auth:    auth,
		media:   media,
		now:     time.Now,
	}
}

// Register creates a new account. Emails are stored trimmed and lowercased.
func (s *UserService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	user := &model.User{
		Nome:      strings.TrimSpace(req.Nome),
		Sobrenome: strings.TrimSpace(req.Sobrenome),
		Username:  strings.TrimSpace(req.Username),
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Cep:       strings.TrimSpace(req.Cep),
	}
	if user.Nome == "" || user.Sobrenome == "" || user.Username == "" || user.Email == "" ||
		user.Cep == "" || req.Password == "" {
		return nil, model.ErrMissingRequiredFields
	}
	if tel := strings.TrimSpace(req.Telefone); tel != "" {
		user.Telefone = &tel
	}

	exists, err := s.repo.ExistsByEmail(ctx, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, model.ErrEmailExists
	}

	exists, err = s.repo.ExistsByUsername(ctx, user.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if exists {
		return nil, model.ErrUsernameExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHashed = string(hashed)

	// The unique indexes still decide races between the checks and the insert.
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	log.Printf("[UserService] Registered user id=%d username=%s", user.ID, user.Username)
	return user, nil
}

// Login accepts an email or a username and returns a signed token.
func (s *UserService) Login(ctx context.Context, req *model.LoginRequest) (*model.AuthResponse, error) {
	user, err := s.repo.GetByLogin(ctx, req.Email)
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHashed), []byte(req.Password)); err != nil {
		return nil, model.ErrWrongPassword
	}

	token, err := s.auth.IssueToken(user)
	if err != nil {
		return nil, err
	}

	return &model.AuthResponse{
		Token:     token,
		ExpiresIn: s.auth.TTLSeconds(),
		User:      user,
	}, nil
}

func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return s.repo.GetByID(ctx, id)
}

// GetProfile returns the user with graph counters. IsFollowing is only set
// for an authenticated viewer looking at someone else.
func (s *UserService) GetProfile(ctx context.Context, userID int64, viewerID *int64) (*model.Profile, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.buildProfile(ctx, user, viewerID)
}

func (s *UserService) GetProfileByUsername(ctx context.Context, username string, viewerID *int64) (*model.Profile, error) {
	user, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	return s.buildProfile(ctx, user, viewerID)
}

func (s *UserService) buildProfile(ctx context.Context, user *model.User, viewerID *int64) (*model.Profile, error) {
	counts, err := s.repo.GetCounts(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	profile := &model.Profile{
		User:           user,
		FollowersCount: counts.Followers,
		FollowingCount: counts.Following,
		FriendsCount:   counts.Friends,
	}

	if viewerID != nil && *viewerID != user.ID {
		following, err := s.follows.Exists(ctx, *viewerID, user.ID)
		if err != nil {
			log.Printf("[UserService] Follow check failed: viewer=%d user=%d err=%v", *viewerID, user.ID, err)
		} else {
			profile.IsFollowing = &following
		}
	}

	return profile, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID int64, req *model.UpdateProfileRequest) (*model.User, error) {
	trim := func(p *string) *string {
		if p == nil {
			return nil
		}
		v := strings.TrimSpace(*p)
		return &v
	}
	req.Nome = trim(req.Nome)
	req.Sobrenome = trim(req.Sobrenome)
	req.Telefone = trim(req.Telefone)
	req.Cep = trim(req.Cep)
	req.Bio = trim(req.Bio)

	if (req.Nome != nil && *req.Nome == "") || (req.Sobrenome != nil && *req.Sobrenome == "") {
		return nil, model.ErrMissingRequiredFields
	}

	return s.repo.UpdateProfile(ctx, userID, req)
}

// ChangeUsername allows one change per 30 days.
func (s *UserService) ChangeUsername(ctx context.Context, userID int64, username string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, model.ErrMissingRequiredFields
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Username == username {
		return nil, model.ErrUsernameUnchanged
	}

	now := s.now()
	if !user.CanChangeUsername(now) {
		return nil, model.ErrUsernameChangeTooSoon
	}

	exists, err := s.repo.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if exists {
		return nil, model.ErrUsernameExists
	}

	if err := s.repo.UpdateUsername(ctx, userID, username, now); err != nil {
		return nil, err
	}

	user.Username = username
	user.UsernameChangedAt = &now
	return user, nil
}

// UpdateAvatar stores a new avatar and then drops the previous object.
func (s *UserService) UpdateAvatar(ctx context.Context, userID int64, file io.Reader) (*model.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	upload, err := s.media.UploadAvatar(ctx, file)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateAvatar(ctx, userID, upload.URL, upload.Key); err != nil {
		s.media.Delete(ctx, upload.Key)
		return nil, err
	}

	if user.AvatarKey != nil {
		s.media.Delete(ctx, *user.AvatarKey)
	}

	user.AvatarURL = &upload.URL
	user.AvatarKey = &upload.Key
	return user, nil
}
