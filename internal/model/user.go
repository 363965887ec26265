package model

import (
	"errors"
	"time"
)

// UsernameChangeInterval is the minimum time between two username changes.
const UsernameChangeInterval = 30 * 24 * time.Hour

// User represents a user in the system
type User struct {
	ID                int64      `db:"id" json:"id"`
	Nome              string     `db:"nome" json:"nome"`
	Sobrenome         string     `db:"sobrenome" json:"sobrenome"`
	Username          string     `db:"username" json:"username"`
	Telefone          *string    `db:"telefone" json:"telefone,omitempty"`
	Email             string     `db:"email" json:"email"`
	Cep               string     `db:"cep" json:"cep"`
	PasswordHashed    string     `db:"password_hashed" json:"-"`
	AvatarURL         *string    `db:"avatar_url" json:"avatar_url"`
	AvatarKey         *string    `db:"avatar_key" json:"-"`
	Bio               *string    `db:"bio" json:"bio"`
	UsernameChangedAt *time.Time `db:"username_changed_at" json:"username_changed_at,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// FullName is used in notification texts.
func (u *User) FullName() string {
	if u.Sobrenome == "" {
		return u.Nome
	}
	return u.Nome + " " + u.Sobrenome
}

// CanChangeUsername reports whether the rename window is open at now.
func (u *User) CanChangeUsername(now time.Time) bool {
	if u.UsernameChangedAt == nil {
		return true
	}
	return now.Sub(*u.UsernameChangedAt) >= UsernameChangeInterval
}

// UserSummary is the minimal author/sender projection embedded in other records.
type UserSummary struct {
	ID        int64   `db:"id" json:"id"`
	Nome      string  `db:"nome" json:"nome"`
	Sobrenome string  `db:"sobrenome" json:"sobrenome"`
	Username  string  `db:"username" json:"username"`
	AvatarURL *string `db:"avatar_url" json:"avatar_url"`
}

// Profile is a user together with social graph counters.
type Profile struct {
	*User
	FollowersCount int   `json:"followers_count"`
	FollowingCount int   `json:"following_count"`
	FriendsCount   int   `json:"friends_count"`
	IsFollowing    *bool `json:"is_following,omitempty"`
}

// RegisterRequest represents the data needed to register a new user
type RegisterRequest struct {
	Nome      string `json:"nome" validate:"required,max=100"`
	Sobrenome string `json:"sobrenome" validate:"required,max=100"`
	Username  string `json:"username" validate:"required,min=3,max=30"`
	Telefone  string `json:"telefone" validate:"omitempty,max=30"`
	Email     string `json:"email" validate:"required,email"`
	Cep       string `json:"cep" validate:"required,max=20"`
	Password  string `json:"password" validate:"required,min=6"`
}

// LoginRequest accepts either an email or a username in the Email field.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileRequest struct {
	Nome      *string `json:"nome" validate:"omitempty,min=1,max=100"`
	Sobrenome *string `json:"sobrenome" validate:"omitempty,min=1,max=100"`
	Telefone  *string `json:"telefone" validate:"omitempty,max=30"`
	Cep       *string `json:"cep" validate:"omitempty,max=20"`
	Bio       *string `json:"bio" validate:"omitempty,max=500"`
}

type ChangeUsernameRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30"`
}

// AuthResponse is returned by login.
type AuthResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
	User      *User  `json:"user"`
}

var (
	ErrUserNotFound           = errors.New("Usuário não encontrado.")
	ErrEmailExists            = errors.New("Email já cadastrado.")
	ErrUsernameExists         = errors.New("Nome de usuário já existe. Por favor, escolha outro.")
	ErrWrongPassword          = errors.New("Senha incorreta.")
	ErrMissingRequiredFields  = errors.New("Preencha todos os campos obrigatórios!")
	ErrUsernameChangeTooSoon  = errors.New("Você só pode alterar o nome de usuário uma vez a cada 30 dias.")
	ErrUsernameUnchanged      = errors.New("O novo nome de usuário é igual ao atual.")
	ErrTokenMissing           = errors.New("Token não fornecido.")
	ErrTokenInvalid           = errors.New("Token inválido.")
)
