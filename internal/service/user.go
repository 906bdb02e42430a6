package service

import (
	"context"
	"io"
	"net/http"

	"github.com/and161185/rideshare/internal/api"
	"github.com/and161185/rideshare/internal/convert"
	"github.com/and161185/rideshare/internal/model"
)

// UserService covers account lifecycle and profiles.
type UserService interface {
	// Register creates an account. It does not log in.
	Register(ctx context.Context, in model.RegisterInput) (*model.User, error)
	// Login exchanges credentials for a token pair.
	Login(ctx context.Context, email, password string) (model.Tokens, *model.User, error)
	// Logout invalidates refresh server-side (best effort on the caller's side).
	Logout(ctx context.Context, refresh string) error
	// RefreshToken exchanges a refresh token for a new access token.
	RefreshToken(ctx context.Context, refresh string) (model.Tokens, error)
	// Me returns the authenticated user.
	Me(ctx context.Context) (*model.User, error)
	// UpdateMe patches the authenticated user's profile.
	UpdateMe(ctx context.Context, upd model.ProfileUpdate) (*model.User, error)
	// UploadAvatar replaces the avatar image.
	UploadAvatar(ctx context.Context, filename string, r io.Reader) (*model.User, error)
	// GetByID returns a public profile.
	GetByID(ctx context.Context, id int64) (*model.User, error)
	// Stats returns the public statistics block.
	Stats(ctx context.Context, id int64) (model.UserStats, error)
}

type UserServiceImpl struct {
	api api.Doer
}

// NewUserService constructs UserService.
func NewUserService(d api.Doer) *UserServiceImpl { return &UserServiceImpl{api: d} }

// Register validates the form locally first; an invalid form never reaches the network.
func (s *UserServiceImpl) Register(ctx context.Context, in model.RegisterInput) (*model.User, error) {
	if err := ValidateRegister(in); err != nil {
		return nil, err
	}
	var out convert.RegisterResponse
	if err := s.api.Do(ctx, api.Request{Method: http.MethodPost, Path: "/users/register/", Body: in}, &out); err != nil {
		return nil, err
	}
	return convert.ToUser(out.User), nil
}

func (s *UserServiceImpl) Login(ctx context.Context, email, password string) (model.Tokens, *model.User, error) {
	body := map[string]string{"email": email, "password": password}
	var out convert.LoginResponse
	if err := s.api.Do(ctx, api.Request{Method: http.MethodPost, Path: "/users/login/", Body: body}, &out); err != nil {
		return model.Tokens{}, nil, err
	}
	return model.Tokens{Access: out.Access, Refresh: out.Refresh}, convert.ToUser(out.User), nil
}

func (s *UserServiceImpl) Logout(ctx context.Context, refresh string) error {
	body := map[string]string{}
	if refresh != "" {
		body["refresh"] = refresh
	}
	return s.api.Do(ctx, api.Request{Method: http.MethodPost, Path: "/users/logout/", Body: body}, nil)
}

func (s *UserServiceImpl) RefreshToken(ctx context.Context, refresh string) (model.Tokens, error) {
	var out convert.RefreshResponse
	req := api.Request{Method: http.MethodPost, Path: "/users/token/refresh/", Body: map[string]string{"refresh": refresh}}
	if err := s.api.Do(ctx, req, &out); err != nil {
		return model.Tokens{}, err
	}
	t := model.Tokens{Access: out.Access, Refresh: out.Refresh}
	if t.Refresh == "" {
		t.Refresh = refresh
	}
	return t, nil
}

func (s *UserServiceImpl) Me(ctx context.Context) (*model.User, error) {
	var out convert.User
	if err := s.api.Do(ctx, api.Request{Method: http.MethodGet, Path: "/users/me/"}, &out); err != nil {
		return nil, err
	}
	return convert.ToUser(&out), nil
}

func (s *UserServiceImpl) UpdateMe(ctx context.Context, upd model.ProfileUpdate) (*model.User, error) {
	var out convert.User
	if err := s.api.Do(ctx, api.Request{Method: http.MethodPatch, Path: "/users/me/", Body: upd}, &out); err != nil {
		return nil, err
	}
	return convert.ToUser(&out), nil
}

func (s *UserServiceImpl) UploadAvatar(ctx context.Context, filename string, r io.Reader) (*model.User, error) {
	req := api.Request{
		Method:    http.MethodPatch,
		Path:      "/users/me/",
		Multipart: &api.Multipart{FileField: "avatar", FileName: filename, File: r},
	}
	var out convert.User
	if err := s.api.Do(ctx, req, &out); err != nil {
		return nil, err
	}
	return convert.ToUser(&out), nil
}

func (s *UserServiceImpl) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var out convert.User
	if err := s.api.Do(ctx, api.Request{Method: http.MethodGet, Path: idPath("/users/", id, "")}, &out); err != nil {
		return nil, err
	}
	return convert.ToUser(&out), nil
}

func (s *UserServiceImpl) Stats(ctx context.Context, id int64) (model.UserStats, error) {
	var out convert.User
	if err := s.api.Do(ctx, api.Request{Method: http.MethodGet, Path: idPath("/users/", id, "stats/")}, &out); err != nil {
		return model.UserStats{}, err
	}
	return convert.ToUserStats(&out), nil
}
