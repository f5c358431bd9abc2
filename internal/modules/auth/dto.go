package auth

import (
	"filevault/internal/domain"
	"filevault/internal/modules/quota"
)

type SignupRequest struct {
	Name            string `json:"name" form:"name"`
	Email           string `json:"email" form:"email"`
	Password        string `json:"password" form:"password"`
	PasswordConfirm string `json:"passwordConfirm" form:"passwordConfirm"`
}

// Values echoes the non-secret fields back for form redisplay.
func (r SignupRequest) Values() map[string]string {
	return map[string]string{"name": r.Name, "email": r.Email}
}

type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type UserPublic struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	UsedSpace int64  `json:"used_space"`
}

func toPublic(u *domain.User) UserPublic {
	return UserPublic{ID: u.ID, Name: u.Name, Email: u.Email, UsedSpace: u.UsedSpace}
}

type LoginResponse struct {
	User      UserPublic `json:"user"`
	Token     string     `json:"token"`
	ExpiresIn int64      `json:"expires_in"`
}

type MeResponse struct {
	User  UserPublic  `json:"user"`
	Usage quota.Usage `json:"usage"`
}
