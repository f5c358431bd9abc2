package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrUnauthorized       = errors.New("unauthorized")
)

const (
	msgUserNotFound      = "User not found"
	msgPasswordIncorrect = "Password is incorrect"
	msgEmailTaken        = "Email is already in use"
)
