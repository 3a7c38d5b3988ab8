package storerrros

import "errors"

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidPassword = errors.New("invalid password")
	ErrUserExists      = errors.New("user already exists")
	ErrEmailTaken      = errors.Join(ErrUserExists, errors.New("email already registered"))
	ErrUsernameTaken   = errors.Join(ErrUserExists, errors.New("username already taken"))
	ErrUserNoExist     = errors.New("user does not exists")

	ErrBookNoExist   = errors.New("book not found")
	ErrReviewNoExist = errors.New("review not found")
)
