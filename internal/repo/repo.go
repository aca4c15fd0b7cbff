package repo

import "errors"

var (
	ErrNotFound  = errors.New("user not found")
	ErrDuplicate = errors.New("username already exists")
)

const defaultListLimit = 20
