package user

import "github.com/cmlabs-hris/hris-timekeeping/internal/pkg/apperr"

var (
	ErrActorMissing            = apperr.Permission("authenticated employee identity is required")
	ErrInsufficientPermissions = apperr.Permission("insufficient permissions")
	ErrManagerAccessRequired   = apperr.Permission("manager access required")
)
