package auth

import (
	"context"

	"github.com/aakanshaa0/vestra/internal/users"
	"github.com/aakanshaa0/vestra/pkg/config"
	"github.com/aakanshaa0/vestra/pkg/db"
	"github.com/aakanshaa0/vestra/pkg/enums"
	pkgerrors "github.com/aakanshaa0/vestra/pkg/errors"
)

// AdminRegisterService handles creating admin users. The route is only
// mounted outside prod.
type AdminRegisterService interface {
	Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error)
}

// AdminRegisterServiceParams names the dependencies for the admin register flow.
type AdminRegisterServiceParams struct {
	DB             *db.Client
	PasswordConfig config.PasswordConfig
	AppConfig      config.AppConfig
}

type adminRegisterService struct {
	db          *db.Client
	passwordCfg config.PasswordConfig
	appCfg      config.AppConfig
}

// NewAdminRegisterService builds an admin registration service.
func NewAdminRegisterService(params AdminRegisterServiceParams) (AdminRegisterService, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client required")
	}
	return &adminRegisterService{
		db:          params.DB,
		passwordCfg: params.PasswordConfig,
		appCfg:      params.AppConfig,
	}, nil
}

func (s *adminRegisterService) Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error) {
	if s.appCfg.IsProd() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin registration is disabled")
	}
	return createUser(ctx, s.db, s.passwordCfg, req, enums.MemberRoleAdmin)
}
