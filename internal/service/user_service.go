package service

import (
	"context"
	"strings"

	"github.com/helpdeskhq/helpdesk/internal/auth"
	"github.com/helpdeskhq/helpdesk/internal/domain"
	"github.com/helpdeskhq/helpdesk/internal/repository"
	apperrors "github.com/helpdeskhq/helpdesk/pkg/util/errorutil"
)

// UserService manages accounts of every role.
type UserService struct {
	users      repository.UserRepository
	companies  repository.CompanyRepository
	bcryptCost int
}

// UserDependencies bundles repositories for the user service.
type UserDependencies struct {
	UserRepo    repository.UserRepository
	CompanyRepo repository.CompanyRepository
	BcryptCost  int
}

// UserCreateInput describes a new account.
type UserCreateInput struct {
	Name           string
	Email          string
	Password       string
	Phone          string
	DocumentNumber string
	CompanyID      *string
	Roles          []string
}

// UserUpdateInput carries optional profile changes.
type UserUpdateInput struct {
	Name           *string
	Email          *string
	Phone          *string
	DocumentNumber *string
	CompanyID      *string
}

// UserView is a user as seen by a specific viewer, with the effective role attached.
type UserView struct {
	domain.User
	EffectiveRole domain.Role
	Redacted      bool
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
	return &UserService{users: deps.UserRepo, companies: deps.CompanyRepo, bcryptCost: deps.BcryptCost}
}

// Create registers an account. The actor must be able to grant every requested role.
func (s *UserService) Create(ctx context.Context, actor *auth.Principal, input UserCreateInput) (*UserView, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	roles, err := s.checkGrant(actor, input.Roles)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	} else if !isNotFound(err) {
		return nil, apperrors.MapError(err)
	}
	if err := s.checkCompany(ctx, roles, input.CompanyID); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	user := &domain.User{
		Name:           strings.TrimSpace(input.Name),
		Email:          email,
		PasswordHash:   hash,
		Phone:          strings.TrimSpace(input.Phone),
		DocumentNumber: strings.TrimSpace(input.DocumentNumber),
		CompanyID:      input.CompanyID,
		Roles:          roles,
		Active:         true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return ViewUser(user, actor), nil
}

// Get returns a user, redacted for the viewer.
func (s *UserService) Get(ctx context.Context, viewer *auth.Principal, id string) (*UserView, error) {
	if err := requirePrincipal(viewer); err != nil {
		return nil, err
	}
	if viewer.UserID() != id && !viewer.Role.CanManageCalls() {
		return nil, apperrors.NewForbidden("access denied")
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "user", map[string]any{"user_id": id})
	}
	if viewer.Role == domain.RoleOperator && viewer.UserID() != id && !user.HasRole(domain.RoleClient) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return ViewUser(user, viewer), nil
}

// List returns users matching filter. Operators only see clients.
func (s *UserService) List(ctx context.Context, viewer *auth.Principal, filter repository.UserFilter) ([]UserView, error) {
	if err := requirePrincipal(viewer); err != nil {
		return nil, err
	}
	if !viewer.Role.CanManageCalls() {
		return nil, apperrors.NewForbidden("insufficient role")
	}
	if !viewer.Role.CanAdminister() {
		if filter.Role != nil && *filter.Role != domain.RoleClient {
			return nil, apperrors.NewForbidden("operators may only list clients")
		}
		filter.Role = ptr(domain.RoleClient)
	}
	users, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	views := make([]UserView, 0, len(users))
	for i := range users {
		views = append(views, *ViewUser(&users[i], viewer))
	}
	return views, nil
}

// UpdateProfile applies non-role changes.
func (s *UserService) UpdateProfile(ctx context.Context, actor *auth.Principal, id string, input UserUpdateInput) (*UserView, error) {
	if err := requirePrincipal(actor); err != nil {
		return nil, err
	}
	self := actor.UserID() == id
	if !self && !actor.Role.CanAdminister() {
		return nil, apperrors.NewForbidden("access denied")
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "user", map[string]any{"user_id": id})
	}
	if !self {
		if err := checkOutranks(actor, user); err != nil {
			return nil, err
		}
	}

	if input.Name != nil {
		user.Name = strings.TrimSpace(*input.Name)
	}
	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if email != user.Email {
			if existing, err := s.users.GetByEmail(ctx, email); err == nil && existing.ID != user.ID {
				return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
			} else if err != nil && !isNotFound(err) {
				return nil, apperrors.MapError(err)
			}
			user.Email = email
		}
	}
	if input.Phone != nil {
		user.Phone = strings.TrimSpace(*input.Phone)
	}
	if input.DocumentNumber != nil {
		user.DocumentNumber = strings.TrimSpace(*input.DocumentNumber)
	}
	if input.CompanyID != nil {
		if !actor.Role.CanAdminister() {
			return nil, apperrors.NewForbidden("only administrators can move users between companies")
		}
		if err := s.checkCompany(ctx, user.Roles, input.CompanyID); err != nil {
			return nil, err
		}
		user.CompanyID = input.CompanyID
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return ViewUser(user, actor), nil
}

// UpdateRoles replaces a user's role set. The new set must parse, must resolve
// to an effective role, and may only contain roles the actor can grant.
func (s *UserService) UpdateRoles(ctx context.Context, actor *auth.Principal, id string, labels []string) (*UserView, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if actor.UserID() == id {
		return nil, apperrors.NewForbidden("users cannot change their own roles")
	}
	roles, err := s.checkGrant(actor, labels)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "user", map[string]any{"user_id": id})
	}
	if err := checkOutranks(actor, user); err != nil {
		return nil, err
	}
	if err := s.checkCompany(ctx, roles, user.CompanyID); err != nil {
		return nil, err
	}

	user.Roles = roles
	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return ViewUser(user, actor), nil
}

// SetActive enables or disables an account.
func (s *UserService) SetActive(ctx context.Context, actor *auth.Principal, id string, active bool) (*UserView, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if actor.UserID() == id {
		return nil, apperrors.NewForbidden("users cannot change their own status")
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "user", map[string]any{"user_id": id})
	}
	if err := checkOutranks(actor, user); err != nil {
		return nil, err
	}
	user.Active = active
	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return ViewUser(user, actor), nil
}

// ListByRole is a shortcut for the clients and operators listings.
func (s *UserService) ListByRole(ctx context.Context, viewer *auth.Principal, role domain.Role, search string, limit, offset int) ([]UserView, error) {
	return s.List(ctx, viewer, repository.UserFilter{
		Role:   &role,
		Active: ptr(true),
		Search: search,
		Limit:  limit,
		Offset: offset,
	})
}

func (s *UserService) checkGrant(actor *auth.Principal, labels []string) ([]domain.Role, error) {
	roles, err := domain.ParseRoles(labels)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if _, err := auth.EffectiveRole(roles); err != nil {
		return nil, apperrors.MapError(err)
	}
	for _, role := range roles {
		if !actor.Role.CanGrant(role) {
			return nil, apperrors.NewForbidden("cannot grant role " + role.String())
		}
	}
	return roles, nil
}

func (s *UserService) checkCompany(ctx context.Context, roles []domain.Role, companyID *string) error {
	isClient := false
	for _, r := range roles {
		if r == domain.RoleClient {
			isClient = true
		}
	}
	if companyID == nil {
		if isClient {
			return apperrors.NewValidationError("clients must belong to a company", map[string]any{"company_id": "required"})
		}
		return nil
	}
	company, err := s.companies.GetByID(ctx, *companyID)
	if err != nil {
		return notFoundOr(err, "company", map[string]any{"company_id": *companyID})
	}
	if !company.Active {
		return apperrors.NewConflict("company inactive", map[string]any{"company_id": *companyID})
	}
	return nil
}

// checkOutranks refuses changes to users whose effective role is above the actor's.
// Users with an unresolvable role set can be repaired by any administrator.
func checkOutranks(actor *auth.Principal, target *domain.User) error {
	targetRole, err := auth.EffectiveRole(target.Roles)
	if err != nil {
		return nil
	}
	if targetRole > actor.Role {
		return apperrors.NewForbidden("cannot modify a user with a higher role")
	}
	return nil
}

func requireAdmin(p *auth.Principal) error {
	if err := requirePrincipal(p); err != nil {
		return err
	}
	if !p.Role.CanAdminister() {
		return apperrors.NewForbidden("administrator role required")
	}
	return nil
}

// ViewUser attaches the effective role and hides sensitive client data from
// anyone other than the user themself or a MASTER.
func ViewUser(user *domain.User, viewer *auth.Principal) *UserView {
	view := &UserView{User: *user}
	view.PasswordHash = ""
	view.Roles = append([]domain.Role(nil), user.Roles...)
	if role, err := auth.EffectiveRole(user.Roles); err == nil {
		view.EffectiveRole = role
	}
	if viewer != nil && viewer.UserID() == user.ID {
		return view
	}
	if user.HasRole(domain.RoleClient) && (viewer == nil || !viewer.Role.CanViewSensitiveClientData()) {
		view.Phone = ""
		view.DocumentNumber = ""
		view.Redacted = true
	}
	return view
}
