package user

import (
	"context"
	"net/mail"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/innovalab/center/core"
)

var (
	NowFunc = time.Now // mockable

	// password changes allowed per rolling window
	passwordChangeLimit  = 3
	passwordChangeWindow = 24 * time.Hour

	// errors
	ErrNotFound            = core.NewNotFoundError("Usuario no encontrado")
	ErrEmailExists         = core.NewConflictError("El correo ya está registrado")
	ErrSocialOnlyAccount   = core.NewValidationError(errors.New("Esta cuenta se creó con un proveedor social. Inicia sesión con ese proveedor."))
	ErrInvalidCredentials  = core.NewAuthError("Contraseña incorrecta")
	ErrPasswordChangeLimit = core.NewLimitError("Límite de seguridad alcanzado.")
	ErrUnknownProvider     = core.NewValidationError(errors.New("Proveedor de autenticación no soportado"))
	ErrIdentityNotVerified = core.NewAuthError("No se pudo verificar la identidad con el proveedor")
	ErrIdentityNoEmail     = core.NewValidationError(errors.New("No se pudo obtener el correo del proveedor"))
)

type (
	Repository interface {
		// CreateUser fails with ErrEmailExists if the email is taken.
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id int64) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		// UpdateUser only writes the non-nil fields of patch.
		UpdateUser(ctx context.Context, id int64, patch Patch) (User, error)
	}

	// IdentityVerifier checks a provider issued token server side and returns who it belongs to.
	IdentityVerifier interface {
		VerifyIdentity(ctx context.Context, token string) (Identity, error)
	}

	Service struct {
		repo      Repository
		mailSvc   core.EmailService
		logger    core.Logger
		verifiers map[string]IdentityVerifier
	}
)

func NewService(repo Repository, mailSvc core.EmailService, logger core.Logger, verifiers map[string]IdentityVerifier) *Service {
	if verifiers == nil {
		verifiers = make(map[string]IdentityVerifier)
	}
	return &Service{
		repo:      repo,
		mailSvc:   mailSvc,
		logger:    logger,
		verifiers: verifiers,
	}
}

// Register creates a local student account.
func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	now := NowFunc().UTC()
	usr := User{
		Names:     nu.Names,
		Surnames:  nu.Surnames,
		Email:     nu.Email,
		Phone:     nu.Phone,
		Role:      RoleStudent,
		Provider:  ProviderLocal,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, err
	}
	svc.sendWelcomeMail(usr)
	return usr, nil
}

// CreateStudent creates a verified local student account on behalf of an admin.
func (svc *Service) CreateStudent(ctx context.Context, names, surnames, email, pwd string) (User, error) {
	now := NowFunc().UTC()
	usr := User{
		Names:      core.CleanString(names),
		Surnames:   core.CleanString(surnames),
		Email:      core.CleanString(email, true /* lower */),
		Role:       RoleStudent,
		Provider:   ProviderLocal,
		IsVerified: true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

// Authenticate checks local credentials.
func (svc *Service) Authenticate(ctx context.Context, creds Credentials) (User, error) {
	usr, err := svc.GetByEmail(ctx, creds.Email)
	if err != nil {
		return User{}, err
	}
	if !usr.HasPassword() {
		return User{}, ErrSocialOnlyAccount
	}
	if err = usr.CheckPassword(creds.Password); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return usr, nil
}

// SocialLogin verifies the provider token, then finds or creates the account owning its email.
// An existing account is switched to the calling provider on a best-effort basis.
func (svc *Service) SocialLogin(ctx context.Context, provider string, sc SocialCredentials) (User, error) {
	verifier, ok := svc.verifiers[provider]
	if !ok {
		return User{}, ErrUnknownProvider
	}
	ident, err := verifier.VerifyIdentity(ctx, sc.Token)
	if err != nil {
		svc.logger.Warn("social identity rejected", errors.Wrap(err, provider))
		return User{}, ErrIdentityNotVerified
	}
	email := core.CleanString(ident.Email, true /* lower */)
	if email == "" {
		return User{}, ErrIdentityNoEmail
	}

	usr, err := svc.repo.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if usr.Provider != provider {
			updated, uErr := svc.repo.UpdateUser(ctx, usr.ID, Patch{Provider: StringPtr(provider)})
			if uErr != nil {
				svc.logger.Error("updating auth provider", errors.Wrap(uErr, "updating user"), core.LogPerson{ID: strconv.FormatInt(usr.ID, 10), Email: usr.Email})
			} else {
				usr = updated
			}
		}
		return usr, nil
	case errors.Cause(err) != ErrNotFound:
		return User{}, errors.Wrap(err, "finding user by email")
	}

	names, surnames := ident.Names, ident.Surnames
	if names == "" {
		names = sc.Names
	}
	if surnames == "" {
		surnames = sc.Surnames
	}
	now := NowFunc().UTC()
	usr, err = svc.repo.CreateUser(ctx, User{
		Names:      names,
		Surnames:   surnames,
		Email:      email,
		Role:       RoleStudent,
		Provider:   provider,
		IsVerified: true,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if errors.Cause(err) == ErrEmailExists {
		// created concurrently by another login of the same person
		return svc.repo.GetUserByEmail(ctx, email)
	}
	return usr, err
}

func (svc *Service) GetByID(ctx context.Context, id int64) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) GetProfile(ctx context.Context, id int64) (Profile, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	return usr.Profile(), nil
}

// UpdateProfile changes names and, optionally, the password.
// At most passwordChangeLimit password changes are accepted within passwordChangeWindow.
func (svc *Service) UpdateProfile(ctx context.Context, id int64, up UpdateProfile) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}

	patch := Patch{Names: StringPtr(up.Names), Surnames: StringPtr(up.Surnames)}
	if up.NewPassword != "" {
		now := NowFunc().UTC()
		count := 1
		if !usr.PasswordChangedAt.IsZero() && usr.PasswordChangedAt.After(now.Add(-passwordChangeWindow)) {
			if usr.PasswordChangeCount >= passwordChangeLimit {
				return User{}, ErrPasswordChangeLimit
			}
			count = usr.PasswordChangeCount + 1
		}
		if err = usr.SetPassword(up.NewPassword); err != nil {
			return User{}, errors.Wrap(err, "hashing password")
		}
		patch.PasswordHash = usr.PasswordHash
		patch.PasswordChangeCount = IntPtr(count)
		patch.PasswordChangedAt = TimePtr(now)
	}
	return svc.repo.UpdateUser(ctx, id, patch)
}

// SetPassword resets a user's password without the profile rate limit (admin CLI).
func (svc *Service) SetPassword(ctx context.Context, email, pwd string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	_, err = svc.repo.UpdateUser(ctx, usr.ID, Patch{PasswordHash: usr.PasswordHash})
	return err
}

// AddAdmin creates an admin account, or promotes and resets the password of an existing one (admin CLI).
func (svc *Service) AddAdmin(ctx context.Context, names, surnames, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) != ErrNotFound {
			return User{}, err
		}
		now := NowFunc().UTC()
		usr = User{
			Names:      core.CleanString(names),
			Surnames:   core.CleanString(surnames),
			Email:      core.CleanString(email, true /* lower */),
			Role:       RoleAdmin,
			Provider:   ProviderLocal,
			IsVerified: true,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err = usr.SetPassword(pwd); err != nil {
			return User{}, errors.Wrap(err, "hashing password")
		}
		return svc.repo.CreateUser(ctx, usr)
	}
	if err = usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.UpdateUser(ctx, usr.ID, Patch{Role: StringPtr(RoleAdmin), PasswordHash: usr.PasswordHash})
}

func (svc *Service) sendWelcomeMail(usr User) {
	if svc.mailSvc == nil {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.FullName(), Address: usr.Email}},
		Subject:      "Bienvenido a InnovaLab Center",
		TemplateName: "welcome",
		TemplateData: struct{ Name string }{Name: usr.Names},
	})
}
