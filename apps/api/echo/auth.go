package echoapi

import (
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/innovalab/center/core"
	"github.com/innovalab/center/core/user"
)

const userTokenKey = "userToken"

var NowFunc = time.Now // mockable

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	ID   int64  `json:"id"`
	Role string `json:"role"`
	jwt.StandardClaims
}

func (c Claims) IsAdmin() bool { return c.Role == user.RoleAdmin }

func (c Claims) person() core.LogPerson {
	return core.LogPerson{ID: formatID(c.ID)}
}

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    userTokenKey,
		Claims:        new(Claims),
		// a header that is present but malformed is an invalid token, not a missing one
		ErrorHandlerWithContext: func(_ error, ctx echo.Context) error {
			if ctx.Request().Header.Get(echo.HeaderAuthorization) == "" {
				return errMissingToken
			}
			return errInvalidToken
		},
	}
}

// GetUserClaims returns the claims embedded in the tokens issued to usr.
func GetUserClaims(usr user.User, conf *core.Config) *Claims {
	now := NowFunc()
	return &Claims{
		ID:   usr.ID,
		Role: usr.Role,
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(conf.JWTExpirationDelta).Unix(),
		},
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(claims *Claims, conf *core.Config) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(userTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errInvalidToken
}

type (
	loginUser struct {
		ID       int64  `json:"id"`
		Names    string `json:"names"`
		Role     string `json:"role"`
		Provider string `json:"auth_provider"`
	}

	loginResponse struct {
		Message string    `json:"message"`
		Token   string    `json:"token"`
		User    loginUser `json:"user"`
	}
)

func (s *server) registerAuthAPI(g *echo.Group) {
	ag := g.Group("/auth")
	ag.POST("/register", s.register)
	ag.POST("/login", s.login)
	ag.POST("/google", s.socialLogin(user.ProviderGoogle))
	ag.POST("/facebook", s.socialLogin(user.ProviderFacebook))
}

func (s *server) register(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return err
	}
	if _, err := s.deps.UserSvc.Register(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "registering user")
	}
	return ctx.JSON(http.StatusCreated, messageResponse{Message: "Usuario registrado exitosamente"})
}

func (s *server) login(ctx echo.Context) error {
	var data user.Credentials
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Credentials")
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return err
	}
	usr, err := s.deps.UserSvc.Authenticate(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	return s.respondWithToken(ctx, usr, "Login exitoso")
}

func (s *server) socialLogin(provider string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		var data user.SocialCredentials
		if err := ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to SocialCredentials")
		}
		if err := data.Validate(s.deps.Validate); err != nil {
			return err
		}
		usr, err := s.deps.UserSvc.SocialLogin(ctx.Request().Context(), provider, data)
		if err != nil {
			return errors.Wrapf(err, "logging in with %s", provider)
		}
		return s.respondWithToken(ctx, usr, "Login con "+provider+" exitoso")
	}
}

func (s *server) respondWithToken(ctx echo.Context, usr user.User, msg string) error {
	token, err := GenerateToken(GetUserClaims(usr, s.deps.Conf), s.deps.Conf)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, loginResponse{
		Message: msg,
		Token:   token,
		User: loginUser{
			ID:       usr.ID,
			Names:    usr.Names,
			Role:     usr.Role,
			Provider: usr.Provider,
		},
	})
}
