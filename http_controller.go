package auth

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// ResponseEnvelope is the uniform response shape for every endpoint.
type ResponseEnvelope struct {
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data,omitempty"`
}

// GuardSet holds the middleware applied to protected routes. The
// handlers are injected so the controller stays decoupled from the
// guard implementation.
type GuardSet struct {
	// Authenticated requires a valid access token.
	Authenticated fiber.Handler
	// Admin additionally requires the admin role.
	Admin fiber.Handler
}

type AuthController struct {
	Debug      bool
	Logger     Logger
	Registry   *Registry
	ContextKey string
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:     defLogger{},
		ContextKey: "user",
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Registry == nil {
		panic("Missing Registry in auth controller...")
	}

	return c
}

func WithControllerRegistry(registry *Registry) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Registry = registry
		return c
	}
}

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = logger
		return c
	}
}

func WithControllerContextKey(key string) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.ContextKey = key
		return c
	}
}

// RegisterAuthRoutes mounts the identity endpoints on the app.
func RegisterAuthRoutes(app *fiber.App, controller *AuthController, guards GuardSet) {
	local := app.Group("/auth/local")

	local.Post("/register", controller.Register)
	local.Post("/login", controller.Login)
	local.Post("/logout", guards.Authenticated, controller.Logout)
	local.Get("/me", guards.Authenticated, controller.Me)
	local.Post("/refresh", controller.Refresh)

	app.Post("/auth/add-role", guards.Admin, controller.AddRole)
	app.Get("/users", guards.Admin, controller.ListUsers)
}

type RegisterRequest struct {
	Email           string `json:"email" form:"email"`
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirmPassword" form:"confirmPassword"`
	FullName        string `json:"fullName" form:"fullName"`
}

func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
		validation.Field(&r.ConfirmPassword, validation.Required),
	)
}

type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" form:"refresh_token"`
}

func (r RefreshRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RefreshToken, validation.Required),
	)
}

type AddRoleRequest struct {
	UserID string `json:"userId" form:"userId"`
	RoleID string `json:"roleId" form:"roleId"`
}

func (r AddRoleRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.UserID, validation.Required, is.UUIDv4),
		validation.Field(&r.RoleID, validation.Required, is.UUIDv4),
	)
}

// Register handles POST /auth/local/register. The avatar is an optional
// multipart file forwarded to the external blob store.
func (a *AuthController) Register(c *fiber.Ctx) error {
	payload := RegisterRequest{}
	if err := c.BodyParser(&payload); err != nil {
		return a.validationError(c, err)
	}
	if err := payload.Validate(); err != nil {
		return a.validationError(c, err)
	}

	var avatar *AvatarUpload
	if fh, err := c.FormFile("avatar"); err == nil && fh != nil {
		blob, err := fh.Open()
		if err != nil {
			return a.handleError(c, errors.Wrap(err, errors.CategoryBadInput, "could not read avatar upload").
				WithCode(errors.CodeBadRequest))
		}
		defer blob.Close()
		avatar = &AvatarUpload{Filename: fh.Filename, Blob: blob}
	}

	profile, err := a.Registry.RegisterLocal(c.Context(), RegisterInput{
		Email:           payload.Email,
		Password:        payload.Password,
		ConfirmPassword: payload.ConfirmPassword,
		FullName:        payload.FullName,
	}, avatar)
	if err != nil {
		return a.handleError(c, err)
	}

	return respond(c, fiber.StatusCreated, "User registered successfully", profile)
}

// Login handles POST /auth/local/login
func (a *AuthController) Login(c *fiber.Ctx) error {
	payload := LoginRequest{}
	if err := c.BodyParser(&payload); err != nil {
		return a.validationError(c, err)
	}
	if err := payload.Validate(); err != nil {
		return a.validationError(c, err)
	}

	pair, err := a.Registry.Login(c.Context(), payload.Email, payload.Password)
	if err != nil {
		return a.handleError(c, err)
	}

	return respond(c, fiber.StatusOK, "User logged in successfully", pair)
}

// Logout handles POST /auth/local/logout
func (a *AuthController) Logout(c *fiber.Ctx) error {
	userID, err := a.currentUserID(c)
	if err != nil {
		return a.handleError(c, err)
	}

	pair, err := a.Registry.Logout(c.Context(), userID)
	if err != nil {
		return a.handleError(c, err)
	}

	return respond(c, fiber.StatusOK, "User logged out successfully", pair)
}

// Me handles GET /auth/local/me
func (a *AuthController) Me(c *fiber.Ctx) error {
	userID, err := a.currentUserID(c)
	if err != nil {
		return a.handleError(c, err)
	}

	profile, err := a.Registry.GetProfile(c.Context(), userID)
	if err != nil {
		return a.handleError(c, err)
	}

	return respond(c, fiber.StatusOK, "User retrieved successfully", profile)
}

// Refresh handles POST /auth/local/refresh
func (a *AuthController) Refresh(c *fiber.Ctx) error {
	payload := RefreshRequest{}
	if err := c.BodyParser(&payload); err != nil {
		return a.validationError(c, err)
	}
	if err := payload.Validate(); err != nil {
		return a.handleError(c, ErrInvalidRefreshToken)
	}

	pair, err := a.Registry.Refresh(c.Context(), payload.RefreshToken)
	if err != nil {
		return a.handleError(c, err)
	}

	return respond(c, fiber.StatusCreated, "Tokens refreshed successfully", pair)
}

// AddRole handles POST /auth/add-role, admin only.
func (a *AuthController) AddRole(c *fiber.Ctx) error {
	payload := AddRoleRequest{}
	if err := c.BodyParser(&payload); err != nil {
		return a.validationError(c, err)
	}
	if err := payload.Validate(); err != nil {
		return a.validationError(c, err)
	}

	userID, err := uuid.Parse(payload.UserID)
	if err != nil {
		return a.validationError(c, err)
	}
	roleID, err := uuid.Parse(payload.RoleID)
	if err != nil {
		return a.validationError(c, err)
	}

	if err := a.Registry.AddRoleGrant(c.Context(), userID, roleID); err != nil {
		return a.handleError(c, err)
	}

	return respond(c, fiber.StatusCreated, "Role added successfully", nil)
}

// ListUsers handles GET /users, admin only.
func (a *AuthController) ListUsers(c *fiber.Ctx) error {
	profiles, err := a.Registry.ListUsers(c.Context())
	if err != nil {
		return a.handleError(c, err)
	}

	return respond(c, fiber.StatusOK, "Users retrieved successfully", profiles)
}

func (a *AuthController) currentUserID(c *fiber.Ctx) (uuid.UUID, error) {
	claims, ok := c.Locals(a.ContextKey).(*JWTClaims)
	if !ok || claims == nil {
		return uuid.Nil, ErrUnableToFindSession
	}
	return claims.UserUUID()
}

func (a *AuthController) validationError(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(ResponseEnvelope{
		Message:    err.Error(),
		StatusCode: fiber.StatusBadRequest,
	})
}

func (a *AuthController) handleError(c *fiber.Ctx, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	status := richErr.Code
	if status == 0 {
		status = fiber.StatusInternalServerError
	}

	if a.Debug {
		a.Logger.Debug("controller error (%s): %v", richErr.Category, err)
	}

	return c.Status(status).JSON(ResponseEnvelope{
		Message:    richErr.Message,
		StatusCode: status,
	})
}

func respond(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(ResponseEnvelope{
		Message:    message,
		StatusCode: status,
		Data:       data,
	})
}
