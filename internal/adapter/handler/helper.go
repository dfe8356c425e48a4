package handler

import (
	stdErrors "errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/seedbridge/crm-portal/errors"
	"github.com/seedbridge/crm-portal/internal/adapter/dto/common"
	"github.com/seedbridge/crm-portal/internal/domain/entities"
	httpmw "github.com/seedbridge/crm-portal/internal/infrastructure/http/middleware"
	"github.com/seedbridge/crm-portal/internal/usecase/notes"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// getRequestID tries to read X-Request-ID from the request
func getRequestID(c echo.Context) string {
	if c == nil || c.Request() == nil {
		return ""
	}
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return c.Request().Header.Get(echo.HeaderXRequestID)
}

// HandleSuccess writes a standardized success response using provided logger
func HandleSuccess(logger *zap.Logger, c echo.Context, status int, data interface{}) error {
	if logger != nil {
		logger.Debug("http.response.success",
			zap.String("request_id", getRequestID(c)),
			zap.String("path", c.Path()),
		)
	}

	return c.JSON(status, common.SuccessResponse{
		Code:    status,
		Message: "success",
		Data:    data,
	})
}

// HandleError centralizes error handling and logging using provided logger
func HandleError(logger *zap.Logger, c echo.Context, err error) error {
	appErr := toAppError(err)

	if logger != nil {
		fields := []zap.Field{
			zap.String("request_id", getRequestID(c)),
			zap.String("path", c.Path()),
			zap.Stringer("app_code", appErr.Code),
			zap.Error(err),
		}
		if appErr.HTTPCode >= http.StatusInternalServerError {
			logger.Error("http.response.error", fields...)
		} else {
			logger.Warn("http.response.error", fields...)
		}
	}

	body := common.ErrorResponse{
		Code:    appErr.Code.String(),
		Message: appErr.Message,
	}
	// Raw causes of server-side failures stay in the logs.
	if appErr.HTTPCode < http.StatusInternalServerError {
		if appErr.Raw != nil {
			body.Info = appErr.Raw.Error()
		}
		body.Fields = appErr.Details
	}

	return c.JSON(appErr.HTTPCode, body)
}

// ErrorHandler renders errors returned by handlers and middleware
func ErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		if writeErr := HandleError(logger, c, err); writeErr != nil && logger != nil {
			logger.Error("http.response.write_failed", zap.Error(writeErr))
		}
	}
}

// toAppError maps domain sentinels onto API errors
func toAppError(err error) errors.AppError {
	var appErr errors.AppError
	if stdErrors.As(err, &appErr) {
		return appErr
	}

	var httpErr *echo.HTTPError
	if stdErrors.As(err, &httpErr) {
		return fromHTTPError(httpErr)
	}

	var validationErrs validator.ValidationErrors
	if stdErrors.As(err, &validationErrs) {
		e := errors.ErrInvalidArgument("validation failed")
		for _, fe := range validationErrs {
			e = e.WithDetail(fe.Field(), fe.Tag())
		}
		return e
	}

	switch {
	case stdErrors.Is(err, entities.ErrUserNotFound):
		return errors.ErrNotFound("user")
	case stdErrors.Is(err, entities.ErrEntityNotFound):
		return errors.ErrNotFound("entity")
	case stdErrors.Is(err, entities.ErrContactNotFound):
		return errors.ErrNotFound("contact")
	case stdErrors.Is(err, entities.ErrLeadNotFound):
		return errors.ErrNotFound("lead")
	case stdErrors.Is(err, entities.ErrMeetingNotFound):
		return errors.ErrNotFound("meeting")
	case stdErrors.Is(err, entities.ErrLeadAlreadyExists):
		return errors.ErrAlreadyExists("lead")
	case stdErrors.Is(err, entities.ErrOAuthStateMismatch):
		return errors.ErrOAuthStateMismatch()
	case stdErrors.Is(err, entities.ErrInvalidToken):
		return errors.ErrInvalidToken()
	case stdErrors.Is(err, entities.ErrSessionNotFound), stdErrors.Is(err, entities.ErrSessionExpired):
		return errors.ErrInvalidRefreshToken()
	case stdErrors.Is(err, entities.ErrUnauthorized):
		return errors.ErrUnauthenticated()
	case stdErrors.Is(err, entities.ErrForbidden):
		return errors.ErrPermissionDenied("access")
	case stdErrors.Is(err, entities.ErrGoogleNotConnected):
		return errors.ErrGoogleNotConnected("")
	case stdErrors.Is(err, entities.ErrSweepInProgress):
		return errors.ErrSweepInProgress(notes.JobName)
	case stdErrors.Is(err, entities.ErrOAuthCodeMissing),
		stdErrors.Is(err, entities.ErrOAuthScopesMissing),
		stdErrors.Is(err, entities.ErrRefreshTokenMissing),
		stdErrors.Is(err, entities.ErrInvalidEntityType),
		stdErrors.Is(err, entities.ErrInvalidEmail),
		stdErrors.Is(err, entities.ErrInvalidName),
		stdErrors.Is(err, entities.ErrInvalidRole),
		stdErrors.Is(err, entities.ErrInvalidRequest):
		return errors.ErrInvalidArgument(err.Error())
	}

	return errors.ErrInternal(err)
}

func fromHTTPError(httpErr *echo.HTTPError) errors.AppError {
	message := http.StatusText(httpErr.Code)
	if m, ok := httpErr.Message.(string); ok && m != "" {
		message = m
	}

	var appErr errors.AppError
	switch httpErr.Code {
	case http.StatusBadRequest, http.StatusUnsupportedMediaType, http.StatusRequestEntityTooLarge:
		appErr = errors.ErrInvalidPayload()
	case http.StatusUnauthorized:
		appErr = errors.ErrUnauthenticated()
	case http.StatusForbidden:
		appErr = errors.ErrPermissionDenied("access")
	case http.StatusNotFound:
		appErr = errors.ErrNotFound("route")
	case http.StatusMethodNotAllowed:
		appErr = errors.ErrInvalidArgument("method not allowed")
	case http.StatusServiceUnavailable:
		appErr = errors.ErrUnavailable("service", httpErr.Internal)
	case http.StatusTooManyRequests:
		appErr = errors.ErrUnavailable("service", httpErr.Internal)
	default:
		appErr = errors.ErrInternal(httpErr.Internal)
	}
	appErr.HTTPCode = httpErr.Code
	appErr.Message = message
	return appErr
}

// bindAndValidate decodes the request into req and runs struct validation
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		e := errors.ErrInvalidPayload()
		e.Raw = err
		return e
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	return nil
}

// currentUser returns the authenticated user or an unauthenticated error
func currentUser(c echo.Context) (*entities.User, error) {
	user, ok := httpmw.GetUser(c)
	if !ok {
		return nil, errors.ErrUnauthenticated()
	}
	return user, nil
}

// pagination reads limit and offset query params
func pagination(c echo.Context) (int, int, error) {
	limit, offset := defaultLimit, 0
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return 0, 0, errors.ErrInvalidArgument("limit must be a positive integer")
		}
		limit = min(n, maxLimit)
	}
	if v := c.QueryParam("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return 0, 0, errors.ErrInvalidArgument("offset must be a non-negative integer")
		}
		offset = n
	}
	return limit, offset, nil
}
