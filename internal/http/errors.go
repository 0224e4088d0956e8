package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"postboard/internal/service"
)

const internalErrorDetail = "internal server error"

// writeError maps service errors onto status codes. Unknown errors are logged
// and hidden behind a generic 500.
func (h *Handler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	detail := internalErrorDetail

	switch {
	case errors.Is(err, service.ErrValidation):
		status, detail = http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, service.ErrInvalidCredentials):
		status, detail = http.StatusUnauthorized, "Incorrect username or password"
	case errors.Is(err, service.ErrUnauthenticated):
		status, detail = http.StatusUnauthorized, "Could not validate credentials"
	case errors.Is(err, service.ErrForbidden):
		status, detail = http.StatusForbidden, "Not enough permissions"
	case errors.Is(err, service.ErrPostNotFound):
		status, detail = http.StatusNotFound, "Post not found"
	case errors.Is(err, service.ErrUserNotFound):
		status, detail = http.StatusNotFound, "User not found"
	case errors.Is(err, service.ErrUserAlreadyExists):
		status, detail = http.StatusConflict, "Username or email already registered"
	case errors.Is(err, service.ErrPostAlreadyExists):
		status, detail = http.StatusConflict, "A post with the same title and content already exists"
	default:
		h.logger.WithError(err).WithField("path", c.Request.URL.Path).Error("request failed")
	}

	if status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", "Bearer")
	}
	c.JSON(status, gin.H{"detail": detail})
}

// writeBindError reports a malformed request body or query as 422.
func writeBindError(c *gin.Context, err error) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": describeBindError(err)})
}

func describeBindError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, describeFieldError(fe))
		}
		return strings.Join(msgs, "; ")
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		if typeErr.Field != "" {
			return fmt.Sprintf("field '%s' must be a %s", typeErr.Field, jsonKind(typeErr.Type))
		}
		return fmt.Sprintf("request body must be a %s", jsonKind(typeErr.Type))
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset)
	}

	if errors.Is(err, io.EOF) {
		return "request body is required"
	}
	return err.Error()
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("field '%s' is required", fe.Field())
	case "email":
		return fmt.Sprintf("field '%s' must be a valid email address", fe.Field())
	case "min":
		return fmt.Sprintf("field '%s' must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("field '%s' must be at most %s characters", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("field '%s' must be one of: %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("field '%s' failed '%s' validation", fe.Field(), fe.Tag())
	}
}

func jsonKind(t reflect.Type) string {
	if t == nil {
		return "value"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Bool:
		return "boolean"
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Struct, reflect.Map:
		return "object"
	case reflect.Slice, reflect.Array:
		return "array"
	default:
		return t.Kind().String()
	}
}

var fieldNamesOnce sync.Once

// registerFieldNames makes validation errors name the wire field (json or
// form key) instead of the Go struct field.
func registerFieldNames() {
	fieldNamesOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return f.Name
		})
	})
}
