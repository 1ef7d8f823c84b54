package pkg

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/simp-lee/userdesk/internal/domain"
)

// ErrorResponse is the JSON envelope for every non-2xx response.
type ErrorResponse struct {
	Detail string            `json:"detail"`
	Errors map[string]string `json:"errors,omitempty"`
}

// Message is the body of endpoints that only report a message.
type Message struct {
	Message string `json:"message"`
}

// Error sends a JSON error response. If err is a *domain.AppError, its code is
// mapped to the appropriate HTTP status and its message becomes the detail;
// otherwise 500 is returned.
func Error(c *gin.Context, err error) {
	status := domain.HTTPStatusCode(err)

	var appErr *domain.AppError
	detail := "Internal server error"
	if errors.As(err, &appErr) && status != http.StatusInternalServerError {
		detail = appErr.Message
	}

	c.JSON(status, ErrorResponse{Detail: detail})
}

// Abort sends detail with status and stops the handler chain.
func Abort(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Detail: detail})
}

// ValidationError sends a 422 JSON response with per-field validation error details.
func ValidationError(c *gin.Context, err error) {
	validationErrorWithType(c, err, nil)
}

// BindAndValidate binds the JSON request body to obj and validates it.
// On failure it sends a ValidationError response and returns false.
//
//	if !pkg.BindAndValidate(c, &req) { return }
func BindAndValidate(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		validationErrorWithType(c, err, obj)
		return false
	}
	return true
}

func validationErrorWithType(c *gin.Context, err error, obj any) {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Detail: "Invalid request body: " + err.Error()})
		return
	}

	jsonTags := buildJSONTagMap(obj)

	fieldErrors := make(map[string]string, len(ve))
	for _, fe := range ve {
		name := fe.Field()
		if tag, ok := jsonTags[fe.StructField()]; ok {
			name = tag
		} else {
			name = strings.ToLower(name)
		}
		fieldErrors[name] = FieldMessage(fe.Tag(), fe.Param())
	}

	c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
		Detail: "Validation error",
		Errors: fieldErrors,
	})
}

// FieldMessage turns a failed validation tag into a readable message.
func FieldMessage(tag, param string) string {
	switch tag {
	case "required", "notblank":
		return "field is required"
	case "basic_email", "email":
		return "invalid email format"
	case "datetime":
		return "must be a date formatted as " + param
	}
	if param != "" {
		return tag + "=" + param
	}
	return tag
}

// buildJSONTagMap returns a map from struct field name to its JSON tag name.
// If obj is nil or not a struct (pointer), it returns an empty map.
func buildJSONTagMap(obj any) map[string]string {
	if obj == nil {
		return nil
	}
	t := reflect.TypeOf(obj)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	m := make(map[string]string, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if name := parseJSONTagName(f.Tag.Get("json")); name != "" {
			m[f.Name] = name
		}
	}
	return m
}
