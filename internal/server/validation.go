package server

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

const maxAlbumTitleLength = 100

// validationItem mirrors the list form of the "detail" error body
type validationItem struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

func newValidator() *validator.Validate {
	validate := validator.New()

	// Report JSON field names instead of Go field names
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	// Album titles: not blank, bounded, no control characters
	validate.RegisterValidation("albumtitle", func(fl validator.FieldLevel) bool {
		value := strings.TrimSpace(fl.Field().String())
		if value == "" || utf8.RuneCountInString(value) > maxAlbumTitleLength {
			return false
		}
		for _, char := range value {
			if char < 0x20 || char == 0x7f {
				return false
			}
		}
		return true
	})

	return validate
}

// bindJSON decodes the body into req and validates it. On failure it writes
// the response and returns false.
func (s *Server) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		detail(c, http.StatusUnprocessableEntity, "invalid JSON body")
		return false
	}

	if err := s.validator.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			detail(c, http.StatusUnprocessableEntity, err.Error())
			return false
		}

		items := make([]validationItem, 0, len(verrs))
		for _, fe := range verrs {
			items = append(items, validationItem{
				Loc:  []string{"body", fe.Field()},
				Msg:  validationMessage(fe),
				Type: fe.Tag(),
			})
		}
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"detail": items})
		return false
	}
	return true
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "value is not a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "albumtitle":
		return fmt.Sprintf("title must be 1 to %d printable characters", maxAlbumTitleLength)
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}
