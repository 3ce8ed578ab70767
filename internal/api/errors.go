package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/heimaolst/shortlink/internal/util"
	"go.uber.org/zap"
)

var registerTagNamesOnce sync.Once

// registerValidatorTagNames 让校验错误使用 json/form 标签里的字段名
func registerValidatorTagNames() {
	registerTagNamesOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "" {
				name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			}
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

func errResponse(err error) gin.H {
	var ce *util.CustomError
	if !errors.As(err, &ce) {
		return gin.H{"error": err.Error()}
	}
	rsp := gin.H{"error": ce.Message, "code": ce.Code}
	if len(ce.Fields) > 0 {
		rsp["details"] = ce.Fields
	}
	return rsp
}

func statusFor(code string) int {
	switch code {
	case util.CodeValidation:
		return http.StatusBadRequest
	case util.CodeNotFound:
		return http.StatusNotFound
	case util.CodeGone:
		return http.StatusGone
	case util.CodeConflict:
		return http.StatusConflict
	case util.CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// handleError 内部错误只记录日志，响应里只给出通用信息
func (server *Server) handleError(ctx *gin.Context, err error) {
	err = util.Internal(err)
	code := util.CodeOf(err)
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		server.logger.Error("request failed",
			zap.String("path", ctx.FullPath()), zap.Error(err))
		_ = ctx.Error(err)
	}
	ctx.JSON(status, errResponse(err))
}

// bindError 把 gin 的绑定错误转换成带字段信息的校验错误
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]util.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, util.FieldError{Field: fe.Field(), Message: validationMessage(fe)})
		}
		return util.Validation("validation failed", fields...)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return util.Validation("validation failed", util.FieldError{
			Field:   typeErr.Field,
			Message: fmt.Sprintf("must be of type %s", typeErr.Type),
		})
	}
	return util.Validation("malformed request: " + err.Error())
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "url":
		return "must be a valid URL"
	case "email":
		return "must be a valid email address"
	case "alphanum":
		return "must contain only letters and digits"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed on the %q rule", fe.Tag())
	}
}
