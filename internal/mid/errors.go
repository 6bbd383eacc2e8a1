package mid

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/hamidoujand/usersadmin/internal/errs"
	"github.com/hamidoujand/usersadmin/pkg/logger"
)

var translator ut.Translator

func init() {
	translator, _ = ut.New(en.New(), en.New()).GetTranslator("en")

	if validate, ok := binding.Validator.Engine().(*validator.Validate); ok {
		en_translations.RegisterDefaultTranslations(validate, translator)
		errs.RegisterRules(validate, translator)

		//using json (or form) tag names instead of field names
		validate.RegisterTagNameFunc(errs.FieldName)
	}
}

// Error renders the last error a handler attached to the context.
func Error(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		var appErr *errs.Error
		var validationErrors validator.ValidationErrors

		switch {
		case errors.As(err, &appErr):
			log.Error(c.Request.Context(), "error while handling request", "err", err, "statusCode", appErr.Code, "fileName", appErr.FileName, "funcName", appErr.FuncName)

			//only the internal server errors need a generic err message so we do not leak any info
			if appErr.Code == http.StatusInternalServerError {
				appErr = &errs.Error{
					Code:    http.StatusInternalServerError,
					Message: http.StatusText(http.StatusInternalServerError),
				}
			}

			c.JSON(appErr.Code, appErr)

		case errors.As(err, &validationErrors):
			appErr := errs.NewValidationErr(http.StatusBadRequest, errs.Translate(validationErrors, translator))
			c.JSON(http.StatusBadRequest, appErr)

		default:
			log.Error(c.Request.Context(), "unknown error", "err", err)
			c.JSON(http.StatusInternalServerError, errs.Error{
				Code:    http.StatusInternalServerError,
				Message: http.StatusText(http.StatusInternalServerError),
			})
		}
	}
}
