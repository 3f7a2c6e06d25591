package validator

import (
	"errors"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/stemsi/exstem-practice/internal/model"
)

// trans is the English translator shared by every request binding.
var trans ut.Translator

// domainRule is a binding tag backed by a model enum.
type domainRule struct {
	tag     string
	valid   func(string) bool
	message string
}

var domainRules = []domainRule{
	{
		tag:     "exam_type",
		valid:   func(s string) bool { return model.ExamType(s).Valid() },
		message: "{0} must be one of THEORY_TOPIC, THEORY_MIXED, PRACTICAL, SIMULACRO",
	},
	{
		tag:     "theme_part",
		valid:   func(s string) bool { return model.ThemePart(s).Valid() },
		message: "{0} must be GENERAL or SPECIFIC",
	},
}

// Setup installs the domain tags and English messages on Gin's binding engine.
// Call once during startup, before the router serves requests.
func Setup() {
	v, ok := binding.Validator.Engine().(*govalidator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(JSONTagName)

	enLocale := en.New()
	trans, _ = ut.New(enLocale, enLocale).GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, trans)

	for _, rule := range domainRules {
		registerRule(v, rule)
	}
}

func registerRule(v *govalidator.Validate, rule domainRule) {
	valid := rule.valid
	_ = v.RegisterValidation(rule.tag, func(fl govalidator.FieldLevel) bool {
		return valid(fl.Field().String())
	})
	_ = v.RegisterTranslation(rule.tag, trans,
		func(t ut.Translator) error {
			return t.Add(rule.tag, rule.message, true)
		},
		func(t ut.Translator, fe govalidator.FieldError) string {
			msg, err := t.T(rule.tag, fe.Field())
			if err != nil {
				return fe.Error()
			}
			return msg
		},
	)
}

// JSONTagName reports a struct field by its JSON name.
func JSONTagName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

// TranslateErrors maps a binding error to field → message.
// Anything that is not a validation error (bad JSON, wrong types) lands under "detail".
func TranslateErrors(err error) map[string]string {
	var ve govalidator.ValidationErrors
	if !errors.As(err, &ve) {
		return map[string]string{"detail": err.Error()}
	}

	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		if trans != nil {
			fields[fe.Field()] = fe.Translate(trans)
		} else {
			fields[fe.Field()] = fe.Error()
		}
	}
	return fields
}

// Bind decodes the JSON body into dst and validates it.
// A nil map means the request is usable.
func Bind(c *gin.Context, dst interface{}) map[string]string {
	if err := c.ShouldBindJSON(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}
