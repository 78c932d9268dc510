// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

// Package validation checks decoded request parameters with
// go-playground/validator.
//
// Field names in errors are taken from the `query` struct tag, so a failed
// check reports the parameter the client actually sent:
//
//	type listRequest struct {
//	    Platform string `query:"platform" validate:"omitempty,contest_platform"`
//	    Limit    int    `query:"limit"    validate:"min=0,max=100"`
//	}
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/tomtom215/contestwatch/internal/models"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError is one failed check.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message"`
}

// Error collects every failed check of one struct.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return strings.Join(msgs, "; ")
}

// Validator returns the shared instance with the custom tags registered.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("query"), ",")
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
		mustRegister(v, "platform", func(fl validator.FieldLevel) bool {
			_, err := models.ParsePlatform(fl.Field().String())
			return err == nil
		})
		mustRegister(v, "contest_platform", categoryValidator(models.CategoryContest))
		mustRegister(v, "hackathon_platform", categoryValidator(models.CategoryHackathon))
		mustRegister(v, "category", func(fl validator.FieldLevel) bool {
			c := models.Category(strings.ToLower(fl.Field().String()))
			return c == models.CategoryContest || c == models.CategoryHackathon
		})
		validate = v
	})
	return validate
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validator: %v", tag, err))
	}
}

func categoryValidator(cat models.Category) validator.Func {
	return func(fl validator.FieldLevel) bool {
		p, err := models.ParsePlatform(fl.Field().String())
		return err == nil && p.Category() == cat
	}
}

// Struct validates s. It returns nil or an *Error.
func Struct(s any) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &Error{Fields: []FieldError{{Field: "request", Tag: "invalid", Message: err.Error()}}}
	}
	out := &Error{Fields: make([]FieldError, len(verrs))}
	for i, fe := range verrs {
		out.Fields[i] = FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Message: message(fe),
		}
	}
	return out
}

var messages = map[string]string{
	"required":           "%s is required",
	"platform":           "%s must be a known platform",
	"contest_platform":   "%s must be one of codeforces, codechef, leetcode, atcoder",
	"hackathon_platform": "%s must be one of devfolio, mlh, devpost",
	"category":           "%s must be contest or hackathon",
	"datetime":           "%s must be an RFC3339 timestamp",
}

var paramMessages = map[string]string{
	"oneof":   "%s must be one of: %s",
	"min":     "%s must be at least %s",
	"max":     "%s must be at most %s",
	"gte":     "%s must be greater than or equal to %s",
	"lte":     "%s must be less than or equal to %s",
	"gtfield": "%s must be after %s",
}

func message(fe validator.FieldError) string {
	if tmpl, ok := messages[fe.Tag()]; ok {
		return fmt.Sprintf(tmpl, fe.Field())
	}
	if tmpl, ok := paramMessages[fe.Tag()]; ok {
		if fe.Kind() == reflect.String && (fe.Tag() == "min" || fe.Tag() == "max") {
			tmpl += " characters"
		}
		return fmt.Sprintf(tmpl, fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
}
