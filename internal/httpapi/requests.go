// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memberd Contributors

package httpapi

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (r signupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 72)),
		validation.Field(&r.Name, validation.Required, validation.Length(1, 60)),
	)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r loginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

type resetRequestRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (r resetRequestRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Name, validation.Required, validation.Length(1, 60)),
	)
}

type verifyCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (r verifyCodeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Code, validation.Required, validation.Length(6, 6)),
	)
}

type changePasswordRequest struct {
	NewPassword string `json:"newPassword"`
}

func (r changePasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.NewPassword, validation.Required, validation.Length(8, 72)),
	)
}
