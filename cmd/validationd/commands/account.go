package commands

import (
	"context"
	"strings"

	"katydid-async-validation/pkg/validation/core"
)

// 字段标识
const (
	FieldUsername        core.FieldKey = "Username"
	FieldEmail           core.FieldKey = "Email"
	FieldPassword        core.FieldKey = "Password"
	FieldConfirmPassword core.FieldKey = "ConfirmPassword"
	FieldAge             core.FieldKey = "Age"
	FieldCountry         core.FieldKey = "Country"
)

// Account 服务托管的账户表单
type Account struct {
	Username        string `json:"username" validate:"required,alphanum,min=3,max=32"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" validate:"eqfield=Password"`
	Age             int    `json:"age" validate:"gte=13,lte=130"`
	Country         string `json:"country" validate:"omitempty,len=2"`
}

// ValidateObject 账户级业务规则：密码不能包含用户名
func (a *Account) ValidateObject(context.Context) []core.Failure {
	if a.Username != "" && strings.Contains(strings.ToLower(a.Password), strings.ToLower(a.Username)) {
		return []core.Failure{core.NewFailure("password must not contain the username", FieldPassword, FieldUsername)}
	}
	return nil
}
