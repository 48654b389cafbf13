// Package models содержит доменные структуры приложения: пользователя с его
// платёжным состоянием, списки задач, задачи и записи аудита биллинга.
// Структуры используются в бизнес-логике и при работе с хранилищем.
package models

import "time"

// Tier — уровень доступа пользователя.
type Tier string

const (
	// TierFree — бесплатный уровень с ограничением на количество задач.
	TierFree Tier = "free"
	// TierPremium — оплаченный уровень без ограничений.
	TierPremium Tier = "premium"
)

// SubscriptionState — состояние подписки пользователя, которым управляет
// обработчик вебхуков платёжного провайдера.
type SubscriptionState string

const (
	StateFree              SubscriptionState = "free"
	StatePendingActivation SubscriptionState = "pending_activation"
	StatePremiumActive     SubscriptionState = "premium_active"
	StatePremiumCanceling  SubscriptionState = "premium_canceling"
)

// TierFor возвращает уровень доступа, соответствующий состоянию подписки.
func (s SubscriptionState) TierFor() Tier {
	switch s {
	case StatePremiumActive, StatePremiumCanceling:
		return TierPremium
	default:
		return TierFree
	}
}

// User представляет зарегистрированного пользователя системы.
type User struct {
	UID                   string            `json:"uid"`
	Email                 string            `json:"email"`
	Username              string            `json:"username"`
	PasswordHash          string            `json:"-"`
	IsActive              bool              `json:"is_active"`
	SubscriptionTier      Tier              `json:"subscription_tier"`
	SubscriptionStatus    string            `json:"subscription_status"`
	SubscriptionState     SubscriptionState `json:"subscription_state"`
	BillingCustomerID     string            `json:"-"` // Идентификатор клиента у провайдера
	BillingSubscriptionID string            `json:"-"` // Идентификатор подписки у провайдера
	CurrentPeriodEnd      *time.Time        `json:"current_period_end,omitempty"`
	FailedPaymentCount    int               `json:"-"`
	PasswordChangedAt     *time.Time        `json:"-"`
	CreatedAt             time.Time         `json:"created_at"`
	UpdatedAt             time.Time         `json:"updated_at"`
}

// IsPremium сообщает, есть ли у пользователя оплаченный доступ.
func (u *User) IsPremium() bool {
	return u.SubscriptionTier == TierPremium
}

// UserPatch описывает частичное обновление профиля. nil-поля не изменяются.
type UserPatch struct {
	Email    *string
	Username *string
}

// RegisterRequest данные для регистрации пользователя.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest учётные данные для входа.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ProfileRequest частичное обновление профиля.
type ProfileRequest struct {
	Email    *string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Username *string `json:"username,omitempty" validate:"omitempty,min=3,max=50"`
}

// ChangePasswordRequest смена пароля с подтверждением текущего.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

// Session выданный при входе токен доступа.
type Session struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	User        *User  `json:"user"`
}
