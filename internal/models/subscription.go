package models

import "time"

// Usage — снимок данных, по которым принимается решение о квоте.
type Usage struct {
	Tier      Tier
	TodoCount int
}

// SubscriptionStatus — ответ на запрос статуса подписки пользователя.
type SubscriptionStatus struct {
	SubscriptionTier   Tier              `json:"subscription_tier"`
	SubscriptionStatus string            `json:"subscription_status"`
	SubscriptionState  SubscriptionState `json:"subscription_state"`
	TodoCount          int               `json:"todo_count"`
	TodoLimit          int               `json:"todo_limit"`
	CanCreateTodos     bool              `json:"can_create_todos"`
	CurrentPeriodEnd   *time.Time        `json:"current_period_end,omitempty"`
}

// CheckoutRequest — данные для создания сессии оплаты у провайдера.
type CheckoutRequest struct {
	CustomerID string
	PriceID    string
	UserUID    string
	SuccessURL string
	CancelURL  string
}

// CheckoutSession — созданная у провайдера сессия оплаты.
type CheckoutSession struct {
	SessionID  string `json:"session_id"`
	SessionURL string `json:"session_url"`
}

// Cancellation — результат запроса на отмену подписки в конце периода.
type Cancellation struct {
	SubscriptionID string     `json:"subscription_id"`
	CancelAt       *time.Time `json:"cancel_at,omitempty"`
}

// CheckoutOptions — необязательные адреса возврата после оплаты.
// Пустые значения заменяются адресами по умолчанию из конфигурации.
type CheckoutOptions struct {
	SuccessURL string `json:"success_url,omitempty" validate:"omitempty,url"`
	CancelURL  string `json:"cancel_url,omitempty" validate:"omitempty,url"`
}

// PortalLink — ссылка на портал управления подпиской у провайдера.
type PortalLink struct {
	PortalURL string `json:"portal_url"`
}

// WebhookAck — ответ провайдеру на доставку события.
type WebhookAck struct {
	Received bool         `json:"received"`
	Outcome  EventOutcome `json:"outcome,omitempty"`
}
