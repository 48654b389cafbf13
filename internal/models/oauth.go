package models

// OAuthProfile — профиль пользователя, полученный от OAuth-провайдера.
type OAuthProfile struct {
	Provider       string
	ProviderUserID string
	Email          string
	EmailVerified  bool
	Name           string
	Picture        string
}

// OAuthLogin — адрес страницы согласия провайдера и state, который
// клиент должен вернуть в обратном вызове.
type OAuthLogin struct {
	AuthURL string
	State   string
}
