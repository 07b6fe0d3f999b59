package domain

import "time"

type Profile struct {
	ID                       string    `json:"id"`
	Email                    string    `json:"email"`
	FullName                 string    `json:"full_name"`
	AvatarURL                string    `json:"avatar_url,omitempty"`
	Phone                    string    `json:"phone,omitempty"`
	StripeAccountID          string    `json:"-"`
	StripeOnboardingComplete bool      `json:"stripe_onboarding_complete"`
	TelegramChatID           *int64    `json:"-"`
	PushToken                string    `json:"-"`
	IsAdmin                  bool      `json:"is_admin"`
	CreatedAt                time.Time `json:"created_at"`
}

func (p *Profile) DisplayName() string {
	if p.FullName != "" {
		return p.FullName
	}
	return p.Email
}
