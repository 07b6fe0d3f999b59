package postgres

import (
	"context"
	"database/sql"

	"rentshare-backend/internal/domain"
	"rentshare-backend/internal/repository"
)

const profileColumns = `id, email, full_name, COALESCE(avatar_url, ''), COALESCE(phone, ''),
	COALESCE(stripe_account_id, ''), stripe_onboarding_complete, telegram_chat_id, COALESCE(push_token, ''),
	is_admin, created_at`

type profileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) repository.ProfileRepository {
	return &profileRepository{db: db}
}

func scanProfile(row rowScanner) (*domain.Profile, error) {
	p := &domain.Profile{}
	err := row.Scan(&p.ID, &p.Email, &p.FullName, &p.AvatarURL, &p.Phone,
		&p.StripeAccountID, &p.StripeOnboardingComplete, &p.TelegramChatID, &p.PushToken,
		&p.IsAdmin, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err, "profile")
	}
	return p, nil
}

func (r *profileRepository) GetByTelegramChat(ctx context.Context, chatID int64) (*domain.Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE telegram_chat_id = $1`, chatID))
	if err != nil {
		return nil, mapError(err, "profile")
	}
	return p, nil
}

func (r *profileRepository) SetStripeAccount(ctx context.Context, id, accountID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE profiles SET stripe_account_id = $2 WHERE id = $1`, id, accountID)
	if err != nil {
		return err
	}
	if ok, err := applied(res); err != nil || !ok {
		return mapError(orNoRows(err), "profile")
	}
	return nil
}

func (r *profileRepository) SetStripeOnboarding(ctx context.Context, accountID string, complete bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE profiles SET stripe_onboarding_complete = $2 WHERE stripe_account_id = $1`,
		accountID, complete)
	return err
}

// SetTelegramChat links or, with a nil chat id, unlinks a Telegram chat.
// A chat can belong to only one profile, so any previous owner is unlinked first.
func (r *profileRepository) SetTelegramChat(ctx context.Context, id string, chatID *int64) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if chatID != nil {
			if _, err := tx.ExecContext(ctx, `UPDATE profiles SET telegram_chat_id = NULL WHERE telegram_chat_id = $1 AND id <> $2`,
				*chatID, id); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx, `UPDATE profiles SET telegram_chat_id = $2 WHERE id = $1`, id, chatID)
		if err != nil {
			return err
		}
		if ok, err := applied(res); err != nil || !ok {
			return mapError(orNoRows(err), "profile")
		}
		return nil
	})
}
