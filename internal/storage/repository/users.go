package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sitematcher/access-service/internal/models"
)

// userColumns — список колонок users, читаемых во всех выборках.
const userColumns = `uid, email, username, password_hash, role, subscription_status,
		      trial_start_date, trial_end_date, payment_method_added, trial_will_convert,
		      provider_customer_id, provider_subscription_id,
		      current_session_id, last_session_change, created_at`

// RegisterUser сохраняет нового пользователя в базу данных и возвращает его UID.
func (s *Storage) RegisterUser(ctx context.Context, user models.User) (string, error) {
	const op = "storage.RegisterUser"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newUID string
	query := `INSERT INTO users (uid, email, username, password_hash, role, subscription_status)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING uid;`
	if err := s.DB.QueryRowContext(ctx, query,
		user.UID, user.Email, user.Username, user.PasswordHash, user.Role,
		string(user.SubscriptionStatus)).Scan(&newUID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newUID, nil
}

// GetUserByUsername возвращает пользователя по его username.
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "storage.GetUserByUsername"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + `
			  FROM users
			  WHERE username = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, username))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUser возвращает пользователя по его UID.
func (s *Storage) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	const op = "storage.GetUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + `
			  FROM users
			  WHERE uid = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, userUID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// UpdateSessionID записывает новый токен текущей сессии пользователя,
// перезаписывая прежний. Возвращает количество обновлённых строк.
func (s *Storage) UpdateSessionID(ctx context.Context, userUID, sessionID string, changedAt time.Time) (int64, error) {
	const op = "storage.UpdateSessionID"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET current_session_id = $1,
			      last_session_change = $2
			  WHERE uid = $3`
	res, err := s.DB.ExecContext(ctx, query, sessionID, changedAt, userUID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return affected, nil
}

// ClearSessionID сбрасывает токен текущей сессии в NULL ("выйти везде").
// Возвращает количество обновлённых строк.
func (s *Storage) ClearSessionID(ctx context.Context, userUID string, changedAt time.Time) (int64, error) {
	const op = "storage.ClearSessionID"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET current_session_id = NULL,
			      last_session_change = $1
			  WHERE uid = $2`
	res, err := s.DB.ExecContext(ctx, query, changedAt, userUID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return affected, nil
}

// UpdateSubscription применяет частичное обновление полей подписки.
// Обновляются только заполненные поля patch. Возвращает количество
// обновлённых строк; 0 означает, что пользователь не найден.
func (s *Storage) UpdateSubscription(ctx context.Context, userUID string, patch models.SubscriptionPatch) (int64, error) {
	const op = "storage.UpdateSubscription"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var sets []string
	var args []any
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Status != nil {
		add("subscription_status", string(*patch.Status))
	}
	if patch.TrialStartDate != nil {
		add("trial_start_date", *patch.TrialStartDate)
	}
	if patch.TrialEndDate != nil {
		add("trial_end_date", *patch.TrialEndDate)
	}
	if patch.PaymentMethodAdded != nil {
		add("payment_method_added", *patch.PaymentMethodAdded)
	}
	if patch.TrialWillConvert != nil {
		add("trial_will_convert", *patch.TrialWillConvert)
	}
	if patch.ProviderCustomerID != nil {
		add("provider_customer_id", *patch.ProviderCustomerID)
	}
	if patch.ProviderSubscriptionID != nil {
		add("provider_subscription_id", *patch.ProviderSubscriptionID)
	}
	if len(sets) == 0 {
		return 0, fmt.Errorf("%s: empty patch", op)
	}

	args = append(args, userUID)
	query := fmt.Sprintf(`UPDATE users SET %s WHERE uid = $%d`,
		strings.Join(sets, ", "), len(args))
	res, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return affected, nil
}

// FindExpiredTrials находит пользователей в статусе trialing, у которых
// пробный период уже закончился к моменту now.
func (s *Storage) FindExpiredTrials(ctx context.Context, now time.Time, limit int) ([]*models.User, error) {
	const op = "storage.FindExpiredTrials"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + `
			  FROM users
			  WHERE subscription_status = 'trialing'
			    AND trial_end_date IS NOT NULL
			    AND trial_end_date < $1
			  ORDER BY trial_end_date
			  LIMIT $2`
	rows, err := s.DB.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// rowScanner объединяет *sql.Row и *sql.Rows для scanUser.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	var rawStatus string
	var trialStart, trialEnd, lastSessionChange sql.NullTime
	var providerCustomerID, providerSubscriptionID, currentSessionID sql.NullString

	if err := row.Scan(&u.UID, &u.Email, &u.Username, &u.PasswordHash, &u.Role,
		&rawStatus, &trialStart, &trialEnd, &u.PaymentMethodAdded, &u.TrialWillConvert,
		&providerCustomerID, &providerSubscriptionID,
		&currentSessionID, &lastSessionChange, &u.CreatedAt); err != nil {
		return nil, err
	}

	u.SubscriptionStatus = models.ParseStatus(rawStatus)
	if trialStart.Valid {
		u.TrialStartDate = &trialStart.Time
	}
	if trialEnd.Valid {
		u.TrialEndDate = &trialEnd.Time
	}
	if providerCustomerID.Valid {
		u.ProviderCustomerID = &providerCustomerID.String
	}
	if providerSubscriptionID.Valid {
		u.ProviderSubscriptionID = &providerSubscriptionID.String
	}
	if currentSessionID.Valid {
		u.CurrentSessionID = &currentSessionID.String
	}
	if lastSessionChange.Valid {
		u.LastSessionChange = &lastSessionChange.Time
	}
	return u, nil
}
