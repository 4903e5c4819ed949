package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"dietitian-bot/internal/config"
	"dietitian-bot/internal/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(cfg config.DBConfig) (*PostgresStore, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode, cfg.MaxOpenConns,
	)

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DB connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.ConnLifetime
	poolConfig.MaxConnIdleTime = 15 * time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate creates the schema if it does not exist yet.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id    BIGINT PRIMARY KEY,
			chat_id    BIGINT NOT NULL DEFAULT 0,
			username   TEXT NOT NULL DEFAULT '',
			language   TEXT NOT NULL DEFAULT '',
			name       TEXT NOT NULL DEFAULT '',
			goal       TEXT NOT NULL DEFAULT '',
			weight_kg  INT NOT NULL DEFAULT 0,
			height_cm  INT NOT NULL DEFAULT 0,
			age        INT NOT NULL DEFAULT 0,
			activity   TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS subscriptions (
			user_id          BIGINT PRIMARY KEY,
			plan             TEXT NOT NULL,
			expires_at       TIMESTAMPTZ NOT NULL,
			customer_ref     TEXT NOT NULL DEFAULT '',
			subscription_ref TEXT NOT NULL DEFAULT '',
			updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS daily_usage (
			user_id     BIGINT NOT NULL,
			usage_date  DATE NOT NULL,
			photo_count INT NOT NULL DEFAULT 0,
			PRIMARY KEY (user_id, usage_date)
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id         BIGSERIAL PRIMARY KEY,
			user_id    BIGINT NOT NULL,
			role       TEXT NOT NULL,
			content    TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_user_id ON messages(user_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) EnsureUser(ctx context.Context, telegramID, chatID int64, username string) error {
	query := `
        INSERT INTO users (user_id, chat_id, username)
        VALUES ($1, $2, $3)
        ON CONFLICT (user_id) DO UPDATE
        SET chat_id = $2, username = $3, updated_at = NOW()
    `
	_, err := s.pool.Exec(ctx, query, telegramID, chatID, username)
	return err
}

func (s *PostgresStore) GetProfile(ctx context.Context, telegramID int64) (*models.UserProfile, error) {
	query := `
        SELECT user_id, chat_id, username, language, name, goal,
               weight_kg, height_cm, age, activity, created_at, updated_at
        FROM users
        WHERE user_id = $1
    `

	var p models.UserProfile
	err := s.pool.QueryRow(ctx, query, telegramID).Scan(
		&p.TelegramID, &p.ChatID, &p.Username, &p.Language, &p.Name, &p.Goal,
		&p.WeightKg, &p.HeightCm, &p.Age, &p.Activity, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &p, nil
}

// profileColumns whitelists the columns SetProfileField may touch;
// the column name is interpolated into the statement.
var profileColumns = map[string]bool{
	"language":  true,
	"name":      true,
	"goal":      true,
	"weight_kg": true,
	"height_cm": true,
	"age":       true,
	"activity":  true,
}

func (s *PostgresStore) SetProfileField(ctx context.Context, telegramID int64, column string, value interface{}) error {
	if !profileColumns[column] {
		return fmt.Errorf("unknown profile column %q", column)
	}
	query := fmt.Sprintf(`
        INSERT INTO users (user_id, %s)
        VALUES ($1, $2)
        ON CONFLICT (user_id) DO UPDATE
        SET %s = $2, updated_at = NOW()
    `, column, column)

	_, err := s.pool.Exec(ctx, query, telegramID, value)
	return err
}

func (s *PostgresStore) ResetProfile(ctx context.Context, telegramID int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin reset: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM users WHERE user_id = $1`, telegramID); err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM messages WHERE user_id = $1`, telegramID); err != nil {
		return fmt.Errorf("failed to delete history: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) GetSubscription(ctx context.Context, telegramID int64) (*models.SubscriptionRecord, error) {
	query := `
        SELECT user_id, plan, expires_at, customer_ref, subscription_ref, updated_at
        FROM subscriptions
        WHERE user_id = $1
    `

	var rec models.SubscriptionRecord
	err := s.pool.QueryRow(ctx, query, telegramID).Scan(
		&rec.TelegramID, &rec.Plan, &rec.ExpiresAt,
		&rec.CustomerRef, &rec.SubscriptionRef, &rec.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return &rec, nil
}

func (s *PostgresStore) GetSubscriptionByRef(ctx context.Context, subscriptionRef string) (*models.SubscriptionRecord, error) {
	query := `
        SELECT user_id, plan, expires_at, customer_ref, subscription_ref, updated_at
        FROM subscriptions
        WHERE subscription_ref = $1
    `

	var rec models.SubscriptionRecord
	err := s.pool.QueryRow(ctx, query, subscriptionRef).Scan(
		&rec.TelegramID, &rec.Plan, &rec.ExpiresAt,
		&rec.CustomerRef, &rec.SubscriptionRef, &rec.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription by ref: %w", err)
	}
	return &rec, nil
}

func (s *PostgresStore) PutSubscription(ctx context.Context, rec *models.SubscriptionRecord) error {
	query := `
        INSERT INTO subscriptions (user_id, plan, expires_at, customer_ref, subscription_ref)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (user_id) DO UPDATE
        SET plan = $2, expires_at = $3, customer_ref = $4,
            subscription_ref = $5, updated_at = NOW()
    `
	_, err := s.pool.Exec(ctx, query,
		rec.TelegramID, rec.Plan, rec.ExpiresAt, rec.CustomerRef, rec.SubscriptionRef,
	)
	return err
}

func (s *PostgresStore) GetDailyUsage(ctx context.Context, telegramID int64, date string) (int, error) {
	query := `
        SELECT photo_count FROM daily_usage
        WHERE user_id = $1 AND usage_date = $2
    `

	var count int
	err := s.pool.QueryRow(ctx, query, telegramID, date).Scan(&count)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get daily usage: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) IncrementPhotoCount(ctx context.Context, telegramID int64, date string) error {
	query := `
        INSERT INTO daily_usage (user_id, usage_date, photo_count)
        VALUES ($1, $2, 1)
        ON CONFLICT (user_id, usage_date) DO UPDATE
        SET photo_count = daily_usage.photo_count + 1
    `
	_, err := s.pool.Exec(ctx, query, telegramID, date)
	return err
}

func (s *PostgresStore) AppendMessage(ctx context.Context, telegramID int64, role, content string) error {
	query := `INSERT INTO messages (user_id, role, content) VALUES ($1, $2, $3)`
	_, err := s.pool.Exec(ctx, query, telegramID, role, content)
	return err
}

func (s *PostgresStore) RecentMessages(ctx context.Context, telegramID int64, limit int) ([]models.HistoryEntry, error) {
	query := `
        SELECT role, content
        FROM messages
        WHERE user_id = $1
        ORDER BY id DESC
        LIMIT $2
    `

	rows, err := s.pool.Query(ctx, query, telegramID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	defer rows.Close()

	var entries []models.HistoryEntry
	for rows.Next() {
		var e models.HistoryEntry
		if err := rows.Scan(&e.Role, &e.Content); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	// Oldest first, as the model expects.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}
