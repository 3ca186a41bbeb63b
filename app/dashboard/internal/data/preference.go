package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/repo"
)

const preferenceTable = "report_preferences"

type preferenceRepo struct {
	data *Data
	log  *log.Helper
	now  func() time.Time
}

// NewPreferenceRepo 未配置数据库时所有操作都是空操作
func NewPreferenceRepo(data *Data, logger log.Logger) repo.PreferenceRepo {
	return &preferenceRepo{
		data: data,
		log:  log.NewHelper(logger),
		now:  time.Now,
	}
}

func (r *preferenceRepo) enabled() bool {
	return r.data != nil && r.data.db != nil
}

func (r *preferenceRepo) GetReportEmail(ctx context.Context, userID string) (string, error) {
	if !r.enabled() || userID == "" {
		return "", nil
	}

	query, args, err := r.data.builder.
		Select("email").
		From(preferenceTable).
		Where("user_id = ?", userID).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build select: %w", err)
	}

	var email string
	err = r.data.db.QueryRowContext(ctx, query, args...).Scan(&email)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query report email: %w", err)
	}
	return email, nil
}

func (r *preferenceRepo) SaveReportEmail(ctx context.Context, userID, email string) error {
	if !r.enabled() || userID == "" {
		return nil
	}

	query, args, err := r.data.builder.
		Insert(preferenceTable).
		Columns("user_id", "email", "updated_at").
		Values(userID, email, r.now().UTC()).
		Suffix("ON CONFLICT (user_id) DO UPDATE SET email = EXCLUDED.email, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := r.data.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert report email: %w", err)
	}
	r.log.Debugf("saved report email for user %s", userID)
	return nil
}

func (r *preferenceRepo) DeleteReportEmail(ctx context.Context, userID string) error {
	if !r.enabled() || userID == "" {
		return nil
	}

	query, args, err := r.data.builder.
		Delete(preferenceTable).
		Where("user_id = ?", userID).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := r.data.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete report email: %w", err)
	}
	return nil
}
