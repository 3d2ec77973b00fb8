package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	tagruledomain "github.com/studiobill/studiobill/internal/tagrule/domain"
	"github.com/studiobill/studiobill/pkg/db/option"
	"github.com/studiobill/studiobill/pkg/repository"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() tagruledomain.Repository {
	return &repo{}
}

func (r *repo) store(db *gorm.DB) repository.Repository[tagruledomain.TagRule] {
	return repository.ProvideStore[tagruledomain.TagRule](db)
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, rule *tagruledomain.TagRule) error {
	return r.store(db).Create(ctx, rule)
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("owner_id = ? AND id = ?", ownerID, id).
		Delete(&tagruledomain.TagRule{}).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]tagruledomain.TagRule, error) {
	rows, err := r.store(db).Find(ctx,
		&tagruledomain.TagRule{OwnerID: ownerID},
		option.WithSortBy(option.QuerySortBy{Field: "created_at"}),
	)
	if err != nil {
		return nil, err
	}

	rules := make([]tagruledomain.TagRule, 0, len(rows))
	for _, row := range rows {
		rules = append(rules, *row)
	}
	return rules, nil
}
