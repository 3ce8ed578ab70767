package db

import (
	"context"
	"strings"
	"time"

	"github.com/heimaolst/shortlink/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LinkStats 某个用户全部链接的聚合结果
type LinkStats struct {
	Total  int64
	Active int64
	Clicks int64
	Recent []model.Link
	Top    []model.Link
}

// CreateLink 插入新链接，短码冲突时返回 ErrDuplicateKey
func (store *Store) CreateLink(ctx context.Context, link *model.Link) error {
	return translate(store.db.WithContext(ctx).Create(link).Error)
}

// GetLinkByCode 重定向查询，不区分所有者
func (store *Store) GetLinkByCode(ctx context.Context, code string) (*model.Link, error) {
	var link model.Link
	if err := store.db.WithContext(ctx).Where("short_code = ?", code).First(&link).Error; err != nil {
		return nil, translate(err)
	}
	return &link, nil
}

// GetLink 按 id 查询，id 存在但所有者不同也返回 ErrRecordNotFound
func (store *Store) GetLink(ctx context.Context, ownerID, id string) (*model.Link, error) {
	var link model.Link
	if err := store.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&link).Error; err != nil {
		return nil, translate(err)
	}
	return &link, nil
}

// IncrementClicks 原子地 clicks+1 并记录最后点击时间。
// 只有启用且在 at 时刻未过期的链接才会被计数，返回是否计数成功
func (store *Store) IncrementClicks(ctx context.Context, id string, at time.Time) (bool, error) {
	res := store.db.WithContext(ctx).
		Model(&model.Link{}).
		Where("id = ? AND is_active = ?", id, true).
		Where("expires_at IS NULL OR expires_at >= ?", at).
		UpdateColumns(map[string]any{
			"clicks":       gorm.Expr("clicks + ?", 1),
			"last_clicked": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListLinks 分页查询用户的链接，search 对标题、描述和原始链接做不区分大小写的子串匹配
func (store *Store) ListLinks(ctx context.Context, ownerID, search string, offset, limit int) ([]model.Link, int64, error) {
	query := func() *gorm.DB {
		q := store.db.WithContext(ctx).Model(&model.Link{}).Where("owner_id = ?", ownerID)
		if search != "" {
			pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
			q = q.Where(`search_text LIKE ? ESCAPE '\'`, pattern)
		}
		return q
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	links := make([]model.Link, 0, limit)
	if err := query().Order("created_at DESC").Offset(offset).Limit(limit).Find(&links).Error; err != nil {
		return nil, 0, err
	}
	return links, total, nil
}

// UpdateLink 只更新 fields 中出现的列，返回更新后的记录
func (store *Store) UpdateLink(ctx context.Context, ownerID, id string, fields map[string]any) (*model.Link, error) {
	var updated model.Link
	err := store.execTx(ctx, func(tx *gorm.DB) error {
		var current model.Link
		if err := tx.Where("id = ? AND owner_id = ?", id, ownerID).First(&current).Error; err != nil {
			return err
		}
		if len(fields) == 0 {
			updated = current
			return nil
		}

		title, description := current.Title, current.Description
		if v, ok := fields["title"].(string); ok {
			title = v
		}
		if v, ok := fields["description"].(string); ok {
			description = v
		}
		fields["search_text"] = model.SearchText(title, description, current.OriginalURL)

		if err := tx.Model(&model.Link{}).Where("id = ?", id).Updates(fields).Error; err != nil {
			return err
		}
		// 重新读到新的变量里，NULL 列不会覆盖已有的指针字段
		return tx.Where("id = ?", id).First(&updated).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &updated, nil
}

// DeleteLink 硬删除，返回被删除的记录以便调用方清理缓存
func (store *Store) DeleteLink(ctx context.Context, ownerID, id string) (*model.Link, error) {
	var link model.Link
	err := store.execTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND owner_id = ?", id, ownerID).First(&link).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Link{}, "id = ?", id).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &link, nil
}

// Stats 统计用户的链接，recent 和 top 各取 n 条
func (store *Store) Stats(ctx context.Context, ownerID string, n int) (*LinkStats, error) {
	var stats LinkStats
	owned := func() *gorm.DB {
		return store.db.WithContext(ctx).Model(&model.Link{}).Where("owner_id = ?", ownerID)
	}

	if err := owned().Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := owned().Where("is_active = ?", true).Count(&stats.Active).Error; err != nil {
		return nil, err
	}
	if err := owned().Select("COALESCE(SUM(clicks), 0)").Scan(&stats.Clicks).Error; err != nil {
		return nil, err
	}
	if err := owned().Order("created_at DESC").Limit(n).Find(&stats.Recent).Error; err != nil {
		return nil, err
	}
	if err := owned().Order("clicks DESC").Order("created_at DESC").Limit(n).Find(&stats.Top).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}

// AllLinks 导出全部链接
func (store *Store) AllLinks(ctx context.Context) ([]model.Link, error) {
	var links []model.Link
	if err := store.db.WithContext(ctx).Order("created_at ASC").Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}

// ImportLink 插入一条链接，id 或短码已存在时跳过并返回 false
func (store *Store) ImportLink(ctx context.Context, link *model.Link) (bool, error) {
	res := store.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(link)
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
