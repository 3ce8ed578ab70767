package db

import (
	"context"

	"github.com/heimaolst/shortlink/internal/model"
	"gorm.io/gorm"
)

// CreateAccount 用户名或邮箱重复时返回 ErrDuplicateKey
func (store *Store) CreateAccount(ctx context.Context, account *model.Account) error {
	return translate(store.db.WithContext(ctx).Create(account).Error)
}

func (store *Store) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	var account model.Account
	if err := store.db.WithContext(ctx).Where("id = ?", id).First(&account).Error; err != nil {
		return nil, translate(err)
	}
	return &account, nil
}

func (store *Store) GetAccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	var account model.Account
	if err := store.db.WithContext(ctx).Where("username = ?", username).First(&account).Error; err != nil {
		return nil, translate(err)
	}
	return &account, nil
}

// UpdateAccount 只更新 fields 中出现的列
func (store *Store) UpdateAccount(ctx context.Context, id string, fields map[string]any) (*model.Account, error) {
	var account model.Account
	err := store.execTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&account).Error; err != nil {
			return err
		}
		if len(fields) == 0 {
			return nil
		}
		if err := tx.Model(&account).Updates(fields).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).First(&account).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &account, nil
}

// DeleteAccount 在一个事务里删除用户及其全部链接，返回被删除链接的短码
func (store *Store) DeleteAccount(ctx context.Context, id string) ([]string, error) {
	var codes []string
	err := store.execTx(ctx, func(tx *gorm.DB) error {
		var account model.Account
		if err := tx.Where("id = ?", id).First(&account).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Link{}).Where("owner_id = ?", id).Pluck("short_code", &codes).Error; err != nil {
			return err
		}
		if err := tx.Where("owner_id = ?", id).Delete(&model.Link{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Account{}, "id = ?", id).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return codes, nil
}
