package database

import (
	"gorm.io/gorm"

	apperrors "github.com/wfunc/harvest-slot/internal/errors"
	"github.com/wfunc/harvest-slot/internal/models"
)

// migrationModels 需要迁移的模型
var migrationModels = []interface{}{
	&models.RoundRecord{},
	&models.LedgerEntry{},
	&models.GameState{},
}

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return apperrors.New(apperrors.ErrDatabaseConnect, "数据库未初始化")
	}

	for _, model := range migrationModels {
		if err := db.AutoMigrate(model); err != nil {
			return apperrors.Wrapf(err, apperrors.ErrDatabaseQuery, "迁移 %T 失败", model)
		}
	}
	return nil
}
