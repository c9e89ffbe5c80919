//go:build !no_sqlite && !cgo

package db

import (
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/yeisme/cloudbox/pkg/configs"
)

// createSQLiteDialector 创建SQLite dialector.
func createSQLiteDialector(dsn string) gorm.Dialector {
	return sqlite.Open(dsn)
}

// 纯 Go 版本，不依赖 CGo.
func init() {
	RegisterDialectorFactory(createSQLiteDialector, configs.SQLite)
}
