// Package model 定义元数据库中的 GORM 模型.
// 所有主键均为 ULID 字符串，在创建前生成.
package model

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid"
	"gorm.io/gorm"
)

// NewID 生成按时间排序的 ULID.
func NewID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

// ensureID 在主键为空时补齐.
func ensureID(id *string) {
	if *id == "" {
		*id = NewID()
	}
}

// All 返回需要迁移的全部模型.
func All() []any {
	return []any{&User{}, &Folder{}, &File{}, &Share{}, &ActivityLog{}}
}

// AutoMigrate 创建或更新表结构.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(All()...)
}

// EscapeLike 转义 LIKE 模式中的通配符，配合 ESCAPE '!' 使用.
func EscapeLike(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

	return r.Replace(s)
}
