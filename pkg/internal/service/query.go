package service

import (
	"context"
	"strings"

	"github.com/yeisme/cloudbox/pkg/internal/errs"
	"github.com/yeisme/cloudbox/pkg/internal/model"
	"github.com/yeisme/cloudbox/pkg/internal/types"
)

// maxQueryLen 搜索词长度上限.
const maxQueryLen = 255

// QueryService 搜索与收藏，只读元数据.
type QueryService struct{ *base }

func NewQueryService(c context.Context) *QueryService { return &QueryService{fromContext(c)} }

// Search 对文件名、描述、标签与文件夹名做不区分大小写的子串匹配.
func (s *QueryService) Search(ctx context.Context, userID, q string) (*types.SearchResponse, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	q = strings.TrimSpace(q)
	if q == "" {
		return nil, errs.Validation("search query is required")
	}

	if len(q) > maxQueryLen {
		return nil, errs.Validation("search query is too long")
	}

	pattern := "%" + model.EscapeLike(strings.ToLower(q)) + "%"
	db := s.db.WithContext(ctx)
	resp := &types.SearchResponse{Query: q, Files: []model.File{}, Folders: []model.Folder{}}

	// 标签以 JSON 保存，SQL 只做预筛，带标签的文件在解码后再匹配
	var candidates []model.File
	if err := db.Where("user_id = ? AND is_deleted = ?", userID, false).
		Where("LOWER(original_name) LIKE ? ESCAPE '!' OR LOWER(description) LIKE ? ESCAPE '!' OR (tags IS NOT NULL AND tags NOT IN ?)",
			pattern, pattern, []string{"", "[]", "null"}).
		Order("created_at DESC").Find(&candidates).Error; err != nil {
		return nil, err
	}

	needle := strings.ToLower(q)
	for _, f := range candidates {
		if fileMatches(&f, needle) {
			resp.Files = append(resp.Files, f)
		}
	}

	if err := db.Where("user_id = ? AND is_deleted = ?", userID, false).
		Where("LOWER(name) LIKE ? ESCAPE '!'", pattern).
		Order("name ASC").Find(&resp.Folders).Error; err != nil {
		return nil, err
	}

	return resp, nil
}

// fileMatches needle 已转为小写.
func fileMatches(f *model.File, needle string) bool {
	if strings.Contains(strings.ToLower(f.OriginalName), needle) ||
		strings.Contains(strings.ToLower(f.Description), needle) {
		return true
	}

	for _, t := range f.Tags {
		if strings.Contains(strings.ToLower(t), needle) {
			return true
		}
	}

	return false
}

// Favorites 收藏的未删除文件，按更新时间倒序.
func (s *QueryService) Favorites(ctx context.Context, userID string) ([]model.File, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	files := []model.File{}
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_favorite = ? AND is_deleted = ?", userID, true, false).
		Order("updated_at DESC").Find(&files).Error; err != nil {
		return nil, err
	}

	return files, nil
}
