package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/cloudbox/pkg/internal/errs"
	"github.com/yeisme/cloudbox/pkg/internal/service"
	"github.com/yeisme/cloudbox/pkg/internal/types"
)

func TestSearch(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, 1<<20)
	other := e.user(t, 1<<20)
	files := service.NewFileService(e.ctx)

	report := e.upload(t, u.ID, nil, "Annual-Report.pdf", "r")
	tagged := e.upload(t, u.ID, nil, "scan.png", "s")
	e.upload(t, u.ID, nil, "100%_done.txt", "d")
	e.upload(t, other.ID, nil, "report-of-other.pdf", "o")
	e.folder(t, u.ID, "Reports", nil)

	_, err := files.UpdateMeta(e.ctx, u.ID, tagged.ID, types.UpdateMetaRequest{Tags: []string{"tax-report"}})
	require.NoError(t, err)

	gone := e.upload(t, u.ID, nil, "old report.txt", "g")
	require.NoError(t, files.Trash(e.ctx, u.ID, gone.ID))

	q := service.NewQueryService(e.ctx)

	res, err := q.Search(e.ctx, u.ID, "  REPORT ")
	require.NoError(t, err)
	assert.Equal(t, "REPORT", res.Query)

	ids := make([]string, 0, len(res.Files))
	for _, f := range res.Files {
		ids = append(ids, f.ID)
	}

	assert.ElementsMatch(t, []string{report.ID, tagged.ID}, ids)
	require.Len(t, res.Folders, 1)
	assert.Equal(t, "Reports", res.Folders[0].Name)

	// 通配符按字面匹配
	res, err = q.Search(e.ctx, u.ID, "0%_")
	require.NoError(t, err)
	assert.Len(t, res.Files, 1)

	res, err = q.Search(e.ctx, u.ID, "%")
	require.NoError(t, err)
	assert.Len(t, res.Files, 1)

	_, err = q.Search(e.ctx, u.ID, "   ")
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestSearchMatchesDecodedTags(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, 1<<20)
	files := service.NewFileService(e.ctx)

	qa := e.upload(t, u.ID, nil, "faq.md", "q")
	_, err := files.UpdateMeta(e.ctx, u.ID, qa.ID, types.UpdateMetaRequest{Tags: []string{"Q&A", "help"}})
	require.NoError(t, err)

	q := service.NewQueryService(e.ctx)

	res, err := q.Search(e.ctx, u.ID, "&")
	require.NoError(t, err)
	require.Len(t, res.Files, 1)
	assert.Equal(t, qa.ID, res.Files[0].ID)

	// JSON 的分隔符不参与匹配
	res, err = q.Search(e.ctx, u.ID, `","`)
	require.NoError(t, err)
	assert.Empty(t, res.Files)
}
