package router_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/cloudbox/pkg/internal/errs"
	"github.com/yeisme/cloudbox/pkg/internal/model"
	"github.com/yeisme/cloudbox/pkg/internal/router"
	"github.com/yeisme/cloudbox/pkg/internal/storage"
	"github.com/yeisme/cloudbox/pkg/internal/storage/storagetest"
	"github.com/yeisme/cloudbox/pkg/internal/types"
)

type server struct {
	t   *testing.T
	mgr *storage.Manager
	e   *gin.Engine
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mgr, _ := storagetest.NewManager(t, storagetest.Config())

	return &server{t: t, mgr: mgr, e: router.Setup(gin.New(), mgr, nil)}
}

func (s *server) do(method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	s.t.Helper()

	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.e.ServeHTTP(w, req)

	return w
}

func (s *server) json(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.t, err)

		r = bytes.NewReader(b)
	}

	return s.do(method, path, token, r, "application/json")
}

func (s *server) register(email string) types.AuthResponse {
	s.t.Helper()

	w := s.json(http.MethodPost, "/api/auth/register", "", types.RegisterRequest{
		Name: "user", Email: email, Password: "secret1",
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())

	var resp types.AuthResponse
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &resp))

	return resp
}

func (s *server) upload(token, name, content string) model.File {
	s.t.Helper()

	var buf bytes.Buffer

	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("files", name)
	require.NoError(s.t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(s.t, err)
	require.NoError(s.t, mw.Close())

	w := s.do(http.MethodPost, "/api/files/upload", token, &buf, mw.FormDataContentType())
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())

	var resp types.UploadResponse
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(s.t, resp.Files, 1)

	return resp.Files[0]
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) errs.Code {
	t.Helper()

	var body struct {
		Code errs.Code `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	return body.Code
}

func TestAuthRequired(t *testing.T) {
	s := newServer(t)

	w := s.do(http.MethodGet, "/api/files", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, errs.CodeUnauthorized, errorCode(t, w))

	w = s.do(http.MethodGet, "/api/files", "not-a-jwt", nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	// 健康检查不要求令牌
	w = s.do(http.MethodGet, "/api/health/db", "", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/health/nope", "", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRegisterLoginProfile(t *testing.T) {
	s := newServer(t)
	reg := s.register("ann@example.com")

	w := s.json(http.MethodPost, "/api/auth/register", "", types.RegisterRequest{
		Name: "again", Email: "ann@example.com", Password: "secret1",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.json(http.MethodPost, "/api/auth/login", "", types.LoginRequest{Email: "ann@example.com", Password: "nope!!"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.json(http.MethodPost, "/api/auth/login", "", types.LoginRequest{Email: "ann@example.com", Password: "secret1"})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/user/profile", reg.Token, nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var p types.UserSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, reg.User.ID, p.ID)

	w = s.json(http.MethodPost, "/api/auth/register", "", map[string]string{"name": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, errs.CodeValidation, errorCode(t, w))
}

func TestUploadDownloadAndTrash(t *testing.T) {
	s := newServer(t)
	tok := s.register("bob@example.com").Token

	f := s.upload(tok, "my report.txt", "hello")

	w := s.do(http.MethodGet, "/api/files", tok, nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var list types.ListFilesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Files, 1)

	w = s.do(http.MethodGet, "/api/files/"+f.ID+"/download", tok, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello", w.Body.String())
	assert.Equal(t, "attachment; filename*=UTF-8''my%20report.txt", w.Header().Get("Content-Disposition"))

	w = s.do(http.MethodGet, "/api/files/"+f.ID+"/preview", tok, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Disposition"), "inline;"))
	assert.Equal(t, "public, max-age=86400", w.Header().Get("Cache-Control"))

	w = s.do(http.MethodDelete, "/api/files/"+f.ID, tok, nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/trash", tok, nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var trash types.TrashListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &trash))
	require.Len(t, trash.Files, 1)

	w = s.do(http.MethodPost, "/api/trash/files/"+f.ID+"/restore", tok, nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	// 其他用户看不到该文件
	other := s.register("eve@example.com").Token
	w = s.do(http.MethodGet, "/api/files/"+f.ID+"/download", other, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSharePageLifecycle(t *testing.T) {
	s := newServer(t)
	tok := s.register("cat@example.com").Token
	f := s.upload(tok, "photo.png", "PNG")

	w := s.do(http.MethodPost, "/api/files/"+f.ID+"/share", tok, nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var share types.ShareResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &share))
	assert.True(t, strings.HasSuffix(share.ShareURL, "/share/"+share.ShareToken))

	w = s.do(http.MethodGet, "/share/"+share.ShareToken, "", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "photo.png")

	w = s.do(http.MethodGet, "/api/shared/"+share.ShareToken+"/download", "", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "PNG", w.Body.String())

	w = s.do(http.MethodGet, "/api/shared", tok, nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodDelete, "/api/files/"+f.ID+"/share", tok, nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/share/"+share.ShareToken, "", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/api/shared/"+share.ShareToken+"/download", "", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	var accessed model.Share
	require.NoError(t, s.mgr.DB.Where("share_token = ?", share.ShareToken).First(&accessed).Error)
	assert.Equal(t, int64(2), accessed.AccessCount)
}

func TestFolderRoutes(t *testing.T) {
	s := newServer(t)
	tok := s.register("dan@example.com").Token

	w := s.json(http.MethodPost, "/api/folders", tok, types.CreateFolderRequest{Name: "docs"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var dir model.Folder
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dir))

	w = s.json(http.MethodPost, "/api/folders/"+dir.ID+"/rename", tok, types.RenameRequest{NewName: "papers"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/api/folders/all", tok, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "papers")

	w = s.do(http.MethodDelete, "/api/folders/"+dir.ID, tok, nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodDelete, "/api/trash", tok, nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var res types.EmptyTrashResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 1, res.PurgedFolders)
}

func TestAdminRoutesRequireRole(t *testing.T) {
	s := newServer(t)
	reg := s.register("root@example.com")

	w := s.do(http.MethodGet, "/api/admin/scheduler/jobs", reg.Token, nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	require.NoError(t, s.mgr.DB.Model(&model.User{}).Where("id = ?", reg.User.ID).
		Update("role", model.RoleAdmin).Error)

	w = s.do(http.MethodGet, "/api/admin/scheduler/jobs", reg.Token, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"jobs":[]}`, w.Body.String())

	w = s.do(http.MethodPost, "/api/admin/scheduler/jobs/trash.retention/run", reg.Token, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodPost, "/api/admin/usage/repair", reg.Token, nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out types.RepairUsageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Zero(t, out.Drifted)
}
