package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"anoa.com/campusfix/internal/entity"
	"anoa.com/campusfix/internal/middleware"
	issue "anoa.com/campusfix/internal/modules/issue/service"
	upvote "anoa.com/campusfix/internal/modules/upvote/service"
	userService "anoa.com/campusfix/internal/modules/user/service"
	"anoa.com/campusfix/internal/testutil"
	commonDto "anoa.com/campusfix/pkg/dto"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "handler-secret"

type testEnv struct {
	router *gin.Engine
	users  *testutil.UserRepo
	issues *testutil.IssueRepo
	cse    entity.Department
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	departments := testutil.NewDepartmentRepo()
	env := &testEnv{
		users:  testutil.NewUserRepo(),
		issues: testutil.NewIssueRepo(departments),
		cse:    departments.Add("Computer Science", "CSE"),
	}

	upvoteSvc := upvote.NewUpvoteService(testutil.NewUpvoteRepo(), env.issues, rdb, time.Minute)
	svc := issue.NewService(env.issues, departments, upvoteSvc, testutil.NewImageStorage(), rdb, &testutil.Notifier{}, nil,
		issue.Options{SubmitCooldown: time.Minute})
	h := NewIssueHandler(svc)

	auth := middleware.NewAuthMiddleware(userService.NewRoleService(env.users), testSecret)

	r := gin.New()
	api := r.Group("/api", auth.RequireAuth())
	api.GET("/issues", h.GetFeed)
	api.POST("/issues", h.SubmitIssue)
	api.GET("/issues/search", h.SearchIssues)
	api.GET("/issues/:issue_id", h.GetIssue)
	api.PATCH("/issues/:issue_id/status", h.UpdateStatus)
	api.DELETE("/issues/:issue_id", h.DeleteIssue)
	api.GET("/dashboard/hod", auth.RequireRole(entity.RoleHod), h.HodDashboard)
	api.GET("/dashboard/export", auth.RequireRole(entity.RoleHod, entity.RolePrincipal), h.ExportIssues)
	env.router = r
	return env
}

func (e *testEnv) do(t *testing.T, req *http.Request, user uuid.UUID) *httptest.ResponseRecorder {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   user.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+signed)

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func submitForm(t *testing.T, fields map[string]string, photoName string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if photoName != "" {
		part, err := w.CreateFormFile("photo", photoName)
		require.NoError(t, err)
		_, err = part.Write([]byte("fake image bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/issues", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestSubmitIssueEndpoint(t *testing.T) {
	env := setup(t)
	student := env.users.AddUser("Student", nil, entity.RoleStudent)

	fields := map[string]string{
		"department_id": env.cse.ID.String(),
		"room_no":       "LAB-2",
		"item_id":       "PC-14",
		"title":         "Monitor flickers",
	}

	rec := env.do(t, submitForm(t, fields, "monitor.jpg"), student.ID)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created commonDto.IssueResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Monitor flickers", created.Title)
	assert.Equal(t, "pending", created.Status)
	assert.NotNil(t, created.PhotoURL)

	rec = env.do(t, submitForm(t, fields, ""), student.ID)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestSubmitIssueEndpointValidation(t *testing.T) {
	env := setup(t)
	student := env.users.AddUser("Student", nil, entity.RoleStudent)

	rec := env.do(t, submitForm(t, map[string]string{"room_no": "LAB-2"}, ""), student.ID)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	fields := map[string]string{
		"department_id": env.cse.ID.String(),
		"room_no":       "LAB-2",
		"item_id":       "PC-14",
		"title":         "Monitor flickers",
	}
	rec = env.do(t, submitForm(t, fields, "notes.pdf"), student.ID)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "photo must be an image")

	// A complete form that is not multipart is rejected rather than stored without a photo.
	form := url.Values{}
	for k, v := range fields {
		form.Set(k, v)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/issues", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = env.do(t, req, student.ID)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "multipart")

	// None of the rejected requests consumed the submission cooldown.
	rec = env.do(t, submitForm(t, fields, ""), student.ID)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestFeedEndpoint(t *testing.T) {
	env := setup(t)
	student := env.users.AddUser("Student", nil, entity.RoleStudent)
	env.issues.Put(entity.Issue{ReporterID: student.ID, DepartmentID: env.cse.ID, Title: "Old", ReportedAt: time.Now().Add(-time.Hour)})
	env.issues.Put(entity.Issue{ReporterID: student.ID, DepartmentID: env.cse.ID, Title: "New", ReportedAt: time.Now()})

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/issues", nil), student.ID)
	require.Equal(t, http.StatusOK, rec.Code)

	var list commonDto.IssueListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Data, 2)
	assert.Equal(t, "New", list.Data[0].Title)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/issues?sort=by_magic", nil), student.ID)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/issues/not-a-uuid", nil), student.ID)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/issues/"+uuid.NewString(), nil), student.ID)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/issues/search?q=old", nil), student.ID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":[],"total":0}`, rec.Body.String())
}

func TestUpdateStatusEndpoint(t *testing.T) {
	env := setup(t)
	student := env.users.AddUser("Student", nil, entity.RoleStudent)
	hod := env.users.AddUser("HoD", &env.cse.ID, entity.RoleHod)
	reported := env.issues.Put(entity.Issue{ReporterID: student.ID, DepartmentID: env.cse.ID, Title: "Fan", ReportedAt: time.Now()})

	patch := func(status string) *http.Request {
		req := httptest.NewRequest(http.MethodPatch, "/api/issues/"+reported.ID.String()+"/status",
			strings.NewReader(`{"status":"`+status+`"}`))
		req.Header.Set("Content-Type", "application/json")
		return req
	}

	rec := env.do(t, patch("acknowledged"), student.ID)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, patch("closed"), hod.ID)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, patch("work_done"), hod.ID)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated commonDto.IssueResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "work_done", updated.Status)
	assert.NotNil(t, updated.ResolvedAt)
}

func TestDeleteIssueEndpoint(t *testing.T) {
	env := setup(t)
	reporter := env.users.AddUser("Reporter", nil, entity.RoleStudent)
	other := env.users.AddUser("Other", nil, entity.RoleStudent)
	reported := env.issues.Put(entity.Issue{ReporterID: reporter.ID, DepartmentID: env.cse.ID, Title: "Fan", ReportedAt: time.Now()})

	path := "/api/issues/" + reported.ID.String()
	rec := env.do(t, httptest.NewRequest(http.MethodDelete, path, nil), other.ID)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, httptest.NewRequest(http.MethodDelete, path, nil), reporter.ID)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, path, nil), reporter.ID)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDashboardEndpoints(t *testing.T) {
	env := setup(t)
	student := env.users.AddUser("Student", nil, entity.RoleStudent)
	hod := env.users.AddUser("HoD", &env.cse.ID, entity.RoleHod)
	env.issues.Put(entity.Issue{ReporterID: student.ID, DepartmentID: env.cse.ID, Title: "Fan", ReportedAt: time.Now()})

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/dashboard/hod", nil), student.ID)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/dashboard/hod?sort=by_upvotes", nil), hod.ID)
	require.Equal(t, http.StatusOK, rec.Code)
	var list commonDto.IssueListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Total)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/dashboard/export", nil), hod.ID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")
	assert.NotEmpty(t, rec.Body.Bytes())
}
