package middleware

import (
	"context"
	"course_study_backend/internal/config"
	"course_study_backend/internal/model"
	"course_study_backend/internal/util"
	"course_study_backend/pkg/session"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "middleware-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.JWT.Secret = secret
	return cfg
}

func tokenFor(t *testing.T, role model.UserRole) string {
	t.Helper()
	user := &model.User{Email: "u@example.com", Role: role}
	user.ID = session.NewToken()
	token, err := util.GenerateJWT(user, secret, time.Hour)
	require.NoError(t, err)
	return token
}

func ok(c *gin.Context) { c.Status(http.StatusNoContent) }

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(ConfigMiddleware(testConfig), AuthMiddleware())
	r.GET("/", func(c *gin.Context) {
		claims := util.GetUserFromContext(c)
		require.NotNil(t, claims)
		c.String(http.StatusOK, string(claims.Role))
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, model.RoleStaff))
	w = serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, string(model.RoleStaff), w.Body.String())
}

func TestRoleMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(ConfigMiddleware(testConfig), AuthMiddleware(), RoleMiddleware(model.RoleStaff))
	r.GET("/", ok)

	cases := map[model.UserRole]int{
		model.RoleStudent: http.StatusForbidden,
		model.RoleStaff:   http.StatusNoContent,
		model.RoleAdmin:   http.StatusNoContent,
	}
	for role, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, role))
		assert.Equal(t, want, serve(r, req).Code, role)
	}
}

func TestSessionIssuesTokenWhenMissing(t *testing.T) {
	r := gin.New()
	r.Use(Session("course_session", time.Hour))
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, util.GetSessionToken(c))
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	issued := w.Body.String()
	require.NoError(t, util.ValidateID(issued))
	assert.Equal(t, issued, w.Header().Get(SessionHeader))
	require.Len(t, w.Result().Cookies(), 1)
	assert.Equal(t, issued, w.Result().Cookies()[0].Value)
	assert.True(t, w.Result().Cookies()[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "course_session", Value: issued})
	w = serve(r, req)
	assert.Equal(t, issued, w.Body.String())
	assert.Empty(t, w.Result().Cookies(), "a valid token is not reissued")

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(SessionHeader, "forged")
	w = serve(r, req)
	assert.NotEqual(t, "forged", w.Body.String())
}

type closer struct {
	closed []string
	err    error
}

func (c *closer) ClosePageView(_ context.Context, id string) (*model.PageViewInstance, error) {
	c.closed = append(c.closed, id)
	return nil, c.err
}

func TestPageViewCloserClosesPendingView(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	views := &closer{}
	token := session.NewToken()
	require.NoError(t, store.Set(context.Background(), token, util.SessionKeyPageView, "view-1"))

	r := gin.New()
	r.Use(Session("course_session", time.Hour), PageViewCloser(store, views))
	r.GET("/", ok)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(SessionHeader, token)
	assert.Equal(t, http.StatusNoContent, serve(r, req).Code)
	assert.Equal(t, []string{"view-1"}, views.closed)

	views.err = errors.New("db down")
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(SessionHeader, token)
	assert.Equal(t, http.StatusNoContent, serve(r, req).Code)
	assert.Len(t, views.closed, 1, "the pending view is popped once")
}

type resolver struct {
	student *model.Student
	err     error
}

func (r *resolver) ResolveStudent(context.Context, string) (*model.Student, error) {
	return r.student, r.err
}

func TestStudentMiddlewares(t *testing.T) {
	verifiedAt := time.Now()
	build := func(res *resolver) *gin.Engine {
		r := gin.New()
		r.Use(ConfigMiddleware(testConfig), AuthMiddleware(), StudentRequired(res), VerifiedStudentRequired())
		r.GET("/", ok)
		return r
	}
	request := func() *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, model.RoleStudent))
		return req
	}

	assert.Equal(t, http.StatusNoContent, serve(build(&resolver{student: &model.Student{VerifiedOn: &verifiedAt}}), request()).Code)
	assert.Equal(t, http.StatusForbidden, serve(build(&resolver{student: &model.Student{}}), request()).Code)
	assert.Equal(t, http.StatusInternalServerError, serve(build(&resolver{err: errors.New("boom")}), request()).Code)
}
