package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inkpress/internal/config"
	"github.com/inkpress/internal/db"
	"github.com/inkpress/internal/handler"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupRouterTest(t *testing.T) (*gin.Engine, *gorm.DB, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:router-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	if err := gdb.AutoMigrate(
		&db.User{}, &db.Post{}, &db.PostEdit{}, &db.PostMonthlyView{}, &db.PostView{},
		&db.Category{}, &db.Tag{}, &db.Subscriber{}, &db.Activity{},
	); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	user := db.User{Name: "管理员", Email: "admin@example.com", Password: string(hash)}
	if err := gdb.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}

	cfg := config.AppConfig{
		JWTSecret:   "router-test-secret",
		SiteBaseURL: "https://blog.example.com",
	}
	engine := SetupRouter(handler.NewAPI(gdb, cfg))

	return engine, gdb, func() {
		sqlDB, err := gdb.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	}
}

func doJSON(t *testing.T, engine *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func loginToken(t *testing.T, engine *gin.Engine) string {
	t.Helper()

	w := doJSON(t, engine, http.MethodPost, "/auth/login", "", gin.H{
		"email":    "admin@example.com",
		"password": "secret123",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode login response: %v", err)
	}
	if resp.Data.Token == "" {
		t.Fatalf("expected token in login response")
	}
	return resp.Data.Token
}

func TestProtectedRoutesRejectMissingToken(t *testing.T) {
	engine, _, cleanup := setupRouterTest(t)
	defer cleanup()

	// 写路径、删除与后台看板全部要求令牌
	cases := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/posts"},
		{http.MethodPatch, "/posts/1"},
		{http.MethodDelete, "/posts/1"},
		{http.MethodGet, "/dashboard"},
		{http.MethodGet, "/dashboard/traffic-analytics"},
	}
	for _, tc := range cases {
		w := doJSON(t, engine, tc.method, tc.path, "", nil)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d", tc.method, tc.path, w.Code)
		}
	}

	w := doJSON(t, engine, http.MethodPost, "/posts", "not-a-jwt", gin.H{"title": "x"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bogus token, got %d", w.Code)
	}
}

func TestPublicReadsNeedNoToken(t *testing.T) {
	engine, _, cleanup := setupRouterTest(t)
	defer cleanup()
	token := loginToken(t, engine)

	w := doJSON(t, engine, http.MethodPost, "/posts", token, gin.H{
		"title":  "Open Read",
		"status": "published",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create post failed: %d %s", w.Code, w.Body.String())
	}
	var created struct {
		Data struct {
			ID uint
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode create response: %v", err)
	}

	// 列表与详情无需令牌
	w = doJSON(t, engine, http.MethodGet, "/posts", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("unauthenticated list failed: %d %s", w.Code, w.Body.String())
	}

	w = doJSON(t, engine, http.MethodGet, fmt.Sprintf("/posts/%d", created.Data.ID), "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("unauthenticated detail failed: %d %s", w.Code, w.Body.String())
	}

	// 匿名详情读取同样计入浏览
	var fetched struct {
		Data struct {
			Views uint64
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &fetched); err != nil {
		t.Fatalf("failed to decode detail response: %v", err)
	}
	if fetched.Data.Views != 1 {
		t.Fatalf("expected views 1 after anonymous read, got %d", fetched.Data.Views)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	engine, _, cleanup := setupRouterTest(t)
	defer cleanup()

	w := doJSON(t, engine, http.MethodPost, "/auth/login", "", gin.H{
		"email":    "admin@example.com",
		"password": "wrong",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestCreateAndFetchPost(t *testing.T) {
	engine, _, cleanup := setupRouterTest(t)
	defer cleanup()
	token := loginToken(t, engine)

	w := doJSON(t, engine, http.MethodPost, "/posts", token, gin.H{
		"title":   "Hello World",
		"content": "# Hello\n\nbody text",
		"status":  "published",
		"tags":    []string{"Go", "Web"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create post failed: %d %s", w.Code, w.Body.String())
	}

	var created struct {
		Data struct {
			ID   uint
			Slug string
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode create response: %v", err)
	}
	if created.Data.Slug != "hello-world" {
		t.Fatalf("expected slug hello-world, got %q", created.Data.Slug)
	}

	w = doJSON(t, engine, http.MethodGet, fmt.Sprintf("/posts/%d", created.Data.ID), token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get post failed: %d %s", w.Code, w.Body.String())
	}

	// 详情读取计入一次浏览
	var fetched struct {
		Data struct {
			Views uint64
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &fetched); err != nil {
		t.Fatalf("failed to decode get response: %v", err)
	}
	if fetched.Data.Views != 1 {
		t.Fatalf("expected views 1 after detail read, got %d", fetched.Data.Views)
	}
}

func TestCreatePostRequiresTitle(t *testing.T) {
	engine, _, cleanup := setupRouterTest(t)
	defer cleanup()
	token := loginToken(t, engine)

	w := doJSON(t, engine, http.MethodPost, "/posts", token, gin.H{"content": "no title"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestPublicSlugEndpointHidesDrafts(t *testing.T) {
	engine, _, cleanup := setupRouterTest(t)
	defer cleanup()
	token := loginToken(t, engine)

	w := doJSON(t, engine, http.MethodPost, "/posts", token, gin.H{"title": "Secret Draft"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create draft failed: %d %s", w.Code, w.Body.String())
	}

	w = doJSON(t, engine, http.MethodGet, "/posts/slug/secret-draft", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for draft slug, got %d", w.Code)
	}
}

func TestDeletePostReturnsNoContent(t *testing.T) {
	engine, _, cleanup := setupRouterTest(t)
	defer cleanup()
	token := loginToken(t, engine)

	w := doJSON(t, engine, http.MethodPost, "/posts", token, gin.H{"title": "Doomed"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create post failed: %d %s", w.Code, w.Body.String())
	}
	var created struct {
		Data struct {
			ID uint
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode create response: %v", err)
	}

	w = doJSON(t, engine, http.MethodDelete, fmt.Sprintf("/posts/%d", created.Data.ID), token, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}

	w = doJSON(t, engine, http.MethodDelete, fmt.Sprintf("/posts/%d", created.Data.ID), token, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on repeat delete, got %d", w.Code)
	}
}

func TestTrafficAnalyticsWindow(t *testing.T) {
	engine, _, cleanup := setupRouterTest(t)
	defer cleanup()
	token := loginToken(t, engine)

	query := url.Values{"days": {"7 days"}}
	w := doJSON(t, engine, http.MethodGet, "/dashboard/traffic-analytics?"+query.Encode(), token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("traffic analytics failed: %d %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data struct {
			Series []struct {
				Day   string `json:"day"`
				Views uint64 `json:"views"`
			} `json:"series"`
			Change string `json:"change"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Data.Series) != 7 {
		t.Fatalf("expected 7 day entries, got %d", len(resp.Data.Series))
	}
	if resp.Data.Change != "0% vs previous period" {
		t.Fatalf("unexpected change string: %q", resp.Data.Change)
	}
}

func TestSubscribeAndUnsubscribeFlow(t *testing.T) {
	engine, gdb, cleanup := setupRouterTest(t)
	defer cleanup()

	w := doJSON(t, engine, http.MethodPost, "/subscribers", "", gin.H{"email": "reader@example.com"})
	if w.Code != http.StatusCreated {
		t.Fatalf("subscribe failed: %d %s", w.Code, w.Body.String())
	}

	w = doJSON(t, engine, http.MethodPost, "/subscribers", "", gin.H{"email": "reader@example.com"})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate subscribe, got %d", w.Code)
	}

	var subscriber db.Subscriber
	if err := gdb.Where("email = ?", "reader@example.com").First(&subscriber).Error; err != nil {
		t.Fatalf("load subscriber: %v", err)
	}

	w = doJSON(t, engine, http.MethodGet, "/subscribers/unsubscribe/"+subscriber.UnsubscribeToken, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("unsubscribe failed: %d %s", w.Code, w.Body.String())
	}

	w = doJSON(t, engine, http.MethodGet, "/subscribers/unsubscribe/"+subscriber.UnsubscribeToken, "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on reused token, got %d", w.Code)
	}
}
