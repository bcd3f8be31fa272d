package handler

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inkpress/internal/db"
	"github.com/inkpress/internal/service"
)

type createPostRequest struct {
	Title            string   `json:"title" binding:"required"`
	Slug             string   `json:"slug"`
	Content          string   `json:"content"`
	Excerpt          string   `json:"excerpt"`
	Status           string   `json:"status"`
	FeaturedImageURL string   `json:"featuredImageUrl"`
	FeaturedImageAlt string   `json:"featuredImageAlt"`
	Categories       []uint   `json:"categories"`
	Tags             []string `json:"tags"`
	Contributors     []uint   `json:"contributors"`
	FAQs             []db.FAQ `json:"faqs"`
	Description      string   `json:"description"`
	SEOTitle         string   `json:"seoTitle"`
	MetaDescription  string   `json:"metaDescription"`
	StaticLeadMagnet string   `json:"staticLeadMagnet"`
}

type updatePostRequest struct {
	Title            *string   `json:"title"`
	Slug             *string   `json:"slug"`
	Content          *string   `json:"content"`
	Excerpt          *string   `json:"excerpt"`
	Status           *string   `json:"status"`
	FeaturedImageURL *string   `json:"featuredImageUrl"`
	FeaturedImageAlt *string   `json:"featuredImageAlt"`
	Categories       *[]uint   `json:"categories"`
	Tags             *[]string `json:"tags"`
	Contributors     *[]uint   `json:"contributors"`
	FAQs             *[]db.FAQ `json:"faqs"`
	Description      *string   `json:"description"`
	SEOTitle         *string   `json:"seoTitle"`
	MetaDescription  *string   `json:"metaDescription"`
	StaticLeadMagnet *string   `json:"staticLeadMagnet"`
}

// CreatePost 创建新文章
func (a *API) CreatePost(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "未登录")
		return
	}

	var req createPostRequest
	if !bindJSON(c, &req, "请求体不合法，title 为必填") {
		return
	}

	post, err := a.posts.Create(service.PostInput{
		Title:            req.Title,
		Slug:             req.Slug,
		Content:          req.Content,
		Excerpt:          req.Excerpt,
		Status:           req.Status,
		FeaturedImageURL: req.FeaturedImageURL,
		FeaturedImageAlt: req.FeaturedImageAlt,
		CategoryIDs:      req.Categories,
		TagNames:         req.Tags,
		ContributorIDs:   req.Contributors,
		FAQs:             req.FAQs,
		Description:      req.Description,
		SEOTitle:         req.SEOTitle,
		MetaDescription:  req.MetaDescription,
		StaticLeadMagnet: req.StaticLeadMagnet,
	}, principal)
	if err != nil {
		respondPostError(c, err)
		return
	}

	respondData(c, http.StatusCreated, post)
}

// ListPosts 分页查询文章列表，支持状态、作者、分类、标签与标题过滤
func (a *API) ListPosts(c *gin.Context) {
	filter := service.PostFilter{
		Status:      c.Query("status"),
		Title:       c.Query("title"),
		CategoryIDs: parseUintQuerySlice(c.QueryArray("categories")),
		TagIDs:      parseUintQuerySlice(c.QueryArray("tags")),
		Page:        parsePositiveIntQuery(c, "page"),
		Limit:       parsePositiveIntQuery(c, "limit"),
	}
	if ids := parseUintQuerySlice(c.QueryArray("authorId")); len(ids) > 0 {
		filter.AuthorID = ids[0]
	}

	result, err := a.posts.List(filter)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取文章列表失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": result.Posts,
		"meta": gin.H{
			"page":  result.Page,
			"limit": result.Limit,
			"total": result.Total,
		},
	})
}

// GetPost 按 ID 获取文章，同时计入一次浏览
func (a *API) GetPost(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	// 先计浏览再读详情，响应中能带上本次增量；计数失败不阻断读取
	if err := a.views.RecordView(id, time.Now()); err != nil {
		if errors.Is(err, service.ErrPostNotFound) {
			respondError(c, http.StatusNotFound, "文章不存在")
			return
		}
		log.Printf("post %d: record view failed: %v", id, err)
	}

	post, err := a.posts.Get(id)
	if err != nil {
		if errors.Is(err, service.ErrPostNotFound) {
			respondError(c, http.StatusNotFound, "文章不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "获取文章失败")
		return
	}

	respondData(c, http.StatusOK, post)
}

// GetPostBySlug 公开端点，仅返回已发布文章
func (a *API) GetPostBySlug(c *gin.Context) {
	slug := c.Param("slug")

	post, err := a.posts.GetBySlug(slug)
	if err != nil {
		if errors.Is(err, service.ErrPostNotFound) {
			respondError(c, http.StatusNotFound, "文章不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "获取文章失败")
		return
	}

	if err := a.views.RecordView(post.ID, time.Now()); err != nil {
		log.Printf("post %d: record view failed: %v", post.ID, err)
	} else {
		post.Views++
	}

	respondData(c, http.StatusOK, post)
}

// UpdatePost 部分更新文章
func (a *API) UpdatePost(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "未登录")
		return
	}

	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	var req updatePostRequest
	if !bindJSON(c, &req, "请求体不合法") {
		return
	}

	post, err := a.posts.Update(id, service.PostUpdate{
		Title:            req.Title,
		Slug:             req.Slug,
		Content:          req.Content,
		Excerpt:          req.Excerpt,
		Status:           req.Status,
		FeaturedImageURL: req.FeaturedImageURL,
		FeaturedImageAlt: req.FeaturedImageAlt,
		CategoryIDs:      req.Categories,
		TagNames:         req.Tags,
		ContributorIDs:   req.Contributors,
		FAQs:             req.FAQs,
		Description:      req.Description,
		SEOTitle:         req.SEOTitle,
		MetaDescription:  req.MetaDescription,
		StaticLeadMagnet: req.StaticLeadMagnet,
	}, principal)
	if err != nil {
		respondPostError(c, err)
		return
	}

	respondData(c, http.StatusOK, post)
}

// DeletePost 删除文章并回收分类计数
func (a *API) DeletePost(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.posts.Remove(id); err != nil {
		if errors.Is(err, service.ErrPostNotFound) {
			respondError(c, http.StatusNotFound, "文章不存在")
			return
		}
		if errors.Is(err, service.ErrCounterUnderflow) {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "删除文章失败")
		return
	}

	c.Status(http.StatusNoContent)
}

// respondPostError 把文章写路径的业务错误映射到 HTTP 状态码。
func respondPostError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPostNotFound):
		respondError(c, http.StatusNotFound, "文章不存在")
	case errors.Is(err, service.ErrCategoryNotFound):
		respondError(c, http.StatusNotFound, "分类不存在")
	case errors.Is(err, service.ErrPostTitle),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrTagName),
		errors.Is(err, service.ErrCounterUnderflow):
		respondError(c, http.StatusBadRequest, err.Error())
	default:
		respondError(c, http.StatusInternalServerError, "保存文章失败")
	}
}
