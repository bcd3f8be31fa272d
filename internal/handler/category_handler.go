package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/inkpress/internal/service"
)

type categoryRequest struct {
	Name        string  `json:"name" binding:"required"`
	Slug        string  `json:"slug"`
	Description *string `json:"description"`
}

// ListCategories 获取全部分类
func (a *API) ListCategories(c *gin.Context) {
	categories, err := a.categories.List()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取分类列表失败")
		return
	}

	respondData(c, http.StatusOK, categories)
}

// GetCategory 获取单个分类
func (a *API) GetCategory(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	category, err := a.categories.Get(id)
	if err != nil {
		if errors.Is(err, service.ErrCategoryNotFound) {
			respondError(c, http.StatusNotFound, "分类不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "获取分类失败")
		return
	}

	respondData(c, http.StatusOK, category)
}

// CreateCategory 创建分类
func (a *API) CreateCategory(c *gin.Context) {
	var req categoryRequest
	if !bindJSON(c, &req, "请求体不合法，name 为必填") {
		return
	}

	description := ""
	if req.Description != nil {
		description = *req.Description
	}
	category, err := a.categories.Create(req.Name, req.Slug, description)
	if err != nil {
		if errors.Is(err, service.ErrCategoryName) {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "创建分类失败")
		return
	}

	respondData(c, http.StatusCreated, category)
}

// UpdateCategory 更新分类
func (a *API) UpdateCategory(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	var req categoryRequest
	if !bindJSON(c, &req, "请求体不合法，name 为必填") {
		return
	}

	category, err := a.categories.Update(id, req.Name, req.Slug, req.Description)
	if err != nil {
		if errors.Is(err, service.ErrCategoryNotFound) {
			respondError(c, http.StatusNotFound, "分类不存在")
			return
		}
		if errors.Is(err, service.ErrCategoryName) {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "更新分类失败")
		return
	}

	respondData(c, http.StatusOK, category)
}

// DeleteCategory 删除分类
func (a *API) DeleteCategory(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.categories.Delete(id); err != nil {
		if errors.Is(err, service.ErrCategoryNotFound) {
			respondError(c, http.StatusNotFound, "分类不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "删除分类失败")
		return
	}

	c.Status(http.StatusNoContent)
}
