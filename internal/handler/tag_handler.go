package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/inkpress/internal/service"
)

type tagRequest struct {
	Name string `json:"name" binding:"required"`
	Slug string `json:"slug"`
}

// ListTags 获取全部标签
func (a *API) ListTags(c *gin.Context) {
	tags, err := a.tags.List()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取标签列表失败")
		return
	}

	respondData(c, http.StatusOK, tags)
}

// GetTag 获取单个标签
func (a *API) GetTag(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	tag, err := a.tags.Get(id)
	if err != nil {
		if errors.Is(err, service.ErrTagNotFound) {
			respondError(c, http.StatusNotFound, "标签不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "获取标签失败")
		return
	}

	respondData(c, http.StatusOK, tag)
}

// CreateTag 创建标签
func (a *API) CreateTag(c *gin.Context) {
	var req tagRequest
	if !bindJSON(c, &req, "请求体不合法，name 为必填") {
		return
	}

	tag, err := a.tags.Create(req.Name, req.Slug)
	if err != nil {
		if errors.Is(err, service.ErrTagName) {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "创建标签失败")
		return
	}

	respondData(c, http.StatusCreated, tag)
}

// UpdateTag 更新标签
func (a *API) UpdateTag(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	var req tagRequest
	if !bindJSON(c, &req, "请求体不合法，name 为必填") {
		return
	}

	tag, err := a.tags.Update(id, req.Name, req.Slug)
	if err != nil {
		if errors.Is(err, service.ErrTagNotFound) {
			respondError(c, http.StatusNotFound, "标签不存在")
			return
		}
		if errors.Is(err, service.ErrTagName) {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "更新标签失败")
		return
	}

	respondData(c, http.StatusOK, tag)
}

// DeleteTag 删除标签
func (a *API) DeleteTag(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.tags.Delete(id); err != nil {
		if errors.Is(err, service.ErrTagNotFound) {
			respondError(c, http.StatusNotFound, "标签不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "删除标签失败")
		return
	}

	c.Status(http.StatusNoContent)
}
