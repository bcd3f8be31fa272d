package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/inkpress/internal/service"
)

// Subscribe 公开订阅端点，重复订阅视为冲突
func (a *API) Subscribe(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if !bindJSON(c, &req, "邮箱格式不正确") {
		return
	}

	subscriber, err := a.subscribers.Subscribe(req.Email)
	if err != nil {
		if errors.Is(err, service.ErrSubscriberExists) {
			respondError(c, http.StatusConflict, "该邮箱已订阅")
			return
		}
		if errors.Is(err, service.ErrSubscriberEmail) {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "订阅失败")
		return
	}

	respondData(c, http.StatusCreated, subscriber)
}

// ListSubscribers 后台查看订阅列表
func (a *API) ListSubscribers(c *gin.Context) {
	subscribers, err := a.subscribers.List()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取订阅列表失败")
		return
	}

	respondData(c, http.StatusOK, subscribers)
}

// RemoveSubscriber 后台移除订阅者
func (a *API) RemoveSubscriber(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.subscribers.Remove(id); err != nil {
		if errors.Is(err, service.ErrSubscriberNotFound) {
			respondError(c, http.StatusNotFound, "订阅者不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "移除订阅者失败")
		return
	}

	c.Status(http.StatusNoContent)
}

// Unsubscribe 通过邮件里的退订令牌取消订阅，公开端点
func (a *API) Unsubscribe(c *gin.Context) {
	token := c.Param("token")

	if err := a.subscribers.Unsubscribe(token); err != nil {
		if errors.Is(err, service.ErrSubscriberNotFound) {
			respondError(c, http.StatusNotFound, "退订链接无效")
			return
		}
		respondError(c, http.StatusInternalServerError, "退订失败")
		return
	}

	respondData(c, http.StatusOK, gin.H{"message": "已退订"})
}
