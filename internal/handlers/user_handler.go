package handlers

import (
	"bytes"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"taskdesk/internal/models"
	"taskdesk/internal/services"
)

type UserHandler struct {
	service    services.UserService
	statements *services.StatementService // nil: выписки отключены
}

func NewUserHandler(service services.UserService, statements *services.StatementService) *UserHandler {
	return &UserHandler{service: service, statements: statements}
}

type createUserRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	RoleID   int    `json:"role_id"` // по умолчанию сотрудник
}

// CreateUser
// @Summary      Добавить сотрудника
// @Tags         Users
// @Accept       json
// @Produce      json
// @Param        user  body      createUserRequest  true  "Сотрудник"
// @Success      201   {object}  models.User
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Security     BearerAuth
// @Router       /users [post]
func (h *UserHandler) CreateUser(c *gin.Context) {
	actor, ok := mustActor(c, "user")
	if !ok {
		return
	}
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("[user][create][bind][err] %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := &models.User{Name: req.Name, Email: req.Email, RoleID: req.RoleID}
	if err := h.service.CreateUser(c.Request.Context(), actor, user, req.Password); err != nil {
		writeError(c, "user", "create", err)
		return
	}
	log.Printf("[user][create][ok] id=%d role=%d by=%d", user.ID, user.RoleID, actor.UserID)
	c.JSON(http.StatusCreated, user)
}

// ListUsers
// @Summary      Сотрудники компании
// @Tags         Users
// @Produce      json
// @Success      200  {array}   models.User
// @Failure      403  {object}  errorResponse
// @Security     BearerAuth
// @Router       /users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	actor, ok := mustActor(c, "user")
	if !ok {
		return
	}
	users, err := h.service.ListUsers(c.Request.Context(), actor)
	if err != nil {
		writeError(c, "user", "list", err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// GetUserByID
// @Summary      Сотрудник по ID
// @Tags         Users
// @Produce      json
// @Param        id   path      int  true  "ID"
// @Success      200  {object}  models.User
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Security     BearerAuth
// @Router       /users/{id} [get]
func (h *UserHandler) GetUserByID(c *gin.Context) {
	actor, ok := mustActor(c, "user")
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id", "user", "get")
	if !ok {
		return
	}
	user, err := h.service.GetUser(c.Request.Context(), actor, id)
	if err != nil {
		writeError(c, "user", "get", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateUser
// @Summary      Изменить профиль
// @Description  Баланс бонусов так не меняется, только через reset-balance.
// @Tags         Users
// @Accept       json
// @Produce      json
// @Param        id     path      int               true  "ID"
// @Param        patch  body      models.UserPatch  true  "Изменения"
// @Success      200    {object}  models.User
// @Failure      400    {object}  errorResponse
// @Failure      403    {object}  errorResponse
// @Security     BearerAuth
// @Router       /users/{id} [put]
func (h *UserHandler) UpdateUser(c *gin.Context) {
	actor, ok := mustActor(c, "user")
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id", "user", "update")
	if !ok {
		return
	}
	var patch models.UserPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := h.service.UpdateUser(c.Request.Context(), actor, id, patch)
	if err != nil {
		writeError(c, "user", "update", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// DeleteUser
// @Summary      Удалить сотрудника
// @Tags         Users
// @Param        id   path  int  true  "ID"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Security     BearerAuth
// @Router       /users/{id} [delete]
func (h *UserHandler) DeleteUser(c *gin.Context) {
	actor, ok := mustActor(c, "user")
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id", "user", "delete")
	if !ok {
		return
	}
	if err := h.service.DeleteUser(c.Request.Context(), actor, id); err != nil {
		writeError(c, "user", "delete", err)
		return
	}
	log.Printf("[user][delete][ok] id=%d by=%d", id, actor.UserID)
	c.Status(http.StatusNoContent)
}

// ResetBalance
// @Summary      Обнулить бонусный баланс
// @Description  Выплата бонусов: баланс становится 0, списание пишется в журнал.
// @Tags         Users
// @Produce      json
// @Param        id   path      int  true  "ID"
// @Success      200  {object}  models.User
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Security     BearerAuth
// @Router       /users/{id}/reset-balance [post]
func (h *UserHandler) ResetBalance(c *gin.Context) {
	actor, ok := mustActor(c, "user")
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id", "user", "reset-balance")
	if !ok {
		return
	}
	user, err := h.service.ResetBalance(c.Request.Context(), actor, id)
	if err != nil {
		writeError(c, "user", "reset-balance", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Statement
// @Summary      PDF-выписка по бонусам
// @Tags         Users
// @Produce      application/pdf
// @Param        id   path  int  true  "ID"
// @Success      200  {file}    file
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Security     BearerAuth
// @Router       /users/{id}/statement [get]
func (h *UserHandler) Statement(c *gin.Context) {
	actor, ok := mustActor(c, "user")
	if !ok {
		return
	}
	if h.statements == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "statements are disabled"})
		return
	}
	id, ok := parseIDParam(c, "id", "user", "statement")
	if !ok {
		return
	}

	// рендерим в буфер, чтобы при ошибке отдать JSON, а не обрывок PDF
	var buf bytes.Buffer
	if err := h.statements.Write(c.Request.Context(), actor, id, &buf); err != nil {
		writeError(c, "user", "statement", err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="statement-`+strconv.FormatInt(id, 10)+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
