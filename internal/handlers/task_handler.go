package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"taskdesk/internal/models"
	"taskdesk/internal/services"
)

type TaskHandler struct {
	service services.TaskService
	clock   Clock
}

func NewTaskHandler(service services.TaskService, clock Clock) *TaskHandler {
	return &TaskHandler{service: service, clock: clock}
}

type createTaskRequest struct {
	Title           string          `json:"title" binding:"required"`
	Description     string          `json:"description"`
	Category        string          `json:"category"`
	WorkerID        *int64          `json:"worker_id"`
	RequiresPhoto   bool            `json:"requires_photo"`
	ExamplePhotoURL string          `json:"example_photo_url"`
	WeekDays        models.WeekDays `json:"week_days"`
	MonthDay        *int            `json:"month_day"`
	IsRecurring     *bool           `json:"is_recurring"` // по умолчанию true
	Price           int64           `json:"price"`
}

// Create
// @Summary      Создать задачу
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Param        task  body      createTaskRequest  true  "Задача"
// @Success      201   {object}  models.Task
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Security     BearerAuth
// @Router       /tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	actor, ok := mustActor(c, "task")
	if !ok {
		return
	}
	log.Printf("[task][create] call by userID=%d role=%d", actor.UserID, actor.RoleID)

	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("[task][create][bind][err] %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	recurring := true
	if req.IsRecurring != nil {
		recurring = *req.IsRecurring
	}
	task := &models.Task{
		Title:           req.Title,
		Description:     req.Description,
		Category:        req.Category,
		WorkerID:        req.WorkerID,
		RequiresPhoto:   req.RequiresPhoto,
		ExamplePhotoURL: req.ExamplePhotoURL,
		WeekDays:        req.WeekDays,
		MonthDay:        req.MonthDay,
		IsRecurring:     recurring,
		Price:           req.Price,
	}

	created, err := h.service.Create(c.Request.Context(), actor, task)
	if err != nil {
		writeError(c, "task", "create", err)
		return
	}
	log.Printf("[task][create][ok] id=%d worker=%v title=%q price=%d", created.ID, created.WorkerID, created.Title, created.Price)
	c.JSON(http.StatusCreated, created)
}

// GetAll
// @Summary      Задачи на дату
// @Description  Админ видит все задачи компании, сотрудник видит свои задачи, которые выпадают на дату.
// @Tags         Tasks
// @Produce      json
// @Param        date      query  string  false  "YYYY-MM-DD, по умолчанию сегодня"
// @Param        category  query  string  false  "Категория"
// @Success      200  {array}   models.Task
// @Failure      400  {object}  errorResponse
// @Security     BearerAuth
// @Router       /tasks [get]
func (h *TaskHandler) GetAll(c *gin.Context) {
	actor, ok := mustActor(c, "task")
	if !ok {
		return
	}
	log.Printf("[task][list] call by userID=%d role=%d q=%v", actor.UserID, actor.RoleID, c.Request.URL.RawQuery)

	today, err := dateFromQuery(c, h.clock)
	if err != nil {
		log.Printf("[task][list][err] bad date=%q: %v", c.Query("date"), err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date (YYYY-MM-DD)"})
		return
	}

	tasks, err := h.service.ListVisible(c.Request.Context(), actor, today, c.Query("category"))
	if err != nil {
		writeError(c, "task", "list", err)
		return
	}
	log.Printf("[task][list][ok] date=%s count=%d", today.Format("2006-01-02"), len(tasks))
	c.JSON(http.StatusOK, tasks)
}

// GetByID
// @Summary      Задача по ID
// @Tags         Tasks
// @Produce      json
// @Param        id   path      int  true  "ID задачи"
// @Success      200  {object}  models.Task
// @Failure      404  {object}  errorResponse
// @Security     BearerAuth
// @Router       /tasks/{id} [get]
func (h *TaskHandler) GetByID(c *gin.Context) {
	actor, ok := mustActor(c, "task")
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id", "task", "get")
	if !ok {
		return
	}
	task, err := h.service.GetByID(c.Request.Context(), actor, id)
	if err != nil {
		writeError(c, "task", "get", err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// Update
// @Summary      Изменить задачу
// @Description  Меняет только переданные поля. Статус выполнения, фото и баланс не трогаются.
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Param        id     path      int               true  "ID задачи"
// @Param        patch  body      models.TaskPatch  true  "Изменения"
// @Success      200    {object}  models.Task
// @Failure      400    {object}  errorResponse
// @Failure      403    {object}  errorResponse
// @Failure      404    {object}  errorResponse
// @Security     BearerAuth
// @Router       /tasks/{id} [put]
func (h *TaskHandler) Update(c *gin.Context) {
	actor, ok := mustActor(c, "task")
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id", "task", "update")
	if !ok {
		return
	}
	var patch models.TaskPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		log.Printf("[task][update][bind][err] %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.service.Update(c.Request.Context(), actor, id, patch)
	if err != nil {
		writeError(c, "task", "update", err)
		return
	}
	log.Printf("[task][update][ok] id=%d by=%d", id, actor.UserID)
	c.JSON(http.StatusOK, task)
}

// Delete
// @Summary      Удалить задачу
// @Tags         Tasks
// @Param        id   path  int  true  "ID задачи"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Security     BearerAuth
// @Router       /tasks/{id} [delete]
func (h *TaskHandler) Delete(c *gin.Context) {
	actor, ok := mustActor(c, "task")
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id", "task", "delete")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), actor, id); err != nil {
		writeError(c, "task", "delete", err)
		return
	}
	log.Printf("[task][delete][ok] id=%d by=%d", id, actor.UserID)
	c.Status(http.StatusNoContent)
}

// Complete
// @Summary      Отметить выполненной
// @Description  Начисляет бонус исполнителю один раз. Повторный вызов ничего не меняет.
// @Tags         Tasks
// @Produce      json
// @Param        id   path      int  true  "ID задачи"
// @Success      200  {object}  models.Task
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      422  {object}  errorResponse  "нужно фото"
// @Security     BearerAuth
// @Router       /tasks/{id}/complete [post]
func (h *TaskHandler) Complete(c *gin.Context) {
	actor, ok := mustActor(c, "task")
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id", "task", "complete")
	if !ok {
		return
	}
	log.Printf("[task][complete] id=%d by userID=%d role=%d", id, actor.UserID, actor.RoleID)

	task, err := h.service.Complete(c.Request.Context(), actor, id)
	if err != nil {
		writeError(c, "task", "complete", err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// Uncomplete
// @Summary      Снять отметку о выполнении
// @Description  Списывает ранее начисленный бонус. Для невыполненной задачи ничего не делает.
// @Tags         Tasks
// @Produce      json
// @Param        id   path      int  true  "ID задачи"
// @Success      200  {object}  models.Task
// @Failure      404  {object}  errorResponse
// @Security     BearerAuth
// @Router       /tasks/{id}/uncomplete [post]
func (h *TaskHandler) Uncomplete(c *gin.Context) {
	actor, ok := mustActor(c, "task")
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id", "task", "uncomplete")
	if !ok {
		return
	}
	log.Printf("[task][uncomplete] id=%d by userID=%d role=%d", id, actor.UserID, actor.RoleID)

	task, err := h.service.Uncomplete(c.Request.Context(), actor, id)
	if err != nil {
		writeError(c, "task", "uncomplete", err)
		return
	}
	c.JSON(http.StatusOK, task)
}

type addPhotoRequest struct {
	URL string `json:"url" binding:"required"`
}

// AddPhoto
// @Summary      Добавить фото-подтверждение
// @Description  Принимает ссылку на уже загруженное фото из каталога задачи /proofs/{company_id}/{task_id}/. Не больше 10 фото.
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Param        id     path      int              true  "ID задачи"
// @Param        photo  body      addPhotoRequest  true  "Ссылка на фото"
// @Success      200    {object}  models.Task
// @Failure      400    {object}  errorResponse  "фото вне каталога задачи"
// @Failure      403    {object}  errorResponse
// @Failure      404    {object}  errorResponse
// @Failure      409    {object}  errorResponse  "лимит фото"
// @Security     BearerAuth
// @Router       /tasks/{id}/photos [post]
func (h *TaskHandler) AddPhoto(c *gin.Context) {
	actor, ok := mustActor(c, "task")
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id", "task", "photo-add")
	if !ok {
		return
	}
	var req addPhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("[task][photo-add][bind][err] %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	task, err := h.service.AddPhoto(c.Request.Context(), actor, id, req.URL)
	if err != nil {
		writeError(c, "task", "photo-add", err)
		return
	}
	log.Printf("[task][photo-add][ok] id=%d ref=%q photos=%d", id, req.URL, len(task.PhotoURLs))
	c.JSON(http.StatusOK, task)
}

// RemovePhoto
// @Summary      Удалить фото по индексу
// @Tags         Tasks
// @Produce      json
// @Param        id     path      int  true  "ID задачи"
// @Param        index  path      int  true  "Индекс фото (с 0)"
// @Success      200    {object}  models.Task
// @Failure      404    {object}  errorResponse
// @Security     BearerAuth
// @Router       /tasks/{id}/photos/{index} [delete]
func (h *TaskHandler) RemovePhoto(c *gin.Context) {
	actor, ok := mustActor(c, "task")
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id", "task", "photo-remove")
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid index"})
		return
	}

	task, err := h.service.RemovePhoto(c.Request.Context(), actor, id, index)
	if err != nil {
		writeError(c, "task", "photo-remove", err)
		return
	}
	log.Printf("[task][photo-remove][ok] id=%d index=%d", id, index)
	c.JSON(http.StatusOK, task)
}
