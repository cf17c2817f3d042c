package handler

import (
	"net/http"

	"github.com/SergeiKhy/linkdash/internal/models"
	"github.com/gin-gonic/gin"
)

type CreateFolderRequest struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

type CreateTagRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Folders

func (h *DashboardHandler) CreateFolder(c *gin.Context) {
	svc, ok := h.tenant(c)
	if !ok {
		return
	}

	var req CreateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_request", err.Error())
		return
	}

	folder, err := svc.CreateFolder(c.Request.Context(), req.Name, req.Icon)
	if err != nil {
		respondError(c, h.logger, err, "create folder")
		return
	}
	c.JSON(http.StatusCreated, folder)
}

func (h *DashboardHandler) GetFolders(c *gin.Context) {
	svc, ok := h.tenant(c)
	if !ok {
		return
	}

	folders, err := svc.GetFolders(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "load folders")
		return
	}
	c.JSON(http.StatusOK, folders)
}

func (h *DashboardHandler) UpdateFolder(c *gin.Context) {
	svc, ok := h.tenant(c)
	if !ok {
		return
	}

	var patch models.FolderPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "invalid_request", err.Error())
		return
	}

	folder, err := svc.UpdateFolder(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		respondError(c, h.logger, err, "update folder")
		return
	}
	c.JSON(http.StatusOK, folder)
}

// DeleteFolder godoc
// @Summary Delete a folder
// @Description Links in the folder are kept and moved out of it
// @Tags folders
// @Produce json
// @Param id path string true "Folder ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/folders/{id} [delete]
func (h *DashboardHandler) DeleteFolder(c *gin.Context) {
	svc, ok := h.tenant(c)
	if !ok {
		return
	}

	if err := svc.DeleteFolder(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err, "delete folder")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Folder deleted successfully"})
}

// Tags

func (h *DashboardHandler) CreateTag(c *gin.Context) {
	svc, ok := h.tenant(c)
	if !ok {
		return
	}

	var req CreateTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_request", err.Error())
		return
	}

	tag, err := svc.CreateTag(c.Request.Context(), req.Name, req.Color)
	if err != nil {
		respondError(c, h.logger, err, "create tag")
		return
	}
	c.JSON(http.StatusCreated, tag)
}

func (h *DashboardHandler) GetTags(c *gin.Context) {
	svc, ok := h.tenant(c)
	if !ok {
		return
	}

	tags, err := svc.GetTags(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "load tags")
		return
	}
	c.JSON(http.StatusOK, tags)
}

func (h *DashboardHandler) UpdateTag(c *gin.Context) {
	svc, ok := h.tenant(c)
	if !ok {
		return
	}

	var patch models.TagPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "invalid_request", err.Error())
		return
	}

	tag, err := svc.UpdateTag(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		respondError(c, h.logger, err, "update tag")
		return
	}
	c.JSON(http.StatusOK, tag)
}

// DeleteTag godoc
// @Summary Delete a tag
// @Description Removes the tag from every link it was attached to
// @Tags tags
// @Produce json
// @Param id path string true "Tag ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/tags/{id} [delete]
func (h *DashboardHandler) DeleteTag(c *gin.Context) {
	svc, ok := h.tenant(c)
	if !ok {
		return
	}

	if err := svc.DeleteTag(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err, "delete tag")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Tag deleted successfully"})
}
