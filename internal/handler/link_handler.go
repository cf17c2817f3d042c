package handler

import (
	"net/http"

	"github.com/SergeiKhy/linkdash/internal/models"
	"github.com/gin-gonic/gin"
)

// CreateLink godoc
// @Summary Create a short link
// @Description Create a new shortened URL for the current tenant
// @Tags links
// @Accept json
// @Produce json
// @Param request body models.CreateLinkRequest true "Link creation request"
// @Success 201 {object} LinkResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/links [post]
func (h *DashboardHandler) CreateLink(c *gin.Context) {
	svc, ok := h.tenant(c)
	if !ok {
		return
	}

	var req models.CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_request", err.Error())
		return
	}

	link, err := svc.CreateLink(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err, "create link")
		return
	}
	c.JSON(http.StatusCreated, h.linkResponse(link))
}

// GetLinks godoc
// @Summary List links
// @Tags links
// @Produce json
// @Success 200 {array} LinkResponse
// @Router /api/v1/links [get]
func (h *DashboardHandler) GetLinks(c *gin.Context) {
	svc, ok := h.tenant(c)
	if !ok {
		return
	}

	links, err := svc.GetLinks(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "load links")
		return
	}

	out := make([]LinkResponse, 0, len(links))
	for i := range links {
		out = append(out, h.linkResponse(&links[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (h *DashboardHandler) GetLink(c *gin.Context) {
	svc, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	link, err := svc.GetLink(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err, "load link")
		return
	}
	c.JSON(http.StatusOK, h.linkResponse(link))
}

// UpdateLink godoc
// @Summary Partially update a link
// @Description Only fields present in the body are changed; null clears nullable fields
// @Tags links
// @Accept json
// @Produce json
// @Param id path int true "Link ID"
// @Param request body models.LinkPatch true "Fields to change"
// @Success 200 {object} LinkResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/links/{id} [patch]
func (h *DashboardHandler) UpdateLink(c *gin.Context) {
	svc, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	var patch models.LinkPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "invalid_request", err.Error())
		return
	}

	link, err := svc.UpdateLink(c.Request.Context(), id, patch)
	if err != nil {
		respondError(c, h.logger, err, "update link")
		return
	}
	c.JSON(http.StatusOK, h.linkResponse(link))
}

// DeleteLink godoc
// @Summary Delete a link
// @Description Removes the link with its tag associations and analytics
// @Tags links
// @Produce json
// @Param id path int true "Link ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/links/{id} [delete]
func (h *DashboardHandler) DeleteLink(c *gin.Context) {
	svc, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	if err := svc.DeleteLink(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err, "delete link")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Link deleted successfully"})
}

// GetLinkAnalytics godoc
// @Summary Click analytics for a link
// @Tags analytics
// @Produce json
// @Param id path int true "Link ID"
// @Success 200 {object} models.LinkAnalytics
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/links/{id}/analytics [get]
func (h *DashboardHandler) GetLinkAnalytics(c *gin.Context) {
	svc, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	analytics, err := svc.GetLinkAnalytics(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err, "load analytics")
		return
	}
	c.JSON(http.StatusOK, analytics)
}

func (h *DashboardHandler) GetTagsForLink(c *gin.Context) {
	svc, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	tags, err := svc.GetTagsForLink(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err, "load link tags")
		return
	}
	c.JSON(http.StatusOK, tags)
}

func (h *DashboardHandler) AddTagToLink(c *gin.Context) {
	svc, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	if err := svc.AddTagToLink(c.Request.Context(), id, c.Param("tagId")); err != nil {
		respondError(c, h.logger, err, "tag link")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Tag added"})
}

func (h *DashboardHandler) RemoveTagFromLink(c *gin.Context) {
	svc, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	if err := svc.RemoveTagFromLink(c.Request.Context(), id, c.Param("tagId")); err != nil {
		respondError(c, h.logger, err, "untag link")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Tag removed"})
}

func (h *DashboardHandler) GetLinkTags(c *gin.Context) {
	svc, ok := h.tenant(c)
	if !ok {
		return
	}

	linkTags, err := svc.GetLinkTags(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "load link tags")
		return
	}
	c.JSON(http.StatusOK, linkTags)
}
