// handlers.go - HTTP handlers for the session/inspection/schema surface (§6).
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bosocmputer/visual-inspector/internal/barcoderesolver"
	"github.com/bosocmputer/visual-inspector/internal/coordinator"
	"github.com/bosocmputer/visual-inspector/internal/product"
	"github.com/bosocmputer/visual-inspector/internal/schema"
	"github.com/bosocmputer/visual-inspector/internal/session"
)

// Handlers bundles the dependencies every route needs.
type Handlers struct {
	Coordinator *coordinator.Coordinator
	Sessions    *session.Manager
	Products    *product.Store
}

func NewHandlers(coord *coordinator.Coordinator, sessions *session.Manager, products *product.Store) *Handlers {
	return &Handlers{Coordinator: coord, Sessions: sessions, Products: products}
}

// RegisterRoutes wires every endpoint in §6 onto the given router.
func RegisterRoutes(router *gin.Engine, h *Handlers) {
	router.POST("/session/create", h.CreateSession)
	router.GET("/session/:id/status", h.SessionStatus)
	router.POST("/session/:id/close", h.CloseSession)
	router.POST("/session/:id/inspect", h.Inspect)
	router.POST("/session/:id/process_grouped_inspection", h.ProcessGroupedInspection)

	router.GET("/schema/roi", h.SchemaROI)
	router.GET("/schema/result", h.SchemaResult)
	router.GET("/schema/version", h.SchemaVersion)
}

type createSessionRequest struct {
	ProductName string      `json:"product_name" binding:"required"`
	ClientInfo  interface{} `json:"client_info,omitempty"`
}

func (h *Handlers) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, &coordinator.InvalidRequest{Reason: err.Error()})
		return
	}

	sess, err := h.Sessions.Create(req.ProductName)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": sess.ID})
}

func (h *Handlers) SessionStatus(c *gin.Context) {
	sess, err := h.Sessions.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	st := sess.Status()
	c.JSON(http.StatusOK, gin.H{
		"session_id":             st.SessionID,
		"product_name":           st.ProductName,
		"inspection_count":       st.InspectionCount,
		"last_activity":          st.LastActivity,
		"inspection_in_progress": st.InspectionInProgress,
	})
}

func (h *Handlers) CloseSession(c *gin.Context) {
	id := c.Param("id")
	sess, err := h.Sessions.Get(id)
	if err != nil {
		writeError(c, err)
		return
	}
	createdAt := sess.CreatedAt
	inspectionCount := sess.Status().InspectionCount

	deleted := h.Sessions.Close(id)
	c.JSON(http.StatusOK, gin.H{
		"duration_seconds":  time.Since(createdAt).Seconds(),
		"inspection_count":  inspectionCount,
		"directory_cleaned": deleted,
	})
}

type inspectRequest struct {
	ImageFilename  *string                        `json:"image_filename"`
	Image          *string                        `json:"image"`
	DeviceBarcodes barcoderesolver.DeviceBarcodes `json:"device_barcodes"`
	DeviceBarcode  *string                        `json:"device_barcode"`
}

func (h *Handlers) Inspect(c *gin.Context) {
	id := c.Param("id")

	var req inspectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, &coordinator.InvalidRequest{Reason: err.Error()})
		return
	}

	ref := coordinator.ImageRef{Filename: req.ImageFilename, Inline: req.Image}
	result, err := h.Coordinator.Inspect(c.Request.Context(), id, ref, req.DeviceBarcodes, req.DeviceBarcode)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type groupRequest struct {
	Focus         int     `json:"focus"`
	Exposure      int     `json:"exposure"`
	Image         *string `json:"image"`
	ImageFilename *string `json:"image_filename"`
	ROIs          []int   `json:"rois"`
}

type processGroupedRequest struct {
	ProductName    string                         `json:"product_name" binding:"required"`
	Groups         map[string]groupRequest        `json:"groups" binding:"required"`
	DeviceBarcodes barcoderesolver.DeviceBarcodes `json:"device_barcodes"`
}

func (h *Handlers) ProcessGroupedInspection(c *gin.Context) {
	id := c.Param("id")

	var req processGroupedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, &coordinator.InvalidRequest{Reason: err.Error()})
		return
	}

	groups := make([]coordinator.Group, 0, len(req.Groups))
	for _, g := range req.Groups {
		groups = append(groups, coordinator.Group{
			Focus:    g.Focus,
			Exposure: g.Exposure,
			Image:    coordinator.ImageRef{Filename: g.ImageFilename, Inline: g.Image},
			ROIIDs:   g.ROIs,
		})
	}

	result, groupResults, err := h.Coordinator.ProcessGrouped(c.Request.Context(), id, req.ProductName, groups, req.DeviceBarcodes)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"roi_results":      result.RoiResults,
		"device_summaries": result.DeviceSummaries,
		"overall_result":   result.OverallResult,
		"processing_time":  result.ProcessingTime,
		"timestamp":        result.Timestamp,
		"session_id":       id,
		"product_name":     req.ProductName,
		"group_results":    groupResults,
	})
}

func (h *Handlers) SchemaROI(c *gin.Context)     { c.JSON(http.StatusOK, schema.ROI()) }
func (h *Handlers) SchemaResult(c *gin.Context)  { c.JSON(http.StatusOK, schema.Result()) }
func (h *Handlers) SchemaVersion(c *gin.Context) { c.JSON(http.StatusOK, schema.Versions()) }
