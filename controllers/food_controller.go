package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/HlnefzgerSchoolAct/NutriNote--sub003/middlewares"
	"github.com/HlnefzgerSchoolAct/NutriNote--sub003/services"
	"github.com/HlnefzgerSchoolAct/NutriNote--sub003/utils"
)

// FoodController is the thin HTTP surface over the resolution pipeline: bind
// the request, invoke the core, map the error taxonomy onto status codes.
type FoodController struct {
	pipeline *services.PipelineService
	log      *utils.Logger
}

func NewFoodController(pipeline *services.PipelineService, log *utils.Logger) *FoodController {
	return &FoodController{pipeline: pipeline, log: log.With("controller", "FoodController")}
}

// POST /food/analyze  { "description": "grilled chicken salad", "serving": "1 cup" }
func (fc *FoodController) AnalyzeText(c *gin.Context) {
	var req struct {
		Description string `json:"description" binding:"required"`
		Serving     string `json:"serving"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "description is required"})
		return
	}

	result, err := fc.pipeline.AnalyzeText(c.Request.Context(), req.Description, req.Serving)
	fc.respond(c, result, err)
}

// POST /food/photo  { "image_base64": "data:image/jpeg;base64,..." }
func (fc *FoodController) AnalyzePhoto(c *gin.Context) {
	var req struct {
		ImageBase64 string `json:"image_base64" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image_base64 is required"})
		return
	}

	result, err := fc.pipeline.AnalyzePhoto(c.Request.Context(), req.ImageBase64)
	fc.respond(c, result, err)
}

func (fc *FoodController) respond(c *gin.Context, result interface{}, err error) {
	requestID := c.GetString(middlewares.RequestIDKey)
	switch {
	case errors.Is(err, services.ErrVisionUnavailable):
		fc.log.Error("image identification failed", "request_id", requestID, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not identify foods in the image"})
	case errors.Is(err, services.ErrAllFoodsFailedRealism):
		// still return the foods: the caller decides whether to show the
		// best-known numbers or ask the user to retry
		fc.log.Warn("all foods failed realism validation", "request_id", requestID)
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "no plausible nutrition could be produced",
			"result": result,
		})
	case err != nil:
		fc.log.Error("analysis failed", "request_id", requestID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis failed"})
	default:
		c.JSON(http.StatusOK, result)
	}
}
