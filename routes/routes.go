package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/HlnefzgerSchoolAct/NutriNote--sub003/config"
	"github.com/HlnefzgerSchoolAct/NutriNote--sub003/controllers"
	"github.com/HlnefzgerSchoolAct/NutriNote--sub003/middlewares"
	"github.com/HlnefzgerSchoolAct/NutriNote--sub003/services"
	"github.com/HlnefzgerSchoolAct/NutriNote--sub003/utils"
)

func SetupRouter(pipeline *services.PipelineService, log *utils.Logger) *gin.Engine {
	r := gin.Default()

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = []string{config.Getenv("CORS_ORIGIN", "*")}
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	if corsCfg.AllowOrigins[0] == "*" {
		corsCfg.AllowOrigins = nil
		corsCfg.AllowAllOrigins = true
	}
	r.Use(cors.New(corsCfg))
	r.Use(middlewares.RequestIDMiddleware())

	limiter := middlewares.NewSlidingWindowLimiter(
		config.GetenvInt("RATE_LIMIT_REQUESTS", 30),
		config.GetenvDuration("RATE_LIMIT_WINDOW", time.Minute),
	)

	fc := controllers.NewFoodController(pipeline, log)

	food := r.Group("/food")
	food.Use(middlewares.RateLimitMiddleware(limiter))
	{
		food.POST("/analyze", fc.AnalyzeText)
		food.POST("/photo", fc.AnalyzePhoto)
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}
