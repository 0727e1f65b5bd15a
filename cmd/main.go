package main

import (
	"context"

	"github.com/HlnefzgerSchoolAct/NutriNote--sub003/config"
	"github.com/HlnefzgerSchoolAct/NutriNote--sub003/routes"
	"github.com/HlnefzgerSchoolAct/NutriNote--sub003/services"
	"github.com/HlnefzgerSchoolAct/NutriNote--sub003/utils"
)

func main() {
	config.Load()

	log, err := utils.NewLogger(config.Getenv("APP_ENV", "development"))
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	oracle, err := services.NewOracleService(log)
	if err != nil {
		log.Fatal("oracle client init failed", "error", err)
	}

	// the secondary vision oracle is optional: without AWS credentials the
	// photo path runs single-oracle at reduced confidence
	var secondary services.VisionDetector
	if rek, err := services.NewRekognitionService(context.Background(), log); err != nil {
		log.Warn("rekognition unavailable, photo path runs single-oracle", "error", err)
	} else {
		secondary = rek
	}

	normalizer := services.NewServingNormalizer()
	fdc := services.NewFoodDataService(log)
	resolver := services.NewNutritionResolver(fdc, oracle, log)
	validator := services.NewRealismValidator(oracle, log)
	outliers := services.NewOutlierEngine(log)
	merger := services.NewDetectionMerger(log)
	decomposer := services.NewDishDecomposer(oracle, resolver, validator, normalizer, log)

	pipeline := services.NewPipelineService(
		normalizer, resolver, validator, outliers, merger, decomposer, oracle, secondary, log,
	)

	r := routes.SetupRouter(pipeline, log)
	if err := r.Run(":" + config.Getenv("PORT", "8080")); err != nil {
		log.Fatal("server exited", "error", err)
	}
}
