package api

import (
	"github.com/idchenko/phishset/app/config"
	"github.com/idchenko/phishset/app/database"
	"github.com/idchenko/phishset/app/dataset"
	"github.com/idchenko/phishset/app/tasks"
)

type Handler struct {
	configCache *config.Cache
	sourceRepo  database.SourceRepository
	datasetRepo database.DatasetRepository
	codec       *dataset.Codec
	scheduler   tasks.TaskSchedulerInterface
}
