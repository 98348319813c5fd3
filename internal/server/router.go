package server

import (
	"tasktracker/internal/config"
	"tasktracker/internal/logging"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func NewRouter(cfg config.Server, log *logging.Logger, tasks *TaskHandler, blobs *BlobHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-User-ID"},
	}))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.Use(Auth(cfg))
	{
		api.POST("/blob", blobs.Upload)
		api.GET("/blob/:filename", blobs.Download)
		api.PUT("/blob", MethodNotAllowed)
		api.DELETE("/blob", MethodNotAllowed)

		// "purge" and "events" live beside /tasks rather than under it;
		// gin's tree rejects static segments next to the :id wildcard.
		api.GET("/tasks", tasks.List)
		api.POST("/tasks", tasks.Insert)
		api.POST("/tasks/:id/update", tasks.Update)
		api.POST("/purge", tasks.Purge)
		api.GET("/events", tasks.Events)
	}
	return r
}
