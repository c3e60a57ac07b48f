package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ValentinKolb/dIdx/lib/store"
	"github.com/VictoriaMetrics/metrics"
	"github.com/gin-gonic/gin"
	"github.com/lni/dragonboat/v4/logger"
)

var AdminLogger = logger.GetLogger("admin")

// shardDescription is the json form of a shard in the admin api
type shardDescription struct {
	ID   uint64 `json:"id"`
	Type string `json:"type"`
}

// adminRouter creates the http handler of the admin api.
//
// Routes:
//
//	GET /healthz          liveness probe
//	GET /metrics          all metrics in prometheus text format
//	GET /shards           the shards of this server
//	GET /shards/:id/info  db info of a shard
//	GET /shards/:id/dot   graphviz dump of a shard's index
func (s *rpcServer) adminRouter() http.Handler {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery(), adminLoggerMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "shards": s.shards.Size()})
	})

	r.GET("/metrics", func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.Status(http.StatusOK)
		metrics.WritePrometheus(c.Writer, true)
	})

	r.GET("/shards", func(c *gin.Context) {
		shards := s.sortedShards()
		resp := make([]shardDescription, len(shards))
		for i, shard := range shards {
			resp[i] = shardDescription{ID: shard.ID, Type: string(shard.Type)}
		}
		c.JSON(http.StatusOK, resp)
	})

	r.GET("/shards/:id/info", s.withShard(func(c *gin.Context, shard serverShard) {
		info, err := shard.Store.GetDBInfo()
		if err != nil {
			abortWithStoreError(c, err)
			return
		}
		c.JSON(http.StatusOK, info)
	}))

	r.GET("/shards/:id/dot", s.withShard(func(c *gin.Context, shard serverShard) {
		dot, err := shard.Store.Dump()
		if err != nil {
			abortWithStoreError(c, err)
			return
		}
		c.Data(http.StatusOK, "text/vnd.graphviz; charset=utf-8", dot)
	}))

	return r
}

// withShard resolves the :id path parameter to a shard
func (s *rpcServer) withShard(next func(c *gin.Context, shard serverShard)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid shard id"})
			return
		}
		shard, ok := s.shards.Load(id)
		if !ok {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "shard not found"})
			return
		}
		next(c, shard)
	}
}

// abortWithStoreError maps a store error to an http status
func abortWithStoreError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch store.CodeOf(err) {
	case store.RetCUnsupportedOperation:
		status = http.StatusNotImplemented
	case store.RetCTimeout:
		status = http.StatusGatewayTimeout
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error(), "code": store.CodeOf(err).String()})
}

// adminLoggerMiddleware logs every admin request at debug level
func adminLoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		AdminLogger.Debugf("%s %s => %d took %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
