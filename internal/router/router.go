package router

import (
	"strings"

	"github.com/diario/internal/handler"
	"github.com/diario/internal/logger"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Options 控制路由层的会话、静态文件与追踪配置。
type Options struct {
	SessionSecret string
	// UploadDir 非空时以 UploadURL 为前缀对外提供本地上传的图片
	UploadDir   string
	UploadURL   string
	ServiceName string
}

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logger.Middleware())

	serviceName := strings.TrimSpace(opts.ServiceName)
	if serviceName == "" {
		serviceName = "diario"
	}
	r.Use(otelgin.Middleware(serviceName))

	// 配置会话中间件
	store := cookie.NewStore([]byte(opts.SessionSecret))
	store.Options(sessions.Options{Path: "/", MaxAge: 7 * 24 * 60 * 60, HttpOnly: true})
	r.Use(sessions.Sessions("diario_session", store))
	r.Use(api.Identify())

	if dir := strings.TrimSpace(opts.UploadDir); dir != "" {
		uploadURL := strings.TrimRight(strings.TrimSpace(opts.UploadURL), "/")
		if uploadURL == "" {
			uploadURL = "/static/uploads"
		}
		r.Static(uploadURL, dir)
	}

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	r.POST("/login/", api.Login)
	r.POST("/logout/", api.Logout)

	noticias := r.Group("/noticias")
	{
		noticias.GET("/mas-vistas/", api.MostVisitedWeekly)
		noticias.GET("/populares-semana/", api.MostVisitedWeekly)
		noticias.GET("/mas-leidas/", api.MostVisitedAllTime)
		noticias.GET("/populares-historico/", api.MostVisitedAllTime)
		noticias.GET("/estadisticas-visitas/", api.VisitStatistics)
		noticias.GET("/recientes/", api.Recent)
		noticias.GET("/destacadas/", api.Featured)
		noticias.GET("/por-categoria/", api.ByCategory)
		for _, section := range []string{"politica", "cultura", "economia", "mundo", "tipos-notas"} {
			noticias.GET("/"+section+"/", api.Section(section))
		}

		noticias.GET("/:ref/", api.GetArticle)
		noticias.GET("/:ref/reacciones/", api.ReactionCounts)
		noticias.GET("/:ref/comentarios/", api.ListComments)

		auth := noticias.Group("")
		auth.Use(handler.RequireUser())
		{
			auth.POST("/", api.CreateArticle)
			auth.POST("/reiniciar-visitas/", api.ResetVisits)
			auth.PUT("/:ref/", api.UpdateArticle)
			auth.POST("/:ref/reacciones/", api.React)
			auth.DELETE("/:ref/reacciones/", api.RemoveReaction)
			auth.GET("/:ref/mi-reaccion/", api.MyReaction)
			auth.POST("/:ref/comentarios/", api.CreateComment)
			auth.POST("/:ref/comentarios/:comment_id/responder/", api.ReplyToComment)
			auth.DELETE("/:ref/comentarios/:comment_id/", api.DeleteComment)
		}
	}

	r.POST("/upload_image/", handler.RequireUser(), api.UploadImage)

	mensajes := r.Group("/mensajes")
	mensajes.Use(handler.RequireUser())
	{
		mensajes.GET("/", api.ListMessages)
		mensajes.POST("/", api.CreateMessage)
		mensajes.GET("/mis_mensajes/", api.MyMessages)
		mensajes.POST("/limpiar_expirados/", api.SweepMessages)
		mensajes.DELETE("/:id/", api.DeleteMessage)
		mensajes.POST("/:id/responder/", api.ReplyToMessage)
		mensajes.DELETE("/:id/eliminar_respuesta/", api.RemoveReply)
		mensajes.POST("/:id/desactivar/", api.DeactivateMessage)
	}

	return r
}
