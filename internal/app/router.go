package app

import (
	"course_study_backend/internal/middleware"
	"course_study_backend/internal/model"
	"course_study_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, s *services) {
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))
	router.GET("/metrics", monitoring.PrometheusHandler())
	router.GET("/health", c.health.HealthCheck)

	api := router.Group("/api")
	api.Use(middleware.ConfigMiddleware(a.CurrentConfig))

	// 1. 公共路由(无需登录)
	api.POST("/register", c.auth.Register)
	api.POST("/login", c.auth.Login)

	// 2. 需要授权的路由
	authGroup := api.Group("")
	authGroup.Use(middleware.AuthMiddleware())
	authGroup.GET("/me", c.auth.Me)

	// 3. 学生路由：会话中的页面浏览在每次请求开始时关闭
	cfg := a.Config
	studentGroup := authGroup.Group("")
	studentGroup.Use(
		middleware.Session(cfg.Session.CookieName, cfg.Session.TTL),
		middleware.PageViewCloser(a.Sessions, s.view),
		middleware.StudentRequired(s.student),
	)
	a.registerStudentRoutes(studentGroup, c)

	// 4. 员工路由
	staff := authGroup.Group("/staff")
	staff.Use(middleware.RoleMiddleware(model.RoleStaff))
	a.registerStaffRoutes(staff, c)
}

func (a *App) registerStudentRoutes(group *gin.RouterGroup, c *controllers) {
	student := group.Group("/student")
	{
		student.GET("/profile", c.student.GetProfile)
		student.PUT("/profile", c.student.UpdateProfile)
		student.POST("/documents/:id", c.student.UploadDocument)
	}

	// 课程与测试需要通过身份审核
	verified := group.Group("")
	verified.Use(middleware.VerifiedStudentRequired())
	{
		verified.GET("/courses", c.course.ListCourses)
		verified.GET("/courses/:id", c.course.GetCourse)
		verified.GET("/courses/:id/pages/:number", c.course.GetPage)
		verified.POST("/courses/:id/pages/:number/signature", c.course.SignPage)
		verified.GET("/courses/:id/progress", c.course.GetProgress)

		verified.POST("/tests/:id/instances", c.test.StartTest)
		verified.GET("/tests/:id/current", c.retake.CurrentAttempt)
		verified.GET("/instances/:id", c.test.GetInstance)
		verified.GET("/instances/:id/questions/:order", c.test.GetQuestion)
		verified.GET("/instances/:id/score", c.test.GetScore)
		verified.POST("/instances/:id/retake", c.retake.RequestRetake)
		verified.POST("/questions/:id/answer", c.test.AnswerQuestion)
	}
}

func (a *App) registerStaffRoutes(staff *gin.RouterGroup, c *controllers) {
	staff.GET("/retakes", c.retake.ListPending)
	staff.POST("/retakes/:id/approve", c.retake.Approve)
	staff.POST("/retakes/:id/deny", c.retake.Deny)

	staff.GET("/verifications", c.student.ListPendingVerifications)
	staff.POST("/verifications/:id", c.student.ReviewVerification)

	staff.POST("/courses/import", c.courseImport.ImportCourse)
}
