package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/middleware"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/models"
)

// Handlers bundles every HTTP handler mounted under the API prefix.
type Handlers struct {
	Courses       *CourseHandler
	Students      *StudentHandler
	Enrollments   *EnrollmentHandler
	Grades        *GradeHandler
	Payments      *PaymentHandler
	Notifications *NotificationHandler
	Transcripts   *TranscriptHandler
	Metrics       *MetricsHandler
}

var (
	admin         = string(models.RoleAdmin)
	accountsAdmin = string(models.RoleAccountsAdmin)
	teacher       = string(models.RoleTeacher)
	self          = middleware.Self
	staffOrSelf   = []string{admin, accountsAdmin, teacher, self}
)

// RegisterRoutes mounts the API on group. auth verifies bearer tokens on every
// route except signed transcript downloads.
func RegisterRoutes(group *gin.RouterGroup, h Handlers, auth gin.HandlerFunc) {
	group.GET("/exports/:token", h.Transcripts.Download)

	secured := group.Group("")
	secured.Use(auth)

	secured.GET("/courses", h.Courses.List)
	secured.GET("/courses/:id", h.Courses.Get)
	secured.POST("/courses", middleware.RBAC(admin), h.Courses.Create)
	secured.PATCH("/courses/:id", middleware.RBAC(admin), h.Courses.Update)
	secured.DELETE("/courses/:id", middleware.RBAC(admin), h.Courses.Delete)
	secured.POST("/courses/:id/subjects", middleware.RBAC(admin, teacher), h.Courses.AddSubject)
	secured.POST("/courses/:id/resources", middleware.RBAC(admin, teacher), h.Courses.AddResource)
	secured.POST("/courses/:id/tests", middleware.RBAC(admin, teacher), h.Courses.AddTest)

	secured.GET("/students", middleware.RBAC(admin, teacher, accountsAdmin), h.Students.List)
	secured.POST("/students", middleware.RBAC(admin), h.Students.Create)

	student := secured.Group("/students/:id")
	student.GET("", middleware.RBAC(staffOrSelf...), h.Students.Get)
	student.GET("/summary", middleware.RBAC(staffOrSelf...), h.Students.Summary)
	student.POST("/enrollments", middleware.RBAC(admin, self), h.Enrollments.Enroll)
	student.PUT("/courses/:courseId/subjects/:subject/grades", middleware.RBAC(teacher, admin), h.Grades.UpdateComponent)
	student.GET("/courses/:courseId/average", middleware.RBAC(staffOrSelf...), h.Grades.CourseAverage)
	student.POST("/payments", middleware.RBAC(accountsAdmin, self), h.Payments.Pay)
	student.GET("/transactions", middleware.RBAC(accountsAdmin, admin, self), h.Payments.Transactions)
	student.PUT("/payment-plan", middleware.RBAC(accountsAdmin), h.Students.SetPaymentPlan)
	student.POST("/charges", middleware.RBAC(accountsAdmin), h.Students.AddCharge)
	student.POST("/clearance", middleware.RBAC(accountsAdmin, admin), h.Students.GrantClearance)
	student.DELETE("/clearance", middleware.RBAC(accountsAdmin, admin), h.Students.RemoveClearance)
	student.GET("/notifications", middleware.RBAC(staffOrSelf...), h.Notifications.List)
	student.PATCH("/notifications/:notificationId/read", middleware.RBAC(self), h.Notifications.MarkRead)
	student.POST("/transcript", middleware.RBAC(staffOrSelf...), h.Transcripts.Generate)

	secured.POST("/notifications/broadcast", middleware.RequireRoles(models.RoleAdmin), h.Notifications.Broadcast)
	secured.GET("/admin/metrics", middleware.RequireRoles(models.RoleAdmin), h.Metrics.Snapshot)
}
